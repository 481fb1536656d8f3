// Package swing provides the core engine for live coding playgrounds:
// classifying source files by role, transpiling per-dialect content to
// browser-executable form, and keeping a live preview surface in sync as
// files are edited.
package swing

import "context"

// Role identifies what part a file plays in a playground.
type Role string

const (
	RoleMarkup     Role = "markup"
	RoleStylesheet Role = "stylesheet"
	RoleScript     Role = "script"
	RoleManifest   Role = "manifest"
)

// Dialect identifies a specific source syntax variant within a role.
type Dialect string

const (
	DialectHTML     Dialect = "html"
	DialectMarkdown Dialect = "markdown"

	DialectCSS  Dialect = "css"
	DialectSCSS Dialect = "scss"
	DialectSass Dialect = "sass"
	DialectLess Dialect = "less"

	DialectJavaScript Dialect = "javascript"
	DialectTypeScript Dialect = "typescript"
	DialectJSX        Dialect = "jsx"
	DialectTSX        Dialect = "tsx"

	DialectManifest Dialect = "manifest"
)

// ManifestFileName is the exact file name that identifies the playground
// manifest within a bundle. No other name qualifies.
const ManifestFileName = "playground.json"

// Document is an open role document within a playground session. Identity is
// the file name: a rename across dialect extensions produces a document with
// the same role but a different identity.
type Document struct {
	Name    string
	Role    Role
	Dialect Dialect
	Content string

	// Output holds the most recent successful transpile result for this
	// document. A failed transpile leaves it untouched so the preview
	// keeps rendering the last good layer.
	Output string
}

// Store is the external file storage collaborator. Writes are
// fire-and-forget from the engine's point of view: the engine logs write
// failures but never blocks rendering on them.
type Store interface {
	Read(ctx context.Context, bundleID, name string) ([]byte, error)
	Write(ctx context.Context, bundleID, name string, data []byte) error
	Delete(ctx context.Context, bundleID, name string) error
	List(ctx context.Context, bundleID string) ([]string, error)
}

// PreviewSurface is the webview host collaborator. The engine pushes layer
// updates through it and never inspects its internals. The autorun argument
// hints whether the surface should apply the update immediately (edit-driven
// updates) or defer until an explicit run (save-driven mode).
type PreviewSurface interface {
	UpdateManifest(text string, autorun bool)
	UpdateHTML(text string, autorun bool)
	UpdateCSS(text string, autorun bool)
	UpdateJavaScript(doc *Document, autorun bool)

	// Rebuild re-renders the whole preview from the last pushed layers.
	Rebuild(ctx context.Context) error

	// Disposed reports whether the surface has been torn down. Late
	// results against a disposed surface are dropped, never an error.
	Disposed() bool
}
