package swing

import (
	"path"
	"strings"
)

// roleSpec describes how files qualify for a role: the canonical base name
// plus an ordered extension table mapping to dialects. Extension order is the
// priority order used when a bundle contains more than one candidate.
type roleSpec struct {
	base string
	exts []extDialect
}

type extDialect struct {
	ext     string
	dialect Dialect
}

// Dialect tables. Adding a dialect means adding a row here; classification
// never inspects file content.
var roleSpecs = map[Role]roleSpec{
	RoleMarkup: {
		base: "index",
		exts: []extDialect{
			{".html", DialectHTML},
			{".md", DialectMarkdown},
			{".markdown", DialectMarkdown},
		},
	},
	RoleStylesheet: {
		base: "style",
		exts: []extDialect{
			{".css", DialectCSS},
			{".scss", DialectSCSS},
			{".sass", DialectSass},
			{".less", DialectLess},
		},
	},
	RoleScript: {
		base: "script",
		exts: []extDialect{
			{".js", DialectJavaScript},
			{".mjs", DialectJavaScript},
			{".ts", DialectTypeScript},
			{".jsx", DialectJSX},
			{".tsx", DialectTSX},
		},
	},
}

// classifyOrder fixes the order roles are considered in, which also fixes
// the editor pane assignment order downstream.
var classifyOrder = []Role{RoleMarkup, RoleStylesheet, RoleScript}

// Classification is the result of resolving a file name to a role.
type Classification struct {
	Role    Role
	Dialect Dialect
}

// Classify maps a file name to its role and dialect. The manifest is matched
// by exact name; markup/stylesheet/script require the role's canonical base
// name plus a known extension. Returns ok=false for files the engine does
// not manage.
func Classify(fileName string) (Classification, bool) {
	if fileName == ManifestFileName {
		return Classification{Role: RoleManifest, Dialect: DialectManifest}, true
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)

	for _, role := range classifyOrder {
		spec := roleSpecs[role]
		if base != spec.base {
			continue
		}
		for _, ed := range spec.exts {
			if ed.ext == ext {
				return Classification{Role: role, Dialect: ed.dialect}, true
			}
		}
	}

	return Classification{}, false
}

// ResolveRole finds the file in the bundle that fills the given role, using
// the role's extension priority order. At most one file resolves per role;
// when several candidates exist the earliest extension in the table wins.
func ResolveRole(b *Bundle, role Role) (string, Dialect, bool) {
	if role == RoleManifest {
		if b.Has(ManifestFileName) {
			return ManifestFileName, DialectManifest, true
		}
		return "", "", false
	}

	spec, ok := roleSpecs[role]
	if !ok {
		return "", "", false
	}
	for _, ed := range spec.exts {
		name := spec.base + ed.ext
		if b.Has(name) {
			return name, ed.dialect, true
		}
	}
	return "", "", false
}

// ComponentTemplated reports whether a dialect carries component-template
// syntax that requires a UI-framework runtime in the preview.
func ComponentTemplated(d Dialect) bool {
	return d == DialectJSX || d == DialectTSX
}

// HasComponentTemplatedFile reports whether any file in the bundle uses a
// component-templated extension. Library auto-injection scans the whole
// bundle, not just the file being edited.
func HasComponentTemplatedFile(b *Bundle) bool {
	for _, name := range b.Names() {
		if c, ok := Classify(name); ok && ComponentTemplated(c.Dialect) {
			return true
		}
	}
	return false
}
