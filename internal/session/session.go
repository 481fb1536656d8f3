// Package session orchestrates live playground sessions: it resolves role
// documents from a bundle, renders the initial preview, and keeps the preview
// surface in sync as files change, coalescing edit bursts through a
// trailing-edge debounce window.
package session

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/config"
	"github.com/livepreview/swing/internal/layout"
	"github.com/livepreview/swing/internal/transpile"
)

// autosaveInterval is the periodic flush cadence when autosave is enabled.
const autosaveInterval = 30 * time.Second

// State is the session lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateActive
	StateDisposing
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateDisposing:
		return "disposing"
	default:
		return "idle"
	}
}

// Session is one open playground: a bundle bound to a preview surface. All
// change handling funnels through per-role debouncers; results against a
// disposed session or surface are dropped, never an error.
type Session struct {
	id      string
	bundle  *swing.Bundle
	store   swing.Store
	surface swing.PreviewSurface
	cfg     config.PlaygroundsConfig
	window  time.Duration

	state atomic.Int32

	mu           sync.Mutex // guards docs, manifest, plan
	docs         map[swing.Role]*swing.Document
	manifest     swing.Manifest
	manifestText string
	plan         layout.Plan

	// manifestMu serializes manifest resolution and write-back for the
	// bundle so concurrent injection passes cannot interleave.
	manifestMu sync.Mutex

	debouncers map[swing.Role]*Debouncer
	console    *Console
	disposed   atomic.Bool

	readOnly      bool
	hostAutoSaves bool

	autosaveDone chan struct{}
	onDispose    func()
}

// Option adjusts session construction.
type Option func(*Session)

// WithDebounceWindow overrides the change-coalescing window. Used by hosts
// that need tighter or looser batching than the default.
func WithDebounceWindow(d time.Duration) Option {
	return func(s *Session) { s.window = d }
}

// WithReadOnly marks the bundle as not writable by the session owner. The
// autosave loop is skipped; explicit store writes still go through and fail
// at the store's discretion.
func WithReadOnly() Option {
	return func(s *Session) { s.readOnly = true }
}

// WithHostAutoSave tells the session the host editor persists edits itself,
// so the session must not run its own autosave loop on top.
func WithHostAutoSave() Option {
	return func(s *Session) { s.hostAutoSaves = true }
}

func newSession(bundle *swing.Bundle, store swing.Store, surface swing.PreviewSurface, cfg config.PlaygroundsConfig, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New().String(),
		bundle:     bundle,
		store:      store,
		surface:    surface,
		cfg:        cfg,
		window:     DebounceWindow,
		docs:       make(map[swing.Role]*swing.Document),
		debouncers: make(map[swing.Role]*Debouncer),
		console:    newConsole(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, role := range []swing.Role{swing.RoleMarkup, swing.RoleStylesheet, swing.RoleScript, swing.RoleManifest} {
		s.debouncers[role] = NewDebouncer(s.window)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// Console returns the session's diagnostic console.
func (s *Session) Console() *Console { return s.console }

// Plan returns the pane arrangement computed at open time.
func (s *Session) Plan() layout.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Document returns the open document for a role, or nil when the role has no
// file in the bundle.
func (s *Session) Document(role swing.Role) *swing.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[role]
}

// Manifest returns the manifest the session currently renders against.
func (s *Session) Manifest() swing.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

// open performs the initial resolve-and-render sequence: library injection,
// layout planning, then a fixed-order push of manifest, markup, stylesheet,
// and script layers, finishing with a full surface rebuild.
func (s *Session) open(ctx context.Context) error {
	s.state.Store(int32(StateOpening))

	s.manifestMu.Lock()
	text := swing.ResolveManifest(ctx, s.store, s.bundle)
	s.manifestMu.Unlock()

	s.mu.Lock()
	s.manifestText = text
	s.manifest = swing.ParseManifest(text)

	present := make(map[swing.Role]bool)
	for _, role := range []swing.Role{swing.RoleMarkup, swing.RoleStylesheet, swing.RoleScript} {
		name, dialect, ok := swing.ResolveRole(s.bundle, role)
		if !ok {
			continue
		}
		content, _ := s.bundle.Get(name)
		s.docs[role] = &swing.Document{Name: name, Role: role, Dialect: dialect, Content: content}
		present[role] = true
	}
	s.plan = layout.PlanFor(present, s.layoutPreference())
	manifest := s.manifest
	s.mu.Unlock()

	autorun := s.runOnEdit()
	s.surface.UpdateManifest(text, autorun)

	if doc := s.Document(swing.RoleMarkup); doc != nil {
		if out, err := transpile.Markup(doc); err != nil {
			s.reportTranspile(doc.Name, err)
		} else {
			doc.Output = out
			s.surface.UpdateHTML(out, autorun)
		}
	}
	if doc := s.Document(swing.RoleStylesheet); doc != nil {
		if out, err := transpile.Stylesheet(ctx, doc); err != nil {
			s.reportTranspile(doc.Name, err)
		} else {
			doc.Output = out
			s.surface.UpdateCSS(out, autorun)
		}
	}
	if doc := s.Document(swing.RoleScript); doc != nil {
		if out, err := transpile.Script(doc, manifest); err != nil {
			s.reportTranspile(doc.Name, err)
		} else {
			doc.Output = out
			s.surface.UpdateJavaScript(doc, autorun)
		}
	}

	if err := s.surface.Rebuild(ctx); err != nil {
		log.Printf("[Session] Initial rebuild failed for %s: %v", s.id, err)
	}

	if s.autosaveEnabled() {
		s.mu.Lock()
		if !s.disposed.Load() {
			done := make(chan struct{})
			s.autosaveDone = done
			go s.autosaveLoop(done)
		}
		s.mu.Unlock()
	}

	// A concurrent Dispose may have already torn the session down; only an
	// undisturbed open transitions to active.
	s.state.CompareAndSwap(int32(StateOpening), int32(StateActive))
	return nil
}

// HandleChange routes a file change into the session. Unmanaged file names
// are ignored; managed ones are debounced per role with trailing-edge
// semantics, so a burst of edits produces one transpile of the final content.
func (s *Session) HandleChange(name, content string) {
	if s.disposed.Load() {
		return
	}
	cls, ok := swing.Classify(name)
	if !ok {
		return
	}
	s.debouncers[cls.Role].Schedule(func() {
		s.apply(context.Background(), cls, name, content)
	})
}

// HandleSave reacts to an explicit save. In onSave autorun mode a save is
// what pushes pending work to the preview, as a full rebuild.
func (s *Session) HandleSave(ctx context.Context) {
	if s.disposed.Load() {
		return
	}
	if s.cfg.AutoRun == config.AutorunOnSave {
		s.Run(ctx)
	}
}

// Run re-pushes every layer and rebuilds the preview, regardless of autorun
// mode. This is the explicit run command.
func (s *Session) Run(ctx context.Context) {
	if s.dropLate() {
		return
	}

	s.mu.Lock()
	text := s.manifestText
	markup := s.docs[swing.RoleMarkup]
	style := s.docs[swing.RoleStylesheet]
	script := s.docs[swing.RoleScript]
	s.mu.Unlock()

	s.surface.UpdateManifest(text, true)
	if markup != nil {
		s.surface.UpdateHTML(markup.Output, true)
	}
	if style != nil {
		s.surface.UpdateCSS(style.Output, true)
	}
	if script != nil {
		s.surface.UpdateJavaScript(script, true)
	}
	if err := s.surface.Rebuild(ctx); err != nil {
		log.Printf("[Session] Rebuild failed for %s: %v", s.id, err)
	}
}

// Dispose tears the session down: pending debounced work is cancelled, the
// autosave loop stops, and the console is released. Idempotent.
func (s *Session) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.state.Store(int32(StateDisposing))

	for _, d := range s.debouncers {
		d.Stop()
	}
	s.mu.Lock()
	if s.autosaveDone != nil {
		close(s.autosaveDone)
		s.autosaveDone = nil
	}
	s.mu.Unlock()
	s.console.Close()
	if s.onDispose != nil {
		s.onDispose()
	}

	s.state.Store(int32(StateIdle))
}

// apply performs the debounced per-role update. It runs on the debouncer's
// timer goroutine after the window settles.
func (s *Session) apply(ctx context.Context, cls swing.Classification, name, content string) {
	if s.dropLate() {
		return
	}

	switch cls.Role {
	case swing.RoleMarkup:
		s.applyMarkup(name, cls.Dialect, content)
	case swing.RoleStylesheet:
		s.applyStylesheet(ctx, name, cls.Dialect, content)
	case swing.RoleScript:
		s.applyScript(ctx, name, cls.Dialect, content)
	case swing.RoleManifest:
		s.applyManifest(content)
	}
}

func (s *Session) applyMarkup(name string, dialect swing.Dialect, content string) {
	doc := s.trackDoc(swing.RoleMarkup, name, dialect, content)
	out, err := transpile.Markup(doc)
	if err != nil {
		s.reportTranspile(name, err)
		return
	}
	doc.Output = out
	if !s.dropLate() {
		s.surface.UpdateHTML(out, s.runOnEdit())
	}
}

func (s *Session) applyStylesheet(ctx context.Context, name string, dialect swing.Dialect, content string) {
	doc := s.trackDoc(swing.RoleStylesheet, name, dialect, content)
	out, err := transpile.Stylesheet(ctx, doc)
	if err != nil {
		s.reportTranspile(name, err)
		return
	}
	doc.Output = out
	if !s.dropLate() {
		s.surface.UpdateCSS(out, s.runOnEdit())
	}
}

// applyScript handles the one role where file identity can change within the
// role: renaming script.js to script.tsx changes the dialect. A rename
// migrates the stored file and triggers exactly one manifest resolution pass,
// since library requirements may have changed with the extension.
func (s *Session) applyScript(ctx context.Context, name string, dialect swing.Dialect, content string) {
	s.mu.Lock()
	prev := s.docs[swing.RoleScript]
	var oldName string
	if prev != nil && prev.Name != name {
		oldName = prev.Name
	}
	s.mu.Unlock()

	if oldName != "" {
		s.bundle.Rename(oldName, name)
		if s.store != nil {
			if err := s.store.Write(ctx, s.bundle.ID(), name, []byte(content)); err != nil {
				log.Printf("[Session] Rename write failed for %q: %v", name, err)
			}
			if err := s.store.Delete(ctx, s.bundle.ID(), oldName); err != nil {
				log.Printf("[Session] Rename cleanup failed for %q: %v", oldName, err)
			}
		}
	}

	doc := s.trackDoc(swing.RoleScript, name, dialect, content)

	if oldName != "" {
		s.refreshManifest(ctx)
	}

	out, err := transpile.Script(doc, s.Manifest())
	if err != nil {
		s.reportTranspile(name, err)
		return
	}
	doc.Output = out
	if !s.dropLate() {
		s.surface.UpdateJavaScript(doc, s.runOnEdit())
	}
}

// applyManifest re-parses the manifest and re-transpiles the script layer,
// which depends on the manifest's script list and script type.
func (s *Session) applyManifest(content string) {
	s.bundle.Set(swing.ManifestFileName, content)
	m := swing.ParseManifest(content)

	s.mu.Lock()
	s.manifestText = content
	s.manifest = m
	script := s.docs[swing.RoleScript]
	s.mu.Unlock()

	if s.dropLate() {
		return
	}
	autorun := s.runOnEdit()
	s.surface.UpdateManifest(content, autorun)

	if script != nil {
		out, err := transpile.Script(script, m)
		if err != nil {
			s.reportTranspile(script.Name, err)
			return
		}
		script.Output = out
		s.surface.UpdateJavaScript(script, autorun)
	}
}

// refreshManifest re-runs library injection against the current bundle and
// pushes the result if it changed.
func (s *Session) refreshManifest(ctx context.Context) {
	s.manifestMu.Lock()
	text := swing.ResolveManifest(ctx, s.store, s.bundle)
	s.manifestMu.Unlock()

	s.mu.Lock()
	changed := text != s.manifestText
	if changed {
		s.manifestText = text
		s.manifest = swing.ParseManifest(text)
	}
	s.mu.Unlock()

	if changed && !s.dropLate() {
		s.surface.UpdateManifest(text, s.runOnEdit())
	}
}

// trackDoc updates the tracked document for a role, creating it on first
// sight, and mirrors the content into the bundle.
func (s *Session) trackDoc(role swing.Role, name string, dialect swing.Dialect, content string) *swing.Document {
	s.bundle.Set(name, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[role]
	if doc == nil {
		doc = &swing.Document{Role: role}
		s.docs[role] = doc
	}
	doc.Name = name
	doc.Dialect = dialect
	doc.Content = content
	return doc
}

func (s *Session) autosaveLoop(done <-chan struct{}) {
	ticker := time.NewTicker(autosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.saveAll(context.Background())
		case <-done:
			return
		}
	}
}

// saveAll flushes every tracked document to the store. Failures are logged;
// autosave never interrupts the session.
func (s *Session) saveAll(ctx context.Context) {
	if s.store == nil || s.disposed.Load() {
		return
	}
	s.mu.Lock()
	docs := make([]*swing.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.Unlock()

	for _, d := range docs {
		if err := s.store.Write(ctx, s.bundle.ID(), d.Name, []byte(d.Content)); err != nil {
			log.Printf("[Session] Autosave failed for %q: %v", d.Name, err)
		}
	}
}

// layoutPreference resolves the effective layout: a valid manifest override
// wins over configuration. Called with s.mu held.
func (s *Session) layoutPreference() layout.Preference {
	if p := layout.Preference(s.manifest.Layout); validPreference(p) {
		return p
	}
	if p := layout.Preference(s.cfg.Layout); validPreference(p) {
		return p
	}
	return layout.PrefSplitLeft
}

func validPreference(p layout.Preference) bool {
	switch p {
	case layout.PrefGrid, layout.PrefPreview, layout.PrefSplitLeft, layout.PrefSplitRight, layout.PrefSplitTop:
		return true
	}
	return false
}

// autosaveEnabled reports whether the session should run its own autosave
// loop: configured on, the owner can write, and the host does not already
// save edits itself.
func (s *Session) autosaveEnabled() bool {
	return s.cfg.AutoSave && !s.readOnly && !s.hostAutoSaves
}

// runOnEdit reports whether layer updates should take effect immediately.
func (s *Session) runOnEdit() bool {
	return s.cfg.AutoRun != config.AutorunOnSave
}

// dropLate reports whether results should be discarded because the session
// or its surface is gone.
func (s *Session) dropLate() bool {
	return s.disposed.Load() || s.surface.Disposed()
}

func (s *Session) reportTranspile(name string, err error) {
	log.Printf("[Session] Transpile failed for %q: %v", name, err)
	s.console.Logf("transpile %s: %v", name, err)
}
