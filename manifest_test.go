package swing

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// writeCountingStore records writes so tests can assert on persistence
// behavior without a real backend.
type writeCountingStore struct {
	writes map[string]string
}

func newWriteCountingStore() *writeCountingStore {
	return &writeCountingStore{writes: make(map[string]string)}
}

func (s *writeCountingStore) Read(ctx context.Context, bundleID, name string) ([]byte, error) {
	return nil, nil
}

func (s *writeCountingStore) Write(ctx context.Context, bundleID, name string, data []byte) error {
	s.writes[name] = string(data)
	return nil
}

func (s *writeCountingStore) Delete(ctx context.Context, bundleID, name string) error { return nil }

func (s *writeCountingStore) List(ctx context.Context, bundleID string) ([]string, error) {
	return nil, nil
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantScripts []string
		wantLayout  string
	}{
		{name: "empty text", text: "", wantScripts: []string{}},
		{name: "malformed json falls back to defaults", text: "{not json", wantScripts: []string{}},
		{name: "missing fields get defaults", text: "{}", wantScripts: []string{}},
		{name: "scripts preserved", text: `{"scripts":["lodash"]}`, wantScripts: []string{"lodash"}},
		{name: "layout preserved", text: `{"scripts":[],"layout":"grid"}`, wantScripts: []string{}, wantLayout: "grid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ParseManifest(tt.text)
			if len(m.Scripts) != len(tt.wantScripts) {
				t.Fatalf("scripts = %v, want %v", m.Scripts, tt.wantScripts)
			}
			for i := range tt.wantScripts {
				if m.Scripts[i] != tt.wantScripts[i] {
					t.Errorf("scripts[%d] = %q, want %q", i, m.Scripts[i], tt.wantScripts[i])
				}
			}
			if m.Layout != tt.wantLayout {
				t.Errorf("layout = %q, want %q", m.Layout, tt.wantLayout)
			}
		})
	}
}

func TestResolveManifestInjectsRuntimeLibraries(t *testing.T) {
	b := NewBundle("bundle-1")
	b.Set("script.jsx", "const x = <div />;")
	b.Set(ManifestFileName, `{"scripts":["lodash"],"styles":[]}`)
	st := newWriteCountingStore()

	text := ResolveManifest(context.Background(), st, b)

	m := ParseManifest(text)
	want := []string{"lodash", "react", "react-dom"}
	if len(m.Scripts) != len(want) {
		t.Fatalf("scripts = %v, want %v", m.Scripts, want)
	}
	for i := range want {
		if m.Scripts[i] != want[i] {
			t.Errorf("scripts[%d] = %q, want %q", i, m.Scripts[i], want[i])
		}
	}

	// The rewrite persists exactly once and updates the bundle copy.
	if len(st.writes) != 1 {
		t.Fatalf("expected 1 store write, got %d", len(st.writes))
	}
	if got, _ := b.Get(ManifestFileName); got != text {
		t.Error("bundle manifest content should match the resolved text")
	}
}

func TestResolveManifestIdempotent(t *testing.T) {
	b := NewBundle("bundle-1")
	b.Set("script.tsx", "")
	b.Set(ManifestFileName, `{"scripts":["react","react-dom"],"styles":[]}`)
	st := newWriteCountingStore()

	text := ResolveManifest(context.Background(), st, b)
	if len(st.writes) != 0 {
		t.Fatalf("expected no writes when libraries already present, got %d", len(st.writes))
	}
	if text != `{"scripts":["react","react-dom"],"styles":[]}` {
		t.Errorf("manifest should be returned unchanged, got %q", text)
	}

	// A second resolve is also a no-op.
	ResolveManifest(context.Background(), st, b)
	if len(st.writes) != 0 {
		t.Errorf("expected repeated resolve to stay write-free, got %d writes", len(st.writes))
	}
}

func TestResolveManifestNoComponentFiles(t *testing.T) {
	b := NewBundle("bundle-1")
	b.Set("script.js", "console.log(1)")
	b.Set(ManifestFileName, `{"scripts":[],"styles":[]}`)
	st := newWriteCountingStore()

	text := ResolveManifest(context.Background(), st, b)
	if text != `{"scripts":[],"styles":[]}` {
		t.Errorf("expected manifest unchanged without component files, got %q", text)
	}
	if len(st.writes) != 0 {
		t.Errorf("expected no writes, got %d", len(st.writes))
	}
}

func TestResolveManifestAbsent(t *testing.T) {
	b := NewBundle("bundle-1")
	b.Set("script.tsx", "")

	if text := ResolveManifest(context.Background(), newWriteCountingStore(), b); text != "" {
		t.Errorf("expected empty result without a manifest file, got %q", text)
	}
}

func TestManifestEncodeKeyOrder(t *testing.T) {
	show := true
	m := Manifest{
		Scripts:     []string{"react"},
		Styles:      []string{},
		Layout:      "grid",
		ShowConsole: &show,
		Template:    true,
		ScriptType:  "module",
	}
	text, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// Canonical key order: scripts, styles, layout, showConsole, template, scriptType.
	order := []string{`"scripts"`, `"styles"`, `"layout"`, `"showConsole"`, `"template"`, `"scriptType"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		if idx < 0 {
			t.Fatalf("key %s missing from %q", key, text)
		}
		if idx < last {
			t.Errorf("key %s out of order in %q", key, text)
		}
		last = idx
	}

	if !json.Valid([]byte(text)) {
		t.Errorf("encoded manifest is not valid JSON: %q", text)
	}
}

func TestRequiresScriptLowering(t *testing.T) {
	if (Manifest{Scripts: []string{"lodash"}}).RequiresScriptLowering() {
		t.Error("lodash alone should not require lowering")
	}
	if !(Manifest{Scripts: []string{"react"}}).RequiresScriptLowering() {
		t.Error("react should require lowering")
	}
}
