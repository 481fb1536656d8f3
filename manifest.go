package swing

import (
	"context"
	"encoding/json"
	"log"
)

// Required runtime libraries for component-templated script dialects. Order
// is significant: it is the injection order into the preview.
var componentRuntimeLibraries = []string{"react", "react-dom"}

// Manifest is the playground metadata file (playground.json). Scripts and
// styles hold unique entries; order is significant because it is the
// injection order into the preview document.
type Manifest struct {
	Scripts     []string `json:"scripts"`
	Styles      []string `json:"styles"`
	Layout      string   `json:"layout,omitempty"`
	ShowConsole *bool    `json:"showConsole,omitempty"`
	Template    bool     `json:"template,omitempty"`
	ScriptType  string   `json:"scriptType,omitempty"`
}

// DefaultManifest returns the manifest used when the file is absent,
// unparsable, or missing fields.
func DefaultManifest() Manifest {
	return Manifest{Scripts: []string{}, Styles: []string{}}
}

// ParseManifest parses manifest text. A parse failure falls back to the
// default manifest: a malformed manifest never blocks rendering.
func ParseManifest(text string) Manifest {
	m := DefaultManifest()
	if text == "" {
		return m
	}
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		log.Printf("[Manifest] Parse failed, using defaults: %v", err)
		return DefaultManifest()
	}
	if m.Scripts == nil {
		m.Scripts = []string{}
	}
	if m.Styles == nil {
		m.Styles = []string{}
	}
	return m
}

// Encode serializes the manifest with 2-space indentation and canonical key
// order, the format used whenever the engine rewrites the file.
func (m Manifest) Encode() (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RequiresScriptLowering reports whether component-template syntax lowering
// must be enabled when transpiling against this manifest.
func (m Manifest) RequiresScriptLowering() bool {
	for _, s := range m.Scripts {
		if s == componentRuntimeLibraries[0] {
			return true
		}
	}
	return false
}

// ResolveManifest returns the manifest content for a bundle, applying the
// auto-library-injection rule: if any bundle file uses a component-templated
// extension and the manifest's script list is missing a required runtime
// library, the manifest is rewritten with the missing entries appended and
// persisted back to the store. Runs on every session open and whenever
// script file identity changes; idempotent. Callers serialize invocations
// per bundle.
//
// If no manifest file exists the empty string is returned and nothing is
// injected or persisted.
func ResolveManifest(ctx context.Context, store Store, b *Bundle) string {
	text, ok := b.Get(ManifestFileName)
	if !ok {
		return ""
	}

	if !HasComponentTemplatedFile(b) {
		return text
	}

	m := ParseManifest(text)
	missing := missingLibraries(m.Scripts, componentRuntimeLibraries)
	if len(missing) == 0 {
		return text
	}

	m.Scripts = append(m.Scripts, missing...)
	rewritten, err := m.Encode()
	if err != nil {
		log.Printf("[Manifest] Encode failed, keeping original: %v", err)
		return text
	}

	b.Set(ManifestFileName, rewritten)
	if store != nil {
		if err := store.Write(ctx, b.ID(), ManifestFileName, []byte(rewritten)); err != nil {
			log.Printf("[Manifest] Write-back failed for bundle %q: %v", b.ID(), err)
		}
	}
	return rewritten
}

// missingLibraries returns the entries of want absent from have, in want
// order, deduplicated.
func missingLibraries(have, want []string) []string {
	present := make(map[string]bool, len(have))
	for _, s := range have {
		present[s] = true
	}
	var missing []string
	for _, w := range want {
		if !present[w] {
			present[w] = true
			missing = append(missing, w)
		}
	}
	return missing
}
