// Package gallery resolves starter-template catalogs for new playground
// sessions: remote gallery sources (known aliases or arbitrary URLs) plus
// template-flagged bundles already present in the content store.
package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/security"
)

// NoTemplateLabel is the sentinel entry always offered last, letting the
// user start from a blank playground.
const NoTemplateLabel = "(no template)"

// galleryAliases maps well-known gallery names to their catalog URLs.
// Anything not in this table is treated as a URL directly.
var galleryAliases = map[string]string{
	"web:languages":  "https://gallery.livepreview.dev/web/languages.json",
	"web:frameworks": "https://gallery.livepreview.dev/web/frameworks.json",
}

// Template is one selectable playground starter.
type Template struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Gist        string `json:"gist,omitempty"`

	// BundleID is set for templates discovered in the content store
	// rather than a remote gallery.
	BundleID string `json:"-"`
}

// catalog is the remote gallery document format.
type catalog struct {
	Templates []Template `json:"templates"`
}

// GalleryError wraps a single-source fetch failure. One failing source is
// logged and skipped; it never aborts the overall load.
type GalleryError struct {
	Source string
	Err    error
}

func (e *GalleryError) Error() string {
	return fmt.Sprintf("gallery %q: %v", e.Source, e.Err)
}

func (e *GalleryError) Unwrap() error {
	return e.Err
}

// Resolver fetches and ranks templates. It is used only at session-creation
// time, with an optional pre-warmed cache.
type Resolver struct {
	sources []string
	client  *http.Client
	cache   *templateCache
	debug   bool

	// signedIn tracks the last observed auth state so the pre-cache warm
	// fires once per false-to-true transition, not on every read.
	authMu   sync.Mutex
	signedIn bool
}

// NewResolver creates a resolver for the given gallery sources.
func NewResolver(sources []string, debug bool) *Resolver {
	return &Resolver{
		sources: sources,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   newTemplateCache(5 * time.Minute),
		debug:   debug,
	}
}

// Close releases cache resources.
func (r *Resolver) Close() {
	r.cache.Stop()
}

// resolveSource turns a known alias into its catalog URL, passing arbitrary
// URLs through.
func resolveSource(source string) string {
	if url, ok := galleryAliases[source]; ok {
		return url
	}
	return source
}

// Load fetches every configured source independently and returns the merged
// template list sorted by label (case-sensitive lexical order). A failed
// source is logged and omitted.
func (r *Resolver) Load(ctx context.Context) []Template {
	var (
		mu        sync.Mutex
		templates []Template
		wg        sync.WaitGroup
	)

	for _, source := range r.sources {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			ts, err := r.fetch(ctx, source)
			if err != nil {
				log.Printf("[Gallery] Skipping source %q: %v", source, err)
				return
			}
			mu.Lock()
			templates = append(templates, ts...)
			mu.Unlock()
		}(source)
	}
	wg.Wait()

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Label < templates[j].Label
	})
	return templates
}

// fetch retrieves one source's catalog, with a short retry for transient
// failures and a TTL cache in front.
func (r *Resolver) fetch(ctx context.Context, source string) ([]Template, error) {
	if ts, ok := r.cache.Get(source); ok {
		if r.debug {
			log.Printf("[Gallery] Cache hit for %q", source)
		}
		return ts, nil
	}

	url := resolveSource(source)
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ts, err := r.fetchOnce(ctx, url)
		if err == nil {
			r.cache.Set(source, ts)
			return ts, nil
		}
		lastErr = err
		if attempt < 2 {
			select {
			case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, &GalleryError{Source: source, Err: lastErr}
}

func (r *Resolver) fetchOnce(ctx context.Context, url string) ([]Template, error) {
	if err := security.ValidateExternalURL(url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var c catalog
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("malformed catalog: %w", err)
	}
	return c.Templates, nil
}

// BundleTemplates scans the given bundles for manifests marked as templates
// and offers them as same-session choices.
func BundleTemplates(ctx context.Context, st swing.Store, bundleIDs []string) []Template {
	var templates []Template
	for _, id := range bundleIDs {
		data, err := st.Read(ctx, id, swing.ManifestFileName)
		if err != nil {
			continue
		}
		m := swing.ParseManifest(string(data))
		if !m.Template {
			continue
		}
		templates = append(templates, Template{
			Label:    id,
			BundleID: id,
		})
	}
	return templates
}

// Choices merges gallery and bundle templates into the final ranked list:
// sorted by label, with the no-template sentinel always present and always
// last.
func (r *Resolver) Choices(ctx context.Context, st swing.Store, bundleIDs []string) []Template {
	all := r.Load(ctx)
	if st != nil {
		all = append(all, BundleTemplates(ctx, st, bundleIDs)...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Label < all[j].Label
	})
	return append(all, Template{Label: NoTemplateLabel})
}

// OnAuthStateChange is the explicit subscription point for host sign-in
// state. The catalog warm fires once per signed-out to signed-in edge.
func (r *Resolver) OnAuthStateChange(signedIn bool) {
	r.authMu.Lock()
	wasSignedIn := r.signedIn
	r.signedIn = signedIn
	r.authMu.Unlock()

	if signedIn && !wasSignedIn {
		if r.debug {
			log.Printf("[Gallery] Sign-in detected, warming template cache")
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			r.Load(ctx)
		}()
	}
}
