package gallery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/security"
	"github.com/livepreview/swing/internal/store"
)

func init() {
	// httptest servers bind loopback addresses.
	security.TestBypassValidation = true
}

func catalogServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func labels(ts []Template) []string {
	out := make([]string, len(ts))
	for i, tmpl := range ts {
		out[i] = tmpl.Label
	}
	return out
}

func TestLoadMergesAndSortsSources(t *testing.T) {
	a := catalogServer(t, `{"templates":[{"label":"Vanilla JS","gist":"g1"},{"label":"Counter","gist":"g2"}]}`)
	b := catalogServer(t, `{"templates":[{"label":"Markdown Notes","gist":"g3"}]}`)

	r := NewResolver([]string{a.URL, b.URL}, false)
	defer r.Close()

	got := r.Load(context.Background())
	assert.Equal(t, []string{"Counter", "Markdown Notes", "Vanilla JS"}, labels(got))
}

func TestLoadSkipsFailingSource(t *testing.T) {
	good := catalogServer(t, `{"templates":[{"label":"Counter","gist":"g1"}]}`)
	bad := catalogServer(t, `not json`)

	r := NewResolver([]string{bad.URL, good.URL}, false)
	defer r.Close()

	got := r.Load(context.Background())
	require.Len(t, got, 1, "a failing source is skipped, not fatal")
	assert.Equal(t, "Counter", got[0].Label)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"templates":[{"label":"Counter"}]}`))
	}))
	defer srv.Close()

	r := NewResolver([]string{srv.URL}, false)
	defer r.Close()

	got := r.Load(context.Background())
	require.Len(t, got, 1, "third attempt should succeed")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"templates":[{"label":"Counter"}]}`))
	}))
	defer srv.Close()

	r := NewResolver([]string{srv.URL}, false)
	defer r.Close()

	r.Load(context.Background())
	r.Load(context.Background())
	assert.Equal(t, int32(1), calls.Load(), "second load should hit the cache")
}

func TestResolveSourceAliases(t *testing.T) {
	assert.Equal(t, "https://gallery.livepreview.dev/web/languages.json", resolveSource("web:languages"))
	assert.Equal(t, "https://example.com/list.json", resolveSource("https://example.com/list.json"))
}

func TestBundleTemplates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Write(ctx, "starter", swing.ManifestFileName, []byte(`{"scripts":[],"styles":[],"template":true}`)))
	require.NoError(t, st.Write(ctx, "scratch", swing.ManifestFileName, []byte(`{"scripts":[],"styles":[]}`)))
	require.NoError(t, st.Write(ctx, "empty", "index.html", []byte("<p></p>")))

	got := BundleTemplates(ctx, st, []string{"starter", "scratch", "empty", "missing"})
	require.Len(t, got, 1, "only template-flagged bundles qualify")
	assert.Equal(t, "starter", got[0].BundleID)
}

func TestChoicesSentinelAlwaysLast(t *testing.T) {
	ctx := context.Background()
	srv := catalogServer(t, `{"templates":[{"label":"Zebra Demo"}]}`)
	st := store.NewMemoryStore()
	require.NoError(t, st.Write(ctx, "aaa-starter", swing.ManifestFileName, []byte(`{"scripts":[],"styles":[],"template":true}`)))

	r := NewResolver([]string{srv.URL}, false)
	defer r.Close()

	got := r.Choices(ctx, st, []string{"aaa-starter"})
	// Store templates sort in with gallery ones; the sentinel stays last
	// regardless of its own lexical position.
	assert.Equal(t, []string{"Zebra Demo", "aaa-starter", NoTemplateLabel}, labels(got))
}

func TestChoicesEmptyStillOffersSentinel(t *testing.T) {
	r := NewResolver(nil, false)
	defer r.Close()

	got := r.Choices(context.Background(), nil, nil)
	assert.Equal(t, []string{NoTemplateLabel}, labels(got))
}

func TestOnAuthStateChangeWarmsOncePerEdge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"templates":[]}`))
	}))
	defer srv.Close()

	r := NewResolver([]string{srv.URL}, false)
	defer r.Close()

	r.OnAuthStateChange(true)
	r.OnAuthStateChange(true) // repeated signed-in state, no second warm
	r.OnAuthStateChange(false)

	require.Eventually(t, func() bool { return calls.Load() > 0 },
		2*time.Second, 10*time.Millisecond, "warm fetch never fired")

	// Give a would-be duplicate warm time to land.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "warm fires once per signed-in edge")
}
