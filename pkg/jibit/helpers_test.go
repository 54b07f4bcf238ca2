package jibit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kyc-jibit/pkg/cache"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordedCall captures one request seen by the fake provider.
type recordedCall struct {
	method string
	path   string
	query  map[string]string
	header http.Header
	body   map[string]string
}

// fakeJibit is an httptest-backed stand-in for the provider. Handlers can
// be swapped per test; every call is recorded.
type fakeJibit struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	calls    []recordedCall
	generate http.HandlerFunc
	refresh  http.HandlerFunc
	// matching receives the 1-based index of the business call.
	matching func(w http.ResponseWriter, r *http.Request, n int)
}

func newFakeJibit(t *testing.T) *fakeJibit {
	t.Helper()

	f := &fakeJibit{t: t}
	f.generate = jsonHandler(http.StatusOK, `{"accessToken":"NEW_ACCESS","refreshToken":"NEW_REFRESH"}`)
	f.refresh = jsonHandler(http.StatusOK, `{"accessToken":"REFRESHED_ACCESS","refreshToken":"REFRESHED_REFRESH"}`)
	f.matching = func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, `{"matched": true}`)
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeJibit) serve(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	body := map[string]string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		method: r.Method,
		path:   r.URL.Path,
		query:  query,
		header: r.Header.Clone(),
		body:   body,
	})
	n := 0
	for _, c := range f.calls {
		if c.path == matchingPath {
			n++
		}
	}
	generate, refresh, matching := f.generate, f.refresh, f.matching
	f.mu.Unlock()

	switch r.URL.Path {
	case generatePath:
		generate(w, r)
	case refreshPath:
		refresh(w, r)
	case matchingPath:
		matching(w, r, n)
	default:
		http.NotFound(w, r)
	}
}

// count returns how many calls hit path.
func (f *fakeJibit) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.path == path {
			n++
		}
	}

	return n
}

// callsTo returns the recorded calls to path in order.
func (f *fakeJibit) callsTo(path string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedCall
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}

	return out
}

// paths returns the sequence of paths called.
func (f *fakeJibit) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.path)
	}

	return out
}

func (f *fakeJibit) setMatching(h func(w http.ResponseWriter, r *http.Request, n int)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.matching = h
}

func (f *fakeJibit) setGenerate(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generate = h
}

func (f *fakeJibit) setRefresh(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refresh = h
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const authRequiredBody = `{"errors":[{"code":"security.auth_required","message":"auth required"}]}`

// seedTokens stores an unexpired token pair.
func seedTokens(t *testing.T, store cache.Store, access, refresh string) {
	t.Helper()

	ctx := context.Background()
	if access != "" {
		require.NoError(t, store.Set(ctx, AccessTokenKey, access, 24*time.Hour))
	}

	if refresh != "" {
		require.NoError(t, store.Set(ctx, RefreshTokenKey, refresh, 24*time.Hour))
	}
}

func newTestProvider(t *testing.T, f *fakeJibit, store cache.Store) *Provider {
	t.Helper()

	p, err := NewProvider(Options{
		Endpoint:  f.srv.URL,
		APIKey:    "xxxxxxxx",
		SecretKey: "secret",
	}, f.srv.Client(), store, testLogger(t))
	require.NoError(t, err)

	return p
}

// failingDoer is a transport that never reaches the network.
type failingDoer struct {
	calls atomic.Int32
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

// recordingStore wraps a store and records every batched write.
type recordingStore struct {
	cache.Store

	mu      sync.Mutex
	batches [][]cache.Entry
}

func (s *recordingStore) SetMany(ctx context.Context, entries []cache.Entry) error {
	s.mu.Lock()
	s.batches = append(s.batches, append([]cache.Entry(nil), entries...))
	s.mu.Unlock()

	return cache.SetAll(ctx, s.Store, entries)
}

// brokenStore fails every read.
type brokenStore struct {
	cache.Store
}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache backend unavailable")
}
