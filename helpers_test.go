package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kyc-jibit/internal/config"
)

// stubProvider is an httptest stand-in for the identity API.
type stubProvider struct {
	srv *httptest.Server

	mu           sync.Mutex
	paths        []string
	accessToken  string
	matchingBody string
}

func newStubProvider(t *testing.T) *stubProvider {
	t.Helper()

	s := &stubProvider{
		accessToken:  "STUB_ACCESS",
		matchingBody: `{"matched": true}`,
	}

	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *stubProvider) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	access, matching := s.accessToken, s.matchingBody
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/tokens/generate", "/v1/tokens/refresh":
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  access,
			"refreshToken": "STUB_REFRESH",
		})
	case "/v1/services/matching":
		fmt.Fprint(w, matching)
	default:
		http.NotFound(w, r)
	}
}

func (s *stubProvider) setAccessToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = tok
}

func (s *stubProvider) setMatching(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matchingBody = body
}

func (s *stubProvider) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.paths...)
}

// testEnv isolates a CLI run: no inherited KYC_JIBIT_* variables and a
// config file pointing at the stub with a file cache under t.TempDir().
type testEnv struct {
	configPath string
	cachePath  string
}

func newTestEnv(t *testing.T, endpoint string) *testEnv {
	t.Helper()

	for _, name := range []string{
		config.EnvConfig, config.EnvAPIKey, config.EnvSecretKey,
		config.EnvEndpoint, config.EnvCacheBackend,
	} {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	env := &testEnv{
		configPath: filepath.Join(dir, "config.toml"),
		cachePath:  filepath.Join(dir, "tokens.json"),
	}

	content := fmt.Sprintf(`endpoint = %q
api_key = "test-key"
secret_key = "test-secret"
cache_backend = "file"
cache_path = %q
timeout = "5s"
`, endpoint, env.cachePath)

	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o600))

	return env
}

// runCLI executes the root command with args and returns stdout, stderr
// and the error RunE produced.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}
