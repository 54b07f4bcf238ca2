package jibit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/kyc-jibit/pkg/cache"
)

// Cache keys and lifetimes of the token pair. The TTLs keep a 60 second
// margin below the provider's own 24h/48h expiry. Deployments sharing a
// cache backend rely on these exact keys and TTLs.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	AccessTokenTTL  = 24*time.Hour - time.Minute
	RefreshTokenTTL = 48*time.Hour - time.Minute
)

const (
	generatePath = "/v1/tokens/generate"
	refreshPath  = "/v1/tokens/refresh"
	bearerPrefix = "Bearer "
)

// Credential is the access/refresh token pair.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenManager keeps a believed-valid access token available with as few
// network calls as possible. Tokens live in the cache store; the manager
// keeps a copy of the last credential it handed out.
//
// Refresh and generate calls are collapsed per manager: concurrent callers
// needing a new token share one round trip. Separate processes sharing a
// store can still race, and the last writer wins.
type TokenManager struct {
	endpoint string
	doer     HTTPDoer
	store    cache.Store
	logger   *slog.Logger
	flight   singleflight.Group

	mu        sync.RWMutex
	apiKey    string
	secretKey string
	current   Credential
}

// NewTokenManager creates a manager for the given endpoint and key pair.
func NewTokenManager(endpoint, apiKey, secretKey string, doer HTTPDoer, store cache.Store, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenManager{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		doer:      doer,
		store:     store,
		logger:    logger,
		apiKey:    apiKey,
		secretKey: secretKey,
	}
}

// SetKeys replaces the API key pair used by Generate.
func (m *TokenManager) SetKeys(apiKey, secretKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiKey = apiKey
	m.secretKey = secretKey
}

// Current returns the last credential acquired or read from the cache.
func (m *TokenManager) Current() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Acquire returns a credential whose access token is believed valid.
// Without force a cached access token is reused. Otherwise the cached
// refresh token is exchanged, and if that fails (or there is none) a new
// pair is generated from the API key pair. Every failure is a *ProviderError.
func (m *TokenManager) Acquire(ctx context.Context, force bool) (Credential, error) {
	if !force {
		cred, ok, err := m.cached(ctx)
		if err != nil {
			return Credential{}, err
		}

		if ok {
			m.logger.Debug("using cached access token")
			m.setCurrent(cred)

			return cred, nil
		}
	}

	key := "renew"
	if force {
		key = "force"
	}

	// The shared renewal outlives any single caller; each caller stops
	// waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)

	ch := m.flight.DoChan(key, func() (any, error) {
		if !force {
			// Another caller may have stored a token while we waited.
			if cred, ok, cerr := m.cached(flightCtx); cerr == nil && ok {
				return cred, nil
			}
		}

		return m.renew(flightCtx)
	})

	var res singleflight.Result

	select {
	case res = <-ch:
	case <-ctx.Done():
		return Credential{}, &ProviderError{Op: "acquire token", Err: ctx.Err()}
	}

	if res.Err != nil {
		return Credential{}, res.Err
	}

	cred := res.Val.(Credential) //nolint:forcetypeassert // flight only returns Credential

	if res.Shared {
		m.logger.Debug("joined in-flight token acquisition", slog.Bool("force", force))
	}

	m.setCurrent(cred)

	return cred, nil
}

// Clear removes both tokens from the cache and forgets the current credential.
func (m *TokenManager) Clear(ctx context.Context) error {
	for _, k := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := m.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("jibit: clearing %s: %w", k, err)
		}
	}

	m.setCurrent(Credential{})
	m.logger.Info("cleared cached tokens")

	return nil
}

// cached returns the cached pair when a non-expired access token exists.
func (m *TokenManager) cached(ctx context.Context) (Credential, bool, error) {
	access, ok, err := m.store.Get(ctx, AccessTokenKey)
	if err != nil {
		return Credential{}, false, &ProviderError{Op: "read cached access token", Err: err}
	}

	if !ok || access == "" {
		return Credential{}, false, nil
	}

	refresh, _, err := m.store.Get(ctx, RefreshTokenKey)
	if err != nil {
		return Credential{}, false, &ProviderError{Op: "read cached refresh token", Err: err}
	}

	return Credential{AccessToken: access, RefreshToken: refresh}, true, nil
}

// renew refreshes with the cached refresh token when there is one and falls
// back to generating a new pair.
func (m *TokenManager) renew(ctx context.Context) (Credential, error) {
	refresh, ok, err := m.store.Get(ctx, RefreshTokenKey)
	if err != nil {
		return Credential{}, &ProviderError{Op: "read cached refresh token", Err: err}
	}

	if ok && refresh != "" {
		access, _, err := m.store.Get(ctx, AccessTokenKey)
		if err != nil {
			return Credential{}, &ProviderError{Op: "read cached access token", Err: err}
		}

		cred, err := m.refresh(ctx, access, refresh)
		if err == nil {
			return cred, nil
		}

		m.logger.Warn("token refresh failed, generating new token",
			slog.String("error", err.Error()),
		)
	}

	return m.generate(ctx)
}

func (m *TokenManager) refresh(ctx context.Context, access, refresh string) (Credential, error) {
	m.logger.Debug("refreshing access token")

	body := tokenPair{
		AccessToken:  strings.TrimPrefix(access, bearerPrefix),
		RefreshToken: refresh,
	}

	pair, err := m.call(ctx, "refresh token", refreshPath, body)
	if err != nil {
		return Credential{}, err
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = refresh
	}

	return m.storeTokens(ctx, pair)
}

func (m *TokenManager) generate(ctx context.Context) (Credential, error) {
	m.logger.Debug("generating access token")

	m.mu.RLock()
	body := map[string]string{
		ParamAPIKey:    m.apiKey,
		ParamSecretKey: m.secretKey,
	}
	m.mu.RUnlock()

	pair, err := m.call(ctx, "generate token", generatePath, body)
	if err != nil {
		return Credential{}, err
	}

	// A refresh token left from an earlier pair must not outlive it.
	if pair.RefreshToken == "" {
		if err := m.store.Delete(ctx, RefreshTokenKey); err != nil {
			return Credential{}, &ProviderError{Op: "drop stale refresh token", Err: err}
		}
	}

	return m.storeTokens(ctx, pair)
}

// call posts body to a token endpoint and decodes the returned pair.
func (m *TokenManager) call(ctx context.Context, op, path string, body any) (tokenPair, error) {
	status, raw, err := roundTrip(ctx, m.doer, http.MethodPost, m.endpoint+path, "", body)
	if err != nil {
		return tokenPair{}, &ProviderError{Op: op, StatusCode: status, Err: err}
	}

	if !isSuccessStatus(status) {
		return tokenPair{}, &ProviderError{Op: op, StatusCode: status, Err: fmt.Errorf("unexpected status %d", status)}
	}

	var pair tokenPair
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &pair); err != nil {
			return tokenPair{}, &ProviderError{Op: op, StatusCode: status, Err: fmt.Errorf("decoding token response: %w", err)}
		}
	}

	if pair.AccessToken == "" {
		return tokenPair{}, &ProviderError{Op: op, StatusCode: status, Err: ErrMissingAccessToken}
	}

	return pair, nil
}

// storeTokens persists the pair before it is handed out, so no token signs
// a request before it has been stored.
func (m *TokenManager) storeTokens(ctx context.Context, pair tokenPair) (Credential, error) {
	entries := []cache.Entry{{Key: AccessTokenKey, Value: pair.AccessToken, TTL: AccessTokenTTL}}
	if pair.RefreshToken != "" {
		entries = append(entries, cache.Entry{Key: RefreshTokenKey, Value: pair.RefreshToken, TTL: RefreshTokenTTL})
	}

	if err := cache.SetAll(ctx, m.store, entries); err != nil {
		return Credential{}, &ProviderError{Op: "store tokens", Err: err}
	}

	m.logger.Info("stored new token pair",
		slog.Duration("access_ttl", AccessTokenTTL),
		slog.Duration("refresh_ttl", RefreshTokenTTL),
	)

	return Credential{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (m *TokenManager) setCurrent(cred Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = cred
}
