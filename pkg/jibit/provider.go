package jibit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/kyc-jibit/pkg/cache"
)

// DefaultEndpoint is the production base URL of the identity API.
const DefaultEndpoint = "https://napi.jibit.ir/ide"

// providerName identifies this provider in logs and CLI output.
const providerName = "jibit"

// Options configures a Provider. An empty Endpoint selects DefaultEndpoint.
type Options struct {
	Endpoint  string
	APIKey    string
	SecretKey string
}

// Provider creates requests that share one token manager, transport and
// cache store.
type Provider struct {
	endpoint string
	doer     HTTPDoer
	store    cache.Store
	tokens   *TokenManager
	logger   *slog.Logger

	mu     sync.Mutex
	params Params
}

// NewProvider builds a provider. httpClient and store are required; there is
// no implicit default transport or cache.
func NewProvider(opts Options, httpClient HTTPDoer, store cache.Store, logger *slog.Logger) (*Provider, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("%w: http client is nil", ErrMissingDependency)
	}

	if store == nil {
		return nil, fmt.Errorf("%w: cache store is nil", ErrMissingDependency)
	}

	if logger == nil {
		logger = slog.Default()
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	logger = logger.With(slog.String("provider", providerName))

	p := &Provider{
		endpoint: endpoint,
		doer:     httpClient,
		store:    store,
		logger:   logger,
		tokens:   NewTokenManager(endpoint, opts.APIKey, opts.SecretKey, httpClient, store, logger),
	}

	p.params.Set(ParamAPIKey, opts.APIKey)
	p.params.Set(ParamSecretKey, opts.SecretKey)

	return p, nil
}

// Name returns "jibit".
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) Endpoint() string {
	return p.endpoint
}

func (p *Provider) APIKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.params.Get(ParamAPIKey)
}

func (p *Provider) SecretKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.params.Get(ParamSecretKey)
}

// SetAPIKey replaces the API key used for token generation.
func (p *Provider) SetAPIKey(v string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.params.Set(ParamAPIKey, v)
	p.tokens.SetKeys(v, p.params.Get(ParamSecretKey))
}

// SetSecretKey replaces the secret key used for token generation.
func (p *Provider) SetSecretKey(v string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.params.Set(ParamSecretKey, v)
	p.tokens.SetKeys(p.params.Get(ParamAPIKey), v)
}

// Tokens returns the provider's token manager.
func (p *Provider) Tokens() *TokenManager {
	return p.tokens
}

// Store returns the cache store the tokens live in.
func (p *Provider) Store() cache.Store {
	return p.store
}

// MatchNationalCodeWithMobileNumber prepares a mobile number lookup.
func (p *Provider) MatchNationalCodeWithMobileNumber(in MobileMatch) *MobileMatchRequest {
	return &MobileMatchRequest{Request: p.newRequest(mobileMatchMessage{}, in.params())}
}

// MatchCardNumberWithNationalCode prepares a card number lookup.
func (p *Provider) MatchCardNumberWithNationalCode(in CardMatch) *CardMatchRequest {
	return &CardMatchRequest{Request: p.newRequest(cardMatchMessage{}, in.params())}
}

// NewRequest prepares a request for a custom message variant. Provider
// parameters are copied first, then overrides are applied.
func (p *Provider) NewRequest(msg Message, overrides map[string]string) *Request {
	return p.newRequest(msg, overrides)
}

func (p *Provider) newRequest(msg Message, overrides map[string]string) *Request {
	p.mu.Lock()
	params := p.params.Clone()
	p.mu.Unlock()

	cur := p.tokens.Current()
	params.Set(ParamAccessToken, cur.AccessToken)
	params.Set(ParamRefreshToken, cur.RefreshToken)

	for k, v := range overrides {
		if v != "" {
			params.Set(k, v)
		}
	}

	return newRequest(msg, p.endpoint, params, p.doer, p.tokens, p.logger)
}

// TokenSource adapts the token manager to oauth2.TokenSource, so the
// provider's credential can sign requests built with golang.org/x/oauth2.
// Each Token call goes through the cache; the returned token carries no
// expiry because the cache owns it.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, tokens: p.tokens}
}

type tokenSource struct {
	ctx    context.Context //nolint:containedctx // oauth2.TokenSource has no ctx parameter
	tokens *TokenManager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	cred, err := s.tokens.Acquire(s.ctx, false)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken:  strings.TrimPrefix(cred.AccessToken, bearerPrefix),
		TokenType:    "Bearer",
		RefreshToken: cred.RefreshToken,
	}, nil
}
