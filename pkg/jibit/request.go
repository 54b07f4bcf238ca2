package jibit

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// Message describes one provider operation. The dispatcher calls each
// method once per attempt.
type Message interface {
	// HTTPMethod returns the verb of the business call.
	HTTPMethod() string
	// URI returns the full URL of the business call under endpoint.
	URI(endpoint string) string
	// Data validates params and returns the outbound payload.
	Data(params *Params) (Payload, error)
	// BuildResponse wraps a final envelope in the variant's response type.
	BuildResponse(req *Request, env *Envelope) Response
}

// Request is a single authenticated operation. It can be sent once; after
// that its parameters are frozen and Response returns the result.
type Request struct {
	msg      Message
	endpoint string
	doer     HTTPDoer
	tokens   *TokenManager
	logger   *slog.Logger

	// sendMu serialises dispatch so a request never has two calls in flight.
	sendMu sync.Mutex

	mu       sync.Mutex
	params   Params
	response Response
}

func newRequest(msg Message, endpoint string, params Params, doer HTTPDoer, tokens *TokenManager, logger *slog.Logger) *Request {
	return &Request{
		msg:      msg,
		endpoint: endpoint,
		doer:     doer,
		tokens:   tokens,
		logger:   logger,
		params:   params,
	}
}

// Parameter returns the current value of a parameter.
func (r *Request) Parameter(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.params.Get(key)
}

// SetParameter sets a parameter. It fails with ErrRequestSent once the
// request has produced a response.
func (r *Request) SetParameter(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.response != nil {
		return ErrRequestSent
	}

	r.params.Set(key, value)

	return nil
}

// Data returns the validated payload for the current parameters.
func (r *Request) Data() (Payload, error) {
	r.mu.Lock()
	params := r.params.Clone()
	r.mu.Unlock()

	return r.msg.Data(&params)
}

// Response returns the response produced by Send or SendData.
func (r *Request) Response() (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.response == nil {
		return nil, ErrResponseNotReady
	}

	return r.response, nil
}

// Send validates the parameters and dispatches them.
func (r *Request) Send(ctx context.Context) (Response, error) {
	if r.sent() {
		return nil, ErrRequestSent
	}

	data, err := r.Data()
	if err != nil {
		return nil, err
	}

	return r.SendData(ctx, data)
}

// SendData dispatches data as one logical operation: acquire a token, make
// the business call, and if the provider reports security.auth_required,
// force a new token and retry once. A second rejection yields a response
// with status 401 rather than another attempt.
//
// Transport, decoding and token failures are returned as *ProviderError.
func (r *Request) SendData(ctx context.Context, data Payload) (Response, error) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	if r.sent() {
		return nil, ErrRequestSent
	}

	logger := r.logger.With(
		slog.String("dispatch_id", uuid.NewString()),
		slog.String("method", r.msg.HTTPMethod()),
	)

	env, err := r.dispatch(ctx, logger, data, 0)
	if err != nil {
		logger.Warn("dispatch failed", slog.String("error", err.Error()))
		return nil, err
	}

	resp := r.msg.BuildResponse(r, env)

	r.mu.Lock()
	r.response = resp
	r.mu.Unlock()

	logger.Debug("dispatch complete",
		slog.Int("status", env.HTTPStatus),
		slog.Int("errors", len(env.Errors)),
	)

	return resp, nil
}

// dispatch performs one attempt. attempt is 0 for the first call and 1 for
// the single retry after an auth failure.
func (r *Request) dispatch(ctx context.Context, logger *slog.Logger, data Payload, attempt int) (*Envelope, error) {
	cred, err := r.tokens.Acquire(ctx, false)
	if err != nil {
		return nil, asProviderError("acquire token", err)
	}

	r.mirror(cred)

	status, raw, err := roundTrip(ctx, r.doer, r.msg.HTTPMethod(), r.msg.URI(r.endpoint), cred.AccessToken, data)
	if err != nil {
		return nil, &ProviderError{Op: "send", StatusCode: status, Err: err}
	}

	env, err := decodeEnvelope(raw, status)
	if err != nil {
		return nil, &ProviderError{Op: "decode", StatusCode: status, Err: err}
	}

	logger.Debug("provider answered",
		slog.Int("attempt", attempt),
		slog.Int("status", status),
	)

	if !env.authRequired() {
		return env, nil
	}

	logger.Warn("provider rejected access token, forcing renewal", slog.Int("attempt", attempt))

	cred, err = r.tokens.Acquire(ctx, true)
	if err != nil {
		return nil, asProviderError("acquire token", err)
	}

	r.mirror(cred)

	if attempt == 0 {
		return r.dispatch(ctx, logger, data, attempt+1)
	}

	env.HTTPStatus = http.StatusUnauthorized

	return env, nil
}

// mirror copies the credential into the request parameters.
func (r *Request) mirror(cred Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.params.Set(ParamAccessToken, cred.AccessToken)
	r.params.Set(ParamRefreshToken, cred.RefreshToken)
}

func (r *Request) sent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.response != nil
}
