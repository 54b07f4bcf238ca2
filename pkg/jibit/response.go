package jibit

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Response is the outcome of one dispatched request.
type Response interface {
	// Request returns the request that produced this response.
	Request() *Request
	// IsSuccessful reports HTTP 200 with no provider errors.
	IsSuccessful() bool
	// Code returns the HTTP status, forced to 401 when the provider kept
	// rejecting the credential after the retry.
	Code() int
	// Errors returns the provider errors in order. Never nil.
	Errors() []APIError
	// Data returns a copy of the decoded body.
	Data() map[string]any
}

// BaseResponse implements Response over an Envelope. Variants embed it and
// add typed accessors.
type BaseResponse struct {
	req *Request
	env Envelope
}

// NewBaseResponse copies env so later changes to it are not observed.
func NewBaseResponse(req *Request, env *Envelope) BaseResponse {
	return BaseResponse{
		req: req,
		env: Envelope{
			Data:       maps.Clone(env.Data),
			HTTPStatus: env.HTTPStatus,
			Errors:     slices.Clone(env.Errors),
		},
	}
}

func (r *BaseResponse) Request() *Request {
	return r.req
}

func (r *BaseResponse) IsSuccessful() bool {
	return r.env.HTTPStatus == http.StatusOK && len(r.env.Errors) == 0
}

func (r *BaseResponse) Code() int {
	return r.env.HTTPStatus
}

func (r *BaseResponse) Errors() []APIError {
	if r.env.Errors == nil {
		return []APIError{}
	}

	return slices.Clone(r.env.Errors)
}

func (r *BaseResponse) Data() map[string]any {
	if r.env.Data == nil {
		return map[string]any{}
	}

	return maps.Clone(r.env.Data)
}

// field returns a raw top-level body field.
func (r *BaseResponse) field(name string) (any, bool) {
	v, ok := r.env.Data[name]
	return v, ok
}

// MatchResponse is returned by both matching operations.
type MatchResponse struct {
	BaseResponse

	once    sync.Once
	matched bool
}

// Matched reports the provider's "matched" flag. Missing or unparseable
// values count as not matched.
func (r *MatchResponse) Matched() bool {
	r.once.Do(func() {
		v, _ := r.field("matched")
		r.matched = truthy(v)
	})

	return r.matched
}

// truthy interprets a JSON value as a boolean the way the provider's
// clients historically did: true, 1, "true", "1", "yes" and "on".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}

		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}

	return false
}
