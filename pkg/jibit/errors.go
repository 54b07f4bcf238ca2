package jibit

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to check.
var (
	// ErrInvalidResponse matches every *ProviderError: transport failures,
	// undecodable bodies and failed token acquisition.
	ErrInvalidResponse = errors.New("jibit: invalid response from provider")

	// ErrRequestSent is returned when a request is modified or dispatched
	// after it has produced a response.
	ErrRequestSent = errors.New("jibit: request cannot be modified after it has been sent")

	// ErrResponseNotReady is returned when the response is read before send.
	ErrResponseNotReady = errors.New("jibit: send must be called before accessing the response")

	// ErrInvalidRequest is returned when a required parameter is missing.
	ErrInvalidRequest = errors.New("jibit: invalid request")

	// ErrMissingDependency is returned by NewProvider when the transport or
	// the cache store is nil.
	ErrMissingDependency = errors.New("jibit: missing dependency")

	// ErrMissingAccessToken is the cause recorded when a token endpoint
	// answers without an accessToken field.
	ErrMissingAccessToken = errors.New("token endpoint returned no accessToken")
)

// ProviderError reports a failed exchange with the provider. Op names the
// step that failed ("generate token", "refresh token", "send", ...).
// StatusCode is the HTTP status when one was received, otherwise 0.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jibit: error communicating with provider: %s (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("jibit: error communicating with provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrInvalidResponse.
func (e *ProviderError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// asProviderError wraps err in a ProviderError unless it already carries one,
// so a single layer of wrapping reaches the caller.
func asProviderError(op string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	return &ProviderError{Op: op, Err: err}
}
