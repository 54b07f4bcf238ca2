package jibit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodeAuthRequired is the error code the provider returns when the bearer
// token is no longer accepted.
const CodeAuthRequired = "security.auth_required"

// APIError is one entry of the provider's "errors" array.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the decoded body of a business call together with the HTTP
// status. All three fields are always populated: Data is never nil and
// Errors is empty rather than nil when the provider reported none.
type Envelope struct {
	Data       map[string]any
	HTTPStatus int
	Errors     []APIError
}

// decodeEnvelope builds an Envelope from a raw response body. An empty body
// decodes to an empty object.
func decodeEnvelope(raw []byte, status int) (*Envelope, error) {
	env := &Envelope{
		Data:       map[string]any{},
		HTTPStatus: status,
		Errors:     []APIError{},
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}

	if err := json.Unmarshal(raw, &env.Data); err != nil {
		return nil, fmt.Errorf("decoding response body: %w", err)
	}

	if _, ok := env.Data["errors"]; !ok {
		return env, nil
	}

	var parsed struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding errors array: %w", err)
	}

	if parsed.Errors != nil {
		env.Errors = parsed.Errors
	}

	return env, nil
}

// authRequired reports whether the first reported error is the
// expired-credential signal.
func (e *Envelope) authRequired() bool {
	return len(e.Errors) > 0 && e.Errors[0].Code == CodeAuthRequired
}
