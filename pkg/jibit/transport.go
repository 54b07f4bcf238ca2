package jibit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPDoer sends HTTP requests. *http.Client satisfies it; timeouts and
// proxies are the caller's concern.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Payload holds the outbound fields of one operation.
type Payload map[string]string

// roundTrip sends one JSON request and returns the status and the full body.
// A non-empty bearer adds the Authorization header. For GET requests the
// payload is also carried in the query string.
func roundTrip(ctx context.Context, doer HTTPDoer, method, uri, bearer string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request body: %w", err)
	}

	if method == http.MethodGet {
		if p, ok := payload.(Payload); ok && len(p) > 0 {
			uri = withQuery(uri, p)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if bearer != "" {
		req.Header.Set("Authorization", bearerPrefix+strings.TrimPrefix(bearer, bearerPrefix))
	}

	resp, err := doer.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// withQuery appends p to uri as URL-encoded query parameters.
func withQuery(uri string, p Payload) string {
	q := url.Values{}
	for k, v := range p {
		q.Set(k, v)
	}

	sep := "?"
	if u, err := url.Parse(uri); err == nil && u.RawQuery != "" {
		sep = "&"
	}

	return uri + sep + q.Encode()
}

func isSuccessStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
