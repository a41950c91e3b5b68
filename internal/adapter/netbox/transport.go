package netbox

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is an HTTP failure from NetBox that carries no GraphQL payload,
// typically a proxy error page or an auth rejection.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("netbox returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("netbox returned HTTP %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

const maxErrorBody = 256

// statusTransport turns responses the GraphQL client cannot decode into
// StatusErrors. The GraphQL client decodes every body as JSON regardless of
// status, so without this an HTML 502 surfaces as a decoding error.
// Other 4xx responses pass through because they carry GraphQL errors.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
	default:
		return resp, nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// withStatusErrors returns a copy of hc whose transport reports HTTP failures
// as StatusErrors.
func withStatusErrors(hc *http.Client) *http.Client {
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = statusTransport{next: next}
	return &wrapped
}
