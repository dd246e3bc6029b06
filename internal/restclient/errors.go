package restclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error envelope accepted from the collaborator. Either key may carry the
// human-readable message.
//
//	{"message": "Name already exists"}
//	{"error": "authentication required"}
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorEnvelope) text() string {
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	return strings.TrimSpace(e.Error)
}

// ErrEmptyBody means a successful answer carried no record where one was
// required.
var ErrEmptyBody = errors.New("empty response body")

// APIError is a non-2xx answer from the collaborator.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("restclient: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("restclient: %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// TransportError means the collaborator could not be reached or the exchange
// broke before a status line was read.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("restclient: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage reduces err to a single human-readable string. The
// collaborator's own message wins when present; not-found answers, transport
// failures and anything else fall back to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Status == http.StatusNotFound || apiErr.Message == "" {
		return fallback
	}
	return apiErr.Message
}
