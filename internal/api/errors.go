package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials indicates the backend rejected a login attempt.
	// It deliberately carries no detail about which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the backend rejected the access token on an
	// authenticated call. The session layer resolves it with a one-shot
	// refresh before giving up.
	ErrTokenExpired = errors.New("access token rejected")

	// ErrNetwork indicates a transport-level failure before any HTTP status
	// was received.
	ErrNetwork = errors.New("network error")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationErrors maps a form field name to the backend's rejection messages
// for that field. Returned by Signup on a 400-class response.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, f := range fields {
		fmt.Fprintf(&b, " %s: %s;", f, strings.Join(v[f], ", "))
	}
	return strings.TrimSuffix(b.String(), ";")
}

// BackendError is any non-2xx response that does not map to a more specific
// error. Payload carries the backend's raw JSON error body for diagnostics.
type BackendError struct {
	Status  int
	Payload string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Payload)
}

func errorCode(err error) string {
	var be *BackendError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNetwork):
		return "NETWORK"
	case errors.As(err, &be):
		return fmt.Sprintf("HTTP_%d", be.Status)
	default:
		return "UNKNOWN"
	}
}
