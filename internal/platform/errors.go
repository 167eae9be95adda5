package platform

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoSession     = errors.New("platform session required")
	ErrLoginRejected = errors.New("platform rejected login")
)

// APIError is a failed platform call: a non-2xx status or a 2xx body that
// reported {"success": false}.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string

	// Rejected is set when the platform answered 2xx but refused the
	// operation.
	Rejected bool
}

func (e *APIError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("%s %s: rejected: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the platform,
// meaning the operator's platform token is no longer accepted.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
