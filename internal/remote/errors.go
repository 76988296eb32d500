package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an unsuccessful envelope or non-2xx response from the item API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the item API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnreachable reports whether err is a transport failure rather than an
// answer from the item API.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}
