package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// APIError is returned by HTTP based generators for non-200 responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPCode returns the response status code.
func (e *APIError) HTTPCode() int {
	return e.StatusCode
}

var transientMarkers = []string{
	"429",
	"503",
	"RESOURCE_EXHAUSTED",
	"UNAVAILABLE",
	"overloaded",
	"Too Many Requests",
	"Service Unavailable",
}

// IsTransient reports whether err signals rate limiting or temporary
// unavailability (HTTP 429 or 503). Such calls are worth retrying on the
// same model.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return isTransientCode(gErr.Code)
	}

	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		if code := coded.HTTPCode(); code > 0 {
			return isTransientCode(code)
		}
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isTransientCode(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
