package serviceclient

import (
	"fmt"
	"net/http"
)

// ServiceError is a non-200 answer from the backend.
type ServiceError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ServiceError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("service error %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *ServiceError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
