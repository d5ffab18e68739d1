package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError is returned when no response was received: connection
// failures, timeouts, and cancelled contexts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is returned for any non-2xx response.
type ServiceError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: service returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.Status, body)
}

// NotFoundError is the ServiceError for a 404, e.g. resolving an alert id the
// service does not know. errors.As also matches it as a *ServiceError.
type NotFoundError struct {
	*ServiceError
}

func (e *NotFoundError) Error() string {
	return e.ServiceError.Error()
}

func (e *NotFoundError) Unwrap() error { return e.ServiceError }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
