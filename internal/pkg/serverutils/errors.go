package serverutils

import (
	"ai-consultation-be/pkg/consultation"
	"errors"
	"net/http"
)

var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// HTTPError carries an explicit status for the error middleware.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{consultation.ErrEmptyInput, http.StatusBadRequest},
	{consultation.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
	{consultation.ErrExtractionFailed, http.StatusUnprocessableEntity},
	{consultation.ErrSessionNotFound, http.StatusNotFound},
	{consultation.ErrRenderingFailed, http.StatusInternalServerError},
	{consultation.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
	{consultation.ErrMalformedResponse, http.StatusBadGateway},
}

// StatusFor maps a domain error to an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
