package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrPaymentNotVerified is returned when the server answers the verify call without confirming the payment.
var ErrPaymentNotVerified = errors.New("api: payment not verified")

// Error is a non-2xx response from the MediBook API.
type Error struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// Message extracts a user-facing message from err, falling back when none is available.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

func newError(status int, path string, body []byte) *Error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		msg = envelope.Error
		if msg == "" {
			msg = envelope.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 300 {
			msg = msg[:300]
		}
	}
	return &Error{StatusCode: status, Path: path, Message: msg}
}
