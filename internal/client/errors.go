package client

import (
	"errors"
	"fmt"
)

// ErrAuthRequired distinguishes 401 responses (and locally expired
// session tokens) from generic failures, so callers can route to a login
// prompt instead of a plain error banner.
var ErrAuthRequired = errors.New("authentication required")

// ErrNotFound maps 404 responses.
var ErrNotFound = errors.New("not found")

// genericMessage is the user-facing fallback when the server supplied
// no message of its own.
const genericMessage = "request failed"

// APIError is a non-2xx response from the storefront API. Message is the
// server-supplied message when available.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}
