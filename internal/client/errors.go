package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// APIError is a non-2xx response.
type APIError struct {
	Status      int    `json:"-"`
	Message     string `json:"error"`
	Code        int    `json:"code"`
	Transferred int    `json:"transferred"`
	// Data holds the bytes a failed read did move.
	Data []byte `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pipefs: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap maps the response to the matching filesystem error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return pipefs.ErrNotFound
	case http.StatusConflict:
		return pipefs.ErrExists
	case http.StatusInsufficientStorage:
		return pipefs.ErrNoSpace
	case http.StatusGone:
		return pipefs.ErrRemoved
	case http.StatusRequestTimeout:
		return context.DeadlineExceeded
	case http.StatusServiceUnavailable:
		return vfs.ErrLimit
	case http.StatusBadRequest:
		return pipefs.ErrInvalid
	}
	return nil
}

// serverFault reports whether a response status means the server is
// struggling rather than refusing the request.
func serverFault(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	}
	return false
}
