// Package client is a Go client for the pipefs REST API.
//
// Requests go through a client-side rate limiter and a circuit breaker,
// and are retried when the server answers 429 or 503. Transfers are
// never retried after they reached the pipe. Error responses decode to
// *APIError, which unwraps to the pipefs sentinels so callers can use
// errors.Is(err, pipefs.ErrNotFound) across the wire.
package client
