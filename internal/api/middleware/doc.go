// Package middleware provides the HTTP middleware stack: CORS and
// per-client or global rate limiting.
package middleware
