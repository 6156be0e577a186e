// Package http exposes the pipe filesystem over REST: pipe lifecycle,
// blocking reads and writes with content negotiation, the service
// registry and metrics.
package http
