// Package main runs the pipefs server.
//
// The server exposes one in-memory pipe volume over REST, WebSocket and
// gRPC, with Prometheus metrics on /metrics.
//
// Configuration:
//   - Environment variables (PORT, PIPEFS_MAX_PIPES, LOG_LEVEL, ...)
//   - An optional YAML or TOML file given with -config
//   - -port overrides the HTTP port
//
// Usage:
//
//	./server
//	./server -config pipefs.yaml -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: remove every pipe, which fails blocked transfers,
//     then shut down gracefully
package main
