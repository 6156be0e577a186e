// Package config provides 12-factor configuration for the pipe service.
//
// Configuration is loaded from environment variables with defaults; an
// optional YAML or TOML file passed with -config overlays the result.
//
// Sections:
//   - Server: HTTP listen address
//   - PipeFS: slot count, name length and chunk buffer size
//   - VFS: open-file table size
//   - Logging: level and output format
//   - RateLimit: per-IP request limiting
//
// Environment variables:
//   - PORT, HOST, GRPC_PORT, GRPC_ENABLED
//   - PIPEFS_MAX_PIPES, PIPEFS_MAX_NAME, PIPEFS_BUFFER_SIZE
//   - VFS_MAX_OPEN_FILES
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
