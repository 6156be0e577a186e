// Package ws streams pipe transfers over WebSocket.
//
// A connection to /pipes/:name/stream holds one descriptor on the pipe
// for its lifetime. Frames are JSON objects with a "type" field.
//
// Client to server:
//   - read: {"type":"read","size":n} blocks until n bytes arrive
//   - write: {"type":"write","data":"...","encoding":"text|base64"}
//   - ping: keep-alive
//
// Server to client:
//   - system: sent once after the upgrade, carries the connection id
//   - data: bytes returned by a read
//   - written: byte count of a completed write
//   - error: a failed frame, with the result code and bytes moved
//   - pong: reply to ping
//
// Reads and writes of one connection run in order on a worker goroutine
// so the socket keeps answering pings while a transfer is blocked.
package ws
