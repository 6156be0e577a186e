// Package pipe provides the "pipe" service: named-pipe tools routed
// through the VFS open-file table.
//
// Tools:
//   - pipe.create, pipe.remove: manage pipes by name
//   - pipe.open, pipe.close: manage file descriptors
//   - pipe.read, pipe.write: blocking transfers by fd or by name
//   - pipe.list, pipe.stats: inspection
//
// Failed calls return a Result with Success false and Code set to the
// filesystem result code; the Go error is reserved for unknown tools.
package pipe
