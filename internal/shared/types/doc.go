// Package types holds the data structures shared by the service
// registry, the HTTP API and the client.
//
//   - Service, Tool, Parameter: provider descriptions
//   - Context, Result: tool call input and output
//   - ExecuteRequest, CreatePipeRequest, FSInfo: API bodies
package types
