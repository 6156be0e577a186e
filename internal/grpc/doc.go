// Package grpc serves the service registry over gRPC and provides the
// matching client.
//
// The service has one unary method, /pipefs.v1.Services/Execute. Requests
// and responses are google.protobuf.Struct values, so no generated code is
// needed:
//
//	request:  {"tool_id": "pipe.read", "params": {"name": "jobs", "size": 4}}
//	response: {"success": true, "code": 0, "data": {...}}
//
// Registry errors are reported as gRPC status codes. Tool failures, such
// as a missing pipe, come back as a result with success false and the
// filesystem result code.
//
// Example Usage:
//
//	srv := grpc.NewServer(registry, logger)
//	gs := ggrpc.NewServer(ggrpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))
//	srv.Register(gs)
//
//	client, err := grpc.NewClient("localhost:50061", grpc.ClientOptions{})
//	result, err := client.Execute(ctx, "pipe.list", nil)
package grpc
