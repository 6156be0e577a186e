/*
Package tracing provides lightweight request tracing.

Each HTTP request and gRPC call gets a span carrying a trace ID and a
span ID. IDs arriving in X-Trace-ID / X-Span-ID headers (or the same
gRPC metadata keys) are continued; otherwise a new trace starts.
Finished spans are logged asynchronously through zap.

	tracer := tracing.New("pipefs", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
	server := grpc.NewServer(grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))
*/
package tracing
