// Package service provides the registry through which tools are
// discovered and executed.
//
// Providers describe themselves with a types.Service and execute tools
// addressed as "<service>.<tool>". The registry checks that the tool is
// declared, times the call when metrics are attached, and hands the
// request context through so blocking tools can be cancelled.
//
//	registry := service.NewRegistry(service.WithMetrics(metrics))
//	registry.Register(pipe.NewProvider(v))
//	result, err := registry.Execute(ctx, "pipe.read", params, appCtx)
package service
