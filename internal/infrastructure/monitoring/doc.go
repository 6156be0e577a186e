/*
Package monitoring provides Prometheus metrics for the pipe service.

# Overview

Metrics owns a private registry holding HTTP request metrics, service
tool call metrics, WebSocket metrics and pipe metrics. It implements
pipefs.Observer, so passing it to pipefs.WithObserver counts every
create, remove, read and write. Watch adds gauges that sample a live
filesystem at scrape time.

# Usage

	metrics := monitoring.NewMetrics()
	fs, _ := pipefs.New(cfg, pipefs.WithObserver(metrics))
	metrics.Watch(fs)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

Snapshot returns a JSON-friendly summary including the mean, standard
deviation and percentiles of recent transfer sizes.
*/
package monitoring
