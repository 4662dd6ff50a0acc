/*
Package monitoring provides metrics collection for the command bridge.

# Overview

Prometheus collectors track the request/response protocol between host and
the embedded execution context: calls by outcome, dispatch-to-resolution
latency, unresolved slots, unmatched responses and sweeper evictions. HTTP
control-surface traffic is recorded by a Gin middleware.

Each Metrics value owns its registry unless one is supplied through
NewMetricsWith, so several collectors can coexist in one process.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	// ... dispatch and await ...
	timer.Stop("resolved")
*/
package monitoring
