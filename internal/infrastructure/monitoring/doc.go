/*
Package monitoring provides Prometheus metrics for the file system service.

# Overview

Metrics are registered on a private registry owned by each Metrics value, so
several service instances (or tests) can coexist in one process. Every
recording method is safe to call on a nil *Metrics, which lets components
run without instrumentation.

# Features

- HTTP request metrics (latency, throughput, size)
- Mount table metrics (operations, active mounts)
- Watcher registry metrics (watched folders, notifications by kind)
- Path allocation metrics (results by mode, name collisions)
- Lifecycle metrics (archives unmounted by reconciliation)
- WebSocket stream metrics (connections, messages)

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordMount("mount", "success")
	metrics.SetMountsActive(2)
*/
package monitoring
