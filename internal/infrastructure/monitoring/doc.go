/*
Package monitoring provides Prometheus metrics for the conversion engine.

# Overview

Collectors live on a caller-owned registry so that several engines (and
tests) can coexist in one process. Every method is safe on a nil *Metrics,
which lets library code record unconditionally.

# Metrics

- HTTP requests (count, latency, sizes) labelled by route template
- Conversions by source currency, skipped prices by reason
- Scans by kind (full, subtree, batch, poll) and their duration
- Active marks and reverted elements
- Rate refreshes by source and status
- Active and total sessions
- Process uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "coingecko")
	// ... fetch ...
	timer.Stop("success")
*/
package monitoring
