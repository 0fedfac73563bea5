/*
Package monitoring provides Prometheus metrics collection.

# Overview

This package tracks HTTP requests, session lifecycle, peer connections,
streaming output, data-channel interactions, and bridge health.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record domain events
	metrics.IncSessionsCreated()
	metrics.RecordInteraction("click")

All recording methods are safe to call on a nil *Metrics, so components
can be wired without a collector in tests.

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
