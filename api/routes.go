package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/customeros/lexsync/api/handlers"
	"github.com/customeros/lexsync/api/middleware"
	"github.com/customeros/lexsync/internal/metrics"
	"github.com/customeros/lexsync/internal/tracing"
)

// RegisterRoutes sets up the health and metrics endpoints
func RegisterRoutes(r *gin.Engine, serviceName string, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		panic("Gatherer cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck(serviceName))
	r.GET("/metrics", middleware.TracingMiddleware(), gin.WrapH(metrics.Handler(gatherer)))
}
