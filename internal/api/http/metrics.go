package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/monitoring"
)

// MetricsAggregator serves the collector in Prometheus and JSON form
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	invoker *bridge.Invoker
	started time.Time
}

// NewMetricsAggregator creates a metrics aggregator
func NewMetricsAggregator(metrics *monitoring.Metrics, invoker *bridge.Invoker) *MetricsAggregator {
	return &MetricsAggregator{
		metrics: metrics,
		invoker: invoker,
		started: time.Now(),
	}
}

// MetricsSnapshot represents a snapshot of the bridge metrics
type MetricsSnapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Bridge    monitoring.Snapshot `json:"bridge"`
	Summary   MetricsSummary      `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	ResolutionRate float64 `json:"resolution_rate"`
	PendingSlots   int     `json:"pending_slots"`
	Attached       bool    `json:"attached"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// Register mounts the metrics routes on r
func (ma *MetricsAggregator) Register(r gin.IRouter) {
	r.GET("/metrics", gin.WrapH(ma.metrics.Handler()))
	r.GET("/metrics/json", ma.GetAggregatedMetrics)
}

// GetAggregatedMetrics returns the current metrics as JSON
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	snapshot := ma.metrics.Snapshot()
	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Bridge:    snapshot,
		Summary:   ma.calculateSummary(snapshot),
	})
}

// calculateSummary computes high-level summary metrics
func (ma *MetricsAggregator) calculateSummary(snapshot monitoring.Snapshot) MetricsSummary {
	// Detached calls never reach the web view
	var rate float64
	if dispatched := snapshot.TotalCalls - snapshot.DetachedCalls; dispatched > 0 {
		rate = float64(snapshot.ResolvedCalls) / float64(dispatched)
	}

	return MetricsSummary{
		ResolutionRate: rate,
		PendingSlots:   ma.invoker.Registry().Len(),
		Attached:       ma.invoker.Attached(),
		UptimeSeconds:  time.Since(ma.started).Seconds(),
	}
}
