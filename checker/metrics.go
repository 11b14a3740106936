// ABOUTME: Prometheus metrics for plugin scans
// ABOUTME: Counts scanned plugins, warnings, parse errors, and cache use

package checker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scan metrics
type Metrics struct {
	PluginsScanned *prometheus.CounterVec
	Warnings       *prometheus.CounterVec
	ParseErrors    *prometheus.CounterVec
	ScanDuration   *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
}

// NewMetrics creates the scan metrics and registers them with registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		PluginsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esplens_plugins_scanned_total",
				Help: "Total number of plugin files checked",
			},
			[]string{"game"},
		),
		Warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esplens_warnings_total",
				Help: "Total number of warnings raised",
			},
			[]string{"game", "warning"},
		),
		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esplens_parse_errors_total",
				Help: "Total number of plugins that failed to decode",
			},
			[]string{"game", "kind"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esplens_scan_duration_seconds",
				Help:    "Directory scan duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"game"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "esplens_cache_hits_total",
				Help: "Total number of check results served from cache",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "esplens_cache_misses_total",
				Help: "Total number of check results not found in cache",
			},
		),
	}

	registry.MustRegister(
		m.PluginsScanned,
		m.Warnings,
		m.ParseErrors,
		m.ScanDuration,
		m.CacheHits,
		m.CacheMisses,
	)

	return m
}
