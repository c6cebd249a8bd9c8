// Package metrics holds the Prometheus collectors for the voice core.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice service
type Metrics struct {
	// Speech cache
	CacheLookups *prometheus.CounterVec
	CacheStores  *prometheus.CounterVec

	// Synthesis
	Synthesis *prometheus.CounterVec

	// Microphone captures
	Captures *prometheus.CounterVec

	// Command routing
	CommandsRouted *prometheus.CounterVec

	// Outbound service calls (transcription/classification/stt)
	ServiceCalls *prometheus.CounterVec

	// Sessions
	ActiveSessions prometheus.Gauge
}

var (
	once     sync.Once
	instance *Metrics
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_cache_lookups_total",
			Help: "Speech cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		CacheStores: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_cache_stores_total",
			Help: "Speech cache stores by result (stored, conflict, error)",
		}, []string{"result"}),
		Synthesis: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_synthesis_total",
			Help: "Speech synthesis calls by result",
		}, []string{"result"}),
		Captures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_captures_total",
			Help: "Microphone capture cycles by outcome",
		}, []string{"outcome"}),
		CommandsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_commands_routed_total",
			Help: "Classified voice commands by routing kind",
		}, []string{"kind"}),
		ServiceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_service_calls_total",
			Help: "Calls to external speech services",
		}, []string{"service", "result"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voice_active_sessions",
			Help: "Current number of connected voice sessions",
		}),
	}
}

// Result maps an error to the "ok"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
