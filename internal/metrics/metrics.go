// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks live sessions by role.
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Number of currently live sessions",
		},
		[]string{"role"},
	)

	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_created_total",
			Help: "Total number of sessions that completed negotiation",
		},
		[]string{"role"},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sessions_closed_total",
			Help: "Total number of sessions closed",
		},
		[]string{"role"},
	)

	// NegotiationFailures counts offers that never produced an answer.
	NegotiationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_negotiation_failures_total",
			Help: "Total number of failed offer/answer exchanges",
		},
	)

	PublishedTracks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_published_tracks",
			Help: "Number of tracks currently in the registry",
		},
		[]string{"kind"},
	)

	// TrackDeliveries counts tracks bound to receiver transports.
	TrackDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_track_deliveries_total",
			Help: "Total number of track bindings made to receivers",
		},
	)

	ForwardedPackets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_forwarded_packets_total",
			Help: "Total number of RTP packets copied from publishers to relays",
		},
		[]string{"kind"},
	)

	DroppedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dropped_candidates_total",
			Help: "Total number of malformed or rejected ICE candidates",
		},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_manager_operation_duration_seconds",
			Help:    "Time spent running one session manager operation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"op"},
	)
)

// RecordSessionCreated increments session creation metrics.
func RecordSessionCreated(role string) {
	SessionsCreated.WithLabelValues(role).Inc()
	ActiveSessions.WithLabelValues(role).Inc()
}

// RecordSessionClosed increments session close metrics.
func RecordSessionClosed(role string) {
	SessionsClosed.WithLabelValues(role).Inc()
	ActiveSessions.WithLabelValues(role).Dec()
}

func RecordTrackPublished(kind string) {
	PublishedTracks.WithLabelValues(kind).Inc()
}

func RecordTrackRemoved(kind string) {
	PublishedTracks.WithLabelValues(kind).Dec()
}
