// Package metrics contains prometheus instrumentation of routing decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var metricsNamespace = "echo"

var (
	// JoinCount is a number of successful channel joins partitioned by
	// channel type (public, private, presence).
	JoinCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "joins_total",
		Help:      "Count of successful channel joins.",
	}, []string{"type"})
	// AuthDeniedCount is a number of private channel joins rejected by the
	// authentication backend.
	AuthDeniedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "auth_denied_total",
		Help:      "Count of subscription requests denied by authenticator.",
	})
	// ClientEventRelayedCount is a number of client events broadcast to
	// channel members.
	ClientEventRelayedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "client_events_relayed_total",
		Help:      "Count of client events relayed to channel members.",
	})
	// ClientEventDroppedCount is a number of client events silently dropped
	// by the event gate.
	ClientEventDroppedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "router",
		Name:      "client_events_dropped_total",
		Help:      "Count of client events dropped by the event gate.",
	})
	// AppMessagePublishedCount is a number of application-bound messages
	// handed to the pub/sub transport.
	AppMessagePublishedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "bridge",
		Name:      "app_messages_published_total",
		Help:      "Count of application messages published to pub/sub transport.",
	})
	// AppMessageDroppedCount is a number of application-bound messages
	// dropped because no pub/sub transport is configured.
	AppMessageDroppedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "bridge",
		Name:      "app_messages_dropped_total",
		Help:      "Count of application messages dropped without configured transport.",
	})
	// AppPublishErrorCount is a number of pub/sub transport publish errors.
	AppPublishErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "bridge",
		Name:      "app_publish_errors_total",
		Help:      "Count of pub/sub transport publish errors.",
	})
)

func init() {
	prometheus.MustRegister(JoinCount)
	prometheus.MustRegister(AuthDeniedCount)
	prometheus.MustRegister(ClientEventRelayedCount)
	prometheus.MustRegister(ClientEventDroppedCount)
	prometheus.MustRegister(AppMessagePublishedCount)
	prometheus.MustRegister(AppMessageDroppedCount)
	prometheus.MustRegister(AppPublishErrorCount)
}
