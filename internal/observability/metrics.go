// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faithfulcity_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedSnapshots counts full snapshots delivered to feed subscribers.
	FeedSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faithfulcity_feed_snapshots_total",
		Help: "Total number of feed snapshots delivered by topic",
	}, []string{"topic"})

	// FeedSubscriptionsActive is the gauge of open feed subscriptions.
	FeedSubscriptionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "faithfulcity_feed_subscriptions_active",
		Help: "Number of open feed subscriptions by topic",
	}, []string{"topic"})

	// WebSocketConnections is the gauge of open websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "faithfulcity_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts frames dropped because a client send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faithfulcity_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket frames dropped due to backpressure",
	}, []string{"hub", "reason"})

	// MediaOrphanedBlobs counts blobs left behind after a failed metadata write.
	MediaOrphanedBlobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faithfulcity_media_orphaned_blobs_total",
		Help: "Total number of uploaded blobs whose metadata record failed to persist",
	})

	// AdminLimitRejections counts promotions refused by the admin cap.
	AdminLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faithfulcity_admin_limit_rejections_total",
		Help: "Total number of promotions rejected because the family admin cap was reached",
	})

	// ReadPathDegraded counts list reads answered empty because the store was unavailable.
	ReadPathDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faithfulcity_read_path_degraded_total",
		Help: "Total number of list reads served empty due to store unavailability",
	}, []string{"collection"})
)
