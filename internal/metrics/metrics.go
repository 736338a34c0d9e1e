// Package metrics holds the Prometheus collectors shared by the feed and the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community_board"

var (
	ImageLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_lookups_total",
		Help:      "Blob store lookups by cache view and outcome.",
	}, []string{"view", "outcome"})

	ImageCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_hits_total",
		Help:      "Image resolutions served from the cache.",
	}, []string{"view"})

	ImageCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cache_evictions_total",
		Help:      "Entries evicted from a bounded image cache.",
	}, []string{"view"})

	MutationIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutation_intents_total",
		Help:      "Post mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_sessions",
		Help:      "Feed sessions currently holding subscriptions.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})
)
