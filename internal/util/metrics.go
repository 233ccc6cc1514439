package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order placements",
	}, []string{"reason"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"from", "to"})

	OrderPlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_latency_seconds",
		Help:    "Latency of the order placement transaction",
		Buckets: prometheus.DefBuckets,
	})

	CategorySubtreeDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "category_subtree_deletes_total",
		Help: "Total number of category subtree deletions",
	})

	CategoriesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "categories_deleted_total",
		Help: "Total number of category nodes removed by subtree deletions",
	})

	TreeCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "category_tree_cache_hits_total",
		Help: "Category tree cache hits",
	}, []string{"kind"})

	TreeCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "category_tree_cache_misses_total",
		Help: "Category tree cache misses",
	}, []string{"kind"})

	SubtreeFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "category_subtree_fetch_latency_seconds",
		Help:    "Latency of recursive subtree fetches",
		Buckets: prometheus.DefBuckets,
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of domain events published",
	}, []string{"type"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of domain events consumed by workers",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
