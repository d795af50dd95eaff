package profile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "profiled",
		Name:      "analyses_total",
		Help:      "Analysis requests by outcome.",
	}, []string{"outcome"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "profiled",
		Name:      "analysis_cache_hits_total",
		Help:      "Analyses served from the per-user content-hash cache.",
	})

	mergeItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "profiled",
		Name:      "merge_items_total",
		Help:      "Merged profile items by kind and outcome.",
	}, []string{"kind", "outcome"})
)
