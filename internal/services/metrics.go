package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// seedsTotal counts seed attempts by outcome: created, existing.
	seedsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checklist_seeds_total",
			Help: "Checklist seed attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// togglesTotal counts item toggles by the resulting state.
	togglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checklist_item_toggles_total",
			Help: "Checklist item toggles by resulting state (checked|unchecked).",
		},
		[]string{"state"},
	)

	// submitsTotal counts submits by outcome: locked, already_locked.
	submitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checklist_submits_total",
			Help: "Shift submits by outcome.",
		},
		[]string{"outcome"},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checklist_resets_total",
			Help: "Administrative reseeds and resets.",
		},
	)
)

func init() {
	prometheus.MustRegister(seedsTotal, togglesTotal, submitsTotal, resetsTotal)
}
