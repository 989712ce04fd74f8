package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "octane_optimization_runs_started_total",
		Help: "Number of optimization runs accepted by the server.",
	})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octane_optimization_runs_finished_total",
		Help: "Number of optimization runs reaching a terminal state.",
	}, []string{"status"})

	bestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "octane_best_fitness",
		Help: "Best fitness of the most recently completed run.",
	})
)
