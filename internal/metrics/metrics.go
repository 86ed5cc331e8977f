package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed requests.
	OutcomeSuccess = "success"
	// OutcomeError labels failed requests (pipeline or dependency issues).
	OutcomeError = "error"
	// OutcomeNoData labels insight requests over an empty event window.
	OutcomeNoData = "no_data"
)

var (
	trainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peer_insight",
			Name:      "trainings_total",
			Help:      "Total number of training runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	trainingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "peer_insight",
			Name:      "training_seconds",
			Help:      "Training run latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	insightsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peer_insight",
			Name:      "insights_total",
			Help:      "Total number of insight requests, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	insightDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "peer_insight",
			Name:      "insight_seconds",
			Help:      "Insight assembly latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
)

// Register attaches the pipeline collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		trainingsTotal,
		trainingDurationSeconds,
		insightsTotal,
		insightDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTraining records a training run duration and outcome.
func ObserveTraining(duration time.Duration, outcome string) {
	trainingsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	trainingDurationSeconds.Observe(duration.Seconds())
}

// ObserveInsight records an insight request duration and outcome.
func ObserveInsight(duration time.Duration, outcome string) {
	insightsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	insightDurationSeconds.Observe(duration.Seconds())
}
