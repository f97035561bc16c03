package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PredictionsTotal counts predictions by outcome (served, below_floor, cold_start, cached).
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devintel",
			Name:      "predictions_total",
			Help:      "Total predictions served, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	// PredictionResolutionsTotal counts prediction resolutions by kind (hit, miss).
	PredictionResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devintel",
			Name:      "prediction_resolutions_total",
			Help:      "Total prediction resolutions, partitioned by hit or miss",
		},
		[]string{"kind"},
	)

	// TunerArmSelectionsTotal counts how often each tuner arm is chosen by select_arm.
	TunerArmSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devintel",
			Name:      "tuner_arm_selections_total",
			Help:      "Total Thompson-sampling arm selections, partitioned by arm index",
		},
		[]string{"arm"},
	)

	// RollingHitRate reports the current rolling hit_at_5 gauge.
	RollingHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devintel",
			Name:      "rolling_hit_rate",
			Help:      "Rolling hit@5 over the configured metrics window",
		},
	)

	// IntentEventsDroppedTotal counts events dropped by the intent capture pipeline
	// under backpressure.
	IntentEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devintel",
			Name:      "intent_events_dropped_total",
			Help:      "Total intent events dropped due to backpressure, partitioned by event kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		PredictionsTotal,
		PredictionResolutionsTotal,
		TunerArmSelectionsTotal,
		RollingHitRate,
		IntentEventsDroppedTotal,
	)
}
