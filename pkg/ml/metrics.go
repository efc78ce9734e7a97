package ml

import "github.com/prometheus/client_golang/prometheus"

var (
	trainCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aegis", Subsystem: "ml", Name: "train_cycles_total", Help: "Retrain cycles by outcome."},
		[]string{"outcome"},
	)
	modelTrainedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "aegis", Subsystem: "ml", Name: "model_trained", Help: "1 while a trained model is current."},
	)
	trainingSetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "aegis", Subsystem: "ml", Name: "training_set_size", Help: "Sample count of the last successful fit."},
	)
)

func init() {
	_ = prometheus.Register(trainCyclesTotal)
	_ = prometheus.Register(modelTrainedGauge)
	_ = prometheus.Register(trainingSetSize)
}
