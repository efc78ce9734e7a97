package ml

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aegismesh/pkg/telemetry"
)

// ErrUntrained is returned when a decision is requested before any
// successful fit.
var ErrUntrained = errors.New("model manager: no trained model")

// TrainingError wraps a failure inside a retrain cycle. It is logged,
// never surfaced to ingestion callers.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string { return fmt.Sprintf("model training failed: %v", e.Err) }
func (e *TrainingError) Unwrap() error { return e.Err }

// SnapshotFunc supplies the training window for one retrain cycle. It
// must return an independent copy so fitting never holds foreign locks.
type SnapshotFunc func() []telemetry.Event

// ManagerConfig tunes the retrain loop.
type ManagerConfig struct {
	Interval        time.Duration // wake period of the background task
	MinTrainSamples int           // cycle is skipped below this snapshot size
	Contamination   float64       // expected anomaly fraction in training data
	Seed            int64         // fixed for reproducible fits
	NumTrees        int
	SampleSize      int

	// RetainOnFailure keeps the last good model when a fit fails.
	// When false a failed fit clears the current model instead.
	RetainOnFailure bool
}

// DefaultManagerConfig matches the analyzer's shipped tuning.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Interval:        30 * time.Second,
		MinTrainSamples: 50,
		Contamination:   0.02,
		Seed:            42,
		NumTrees:        100,
		SampleSize:      256,
		RetainOnFailure: true,
	}
}

// Manager owns the optional current outlier model. Exactly one model is
// current at any instant, or none. The swap on a successful fit is
// atomic under the manager's lock, which is never held across a fit and
// never nested with the event buffer's lock.
type Manager struct {
	mu        sync.RWMutex
	model     *IsolationForest
	trainedAt time.Time
	trainSize int

	cfg ManagerConfig
	log *zap.Logger

	// fit builds and trains a forest for one cycle; replaced in tests.
	fit func(data [][]float64) (*IsolationForest, error)
}

// NewManager creates an untrained manager.
func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MinTrainSamples <= 0 {
		cfg.MinTrainSamples = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{cfg: cfg, log: logger}
	m.fit = func(data [][]float64) (*IsolationForest, error) {
		forest := NewIsolationForest(cfg.NumTrees, cfg.SampleSize, cfg.Contamination, cfg.Seed)
		if err := forest.Fit(data); err != nil {
			return nil, err
		}
		return forest, nil
	}
	return m
}

// Trained reports whether a model is currently published.
func (m *Manager) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model != nil
}

// Decision reads the current model once and evaluates the sample
// against it. The read is a single short critical section; callers are
// never blocked by an in-progress retrain beyond the swap instant.
func (m *Manager) Decision(vec []float64) (float64, error) {
	m.mu.RLock()
	model := m.model
	m.mu.RUnlock()

	if model == nil {
		return 0, ErrUntrained
	}
	return model.DecisionValue(vec)
}

// Retrain runs a single training cycle against the given snapshot.
// Snapshots smaller than MinTrainSamples leave the state unchanged.
func (m *Manager) Retrain(snapshot []telemetry.Event) error {
	if len(snapshot) < m.cfg.MinTrainSamples {
		trainCyclesTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	data := make([][]float64, len(snapshot))
	for i, ev := range snapshot {
		data[i] = Vectorize(ev)
	}

	forest, err := m.fit(data)
	if err != nil {
		trainCyclesTotal.WithLabelValues("failed").Inc()
		m.log.Error("model training failed",
			zap.Int("samples", len(snapshot)),
			zap.Bool("retain_last_good", m.cfg.RetainOnFailure),
			zap.Error(err))
		if !m.cfg.RetainOnFailure {
			m.clear()
		}
		return &TrainingError{Err: err}
	}

	m.mu.Lock()
	m.model = forest
	m.trainedAt = time.Now().UTC()
	m.trainSize = len(snapshot)
	m.mu.Unlock()

	trainCyclesTotal.WithLabelValues("trained").Inc()
	modelTrainedGauge.Set(1)
	trainingSetSize.Set(float64(len(snapshot)))
	m.log.Info("model retrained", zap.Int("samples", len(snapshot)))
	return nil
}

// Run drives the periodic retrain loop until the context is cancelled.
// This is the only background task of the scoring engine; a running fit
// is never interrupted, only the wait between cycles is cancellable.
func (m *Manager) Run(ctx context.Context, snapshot SnapshotFunc) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("model retrain loop stopped")
			return
		case <-ticker.C:
			// Training errors are terminal per cycle; the next tick retries.
			_ = m.Retrain(snapshot())
		}
	}
}

// Info returns the metadata of the current model.
func (m *Manager) Info() (trainedAt time.Time, trainSize int, trained bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainedAt, m.trainSize, m.model != nil
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.model = nil
	m.trainedAt = time.Time{}
	m.trainSize = 0
	m.mu.Unlock()
	modelTrainedGauge.Set(0)
}
