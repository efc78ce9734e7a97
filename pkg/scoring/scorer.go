package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"aegismesh/pkg/ml"
	"aegismesh/pkg/telemetry"
)

// DecisionModel is the slice of the model manager the scorer needs: a
// trained-state probe and a single atomic decision read.
type DecisionModel interface {
	Trained() bool
	Decision(vec []float64) (float64, error)
}

// ScoringError wraps a model inference failure for one event. The
// scorer degrades to the rule path and never propagates it.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string { return fmt.Sprintf("model scoring failed: %v", e.Err) }
func (e *ScoringError) Unwrap() error { return e.Err }

// Scorer combines the model-backed path with the rule fallback. The
// strategy (model-backed vs rule-only) is fixed at construction; it is
// not re-evaluated per request.
type Scorer struct {
	model   DecisionModel
	enabled bool
	log     *zap.Logger

	// onFallback is invoked whenever the model path degrades for one
	// event; the analyzer hangs a metrics counter here.
	onFallback func()
}

// NewScorer builds a scorer. A nil model or enabled=false yields a
// permanent rule-only scorer.
func NewScorer(model DecisionModel, enabled bool, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{model: model, enabled: enabled && model != nil, log: logger}
}

// OnFallback registers a hook fired on each per-event degradation.
func (s *Scorer) OnFallback(fn func()) { s.onFallback = fn }

// ModelEnabled reports whether the model-backed strategy was selected
// at startup.
func (s *Scorer) ModelEnabled() bool { return s.enabled }

// Score produces a risk value in [0,1] for one event. Model failures
// degrade to the rule score for that event only; Score itself never
// fails, so ingestion never fails because of scoring.
func (s *Scorer) Score(ev telemetry.Event) float64 {
	if s.enabled && s.model.Trained() {
		risk, err := s.modelScore(ev)
		if err == nil {
			return risk
		}
		s.log.Warn("degrading to rule score", zap.String("event_id", ev.ID), zap.Error(err))
		if s.onFallback != nil {
			s.onFallback()
		}
	}
	return RuleScore(ev)
}

// modelScore maps the model decision value d (larger = more normal)
// onto risk = clamp(0, 1, 1.0 - d).
func (s *Scorer) modelScore(ev telemetry.Event) (float64, error) {
	d, err := s.model.Decision(ml.Vectorize(ev))
	if err != nil {
		return 0, &ScoringError{Err: err}
	}
	return Clamp(1.0 - d), nil
}
