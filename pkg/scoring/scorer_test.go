package scoring

import (
	"errors"
	"testing"

	"aegismesh/pkg/telemetry"
)

type fakeModel struct {
	trained  bool
	decision float64
	err      error
}

func (m *fakeModel) Trained() bool                       { return m.trained }
func (m *fakeModel) Decision([]float64) (float64, error) { return m.decision, m.err }

func TestScorerRuleOnlyWhenDisabled(t *testing.T) {
	scorer := NewScorer(&fakeModel{trained: true, decision: 0.9}, false, nil)

	ev := telemetry.Event{Service: "ssh", Payload: "root"}
	if got := scorer.Score(ev); got != 0.4 {
		t.Errorf("Score() = %f, want rule score 0.4", got)
	}
	if scorer.ModelEnabled() {
		t.Error("ModelEnabled() = true for disabled scorer")
	}
}

func TestScorerRuleOnlyWithoutModel(t *testing.T) {
	// Enabled without a model still yields a rule-only scorer.
	scorer := NewScorer(nil, true, nil)

	if scorer.ModelEnabled() {
		t.Error("ModelEnabled() = true without a model")
	}
	ev := telemetry.Event{Service: "ssh", Payload: "root"}
	if got := scorer.Score(ev); got != 0.4 {
		t.Errorf("Score() = %f, want rule score 0.4", got)
	}
}

func TestScorerRuleFallbackWhenUntrained(t *testing.T) {
	scorer := NewScorer(&fakeModel{trained: false}, true, nil)

	ev := telemetry.Event{Service: "http", Path: "/admin", Payload: "password123"}
	if got := scorer.Score(ev); got != 0.5 {
		t.Errorf("Score() = %f, want rule score 0.5", got)
	}
}

func TestScorerModelPathMapping(t *testing.T) {
	tests := []struct {
		name     string
		decision float64
		want     float64
	}{
		{name: "normal decision", decision: 0.4, want: 0.6},
		{name: "anomalous decision", decision: -0.3, want: 1},
		{name: "very normal decision clamps low", decision: 1.7, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewScorer(&fakeModel{trained: true, decision: tt.decision}, true, nil)
			got := scorer.Score(telemetry.Event{Service: "http", Path: "/"})
			if got != tt.want {
				t.Errorf("Score() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestScorerDegradesOnModelError(t *testing.T) {
	model := &fakeModel{trained: true, err: errors.New("inference blew up")}
	scorer := NewScorer(model, true, nil)

	fallbacks := 0
	scorer.OnFallback(func() { fallbacks++ })

	ev := telemetry.Event{Service: "ssh", Payload: "root"}
	if got := scorer.Score(ev); got != 0.4 {
		t.Errorf("Score() = %f, want rule fallback 0.4", got)
	}
	if fallbacks != 1 {
		t.Errorf("fallback hook fired %d times, want 1", fallbacks)
	}

	// Degradation is per event; a healthy model is used again immediately.
	model.err = nil
	model.decision = 0.4
	if got := scorer.Score(ev); got != 0.6 {
		t.Errorf("Score() after recovery = %f, want 0.6", got)
	}
}
