package analyzer

import (
	"context"

	"go.uber.org/zap"

	"aegismesh/pkg/eventbus"
)

// metricsSubscriber feeds scored events into Prometheus.
type metricsSubscriber struct {
	highRiskThreshold float64
}

func (metricsSubscriber) Topics() []eventbus.Topic { return []eventbus.Topic{eventbus.TopicEventScored} }

func (s metricsSubscriber) Handle(_ context.Context, msg eventbus.Message) {
	if msg.Event.RiskScore == nil {
		return
	}
	riskScoreHist.Observe(*msg.Event.RiskScore)
	if *msg.Event.RiskScore >= s.highRiskThreshold {
		highRiskTotal.Inc()
	}
}

// alertSubscriber raises a structured log line for high-risk events so
// operators can hang alerting off the log stream.
type alertSubscriber struct {
	threshold float64
	log       *zap.Logger
}

func (alertSubscriber) Topics() []eventbus.Topic { return []eventbus.Topic{eventbus.TopicEventScored} }

func (s alertSubscriber) Handle(_ context.Context, msg eventbus.Message) {
	ev := msg.Event
	if ev.RiskScore == nil || *ev.RiskScore < s.threshold {
		return
	}
	s.log.Warn("high-risk interaction",
		zap.String("event_id", ev.ID),
		zap.String("source_ip", ev.SourceIP),
		zap.String("decoy_service", ev.Service),
		zap.String("path", ev.Path),
		zap.Float64("risk_score", *ev.RiskScore),
	)
}
