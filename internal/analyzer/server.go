// Package analyzer is the deception-mesh scoring engine: the ingestion
// gate, event buffer, model manager, hybrid scorer, and persistent log
// behind one HTTP surface.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aegismesh/pkg/eventbus"
	"aegismesh/pkg/eventlog"
	"aegismesh/pkg/ml"
	"aegismesh/pkg/scoring"
	"aegismesh/pkg/telemetry"
)

// Config tunes one analyzer process.
type Config struct {
	Addr              string
	LogPath           string
	BufferCapacity    int
	ModelEnabled      bool
	HighRiskThreshold float64
	Manager           ml.ManagerConfig
}

// DefaultConfig matches the shipped deployment.
func DefaultConfig() Config {
	return Config{
		Addr:              ":9000",
		LogPath:           "logs/events.log",
		BufferCapacity:    telemetry.DefaultBufferCapacity,
		ModelEnabled:      true,
		HighRiskThreshold: 0.8,
		Manager:           ml.DefaultManagerConfig(),
	}
}

// Server owns all shared mutable state of the scoring engine. Handlers
// receive it by injection; there is no package-level state. The buffer
// and the model reference carry independent locks that are never
// nested, so the ingestion path is only ever blocked for the instant
// of an insert or a model-pointer read.
type Server struct {
	cfg     Config
	log     *zap.Logger
	buffer  *telemetry.Buffer
	manager *ml.Manager
	scorer  *scoring.Scorer
	store   *eventlog.Store
	bus     *eventbus.Bus
}

// New wires the engine. The scoring strategy (model-backed vs
// rule-only) is resolved here, once, for the process lifetime.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := eventlog.Open(cfg.LogPath, logger)
	if err != nil {
		return nil, err
	}

	// The interface passed to the scorer is built only from a live
	// manager, so a disabled model is a true nil, not a typed nil.
	var manager *ml.Manager
	var model scoring.DecisionModel
	if cfg.ModelEnabled {
		manager = ml.NewManager(cfg.Manager, logger)
		model = manager
	}

	scorer := scoring.NewScorer(model, cfg.ModelEnabled, logger)
	scorer.OnFallback(scoringFallbackTotal.Inc)

	bus := eventbus.New(1024)
	bus.Register(metricsSubscriber{highRiskThreshold: cfg.HighRiskThreshold})
	bus.Register(alertSubscriber{threshold: cfg.HighRiskThreshold, log: logger})

	return &Server{
		cfg:     cfg,
		log:     logger,
		buffer:  telemetry.NewBuffer(cfg.BufferCapacity),
		manager: manager,
		scorer:  scorer,
		store:   store,
		bus:     bus,
	}, nil
}

// Routes builds the HTTP surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves HTTP and drives the retrain loop until the context ends,
// then shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	retrainDone := make(chan struct{})
	if s.manager != nil {
		go func() {
			defer close(retrainDone)
			s.manager.Run(ctx, s.buffer.Snapshot)
		}()
	} else {
		close(retrainDone)
		s.log.Info("model subsystem disabled, scoring is rule-only for this process")
	}

	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("analyzer listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-retrainDone
	s.bus.Close()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingest(w, r)
	case http.MethodGet:
		s.listEvents(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// maxRequestBytes bounds one ingested event body; it matches the
// per-record line bound of the event log.
const maxRequestBytes = 1 << 20

// ingest runs the accept path: validate, normalize, log the raw event,
// buffer it, score it, log the scored record. Scoring and log failures
// never fail an accepted event; only malformed or oversized input
// rejects.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var ev telemetry.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		ingestTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}
	if err := ev.Validate(); err != nil {
		ingestTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ev.Normalize(time.Now())

	// Raw event is persisted before scoring so an accepted event is
	// never lost to a later scoring failure.
	if err := s.store.Append(ev); err != nil {
		logWriteErrors.Inc()
		s.log.Error("raw log append dropped", zap.String("event_id", ev.ID), zap.Error(err))
	}

	s.buffer.Insert(ev)
	bufferSizeGauge.Set(float64(s.buffer.Len()))

	score := round3(scoring.Clamp(s.scorer.Score(ev)))
	scored := ev.WithScore(score)

	if err := s.store.Append(eventlog.ScoredRecord{ScoredEvent: scored}); err != nil {
		logWriteErrors.Inc()
		s.log.Error("scored log append dropped", zap.String("event_id", ev.ID), zap.Error(err))
	}

	if err := s.bus.Publish(r.Context(), eventbus.Message{
		Topic:  eventbus.TopicEventScored,
		Source: "analyzer",
		Event:  scored,
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("scored event fan-out dropped", zap.String("event_id", ev.ID), zap.Error(err))
	}

	ingestTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "risk_score": score})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := eventlog.DefaultFetchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			limit = n
		}
	}

	records, err := s.store.Fetch(limit)
	if err != nil {
		s.log.Error("event log read failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event log read failed"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"model_enabled": s.scorer.ModelEnabled(),
		"buffer_size":   s.buffer.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
