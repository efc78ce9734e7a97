package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aegismesh/pkg/telemetry"
)

// EventStore is the persistence surface the HTTP layer needs; it is an
// interface so handler tests can run without Postgres.
type EventStore interface {
	InsertEvent(ctx context.Context, ev telemetry.Event) (int64, error)
	ListEvents(ctx context.Context, limit int) ([]EventRow, error)
}

// Server exposes the dashboard ingestion and listing endpoints.
type Server struct {
	Addr  string
	store EventStore
	cache *Cache
	log   *zap.Logger
}

// NewServer wires the dashboard HTTP layer. The cache may be nil.
func NewServer(addr string, store EventStore, cache *Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, store: store, cache: cache, log: logger}
}

// Routes builds the HTTP surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run serves until the context ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", s.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingest(w, r)
	case http.MethodGet:
		s.list(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var ev telemetry.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}
	if err := ev.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id, err := s.store.InsertEvent(r.Context(), ev)
	if err != nil {
		s.log.Error("event insert failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event insert failed"})
		return
	}
	s.cache.Invalidate(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if payload, ok := s.cache.GetRecent(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	rows, err := s.store.ListEvents(r.Context(), 200)
	if err != nil {
		s.log.Error("event listing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event listing failed"})
		return
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event listing failed"})
		return
	}
	s.cache.SetRecent(r.Context(), payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
