// Package httpdecoy is a counterfeit web application. Every request is
// answered with a plausible banner and reported to the analyzer; the
// decoy never blocks a visitor on reporting.
package httpdecoy

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aegismesh/pkg/meshclient"
	"aegismesh/pkg/telemetry"
)

const banner = "Welcome to Acme WebApp v2.1.4\n"

// maxCapturedBody bounds the payload recorded from one request.
const maxCapturedBody = 4096

// Server is the HTTP decoy.
type Server struct {
	Addr     string
	reporter *meshclient.Client
	log      *zap.Logger
}

// New builds a decoy reporting to the given analyzer client.
func New(addr string, reporter *meshclient.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, reporter: reporter, log: logger}
}

// Routes builds the decoy surface: a fake homepage catch-all and an
// admin login lure.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCatchAll)
	mux.HandleFunc("/admin", s.handleAdmin)
	return mux
}

// Run serves until the context ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http decoy listening", zap.String("addr", s.Addr))
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

func (s *Server) handleCatchAll(w http.ResponseWriter, r *http.Request) {
	payload := s.capturePayload(r)
	s.report(r, r.URL.Path, payload)

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, banner)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.report(r, "/admin", "access_attempt")

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Admin login\n")
}

// capturePayload records the request body when present, falling back
// to the raw query string.
func (s *Server) capturePayload(r *http.Request) string {
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxCapturedBody))
	if len(body) > 0 {
		return string(body)
	}
	return r.URL.RawQuery
}

func (s *Server) report(r *http.Request, path, payload string) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ev := telemetry.Event{
		SourceIP: host,
		Service:  "http",
		Path:     path,
		Payload:  payload,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.reporter.PostEvent(ctx, ev); err != nil {
		s.log.Warn("event report failed", zap.String("path", path), zap.Error(err))
	}
}
