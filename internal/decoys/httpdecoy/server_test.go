package httpdecoy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegismesh/pkg/meshclient"
	"aegismesh/pkg/telemetry"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func newAnalyzerStub(t *testing.T, captured *capturedEvents) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev telemetry.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		captured.mu.Lock()
		captured.events = append(captured.events, ev)
		captured.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","risk_score":0.1}`))
	}))
}

func TestDecoyReportsRequests(t *testing.T) {
	captured := &capturedEvents{}
	analyzer := newAnalyzerStub(t, captured)
	defer analyzer.Close()

	decoy := New(":0", meshclient.New(analyzer.URL, time.Second), nil)

	req := httptest.NewRequest(http.MethodPost, "/wp-login.php", strings.NewReader("log=admin&pwd=hunter2"))
	req.RemoteAddr = "198.51.100.7:51412"
	rec := httptest.NewRecorder()
	decoy.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme WebApp")

	captured.mu.Lock()
	defer captured.mu.Unlock()
	require.Len(t, captured.events, 1)
	ev := captured.events[0]
	assert.Equal(t, "198.51.100.7", ev.SourceIP)
	assert.Equal(t, "http", ev.Service)
	assert.Equal(t, "/wp-login.php", ev.Path)
	assert.Equal(t, "log=admin&pwd=hunter2", ev.Payload)
}

func TestDecoyAdminLure(t *testing.T) {
	captured := &capturedEvents{}
	analyzer := newAnalyzerStub(t, captured)
	defer analyzer.Close()

	decoy := New(":0", meshclient.New(analyzer.URL, time.Second), nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.RemoteAddr = "203.0.113.4:40000"
	rec := httptest.NewRecorder()
	decoy.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Admin login\n", rec.Body.String())

	captured.mu.Lock()
	defer captured.mu.Unlock()
	require.Len(t, captured.events, 1)
	assert.Equal(t, "/admin", captured.events[0].Path)
	assert.Equal(t, "access_attempt", captured.events[0].Payload)
}

func TestDecoySurvivesAnalyzerOutage(t *testing.T) {
	decoy := New(":0", meshclient.New("http://127.0.0.1:1", 100*time.Millisecond), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.4:40000"
	rec := httptest.NewRecorder()
	decoy.Routes().ServeHTTP(rec, req)

	// Visitor still gets the banner even when reporting fails.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme WebApp")
}
