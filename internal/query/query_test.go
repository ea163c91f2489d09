package query

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","uptimeMs":5000,"sessions":1}`))
	})
	mux.HandleFunc("GET /api/sessions/sess-1/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessionId":"sess-1","riskScore":40,"trust":62.5,"defcon":3,"activeThreats":["HIDDEN_CONTENT"],"eventCount":17}`))
	})
	mux.HandleFunc("GET /api/sessions/sess-1/snapshots/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"index":3,"timestamp":"2025-06-01T12:00:03Z","riskScore":55,"trustScore":60,"activeThreats":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	c := NewClient(testServer(t).URL)
	h, err := c.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.Sessions)
}

func TestMetrics(t *testing.T) {
	c := NewClient(testServer(t).URL)
	m, err := c.Metrics("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 40, m.RiskScore)
	assert.Equal(t, 62.5, m.Trust)
	assert.Equal(t, []string{"HIDDEN_CONTENT"}, m.ActiveThreats)
}

func TestSnapshotByIndex(t *testing.T) {
	c := NewClient(testServer(t).URL)
	s, err := c.SnapshotByIndex("sess-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Index)
	assert.Equal(t, 55.0, s.RiskScore)
}

func TestErrorStatusSurfaced(t *testing.T) {
	c := NewClient(testServer(t).URL)
	_, err := c.Metrics("sess-unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
