package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/config"
	"github.com/hackgods/practice-records/internal/practice"
	"github.com/hackgods/practice-records/internal/snapshot"
)

func TestNewServer(t *testing.T) {
	cfg := config.Config{HTTPPort: "9090", Env: "test"}
	store := practice.NewStore(snapshot.NewMemoryBackend())
	srv := newServer(cfg, store, prometheus.NewRegistry(), zerolog.Nop())

	if srv.Addr != ":9090" {
		t.Errorf("unexpected addr %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 {
		t.Error("expected a read header timeout")
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Version string `json:"version"`
		Env     string `json:"env"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Version != version || body.Env != "test" {
		t.Errorf("unexpected liveness body %+v", body)
	}
}
