package main

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOperationMetrics_Record(t *testing.T) {
	var om OperationMetrics
	om.Record(10*time.Millisecond, http.StatusCreated, nil)
	om.Record(20*time.Millisecond, http.StatusBadRequest, nil)
	om.Record(30*time.Millisecond, http.StatusInternalServerError, nil)
	om.Record(40*time.Millisecond, 0, errors.New("connection refused"))

	if om.Total != 4 || om.Success != 1 || om.Rejected != 1 || om.Error != 2 {
		t.Errorf("unexpected counts: total=%d success=%d rejected=%d error=%d", om.Total, om.Success, om.Rejected, om.Error)
	}

	avg, lo, hi, p50, p95 := om.Stats()
	if avg != 25*time.Millisecond || lo != 10*time.Millisecond || hi != 40*time.Millisecond {
		t.Errorf("unexpected avg/min/max: %s %s %s", avg, lo, hi)
	}
	if p50 != 30*time.Millisecond || p95 != 40*time.Millisecond {
		t.Errorf("unexpected percentiles: p50=%s p95=%s", p50, p95)
	}
}

func TestOperationMetrics_EmptyStats(t *testing.T) {
	var om OperationMetrics
	if avg, _, _, _, _ := om.Stats(); avg != 0 {
		t.Errorf("expected zero stats, got %s", avg)
	}
}

func TestLoadConfig_NormalizesRatios(t *testing.T) {
	t.Setenv("SIM_WRITE_RATIO", "2")
	t.Setenv("SIM_UPDATE_RATIO", "1")
	t.Setenv("SIM_READ_RATIO", "1")
	t.Setenv("SIM_API_BASE_URL", "http://api:8080/")

	cfg := loadConfig()
	if cfg.WriteRatio != 0.5 || cfg.UpdateRatio != 0.25 || cfg.ReadRatio != 0.25 {
		t.Errorf("unexpected ratios: %+v", cfg)
	}
	if cfg.APIBaseURL != "http://api:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
}
