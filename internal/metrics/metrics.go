package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/practice-records/internal/practice"
)

// Store implements practice.Observer with Prometheus collectors.
type Store struct {
	mutations       *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	restoreLoaded   *prometheus.GaugeVec
	restoreSkipped  *prometheus.GaugeVec
}

var _ practice.Observer = (*Store)(nil)

// New registers the store collectors on reg.
func New(reg prometheus.Registerer) *Store {
	m := &Store{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Name:      "mutations_total",
			Help:      "Create, update and delete calls by entity, operation and outcome.",
		}, []string{"entity", "op", "outcome"}),
		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "practice",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing the snapshot document.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed.",
		}, []string{"backend"}),
		restoreLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "practice",
			Name:      "restore_records_loaded",
			Help:      "Records loaded by the last restore.",
		}, []string{"backend"}),
		restoreSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "practice",
			Name:      "restore_records_skipped",
			Help:      "Records skipped as invalid by the last restore.",
		}, []string{"backend"}),
	}
	reg.MustRegister(m.mutations, m.persistDuration, m.persistFailures, m.restoreLoaded, m.restoreSkipped)
	return m
}

func (m *Store) ObserveMutation(entity, op string, err error) {
	m.mutations.WithLabelValues(entity, op, outcome(err)).Inc()
}

func (m *Store) ObservePersist(backend string, d time.Duration, err error) {
	m.persistDuration.WithLabelValues(backend).Observe(d.Seconds())
	if err != nil {
		m.persistFailures.WithLabelValues(backend).Inc()
	}
}

func (m *Store) ObserveRestore(backend string, loaded, skipped int) {
	m.restoreLoaded.WithLabelValues(backend).Set(float64(loaded))
	m.restoreSkipped.WithLabelValues(backend).Set(float64(skipped))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, practice.ErrValidation):
		return "invalid"
	case errors.Is(err, practice.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, practice.ErrNotFound):
		return "not_found"
	case errors.Is(err, practice.ErrPersistence):
		return "persist_failed"
	default:
		return "error"
	}
}
