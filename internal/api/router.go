package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/practice"
)

// Store is the part of *practice.Store the handlers use.
type Store interface {
	BackendName() string
	Ping(ctx context.Context) error
	Snapshot() practice.Snapshot

	CreatePatient(ctx context.Context, in practice.PatientInput) (practice.Patient, error)
	UpdatePatient(ctx context.Context, id practice.ID, p practice.PatientPatch) (practice.Patient, error)
	DeletePatient(ctx context.Context, id practice.ID) error
	Patient(id practice.ID) (practice.Patient, bool)

	CreateAppointment(ctx context.Context, in practice.AppointmentInput) (practice.Appointment, error)
	UpdateAppointment(ctx context.Context, id practice.ID, p practice.AppointmentPatch) (practice.Appointment, error)
	DeleteAppointment(ctx context.Context, id practice.ID) error
	Appointment(id practice.ID) (practice.Appointment, bool)

	CreateTreatmentPlan(ctx context.Context, in practice.TreatmentPlanInput) (practice.TreatmentPlan, error)
	UpdateTreatmentPlan(ctx context.Context, id practice.ID, p practice.TreatmentPlanPatch) (practice.TreatmentPlan, error)
	DeleteTreatmentPlan(ctx context.Context, id practice.ID) error
	TreatmentPlan(id practice.ID) (practice.TreatmentPlan, bool)

	CreateTreatmentRecord(ctx context.Context, in practice.TreatmentRecordInput) (practice.TreatmentRecord, error)
	UpdateTreatmentRecord(ctx context.Context, id practice.ID, p practice.TreatmentRecordPatch) (practice.TreatmentRecord, error)
	DeleteTreatmentRecord(ctx context.Context, id practice.ID) error
	TreatmentRecord(id practice.ID) (practice.TreatmentRecord, bool)

	CreateProgressPhoto(ctx context.Context, in practice.ProgressPhotoInput) (practice.ProgressPhoto, error)
	UpdateProgressPhoto(ctx context.Context, id practice.ID, p practice.ProgressPhotoPatch) (practice.ProgressPhoto, error)
	DeleteProgressPhoto(ctx context.Context, id practice.ID) error
	ProgressPhoto(id practice.ID) (practice.ProgressPhoto, bool)

	CreateOutcome(ctx context.Context, in practice.OutcomeInput) (practice.Outcome, error)
	UpdateOutcome(ctx context.Context, id practice.ID, p practice.OutcomePatch) (practice.Outcome, error)
	DeleteOutcome(ctx context.Context, id practice.ID) error
	Outcome(id practice.ID) (practice.Outcome, bool)
}

var _ Store = (*practice.Store)(nil)

type RouterConfig struct {
	Store    Store
	Logger   zerolog.Logger
	Gatherer prometheus.Gatherer // nil disables /metrics
	Env      string
	Version  string
	Now      func() time.Time // defaults to time.Now
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &handlers{store: cfg.Store, now: cfg.Now}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Store, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)

		r.Route("/patients", func(r chi.Router) {
			mount(r, patients(cfg.Store), h.listPatients)
			r.Get("/{id}/detail", h.patientDetail)
		})
		r.Route("/appointments", func(r chi.Router) {
			mount(r, appointments(cfg.Store), h.listAppointments)
		})
		r.Route("/treatment-plans", func(r chi.Router) {
			mount(r, treatmentPlans(cfg.Store), h.listTreatmentPlans)
		})
		r.Route("/treatment-records", func(r chi.Router) {
			mount(r, treatmentRecords(cfg.Store), h.listTreatmentRecords)
		})
		r.Route("/progress-photos", func(r chi.Router) {
			mount(r, progressPhotos(cfg.Store), h.listProgressPhotos)
		})
		r.Route("/outcomes", func(r chi.Router) {
			mount(r, outcomes(cfg.Store), h.listOutcomes)
		})
	})

	return r
}

func mount[T, In, Patch any](r chi.Router, res resource[T, In, Patch], list http.HandlerFunc) {
	r.Get("/", list)
	r.Post("/", res.create)
	r.Get("/{id}", res.get)
	r.Put("/{id}", res.update)
	r.Delete("/{id}", res.remove)
}
