package practice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/snapshot"
)

// Observer receives store activity. internal/metrics implements it.
type Observer interface {
	ObserveMutation(entity, op string, err error)
	ObservePersist(backend string, d time.Duration, err error)
	ObserveRestore(backend string, loaded, skipped int)
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, string, error)       {}
func (nopObserver) ObservePersist(string, time.Duration, error) {}
func (nopObserver) ObserveRestore(string, int, int)             {}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides the source of created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns every practice collection. Each mutation validates, updates
// memory and then writes the whole document to the backend before
// returning. Operations are serialized, so a request runs to completion
// before the next one starts.
type Store struct {
	mu       sync.Mutex
	backend  snapshot.Backend
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time

	patients     *collection[Patient]
	appointments *collection[Appointment]
	plans        *collection[TreatmentPlan]
	records      *collection[TreatmentRecord]
	photos       *collection[ProgressPhoto]
	outcomes     *collection[Outcome]
}

// NewStore returns an empty store backed by backend. Call Restore to load
// the saved document.
func NewStore(backend snapshot.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		now:      time.Now,

		patients: newCollection("patient", "patients",
			func(p *Patient, id ID) { p.ID = id }, Patient.validate, nil),
		appointments: newCollection("appointment", "appointments",
			func(a *Appointment, id ID) { a.ID = id }, Appointment.validate, nil),
		plans: newCollection("treatment_plan", "treatment_plans",
			func(t *TreatmentPlan, id ID) { t.ID = id }, TreatmentPlan.validate, TreatmentPlan.clone),
		records: newCollection("treatment_record", "treatment_records",
			func(r *TreatmentRecord, id ID) { r.ID = id }, TreatmentRecord.validate, TreatmentRecord.clone),
		photos: newCollection("progress_photo", "progress_photos",
			func(p *ProgressPhoto, id ID) { p.ID = id }, ProgressPhoto.validate, ProgressPhoto.clone),
		outcomes: newCollection("outcome", "outcomes",
			func(o *Outcome, id ID) { o.ID = id }, Outcome.validate, Outcome.clone),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BackendName reports where the document is kept.
func (s *Store) BackendName() string { return s.backend.Name() }

// Ping checks the backend when it is a remote service.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(snapshot.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// RestoreResult describes what Restore found. Err is set when the document
// could not be read or decoded; the store is empty in that case.
type RestoreResult struct {
	Found   bool
	Loaded  int
	Skipped int
	Err     error
}

// Restore replaces the in-memory state with the saved document. A missing
// or unreadable document leaves an empty store; this never fails startup.
func (s *Store) Restore(ctx context.Context) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.backend.Name()
	data, err := s.backend.Load(ctx)
	if err != nil {
		s.resetLocked()
		if errors.Is(err, snapshot.ErrNotExist) {
			s.logger.Info().Str("backend", name).Msg("no snapshot found, starting with an empty store")
			s.observer.ObserveRestore(name, 0, 0)
			return RestoreResult{}
		}
		s.logger.Error().Err(err).Str("backend", name).Msg("could not load snapshot, starting with an empty store")
		s.observer.ObserveRestore(name, 0, 0)
		return RestoreResult{Err: err}
	}

	st, err := s.decodeLocked(data)
	if err != nil {
		s.resetLocked()
		s.logger.Error().Err(err).Str("backend", name).Msg("snapshot is corrupt, starting with an empty store")
		s.observer.ObserveRestore(name, 0, 0)
		return RestoreResult{Found: true, Err: err}
	}

	s.logger.Info().
		Str("backend", name).
		Int("loaded", st.loaded).
		Int("skipped", st.skipped).
		Msg("snapshot restored")
	s.observer.ObserveRestore(name, st.loaded, st.skipped)
	return RestoreResult{Found: true, Loaded: st.loaded, Skipped: st.skipped}
}

func (s *Store) resetLocked() {
	s.patients.reset()
	s.appointments.reset()
	s.plans.reset()
	s.records.reset()
	s.photos.reset()
	s.outcomes.reset()
}

// Persist writes the full document to the backend. On failure memory is
// left as is and a *PersistenceError is returned.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	name := s.backend.Name()
	data, err := s.encodeLocked()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode snapshot")
		return &PersistenceError{Backend: name, Err: err}
	}

	start := time.Now()
	err = s.backend.Save(ctx, data)
	s.observer.ObservePersist(name, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("backend", name).Msg("failed to save snapshot")
		return &PersistenceError{Backend: name, Err: err}
	}
	return nil
}

// Document returns the encoded document as it would be persisted now.
func (s *Store) Document() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encodeLocked()
}

func (s *Store) requirePatient(entity string, id ID) error {
	if !s.patients.has(id) {
		return &InvalidReferenceError{Entity: entity, Field: "patient_id", ID: id}
	}
	return nil
}

func (s *Store) finish(entity, op string, err error) error {
	s.observer.ObserveMutation(entity, op, err)
	if err != nil && !errors.Is(err, ErrPersistence) {
		s.logger.Debug().Err(err).Str("entity", entity).Str("op", op).Msg("mutation rejected")
	}
	return err
}

// The generic helpers below run with s.mu held.

func createIn[T any](ctx context.Context, s *Store, c *collection[T], v T, refs func(T) error) (T, error) {
	var zero T
	if err := c.validate(v); err != nil {
		return zero, s.finish(c.entity, "create", err)
	}
	if refs != nil {
		if err := refs(v); err != nil {
			return zero, s.finish(c.entity, "create", err)
		}
	}

	id := c.assign()
	c.setID(&v, id)
	c.items[id] = v

	return c.clone(v), s.finish(c.entity, "create", s.persistLocked(ctx))
}

func updateIn[T any](ctx context.Context, s *Store, c *collection[T], id ID, apply func(*T), refs func(before, after T) error) (T, error) {
	var zero T
	cur, ok := c.items[id]
	if !ok {
		return zero, s.finish(c.entity, "update", &NotFoundError{Entity: c.entity, ID: id})
	}

	next := c.clone(cur)
	apply(&next)
	c.setID(&next, id)
	if err := c.validate(next); err != nil {
		return zero, s.finish(c.entity, "update", err)
	}
	if refs != nil {
		if err := refs(cur, next); err != nil {
			return zero, s.finish(c.entity, "update", err)
		}
	}

	c.items[id] = next
	return c.clone(next), s.finish(c.entity, "update", s.persistLocked(ctx))
}

func deleteIn[T any](ctx context.Context, s *Store, c *collection[T], id ID) error {
	if !c.has(id) {
		return s.finish(c.entity, "delete", &NotFoundError{Entity: c.entity, ID: id})
	}
	delete(c.items, id)
	return s.finish(c.entity, "delete", s.persistLocked(ctx))
}

func getIn[T any](s *Store, c *collection[T], id ID) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.get(id)
}

func listIn[T any](s *Store, c *collection[T]) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.list()
}

// Snapshot copies every collection for the read-only view functions.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Patients:         s.patients.list(),
		Appointments:     s.appointments.list(),
		TreatmentPlans:   s.plans.list(),
		TreatmentRecords: s.records.list(),
		ProgressPhotos:   s.photos.list(),
		Outcomes:         s.outcomes.list(),
	}
}
