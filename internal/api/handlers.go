package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/practice-records/internal/practice"
)

const (
	maxBodyBytes = 1 << 20
	defaultWeeks = 4
)

// resource holds the CRUD calls of one entity type so a single set of
// handlers serves all six.
type resource[T, In, Patch any] struct {
	entity string
	insert func(context.Context, In) (T, error)
	modify func(context.Context, practice.ID, Patch) (T, error)
	del    func(context.Context, practice.ID) error
	lookup func(practice.ID) (T, bool)
}

func patients(s Store) resource[practice.Patient, practice.PatientInput, practice.PatientPatch] {
	return resource[practice.Patient, practice.PatientInput, practice.PatientPatch]{
		"patient", s.CreatePatient, s.UpdatePatient, s.DeletePatient, s.Patient,
	}
}

func appointments(s Store) resource[practice.Appointment, practice.AppointmentInput, practice.AppointmentPatch] {
	return resource[practice.Appointment, practice.AppointmentInput, practice.AppointmentPatch]{
		"appointment", s.CreateAppointment, s.UpdateAppointment, s.DeleteAppointment, s.Appointment,
	}
}

func treatmentPlans(s Store) resource[practice.TreatmentPlan, practice.TreatmentPlanInput, practice.TreatmentPlanPatch] {
	return resource[practice.TreatmentPlan, practice.TreatmentPlanInput, practice.TreatmentPlanPatch]{
		"treatment_plan", s.CreateTreatmentPlan, s.UpdateTreatmentPlan, s.DeleteTreatmentPlan, s.TreatmentPlan,
	}
}

func treatmentRecords(s Store) resource[practice.TreatmentRecord, practice.TreatmentRecordInput, practice.TreatmentRecordPatch] {
	return resource[practice.TreatmentRecord, practice.TreatmentRecordInput, practice.TreatmentRecordPatch]{
		"treatment_record", s.CreateTreatmentRecord, s.UpdateTreatmentRecord, s.DeleteTreatmentRecord, s.TreatmentRecord,
	}
}

func progressPhotos(s Store) resource[practice.ProgressPhoto, practice.ProgressPhotoInput, practice.ProgressPhotoPatch] {
	return resource[practice.ProgressPhoto, practice.ProgressPhotoInput, practice.ProgressPhotoPatch]{
		"progress_photo", s.CreateProgressPhoto, s.UpdateProgressPhoto, s.DeleteProgressPhoto, s.ProgressPhoto,
	}
}

func outcomes(s Store) resource[practice.Outcome, practice.OutcomeInput, practice.OutcomePatch] {
	return resource[practice.Outcome, practice.OutcomeInput, practice.OutcomePatch]{
		"outcome", s.CreateOutcome, s.UpdateOutcome, s.DeleteOutcome, s.Outcome,
	}
}

func (res resource[T, In, Patch]) create(w http.ResponseWriter, r *http.Request) {
	var in In
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := res.insert(r.Context(), in)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeData(w, http.StatusCreated, v)
}

func (res resource[T, In, Patch]) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	v, found := res.lookup(id)
	if !found {
		handleStoreError(w, &practice.NotFoundError{Entity: res.entity, ID: id})
		return
	}
	writeData(w, http.StatusOK, v)
}

func (res resource[T, In, Patch]) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var patch Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	v, err := res.modify(r.Context(), id, patch)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (res resource[T, In, Patch]) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := res.del(r.Context(), id); err != nil {
		handleStoreError(w, err)
		return
	}
	writeData(w, http.StatusOK, DeletedResponse{ID: id})
}

// handlers serves the filtered list and view endpoints.
type handlers struct {
	store Store
	now   func() time.Time
}

func (h *handlers) today() string {
	return h.now().Format(practice.DateLayout)
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.store.Snapshot().Stats(h.today()))
}

func (h *handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, nonNil(h.store.Snapshot().SearchPatients(r.URL.Query().Get("search"))))
}

func (h *handlers) patientDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	d, found := h.store.Snapshot().PatientDetail(id)
	if !found {
		handleStoreError(w, &practice.NotFoundError{Entity: "patient", ID: id})
		return
	}
	writeData(w, http.StatusOK, d)
}

// listAppointments defaults to today's day view. view=range groups by date
// over weeks (default 4) starting at date.
func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		date = h.today()
	}
	if _, err := time.Parse(practice.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	switch strings.ToLower(q.Get("view")) {
	case "", "day":
		writeData(w, http.StatusOK, nonNil(h.store.Snapshot().AppointmentsOn(date)))
	case "range":
		weeks := defaultWeeks
		if raw := q.Get("weeks"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid_weeks", "weeks must be a non-negative integer")
				return
			}
			weeks = n
		}
		days, err := h.store.Snapshot().AppointmentRange(date, weeks)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		end, _ := practice.RangeEnd(date, weeks)
		writeData(w, http.StatusOK, RangeResponse{Start: date, End: end, Weeks: weeks, Days: nonNil(days)})
	default:
		writeError(w, http.StatusBadRequest, "invalid_view", "view must be day or range")
	}
}

func (h *handlers) listTreatmentPlans(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	id, filtered, ok := patientFilter(w, r)
	if !ok {
		return
	}
	if filtered {
		writeData(w, http.StatusOK, nonNil(snap.PlansForPatient(id)))
		return
	}
	writeData(w, http.StatusOK, nonNil(snap.TreatmentPlansByStatus(r.URL.Query().Get("status"))))
}

func (h *handlers) listTreatmentRecords(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	id, filtered, ok := patientFilter(w, r)
	if !ok {
		return
	}
	if filtered {
		writeData(w, http.StatusOK, nonNil(snap.RecordsForPatient(id)))
		return
	}
	writeData(w, http.StatusOK, snap.TreatmentRecords)
}

func (h *handlers) listProgressPhotos(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	id, filtered, ok := patientFilter(w, r)
	if !ok {
		return
	}
	if filtered {
		writeData(w, http.StatusOK, nonNil(snap.PhotosForPatient(id)))
		return
	}
	writeData(w, http.StatusOK, snap.ProgressPhotos)
}

func (h *handlers) listOutcomes(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeData(w, http.StatusOK, OutcomesResponse{
		Outcomes: snap.OutcomeViews(),
		Summary:  snap.Summarize(),
	})
}

// patientFilter reads ?patient_id=. ok is false once an error response has
// been written.
func patientFilter(w http.ResponseWriter, r *http.Request) (id practice.ID, filtered, ok bool) {
	raw := r.URL.Query().Get("patient_id")
	if raw == "" {
		return 0, false, true
	}
	id, err := practice.ParseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a positive integer")
		return 0, false, false
	}
	return id, true, true
}

func idParam(w http.ResponseWriter, r *http.Request) (practice.ID, bool) {
	id, err := practice.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// nonNil keeps empty lists as [] in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func handleStoreError(w http.ResponseWriter, err error) {
	var (
		vErr *practice.ValidationError
		rErr *practice.InvalidReferenceError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.As(err, &rErr):
		writeError(w, http.StatusBadRequest, "invalid_reference", rErr.Error())
	case errors.Is(err, practice.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, practice.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "persistence_error", practice.ErrPersistence.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
