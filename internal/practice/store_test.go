package practice

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/hackgods/practice-records/internal/snapshot"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *snapshot.MemoryBackend) {
	t.Helper()
	backend := snapshot.NewMemoryBackend()
	s := NewStore(backend, WithClock(func() time.Time { return fixedNow }))
	return s, backend
}

type failingBackend struct {
	snapshot.MemoryBackend
	fail bool
}

func (b *failingBackend) Save(ctx context.Context, data []byte) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(ctx, data)
}

func mustPatient(t *testing.T, s *Store, name string) Patient {
	t.Helper()
	p, err := s.CreatePatient(context.Background(), PatientInput{Name: name, Phone: "555-0100"})
	if err != nil {
		t.Fatalf("create patient %q: %v", name, err)
	}
	return p
}

func TestCreatePatient_ThenList(t *testing.T) {
	s, backend := newTestStore(t)

	p, err := s.CreatePatient(context.Background(), PatientInput{Name: "Jane Doe", Phone: "555-0100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 1 {
		t.Errorf("expected id 1, got %d", p.ID)
	}

	list := s.Patients()
	if len(list) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(list))
	}
	if list[0].Name != "Jane Doe" || list[0].Phone != "555-0100" || list[0].ID != p.ID {
		t.Errorf("unexpected patient in list: %+v", list[0])
	}
	if backend.Saves() != 1 {
		t.Errorf("expected one save after create, got %d", backend.Saves())
	}
}

func TestCreate_IDsAreUniqueAndGetReturnsEqual(t *testing.T) {
	s, _ := newTestStore(t)
	seen := make(map[ID]bool)
	for _, name := range []string{"Ann", "Ben", "Cho", "Dee"} {
		p := mustPatient(t, s, name)
		if seen[p.ID] {
			t.Fatalf("id %d handed out twice", p.ID)
		}
		seen[p.ID] = true

		got, ok := s.Patient(p.ID)
		if !ok {
			t.Fatalf("patient %d not found after create", p.ID)
		}
		if got != p {
			t.Errorf("get returned %+v, want %+v", got, p)
		}
	}
}

func TestCreate_BlankRequiredField(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	p := mustPatient(t, s, "Jane Doe")
	savesBefore := backend.Saves()

	tests := []struct {
		name  string
		field string
		run   func() error
	}{
		{"patient name", "name", func() error {
			_, err := s.CreatePatient(ctx, PatientInput{Name: "   "})
			return err
		}},
		{"appointment time", "time", func() error {
			_, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: p.ID, Date: "2024-06-01", Time: "\t"})
			return err
		}},
		{"appointment patient", "patient_id", func() error {
			_, err := s.CreateAppointment(ctx, AppointmentInput{Date: "2024-06-01", Time: "09:00"})
			return err
		}},
		{"plan diagnosis", "diagnosis", func() error {
			_, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{PatientID: p.ID, TreatmentType: "Braces", StartDate: "2024-06-01"})
			return err
		}},
		{"record procedures", "procedures_performed", func() error {
			_, err := s.CreateTreatmentRecord(ctx, TreatmentRecordInput{PatientID: p.ID, Date: "2024-06-01"})
			return err
		}},
		{"photo type", "photo_type", func() error {
			_, err := s.CreateProgressPhoto(ctx, ProgressPhotoInput{PatientID: p.ID, Date: "2024-06-01", PhotoType: " "})
			return err
		}},
		{"outcome rating", "success_rating", func() error {
			_, err := s.CreateOutcome(ctx, OutcomeInput{PatientID: p.ID, TreatmentPlanID: 1})
			return err
		}},
		{"outcome rating range", "success_rating", func() error {
			_, err := s.CreateOutcome(ctx, OutcomeInput{PatientID: p.ID, TreatmentPlanID: 1, SuccessRating: Num(11)})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected field %q, got %v", tt.field, err)
			}
		})
	}

	if backend.Saves() != savesBefore {
		t.Errorf("rejected creates must not persist, saves went from %d to %d", savesBefore, backend.Saves())
	}
	if n := len(s.Appointments()) + len(s.TreatmentPlans()) + len(s.Outcomes()); n != 0 {
		t.Errorf("expected no partial creation, found %d records", n)
	}
}

func TestCreateAppointment_DanglingPatient(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CreateAppointment(context.Background(), AppointmentInput{PatientID: 999, Date: "2024-06-01", Time: "09:00"})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
	if len(s.Appointments()) != 0 {
		t.Errorf("appointment must not be added")
	}
}

func TestCreateTreatmentPlan_DanglingPatient(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CreateTreatmentPlan(context.Background(), TreatmentPlanInput{
		PatientID: 42, Diagnosis: "Class II", TreatmentType: "Braces", StartDate: "2024-06-01",
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestCreateOutcome_DoesNotCheckPatient(t *testing.T) {
	s, _ := newTestStore(t)

	o, err := s.CreateOutcome(context.Background(), OutcomeInput{PatientID: 77, TreatmentPlanID: 3, SuccessRating: Num(8)})
	if err != nil {
		t.Fatalf("outcomes accept unknown patients, got %v", err)
	}
	if o.PatientSatisfaction != nil {
		t.Errorf("expected no satisfaction score, got %d", *o.PatientSatisfaction)
	}
}

func TestCreate_Defaults(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := mustPatient(t, s, "Jane Doe")

	a, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: p.ID, Date: "2024-06-01", Time: "09:00"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if a.DurationMinutes != 30 || a.Status != AppointmentScheduled {
		t.Errorf("unexpected appointment defaults: %+v", a)
	}

	plan, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
		PatientID: p.ID, Diagnosis: "Crowding", TreatmentType: "Invisalign", StartDate: "2024-06-01",
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.EstimatedDurationMonths != 18 || plan.Status != PlanPlanned || plan.TotalCost != 0 {
		t.Errorf("unexpected plan defaults: %+v", plan)
	}
	if !plan.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected created_at from clock, got %s", plan.CreatedAt)
	}
}

func TestUpdate_MergesSuppliedFields(t *testing.T) {
	s, _ := newTestStore(t)
	p := mustPatient(t, s, "Jane Doe")

	email := "jane@example.com"
	got, err := s.UpdatePatient(context.Background(), p.ID, PatientPatch{Email: &email})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != email || got.Name != "Jane Doe" || got.Phone != "555-0100" {
		t.Errorf("unexpected merge result: %+v", got)
	}
}

func TestUpdate_BlankRequiredFieldRejected(t *testing.T) {
	s, _ := newTestStore(t)
	p := mustPatient(t, s, "Jane Doe")

	blank := " "
	if _, err := s.UpdatePatient(context.Background(), p.ID, PatientPatch{Name: &blank}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := s.Patient(p.ID); got.Name != "Jane Doe" {
		t.Errorf("rejected update changed the record: %+v", got)
	}
}

func TestUpdateAppointment_ChangingPatientChecksReference(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := mustPatient(t, s, "Jane Doe")
	a, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: p.ID, Date: "2024-06-01", Time: "09:00"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	missing := ID(404)
	if _, err := s.UpdateAppointment(ctx, a.ID, AppointmentPatch{PatientID: &missing}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestUpdate_IdempotentWithCurrentValues(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := mustPatient(t, s, "Jane Doe")
	plan, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
		PatientID: p.ID, Diagnosis: "Overbite", TreatmentType: "Braces", StartDate: "2024-06-01",
		AppliancesNeeded: []string{"brackets"},
		Phases:           []Phase{{Name: "Alignment", DurationMonths: 6}},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	before := s.Snapshot()

	patch := TreatmentPlanPatch{
		PatientID:               &plan.PatientID,
		Diagnosis:               &plan.Diagnosis,
		TreatmentType:           &plan.TreatmentType,
		StartDate:               &plan.StartDate,
		EstimatedDurationMonths: Num(float64(plan.EstimatedDurationMonths)),
		TotalCost:               Num(plan.TotalCost),
		InsuranceCoverage:       Num(plan.InsuranceCoverage),
		AppliancesNeeded:        &plan.AppliancesNeeded,
		Phases:                  &plan.Phases,
		Status:                  &plan.Status,
		Notes:                   &plan.Notes,
	}
	if _, err := s.UpdateTreatmentPlan(ctx, plan.ID, patch); err != nil {
		t.Fatalf("update plan: %v", err)
	}

	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("update with current values changed state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, ok := s.Patient(12); ok {
		t.Error("expected lookup of unknown id to report not found")
	}

	name := "x"
	if _, err := s.UpdatePatient(ctx, 12, PatientPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update: expected not found, got %v", err)
	}
	if err := s.DeletePatient(ctx, 12); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete patient: expected not found, got %v", err)
	}
	if err := s.DeleteOutcome(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete outcome: expected not found, got %v", err)
	}

	var nf *NotFoundError
	err := s.DeleteAppointment(ctx, 5)
	if !errors.As(err, &nf) || nf.Entity != "appointment" || nf.ID != 5 {
		t.Errorf("unexpected not found detail: %v", err)
	}
}

func TestDelete_IDsNotReused(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := mustPatient(t, s, "Ann")
	b := mustPatient(t, s, "Ben")

	if err := s.DeletePatient(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c := mustPatient(t, s, "Cho")
	if c.ID == b.ID || c.ID == a.ID {
		t.Errorf("id %d reused after delete", c.ID)
	}
	if len(s.Patients()) != 2 {
		t.Errorf("expected 2 patients, got %d", len(s.Patients()))
	}
}

func TestPersistFailure_KeepsMemory(t *testing.T) {
	backend := &failingBackend{fail: true}
	s := NewStore(backend)

	p, err := s.CreatePatient(context.Background(), PatientInput{Name: "Jane Doe"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if p.ID == 0 {
		t.Errorf("the created patient should still be returned")
	}
	if _, ok := s.Patient(p.ID); !ok {
		t.Errorf("memory must keep the patient after a failed save")
	}

	backend.fail = false
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("persist after recovery: %v", err)
	}
	if backend.Saves() != 1 {
		t.Errorf("expected 1 successful save, got %d", backend.Saves())
	}
}

func TestList_InsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"Zed", "Amy", "Moe"} {
		mustPatient(t, s, name)
	}
	var names []string
	for _, p := range s.Patients() {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"Zed", "Amy", "Moe"}) {
		t.Errorf("expected insertion order, got %v", names)
	}
}

func TestNumber_RejectsNonFinite(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`, `"+Inf"`} {
		var in TreatmentPlanInput
		if err := json.Unmarshal([]byte(`{"total_cost":`+raw+`}`), &in); err == nil {
			t.Errorf("%s: expected a decode error, got %+v", raw, in.TotalCost)
		}
	}

	var in AppointmentInput
	if err := json.Unmarshal([]byte(`{"duration_minutes":"45"}`), &in); err != nil || in.DurationMinutes.Value != 45 {
		t.Errorf("expected numeric string to decode, got %+v err %v", in.DurationMinutes, err)
	}
}

func TestCreate_BadNumbersDoNotBreakSaving(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := mustPatient(t, s, "Jane Doe")

	tests := []struct {
		name  string
		field string
		run   func() error
	}{
		{"nan cost", "total_cost", func() error {
			_, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
				PatientID: p.ID, Diagnosis: "Crowding", TreatmentType: "Braces", StartDate: "2024-06-01",
				TotalCost: Num(math.NaN()),
			})
			return err
		}},
		{"infinite coverage", "insurance_coverage", func() error {
			_, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
				PatientID: p.ID, Diagnosis: "Crowding", TreatmentType: "Braces", StartDate: "2024-06-01",
				InsuranceCoverage: Num(math.Inf(1)),
			})
			return err
		}},
		{"huge duration", "duration_minutes", func() error {
			_, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: p.ID, Date: "2024-06-01", Time: "09:00", DurationMinutes: Num(1e19)})
			return err
		}},
		{"huge negative months", "estimated_duration_months", func() error {
			_, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
				PatientID: p.ID, Diagnosis: "Crowding", TreatmentType: "Braces", StartDate: "2024-06-01",
				EstimatedDurationMonths: Num(-1e19),
			})
			return err
		}},
		{"huge rating", "success_rating", func() error {
			_, err := s.CreateOutcome(ctx, OutcomeInput{PatientID: p.ID, TreatmentPlanID: 1, SuccessRating: Num(1e19)})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			err := tt.run()
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %q, got %v", tt.field, err)
			}
		})
	}

	a, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: p.ID, Date: "2024-06-01", Time: "09:00"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if _, err := s.UpdateAppointment(ctx, a.ID, AppointmentPatch{DurationMinutes: Num(1e19)}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error on update, got %v", err)
	}
	if got, _ := s.Appointment(a.ID); got.DurationMinutes != defaultAppointmentMinutes {
		t.Errorf("rejected update must not change the record, got %d", got.DurationMinutes)
	}

	if _, err := s.CreatePatient(ctx, PatientInput{Name: "Unrelated"}); err != nil {
		t.Errorf("later creates must still persist, got %v", err)
	}
}
