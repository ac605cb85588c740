package practice

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/hackgods/practice-records/internal/snapshot"
)

func seedAll(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	jane := mustPatient(t, s, "Jane Doe")
	omar := mustPatient(t, s, "Omar Haddad")

	if _, err := s.CreateAppointment(ctx, AppointmentInput{PatientID: jane.ID, Date: "2024-06-01", Time: "10:30", Reason: "Consultation"}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	plan, err := s.CreateTreatmentPlan(ctx, TreatmentPlanInput{
		PatientID: omar.ID, Diagnosis: "Crossbite", TreatmentType: "Expander", StartDate: "2024-05-01",
		TotalCost: Num(4200.5), Phases: []Phase{{Name: "Expansion", Description: "palatal", DurationMonths: 4}},
		Status: PlanActive,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	apptID := ID(1)
	if _, err := s.CreateTreatmentRecord(ctx, TreatmentRecordInput{
		PatientID: jane.ID, AppointmentID: &apptID, Date: "2024-06-01",
		ProceduresPerformed: []string{"wire change"}, XRaysTaken: true,
	}); err != nil {
		t.Fatalf("create record: %v", err)
	}
	if _, err := s.CreateProgressPhoto(ctx, ProgressPhotoInput{PatientID: omar.ID, TreatmentPlanID: &plan.ID, Date: "2024-05-01", PhotoType: "Intraoral"}); err != nil {
		t.Fatalf("create photo: %v", err)
	}
	if _, err := s.CreateOutcome(ctx, OutcomeInput{
		PatientID: omar.ID, TreatmentPlanID: plan.ID, CompletionDate: "2024-06-10",
		SuccessRating: Num(9), PatientSatisfaction: Num(8),
	}); err != nil {
		t.Fatalf("create outcome: %v", err)
	}
}

func TestPersistRestore_RoundTrip(t *testing.T) {
	backend := snapshot.NewMemoryBackend()
	s := NewStore(backend)
	seedAll(t, s)
	if err := s.DeletePatient(context.Background(), 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	before := s.Snapshot()

	restored := NewStore(backend)
	res := restored.Restore(context.Background())
	if res.Err != nil || !res.Found {
		t.Fatalf("unexpected restore result: %+v", res)
	}
	if res.Skipped != 0 {
		t.Errorf("expected nothing skipped, got %d", res.Skipped)
	}

	if after := restored.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("restored state differs:\nbefore %+v\nafter  %+v", before, after)
	}

	// Counters survive the round trip, including the deleted patient's id.
	p, err := restored.CreatePatient(context.Background(), PatientInput{Name: "New"})
	if err != nil {
		t.Fatalf("create after restore: %v", err)
	}
	if p.ID != 3 {
		t.Errorf("expected next patient id 3, got %d", p.ID)
	}
}

func TestRestore_MissingDocument(t *testing.T) {
	s := NewStore(snapshot.NewMemoryBackend())
	res := s.Restore(context.Background())
	if res.Found || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(s.Patients()) != 0 {
		t.Errorf("expected empty store")
	}
}

func TestRestore_CorruptDocumentStartsEmpty(t *testing.T) {
	backend := snapshot.NewMemoryBackend()
	s := NewStore(backend)
	mustPatient(t, s, "before restore")

	// Creating the patient saved a valid document; replace it.
	if err := backend.Save(context.Background(), []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	res := s.Restore(context.Background())
	if res.Err == nil {
		t.Fatal("expected a decode error to be reported")
	}
	if len(s.Patients()) != 0 {
		t.Errorf("expected empty store after corrupt restore")
	}
	if p := mustPatient(t, s, "after"); p.ID != 1 {
		t.Errorf("expected counters reset, got id %d", p.ID)
	}
}

func TestRestore_SkipsInvalidRecords(t *testing.T) {
	doc := `{
	  "version": 1,
	  "patients": {
	    "1": {"name": "Jane Doe", "phone": "555-0100", "favourite_colour": "teal"},
	    "2": {"name": "   "},
	    "abc": {"name": "Bad Key"},
	    "4": {"name": "Late Entry"}
	  },
	  "appointments": {
	    "1": {"patient_id": 1, "date": "2024-06-01", "time": "09:00"},
	    "2": {"patient_id": 1, "date": "2024-06-01"}
	  },
	  "outcomes": {
	    "1": {"patient_id": 1, "treatment_plan_id": 1, "success_rating": "x"}
	  }
	}`
	backend := snapshot.NewMemoryBackend()
	if err := backend.Save(context.Background(), []byte(doc)); err != nil {
		t.Fatal(err)
	}
	s := NewStore(backend)
	res := s.Restore(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Loaded != 3 || res.Skipped != 4 {
		t.Errorf("expected 3 loaded and 4 skipped, got %+v", res)
	}

	patients := s.Patients()
	if len(patients) != 2 || patients[0].Name != "Jane Doe" || patients[1].ID != 4 {
		t.Fatalf("unexpected patients: %+v", patients)
	}

	// Without next_ids the counter continues after the largest loaded id.
	if p := mustPatient(t, s, "Next"); p.ID != 5 {
		t.Errorf("expected id 5, got %d", p.ID)
	}
	if a := s.Appointments(); len(a) != 1 || a[0].DurationMinutes != 0 {
		t.Errorf("unexpected appointments: %+v", a)
	}
}

func TestDocument_Format(t *testing.T) {
	s, _ := newTestStore(t)
	mustPatient(t, s, "Jane Doe")

	data, err := s.Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"patients\"") {
		t.Errorf("expected two-space indentation, got:\n%s", data)
	}

	var doc struct {
		Version  int                        `json:"version"`
		Patients map[string]json.RawMessage `json:"patients"`
		NextIDs  map[string]int64           `json:"next_ids"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Version != documentVersion {
		t.Errorf("unexpected version %d", doc.Version)
	}
	if _, ok := doc.Patients["1"]; !ok {
		t.Errorf("expected patient keyed by \"1\", got %v", doc.Patients)
	}
	if doc.NextIDs["patients"] != 2 || doc.NextIDs["outcomes"] != 1 {
		t.Errorf("unexpected counters: %v", doc.NextIDs)
	}
}
