package practice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID identifies a record within its entity type. Values start at 1 and are
// never reused.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal identifier such as a URL parameter or document key.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("parse id %q: must be positive", s)
	}
	return ID(n), nil
}

// UnmarshalJSON accepts both 7 and "7"; form posts send ids as strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*id = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*id = ID(n)
	return nil
}

const (
	AppointmentScheduled = "Scheduled"
	PlanPlanned          = "Planned"
	PlanActive           = "Active"

	defaultAppointmentMinutes = 30
	defaultPlanMonths         = 18
)

type Patient struct {
	ID               ID        `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	DateOfBirth      string    `json:"date_of_birth"`
	Insurance        string    `json:"insurance"`
	InsuranceID      string    `json:"insurance_id,omitempty"`
	Address          string    `json:"address,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	EmergencyPhone   string    `json:"emergency_phone,omitempty"`
	MedicalHistory   string    `json:"medical_history,omitempty"`
	Allergies        string    `json:"allergies,omitempty"`
	ReferralSource   string    `json:"referral_source,omitempty"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
}

type Appointment struct {
	ID              ID     `json:"id"`
	PatientID       ID     `json:"patient_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
	Provider        string `json:"provider,omitempty"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	TreatmentNotes  string `json:"treatment_notes,omitempty"`
	NextRecommended string `json:"next_appointment_recommended,omitempty"`
}

// Phase is one step of a treatment plan, kept in plan order.
type Phase struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	DurationMonths int    `json:"duration_months,omitempty"`
}

type TreatmentPlan struct {
	ID                      ID        `json:"id"`
	PatientID               ID        `json:"patient_id"`
	Diagnosis               string    `json:"diagnosis"`
	TreatmentType           string    `json:"treatment_type"`
	StartDate               string    `json:"start_date"`
	EstimatedDurationMonths int       `json:"estimated_duration_months"`
	TotalCost               float64   `json:"total_cost"`
	InsuranceCoverage       float64   `json:"insurance_coverage"`
	PaymentPlan             string    `json:"payment_plan,omitempty"`
	TreatmentGoals          string    `json:"treatment_goals,omitempty"`
	AppliancesNeeded        []string  `json:"appliances_needed"`
	Phases                  []Phase   `json:"phases"`
	Status                  string    `json:"status"`
	Notes                   string    `json:"notes"`
	CreatedAt               time.Time `json:"created_at"`
}

type TreatmentRecord struct {
	ID                  ID       `json:"id"`
	PatientID           ID       `json:"patient_id"`
	AppointmentID       *ID      `json:"appointment_id,omitempty"`
	Date                string   `json:"date"`
	ProceduresPerformed []string `json:"procedures_performed"`
	AppliancesAdjusted  []string `json:"appliances_adjusted,omitempty"`
	Provider            string   `json:"provider"`
	ProgressNotes       string   `json:"progress_notes"`
	NextSteps           string   `json:"next_steps,omitempty"`
	PhotosTaken         bool     `json:"photos_taken"`
	XRaysTaken          bool     `json:"x_rays_taken"`
	ImpressionsTaken    bool     `json:"impressions_taken"`
}

type ProgressPhoto struct {
	ID              ID        `json:"id"`
	PatientID       ID        `json:"patient_id"`
	TreatmentPlanID *ID       `json:"treatment_plan_id,omitempty"`
	Date            string    `json:"date"`
	PhotoType       string    `json:"photo_type"`
	FilePath        string    `json:"file_path"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}

type Outcome struct {
	ID                  ID        `json:"id"`
	PatientID           ID        `json:"patient_id"`
	TreatmentPlanID     ID        `json:"treatment_plan_id"`
	CompletionDate      string    `json:"completion_date"`
	SuccessRating       int       `json:"success_rating"`
	PatientSatisfaction *int      `json:"patient_satisfaction,omitempty"`
	FinalPhotos         []string  `json:"final_photos,omitempty"`
	RetentionAppliance  string    `json:"retention_appliance,omitempty"`
	FollowUpSchedule    string    `json:"follow_up_schedule,omitempty"`
	Notes               string    `json:"notes"`
	CreatedAt           time.Time `json:"created_at"`
}

// Required-field checks run in declaration order so the first missing field
// is the one reported. The same checks gate records read back from a
// document.

func (p Patient) validate() error {
	return requireText("patient", "name", p.Name)
}

func (a Appointment) validate() error {
	if err := requireID("appointment", "patient_id", a.PatientID); err != nil {
		return err
	}
	if err := requireText("appointment", "date", a.Date); err != nil {
		return err
	}
	if err := requireText("appointment", "time", a.Time); err != nil {
		return err
	}
	return checkWhole("appointment", "duration_minutes", a.DurationMinutes)
}

func (t TreatmentPlan) validate() error {
	if err := requireID("treatment_plan", "patient_id", t.PatientID); err != nil {
		return err
	}
	if err := requireText("treatment_plan", "diagnosis", t.Diagnosis); err != nil {
		return err
	}
	if err := requireText("treatment_plan", "treatment_type", t.TreatmentType); err != nil {
		return err
	}
	if err := requireText("treatment_plan", "start_date", t.StartDate); err != nil {
		return err
	}
	if err := checkWhole("treatment_plan", "estimated_duration_months", t.EstimatedDurationMonths); err != nil {
		return err
	}
	if err := checkFinite("treatment_plan", "total_cost", t.TotalCost); err != nil {
		return err
	}
	return checkFinite("treatment_plan", "insurance_coverage", t.InsuranceCoverage)
}

func (r TreatmentRecord) validate() error {
	if err := requireID("treatment_record", "patient_id", r.PatientID); err != nil {
		return err
	}
	if err := requireText("treatment_record", "date", r.Date); err != nil {
		return err
	}
	if len(r.ProceduresPerformed) == 0 {
		return &ValidationError{Entity: "treatment_record", Field: "procedures_performed"}
	}
	for _, p := range r.ProceduresPerformed {
		if strings.TrimSpace(p) == "" {
			return &ValidationError{Entity: "treatment_record", Field: "procedures_performed", Reason: "must not contain blank entries"}
		}
	}
	return nil
}

func (p ProgressPhoto) validate() error {
	if err := requireID("progress_photo", "patient_id", p.PatientID); err != nil {
		return err
	}
	if err := requireText("progress_photo", "date", p.Date); err != nil {
		return err
	}
	return requireText("progress_photo", "photo_type", p.PhotoType)
}

func (o Outcome) validate() error {
	if err := requireID("outcome", "patient_id", o.PatientID); err != nil {
		return err
	}
	if err := requireID("outcome", "treatment_plan_id", o.TreatmentPlanID); err != nil {
		return err
	}
	if o.SuccessRating == 0 {
		return &ValidationError{Entity: "outcome", Field: "success_rating"}
	}
	if err := checkRating("success_rating", o.SuccessRating); err != nil {
		return err
	}
	if o.PatientSatisfaction != nil {
		return checkRating("patient_satisfaction", *o.PatientSatisfaction)
	}
	return nil
}

func requireText(entity, field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Entity: entity, Field: field}
	}
	return nil
}

func requireID(entity, field string, id ID) error {
	if id <= 0 {
		return &ValidationError{Entity: entity, Field: field}
	}
	return nil
}

// maxWhole bounds integer counts such as durations.
const maxWhole = 1_000_000

func checkWhole(entity, field string, v int) error {
	if v < -maxWhole || v > maxWhole {
		return &ValidationError{Entity: entity, Field: field, Reason: "out of range"}
	}
	return nil
}

func checkFinite(entity, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Entity: entity, Field: field, Reason: "must be a finite number"}
	}
	return nil
}

func checkRating(field string, v int) error {
	if v < 1 || v > 10 {
		return &ValidationError{Entity: "outcome", Field: field, Reason: "must be between 1 and 10"}
	}
	return nil
}

// clone helpers keep slices in snapshots independent of the store.

func (t TreatmentPlan) clone() TreatmentPlan {
	t.AppliancesNeeded = append([]string(nil), t.AppliancesNeeded...)
	t.Phases = append([]Phase(nil), t.Phases...)
	return t
}

func (r TreatmentRecord) clone() TreatmentRecord {
	r.ProceduresPerformed = append([]string(nil), r.ProceduresPerformed...)
	r.AppliancesAdjusted = append([]string(nil), r.AppliancesAdjusted...)
	if r.AppointmentID != nil {
		v := *r.AppointmentID
		r.AppointmentID = &v
	}
	return r
}

func (p ProgressPhoto) clone() ProgressPhoto {
	if p.TreatmentPlanID != nil {
		v := *p.TreatmentPlanID
		p.TreatmentPlanID = &v
	}
	return p
}

func (o Outcome) clone() Outcome {
	o.FinalPhotos = append([]string(nil), o.FinalPhotos...)
	if o.PatientSatisfaction != nil {
		v := *o.PatientSatisfaction
		o.PatientSatisfaction = &v
	}
	return o
}
