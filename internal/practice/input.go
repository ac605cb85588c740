package practice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric input field. It decodes from a JSON number or a
// numeric string; null and "" leave it unset so the field default applies.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a set Number.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*n = Number{}
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %s", string(b))
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// intOr rounds to a whole number. Values past maxWhole are pinned just
// outside it so validation rejects them.
func (n Number) intOr(def int) int {
	if !n.Valid {
		return def
	}
	switch v := math.Round(n.Value); {
	case math.IsNaN(v), v > maxWhole:
		return maxWhole + 1
	case v < -maxWhole:
		return -maxWhole - 1
	default:
		return int(v)
	}
}

func (n Number) floatOr(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

type PatientInput struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	DateOfBirth      string `json:"date_of_birth"`
	Insurance        string `json:"insurance"`
	InsuranceID      string `json:"insurance_id"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
	MedicalHistory   string `json:"medical_history"`
	Allergies        string `json:"allergies"`
	ReferralSource   string `json:"referral_source"`
	Notes            string `json:"notes"`
}

// PatientPatch carries one optional field per updatable attribute. Nil
// fields keep their current value.
type PatientPatch struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	DateOfBirth      *string `json:"date_of_birth"`
	Insurance        *string `json:"insurance"`
	InsuranceID      *string `json:"insurance_id"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	EmergencyPhone   *string `json:"emergency_phone"`
	MedicalHistory   *string `json:"medical_history"`
	Allergies        *string `json:"allergies"`
	ReferralSource   *string `json:"referral_source"`
	Notes            *string `json:"notes"`
}

func (in PatientInput) build() Patient {
	return Patient{
		Name:             strings.TrimSpace(in.Name),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.TrimSpace(in.Email),
		DateOfBirth:      strings.TrimSpace(in.DateOfBirth),
		Insurance:        strings.TrimSpace(in.Insurance),
		InsuranceID:      strings.TrimSpace(in.InsuranceID),
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
		EmergencyPhone:   strings.TrimSpace(in.EmergencyPhone),
		MedicalHistory:   strings.TrimSpace(in.MedicalHistory),
		Allergies:        strings.TrimSpace(in.Allergies),
		ReferralSource:   strings.TrimSpace(in.ReferralSource),
		Notes:            strings.TrimSpace(in.Notes),
	}
}

func (p PatientPatch) apply(pt *Patient) {
	setText(&pt.Name, p.Name)
	setText(&pt.Phone, p.Phone)
	setText(&pt.Email, p.Email)
	setText(&pt.DateOfBirth, p.DateOfBirth)
	setText(&pt.Insurance, p.Insurance)
	setText(&pt.InsuranceID, p.InsuranceID)
	setText(&pt.Address, p.Address)
	setText(&pt.EmergencyContact, p.EmergencyContact)
	setText(&pt.EmergencyPhone, p.EmergencyPhone)
	setText(&pt.MedicalHistory, p.MedicalHistory)
	setText(&pt.Allergies, p.Allergies)
	setText(&pt.ReferralSource, p.ReferralSource)
	setText(&pt.Notes, p.Notes)
}

type AppointmentInput struct {
	PatientID       ID     `json:"patient_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes Number `json:"duration_minutes"`
	Reason          string `json:"reason"`
	Provider        string `json:"provider"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	TreatmentNotes  string `json:"treatment_notes"`
	NextRecommended string `json:"next_appointment_recommended"`
}

type AppointmentPatch struct {
	PatientID       *ID     `json:"patient_id"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	DurationMinutes Number  `json:"duration_minutes"`
	Reason          *string `json:"reason"`
	Provider        *string `json:"provider"`
	Status          *string `json:"status"`
	Notes           *string `json:"notes"`
	TreatmentNotes  *string `json:"treatment_notes"`
	NextRecommended *string `json:"next_appointment_recommended"`
}

func (in AppointmentInput) build() Appointment {
	a := Appointment{
		PatientID:       in.PatientID,
		Date:            strings.TrimSpace(in.Date),
		Time:            strings.TrimSpace(in.Time),
		DurationMinutes: in.DurationMinutes.intOr(defaultAppointmentMinutes),
		Reason:          strings.TrimSpace(in.Reason),
		Provider:        strings.TrimSpace(in.Provider),
		Status:          strings.TrimSpace(in.Status),
		Notes:           strings.TrimSpace(in.Notes),
		TreatmentNotes:  strings.TrimSpace(in.TreatmentNotes),
		NextRecommended: strings.TrimSpace(in.NextRecommended),
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	return a
}

func (p AppointmentPatch) apply(a *Appointment) {
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	setText(&a.Date, p.Date)
	setText(&a.Time, p.Time)
	if p.DurationMinutes.Valid {
		a.DurationMinutes = p.DurationMinutes.intOr(a.DurationMinutes)
	}
	setText(&a.Reason, p.Reason)
	setText(&a.Provider, p.Provider)
	setText(&a.Status, p.Status)
	setText(&a.Notes, p.Notes)
	setText(&a.TreatmentNotes, p.TreatmentNotes)
	setText(&a.NextRecommended, p.NextRecommended)
}

type TreatmentPlanInput struct {
	PatientID               ID       `json:"patient_id"`
	Diagnosis               string   `json:"diagnosis"`
	TreatmentType           string   `json:"treatment_type"`
	StartDate               string   `json:"start_date"`
	EstimatedDurationMonths Number   `json:"estimated_duration_months"`
	TotalCost               Number   `json:"total_cost"`
	InsuranceCoverage       Number   `json:"insurance_coverage"`
	PaymentPlan             string   `json:"payment_plan"`
	TreatmentGoals          string   `json:"treatment_goals"`
	AppliancesNeeded        []string `json:"appliances_needed"`
	Phases                  []Phase  `json:"phases"`
	Status                  string   `json:"status"`
	Notes                   string   `json:"notes"`
}

type TreatmentPlanPatch struct {
	PatientID               *ID       `json:"patient_id"`
	Diagnosis               *string   `json:"diagnosis"`
	TreatmentType           *string   `json:"treatment_type"`
	StartDate               *string   `json:"start_date"`
	EstimatedDurationMonths Number    `json:"estimated_duration_months"`
	TotalCost               Number    `json:"total_cost"`
	InsuranceCoverage       Number    `json:"insurance_coverage"`
	PaymentPlan             *string   `json:"payment_plan"`
	TreatmentGoals          *string   `json:"treatment_goals"`
	AppliancesNeeded        *[]string `json:"appliances_needed"`
	Phases                  *[]Phase  `json:"phases"`
	Status                  *string   `json:"status"`
	Notes                   *string   `json:"notes"`
}

func (in TreatmentPlanInput) build() TreatmentPlan {
	t := TreatmentPlan{
		PatientID:               in.PatientID,
		Diagnosis:               strings.TrimSpace(in.Diagnosis),
		TreatmentType:           strings.TrimSpace(in.TreatmentType),
		StartDate:               strings.TrimSpace(in.StartDate),
		EstimatedDurationMonths: in.EstimatedDurationMonths.intOr(defaultPlanMonths),
		TotalCost:               in.TotalCost.floatOr(0),
		InsuranceCoverage:       in.InsuranceCoverage.floatOr(0),
		PaymentPlan:             strings.TrimSpace(in.PaymentPlan),
		TreatmentGoals:          strings.TrimSpace(in.TreatmentGoals),
		AppliancesNeeded:        append([]string(nil), in.AppliancesNeeded...),
		Phases:                  append([]Phase(nil), in.Phases...),
		Status:                  strings.TrimSpace(in.Status),
		Notes:                   strings.TrimSpace(in.Notes),
	}
	if t.Status == "" {
		t.Status = PlanPlanned
	}
	return t
}

func (p TreatmentPlanPatch) apply(t *TreatmentPlan) {
	if p.PatientID != nil {
		t.PatientID = *p.PatientID
	}
	setText(&t.Diagnosis, p.Diagnosis)
	setText(&t.TreatmentType, p.TreatmentType)
	setText(&t.StartDate, p.StartDate)
	if p.EstimatedDurationMonths.Valid {
		t.EstimatedDurationMonths = p.EstimatedDurationMonths.intOr(t.EstimatedDurationMonths)
	}
	if p.TotalCost.Valid {
		t.TotalCost = p.TotalCost.Value
	}
	if p.InsuranceCoverage.Valid {
		t.InsuranceCoverage = p.InsuranceCoverage.Value
	}
	setText(&t.PaymentPlan, p.PaymentPlan)
	setText(&t.TreatmentGoals, p.TreatmentGoals)
	if p.AppliancesNeeded != nil {
		t.AppliancesNeeded = append([]string(nil), (*p.AppliancesNeeded)...)
	}
	if p.Phases != nil {
		t.Phases = append([]Phase(nil), (*p.Phases)...)
	}
	setText(&t.Status, p.Status)
	setText(&t.Notes, p.Notes)
}

type TreatmentRecordInput struct {
	PatientID           ID       `json:"patient_id"`
	AppointmentID       *ID      `json:"appointment_id"`
	Date                string   `json:"date"`
	ProceduresPerformed []string `json:"procedures_performed"`
	AppliancesAdjusted  []string `json:"appliances_adjusted"`
	Provider            string   `json:"provider"`
	ProgressNotes       string   `json:"progress_notes"`
	NextSteps           string   `json:"next_steps"`
	PhotosTaken         bool     `json:"photos_taken"`
	XRaysTaken          bool     `json:"x_rays_taken"`
	ImpressionsTaken    bool     `json:"impressions_taken"`
}

type TreatmentRecordPatch struct {
	PatientID           *ID       `json:"patient_id"`
	AppointmentID       *ID       `json:"appointment_id"` // 0 clears
	Date                *string   `json:"date"`
	ProceduresPerformed *[]string `json:"procedures_performed"`
	AppliancesAdjusted  *[]string `json:"appliances_adjusted"`
	Provider            *string   `json:"provider"`
	ProgressNotes       *string   `json:"progress_notes"`
	NextSteps           *string   `json:"next_steps"`
	PhotosTaken         *bool     `json:"photos_taken"`
	XRaysTaken          *bool     `json:"x_rays_taken"`
	ImpressionsTaken    *bool     `json:"impressions_taken"`
}

func (in TreatmentRecordInput) build() TreatmentRecord {
	return TreatmentRecord{
		PatientID:           in.PatientID,
		AppointmentID:       optionalID(in.AppointmentID),
		Date:                strings.TrimSpace(in.Date),
		ProceduresPerformed: append([]string(nil), in.ProceduresPerformed...),
		AppliancesAdjusted:  append([]string(nil), in.AppliancesAdjusted...),
		Provider:            strings.TrimSpace(in.Provider),
		ProgressNotes:       strings.TrimSpace(in.ProgressNotes),
		NextSteps:           strings.TrimSpace(in.NextSteps),
		PhotosTaken:         in.PhotosTaken,
		XRaysTaken:          in.XRaysTaken,
		ImpressionsTaken:    in.ImpressionsTaken,
	}
}

func (p TreatmentRecordPatch) apply(r *TreatmentRecord) {
	if p.PatientID != nil {
		r.PatientID = *p.PatientID
	}
	if p.AppointmentID != nil {
		r.AppointmentID = optionalID(p.AppointmentID)
	}
	setText(&r.Date, p.Date)
	if p.ProceduresPerformed != nil {
		r.ProceduresPerformed = append([]string(nil), (*p.ProceduresPerformed)...)
	}
	if p.AppliancesAdjusted != nil {
		r.AppliancesAdjusted = append([]string(nil), (*p.AppliancesAdjusted)...)
	}
	setText(&r.Provider, p.Provider)
	setText(&r.ProgressNotes, p.ProgressNotes)
	setText(&r.NextSteps, p.NextSteps)
	setBool(&r.PhotosTaken, p.PhotosTaken)
	setBool(&r.XRaysTaken, p.XRaysTaken)
	setBool(&r.ImpressionsTaken, p.ImpressionsTaken)
}

type ProgressPhotoInput struct {
	PatientID       ID     `json:"patient_id"`
	TreatmentPlanID *ID    `json:"treatment_plan_id"`
	Date            string `json:"date"`
	PhotoType       string `json:"photo_type"`
	FilePath        string `json:"file_path"`
	Description     string `json:"description"`
}

type ProgressPhotoPatch struct {
	PatientID       *ID     `json:"patient_id"`
	TreatmentPlanID *ID     `json:"treatment_plan_id"` // 0 clears
	Date            *string `json:"date"`
	PhotoType       *string `json:"photo_type"`
	FilePath        *string `json:"file_path"`
	Description     *string `json:"description"`
}

func (in ProgressPhotoInput) build() ProgressPhoto {
	return ProgressPhoto{
		PatientID:       in.PatientID,
		TreatmentPlanID: optionalID(in.TreatmentPlanID),
		Date:            strings.TrimSpace(in.Date),
		PhotoType:       strings.TrimSpace(in.PhotoType),
		FilePath:        strings.TrimSpace(in.FilePath),
		Description:     strings.TrimSpace(in.Description),
	}
}

func (p ProgressPhotoPatch) apply(pp *ProgressPhoto) {
	if p.PatientID != nil {
		pp.PatientID = *p.PatientID
	}
	if p.TreatmentPlanID != nil {
		pp.TreatmentPlanID = optionalID(p.TreatmentPlanID)
	}
	setText(&pp.Date, p.Date)
	setText(&pp.PhotoType, p.PhotoType)
	setText(&pp.FilePath, p.FilePath)
	setText(&pp.Description, p.Description)
}

type OutcomeInput struct {
	PatientID           ID       `json:"patient_id"`
	TreatmentPlanID     ID       `json:"treatment_plan_id"`
	CompletionDate      string   `json:"completion_date"`
	SuccessRating       Number   `json:"success_rating"`
	PatientSatisfaction Number   `json:"patient_satisfaction"`
	FinalPhotos         []string `json:"final_photos"`
	RetentionAppliance  string   `json:"retention_appliance"`
	FollowUpSchedule    string   `json:"follow_up_schedule"`
	Notes               string   `json:"notes"`
}

type OutcomePatch struct {
	PatientID           *ID       `json:"patient_id"`
	TreatmentPlanID     *ID       `json:"treatment_plan_id"`
	CompletionDate      *string   `json:"completion_date"`
	SuccessRating       Number    `json:"success_rating"`
	PatientSatisfaction Number    `json:"patient_satisfaction"` // 0 clears
	FinalPhotos         *[]string `json:"final_photos"`
	RetentionAppliance  *string   `json:"retention_appliance"`
	FollowUpSchedule    *string   `json:"follow_up_schedule"`
	Notes               *string   `json:"notes"`
}

func (in OutcomeInput) build() Outcome {
	return Outcome{
		PatientID:           in.PatientID,
		TreatmentPlanID:     in.TreatmentPlanID,
		CompletionDate:      strings.TrimSpace(in.CompletionDate),
		SuccessRating:       in.SuccessRating.intOr(0),
		PatientSatisfaction: optionalRating(in.PatientSatisfaction),
		FinalPhotos:         append([]string(nil), in.FinalPhotos...),
		RetentionAppliance:  strings.TrimSpace(in.RetentionAppliance),
		FollowUpSchedule:    strings.TrimSpace(in.FollowUpSchedule),
		Notes:               strings.TrimSpace(in.Notes),
	}
}

func (p OutcomePatch) apply(o *Outcome) {
	if p.PatientID != nil {
		o.PatientID = *p.PatientID
	}
	if p.TreatmentPlanID != nil {
		o.TreatmentPlanID = *p.TreatmentPlanID
	}
	setText(&o.CompletionDate, p.CompletionDate)
	if p.SuccessRating.Valid {
		o.SuccessRating = p.SuccessRating.intOr(o.SuccessRating)
	}
	if p.PatientSatisfaction.Valid {
		o.PatientSatisfaction = optionalRating(p.PatientSatisfaction)
	}
	if p.FinalPhotos != nil {
		o.FinalPhotos = append([]string(nil), (*p.FinalPhotos)...)
	}
	setText(&o.RetentionAppliance, p.RetentionAppliance)
	setText(&o.FollowUpSchedule, p.FollowUpSchedule)
	setText(&o.Notes, p.Notes)
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func optionalID(id *ID) *ID {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

// optionalRating treats an unset or zero satisfaction score as not given.
func optionalRating(n Number) *int {
	v := n.intOr(0)
	if v == 0 {
		return nil
	}
	return &v
}
