package practice

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// DateLayout is the format of every date field.
const DateLayout = "2006-01-02"

const (
	UnknownPatient    = "Unknown Patient"
	recentPatientsMax = 5
)

// Snapshot is a point-in-time copy of the store. Its methods are pure reads.
type Snapshot struct {
	Patients         []Patient
	Appointments     []Appointment
	TreatmentPlans   []TreatmentPlan
	TreatmentRecords []TreatmentRecord
	ProgressPhotos   []ProgressPhoto
	Outcomes         []Outcome
}

func (s Snapshot) patientIndex() map[ID]Patient {
	idx := make(map[ID]Patient, len(s.Patients))
	for _, p := range s.Patients {
		idx[p.ID] = p
	}
	return idx
}

// AppointmentView is an appointment joined with its patient's display fields.
type AppointmentView struct {
	Appointment
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
}

// DaySchedule groups the appointments of one date.
type DaySchedule struct {
	Date         string            `json:"date"`
	Appointments []AppointmentView `json:"appointments"`
}

// AppointmentsOn returns the appointments on date, earliest first.
// Appointments whose patient no longer exists are left out.
func (s Snapshot) AppointmentsOn(date string) []AppointmentView {
	return s.joinAppointments(func(a Appointment) bool { return a.Date == date })
}

// AppointmentRange returns appointments from start through start plus
// weeks*7 days inclusive, grouped by date in ascending order. The end is a
// fixed day offset, not calendar month arithmetic.
func (s Snapshot) AppointmentRange(start string, weeks int) ([]DaySchedule, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, err
	}
	to := from.AddDate(0, 0, 7*weeks)

	views := s.joinAppointments(func(a Appointment) bool {
		d, err := time.Parse(DateLayout, a.Date)
		if err != nil {
			return false
		}
		return !d.Before(from) && !d.After(to)
	})

	var days []DaySchedule
	byDate := make(map[string]int)
	for _, v := range views {
		i, ok := byDate[v.Date]
		if !ok {
			i = len(days)
			byDate[v.Date] = i
			days = append(days, DaySchedule{Date: v.Date})
		}
		days[i].Appointments = append(days[i].Appointments, v)
	}
	slices.SortFunc(days, func(a, b DaySchedule) int { return strings.Compare(a.Date, b.Date) })
	return days, nil
}

// RangeEnd is the last date included by AppointmentRange.
func RangeEnd(start string, weeks int) (string, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return "", err
	}
	return from.AddDate(0, 0, 7*weeks).Format(DateLayout), nil
}

func (s Snapshot) joinAppointments(keep func(Appointment) bool) []AppointmentView {
	patients := s.patientIndex()
	var out []AppointmentView
	for _, a := range s.Appointments {
		if !keep(a) {
			continue
		}
		p, ok := patients[a.PatientID]
		if !ok {
			continue
		}
		out = append(out, AppointmentView{Appointment: a, PatientName: p.Name, PatientPhone: p.Phone})
	}
	slices.SortStableFunc(out, func(a, b AppointmentView) int { return strings.Compare(a.Time, b.Time) })
	return out
}

// SearchPatients matches q case-insensitively against name, phone and
// email. A blank q matches everyone. Results are sorted by name.
func (s Snapshot) SearchPatients(q string) []Patient {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []Patient
	for _, p := range s.Patients {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Phone), q) ||
			strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Patient) int { return strings.Compare(a.Name, b.Name) })
	return out
}

type TreatmentPlanView struct {
	TreatmentPlan
	PatientName string `json:"patient_name"`
}

// TreatmentPlansByStatus filters by status, case-insensitively; "all" or ""
// keeps every plan. Newest start date first.
func (s Snapshot) TreatmentPlansByStatus(status string) []TreatmentPlanView {
	status = strings.TrimSpace(status)
	all := status == "" || strings.EqualFold(status, "all")
	patients := s.patientIndex()

	var out []TreatmentPlanView
	for _, t := range s.TreatmentPlans {
		if !all && !strings.EqualFold(t.Status, status) {
			continue
		}
		name := UnknownPatient
		if p, ok := patients[t.PatientID]; ok {
			name = p.Name
		}
		out = append(out, TreatmentPlanView{TreatmentPlan: t, PatientName: name})
	}
	slices.SortStableFunc(out, func(a, b TreatmentPlanView) int { return strings.Compare(b.StartDate, a.StartDate) })
	return out
}

// PlansForPatient returns the plans of one patient in insertion order.
func (s Snapshot) PlansForPatient(id ID) []TreatmentPlan {
	var out []TreatmentPlan
	for _, t := range s.TreatmentPlans {
		if t.PatientID == id {
			out = append(out, t)
		}
	}
	return out
}

// RecordsForPatient returns treatment records of one patient, newest first.
func (s Snapshot) RecordsForPatient(id ID) []TreatmentRecord {
	var out []TreatmentRecord
	for _, r := range s.TreatmentRecords {
		if r.PatientID == id {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b TreatmentRecord) int { return strings.Compare(b.Date, a.Date) })
	return out
}

// PhotosForPatient returns progress photos of one patient, newest first.
func (s Snapshot) PhotosForPatient(id ID) []ProgressPhoto {
	var out []ProgressPhoto
	for _, p := range s.ProgressPhotos {
		if p.PatientID == id {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b ProgressPhoto) int { return strings.Compare(b.Date, a.Date) })
	return out
}

// OutcomeView carries the join fields; they stay empty when the patient or
// plan is missing, and the outcome is still listed.
type OutcomeView struct {
	Outcome
	PatientName   string `json:"patient_name,omitempty"`
	TreatmentType string `json:"treatment_type,omitempty"`
}

// OutcomeViews lists outcomes by completion date, newest first, with
// undated outcomes last.
func (s Snapshot) OutcomeViews() []OutcomeView {
	patients := s.patientIndex()
	plans := make(map[ID]TreatmentPlan, len(s.TreatmentPlans))
	for _, t := range s.TreatmentPlans {
		plans[t.ID] = t
	}

	out := make([]OutcomeView, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		v := OutcomeView{Outcome: o}
		if p, ok := patients[o.PatientID]; ok {
			v.PatientName = p.Name
		}
		if t, ok := plans[o.TreatmentPlanID]; ok {
			v.TreatmentType = t.TreatmentType
		}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b OutcomeView) int {
		switch {
		case a.CompletionDate == "" && b.CompletionDate == "":
			return 0
		case a.CompletionDate == "":
			return 1
		case b.CompletionDate == "":
			return -1
		}
		return strings.Compare(b.CompletionDate, a.CompletionDate)
	})
	return out
}

type PatientDetail struct {
	Patient          Patient           `json:"patient"`
	TreatmentPlans   []TreatmentPlan   `json:"treatment_plans"`
	Appointments     []Appointment     `json:"appointments"`
	TreatmentRecords []TreatmentRecord `json:"treatment_records"`
	ProgressPhotos   []ProgressPhoto   `json:"progress_photos"`
}

// PatientDetail gathers everything recorded for one patient. Appointments
// are in date and time order.
func (s Snapshot) PatientDetail(id ID) (PatientDetail, bool) {
	var d PatientDetail
	found := false
	for _, p := range s.Patients {
		if p.ID == id {
			d.Patient = p
			found = true
			break
		}
	}
	if !found {
		return PatientDetail{}, false
	}

	for _, a := range s.Appointments {
		if a.PatientID == id {
			d.Appointments = append(d.Appointments, a)
		}
	}
	slices.SortStableFunc(d.Appointments, func(a, b Appointment) int {
		return cmp.Or(strings.Compare(a.Date, b.Date), strings.Compare(a.Time, b.Time))
	})
	d.TreatmentPlans = s.PlansForPatient(id)
	d.TreatmentRecords = s.RecordsForPatient(id)
	d.ProgressPhotos = s.PhotosForPatient(id)
	return d, true
}

// OutcomeSummary aggregates outcome ratings. Averages are 0 when there is
// nothing to average.
type OutcomeSummary struct {
	Total               int     `json:"total"`
	Completed           int     `json:"completed"`
	AvgSuccessRating    float64 `json:"avg_success_rating"`
	AvgSatisfaction     float64 `json:"avg_satisfaction"`
	SatisfactionSamples int     `json:"satisfaction_samples"`
}

// Summarize averages success over every outcome and satisfaction over the
// outcomes that have a satisfaction score.
func (s Snapshot) Summarize() OutcomeSummary {
	sum := OutcomeSummary{Total: len(s.Outcomes)}
	var success, satisfaction int
	for _, o := range s.Outcomes {
		if o.CompletionDate != "" {
			sum.Completed++
		}
		success += o.SuccessRating
		if o.PatientSatisfaction != nil {
			satisfaction += *o.PatientSatisfaction
			sum.SatisfactionSamples++
		}
	}
	if sum.Total > 0 {
		sum.AvgSuccessRating = float64(success) / float64(sum.Total)
	}
	if sum.SatisfactionSamples > 0 {
		sum.AvgSatisfaction = float64(satisfaction) / float64(sum.SatisfactionSamples)
	}
	return sum
}

type Stats struct {
	TotalPatients     int            `json:"total_patients"`
	ActiveTreatments  int            `json:"active_treatments"`
	TodayAppointments int            `json:"today_appointments"`
	Outcomes          OutcomeSummary `json:"outcomes"`
	RecentPatients    []Patient      `json:"recent_patients"`
}

// Stats computes the dashboard figures for the given day (YYYY-MM-DD).
func (s Snapshot) Stats(today string) Stats {
	st := Stats{
		TotalPatients: len(s.Patients),
		Outcomes:      s.Summarize(),
	}
	for _, t := range s.TreatmentPlans {
		if strings.EqualFold(t.Status, PlanActive) {
			st.ActiveTreatments++
		}
	}
	for _, a := range s.Appointments {
		if a.Date == today {
			st.TodayAppointments++
		}
	}

	recent := slices.Clone(s.Patients)
	slices.SortStableFunc(recent, func(a, b Patient) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(recent) > recentPatientsMax {
		recent = recent[:recentPatientsMax]
	}
	st.RecentPatients = recent
	return st
}
