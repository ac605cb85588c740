package practice

import "context"

// Patients

func (s *Store) CreatePatient(ctx context.Context, in PatientInput) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := in.build()
	p.CreatedAt = s.now().UTC()
	return createIn(ctx, s, s.patients, p, nil)
}

func (s *Store) UpdatePatient(ctx context.Context, id ID, patch PatientPatch) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.patients, id, patch.apply, nil)
}

// DeletePatient removes the patient only. Records that reference it are
// kept and simply stop joining in views.
func (s *Store) DeletePatient(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.patients, id)
}

func (s *Store) Patient(id ID) (Patient, bool) { return getIn(s, s.patients, id) }

func (s *Store) Patients() []Patient { return listIn(s, s.patients) }

// Appointments

// CreateAppointment requires the referenced patient to exist.
func (s *Store) CreateAppointment(ctx context.Context, in AppointmentInput) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createIn(ctx, s, s.appointments, in.build(), func(a Appointment) error {
		return s.requirePatient("appointment", a.PatientID)
	})
}

func (s *Store) UpdateAppointment(ctx context.Context, id ID, patch AppointmentPatch) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.appointments, id, patch.apply, func(before, after Appointment) error {
		if before.PatientID == after.PatientID {
			return nil
		}
		return s.requirePatient("appointment", after.PatientID)
	})
}

func (s *Store) DeleteAppointment(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.appointments, id)
}

func (s *Store) Appointment(id ID) (Appointment, bool) { return getIn(s, s.appointments, id) }

func (s *Store) Appointments() []Appointment { return listIn(s, s.appointments) }

// Treatment plans

// CreateTreatmentPlan requires the referenced patient to exist.
func (s *Store) CreateTreatmentPlan(ctx context.Context, in TreatmentPlanInput) (TreatmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := in.build()
	t.CreatedAt = s.now().UTC()
	return createIn(ctx, s, s.plans, t, func(t TreatmentPlan) error {
		return s.requirePatient("treatment_plan", t.PatientID)
	})
}

func (s *Store) UpdateTreatmentPlan(ctx context.Context, id ID, patch TreatmentPlanPatch) (TreatmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.plans, id, patch.apply, func(before, after TreatmentPlan) error {
		if before.PatientID == after.PatientID {
			return nil
		}
		return s.requirePatient("treatment_plan", after.PatientID)
	})
}

func (s *Store) DeleteTreatmentPlan(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.plans, id)
}

func (s *Store) TreatmentPlan(id ID) (TreatmentPlan, bool) { return getIn(s, s.plans, id) }

func (s *Store) TreatmentPlans() []TreatmentPlan { return listIn(s, s.plans) }

// Treatment records, progress photos and outcomes accept any patient id.

func (s *Store) CreateTreatmentRecord(ctx context.Context, in TreatmentRecordInput) (TreatmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createIn(ctx, s, s.records, in.build(), nil)
}

func (s *Store) UpdateTreatmentRecord(ctx context.Context, id ID, patch TreatmentRecordPatch) (TreatmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.records, id, patch.apply, nil)
}

func (s *Store) DeleteTreatmentRecord(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.records, id)
}

func (s *Store) TreatmentRecord(id ID) (TreatmentRecord, bool) { return getIn(s, s.records, id) }

func (s *Store) TreatmentRecords() []TreatmentRecord { return listIn(s, s.records) }

func (s *Store) CreateProgressPhoto(ctx context.Context, in ProgressPhotoInput) (ProgressPhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := in.build()
	p.CreatedAt = s.now().UTC()
	return createIn(ctx, s, s.photos, p, nil)
}

func (s *Store) UpdateProgressPhoto(ctx context.Context, id ID, patch ProgressPhotoPatch) (ProgressPhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.photos, id, patch.apply, nil)
}

func (s *Store) DeleteProgressPhoto(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.photos, id)
}

func (s *Store) ProgressPhoto(id ID) (ProgressPhoto, bool) { return getIn(s, s.photos, id) }

func (s *Store) ProgressPhotos() []ProgressPhoto { return listIn(s, s.photos) }

func (s *Store) CreateOutcome(ctx context.Context, in OutcomeInput) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := in.build()
	o.CreatedAt = s.now().UTC()
	return createIn(ctx, s, s.outcomes, o, nil)
}

func (s *Store) UpdateOutcome(ctx context.Context, id ID, patch OutcomePatch) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIn(ctx, s, s.outcomes, id, patch.apply, nil)
}

func (s *Store) DeleteOutcome(ctx context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIn(ctx, s, s.outcomes, id)
}

func (s *Store) Outcome(id ID) (Outcome, bool) { return getIn(s, s.outcomes, id) }

func (s *Store) Outcomes() []Outcome { return listIn(s, s.outcomes) }
