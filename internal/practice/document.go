package practice

import (
	"encoding/json"
	"fmt"
)

const documentVersion = 1

// document is the persisted form of the whole store: each collection keyed
// by decimal id, plus the id counters.
type document struct {
	Version          int                        `json:"version"`
	Patients         map[string]Patient         `json:"patients"`
	Appointments     map[string]Appointment     `json:"appointments"`
	TreatmentPlans   map[string]TreatmentPlan   `json:"treatment_plans"`
	TreatmentRecords map[string]TreatmentRecord `json:"treatment_records"`
	ProgressPhotos   map[string]ProgressPhoto   `json:"progress_photos"`
	Outcomes         map[string]Outcome         `json:"outcomes"`
	NextIDs          map[string]ID              `json:"next_ids"`
}

// rawDocument defers decoding of individual records so one bad record does
// not fail the whole load.
type rawDocument struct {
	Version          int                        `json:"version"`
	Patients         map[string]json.RawMessage `json:"patients"`
	Appointments     map[string]json.RawMessage `json:"appointments"`
	TreatmentPlans   map[string]json.RawMessage `json:"treatment_plans"`
	TreatmentRecords map[string]json.RawMessage `json:"treatment_records"`
	ProgressPhotos   map[string]json.RawMessage `json:"progress_photos"`
	Outcomes         map[string]json.RawMessage `json:"outcomes"`
	NextIDs          map[string]ID              `json:"next_ids"`
}

func encodeCollection[T any](c *collection[T], next map[string]ID) map[string]T {
	out := make(map[string]T, len(c.items))
	for id, v := range c.items {
		out[id.String()] = v
	}
	next[c.key] = c.next
	return out
}

// decodeCollection replaces the contents of c with the records in raw.
// Records with a bad key, undecodable body or missing required fields are
// skipped; the rest load.
func decodeCollection[T any](c *collection[T], raw map[string]json.RawMessage, next map[string]ID, skip func(key, reason string)) (loaded int) {
	c.reset()
	var maxID ID
	for key, body := range raw {
		id, err := ParseID(key)
		if err != nil {
			skip(key, "bad key")
			continue
		}
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			skip(key, err.Error())
			continue
		}
		c.setID(&v, id)
		if err := c.validate(v); err != nil {
			skip(key, err.Error())
			continue
		}
		c.items[id] = v
		if id > maxID {
			maxID = id
		}
		loaded++
	}

	c.next = maxID + 1
	if n, ok := next[c.key]; ok && n > c.next {
		c.next = n
	}
	return loaded
}

func (s *Store) encodeLocked() ([]byte, error) {
	next := make(map[string]ID, 6)
	doc := document{
		Version:          documentVersion,
		Patients:         encodeCollection(s.patients, next),
		Appointments:     encodeCollection(s.appointments, next),
		TreatmentPlans:   encodeCollection(s.plans, next),
		TreatmentRecords: encodeCollection(s.records, next),
		ProgressPhotos:   encodeCollection(s.photos, next),
		Outcomes:         encodeCollection(s.outcomes, next),
		NextIDs:          next,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

type decodeStats struct {
	loaded  int
	skipped int
}

func (s *Store) decodeLocked(data []byte) (decodeStats, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return decodeStats{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var st decodeStats
	skipFor := func(entity string) func(key, reason string) {
		return func(key, reason string) {
			st.skipped++
			s.logger.Warn().
				Str("entity", entity).
				Str("key", key).
				Str("reason", reason).
				Msg("skipping record in snapshot")
		}
	}

	st.loaded += decodeCollection(s.patients, raw.Patients, raw.NextIDs, skipFor(s.patients.entity))
	st.loaded += decodeCollection(s.appointments, raw.Appointments, raw.NextIDs, skipFor(s.appointments.entity))
	st.loaded += decodeCollection(s.plans, raw.TreatmentPlans, raw.NextIDs, skipFor(s.plans.entity))
	st.loaded += decodeCollection(s.records, raw.TreatmentRecords, raw.NextIDs, skipFor(s.records.entity))
	st.loaded += decodeCollection(s.photos, raw.ProgressPhotos, raw.NextIDs, skipFor(s.photos.entity))
	st.loaded += decodeCollection(s.outcomes, raw.Outcomes, raw.NextIDs, skipFor(s.outcomes.entity))

	return st, nil
}
