package api

import (
	"encoding/json"
	"net/http"

	"github.com/hackgods/practice-records/internal/practice"
)

// Envelope wraps every /api response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type DeletedResponse struct {
	ID practice.ID `json:"id"`
}

// RangeResponse is the appointments view for view=range.
type RangeResponse struct {
	Start string                 `json:"start"`
	End   string                 `json:"end"`
	Weeks int                    `json:"weeks"`
	Days  []practice.DaySchedule `json:"days"`
}

type OutcomesResponse struct {
	Outcomes []practice.OutcomeView  `json:"outcomes"`
	Summary  practice.OutcomeSummary `json:"summary"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Envelope{Success: false, Error: msg, Code: code})
}
