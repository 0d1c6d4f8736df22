package core

import "time"

// SweepItemError records one record's failure inside a batch sweep.
type SweepItemError struct {
	RecordID string `json:"record_id"`
	Email    string `json:"email"`
	Err      string `json:"error"`
}

// SweepResult is the structured outcome of one sweep run. One record's
// failure never aborts the rest; it lands in Errors instead.
type SweepResult struct {
	Kind       string           `json:"kind"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Scanned    int              `json:"scanned"`
	Purged     int              `json:"purged,omitempty"`
	Reminders  int              `json:"reminders,omitempty"`
	Finals     int              `json:"final_warnings,omitempty"`
	Skipped    int              `json:"skipped,omitempty"`
	Errors     []SweepItemError `json:"errors,omitempty"`
}

func (r *SweepResult) fail(recordID, email string, err error) {
	r.Errors = append(r.Errors, SweepItemError{RecordID: recordID, Email: email, Err: err.Error()})
}
