package model

import "time"

// RowState is a row's position in the per-row state machine.
type RowState string

const (
	StateNew          RowState = "new"
	StateScraped      RowState = "scraped"
	StateScored       RowState = "scored"
	StateSkipped      RowState = "skipped"
	StateContacted    RowState = "contacted"
	StateNotContacted RowState = "not_contacted"
	// StateUnprocessed marks a row left in the source table after a surfaced error.
	StateUnprocessed RowState = "unprocessed"
)

// Terminal reports whether no further transition is possible.
func (s RowState) Terminal() bool {
	switch s {
	case StateSkipped, StateContacted, StateNotContacted:
		return true
	}
	return false
}

// Status maps a terminal state to the STATUS value written on the row.
func (s RowState) Status() Status {
	switch s {
	case StateSkipped:
		return StatusSkipped
	case StateContacted:
		return StatusContacted
	case StateNotContacted:
		return StatusNotContacted
	}
	return StatusUnset
}

// Outcome is what happened to one row in one pipeline invocation.
type Outcome struct {
	RowID       string         `json:"row_id"`
	Website     string         `json:"website"`
	State       RowState       `json:"state"`
	Reason      string         `json:"reason,omitempty"`
	Result      *ScoringResult `json:"result,omitempty"`
	Raw         string         `json:"raw,omitempty"`
	Recipient   string         `json:"recipient,omitempty"`
	MailMessage string         `json:"mail_message,omitempty"`
	Migrated    bool           `json:"migrated"`
	// StepErrors holds failures of individual persistence steps; earlier steps are not rolled back.
	StepErrors []string `json:"step_errors,omitempty"`
}

// MaxScore is the best match score, or 0 when the row was never scored.
func (o Outcome) MaxScore() int {
	if o.Result == nil {
		return 0
	}
	return o.Result.MaxScore()
}

// Run is a journal entry recording one row's outcome.
type Run struct {
	ID          string    `json:"id"`
	RowID       string    `json:"row_id"`
	SourceTable string    `json:"source_table"`
	Website     string    `json:"website"`
	Mode        Mode      `json:"mode"`
	State       RowState  `json:"state"`
	Status      Status    `json:"status,omitempty"`
	MaxScore    int       `json:"max_score"`
	Recipient   string    `json:"recipient,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
