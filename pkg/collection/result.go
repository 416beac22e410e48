package collection

import "time"

const (
	// StatusSuccess and StatusFailure are the legacy status strings of a run.
	StatusSuccess = "it Worked"
	StatusFailure = "Error collecting cards"
)

// Counts summarizes what a run did. Failures are per item and never abort a run.
type Counts struct {
	Teams          int `json:"teams"`
	TeamsUpdated   int `json:"teamsUpdated"`
	TeamFailures   int `json:"teamFailures"`
	TeamsLeveledUp int `json:"teamsLeveledUp"`

	StudentsConsidered int `json:"studentsConsidered"`
	StudentsLeveledUp  int `json:"studentsLeveledUp"`
	StudentFailures    int `json:"studentFailures"`

	Tickets          int      `json:"tickets"`
	ExcludedStudents int      `json:"excludedStudents"`
	Winners          int      `json:"winners"`
	WinnerIDs        []string `json:"winnerIds"`
	WinnerFailures   int      `json:"winnerFailures"`

	CycleCreated bool   `json:"cycleCreated"`
	CycleID      string `json:"cycleId,omitempty"`
	CycleFailure bool   `json:"cycleFailure"`
}

// Failures returns the total number of failed mutations.
func (c Counts) Failures() int {
	total := c.TeamFailures + c.StudentFailures + c.WinnerFailures
	if c.CycleFailure {
		total++
	}
	return total
}

// Result is the outcome of a collection run.
// OK is false only when the run was rejected or aborted; partial mutation
// failures still produce an OK result with non-zero failure counts.
type Result struct {
	OK         bool      `json:"ok"`
	Reason     string    `json:"reason,omitempty"`
	Err        error     `json:"-"`
	Counts     Counts    `json:"counts"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func failedResult(err error) Result {
	return Result{OK: false, Reason: err.Error(), Err: err}
}

// Status returns the legacy status string for the result.
func (r Result) Status() string {
	if r.OK {
		return StatusSuccess
	}
	return StatusFailure
}

// Duration returns how long the run took.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
