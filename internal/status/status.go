// Package status tracks per-job lifecycle state, durably persisted as a
// single JSON document under the jobs directory.
package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is a job's position in the processing pipeline.
type JobStatus string

const (
	// Created means the job file exists but nothing has started.
	Created JobStatus = "created"
	// PendingTest means test generation is in flight (TDD first step).
	PendingTest JobStatus = "pending_test"
	// PendingWork means generation is in flight.
	PendingWork JobStatus = "pending_work"
	// PendingVerification means generation finished, verification pending.
	PendingVerification JobStatus = "pending_verification"
	// PendingTestRun means verification passed and the test run is pending.
	PendingTestRun JobStatus = "pending_test_run"
	// Pass is the successful terminal state.
	Pass JobStatus = "pass"
	// Fail is the failed terminal state.
	Fail JobStatus = "fail"
	// Partial means some edits succeeded and some failed.
	Partial JobStatus = "partial"
)

// IsReady reports whether the job can be picked up.
func (s JobStatus) IsReady() bool { return s == Created }

// IsComplete reports whether the job reached a pass/fail terminal state.
func (s JobStatus) IsComplete() bool { return s == Pass || s == Fail }

// IsStuck reports whether the job sits in an intermediate or partial
// state, which at discovery time means a previous run did not finish.
func (s JobStatus) IsStuck() bool {
	switch s {
	case PendingTest, PendingWork, PendingVerification, PendingTestRun, Partial:
		return true
	}
	return false
}

// IsPartial reports whether the job partially completed.
func (s JobStatus) IsPartial() bool { return s == Partial }

// Next returns the follow-on status in the workflow, or "" at the end.
func (s JobStatus) Next(tdd bool) JobStatus {
	switch {
	case s == Created && tdd:
		return PendingTest
	case s == Created:
		return PendingWork
	case s == PendingTest:
		return PendingWork
	case s == PendingWork:
		return PendingVerification
	case s == PendingVerification && tdd:
		return PendingTestRun
	}
	return ""
}

// SuccessfulEdit records one applied edit for partial-completion state.
type SuccessfulEdit struct {
	FilePath    string `json:"file_path"`
	FindPreview string `json:"find_preview"`
}

// FailedEdit records one edit that could not be applied.
type FailedEdit struct {
	FilePath      string `json:"file_path"`
	FindPreview   string `json:"find_preview"`
	Reason        string `json:"reason"`
	SuggestedLine *int   `json:"suggested_line,omitempty"`
}

// PartialEditState is stored when an edit job partially succeeded: at
// least one edit applied and at least one failed.
type PartialEditState struct {
	SuccessfulEdits []SuccessfulEdit `json:"successful_edits"`
	FailedEdits     []FailedEdit     `json:"failed_edits"`
}

// HasFailures reports whether any edit failed.
func (p *PartialEditState) HasFailures() bool { return len(p.FailedEdits) > 0 }

// HasSuccesses reports whether any edit applied.
func (p *PartialEditState) HasSuccesses() bool { return len(p.SuccessfulEdits) > 0 }

// Entry is the mutable per-job record in the status file. RunningPID is
// process-local and never persisted; it only supports cancellation
// within the current run.
type Entry struct {
	ID             string            `json:"-"`
	Status         JobStatus         `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Error          string            `json:"error,omitempty"`
	OutputPaths    []string          `json:"output_paths,omitempty"`
	RetryAttempted bool              `json:"retry_attempted,omitempty"`
	PartialState   *PartialEditState `json:"partial_state,omitempty"`

	RunningPID int `json:"-"`
}

// NewEntry creates a Created entry stamped now.
func NewEntry(id string) *Entry {
	now := time.Now().UTC()
	return &Entry{ID: id, Status: Created, CreatedAt: now, UpdatedAt: now}
}

// update moves the entry to status, clearing stale errors on non-fail
// transitions.
func (e *Entry) update(s JobStatus) {
	e.Status = s
	e.UpdatedAt = time.Now().UTC()
	if s != Fail {
		e.Error = ""
	}
}

func (e *Entry) setFailed(msg string) {
	e.Status = Fail
	e.UpdatedAt = time.Now().UTC()
	e.Error = msg
}

func (e *Entry) setPartial(state PartialEditState) {
	e.Status = Partial
	e.UpdatedAt = time.Now().UTC()
	e.PartialState = &state
}

// MarshalJSON keeps timestamps in UTC RFC3339.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	a := alias(*e)
	a.CreatedAt = e.CreatedAt.UTC().Truncate(time.Second)
	a.UpdatedAt = e.UpdatedAt.UTC().Truncate(time.Second)
	return json.Marshal(a)
}

// Summary aggregates status counts across all entries.
type Summary struct {
	Total               int
	Created             int
	PendingTest         int
	PendingWork         int
	PendingVerification int
	PendingTestRun      int
	Passed              int
	Failed              int
	Partial             int
	// Failures lists the ids whose status is Fail, sorted.
	Failures []string
}

// Pending is the sum of all in-flight states.
func (s Summary) Pending() int {
	return s.PendingTest + s.PendingWork + s.PendingVerification + s.PendingTestRun
}

// String renders the one-line form used by the status command.
func (s Summary) String() string {
	return fmt.Sprintf("Total: %d | Created: %d | Pending: %d | Partial: %d | Passed: %d | Failed: %d",
		s.Total, s.Created, s.Pending(), s.Partial, s.Passed, s.Failed)
}
