// pkg/model/state.go
package model

import "time"

// FileState is one step in a file's processing lifecycle.
type FileState string

const (
	StateDetected    FileState = "DETECTED"
	StateClassifying FileState = "CLASSIFYING"
	StateAggregating FileState = "AGGREGATING"
	StatePersisting  FileState = "PERSISTING"
	StateProcessed   FileState = "PROCESSED"
	StateQuarantined FileState = "QUARANTINED"
	StateFailed      FileState = "FAILED"
)

// transitions is the set of legal state changes. FAILED -> PERSISTING covers
// the retry path; everything after PROCESSED or QUARANTINED is final.
var transitions = map[FileState][]FileState{
	StateDetected:    {StateClassifying},
	StateClassifying: {StateAggregating, StateQuarantined},
	StateAggregating: {StatePersisting},
	StatePersisting:  {StateProcessed, StateQuarantined, StateFailed},
	StateFailed:      {StatePersisting},
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step.
func (s FileState) CanTransition(next FileState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a file's lifecycle. FAILED is terminal
// only once the retry ceiling is exhausted; the orchestrator tracks that.
func (s FileState) Terminal() bool {
	return s == StateProcessed || s == StateQuarantined || s == StateFailed
}

// FileStatus is the durable record of one file's progress, persisted to
// file_processing_log so restarts do not re-process completed files.
type FileStatus struct {
	FileName         string    `db:"file_name" json:"file_name"`
	State            FileState `db:"state" json:"state"`
	AttemptCount     int       `db:"attempt_count" json:"attempt_count"`
	AcceptedCount    int       `db:"accepted_count" json:"accepted_count"`
	RejectedCount    int       `db:"rejected_count" json:"rejected_count"`
	AggregateCount   int       `db:"aggregate_count" json:"aggregate_count"`
	FailureReason    string    `db:"failure_reason" json:"failure_reason,omitempty"`
	FirstSeenAt      time.Time `db:"first_seen_at" json:"first_seen_at"`
	LastTransitionAt time.Time `db:"last_transition_at" json:"last_transition_at"`
}
