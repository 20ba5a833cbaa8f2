// pkg/pipeline/state.go
package pipeline

import (
	"sync"
	"time"

	"github.com/sensorflow/pipeline/pkg/model"
)

type trackedFile struct {
	state       model.FileState
	attempts    int
	firstSeenAt time.Time
	lastMoveAt  time.Time
}

// Tracker holds the in-memory lifecycle state of every file seen during a
// run. All moves go through compare-and-swap transitions, so two workers
// racing for the same file cannot both win.
type Tracker struct {
	mu    sync.Mutex
	files map[string]*trackedFile
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		files: make(map[string]*trackedFile),
	}
}

// Tracked reports whether the file has already been registered this run
func (t *Tracker) Tracked(fileName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.files[fileName]
	return ok
}

// Register adds a file in the given state. It returns false if the file is
// already tracked, which makes registration the first dedupe gate.
func (t *Tracker) Register(fileName string, state model.FileState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.files[fileName]; ok {
		return false
	}

	now := time.Now().UTC()
	t.files[fileName] = &trackedFile{
		state:       state,
		firstSeenAt: now,
		lastMoveAt:  now,
	}
	return true
}

// Transition moves a file from one state to another. It returns false when
// the file is not in the expected source state or the move is not legal, and
// mutates nothing in that case.
func (t *Tracker) Transition(fileName string, from, to model.FileState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[fileName]
	if !ok {
		return false
	}
	if f.state != from || !from.CanTransition(to) {
		return false
	}

	f.state = to
	f.lastMoveAt = time.Now().UTC()
	if to == model.StatePersisting {
		// Attempts count entries into persisting, including re-entries
		// from the failed state.
		f.attempts++
	}
	return true
}

// State returns the current state of a tracked file
func (t *Tracker) State(fileName string) (model.FileState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[fileName]
	if !ok {
		return "", false
	}
	return f.state, true
}

// Attempts returns how many times the file has entered persistence
func (t *Tracker) Attempts(fileName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[fileName]
	if !ok {
		return 0
	}
	return f.attempts
}

// FirstSeen returns when the file was first registered
func (t *Tracker) FirstSeen(fileName string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.files[fileName]
	if !ok {
		return time.Time{}
	}
	return f.firstSeenAt
}

// Counts returns the number of tracked files per state
func (t *Tracker) Counts() map[model.FileState]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[model.FileState]int)
	for _, f := range t.files {
		counts[f.state]++
	}
	return counts
}
