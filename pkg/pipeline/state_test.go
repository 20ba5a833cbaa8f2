// pkg/pipeline/state_test.go
package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorflow/pipeline/pkg/model"
)

func TestTracker_RegisterOnce(t *testing.T) {
	tracker := NewTracker()

	assert.True(t, tracker.Register("sensors.csv", model.StateDetected))
	assert.False(t, tracker.Register("sensors.csv", model.StateDetected))
	assert.True(t, tracker.Tracked("sensors.csv"))
	assert.False(t, tracker.Tracked("other.csv"))
	assert.False(t, tracker.FirstSeen("sensors.csv").IsZero())
}

func TestTracker_HappyPathWalk(t *testing.T) {
	tracker := NewTracker()
	require.True(t, tracker.Register("sensors.csv", model.StateDetected))

	steps := []struct {
		from model.FileState
		to   model.FileState
	}{
		{model.StateDetected, model.StateClassifying},
		{model.StateClassifying, model.StateAggregating},
		{model.StateAggregating, model.StatePersisting},
		{model.StatePersisting, model.StateFailed},
		{model.StateFailed, model.StatePersisting},
		{model.StatePersisting, model.StateProcessed},
	}
	for _, step := range steps {
		assert.True(t, tracker.Transition("sensors.csv", step.from, step.to),
			"%s -> %s should be allowed", step.from, step.to)
	}

	state, ok := tracker.State("sensors.csv")
	require.True(t, ok)
	assert.Equal(t, model.StateProcessed, state)

	// Two entries into persisting: the first pass and the retry
	assert.Equal(t, 2, tracker.Attempts("sensors.csv"))
}

func TestTracker_RefusesIllegalMoves(t *testing.T) {
	tracker := NewTracker()

	assert.False(t, tracker.Transition("missing.csv", model.StateDetected, model.StateClassifying))

	require.True(t, tracker.Register("sensors.csv", model.StateDetected))

	// Wrong source state
	assert.False(t, tracker.Transition("sensors.csv", model.StateClassifying, model.StateAggregating))
	// Skipping stages is not a legal move
	assert.False(t, tracker.Transition("sensors.csv", model.StateDetected, model.StatePersisting))

	state, ok := tracker.State("sensors.csv")
	require.True(t, ok)
	assert.Equal(t, model.StateDetected, state)
	assert.Equal(t, 0, tracker.Attempts("sensors.csv"))
}

func TestTracker_TerminalStatesAreFinal(t *testing.T) {
	tracker := NewTracker()

	require.True(t, tracker.Register("done.csv", model.StateProcessed))
	require.True(t, tracker.Register("bad.csv", model.StateQuarantined))

	assert.False(t, tracker.Transition("done.csv", model.StateProcessed, model.StateClassifying))
	assert.False(t, tracker.Transition("bad.csv", model.StateQuarantined, model.StateDetected))
}

func TestTracker_ConcurrentClaimWinsOnce(t *testing.T) {
	tracker := NewTracker()
	require.True(t, tracker.Register("sensors.csv", model.StateDetected))

	const claimers = 16

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		start = make(chan struct{})
	)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if tracker.Transition("sensors.csv", model.StateDetected, model.StateClassifying) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)

	state, ok := tracker.State("sensors.csv")
	require.True(t, ok)
	assert.Equal(t, model.StateClassifying, state)
}

func TestTracker_CountsByState(t *testing.T) {
	tracker := NewTracker()

	require.True(t, tracker.Register("a.csv", model.StateDetected))
	require.True(t, tracker.Register("b.csv", model.StateDetected))
	require.True(t, tracker.Register("c.csv", model.StateProcessed))

	require.True(t, tracker.Transition("a.csv", model.StateDetected, model.StateClassifying))

	counts := tracker.Counts()
	assert.Equal(t, 1, counts[model.StateDetected])
	assert.Equal(t, 1, counts[model.StateClassifying])
	assert.Equal(t, 1, counts[model.StateProcessed])
}
