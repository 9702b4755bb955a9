package gamephase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartsInWaiting(t *testing.T) {
	m := NewManager()
	assert.Equal(t, Waiting, m.Current())
}

func TestLegalEdges(t *testing.T) {
	legal := [][2]Phase{
		{Waiting, Countdown},
		{Countdown, Waiting},
		{Countdown, GracePeriod},
		{GracePeriod, Active},
		{Active, Deathmatch},
		{Active, Finished},
		{Deathmatch, Finished},
		{Waiting, Finished},
		{Countdown, Finished},
		{GracePeriod, Finished},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s should be legal", edge[0], edge[1])
	}

	illegal := [][2]Phase{
		{Waiting, GracePeriod},
		{Waiting, Active},
		{Waiting, Deathmatch},
		{GracePeriod, Waiting},
		{GracePeriod, Countdown},
		{GracePeriod, Deathmatch},
		{Active, Waiting},
		{Active, GracePeriod},
		{Deathmatch, Active},
		{Finished, Waiting},
		{Finished, Countdown},
		{Finished, GracePeriod},
		{Finished, Active},
		{Finished, Deathmatch},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s should be illegal", edge[0], edge[1])
	}
}

func TestFinishedIsAbsorbing(t *testing.T) {
	m := NewManager()
	assert.True(t, m.Advance(Waiting, Finished))
	for _, to := range []Phase{Waiting, Countdown, GracePeriod, Active, Deathmatch} {
		assert.False(t, m.Advance(Finished, to))
	}
	assert.Equal(t, Finished, m.Current())
}

func TestAdvanceRejectsStaleFrom(t *testing.T) {
	m := NewManager()
	assert.True(t, m.Advance(Waiting, Countdown))
	// A racer that still believes the phase is Waiting must lose.
	assert.False(t, m.Advance(Waiting, Countdown))
	assert.Equal(t, Countdown, m.Current())
}

func TestCountdownCancelIsOnlyBackwardEdge(t *testing.T) {
	m := NewManager()
	assert.True(t, m.Advance(Waiting, Countdown))
	assert.True(t, m.Advance(Countdown, Waiting))
	assert.Equal(t, Waiting, m.Current())
}

func TestOnlyOneAdvanceWinsUnderContention(t *testing.T) {
	successCh := make(chan bool)
	m := NewManager()

	for i := 0; i < 10; i++ {
		go func() {
			successCh <- m.Advance(Waiting, Countdown)
		}()
	}

	successCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount)
	assert.Equal(t, Countdown, m.Current())
}
