package elimination_test

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowforge/survivalgames/elimination"
	"github.com/hollowforge/survivalgames/gamephase"
	"github.com/hollowforge/survivalgames/player"
	"github.com/hollowforge/survivalgames/testutils"
	"github.com/hollowforge/survivalgames/types"
)

func newManager(t *testing.T, players ...*testutils.FakePlayer) (*elimination.Manager, *player.Registry) {
	t.Helper()
	spawns := make([]types.Location, 8)
	for i := range spawns {
		spawns[i] = types.Location{World: "arena", X: float64(i * 10), Y: 64}
	}
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	reg := player.NewRegistry(spawns, testutils.NewFakeDirectory(players...), nil, nil, logger)
	for _, p := range players {
		_, ok := reg.Add(p)
		require.True(t, ok)
	}
	return elimination.NewManager(reg, logger), reg
}

func TestTwoEliminationsYieldPlacements(t *testing.T) {
	p1 := testutils.NewFakePlayer("p1")
	p2 := testutils.NewFakePlayer("p2")
	p3 := testutils.NewFakePlayer("p3")
	m, reg := newManager(t, p1, p2, p3)

	check, err := m.Eliminate(p1.PlayerID)
	require.NoError(t, err)
	assert.True(t, check)
	check, err = m.Eliminate(p2.PlayerID)
	require.NoError(t, err)
	assert.True(t, check)

	assert.Equal(t, []uuid.UUID{p1.PlayerID, p2.PlayerID}, m.Order())
	assert.Equal(t, 1, reg.PlayerCount())
	assert.Equal(t, player.MemberActive, reg.Membership(p3.PlayerID))

	placements := m.Placements(reg.ActiveIDs())
	assert.Equal(t, 3, placements[p1.PlayerID])
	assert.Equal(t, 2, placements[p2.PlayerID])
	assert.Equal(t, 1, placements[p3.PlayerID])
}

func TestRecordExitRanksLeaverBelowSurvivors(t *testing.T) {
	p1 := testutils.NewFakePlayer("p1")
	p2 := testutils.NewFakePlayer("p2")
	p3 := testutils.NewFakePlayer("p3")
	m, reg := newManager(t, p1, p2, p3)

	// p1 leaves mid-match without being eliminated, then p2 goes out.
	_, removed := reg.Remove(p1.PlayerID, true)
	require.True(t, removed)
	m.RecordExit(p1.PlayerID)
	_, err := m.Eliminate(p2.PlayerID)
	require.NoError(t, err)

	placements := m.Placements(reg.ActiveIDs())
	assert.Equal(t, 3, placements[p1.PlayerID])
	assert.Equal(t, 2, placements[p2.PlayerID])
	assert.Equal(t, 1, placements[p3.PlayerID])
}

func TestEliminateSpectatorFails(t *testing.T) {
	p1 := testutils.NewFakePlayer("p1")
	m, _ := newManager(t, p1)

	_, err := m.Eliminate(p1.PlayerID)
	require.NoError(t, err)
	_, err = m.Eliminate(p1.PlayerID)
	assert.ErrorIs(t, err, player.ErrNotActive)
}

func TestAccumulatorsTrackPerPlayer(t *testing.T) {
	p1 := testutils.NewFakePlayer("p1")
	m, _ := newManager(t, p1)

	m.RecordDamageDealt(p1.PlayerID, 3.5)
	m.RecordDamageDealt(p1.PlayerID, 1.5)
	m.RecordDamageTaken(p1.PlayerID, 2)
	m.RecordChestOpened(p1.PlayerID)
	m.RecordChestOpened(p1.PlayerID)

	dealt, taken, chests := m.Stats(p1.PlayerID)
	assert.Equal(t, 5.0, dealt)
	assert.Equal(t, 2.0, taken)
	assert.Equal(t, 2, chests)
}

func TestDecidePolicyPerPhase(t *testing.T) {
	m, _ := newManager(t)

	// WAITING: under minimum never ends, only withholds the countdown.
	assert.Equal(t, elimination.VerdictWithholdCountdown, m.Decide(gamephase.Waiting, 1, 2))
	assert.Equal(t, elimination.VerdictNone, m.Decide(gamephase.Waiting, 2, 2))

	// COUNTDOWN: dropping under minimum cancels back to waiting.
	assert.Equal(t, elimination.VerdictCancelCountdown, m.Decide(gamephase.Countdown, 1, 2))
	assert.Equal(t, elimination.VerdictNone, m.Decide(gamephase.Countdown, 2, 2))

	// Started phases: one player left ends the match.
	for _, phase := range []gamephase.Phase{gamephase.GracePeriod, gamephase.Active, gamephase.Deathmatch} {
		assert.Equal(t, elimination.VerdictEnd, m.Decide(phase, 1, 2), "phase %s", phase)
		assert.Equal(t, elimination.VerdictEnd, m.Decide(phase, 0, 2), "phase %s", phase)
		assert.Equal(t, elimination.VerdictNone, m.Decide(phase, 2, 2), "phase %s", phase)
	}

	// Terminal phase decides nothing.
	assert.Equal(t, elimination.VerdictNone, m.Decide(gamephase.Finished, 0, 2))
}
