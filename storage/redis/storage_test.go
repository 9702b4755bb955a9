package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowforge/survivalgames/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	server := miniredis.RunT(t)
	s := NewStatsStorage(Options{Addr: server.Addr()}, "sgtest")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndLoadMatchResults(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	gameID := uuid.New()

	winner := types.MatchResult{
		PlayerID:     uuid.New(),
		PlayerName:   "winner",
		Placement:    1,
		Kills:        4,
		DamageDealt:  101.5,
		DamageTaken:  40,
		ChestsOpened: 6,
		Duration:     9 * time.Minute,
	}
	runnerUp := types.MatchResult{
		PlayerID:   uuid.New(),
		PlayerName: "runner-up",
		Placement:  2,
		Kills:      1,
	}
	require.NoError(t, s.RecordResult(ctx, gameID, winner))
	require.NoError(t, s.RecordResult(ctx, gameID, runnerUp))

	results, err := s.MatchResults(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]types.MatchResult{}
	for _, r := range results {
		byName[r.PlayerName] = r
	}
	assert.Equal(t, winner, byName["winner"])
	assert.Equal(t, runnerUp, byName["runner-up"])
}

func TestLifetimeAggregatesAccumulate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	playerID := uuid.New()

	first := types.MatchResult{PlayerID: playerID, PlayerName: "p", Placement: 1, Kills: 3, ChestsOpened: 2}
	second := types.MatchResult{PlayerID: playerID, PlayerName: "p", Placement: 4, Kills: 1, ChestsOpened: 5}
	require.NoError(t, s.RecordResult(ctx, uuid.New(), first))
	require.NoError(t, s.RecordResult(ctx, uuid.New(), second))

	life, err := s.PlayerLifetime(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, Lifetime{Matches: 2, Wins: 1, Kills: 4, ChestsOpened: 7}, life)
}

func TestUnknownPlayerLifetimeIsZero(t *testing.T) {
	s := newTestStorage(t)
	life, err := s.PlayerLifetime(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, Lifetime{}, life)
}
