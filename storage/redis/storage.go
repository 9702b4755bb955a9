// Package redis persists match statistics. Results are stored per match as a
// hash of JSON payloads keyed by player, alongside per-player lifetime
// aggregates, all under a configurable namespace.
package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hollowforge/survivalgames/types"
)

type Storage struct {
	Namespace string
	Client    *redis.Client
	Log       zerolog.Logger
}

type Options = redis.Options

func NewStatsStorage(options Options, namespace string) *Storage {
	client := redis.NewClient(&options)
	return &Storage{
		Namespace: namespace,
		Client:    client,
		Log:       zerolog.New(os.Stdout),
	}
}

func (s *Storage) matchKey(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:match:%s:results", s.Namespace, gameID)
}

func (s *Storage) lifetimeKey(playerID uuid.UUID) string {
	return fmt.Sprintf("%s:player:%s:stats", s.Namespace, playerID)
}

// RecordResult persists one player's final line and bumps their lifetime
// aggregates.
func (s *Storage) RecordResult(ctx context.Context, gameID uuid.UUID, res types.MatchResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "failed to encode match result")
	}

	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, s.matchKey(gameID), res.PlayerID.String(), payload)
	key := s.lifetimeKey(res.PlayerID)
	pipe.HIncrBy(ctx, key, "matches", 1)
	pipe.HIncrBy(ctx, key, "kills", int64(res.Kills))
	pipe.HIncrBy(ctx, key, "chests_opened", int64(res.ChestsOpened))
	if res.Placement == 1 {
		pipe.HIncrBy(ctx, key, "wins", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrap(err, "failed to persist match result")
	}
	return nil
}

// MatchResults loads every recorded line for one match.
func (s *Storage) MatchResults(ctx context.Context, gameID uuid.UUID) ([]types.MatchResult, error) {
	raw, err := s.Client.HGetAll(ctx, s.matchKey(gameID)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load match results")
	}
	results := make([]types.MatchResult, 0, len(raw))
	for _, payload := range raw {
		var res types.MatchResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, eris.Wrap(err, "failed to decode match result")
		}
		results = append(results, res)
	}
	return results, nil
}

// Lifetime is a player's aggregate record across all matches.
type Lifetime struct {
	Matches      int
	Wins         int
	Kills        int
	ChestsOpened int
}

// PlayerLifetime loads a player's lifetime aggregates. Missing players read
// as all zeroes.
func (s *Storage) PlayerLifetime(ctx context.Context, playerID uuid.UUID) (Lifetime, error) {
	var life Lifetime
	raw, err := s.Client.HGetAll(ctx, s.lifetimeKey(playerID)).Result()
	if err != nil {
		return life, eris.Wrap(err, "failed to load lifetime stats")
	}
	fields := map[string]*int{
		"matches":       &life.Matches,
		"wins":          &life.Wins,
		"kills":         &life.Kills,
		"chests_opened": &life.ChestsOpened,
	}
	for name, dst := range fields {
		if v, ok := raw[name]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return life, eris.Wrapf(err, "corrupt lifetime field %q", name)
			}
			*dst = n
		}
	}
	return life, nil
}

func (s *Storage) Close() error {
	log.Info().Msg("Closing storage connection.")
	if err := s.Client.Close(); err != nil {
		return eris.Wrap(err, "")
	}
	log.Info().Msg("Successfully closed storage connection.")
	return nil
}
