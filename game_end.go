package survivalgames

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/hollowforge/survivalgames/elimination"
	"github.com/hollowforge/survivalgames/gamephase"
	"github.com/hollowforge/survivalgames/statsd"
	"github.com/hollowforge/survivalgames/types"
)

const statsRecordTimeout = 10 * time.Second

// evaluateEnd applies the end-condition policy for the current phase. It is
// called from player removals, eliminations, and the periodic end check; the
// verdict actions are idempotent so overlapping calls are harmless.
func (g *Game) evaluateEnd() {
	if g.shuttingDown.Load() {
		return
	}
	verdict := g.elims.Decide(g.phase.Current(), g.registry.PlayerCount(), g.arena.MinPlayers())
	switch verdict {
	case elimination.VerdictCancelCountdown:
		g.broadcast("Not enough tributes remain.")
		g.CancelCountdown()
	case elimination.VerdictEnd:
		g.EndGame()
	}
}

// EndGame finishes the match: exactly one caller wins the terminal CAS,
// announces the outcome, persists statistics, and tears the match down.
// Concurrent and repeated calls are no-ops.
func (g *Game) EndGame() {
	if !g.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	span := tracer.StartSpan("survivalgames.match_end", tracer.ResourceName(g.arena.Name()))
	defer span.Finish()

	from := g.phase.Current()
	for !g.phase.Advance(g.phase.Current(), gamephase.Finished) {
		if g.phase.Current() == gamephase.Finished {
			break
		}
	}
	g.log.Info().Str("from", string(from)).Msg("match finished")
	statsd.EmitPhaseStat(string(gamephase.Finished))

	started := g.startedNano.Load()
	var duration time.Duration
	if started > 0 {
		startTime := time.Unix(0, started)
		duration = time.Since(startTime)
		statsd.EmitMatchDuration(startTime)
	}

	survivors := g.registry.ActiveIDs()
	results := g.computeStandings(survivors, duration)
	g.announceOutcome(survivors)
	g.persistResults(results)
	g.Cleanup()
}

func (g *Game) announceOutcome(survivors []uuid.UUID) {
	switch len(survivors) {
	case 0:
		g.broadcast("The games are over. No tribute survived.")
	case 1:
		name := ""
		if handle, ok := g.registry.Handle(survivors[0]); ok {
			name = handle.Name()
		}
		g.broadcast(fmt.Sprintf("%s has won the Survival Games!", name))
	default:
		g.broadcast("Time is up! The games end in a draw.")
	}
}

// computeStandings joins placements with the accumulated combat records into
// one result line per tracked player. Players who never competed past the
// lobby (spectators, pre-start leavers) carry placement zero: unplaced.
func (g *Game) computeStandings(survivors []uuid.UUID, duration time.Duration) []types.MatchResult {
	placements := g.elims.Placements(survivors)

	states := g.registry.Tracked()
	results := make([]types.MatchResult, 0, len(states))
	for _, state := range states {
		dealt, taken, chests := g.elims.Stats(state.ID)
		results = append(results, types.MatchResult{
			PlayerID:     state.ID,
			PlayerName:   state.Name,
			Placement:    placements[state.ID],
			Kills:        state.Kills,
			DamageDealt:  dealt,
			DamageTaken:  taken,
			ChestsOpened: chests,
			Duration:     duration,
		})
	}
	return results
}

// persistResults hands the standings to the statistics sink off the hot path.
// A sink failure is logged per record and never blocks teardown.
func (g *Game) persistResults(results []types.MatchResult) {
	if g.sink == nil || len(results) == 0 {
		return
	}
	gameID := g.id
	sink := g.sink
	log := g.log
	go func() {
		for _, res := range results {
			ctx, cancel := context.WithTimeout(context.Background(), statsRecordTimeout)
			if err := sink.RecordResult(ctx, gameID, res); err != nil {
				log.Error().Err(err).Str("player", res.PlayerName).Msg("failed to persist match result")
			}
			cancel()
		}
	}()
}

// Cleanup releases everything the match owns: scheduled work, async work,
// barrier blocks, and player state. Runs at most once; sub-step failures are
// isolated so a failing restore never leaks barrier blocks or vice versa.
func (g *Game) Cleanup() {
	if !g.cleanedUp.CompareAndSwap(false, true) {
		return
	}
	g.shuttingDown.Store(true)
	g.log.Info().Msg("cleaning up match")

	g.cancelCtx()
	g.futures.CancelAll()
	g.tickets.CancelAll()
	g.timers.Cleanup()

	g.barriers.StopEnforcement()

	// Block and player restoration are host-context operations, and the
	// trigger may be any goroutine (a network event, manager shutdown, or a
	// loop callback itself), so the work is posted rather than run inline.
	g.loop.Post(func() {
		g.barriers.RemoveAll()
		if leaked := g.barriers.TrackedBlocks(); leaked > 0 {
			g.log.Error().Int("blocks", leaked).Msg("barrier blocks failed to restore")
		}
		g.registry.RestoreAll()
	})

	g.pvpEnabled.Store(false)
	g.inGrace.Store(false)

	if g.onRemove != nil {
		g.onRemove(g)
	}
	g.log.Info().Msg("match cleanup complete")
}
