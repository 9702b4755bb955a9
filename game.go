// Package survivalgames runs independent Survival Games match instances
// inside one server process. Each Game owns a subset of players, a physical
// arena, and a strict lifecycle of phases; the GameManager creates, indexes,
// and garbage-collects the instances.
package survivalgames

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/barrier"
	"github.com/hollowforge/survivalgames/chestfill"
	"github.com/hollowforge/survivalgames/elimination"
	"github.com/hollowforge/survivalgames/gamephase"
	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/player"
	"github.com/hollowforge/survivalgames/timer"
	"github.com/hollowforge/survivalgames/types"
)

// Game is one match instance: the aggregate that owns the canonical phase
// value and drives every manager in the correct order per phase. Mutations
// arrive from network-driven player events, scheduled timers, and background
// async work; the phase table plus CAS-guarded terminal flags keep terminal
// transitions at-most-once.
type Game struct {
	id    uuid.UUID
	arena types.Arena
	cfg   Config
	log   zerolog.Logger

	phase    *gamephase.Manager
	registry *player.Registry
	timers   *timer.Coordinator
	barriers *barrier.Manager
	elims    *elimination.Manager

	loop    *host.Loop
	sched   *host.Scheduler
	tickets *host.TicketSet
	futures *host.FutureSet

	world   types.BlockWorld
	catalog types.LootCatalog
	sink    types.StatisticsSink

	ctx       context.Context
	cancelCtx context.CancelFunc

	pvpEnabled   atomic.Bool
	inGrace      atomic.Bool
	shuttingDown atomic.Bool
	cleanedUp    atomic.Bool
	fillStarted  atomic.Bool
	fillDone     atomic.Bool
	enforcing    atomic.Bool

	countdownOverride atomic.Int32

	createdAt   time.Time
	startedNano atomic.Int64

	// boundaryRadius is only touched by the deathmatch tick on the host loop.
	boundaryRadius float64

	// onRemove deregisters the game from its manager once cleanup completes.
	onRemove func(*Game)
}

type gameDeps struct {
	cfg       Config
	log       zerolog.Logger
	loop      *host.Loop
	world     types.BlockWorld
	catalog   types.LootCatalog
	directory types.PlayerDirectory
	hooks     types.HookAdapter
	sink      types.StatisticsSink
}

func newGame(arena types.Arena, deps gameDeps) *Game {
	id := uuid.New()
	logger := deps.log.With().Str("game_id", id.String()).Str("arena", arena.Name()).Logger()
	ctx, cancel := context.WithCancel(context.Background())

	g := &Game{
		id:        id,
		arena:     arena,
		cfg:       deps.cfg,
		log:       logger,
		phase:     gamephase.NewManager(),
		loop:      deps.loop,
		sched:     host.NewScheduler(deps.loop),
		tickets:   host.NewTicketSet(),
		futures:   host.NewFutureSet(),
		world:     deps.world,
		catalog:   deps.catalog,
		sink:      deps.sink,
		ctx:       ctx,
		cancelCtx: cancel,
		createdAt: time.Now(),
	}
	g.registry = player.NewRegistry(arena.SpawnPoints(), deps.directory, deps.hooks, arena.LobbySpawn(), logger)
	g.timers = timer.NewCoordinator(g.sched, logger)
	g.barriers = barrier.NewManager(deps.world, arena.IsBlockAllowed, logger)
	g.elims = elimination.NewManager(g.registry, logger)
	return g
}

// ID is the match's opaque unique identity.
func (g *Game) ID() uuid.UUID { return g.id }

// Arena is the match's physical arena.
func (g *Game) Arena() types.Arena { return g.arena }

// Phase is the match's current lifecycle phase.
func (g *Game) Phase() gamephase.Phase { return g.phase.Current() }

// PvPEnabled reports whether combat is live.
func (g *Game) PvPEnabled() bool { return g.pvpEnabled.Load() }

// InGracePeriod reports whether the no-PvP span after start is running.
func (g *Game) InGracePeriod() bool { return g.inGrace.Load() }

// PlayerCount is the number of active competitors.
func (g *Game) PlayerCount() int { return g.registry.PlayerCount() }

// Players returns the active competitor identities.
func (g *Game) Players() []uuid.UUID { return g.registry.ActiveIDs() }

// Spectators returns the spectator identities.
func (g *Game) Spectators() []uuid.UUID { return g.registry.SpectatorIDs() }

// TimeRemaining reports the time left in the current timed span.
func (g *Game) TimeRemaining() time.Duration { return g.timers.Remaining() }

// HasPlayer reports whether the identity is tracked in any membership.
func (g *Game) HasPlayer(id uuid.UUID) bool {
	return g.registry.Membership(id) != player.MemberNone
}

// AddPlayer admits p as a competitor. Joins are only accepted while the
// match is waiting or counting down; later arrivals are demoted to
// spectator and reported via ErrMatchNotJoinable. Capacity exhaustion
// returns ErrArenaFull alongside a direct message to the player.
func (g *Game) AddPlayer(p types.Player) error {
	if g.shuttingDown.Load() {
		return ErrAlreadyFinished
	}
	if !g.phase.Current().AcceptsJoins() {
		g.AddSpectator(p)
		return ErrMatchNotJoinable
	}

	spawn, ok := g.registry.Add(p)
	if !ok {
		if g.registry.Membership(p.ID()) != player.MemberNone {
			return eris.Wrap(ErrMatchNotJoinable, "player already tracked")
		}
		p.SendMessage("arena is full")
		return ErrArenaFull
	}

	g.log.Info().Str("player", p.Name()).Int("count", g.registry.PlayerCount()).Msg("player joined")
	g.barriers.AssignSpawn(p.ID(), spawn)
	g.loop.Post(func() {
		if err := p.Teleport(spawn); err != nil {
			g.log.Warn().Err(err).Str("player", p.Name()).Msg("spawn teleport failed")
		}
		if err := p.SetGameMode(types.ModeAdventure); err != nil {
			g.log.Warn().Err(err).Str("player", p.Name()).Msg("game mode set failed")
		}
		g.barriers.CreateBoxAround(spawn)
	})
	g.startEnforcementOnce()

	if g.phase.Current() == gamephase.Waiting && g.registry.PlayerCount() >= g.arena.MinPlayers() {
		g.prepareStart()
	}
	return nil
}

// AddSpectator admits p as a non-competing observer.
func (g *Game) AddSpectator(p types.Player) bool {
	if g.shuttingDown.Load() {
		return false
	}
	if !g.registry.AddSpectator(p) {
		return false
	}
	g.loop.Post(func() {
		if err := p.SetGameMode(types.ModeSpectator); err != nil {
			g.log.Warn().Err(err).Str("player", p.Name()).Msg("spectator mode set failed")
		}
		if center := g.arena.Center(); center != nil {
			if err := p.Teleport(*center); err != nil {
				g.log.Warn().Err(err).Str("player", p.Name()).Msg("spectator teleport failed")
			}
		}
	})
	return true
}

// RemovePlayer untracks the player and re-evaluates end conditions. Removing
// a player the match does not know is a no-op.
func (g *Game) RemovePlayer(p types.Player, isDisconnect bool) {
	id := p.ID()
	wasActive := g.registry.Membership(id) == player.MemberActive

	state, removed := g.registry.Remove(id, isDisconnect)
	if !removed {
		return
	}
	g.log.Info().Str("player", state.Name).Bool("disconnect", isDisconnect).Msg("player removed")

	switch {
	case wasActive && g.phase.Current().AcceptsJoins():
		g.barriers.UnassignSpawn(id)
		spawn := state.Spawn
		g.loop.Post(func() { g.barriers.RemoveAround(spawn) })
	case wasActive:
		// Leaving a started match counts as going out: the standings rank
		// the leaver below everyone who outlasted them.
		g.elims.RecordExit(id)
	}
	g.evaluateEnd()
}

// EliminatePlayer converts an active competitor into a spectator and checks
// whether the match is decided.
func (g *Game) EliminatePlayer(p types.Player) {
	checkEnd, err := g.elims.Eliminate(p.ID())
	if err != nil {
		g.log.Debug().Err(err).Str("player", p.Name()).Msg("elimination ignored")
		return
	}
	g.loop.Post(func() {
		if err := p.SetGameMode(types.ModeSpectator); err != nil {
			g.log.Warn().Err(err).Str("player", p.Name()).Msg("spectator mode set failed")
		}
	})
	g.broadcast(fmt.Sprintf("%s has been eliminated! %d tributes remain.", p.Name(), g.registry.PlayerCount()))
	if checkEnd {
		g.evaluateEnd()
	}
}

// RecordKill credits a kill to the killer.
func (g *Game) RecordKill(killer uuid.UUID) {
	g.registry.AddKill(killer)
}

// RecordDamage feeds combat damage into the statistics accumulators.
func (g *Game) RecordDamage(attacker, victim uuid.UUID, amount float64) {
	g.elims.RecordDamageDealt(attacker, amount)
	g.elims.RecordDamageTaken(victim, amount)
}

// RecordChestOpened counts a container opened by the player.
func (g *Game) RecordChestOpened(id uuid.UUID) {
	g.elims.RecordChestOpened(id)
}

// prepareStart runs the chest-fill pipeline once and starts the countdown
// when it completes. The countdown must never begin while containers are
// still being filled.
func (g *Game) prepareStart() {
	if g.fillDone.Load() {
		if err := g.StartCountdown(); err != nil {
			g.log.Debug().Err(err).Msg("countdown not started")
		}
		return
	}
	if !g.fillStarted.CompareAndSwap(false, true) {
		return
	}

	pipe := chestfill.NewPipeline(g.arena, g.catalog, g.loop, g.log,
		chestfill.WithBatchSize(g.cfg.ChestBatchSize),
		chestfill.WithBatchTimeout(g.cfg.fillBatchTimeout()),
	)
	fut := g.futures.Track(pipe.Run(g.ctx))
	go func() {
		err := fut.Await(context.Background())
		switch {
		case err == nil:
			// Filled and ready.
		case eris.Is(err, host.ErrFutureCancelled):
			return
		default:
			// A failed fill leaves containers empty; the match still
			// proceeds in the degraded state.
			g.log.Error().Err(err).Msg("chest fill failed, proceeding with empty containers")
		}
		g.fillDone.Store(true)
		if g.phase.Current() == gamephase.Waiting && g.registry.PlayerCount() >= g.arena.MinPlayers() {
			if err := g.StartCountdown(); err != nil {
				g.log.Debug().Err(err).Msg("countdown not started after fill")
			}
		}
	}()
}

func (g *Game) startEnforcementOnce() {
	if !g.enforcing.CompareAndSwap(false, true) {
		return
	}
	ticket := g.barriers.StartEnforcement(g.sched, g.cfg.enforceInterval(), g.registry.Handle)
	g.tickets.Track(ticket)
}

// broadcast messages every tracked participant from the host loop. Handles
// resolve eagerly so a teardown racing the delivery cannot drop the message.
func (g *Game) broadcast(msg string) {
	ids := append(g.registry.ActiveIDs(), g.registry.SpectatorIDs()...)
	handles := make([]types.Player, 0, len(ids))
	for _, id := range ids {
		if handle, ok := g.registry.Handle(id); ok {
			handles = append(handles, handle)
		}
	}
	g.loop.Post(func() {
		for _, handle := range handles {
			handle.SendMessage(msg)
		}
	})
}
