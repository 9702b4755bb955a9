package survivalgames

import (
	"fmt"
	"time"

	"github.com/hollowforge/survivalgames/gamephase"
	"github.com/hollowforge/survivalgames/statsd"
	"github.com/hollowforge/survivalgames/types"
)

// transitionTo attempts one edge of the phase table. Illegal edges and lost
// races are logged at debug and have no side effect: racing callers on the
// same transition are expected and benign.
func (g *Game) transitionTo(to gamephase.Phase) bool {
	from := g.phase.Current()
	if from == to {
		return false
	}
	if !g.phase.Advance(from, to) {
		g.log.Debug().
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("phase transition rejected")
		return false
	}
	g.log.Info().Str("from", string(from)).Str("to", string(to)).Msg("phase transition")
	statsd.EmitPhaseStat(string(to))
	g.onTransition(from, to)
	return true
}

// onTransition applies the side effects for one successful edge.
func (g *Game) onTransition(from, to gamephase.Phase) {
	switch {
	case from == gamephase.Waiting && to == gamephase.Countdown:
		seconds := g.cfg.CountdownSeconds
		if override := g.countdownOverride.Swap(0); override > 0 {
			seconds = int(override)
		}
		g.broadcast(fmt.Sprintf("The games begin in %d seconds!", seconds))
		g.timers.StartCountdown(seconds, g.announceCountdown, func() { g.startGame() })

	case from == gamephase.Countdown && to == gamephase.Waiting:
		// Cancellation: countdown stops, barriers stay intact.
		g.timers.CancelCountdown()
		g.broadcast("Countdown cancelled: waiting for more tributes.")

	case from == gamephase.Countdown && to == gamephase.GracePeriod:
		g.beginMatch()

	case from == gamephase.GracePeriod && to == gamephase.Active:
		g.enterActive()

	case from == gamephase.Active && to == gamephase.Deathmatch:
		g.enterDeathmatch()
	}
	// Edges into Finished carry no effects here: EndGame owns terminal work.
}

// StartCountdown starts (or restarts) the pre-game countdown. An optional
// override replaces the configured duration. While containers are still
// being filled the countdown is deferred, not started: the fill-completion
// callback picks it up, so players can never reach live containers early.
func (g *Game) StartCountdown(secondsOverride ...int) error {
	if g.shuttingDown.Load() {
		return ErrAlreadyFinished
	}
	if g.registry.PlayerCount() < g.arena.MinPlayers() {
		return ErrCountdownRequires
	}
	if len(secondsOverride) > 0 && secondsOverride[0] > 0 {
		g.countdownOverride.Store(int32(secondsOverride[0]))
	}
	if !g.fillDone.Load() {
		g.log.Info().Msg("countdown deferred until chest fill completes")
		g.prepareStart()
		return nil
	}
	if !g.transitionTo(gamephase.Countdown) {
		return ErrMatchNotJoinable
	}
	return nil
}

// CancelCountdown reverts a counting-down match to waiting.
func (g *Game) CancelCountdown() {
	g.transitionTo(gamephase.Waiting)
}

func (g *Game) announceCountdown(remaining int) {
	if remaining <= 5 || remaining == 10 || remaining == 30 || remaining%60 == 0 {
		g.broadcast(fmt.Sprintf("%d...", remaining))
	}
}

// startGame is the countdown-elapsed callback: the match leaves the lobby
// phases and the grace period begins.
func (g *Game) startGame() {
	g.transitionTo(gamephase.GracePeriod)
}

// beginMatch applies the COUNTDOWN -> GRACE_PERIOD effects: cages drop,
// enforcement stops, the grace timer arms.
func (g *Game) beginMatch() {
	g.startedNano.Store(time.Now().UnixNano())
	g.inGrace.Store(true)
	g.enforcing.Store(false)
	g.barriers.StopEnforcement()
	g.loop.Post(func() { g.barriers.RemoveAll() })

	for _, id := range g.registry.ActiveIDs() {
		if handle, ok := g.registry.Handle(id); ok {
			handle := handle
			g.loop.Post(func() {
				if err := handle.SetGameMode(types.ModeSurvival); err != nil {
					g.log.Warn().Err(err).Str("player", handle.Name()).Msg("survival mode set failed")
				}
			})
		}
	}

	grace := g.cfg.graceDuration()
	if grace <= 0 {
		g.timers.SkipGrace()
		g.transitionTo(gamephase.Active)
		return
	}
	g.broadcast(fmt.Sprintf("Grace period: PvP enabled in %d seconds.", g.cfg.GraceSeconds))
	g.timers.StartGrace(grace, func() { g.transitionTo(gamephase.Active) })
}

// enterActive applies the GRACE_PERIOD -> ACTIVE effects: PvP on, deathmatch
// armed relative to grace end, periodic end-check running.
func (g *Game) enterActive() {
	g.inGrace.Store(false)
	g.pvpEnabled.Store(true)
	g.broadcast("PvP is now enabled. Good luck, tributes!")

	g.timers.ScheduleDeathmatch(
		g.cfg.deathmatchDelay(),
		g.cfg.deathmatchTimeout(),
		func() { g.transitionTo(gamephase.Deathmatch) },
		func() {
			g.log.Info().Msg("deathmatch timed out, ending match")
			g.EndGame()
		},
	)
	g.tickets.Track(g.sched.Every(g.cfg.endCheckInterval(), g.evaluateEnd))
}

// enterDeathmatch applies the ACTIVE -> DEATHMATCH effects: the boundary
// starts shrinking, pulling stragglers toward the arena center.
func (g *Game) enterDeathmatch() {
	g.broadcast("Deathmatch! The boundary is closing in.")
	center := g.arena.Center()
	if center == nil {
		return
	}

	g.boundaryRadius = g.initialBoundaryRadius(*center)
	g.tickets.Track(g.sched.Every(time.Second, func() {
		if g.boundaryRadius > 4 {
			g.boundaryRadius -= g.cfg.BoundaryShrinkPerTick
		}
		limitSq := g.boundaryRadius * g.boundaryRadius
		for _, id := range g.registry.ActiveIDs() {
			handle, ok := g.registry.Handle(id)
			if !ok {
				continue
			}
			if handle.Location().DistanceSquared(*center) <= limitSq {
				continue
			}
			if err := handle.Teleport(*center); err != nil {
				g.log.Warn().Err(err).Str("player", handle.Name()).Msg("boundary teleport failed")
			}
		}
	}))
}

// initialBoundaryRadius spans the farthest spawn point from center.
func (g *Game) initialBoundaryRadius(center types.Location) float64 {
	maxSq := 0.0
	for _, spawn := range g.arena.SpawnPoints() {
		if d := spawn.DistanceSquared(center); d > maxSq {
			maxSq = d
		}
	}
	if maxSq == 0 {
		return 32
	}
	radius := 1.0
	for radius*radius < maxSq {
		radius *= 2
	}
	return radius
}
