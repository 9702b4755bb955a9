package gamephase

import (
	"sync/atomic"
)

type Phase string

const (
	Waiting     Phase = "WAITING"      // Lobby phase, players may join freely
	Countdown   Phase = "COUNTDOWN"    // Enough players present, countdown running
	GracePeriod Phase = "GRACE_PERIOD" // Match started, PvP disabled
	Active      Phase = "ACTIVE"       // PvP enabled
	Deathmatch  Phase = "DEATHMATCH"   // Shrinking boundary forces players together
	Finished    Phase = "FINISHED"     // Terminal, absorbing
)

// edges is the legal transition table. Phases advance strictly forward with
// one backward edge (Countdown -> Waiting, countdown cancellation). Finished
// is reachable from every non-terminal phase because a match can end at any
// point (disconnect cascades, manager shutdown) and has no outgoing edges.
var edges = map[Phase][]Phase{
	Waiting:     {Countdown, Finished},
	Countdown:   {Waiting, GracePeriod, Finished},
	GracePeriod: {Active, Finished},
	Active:      {Deathmatch, Finished},
	Deathmatch:  {Finished},
	Finished:    {},
}

// CanTransition reports whether from -> to is in the legal transition table.
func CanTransition(from, to Phase) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the phase has no outgoing edges.
func (p Phase) Terminal() bool {
	return p == Finished
}

// AcceptsJoins reports whether new competitors may still enter.
func (p Phase) AcceptsJoins() bool {
	return p == Waiting || p == Countdown
}

// Started reports whether the match has left the pre-game phases.
func (p Phase) Started() bool {
	return p == GracePeriod || p == Active || p == Deathmatch || p == Finished
}

// Manager holds a match's canonical phase value. All mutation goes through
// Advance so the transition table cannot be bypassed.
type Manager struct {
	current *atomic.Value
}

func NewManager() *Manager {
	m := &Manager{
		current: &atomic.Value{},
	}
	m.current.Store(Waiting)
	return m
}

func (m *Manager) Current() Phase {
	return m.current.Load().(Phase)
}

// Advance performs the transition from -> to if and only if the table allows
// it and the current phase still equals from. Concurrent racers on the same
// edge see exactly one winner.
func (m *Manager) Advance(from, to Phase) (advanced bool) {
	if !CanTransition(from, to) {
		return false
	}
	return m.current.CompareAndSwap(from, to)
}
