// Package elimination records per-player combat statistics, converts
// eliminations into spectator transitions, and decides when a match must end.
package elimination

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/gamephase"
	"github.com/hollowforge/survivalgames/player"
)

// Verdict is the end-condition decision for the current phase and player
// count.
type Verdict int

const (
	// VerdictNone means the match continues unchanged.
	VerdictNone Verdict = iota
	// VerdictWithholdCountdown means the lobby is under the minimum and the
	// countdown must not start.
	VerdictWithholdCountdown
	// VerdictCancelCountdown means the countdown must revert to waiting.
	VerdictCancelCountdown
	// VerdictEnd means the match must end now.
	VerdictEnd
)

// Manager accumulates combat records and the elimination order. Records can
// arrive from damage-event call paths racing scheduled checks, so they are
// guarded.
type Manager struct {
	registry *player.Registry
	log      zerolog.Logger

	mu           sync.Mutex
	damageDealt  map[uuid.UUID]float64
	damageTaken  map[uuid.UUID]float64
	chestsOpened map[uuid.UUID]int
	order        []uuid.UUID
}

func NewManager(registry *player.Registry, logger zerolog.Logger) *Manager {
	return &Manager{
		registry:     registry,
		log:          logger,
		damageDealt:  make(map[uuid.UUID]float64),
		damageTaken:  make(map[uuid.UUID]float64),
		chestsOpened: make(map[uuid.UUID]int),
	}
}

// Eliminate converts an active competitor into a spectator and appends them
// to the elimination order. Returns true when end conditions should be
// re-evaluated. Only valid for currently active players.
func (m *Manager) Eliminate(id uuid.UUID) (checkEnd bool, err error) {
	state, err := m.registry.Eliminate(id)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.log.Info().Str("player", state.Name).Int("remaining", m.registry.PlayerCount()).Msg("player eliminated")
	return true, nil
}

// RecordExit appends a player who left a started match to the elimination
// order without a membership change, so final standings still rank them
// below the players who outlasted them.
func (m *Manager) RecordExit(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, id)
}

func (m *Manager) RecordDamageDealt(id uuid.UUID, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.damageDealt[id] += amount
}

func (m *Manager) RecordDamageTaken(id uuid.UUID, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.damageTaken[id] += amount
}

func (m *Manager) RecordChestOpened(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chestsOpened[id]++
}

// Stats returns the accumulated records for one player.
func (m *Manager) Stats(id uuid.UUID) (dealt, taken float64, chests int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.damageDealt[id], m.damageTaken[id], m.chestsOpened[id]
}

// Order returns a copy of the elimination order, earliest first.
func (m *Manager) Order() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.order...)
}

// Decide evaluates the end-condition policy. A sub-threshold count never ends
// a WAITING match (it only withholds the countdown), cancels a COUNTDOWN back
// to waiting, and ends the match in every started phase.
func (m *Manager) Decide(phase gamephase.Phase, activeCount, minPlayers int) Verdict {
	switch phase {
	case gamephase.Waiting:
		if activeCount < minPlayers {
			return VerdictWithholdCountdown
		}
		return VerdictNone
	case gamephase.Countdown:
		if activeCount < minPlayers {
			return VerdictCancelCountdown
		}
		return VerdictNone
	case gamephase.GracePeriod, gamephase.Active, gamephase.Deathmatch:
		if activeCount <= 1 {
			return VerdictEnd
		}
		return VerdictNone
	default:
		return VerdictNone
	}
}

// Placements computes final standings: survivors rank above every eliminated
// player, and among the eliminated, the earliest elimination takes the lowest
// placement. When a timeout ends the match with several survivors they take
// the top placements in the given order; the normal case has a single winner.
func (m *Manager) Placements(survivors []uuid.UUID) map[uuid.UUID]int {
	m.mu.Lock()
	order := append([]uuid.UUID(nil), m.order...)
	m.mu.Unlock()

	placements := make(map[uuid.UUID]int, len(order)+len(survivors))
	rank := len(order) + len(survivors)
	for _, id := range order {
		placements[id] = rank
		rank--
	}
	for _, id := range survivors {
		placements[id] = rank
		rank--
	}
	return placements
}
