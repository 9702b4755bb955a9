// Package barrier places temporary movement-blocking volumes around spawn
// points during the pre-game phases and guarantees exact terrain restoration
// on removal. A periodic enforcement tick snaps players back to their
// assigned spawn when they slip past the physical cage.
package barrier

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/types"
)

// Spawn tolerance before a player is snapped back, squared to skip the sqrt.
const snapToleranceSq = 1.5 * 1.5

// box shape: the 8 horizontal neighbors of the anchor, three layers tall.
var boxOffsets = func() [][3]int {
	var offs [][3]int
	for dy := 0; dy <= 2; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dz == 0 {
					continue
				}
				offs = append(offs, [3]int{dx, dy, dz})
			}
		}
	}
	return offs
}()

// Manager tracks every placed barrier block per anchoring spawn point.
// Placement normally happens on the host loop, but terminal cleanup restores
// inline from whichever context triggered the end, so the tracking maps are
// guarded.
type Manager struct {
	world   types.BlockWorld
	allowed func(types.Material) bool
	log     zerolog.Logger

	mu        sync.Mutex
	originals map[types.Location]types.Material
	byAnchor  map[types.Location][]types.Location
	assigned  map[uuid.UUID]types.Location
	enforce   *host.Ticket
}

// NewManager builds a barrier manager. allowed is the arena's block policy:
// only passable blocks it permits are ever overwritten. A nil policy permits
// every passable block.
func NewManager(world types.BlockWorld, allowed func(types.Material) bool, logger zerolog.Logger) *Manager {
	if allowed == nil {
		allowed = func(types.Material) bool { return true }
	}
	return &Manager{
		world:     world,
		allowed:   allowed,
		log:       logger,
		originals: make(map[types.Location]types.Material),
		byAnchor:  make(map[types.Location][]types.Location),
		assigned:  make(map[uuid.UUID]types.Location),
	}
}

// CreateBoxAround encloses the spawn point at center. Passable blocks are
// replaced with the barrier material and their original type recorded; solid
// blocks are left untouched so arena geometry is never destroyed. Returns the
// number of blocks placed.
func (m *Manager) CreateBoxAround(center types.Location) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	anchor := center.Block()
	placed := 0
	for _, off := range boxOffsets {
		loc := anchor.Offset(off[0], off[1], off[2])
		existing := m.world.BlockAt(loc)
		if !existing.Passable() || !m.allowed(existing) {
			continue
		}
		if _, already := m.originals[loc]; already {
			continue
		}
		if err := m.world.SetBlock(loc, types.MaterialBarrier); err != nil {
			m.log.Warn().Err(err).Stringer("location", loc).Msg("failed to place barrier block")
			continue
		}
		m.originals[loc] = existing
		m.byAnchor[anchor] = append(m.byAnchor[anchor], loc)
		placed++
	}
	return placed
}

// RemoveAround restores one player's cage only, leaving other cages intact.
func (m *Manager) RemoveAround(center types.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	anchor := center.Block()
	for _, loc := range m.byAnchor[anchor] {
		m.restoreBlock(loc)
	}
	delete(m.byAnchor, anchor)
}

// RemoveAll restores every recorded coordinate and clears tracking.
func (m *Manager) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for loc := range m.originals {
		m.restoreBlock(loc)
	}
	m.byAnchor = make(map[types.Location][]types.Location)
}

func (m *Manager) restoreBlock(loc types.Location) {
	original, ok := m.originals[loc]
	if !ok {
		return
	}
	if err := m.world.SetBlock(loc, original); err != nil {
		m.log.Warn().Err(err).Stringer("location", loc).Msg("failed to restore barrier block")
	}
	delete(m.originals, loc)
}

// TrackedBlocks reports how many placed blocks still await restoration.
func (m *Manager) TrackedBlocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.originals)
}

// AssignSpawn registers the player for spawn enforcement.
func (m *Manager) AssignSpawn(id uuid.UUID, spawn types.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned[id] = spawn
}

// UnassignSpawn stops enforcing the player's position.
func (m *Manager) UnassignSpawn(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assigned, id)
}

// StartEnforcement begins the periodic position check. Players farther than
// the tolerance from their spawn are teleported back; this guards against
// movement exploits that bypass the physical barrier. The returned ticket is
// also retained for StopEnforcement.
func (m *Manager) StartEnforcement(
	sched *host.Scheduler,
	interval time.Duration,
	lookup func(uuid.UUID) (types.Player, bool),
) *host.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enforce != nil {
		m.enforce.Cancel()
	}
	ticket := sched.Every(interval, func() {
		m.enforceOnce(lookup)
	})
	m.enforce = ticket
	return ticket
}

// StopEnforcement cancels the enforcement tick and clears assignments.
func (m *Manager) StopEnforcement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enforce != nil {
		m.enforce.Cancel()
		m.enforce = nil
	}
	m.assigned = make(map[uuid.UUID]types.Location)
}

func (m *Manager) enforceOnce(lookup func(uuid.UUID) (types.Player, bool)) {
	m.mu.Lock()
	snapshot := make(map[uuid.UUID]types.Location, len(m.assigned))
	for id, spawn := range m.assigned {
		snapshot[id] = spawn
	}
	m.mu.Unlock()

	for id, spawn := range snapshot {
		p, ok := lookup(id)
		if !ok {
			continue
		}
		if p.Location().DistanceSquared(spawn) <= snapToleranceSq {
			continue
		}
		if err := p.Teleport(spawn); err != nil {
			m.log.Warn().Err(err).Str("player", p.Name()).Msg("failed to snap player to spawn")
		}
	}
}
