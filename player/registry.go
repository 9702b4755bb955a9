// Package player owns the authoritative membership sets for one match: active
// competitors, spectators, and disconnected players, plus all per-player
// transient state. Compound operations run under a single write lock so that
// "check capacity, snapshot, mutate membership" is atomic with respect to
// other writers.
package player

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/types"
)

// Membership is the mutually exclusive kind of a tracked player.
type Membership int

const (
	MemberNone Membership = iota
	MemberActive
	MemberSpectator
	MemberDisconnected
)

var (
	ErrNotTracked = eris.New("player is not tracked by this match")
	ErrNotActive  = eris.New("player is not an active competitor")
)

// State is everything the registry tracks per player.
type State struct {
	ID       uuid.UUID
	Name     string
	Spawn    types.Location
	Kills    int
	JoinedAt time.Time

	snapshot []byte
}

// Registry is the thread-safe player registry for one match. It is the only
// match state mutated from multiple call sites concurrently (network-driven
// player events racing scheduled callbacks).
type Registry struct {
	mu sync.RWMutex

	spawns       []types.Location
	active       map[uuid.UUID]*State
	spectators   map[uuid.UUID]*State
	disconnected map[uuid.UUID]*State
	spawnTaken   map[int]uuid.UUID

	handles   map[uuid.UUID]types.Player
	directory types.PlayerDirectory
	hooks     types.HookAdapter
	lobby     *types.Location

	log zerolog.Logger
}

// NewRegistry creates a registry whose capacity equals the arena's spawn
// point count.
func NewRegistry(
	spawns []types.Location,
	directory types.PlayerDirectory,
	hooks types.HookAdapter,
	lobby *types.Location,
	logger zerolog.Logger,
) *Registry {
	return &Registry{
		spawns:       spawns,
		active:       make(map[uuid.UUID]*State),
		spectators:   make(map[uuid.UUID]*State),
		disconnected: make(map[uuid.UUID]*State),
		spawnTaken:   make(map[int]uuid.UUID),
		handles:      make(map[uuid.UUID]types.Player),
		directory:    directory,
		hooks:        hooks,
		lobby:        lobby,
		log:          logger,
	}
}

// Add registers p as an active competitor, assigning a free spawn point.
// Returns false with no mutation when capacity is exhausted or the player is
// already tracked. Phase gating (no joins mid-combat) is the caller's job.
func (r *Registry) Add(p types.Player) (types.Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if r.membershipLocked(id) != MemberNone {
		return types.Location{}, false
	}
	if len(r.active) >= len(r.spawns) {
		return types.Location{}, false
	}

	slot := -1
	for i := range r.spawns {
		if _, taken := r.spawnTaken[i]; !taken {
			slot = i
			break
		}
	}
	if slot < 0 {
		return types.Location{}, false
	}

	raw, err := encodeSnapshot(p.State())
	if err != nil {
		r.log.Error().Err(err).Str("player", p.Name()).Msg("failed to snapshot joining player")
		return types.Location{}, false
	}

	r.spawnTaken[slot] = id
	r.active[id] = &State{
		ID:       id,
		Name:     p.Name(),
		Spawn:    r.spawns[slot],
		JoinedAt: time.Now(),
		snapshot: raw,
	}
	r.handles[id] = p
	if r.hooks != nil {
		r.hooks.ResetPlayerStats(p)
	}
	return r.spawns[slot], true
}

// AddSpectator registers p as a non-competing observer. Their state is still
// snapshotted so they can be restored on exit.
func (r *Registry) AddSpectator(p types.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if r.membershipLocked(id) != MemberNone {
		return false
	}
	raw, err := encodeSnapshot(p.State())
	if err != nil {
		r.log.Error().Err(err).Str("player", p.Name()).Msg("failed to snapshot joining spectator")
		return false
	}
	r.spectators[id] = &State{
		ID:       id,
		Name:     p.Name(),
		JoinedAt: time.Now(),
		snapshot: raw,
	}
	r.handles[id] = p
	if r.hooks != nil {
		r.hooks.ResetPlayerStats(p)
	}
	return true
}

// Remove untracks the player. When disconnecting, their record moves to the
// disconnected set so final statistics still resolve; otherwise their
// snapshot is restored and discarded. Removing an untracked player is a
// no-op returning the zero state.
func (r *Registry) Remove(id uuid.UUID, isDisconnect bool) (*State, bool) {
	r.mu.Lock()

	var state *State
	switch {
	case r.active[id] != nil:
		state = r.active[id]
		delete(r.active, id)
		r.releaseSpawnLocked(id)
	case r.spectators[id] != nil:
		state = r.spectators[id]
		delete(r.spectators, id)
	case r.disconnected[id] != nil:
		state = r.disconnected[id]
		delete(r.disconnected, id)
	default:
		r.mu.Unlock()
		return nil, false
	}

	if isDisconnect {
		r.disconnected[id] = state
		delete(r.handles, id)
		r.mu.Unlock()
		return state, true
	}

	handle := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	// Restoration happens outside the lock; it touches the live handle and
	// must not block other registry writers.
	if handle != nil {
		r.restore(handle, state)
	}
	return state, true
}

// Eliminate moves an active competitor to the spectator set in one atomic
// step. The player is never observable as both or neither.
func (r *Registry) Eliminate(id uuid.UUID) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.active[id]
	if !ok {
		if r.membershipLocked(id) == MemberNone {
			return nil, ErrNotTracked
		}
		return nil, ErrNotActive
	}
	delete(r.active, id)
	r.releaseSpawnLocked(id)
	r.spectators[id] = state
	return state, nil
}

// AddKill increments the killer's counter.
func (r *Registry) AddKill(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.active[id]; ok {
		state.Kills++
	}
}

// Membership reports which set, if any, the player currently belongs to.
func (r *Registry) Membership(id uuid.UUID) Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membershipLocked(id)
}

func (r *Registry) membershipLocked(id uuid.UUID) Membership {
	if _, ok := r.active[id]; ok {
		return MemberActive
	}
	if _, ok := r.spectators[id]; ok {
		return MemberSpectator
	}
	if _, ok := r.disconnected[id]; ok {
		return MemberDisconnected
	}
	return MemberNone
}

func (r *Registry) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

func (r *Registry) SpectatorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.spectators)
}

func (r *Registry) Capacity() int {
	return len(r.spawns)
}

// ActiveIDs returns a copy of the active competitor identities.
func (r *Registry) ActiveIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// SpectatorIDs returns a copy of the spectator identities.
func (r *Registry) SpectatorIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.spectators))
	for id := range r.spectators {
		ids = append(ids, id)
	}
	return ids
}

// Tracked returns a copy of every tracked state, whatever the membership.
func (r *Registry) Tracked() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*State, 0, len(r.active)+len(r.spectators)+len(r.disconnected))
	for _, s := range r.active {
		all = append(all, s)
	}
	for _, s := range r.spectators {
		all = append(all, s)
	}
	for _, s := range r.disconnected {
		all = append(all, s)
	}
	return all
}

// Spawn returns the spawn point assigned to an active competitor.
func (r *Registry) Spawn(id uuid.UUID) (types.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.active[id]
	if !ok {
		return types.Location{}, false
	}
	return state.Spawn, true
}

// Handle resolves a live player handle, serving from cache when the cached
// handle is still online and falling back to the directory otherwise. Stale
// entries are evicted.
func (r *Registry) Handle(id uuid.UUID) (types.Player, bool) {
	r.mu.RLock()
	cached, ok := r.handles[id]
	r.mu.RUnlock()
	if ok && cached.Online() {
		return cached, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok = r.handles[id]; ok && cached.Online() {
		return cached, true
	}
	delete(r.handles, id)
	if r.directory == nil {
		return nil, false
	}
	fresh, ok := r.directory.Lookup(id)
	if !ok {
		return nil, false
	}
	r.handles[id] = fresh
	return fresh, true
}

// RestoreAll restores every tracked player's pre-match snapshot and clears
// all registry state. One player's restoration failure never prevents the
// others from being cleaned up. Safe to call more than once.
func (r *Registry) RestoreAll() {
	r.mu.Lock()
	states := make([]*State, 0, len(r.active)+len(r.spectators)+len(r.disconnected))
	for _, s := range r.active {
		states = append(states, s)
	}
	for _, s := range r.spectators {
		states = append(states, s)
	}
	for _, s := range r.disconnected {
		states = append(states, s)
	}
	handles := r.handles
	r.active = make(map[uuid.UUID]*State)
	r.spectators = make(map[uuid.UUID]*State)
	r.disconnected = make(map[uuid.UUID]*State)
	r.spawnTaken = make(map[int]uuid.UUID)
	r.handles = make(map[uuid.UUID]types.Player)
	r.mu.Unlock()

	for _, state := range states {
		handle := handles[state.ID]
		if handle == nil && r.directory != nil {
			handle, _ = r.directory.Lookup(state.ID)
		}
		if handle == nil {
			continue
		}
		r.restore(handle, state)
	}
}

// restore applies the saved snapshot, falling back to a minimal safe restore
// (default mode, empty inventory, lobby teleport) when anything fails.
func (r *Registry) restore(handle types.Player, state *State) {
	snap, err := decodeSnapshot(state.snapshot)
	if err == nil {
		err = handle.Restore(snap)
	}
	if err == nil {
		if r.hooks != nil {
			r.hooks.RestorePlayerStats(handle)
		}
		return
	}

	r.log.Warn().Err(err).Str("player", state.Name).Msg("snapshot restore failed, applying minimal restore")
	handle.ClearInventory()
	if modeErr := handle.SetGameMode(types.ModeSurvival); modeErr != nil {
		r.log.Warn().Err(modeErr).Str("player", state.Name).Msg("minimal restore: game mode reset failed")
	}
	if r.lobby != nil {
		if tpErr := handle.Teleport(*r.lobby); tpErr != nil {
			r.log.Warn().Err(tpErr).Str("player", state.Name).Msg("minimal restore: lobby teleport failed")
		}
	}
	if r.hooks != nil {
		r.hooks.RestorePlayerStats(handle)
	}
}

func (r *Registry) releaseSpawnLocked(id uuid.UUID) {
	for slot, owner := range r.spawnTaken {
		if owner == id {
			delete(r.spawnTaken, slot)
			return
		}
	}
}
