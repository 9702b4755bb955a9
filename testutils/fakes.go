// Package testutils provides in-memory fakes for the external collaborators
// (arena, players, block world, loot catalog, sinks) used across package
// tests.
package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/hollowforge/survivalgames/types"
)

// FakePlayer is an in-memory live player handle.
type FakePlayer struct {
	mu sync.Mutex

	PlayerID   uuid.UUID
	PlayerName string

	Loc      types.Location
	Mode     types.GameMode
	Offline  bool
	Messages []string

	Snapshot    types.PlayerSnapshot
	Restored    *types.PlayerSnapshot
	RestoreErr  error
	TeleportErr error
	Cleared     bool
	Teleports   int
}

func NewFakePlayer(name string) *FakePlayer {
	return &FakePlayer{
		PlayerID:   uuid.New(),
		PlayerName: name,
		Mode:       types.ModeSurvival,
		Snapshot: types.PlayerSnapshot{
			Location:   types.Location{World: "lobby", X: 0, Y: 64, Z: 0},
			GameMode:   types.ModeSurvival,
			Inventory:  []types.ItemStack{{Material: types.MaterialStone, Count: 12}},
			Experience: 7,
			Hunger:     20,
		},
	}
}

func (p *FakePlayer) ID() uuid.UUID { return p.PlayerID }
func (p *FakePlayer) Name() string  { return p.PlayerName }

func (p *FakePlayer) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.Offline
}

func (p *FakePlayer) SetOffline(offline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Offline = offline
}

func (p *FakePlayer) Location() types.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Loc
}

func (p *FakePlayer) SetLocation(loc types.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loc = loc
}

func (p *FakePlayer) Teleport(loc types.Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TeleportErr != nil {
		return p.TeleportErr
	}
	p.Loc = loc
	p.Teleports++
	return nil
}

func (p *FakePlayer) SetGameMode(mode types.GameMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Mode = mode
	return nil
}

func (p *FakePlayer) SendMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
}

func (p *FakePlayer) LastMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Messages) == 0 {
		return ""
	}
	return p.Messages[len(p.Messages)-1]
}

// ReceivedContaining reports whether any delivered message contains sub.
func (p *FakePlayer) ReceivedContaining(sub string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range p.Messages {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// RestoredSnapshot returns the snapshot applied by Restore, nil when the
// player was never restored.
func (p *FakePlayer) RestoredSnapshot() *types.PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Restored
}

func (p *FakePlayer) State() types.PlayerSnapshot { return p.Snapshot }

func (p *FakePlayer) Restore(snap types.PlayerSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RestoreErr != nil {
		return p.RestoreErr
	}
	p.Restored = &snap
	p.Loc = snap.Location
	p.Mode = snap.GameMode
	return nil
}

func (p *FakePlayer) ClearInventory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cleared = true
}

// FakeDirectory resolves fake players by identity.
type FakeDirectory struct {
	mu      sync.Mutex
	players map[uuid.UUID]*FakePlayer
}

func NewFakeDirectory(players ...*FakePlayer) *FakeDirectory {
	d := &FakeDirectory{players: make(map[uuid.UUID]*FakePlayer)}
	for _, p := range players {
		d.players[p.PlayerID] = p
	}
	return d
}

func (d *FakeDirectory) Register(p *FakePlayer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.players[p.PlayerID] = p
}

func (d *FakeDirectory) Lookup(id uuid.UUID) (types.Player, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.players[id]
	if !ok || !p.Online() {
		return nil, false
	}
	return p, true
}

// FakeArena is a configurable in-memory arena.
type FakeArena struct {
	mu sync.Mutex

	ArenaName  string
	WorldName  string
	CenterLoc  *types.Location
	Lobby      *types.Location
	Spawns     []types.Location
	Chests     []types.Location
	Min        int
	ScanResult []types.Location
	ScanErr    error
	Scans      int
}

func NewFakeArena(spawnCount int) *FakeArena {
	spawns := make([]types.Location, spawnCount)
	for i := range spawns {
		spawns[i] = types.Location{World: "arena", X: float64(i * 10), Y: 64, Z: 0}
	}
	center := types.Location{World: "arena", X: 0, Y: 64, Z: 0}
	lobby := types.Location{World: "lobby", X: 0, Y: 64, Z: 0}
	return &FakeArena{
		ArenaName: "fake-arena",
		WorldName: "arena",
		CenterLoc: &center,
		Lobby:     &lobby,
		Spawns:    spawns,
		Min:       2,
	}
}

func (a *FakeArena) Name() string                { return a.ArenaName }
func (a *FakeArena) World() string               { return a.WorldName }
func (a *FakeArena) Center() *types.Location     { return a.CenterLoc }
func (a *FakeArena) LobbySpawn() *types.Location { return a.Lobby }
func (a *FakeArena) MinPlayers() int             { return a.Min }

func (a *FakeArena) SpawnPoints() []types.Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Location(nil), a.Spawns...)
}

func (a *FakeArena) ChestLocations() []types.Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Location(nil), a.Chests...)
}

func (a *FakeArena) SetChests(chests []types.Location) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Chests = chests
}

func (a *FakeArena) ScanForChests() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Scans++
	if a.ScanErr != nil {
		return 0, a.ScanErr
	}
	a.Chests = append([]types.Location(nil), a.ScanResult...)
	return len(a.Chests), nil
}

func (a *FakeArena) IsBlockAllowed(types.Material) bool { return true }

// FakeWorld is an in-memory block store. Unset coordinates read as air.
type FakeWorld struct {
	mu     sync.Mutex
	Blocks map[types.Location]types.Material
	Sets   int
}

func NewFakeWorld() *FakeWorld {
	return &FakeWorld{Blocks: make(map[types.Location]types.Material)}
}

func (w *FakeWorld) BlockAt(loc types.Location) types.Material {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.Blocks[loc.Block()]; ok {
		return m
	}
	return types.MaterialAir
}

func (w *FakeWorld) SetBlock(loc types.Location, m types.Material) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Blocks[loc.Block()] = m
	w.Sets++
	return nil
}

// FakeCatalog is an in-memory loot catalog.
type FakeCatalog struct {
	mu sync.Mutex

	Items     int
	LoadErr   error
	LoadDelay chan struct{} // when set, LoadItems blocks until closed
	Loads     int
	FillErr   error
	FillDelay chan struct{} // when set, FillContainer blocks until closed
	Filled    map[types.Location]types.Tier
}

func NewFakeCatalog(items int) *FakeCatalog {
	return &FakeCatalog{Items: items, Filled: make(map[types.Location]types.Tier)}
}

func (c *FakeCatalog) LoadItems(ctx context.Context) error {
	c.mu.Lock()
	delay := c.LoadDelay
	c.mu.Unlock()
	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Loads++
	if c.LoadErr != nil {
		return c.LoadErr
	}
	c.Items = 32
	return nil
}

func (c *FakeCatalog) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Items
}

func (c *FakeCatalog) FillContainer(loc types.Location, tier types.Tier) error {
	c.mu.Lock()
	delay := c.FillDelay
	c.mu.Unlock()
	if delay != nil {
		<-delay
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FillErr != nil {
		return c.FillErr
	}
	c.Filled[loc.Block()] = tier
	return nil
}

func (c *FakeCatalog) FilledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Filled)
}

// FakeSink records match results in memory.
type FakeSink struct {
	mu      sync.Mutex
	Results []types.MatchResult
	Err     error
}

func (s *FakeSink) RecordResult(_ context.Context, _ uuid.UUID, res types.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Results = append(s.Results, res)
	return nil
}

func (s *FakeSink) Recorded() []types.MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.MatchResult(nil), s.Results...)
}

// FakeHooks counts hook invocations.
type FakeHooks struct {
	mu       sync.Mutex
	Resets   int
	Restores int
}

func (h *FakeHooks) ResetPlayerStats(types.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Resets++
}

func (h *FakeHooks) RestorePlayerStats(types.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Restores++
}

func (h *FakeHooks) Counts() (resets, restores int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Resets, h.Restores
}

// ErrFake is a reusable failure for fault-injection tests.
var ErrFake = eris.New("injected failure")
