package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Player is a live handle to a connected player. Handles go stale when the
// player disconnects; callers re-resolve through a PlayerDirectory.
type Player interface {
	ID() uuid.UUID
	Name() string
	Online() bool
	Location() Location
	Teleport(loc Location) error
	SetGameMode(mode GameMode) error
	SendMessage(msg string)
	// State captures the player's current restorable state.
	State() PlayerSnapshot
	// Restore applies a previously captured snapshot.
	Restore(snap PlayerSnapshot) error
	ClearInventory()
}

// PlayerDirectory resolves live player handles from identities.
type PlayerDirectory interface {
	Lookup(id uuid.UUID) (Player, bool)
}

// Arena is the physical match area, loaded and owned externally.
type Arena interface {
	Name() string
	World() string
	Center() *Location
	LobbySpawn() *Location
	SpawnPoints() []Location
	MinPlayers() int
	ChestLocations() []Location
	// ScanForChests discovers containers in the arena volume and registers
	// them, returning how many were found. Must run on the host context.
	ScanForChests() (int, error)
	IsBlockAllowed(m Material) bool
}

// BlockWorld mutates arena terrain. All calls must run on the host context.
type BlockWorld interface {
	BlockAt(loc Location) Material
	SetBlock(loc Location, m Material) error
}

// LootCatalog supplies tiered loot and fills containers with it.
type LootCatalog interface {
	// LoadItems loads the item tables. May be slow; runs off the host context.
	LoadItems(ctx context.Context) error
	// Size reports how many loot items are currently loaded.
	Size() int
	// FillContainer fills the container at loc with tier-appropriate loot.
	// Must run on the host context.
	FillContainer(loc Location, tier Tier) error
}

// MatchResult is one player's final line in a finished match.
type MatchResult struct {
	PlayerID     uuid.UUID     `json:"player_id"`
	PlayerName   string        `json:"player_name"`
	Placement    int           `json:"placement"`
	Kills        int           `json:"kills"`
	DamageDealt  float64       `json:"damage_dealt"`
	DamageTaken  float64       `json:"damage_taken"`
	ChestsOpened int           `json:"chests_opened"`
	Duration     time.Duration `json:"duration"`
}

// StatisticsSink persists match results. Implementations own their storage.
type StatisticsSink interface {
	RecordResult(ctx context.Context, gameID uuid.UUID, res MatchResult) error
}

// HookAdapter lets third-party systems react to players entering and leaving
// matches (e.g. external scoreboard or stats plugins).
type HookAdapter interface {
	ResetPlayerStats(p Player)
	RestorePlayerStats(p Player)
}
