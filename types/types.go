package types

import (
	"fmt"
	"math"
	"time"
)

// Material identifies a block type in the arena world. The core only needs to
// distinguish passable blocks (which a barrier may overwrite) from solid ones.
type Material string

const (
	MaterialAir       Material = "air"
	MaterialWater     Material = "water"
	MaterialTallGrass Material = "tall_grass"
	MaterialBarrier   Material = "barrier"
	MaterialStone     Material = "stone"
	MaterialChest     Material = "chest"
)

// Passable reports whether a player could move through this block. Only
// passable blocks are ever overwritten by a barrier volume.
func (m Material) Passable() bool {
	switch m {
	case MaterialAir, MaterialWater, MaterialTallGrass:
		return true
	default:
		return false
	}
}

// GameMode mirrors the host server's player game modes.
type GameMode string

const (
	ModeSurvival  GameMode = "survival"
	ModeSpectator GameMode = "spectator"
	ModeAdventure GameMode = "adventure"
)

// Tier is a weighted loot-quality classification assigned per container.
type Tier int

const (
	TierCommon Tier = iota
	TierUncommon
	TierRare
)

func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierUncommon:
		return "uncommon"
	case TierRare:
		return "rare"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Location is a position inside a named world.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Offset returns the location shifted by whole blocks.
func (l Location) Offset(dx, dy, dz int) Location {
	return Location{World: l.World, X: l.X + float64(dx), Y: l.Y + float64(dy), Z: l.Z + float64(dz)}
}

// Block snaps the location to the containing block coordinate.
func (l Location) Block() Location {
	return Location{World: l.World, X: math.Floor(l.X), Y: math.Floor(l.Y), Z: math.Floor(l.Z)}
}

// DistanceSquared avoids the sqrt for tolerance checks.
func (l Location) DistanceSquared(o Location) float64 {
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.1f,%.1f,%.1f)", l.World, l.X, l.Y, l.Z)
}

// ItemStack is a quantity of one material in an inventory slot.
type ItemStack struct {
	Material Material `json:"material"`
	Count    int      `json:"count"`
}

// Effect is an active status effect on a player.
type Effect struct {
	Name      string        `json:"name"`
	Amplifier int           `json:"amplifier"`
	Duration  time.Duration `json:"duration"`
}

// PlayerSnapshot captures everything restored to a player when they exit a
// match. Encoded with a structured codec, never hand-parsed strings.
type PlayerSnapshot struct {
	Location   Location    `json:"location"`
	GameMode   GameMode    `json:"game_mode"`
	Inventory  []ItemStack `json:"inventory"`
	Armor      []ItemStack `json:"armor"`
	Experience int         `json:"experience"`
	Hunger     int         `json:"hunger"`
	Effects    []Effect    `json:"effects"`
}
