package survivalgames

import (
	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/types"
)

// Option configures a GameManager at construction.
type Option func(*GameManager)

// WithConfig replaces the default tuning.
func WithConfig(cfg Config) Option {
	return func(m *GameManager) { m.cfg = cfg }
}

// WithLogger sets the root logger; each match derives a sub-logger from it.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *GameManager) { m.log = logger }
}

// WithLoop shares an externally owned host loop. Without this option the
// manager creates its own loop and closes it on Shutdown.
func WithLoop(loop *host.Loop) Option {
	return func(m *GameManager) { m.loop = loop }
}

// WithBlockWorld sets the terrain mutation backend used for barriers.
func WithBlockWorld(world types.BlockWorld) Option {
	return func(m *GameManager) { m.deps.world = world }
}

// WithLootCatalog sets the loot source for the chest-fill pipeline.
func WithLootCatalog(catalog types.LootCatalog) Option {
	return func(m *GameManager) { m.deps.catalog = catalog }
}

// WithPlayerDirectory sets the resolver for stale player handles.
func WithPlayerDirectory(directory types.PlayerDirectory) Option {
	return func(m *GameManager) { m.deps.directory = directory }
}

// WithHookAdapter wires third-party stat hooks into player join and restore.
func WithHookAdapter(hooks types.HookAdapter) Option {
	return func(m *GameManager) { m.deps.hooks = hooks }
}

// WithStatisticsSink sets the store that final match results persist to.
func WithStatisticsSink(sink types.StatisticsSink) Option {
	return func(m *GameManager) { m.deps.sink = sink }
}
