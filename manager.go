package survivalgames

import (
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/statsd"
	"github.com/hollowforge/survivalgames/types"
)

const scanTimeout = 15 * time.Second

// GameManager creates, indexes, and retires match instances. Creation is
// guarded by a circuit breaker so a persistently failing environment (broken
// world access, failing catalog) halts new matches instead of burning retries
// forever.
type GameManager struct {
	cfg  Config
	log  zerolog.Logger
	deps gameDeps

	loop     *host.Loop
	ownsLoop bool

	breaker *gobreaker.CircuitBreaker[*Game]

	mu       sync.RWMutex
	active   map[uuid.UUID]*Game
	byArena  map[string]*Game
	allTime  map[uuid.UUID]*Game
	shutDown bool
}

// NewGameManager builds a manager from the given options. Missing options
// fall back to defaults: stock config, a nop logger, and a loop owned (and
// closed) by the manager.
func NewGameManager(opts ...Option) (*GameManager, error) {
	m := &GameManager{
		cfg:     DefaultConfig(),
		log:     zerolog.Nop(),
		active:  make(map[uuid.UUID]*Game),
		byArena: make(map[string]*Game),
		allTime: make(map[uuid.UUID]*Game),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.loop == nil {
		m.loop = host.NewLoop()
		m.ownsLoop = true
	}
	if m.cfg.StatsdAddress != "" {
		if err := statsd.Init(m.cfg.StatsdAddress, nil); err != nil {
			m.log.Warn().Err(err).Msg("statsd init failed, metrics disabled")
		}
	}

	failures := uint32(m.cfg.BreakerFailures)
	m.breaker = gobreaker.NewCircuitBreaker[*Game](gobreaker.Settings{
		Name:     "match-creation",
		Interval: time.Duration(m.cfg.BreakerWindowSeconds) * time.Second,
		Timeout:  time.Duration(m.cfg.BreakerWindowSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("match creation breaker state changed")
		},
	})

	m.deps.cfg = m.cfg
	m.deps.log = m.log
	m.deps.loop = m.loop
	return m, nil
}

// CreateGame creates and registers a new match on the arena. Validation
// errors never count against the circuit breaker; infrastructure failures
// are retried and, when persistent, open the breaker so further creations
// fail fast with ErrCreationHalted.
func (m *GameManager) CreateGame(arena types.Arena) (*Game, error) {
	if err := validateArena(arena); err != nil {
		return nil, err
	}
	m.mu.RLock()
	if m.shutDown {
		m.mu.RUnlock()
		return nil, ErrManagerShutDown
	}
	if _, busy := m.byArena[arena.Name()]; busy {
		m.mu.RUnlock()
		return nil, ErrArenaBusy
	}
	m.mu.RUnlock()

	game, err := m.breaker.Execute(func() (*Game, error) {
		return retry.DoWithData(
			func() (*Game, error) { return m.createOnce(arena) },
			retry.Attempts(uint(m.cfg.CreateAttempts)),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				// Arena contention and shutdown are not transient.
				return !eris.Is(err, ErrArenaBusy) && !eris.Is(err, ErrManagerShutDown)
			}),
		)
	})
	if err != nil {
		statsd.EmitMatchCreated(false)
		if eris.Is(err, gobreaker.ErrOpenState) || eris.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCreationHalted
		}
		return nil, err
	}
	statsd.EmitMatchCreated(true)
	return game, nil
}

func (m *GameManager) createOnce(arena types.Arena) (*Game, error) {
	// Discover containers up front when the arena has none registered, so a
	// broken world fails creation here instead of surfacing mid-match. The
	// fill pipeline still re-scans as a backstop.
	if len(arena.ChestLocations()) == 0 {
		scan := m.loop.Call(func() error {
			_, err := arena.ScanForChests()
			return err
		})
		if err := scan.AwaitTimeout(scanTimeout); err != nil {
			return nil, eris.Wrap(err, "chest pre-scan failed")
		}
	}

	deps := m.deps
	deps.cfg = m.cfg
	game := newGame(arena, deps)
	game.onRemove = m.remove

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutDown {
		return nil, ErrManagerShutDown
	}
	if _, busy := m.byArena[arena.Name()]; busy {
		return nil, ErrArenaBusy
	}
	m.active[game.ID()] = game
	m.byArena[arena.Name()] = game
	m.allTime[game.ID()] = game

	m.log.Info().
		Str("game_id", game.ID().String()).
		Str("arena", arena.Name()).
		Msg("match created")
	return game, nil
}

func validateArena(arena types.Arena) error {
	if arena == nil {
		return ErrNilArena
	}
	if arena.Name() == "" {
		return eris.Wrap(ErrInvalidArena, "arena has no name")
	}
	if arena.World() == "" {
		return eris.Wrap(ErrInvalidArena, "arena has no world")
	}
	if arena.Center() == nil {
		return eris.Wrap(ErrInvalidArena, "arena has no center")
	}
	if arena.LobbySpawn() == nil {
		return eris.Wrap(ErrInvalidArena, "arena has no lobby spawn")
	}
	if len(arena.SpawnPoints()) == 0 {
		return eris.Wrap(ErrInvalidArena, "arena has no spawn points")
	}
	if arena.MinPlayers() < 2 {
		return eris.Wrap(ErrInvalidArena, "arena minimum players must be at least 2")
	}
	if arena.MinPlayers() > len(arena.SpawnPoints()) {
		return eris.Wrap(ErrInvalidArena, "arena minimum exceeds spawn capacity")
	}
	return nil
}

// Get returns the active match with the given identity.
func (m *GameManager) Get(id uuid.UUID) (*Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.active[id]
	return g, ok
}

// ByPlayer returns the active match tracking the player in any membership.
func (m *GameManager) ByPlayer(id uuid.UUID) (*Game, bool) {
	m.mu.RLock()
	games := make([]*Game, 0, len(m.active))
	for _, g := range m.active {
		games = append(games, g)
	}
	m.mu.RUnlock()

	for _, g := range games {
		if g.HasPlayer(id) {
			return g, true
		}
	}
	return nil, false
}

// ByArena returns the active match on the named arena.
func (m *GameManager) ByArena(name string) (*Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.byArena[name]
	return g, ok
}

// ActiveGames returns the live matches. Corrupted entries (no arena or a zero
// identity) are purged rather than returned: handing a broken instance to a
// caller would fail far from the cause.
func (m *GameManager) ActiveGames() []*Game {
	m.mu.Lock()
	defer m.mu.Unlock()

	games := make([]*Game, 0, len(m.active))
	for id, g := range m.active {
		if g == nil || g.arena == nil || g.id == uuid.Nil {
			m.log.Error().Str("game_id", id.String()).Msg("purging corrupted match entry")
			delete(m.active, id)
			continue
		}
		games = append(games, g)
	}
	return games
}

// AllGames returns every match the manager has ever created, finished ones
// included.
func (m *GameManager) AllGames() []*Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	games := make([]*Game, 0, len(m.allTime))
	for _, g := range m.allTime {
		games = append(games, g)
	}
	return games
}

// Remove ends and deregisters the match. Ending an already-finished match is
// a no-op; deregistration happens via the game's cleanup hook either way.
func (m *GameManager) Remove(id uuid.UUID) {
	m.mu.RLock()
	g, ok := m.active[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	g.EndGame()
}

// remove is the game cleanup hook: it drops the finished match from the
// active indexes.
func (m *GameManager) remove(g *Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, g.ID())
	if cur, ok := m.byArena[g.Arena().Name()]; ok && cur == g {
		delete(m.byArena, g.Arena().Name())
	}
}

// Shutdown ends every active match and refuses further creations. Safe to
// call more than once.
func (m *GameManager) Shutdown() {
	m.mu.Lock()
	if m.shutDown {
		m.mu.Unlock()
		return
	}
	m.shutDown = true
	games := make([]*Game, 0, len(m.active))
	for _, g := range m.active {
		games = append(games, g)
	}
	m.mu.Unlock()

	m.log.Info().Int("games", len(games)).Msg("shutting down game manager")
	for _, g := range games {
		g.EndGame()
	}
	if m.ownsLoop {
		m.loop.Close()
	}
}
