package survivalgames

import (
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

// Config carries every tunable of the match core. Values come from the
// environment with the defaults below as fallback.
type Config struct {
	CountdownSeconds         int     `config:"SG_COUNTDOWN_SECONDS"`
	GraceSeconds             int     `config:"SG_GRACE_SECONDS"`
	DeathmatchDelaySeconds   int     `config:"SG_DEATHMATCH_DELAY_SECONDS"`
	DeathmatchTimeoutSeconds int     `config:"SG_DEATHMATCH_TIMEOUT_SECONDS"`
	EndCheckSeconds          int     `config:"SG_END_CHECK_SECONDS"`
	EnforceIntervalMillis    int     `config:"SG_ENFORCE_INTERVAL_MILLIS"`
	ChestBatchSize           int     `config:"SG_CHEST_BATCH_SIZE"`
	FillBatchTimeoutSeconds  int     `config:"SG_FILL_BATCH_TIMEOUT_SECONDS"`
	BreakerFailures          int     `config:"SG_BREAKER_FAILURES"`
	BreakerWindowSeconds     int     `config:"SG_BREAKER_WINDOW_SECONDS"`
	CreateAttempts           int     `config:"SG_CREATE_ATTEMPTS"`
	BoundaryShrinkPerTick    float64 `config:"SG_BOUNDARY_SHRINK_PER_TICK"`
	RedisAddress             string  `config:"SG_REDIS_ADDRESS"`
	RedisPassword            string  `config:"SG_REDIS_PASSWORD"`
	StatsdAddress            string  `config:"SG_STATSD_ADDRESS"`
}

// DefaultConfig is the stock tuning for production arenas.
func DefaultConfig() Config {
	return Config{
		CountdownSeconds:         30,
		GraceSeconds:             60,
		DeathmatchDelaySeconds:   600,
		DeathmatchTimeoutSeconds: 180,
		EndCheckSeconds:          5,
		EnforceIntervalMillis:    500,
		ChestBatchSize:           5,
		FillBatchTimeoutSeconds:  30,
		BreakerFailures:          5,
		BreakerWindowSeconds:     60,
		CreateAttempts:           3,
		BoundaryShrinkPerTick:    0.5,
	}
}

// LoadConfig builds the config from defaults overridden by environment
// variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to load config from environment")
	}
	return cfg, nil
}

func (c Config) graceDuration() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

func (c Config) deathmatchDelay() time.Duration {
	return time.Duration(c.DeathmatchDelaySeconds) * time.Second
}

func (c Config) deathmatchTimeout() time.Duration {
	return time.Duration(c.DeathmatchTimeoutSeconds) * time.Second
}

func (c Config) endCheckInterval() time.Duration {
	return time.Duration(c.EndCheckSeconds) * time.Second
}

func (c Config) enforceInterval() time.Duration {
	return time.Duration(c.EnforceIntervalMillis) * time.Millisecond
}

func (c Config) fillBatchTimeout() time.Duration {
	return time.Duration(c.FillBatchTimeoutSeconds) * time.Second
}
