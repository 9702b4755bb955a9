// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so a future metrics migration only needs to
// edit this single file. The client is a no-op until Init is called with an
// agent address.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitFillStat reports one finished chest-fill run.
func EmitFillStat(start time.Time, filled, failed int) {
	duration := time.Since(start)
	if err := Client().Timing("chestfill", duration, nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit chestfill timing: %v", err)
	}
	if err := Client().Count("chestfill.filled", int64(filled), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit chestfill filled count: %v", err)
	}
	if err := Client().Count("chestfill.failed", int64(failed), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit chestfill failed count: %v", err)
	}
}

// EmitPhaseStat reports one phase transition.
func EmitPhaseStat(phase string) {
	if err := Client().Incr("phase", []string{"phase:" + phase}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit phase stat: %v", err)
	}
}

// EmitMatchCreated counts a match creation attempt outcome.
func EmitMatchCreated(success bool) {
	name := "match.created"
	if !success {
		name = "match.create_failed"
	}
	if err := Client().Incr(name, nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit match creation stat: %v", err)
	}
}

// EmitMatchDuration reports a finished match's length.
func EmitMatchDuration(start time.Time) {
	if err := Client().Timing("match.duration", time.Since(start), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit match duration: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("survivalgames"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}
