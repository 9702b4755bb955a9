// Package chestfill asynchronously discovers loot containers in an arena,
// classifies them into weighted tiers, and fills them in bounded batches so
// the host is never overwhelmed. A match awaits the pipeline's future before
// its countdown may start: players must never reach live containers before
// fill completes.
package chestfill

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/statsd"
	"github.com/hollowforge/survivalgames/types"
)

const (
	defaultBatchSize    = 5
	defaultBatchTimeout = 30 * time.Second
)

var ErrCatalogLoad = eris.New("loot catalog load failed, containers left empty")

// Pipeline fills one arena's containers. It runs on a background goroutine
// and hands each individual container mutation to the host loop, awaiting it
// before counting it.
type Pipeline struct {
	arena   types.Arena
	catalog types.LootCatalog
	loop    *host.Loop
	log     zerolog.Logger

	weights      Weights
	batchSize    int
	batchTimeout time.Duration
	rng          *rand.Rand
}

type Option func(*Pipeline)

func WithWeights(w Weights) Option {
	return func(p *Pipeline) { p.weights = w }
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithBatchTimeout bounds how long one batch may take before its unfinished
// fills are abandoned and counted as failures.
func WithBatchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.batchTimeout = d }
}

// WithSeed fixes the tier draw sequence, for tests.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.rng = rand.New(rand.NewSource(seed)) }
}

func NewPipeline(
	arena types.Arena,
	catalog types.LootCatalog,
	loop *host.Loop,
	logger zerolog.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		arena:        arena,
		catalog:      catalog,
		loop:         loop,
		log:          logger,
		weights:      DefaultWeights,
		batchSize:    defaultBatchSize,
		batchTimeout: defaultBatchTimeout,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the fill asynchronously and returns the future the state machine
// awaits. Individual container failures are counted, non-fatal; a catalog
// load failure aborts the run with ErrCatalogLoad but still unblocks the
// caller.
func (p *Pipeline) Run(ctx context.Context) *host.Future {
	f := host.NewFuture()
	go func() {
		f.Complete(p.run(ctx))
	}()
	return f
}

func (p *Pipeline) run(ctx context.Context) error {
	span := tracer.StartSpan("survivalgames.chestfill", tracer.ResourceName(p.arena.Name()))
	defer span.Finish()
	start := time.Now()

	chests := p.arena.ChestLocations()
	if len(chests) == 0 {
		// Container discovery touches world state: run the scan on the host
		// context and wait for it before going any further.
		scan := p.loop.Call(func() error {
			found, err := p.arena.ScanForChests()
			if err != nil {
				return err
			}
			p.log.Info().Int("found", found).Msg("container scan complete")
			return nil
		})
		if err := scan.Await(ctx); err != nil {
			return eris.Wrap(err, "container scan failed")
		}
		chests = p.arena.ChestLocations()
	}

	if p.catalog.Size() == 0 {
		if err := p.catalog.LoadItems(ctx); err != nil {
			p.log.Error().Err(err).Msg("aborting chest fill: loot catalog load failed")
			return eris.Wrap(err, ErrCatalogLoad.Error())
		}
	}

	filled, failed := 0, 0
	for from := 0; from < len(chests); from += p.batchSize {
		if err := ctx.Err(); err != nil {
			p.log.Info().Int("filled", filled).Msg("chest fill cancelled, stopping dispatch")
			return eris.Wrap(err, "chest fill cancelled")
		}
		to := from + p.batchSize
		if to > len(chests) {
			to = len(chests)
		}
		batchFilled, batchFailed := p.fillBatch(ctx, chests[from:to])
		filled += batchFilled
		failed += batchFailed
	}

	p.log.Info().
		Int("filled", filled).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("chest fill complete")
	statsd.EmitFillStat(start, filled, failed)
	return nil
}

// fillBatch dispatches one bounded batch to the host loop and awaits every
// future before returning, so concurrent host load stays bounded. A batch
// that outlives the batch timeout, or whose run is cancelled mid-await, has
// its unfinished fills counted as failures; the pipeline never stalls match
// start forever.
func (p *Pipeline) fillBatch(ctx context.Context, batch []types.Location) (filled, failed int) {
	futures := make([]*host.Future, len(batch))
	for i, loc := range batch {
		loc := loc
		tier := p.weights.draw(p.rng.Intn(p.weights.total()))
		futures[i] = p.loop.Call(func() error {
			return p.catalog.FillContainer(loc, tier)
		})
	}

	bctx, cancel := context.WithTimeout(ctx, p.batchTimeout)
	defer cancel()
	for i, f := range futures {
		err := f.Await(bctx)
		switch {
		case err == nil:
			filled++
		case eris.Is(err, context.DeadlineExceeded):
			failed++
			p.log.Warn().Stringer("location", batch[i]).Msg("container fill timed out, abandoning")
		default:
			failed++
			p.log.Warn().Err(err).Stringer("location", batch[i]).Msg("container fill failed")
		}
	}
	return filled, failed
}
