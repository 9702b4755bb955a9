package chestfill

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/testutils"
	"github.com/hollowforge/survivalgames/types"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func chestLocations(n int) []types.Location {
	chests := make([]types.Location, n)
	for i := range chests {
		chests[i] = types.Location{World: "arena", X: float64(i), Y: 64, Z: 5}
	}
	return chests
}

func TestTierDistributionMatchesWeights(t *testing.T) {
	weights := Weights{70, 25, 5}
	rng := rand.New(rand.NewSource(42))

	const draws = 10000
	var counts [3]int
	for i := 0; i < draws; i++ {
		counts[weights.draw(rng.Intn(weights.total()))]++
	}

	// Observed frequencies must land within a small tolerance of the
	// configured weights.
	assert.InDelta(t, 0.70, float64(counts[types.TierCommon])/draws, 0.02)
	assert.InDelta(t, 0.25, float64(counts[types.TierUncommon])/draws, 0.02)
	assert.InDelta(t, 0.05, float64(counts[types.TierRare])/draws, 0.02)
}

func TestDrawCoversBoundaries(t *testing.T) {
	w := Weights{70, 25, 5}
	assert.Equal(t, types.TierCommon, w.draw(0))
	assert.Equal(t, types.TierCommon, w.draw(69))
	assert.Equal(t, types.TierUncommon, w.draw(70))
	assert.Equal(t, types.TierUncommon, w.draw(94))
	assert.Equal(t, types.TierRare, w.draw(95))
	assert.Equal(t, types.TierRare, w.draw(99))
}

func TestPipelineFillsAllContainersInBatches(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(12))
	catalog := testutils.NewFakeCatalog(10)

	p := NewPipeline(arena, catalog, loop, testLogger(), WithBatchSize(5), WithSeed(1))
	f := p.Run(context.Background())
	require.NoError(t, f.AwaitTimeout(5*time.Second))
	assert.Equal(t, 12, catalog.FilledCount())
	// The catalog already had items loaded; no extra load triggered.
	assert.Equal(t, 0, catalog.Loads)
}

func TestPipelineScansWhenArenaHasNoRegisteredContainers(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.ScanResult = chestLocations(3)
	catalog := testutils.NewFakeCatalog(10)

	p := NewPipeline(arena, catalog, loop, testLogger(), WithSeed(1))
	require.NoError(t, p.Run(context.Background()).AwaitTimeout(5*time.Second))
	assert.Equal(t, 1, arena.Scans)
	assert.Equal(t, 3, catalog.FilledCount())
}

func TestPipelineLoadsEmptyCatalogFirst(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(2))
	catalog := testutils.NewFakeCatalog(0)

	p := NewPipeline(arena, catalog, loop, testLogger(), WithSeed(1))
	require.NoError(t, p.Run(context.Background()).AwaitTimeout(5*time.Second))
	assert.Equal(t, 1, catalog.Loads)
	assert.Equal(t, 2, catalog.FilledCount())
}

func TestCatalogLoadFailureAbortsButUnblocks(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(2))
	catalog := testutils.NewFakeCatalog(0)
	catalog.LoadErr = testutils.ErrFake

	p := NewPipeline(arena, catalog, loop, testLogger(), WithSeed(1))
	err := p.Run(context.Background()).AwaitTimeout(5 * time.Second)
	require.Error(t, err)
	assert.Equal(t, 0, catalog.FilledCount())
}

func TestIndividualFillFailuresAreNonFatal(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(6))
	catalog := testutils.NewFakeCatalog(10)
	catalog.FillErr = testutils.ErrFake

	p := NewPipeline(arena, catalog, loop, testLogger(), WithSeed(1))
	// Every fill fails, yet the pipeline still completes cleanly.
	require.NoError(t, p.Run(context.Background()).AwaitTimeout(5*time.Second))
	assert.Equal(t, 0, catalog.FilledCount())
}

func TestCancelledRunStopsDispatchingFills(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(10))
	catalog := testutils.NewFakeCatalog(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(arena, catalog, loop, testLogger(), WithBatchSize(2), WithSeed(1))
	err := p.Run(ctx).AwaitTimeout(5 * time.Second)
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
	assert.Equal(t, 0, catalog.FilledCount(), "no batch may be dispatched after cancellation")
}

func TestBatchTimeoutProceedsPastStuckFill(t *testing.T) {
	loop := host.NewLoop()
	defer loop.Close()

	arena := testutils.NewFakeArena(4)
	arena.SetChests(chestLocations(2))
	catalog := testutils.NewFakeCatalog(10)
	catalog.FillDelay = make(chan struct{})

	p := NewPipeline(arena, catalog, loop, testLogger(),
		WithBatchSize(2), WithBatchTimeout(20*time.Millisecond), WithSeed(1))
	err := p.Run(context.Background()).AwaitTimeout(5 * time.Second)
	require.NoError(t, err, "a stuck fill must not stall the pipeline")
	close(catalog.FillDelay)
}
