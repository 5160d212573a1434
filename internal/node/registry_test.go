package node

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{
		"lru": StrategyLRU,
		"LRU": StrategyLRU,
		"lcs": StrategyLRU, // historical synonym
		"mru": StrategyMRU,
		"MRU": StrategyMRU,
	} {
		s, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, s, name)
	}

	_, err := ParseStrategy("fifo")
	assert.Error(t, err)
}

func TestPoolForCreatesPoolOnDemand(t *testing.T) {
	reg := newTestRegistry(&fakeRuntime{}, 3)

	p := reg.PoolFor("unseen")
	require.NotNil(t, p)
	assert.Equal(t, 3, p.Function().MaxConcurrency)

	// the same pool is returned on every later reference
	assert.Same(t, p, reg.PoolFor("unseen"))
}

func TestPreconfiguredPoolsExistAtStartup(t *testing.T) {
	viper.Set("pool.concurrency.functions", map[string]interface{}{"hot": 5})
	defer viper.Set("pool.concurrency.functions", map[string]interface{}{})

	reg := newTestRegistry(&fakeRuntime{}, 3)

	snap := reg.SnapshotStats()
	require.Contains(t, snap.PerFunction, "hot")
	assert.Equal(t, 5, snap.PerFunction["hot"].ConcurrencyCap)

	// other functions still get the default cap
	assert.Equal(t, 3, reg.PoolFor("cold").Function().MaxConcurrency)
}

func TestStrategySwapDoesNotTouchPools(t *testing.T) {
	reg := newTestRegistry(&fakeRuntime{}, 2)
	pool := reg.PoolFor("swap")

	spawned, err := pool.Prewarm(2)
	require.NoError(t, err)
	require.Equal(t, 2, spawned)
	before := pool.Status()

	reg.SetReuseStrategy(StrategyMRU)
	assert.Equal(t, StrategyMRU, reg.ReuseStrategy())
	assert.Equal(t, before, pool.Status())
}

func TestStatsSnapshotAndReset(t *testing.T) {
	reg := newTestRegistry(&fakeRuntime{}, 3)
	reg.PoolFor("f")

	reg.RecordColdStart("f")
	reg.RecordColdStart("f")
	reg.RecordWarmStart("f")
	reg.RecordFailed("f")

	snap := reg.SnapshotStats()
	assert.EqualValues(t, 2, snap.TotalColdStarts)
	assert.EqualValues(t, 1, snap.TotalWarmStarts)
	assert.EqualValues(t, 1, snap.TotalRequestsFailed)
	assert.EqualValues(t, 2, snap.PerFunction["f"].ColdStarts)

	reg.ResetStats()
	snap = reg.SnapshotStats()
	assert.EqualValues(t, 0, snap.TotalColdStarts)
	assert.EqualValues(t, 0, snap.TotalWarmStarts)
	assert.EqualValues(t, 0, snap.TotalRequestsFailed)
	assert.EqualValues(t, 0, snap.PerFunction["f"].ColdStarts)
}
