package node

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/exp/maps"

	"github.com/hearth-faas/hearth/internal/config"
	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/function"
)

// Strategy selects which idle container a pool reuses.
type Strategy int32

const (
	// StrategyLRU reuses the oldest idle container (also known as LCS).
	StrategyLRU Strategy = iota
	// StrategyMRU reuses the newest idle container.
	StrategyMRU
)

func (s Strategy) String() string {
	if s == StrategyMRU {
		return "mru"
	}
	return "lru"
}

// ParseStrategy accepts "lru", "mru" and the synonym "lcs", case-insensitive.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "lru", "lcs":
		return StrategyLRU, nil
	case "mru":
		return StrategyMRU, nil
	default:
		return StrategyLRU, fmt.Errorf("unknown strategy '%s'", name)
	}
}

// Runtime is the container capability the pools rely on. Invocations go
// through the scheduling package instead.
type Runtime interface {
	Launch(f *function.Function) (*container.Container, error)
	Destroy(c *container.Container)
}

// Registry maps function names to their pools and owns the active reuse
// strategy. Pools are created on first reference and live until process
// exit.
//
// Lock order: registry lock first, then pool lock; never the reverse.
type Registry struct {
	mu      sync.Mutex
	pools   map[string]*Pool
	runtime Runtime

	image        string
	defaultCap   int
	functionCaps map[string]int

	strategy atomic.Int32
	stats    statsRegistry

	startedAt time.Time

	draining bool // guarded by mu; pools created after Drain start draining
}

// Local is the registry of this node.
var Local *Registry

func NewRegistry(rt Runtime) *Registry {
	reg := &Registry{
		pools:        make(map[string]*Pool),
		runtime:      rt,
		image:        config.GetString(config.CONTAINER_IMAGE, "faas-function:latest"),
		defaultCap:   config.GetInt(config.POOL_DEFAULT_CONCURRENCY, 3),
		functionCaps: make(map[string]int),
		startedAt:    time.Now(),
	}
	reg.stats.init()

	for name, capacity := range config.GetStringMap(config.POOL_FUNCTION_CONCURRENCY) {
		reg.functionCaps[name] = cast.ToInt(capacity)
	}

	initial := config.GetString(config.SCHEDULER_STRATEGY, "lru")
	s, err := ParseStrategy(initial)
	if err != nil {
		s = StrategyLRU
	}
	reg.strategy.Store(int32(s))

	// preconfigured pools exist from startup
	for name := range reg.functionCaps {
		reg.PoolFor(name)
	}

	return reg
}

// PoolFor resolves (or atomically creates) the pool for a function.
// Concurrent calls for the same unknown function observe the same pool.
func (reg *Registry) PoolFor(name string) *Pool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if p, ok := reg.pools[name]; ok {
		return p
	}

	capacity := reg.defaultCap
	if c, ok := reg.functionCaps[name]; ok && c > 0 {
		capacity = c
	}

	p := newPool(function.New(name, reg.image, capacity), reg)
	p.draining = reg.draining
	reg.pools[name] = p
	return p
}

// ReuseStrategy returns the strategy in effect for the next reuse decision.
func (reg *Registry) ReuseStrategy() Strategy {
	return Strategy(reg.strategy.Load())
}

// SetReuseStrategy swaps the strategy at runtime. In-progress acquires that
// already picked a container are unaffected.
func (reg *Registry) SetReuseStrategy(s Strategy) {
	reg.strategy.Store(int32(s))
}

// poolSnapshot copies the current pool set so callers can iterate without
// holding the registry lock. Pools created afterwards are picked up on the
// next snapshot.
func (reg *Registry) poolSnapshot() []*Pool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return maps.Values(reg.pools)
}

// SweepAll runs one reclamation pass over every pool.
func (reg *Registry) SweepAll(now time.Time, warmTime time.Duration) int {
	reclaimed := 0
	for _, p := range reg.poolSnapshot() {
		reclaimed += p.Sweep(now, warmTime)
	}
	return reclaimed
}

// WarmStatus returns the number of idle containers per function.
func (reg *Registry) WarmStatus() map[string]int {
	warm := make(map[string]int)
	for _, p := range reg.poolSnapshot() {
		warm[p.Function().Name] = p.Status().Idle
	}
	return warm
}

func (reg *Registry) Uptime() time.Duration {
	return time.Since(reg.startedAt)
}

// Drain shuts down every pool: queued waiters fail, idle containers are
// destroyed, busy ones are destroyed on release. Pools created afterwards
// start out draining.
func (reg *Registry) Drain() {
	reg.mu.Lock()
	reg.draining = true
	reg.mu.Unlock()

	for _, p := range reg.poolSnapshot() {
		p.Drain()
	}
}
