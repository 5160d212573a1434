package node

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/function"
	"github.com/hearth-faas/hearth/internal/metrics"
)

var ErrShuttingDown = errors.New("pool is shutting down")

// launchRetries bounds how many extra launch attempts a single request gets
// after a cold-start failure.
const launchRetries = 1

// Outcome tells Release how the invocation went.
type Outcome int

const (
	// OutcomeCompleted: the container answered (possibly with a function
	// error) and can be reused.
	OutcomeCompleted Outcome = iota
	// OutcomeContainerDead: transport-level failure; the container is
	// presumed dead and must not return to the idle pool.
	OutcomeContainerDead
)

// AcquireKind classifies how a request obtained its container.
type AcquireKind int

const (
	ColdStart AcquireKind = iota
	WarmStart
)

// waiter is a request parked in the overflow queue. Exactly one handoff is
// sent on ch once the waiter has left the queue, so the buffered channel
// never blocks the sender.
type waiter struct {
	ch chan handoff
}

type handoff struct {
	cont *container.Container
	kind AcquireKind
	err  error
}

// Pool owns every container of one function and enforces its concurrency
// cap. Container state transitions happen under the pool lock; runtime I/O
// never does.
type Pool struct {
	mu  sync.Mutex
	fun *function.Function
	reg *Registry

	// idle is ordered by ascending LastUsed: the head is the oldest idle
	// container. LRU picks the head, MRU the tail.
	idle []*container.Container
	busy []*container.Container

	// queue holds requests that arrived while the pool was at capacity,
	// in FIFO order.
	queue []*waiter

	starting   int // reserved slots for in-flight launches
	reclaiming int // containers between Reclaiming and Destroyed
	draining   bool
}

func newPool(f *function.Function, reg *Registry) *Pool {
	return &Pool{
		fun:  f,
		reg:  reg,
		idle: make([]*container.Container, 0, f.MaxConcurrency),
		busy: make([]*container.Container, 0, f.MaxConcurrency),
	}
}

func (p *Pool) Function() *function.Function {
	return p.fun
}

// inUseLocked counts every non-Destroyed container charged against the cap.
func (p *Pool) inUseLocked() int {
	return len(p.idle) + len(p.busy) + p.starting + p.reclaiming
}

// popIdleLocked removes and returns the container selected by the given
// strategy, preserving the order of the remaining idle containers.
func (p *Pool) popIdleLocked(s Strategy) (*container.Container, bool) {
	n := len(p.idle)
	if n == 0 {
		return nil, false
	}

	var c *container.Container
	if s == StrategyMRU {
		// newest idle: the tail
		c = p.idle[n-1]
	} else {
		// oldest idle: the head
		c = p.idle[0]
		copy(p.idle, p.idle[1:])
	}

	p.idle[n-1] = nil // to favor garbage collection
	p.idle = p.idle[:n-1]

	return c, true
}

// removeBusyLocked drops the container from the busy set with a swap-pop.
func (p *Pool) removeBusyLocked(target *container.Container) bool {
	for i, c := range p.busy {
		if c == target { // with slices, we can compare pointers
			lastIdx := len(p.busy) - 1
			p.busy[i] = p.busy[lastIdx]
			p.busy[lastIdx] = nil
			p.busy = p.busy[:lastIdx]
			return true
		}
	}
	return false
}

// launchContainer performs a cold start with a bounded number of retries.
// Never call it with the pool lock held.
func (p *Pool) launchContainer() (*container.Container, error) {
	c, err := p.reg.runtime.Launch(p.fun)
	for attempt := 0; err != nil && attempt < launchRetries; attempt++ {
		log.Printf("[%s] Cold start failed, retrying: %v\n", p.fun, err)
		c, err = p.reg.runtime.Launch(p.fun)
	}
	return c, err
}

// Acquire returns a container for one invocation, marked Busy. It reuses an
// idle container when possible (WarmStart), launches a new one while the
// pool is below its cap (ColdStart), or parks the request in the overflow
// queue until a container is handed off or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (*container.Container, AcquireKind, error) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil, ColdStart, ErrShuttingDown
	}

	// 1. reuse an idle container, picked by the current strategy
	if c, ok := p.popIdleLocked(p.reg.ReuseStrategy()); ok {
		c.State = container.StateBusy
		p.busy = append(p.busy, c)
		p.mu.Unlock()
		return c, WarmStart, nil
	}

	// 2. below the cap: reserve a slot and launch outside the lock
	if p.inUseLocked() < p.fun.MaxConcurrency {
		p.starting++
		p.mu.Unlock()

		c, err := p.launchContainer()

		p.mu.Lock()
		p.starting--
		if err != nil {
			// the freed slot may serve a queued waiter
			p.promoteLocked()
			p.mu.Unlock()
			return nil, ColdStart, err
		}
		c.State = container.StateBusy
		p.busy = append(p.busy, c)
		p.mu.Unlock()
		return c, ColdStart, nil
	}

	// 3. at capacity: enqueue and wait for a handoff
	w := &waiter{ch: make(chan handoff, 1)}
	p.queue = append(p.queue, w)
	p.reg.stats.RecordQueued(p.fun.Name)
	metrics.AddQueued(p.fun.Name)
	p.mu.Unlock()

	select {
	case h := <-w.ch:
		if h.err != nil {
			return nil, ColdStart, h.err
		}
		return h.cont, h.kind, nil
	case <-ctx.Done():
		p.mu.Lock()
		removed := p.removeWaiterLocked(w)
		p.mu.Unlock()
		if removed {
			return nil, ColdStart, ctx.Err()
		}
		// A handoff already left the queue with this waiter: take it and
		// release the container instead of leaking it.
		h := <-w.ch
		if h.cont != nil {
			p.Release(h.cont, OutcomeCompleted)
		}
		return nil, ColdStart, ctx.Err()
	}
}

func (p *Pool) removeWaiterLocked(target *waiter) bool {
	for i, w := range p.queue {
		if w == target {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return true
		}
	}
	return false
}

// promoteLocked starts cold launches on behalf of head waiters while spare
// capacity permits. Called whenever a slot frees up with no container to
// hand off (launch failure, container death, reclamation).
func (p *Pool) promoteLocked() {
	for len(p.queue) > 0 && p.inUseLocked() < p.fun.MaxConcurrency && !p.draining {
		w := p.queue[0]
		p.queue = p.queue[1:]
		p.starting++

		go func(w *waiter) {
			c, err := p.launchContainer()

			p.mu.Lock()
			p.starting--
			if err != nil {
				p.promoteLocked()
				p.mu.Unlock()
				w.ch <- handoff{err: err}
				return
			}
			c.State = container.StateBusy
			p.busy = append(p.busy, c)
			p.mu.Unlock()
			w.ch <- handoff{cont: c, kind: ColdStart}
		}(w)
	}
}

// Release returns a container after an invocation. A dead container is
// dropped and destroyed; otherwise the container is handed directly to the
// head waiter, or parked in the idle pool.
func (p *Pool) Release(c *container.Container, outcome Outcome) {
	p.mu.Lock()
	if !p.removeBusyLocked(c) {
		p.mu.Unlock()
		log.Printf("[%s] Failed to release container %s: not found in busy pool\n", p.fun, c.ShortID())
		return
	}

	if outcome == OutcomeContainerDead {
		c.State = container.StateDestroyed
		log.Printf("[%s] Dropping dead container %s\n", p.fun, c.ShortID())
		// the freed slot may allow a cold start for a queued waiter
		p.promoteLocked()
		p.mu.Unlock()
		p.reg.runtime.Destroy(c)
		return
	}

	if len(p.queue) > 0 {
		// direct handoff: the container stays Busy and LastUsed is not
		// touched, because it never became idle
		w := p.queue[0]
		p.queue = p.queue[1:]
		p.busy = append(p.busy, c)
		p.mu.Unlock()
		w.ch <- handoff{cont: c, kind: WarmStart}
		return
	}

	if p.draining {
		c.State = container.StateDestroyed
		p.mu.Unlock()
		p.reg.runtime.Destroy(c)
		return
	}

	c.State = container.StateIdle
	c.LastUsed = time.Now()
	// now is the largest timestamp seen, so appending keeps idle ordered
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Sweep reclaims idle containers whose inactivity reached warmTime. The
// idle list is ordered by LastUsed, so the scan stops at the first
// container still within the warm window.
func (p *Pool) Sweep(now time.Time, warmTime time.Duration) int {
	p.mu.Lock()
	expired := 0
	for _, c := range p.idle {
		if now.Sub(c.LastUsed) < warmTime {
			break
		}
		c.State = container.StateReclaiming
		expired++
	}
	if expired == 0 {
		p.mu.Unlock()
		return 0
	}

	victims := make([]*container.Container, expired)
	copy(victims, p.idle[:expired])

	remaining := len(p.idle) - expired
	copy(p.idle, p.idle[expired:])
	for i := remaining; i < len(p.idle); i++ {
		p.idle[i] = nil
	}
	p.idle = p.idle[:remaining]
	p.reclaiming += expired
	p.mu.Unlock()

	for _, c := range victims {
		log.Printf("[%s] Container %s expired, destroying\n", p.fun, c.ShortID())
		p.reg.runtime.Destroy(c)
	}

	p.mu.Lock()
	for _, c := range victims {
		c.State = container.StateDestroyed
	}
	p.reclaiming -= expired
	// the freed slots may allow cold starts for queued waiters
	p.promoteLocked()
	p.mu.Unlock()

	return expired
}

// Prewarm launches up to count idle containers, bounded by the pool cap.
// Returns how many were actually spawned.
func (p *Pool) Prewarm(count int) (int, error) {
	spawned := 0
	for spawned < count {
		p.mu.Lock()
		if p.draining {
			p.mu.Unlock()
			return spawned, ErrShuttingDown
		}
		if p.inUseLocked() >= p.fun.MaxConcurrency {
			p.mu.Unlock()
			return spawned, nil
		}
		p.starting++
		p.mu.Unlock()

		c, err := p.reg.runtime.Launch(p.fun)

		p.mu.Lock()
		p.starting--
		if err != nil {
			p.mu.Unlock()
			return spawned, err
		}
		c.State = container.StateIdle
		c.LastUsed = time.Now()
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		spawned++
	}
	return spawned, nil
}

// Drain marks the pool as shutting down, fails every queued waiter and
// destroys all idle containers. Busy containers are destroyed as they are
// released.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.draining = true

	waiters := p.queue
	p.queue = nil

	victims := p.idle
	p.idle = nil
	for _, c := range victims {
		c.State = container.StateDestroyed
	}
	p.mu.Unlock()

	for _, w := range waiters {
		w.ch <- handoff{err: ErrShuttingDown}
	}
	for _, c := range victims {
		p.reg.runtime.Destroy(c)
	}
}

// PoolStatus is a point-in-time view of the pool, used by the stats
// snapshot.
type PoolStatus struct {
	Idle           int
	Busy           int
	QueueDepth     int
	ConcurrencyCap int
}

func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStatus{
		Idle:           len(p.idle),
		Busy:           len(p.busy) + p.starting,
		QueueDepth:     len(p.queue),
		ConcurrencyCap: p.fun.MaxConcurrency,
	}
}
