package node

import (
	"sync"
	"sync/atomic"
)

// counterSet groups the monotonic counters kept globally and per function.
// Counters are independent atomics: a snapshot may misorder near-simultaneous
// events by at most one, which is acceptable.
type counterSet struct {
	coldStarts atomic.Int64
	warmStarts atomic.Int64
	queued     atomic.Int64
	failed     atomic.Int64
}

func (cs *counterSet) reset() {
	cs.coldStarts.Store(0)
	cs.warmStarts.Store(0)
	cs.queued.Store(0)
	cs.failed.Store(0)
}

type statsRegistry struct {
	mu          sync.Mutex // guards the perFunction map, not the counters
	global      counterSet
	perFunction map[string]*counterSet
}

func (s *statsRegistry) init() {
	s.perFunction = make(map[string]*counterSet)
}

func (s *statsRegistry) forFunction(fn string) *counterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.perFunction[fn]
	if !ok {
		cs = &counterSet{}
		s.perFunction[fn] = cs
	}
	return cs
}

func (s *statsRegistry) RecordColdStart(fn string) {
	s.global.coldStarts.Add(1)
	s.forFunction(fn).coldStarts.Add(1)
}

func (s *statsRegistry) RecordWarmStart(fn string) {
	s.global.warmStarts.Add(1)
	s.forFunction(fn).warmStarts.Add(1)
}

func (s *statsRegistry) RecordQueued(fn string) {
	s.global.queued.Add(1)
	s.forFunction(fn).queued.Add(1)
}

func (s *statsRegistry) RecordFailed(fn string) {
	s.global.failed.Add(1)
	s.forFunction(fn).failed.Add(1)
}

// Reset zeroes all counters. Requests mid-dispatch may record against either
// epoch.
func (s *statsRegistry) Reset() {
	s.global.reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range s.perFunction {
		cs.reset()
	}
}

// FunctionStats is the per-function slice of a stats snapshot.
type FunctionStats struct {
	ColdStarts     int64 `json:"cold_starts"`
	WarmStarts     int64 `json:"warm_starts"`
	RequestsQueued int64 `json:"requests_queued"`
	RequestsFailed int64 `json:"requests_failed"`
	Idle           int   `json:"idle"`
	Busy           int   `json:"busy"`
	QueueDepth     int   `json:"queue_depth"`
	ConcurrencyCap int   `json:"concurrency_cap"`
}

// StatsSnapshot is the JSON view served by the stats API.
type StatsSnapshot struct {
	TotalColdStarts     int64                    `json:"total_cold_starts"`
	TotalWarmStarts     int64                    `json:"total_warm_starts"`
	TotalRequestsQueued int64                    `json:"total_requests_queued"`
	TotalRequestsFailed int64                    `json:"total_requests_failed"`
	Strategy            string                   `json:"strategy"`
	PerFunction         map[string]FunctionStats `json:"per_function"`
}

// RecordColdStart and friends are re-exported on the Registry so callers
// outside the package never touch the counter registry directly.

func (reg *Registry) RecordColdStart(fn string) { reg.stats.RecordColdStart(fn) }
func (reg *Registry) RecordWarmStart(fn string) { reg.stats.RecordWarmStart(fn) }
func (reg *Registry) RecordFailed(fn string)    { reg.stats.RecordFailed(fn) }

// ResetStats zeroes every counter atomically with respect to new increments.
func (reg *Registry) ResetStats() {
	reg.stats.Reset()
}

// SnapshotStats returns a consistent view of the counters together with the
// current pool occupancy.
func (reg *Registry) SnapshotStats() StatsSnapshot {
	snap := StatsSnapshot{
		TotalColdStarts:     reg.stats.global.coldStarts.Load(),
		TotalWarmStarts:     reg.stats.global.warmStarts.Load(),
		TotalRequestsQueued: reg.stats.global.queued.Load(),
		TotalRequestsFailed: reg.stats.global.failed.Load(),
		Strategy:            reg.ReuseStrategy().String(),
		PerFunction:         make(map[string]FunctionStats),
	}

	for _, p := range reg.poolSnapshot() {
		name := p.Function().Name
		cs := reg.stats.forFunction(name)
		status := p.Status()
		snap.PerFunction[name] = FunctionStats{
			ColdStarts:     cs.coldStarts.Load(),
			WarmStarts:     cs.warmStarts.Load(),
			RequestsQueued: cs.queued.Load(),
			RequestsFailed: cs.failed.Load(),
			Idle:           status.Idle,
			Busy:           status.Busy,
			QueueDepth:     status.QueueDepth,
			ConcurrencyCap: status.ConcurrencyCap,
		}
	}

	return snap
}
