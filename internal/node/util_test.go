package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/hearth-faas/hearth/internal/container"
	"github.com/hearth-faas/hearth/internal/function"
)

// fakeRuntime implements Runtime without touching any container engine.
type fakeRuntime struct {
	mu          sync.Mutex
	launches    int
	failures    int // how many of the next launches fail
	launchDelay time.Duration
	destroyed   []container.ContainerID
}

func (f *fakeRuntime) Launch(fn *function.Function) (*container.Container, error) {
	if f.launchDelay > 0 {
		time.Sleep(f.launchDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("launch failed")
	}
	f.launches++
	return &container.Container{
		ID:       fmt.Sprintf("%s-%d", fn.Name, f.launches),
		Function: fn.Name,
		IPAddr:   "172.17.0.2",
		Port:     5000,
		State:    container.StateStarting,
		LastUsed: time.Now(),
	}, nil
}

func (f *fakeRuntime) Destroy(c *container.Container) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, c.ID)
}

func (f *fakeRuntime) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

func (f *fakeRuntime) destroyedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.destroyed)
}

// newTestRegistry builds a registry backed by a fake runtime with the given
// default concurrency cap.
func newTestRegistry(rt Runtime, defaultCap int) *Registry {
	viper.Set("pool.concurrency.default", defaultCap)
	return NewRegistry(rt)
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
