package container

import (
	"fmt"
	"time"
)

// State tracks a container through its lifecycle. A launched container
// leaves Starting for Busy (cold start) or Idle (prewarm); after that
// Idle <-> Busy, and Idle -> Reclaiming -> Destroyed when it expires. A dead
// container, and one drained at shutdown, goes straight to Destroyed. A Busy
// container is never reclaimed. The owning pool's lock guards every
// transition.
type State int32

const (
	StateStarting State = iota
	StateIdle
	StateBusy
	StateReclaiming
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateReclaiming:
		return "reclaiming"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Container is a single function instance tracked by a pool.
type Container struct {
	ID       ContainerID
	Function string
	IPAddr   string
	Port     int

	// State and LastUsed are guarded by the owning pool's lock.
	// LastUsed records the most recent Busy -> Idle transition; for a
	// never-used container it is set when the launch completes.
	State    State
	LastUsed time.Time
}

func (c *Container) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", c.IPAddr, c.Port)
}

func (c *Container) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}
