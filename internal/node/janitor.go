package node

import (
	"log"
	"time"

	"github.com/hearth-faas/hearth/internal/config"
)

// Janitor periodically reclaims idle containers whose inactivity exceeded
// the warm time. Apart from it, containers are destroyed only by failed
// launches, by dead-container handling in Release, and by pool draining.
type Janitor struct {
	Interval time.Duration
	WarmTime time.Duration

	reg  *Registry
	stop chan bool
}

// StartJanitor spawns the reclamation task for the given registry.
func StartJanitor(reg *Registry) *Janitor {
	j := &Janitor{
		Interval: time.Duration(config.GetInt(config.JANITOR_INTERVAL, 5)) * time.Second,
		WarmTime: time.Duration(config.GetInt(config.CONTAINER_WARM_TIME, 20)) * time.Second,
		reg:      reg,
		stop:     make(chan bool),
	}
	go j.run()
	return j
}

func (j *Janitor) run() {
	log.Printf("Janitor started (interval: %v, warm time: %v)\n", j.Interval, j.WarmTime)
	ticker := time.NewTicker(j.Interval)
	for {
		select {
		case <-ticker.C:
			j.reg.SweepAll(time.Now(), j.WarmTime)
		case <-j.stop:
			ticker.Stop()
			return
		}
	}
}

func (j *Janitor) Stop() {
	j.stop <- true
}
