package simulation

import (
	"context"
	"log"
	"time"
)

const defaultCoordinatorPollInterval = 5 * time.Second

// SessionSource reports how many dashboard sessions are signed in.
type SessionSource interface {
	ActiveSessions() int
}

// Coordinator keeps the simulator ticking only while at least one dashboard
// session is signed in, the way the dashboard timer lives only while the
// view is mounted.
type Coordinator struct {
	simulator    *Simulator
	sessions     SessionSource
	pollInterval time.Duration
}

// CoordinatorOption customises coordinator behaviour.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorPollInterval overrides how frequently sessions are polled.
func WithCoordinatorPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewCoordinator wires the simulator with a session source to control lifecycle.
func NewCoordinator(sim *Simulator, sessions SessionSource, opts ...CoordinatorOption) *Coordinator {
	coord := &Coordinator{
		simulator:    sim,
		sessions:     sessions,
		pollInterval: defaultCoordinatorPollInterval,
	}
	for _, opt := range opts {
		opt(coord)
	}
	return coord
}

// Start begins background orchestration until the context is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	if c.simulator == nil || c.sessions == nil {
		log.Printf("simulation coordinator inactive (simulator or session source missing)")
		return
	}

	c.Sync()
	go c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("simulation coordinator stopped")
			return
		case <-ticker.C:
			c.Sync()
		}
	}
}

// Sync enables the simulator when sessions exist and disables it otherwise.
func (c *Coordinator) Sync() {
	if c.sessions.ActiveSessions() > 0 {
		c.simulator.Enable()
	} else {
		c.simulator.Disable()
	}
}
