// internal/lifecycle/boundary.go

// Package lifecycle gates subtrees whose behavior requires client-local
// capabilities (snapshot storage, the pixel sink). Until the boundary has
// mounted, gated work fails closed as a no-op instead of crashing the
// surrounding render.
package lifecycle

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// State is the rendering-mode of the boundary
type State int

const (
	Unmounted State = iota
	ClientMounted
)

func (s State) String() string {
	if s == ClientMounted {
		return "client-mounted"
	}
	return "unmounted"
}

// Boundary is an explicit two-state machine {Unmounted, ClientMounted}
// with a single one-way transition. There is deliberately no unmount:
// within one process lifetime the transition is irreversible.
type Boundary struct {
	mu    sync.Mutex
	state State
	log   *logrus.Logger
}

// NewBoundary creates a boundary in the Unmounted state
func NewBoundary(logger *logrus.Logger) *Boundary {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Boundary{log: logger}
}

// Mount attempts the one-way transition. probe reports whether the client
// capabilities are actually available; a failed probe leaves the boundary
// unmounted and Mount may be retried. Once mounted, further calls are
// no-ops and the probe is not consulted again.
func (b *Boundary) Mount(probe func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == ClientMounted {
		return true
	}

	if probe == nil || !probe() {
		b.log.Debug("client capabilities unavailable, boundary stays unmounted")
		return false
	}

	b.state = ClientMounted
	b.log.Info("client boundary mounted")
	return true
}

// State returns the current state
func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Mounted reports whether the transition has happened
func (b *Boundary) Mounted() bool {
	return b.State() == ClientMounted
}

// Run executes fn only when the boundary has mounted and reports whether
// it ran. Before the transition it is a silent no-op.
func (b *Boundary) Run(fn func()) bool {
	if !b.Mounted() {
		return false
	}
	fn()
	return true
}
