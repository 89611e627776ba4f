package zones

import (
	"sync"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
)

// Phase is the submission state of a Guard.
type Phase int

const (
	Idle Phase = iota
	Submitting
	Settled
)

func (p Phase) String() string {
	switch p {
	case Submitting:
		return "submitting"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

// Guard admits one mutating request at a time.
type Guard struct {
	mu    sync.Mutex
	phase Phase
}

// Begin moves to Submitting, or returns apperr.ErrBusy if already there.
func (g *Guard) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase == Submitting {
		return apperr.ErrBusy
	}
	g.phase = Submitting
	return nil
}

// Settle ends the current submission.
func (g *Guard) Settle() {
	g.mu.Lock()
	g.phase = Settled
	g.mu.Unlock()
}

func (g *Guard) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}
