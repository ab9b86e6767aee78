package risk

import (
	"sync"
	"time"

	"helmsman/internal/state"
)

// Breaker is the process-wide trading halt latch. Trip is idempotent
// (repeated trips overwrite reason and timestamp but never clear the latch);
// Reset is the only way to clear it and is reserved for an explicit operator
// action. The decision path never resets it: an engine that silently resumes
// after a risk breach is unsafe.
type Breaker struct {
	mu         sync.Mutex
	tripped    bool
	trippedAt  time.Time
	reason     string
	agentHalts map[string]string
	now        func() time.Time
}

func NewBreaker() *Breaker {
	return &Breaker{
		agentHalts: make(map[string]string),
		now:        time.Now,
	}
}

// Trip latches the company-wide halt.
func (b *Breaker) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = true
	b.trippedAt = b.now().UTC()
	b.reason = reason
}

// TripAgent halts a single agent without stopping the rest of the fleet.
func (b *Breaker) TripAgent(agentID, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agentHalts[agentID] = reason
}

// IsTripped is the fast company-wide check.
func (b *Breaker) IsTripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// HaltedAgent returns the halt reason for an agent, if any.
func (b *Breaker) HaltedAgent(agentID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.agentHalts[agentID]
	return r, ok
}

// Reset clears the latch and all agent halts. Operator-only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = false
	b.trippedAt = time.Time{}
	b.reason = ""
	b.agentHalts = make(map[string]string)
}

// Snapshot captures the latch for persistence.
func (b *Breaker) Snapshot() state.BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := state.BreakerSnapshot{
		Tripped: b.tripped,
		Reason:  b.reason,
	}
	if b.tripped {
		at := b.trippedAt
		snap.TrippedAt = &at
	}
	if len(b.agentHalts) > 0 {
		snap.AgentHalts = make(map[string]string, len(b.agentHalts))
		for k, v := range b.agentHalts {
			snap.AgentHalts[k] = v
		}
	}
	return snap
}

// Restore rehydrates the latch from a persisted snapshot.
func (b *Breaker) Restore(snap state.BreakerSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = snap.Tripped
	b.reason = snap.Reason
	b.trippedAt = time.Time{}
	if snap.TrippedAt != nil {
		b.trippedAt = snap.TrippedAt.UTC()
	}
	b.agentHalts = make(map[string]string, len(snap.AgentHalts))
	for k, v := range snap.AgentHalts {
		b.agentHalts[k] = v
	}
}
