package state

import (
	"time"
)

// Position is an open long position. A nil Position means flat.
type Position struct {
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
}

// Value returns the position value at its entry basis.
func (p *Position) Value() float64 {
	if p == nil {
		return 0
	}
	return p.Quantity * p.AvgEntryPrice
}

// AgentState is the persistent bookkeeping for one agent. Each record is
// exclusively owned by its agent_id; it is mutated only by the risk validator
// after an action is actually applied, never speculatively.
type AgentState struct {
	AgentID            string    `json:"agent_id"`
	Position           *Position `json:"position,omitempty"`
	TradesToday        int       `json:"trades_today"`
	DailyPnL           float64   `json:"daily_pnl"`
	CumulativeExposure float64   `json:"cumulative_exposure"`
	LastDecisionAt     time.Time `json:"last_decision_at"`
}

// Clone returns a deep copy so callers can hand out state without sharing the
// Position pointer.
func (s AgentState) Clone() AgentState {
	out := s
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	return out
}

// RolloverIfNewDay resets the daily counters when the last recorded decision
// falls on an earlier UTC day than now. Returns true when a reset happened.
func (s *AgentState) RolloverIfNewDay(now time.Time) bool {
	if s.LastDecisionAt.IsZero() {
		return false
	}
	last := s.LastDecisionAt.UTC()
	today := now.UTC()
	if last.Year() == today.Year() && last.YearDay() == today.YearDay() {
		return false
	}
	s.TradesToday = 0
	s.DailyPnL = 0
	return true
}

// BreakerSnapshot is the persisted form of the process-wide circuit breaker
// latch plus any agent-scoped halts.
type BreakerSnapshot struct {
	Tripped    bool              `json:"tripped"`
	TrippedAt  *time.Time        `json:"tripped_at,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	AgentHalts map[string]string `json:"agent_halts,omitempty"`
}

// AuditRecord is one validated decision outcome, written for every cycle that
// reaches the validator. Reason carries the human-readable rejection or
// downsizing text.
type AuditRecord struct {
	TraceID       string    `json:"trace_id"`
	AgentID       string    `json:"agent_id"`
	Asset         string    `json:"asset"`
	Action        string    `json:"action"`
	Outcome       string    `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	Score         float64   `json:"score"`
	Confidence    float64   `json:"confidence"`
	SizeFraction  float64   `json:"size_fraction"`
	ApprovedValue float64   `json:"approved_value"`
	RationaleJSON string    `json:"rationale_json,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
