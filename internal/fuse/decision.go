package fuse

import (
	"time"

	"helmsman/internal/signal"
)

// Action is the fused trading action for one agent in one cycle.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// RationaleEntry records one contributing signal and the effective weight it
// carried in the fused score, for audit logs.
type RationaleEntry struct {
	Signal          signal.Signal `json:"signal"`
	EffectiveWeight float64       `json:"effective_weight"`
}

// Decision is created once per cycle by the Fuser and consumed exactly once
// by the risk validator. It is never mutated afterward: a rejected or
// downsized decision produces a new value, not an in-place edit.
type Decision struct {
	AgentID      string           `json:"agent_id"`
	Asset        string           `json:"asset"`
	Action       Action           `json:"action"`
	SizeFraction float64          `json:"size_fraction"`
	Confidence   float64          `json:"confidence"`
	Score        float64          `json:"score"`
	Rationale    []RationaleEntry `json:"rationale"`
	CreatedAt    time.Time        `json:"created_at"`
}
