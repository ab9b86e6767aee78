package executor

import (
	"context"
	"time"
)

// Order is what the engine emits after a decision clears validation. Risk
// bookkeeping has already been committed by then: execution is best-effort
// and a failed fill is a reconciliation concern, never a rollback.
type Order struct {
	TraceID    string  `json:"trace_id"`
	AgentID    string  `json:"agent_id"`
	Asset      string  `json:"asset"`
	Side       string  `json:"side"` // "buy" | "sell"
	Quantity   float64 `json:"quantity"`
	Value      float64 `json:"value"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
}

// Fill reports the execution result.
type Fill struct {
	Filled    bool      `json:"filled"`
	FillPrice float64   `json:"fill_price"`
	At        time.Time `json:"at"`
}

// Executor is the execution collaborator boundary.
type Executor interface {
	Name() string
	Execute(ctx context.Context, order Order) (Fill, error)
}
