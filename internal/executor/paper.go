package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helmsman/internal/logger"
)

// PaperExecutor fills every order at the quoted price it is given. It keeps a
// bounded in-memory tape of recent fills for the admin surface.
type PaperExecutor struct {
	mu       sync.Mutex
	quoteFn  func(ctx context.Context, asset string) (float64, error)
	tape     []TapeEntry
	tapeSize int
}

// TapeEntry is one executed paper order.
type TapeEntry struct {
	Order Order `json:"order"`
	Fill  Fill  `json:"fill"`
}

func NewPaperExecutor(quoteFn func(ctx context.Context, asset string) (float64, error)) *PaperExecutor {
	return &PaperExecutor{quoteFn: quoteFn, tapeSize: 200}
}

func (p *PaperExecutor) Name() string { return "paper" }

func (p *PaperExecutor) Execute(ctx context.Context, order Order) (Fill, error) {
	if order.Quantity <= 0 {
		return Fill{}, fmt.Errorf("paper: order quantity must be positive")
	}
	price, err := p.quoteFn(ctx, order.Asset)
	if err != nil {
		return Fill{}, fmt.Errorf("paper: quoting %s: %w", order.Asset, err)
	}
	fill := Fill{Filled: true, FillPrice: price, At: time.Now().UTC()}

	p.mu.Lock()
	p.tape = append(p.tape, TapeEntry{Order: order, Fill: fill})
	if len(p.tape) > p.tapeSize {
		p.tape = p.tape[len(p.tape)-p.tapeSize:]
	}
	p.mu.Unlock()

	logger.Infof("paper: filled %s %s qty=%.6f value=%.2f at %.2f (trace=%s)",
		order.Side, order.Asset, order.Quantity, order.Value, price, order.TraceID)
	return fill, nil
}

// Tape returns a copy of the recent fill tape, newest last.
func (p *PaperExecutor) Tape() []TapeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TapeEntry, len(p.tape))
	copy(out, p.tape)
	return out
}

var _ Executor = (*PaperExecutor)(nil)
