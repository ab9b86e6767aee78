package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperExecutor_FillsAtQuote(t *testing.T) {
	p := NewPaperExecutor(func(context.Context, string) (float64, error) { return 101.5, nil })

	fill, err := p.Execute(context.Background(), Order{
		TraceID: "t1", AgentID: "alpha", Asset: "BTCUSDT", Side: "buy", Quantity: 2, Value: 200,
	})
	require.NoError(t, err)
	assert.True(t, fill.Filled)
	assert.InDelta(t, 101.5, fill.FillPrice, 1e-12)

	tape := p.Tape()
	require.Len(t, tape, 1)
	assert.Equal(t, "t1", tape[0].Order.TraceID)
}

func TestPaperExecutor_RejectsBadOrders(t *testing.T) {
	p := NewPaperExecutor(func(context.Context, string) (float64, error) { return 100, nil })

	_, err := p.Execute(context.Background(), Order{Quantity: 0})
	assert.Error(t, err)
}

func TestPaperExecutor_PropagatesQuoteFailure(t *testing.T) {
	p := NewPaperExecutor(func(context.Context, string) (float64, error) {
		return 0, fmt.Errorf("feed down")
	})

	_, err := p.Execute(context.Background(), Order{Quantity: 1, Asset: "BTCUSDT"})
	assert.Error(t, err)
	assert.Empty(t, p.Tape())
}

func TestPaperExecutor_TapeIsBounded(t *testing.T) {
	p := NewPaperExecutor(func(context.Context, string) (float64, error) { return 100, nil })
	for i := 0; i < 250; i++ {
		_, err := p.Execute(context.Background(), Order{TraceID: fmt.Sprintf("t%d", i), Quantity: 1})
		require.NoError(t, err)
	}
	tape := p.Tape()
	assert.Len(t, tape, 200)
	assert.Equal(t, "t249", tape[len(tape)-1].Order.TraceID)
}
