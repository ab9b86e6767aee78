package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"helmsman/internal/config"
	"helmsman/internal/executor"
	"helmsman/internal/fuse"
	"helmsman/internal/market"
	"helmsman/internal/risk"
	"helmsman/internal/signal"
	"helmsman/internal/state"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type stubProvider struct {
	name    string
	payload string
	err     error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Fetch(context.Context, string) (signal.RawPayload, error) {
	if p.err != nil {
		return signal.RawPayload{}, p.err
	}
	return signal.RawPayload{Provider: p.name, Body: []byte(p.payload)}, nil
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Name() string { return "mock" }

func (m *MockExecutor) Execute(ctx context.Context, order executor.Order) (executor.Fill, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(executor.Fill), args.Error(1)
}

func testAgent(id, asset string) *Agent {
	return NewAgent(config.AgentConfig{
		ID:        id,
		Asset:     asset,
		Threshold: 0.3,
		Interval:  "1h",
		Weights:   fuse.DefaultWeights(),
		Limits: risk.Limits{
			MaxPositionValue: 5000,
			StopLossPct:      0.03,
			TakeProfitPct:    0.06,
			MaxTradesPerDay:  5,
			MinConfidence:    0.35,
		},
	})
}

func newTestEngine(t *testing.T, store state.Store, source market.Source, providers []market.SentimentProvider, exec executor.Executor) (*Engine, *risk.Validator) {
	t.Helper()
	validator := risk.NewValidator(risk.CompanyLimits{
		MaxTotalExposure:      60000,
		MaxCorrelatedExposure: 60000,
		DailyLossLimit:        3000,
	}, nil, store, risk.NewBreaker(), risk.WithClock(func() time.Time { return testNow }))

	eng, err := New(Params{
		Agents:    []*Agent{testAgent("alpha", "BTCUSDT")},
		Source:    source,
		Providers: providers,
		Validator: validator,
		Store:     store,
		Executor:  exec,
	})
	require.NoError(t, err)
	eng.now = func() time.Time { return testNow }
	return eng, validator
}

func bullishNews(score float64) stubProvider {
	return stubProvider{
		name: "news",
		payload: fmt.Sprintf(
			`{"source":"sentiment_news","score":%v,"confidence":0.9,"timestamp":"2026-08-01T11:59:00Z"}`, score),
	}
}

func TestRunCycle_BuySubmitsOrderAndAudits(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource()
	source.SetQuote("BTCUSDT", 100)

	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(o executor.Order) bool {
		return o.Side == "buy" && o.Asset == "BTCUSDT" && o.Quantity > 0
	})).Return(executor.Fill{Filled: true, FillPrice: 100, At: testNow}, nil)

	eng, _ := newTestEngine(t, store, source, []market.SentimentProvider{bullishNews(0.8)}, exec)
	ctx := context.Background()

	require.NoError(t, eng.RunCycle(ctx, eng.agents[0]))

	exec.AssertExpectations(t)

	st, found, err := store.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, st.Position)
	// Sentiment-only cycle: fused score 0.8, so $4,000 of the $5,000 cap.
	assert.InDelta(t, 40.0, st.Position.Quantity, 1e-9)

	audits, err := store.RecentAudits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "buy", audits[0].Action)
	assert.Equal(t, string(risk.VerdictApproved), audits[0].Outcome)
	assert.NotEmpty(t, audits[0].TraceID)
}

func TestRunCycle_NoSignalsHoldsWithoutValidation(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource()
	source.SetQuote("BTCUSDT", 100)

	exec := new(MockExecutor)
	eng, _ := newTestEngine(t, store, source, []market.SentimentProvider{
		stubProvider{name: "down", err: fmt.Errorf("provider offline")},
	}, exec)
	ctx := context.Background()

	require.NoError(t, eng.RunCycle(ctx, eng.agents[0]))

	// No order, no state, but an audit trail for the hold.
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	_, found, err := store.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, found)

	audits, err := store.RecentAudits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "hold", audits[0].Action)
	assert.Zero(t, audits[0].Confidence)
}

func TestRunCycle_MalformedPayloadDroppedRestSurvives(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource()
	source.SetQuote("BTCUSDT", 100)

	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, mock.Anything).Return(executor.Fill{Filled: true, FillPrice: 100, At: testNow}, nil)

	eng, _ := newTestEngine(t, store, source, []market.SentimentProvider{
		stubProvider{name: "junk", payload: `{broken`},
		bullishNews(0.8),
	}, exec)

	require.NoError(t, eng.RunCycle(context.Background(), eng.agents[0]))

	exec.AssertExpectations(t)
}

func TestRunCycle_TrippedBreakerSkipsEverything(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource()
	// No quote on purpose: a skip must never reach the market source.

	exec := new(MockExecutor)
	eng, validator := newTestEngine(t, store, source, []market.SentimentProvider{bullishNews(0.8)}, exec)
	validator.Breaker().Trip("halted for test")

	require.NoError(t, eng.RunCycle(context.Background(), eng.agents[0]))

	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	audits, err := store.RecentAudits(context.Background(), "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, audits)
}

func TestRunCycle_QuoteFailureAbortsCycle(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource() // no quote set

	exec := new(MockExecutor)
	eng, _ := newTestEngine(t, store, source, []market.SentimentProvider{bullishNews(0.8)}, exec)

	err := eng.RunCycle(context.Background(), eng.agents[0])
	require.Error(t, err)

	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	_, found, getErr := store.GetAgent(context.Background(), "alpha")
	require.NoError(t, getErr)
	assert.False(t, found)
}

func TestRunCycle_RejectionNeverReachesExecutor(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	// Trade cap already exhausted today.
	require.NoError(t, store.PutAgent(ctx, state.AgentState{
		AgentID:        "alpha",
		TradesToday:    5,
		LastDecisionAt: testNow.Add(-time.Hour),
	}))

	source := market.NewStaticSource()
	source.SetQuote("BTCUSDT", 100)

	exec := new(MockExecutor)
	eng, validator := newTestEngine(t, store, source, []market.SentimentProvider{bullishNews(0.8)}, exec)
	require.NoError(t, validator.Restore(ctx, map[string]string{"alpha": "BTCUSDT"}))

	require.NoError(t, eng.RunCycle(ctx, eng.agents[0]))

	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)

	audits, err := store.RecentAudits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, string(risk.VerdictRejected), audits[0].Outcome)
	assert.Equal(t, risk.ReasonDailyTradeLimit, audits[0].Reason)
}

func TestRunCycle_ExecutionFailureDoesNotRollBackState(t *testing.T) {
	store := state.NewMemoryStore()
	source := market.NewStaticSource()
	source.SetQuote("BTCUSDT", 100)

	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, mock.Anything).Return(executor.Fill{}, fmt.Errorf("exchange down"))

	eng, _ := newTestEngine(t, store, source, []market.SentimentProvider{bullishNews(0.8)}, exec)
	ctx := context.Background()

	require.NoError(t, eng.RunCycle(ctx, eng.agents[0]))

	// Risk bookkeeping stands; reconciliation is an operator concern.
	st, found, err := store.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, st.TradesToday)
}
