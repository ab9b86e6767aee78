package market

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"helmsman/internal/logger"
	"helmsman/internal/signal"
)

// guardSettings returns the shared breaker profile for provider I/O. This is
// failure-rate protection for flaky feeds, entirely separate from the trading
// risk latch: when a feed trips, cycles degrade to "no signals from that
// source" instead of hammering the API.
func guardSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("market: breaker %s %s -> %s", name, from, to)
		},
	}
}

// GuardedSource wraps a Source with a gobreaker per call family.
type GuardedSource struct {
	inner   Source
	quoteCB *gobreaker.CircuitBreaker
	histCB  *gobreaker.CircuitBreaker
}

func NewGuardedSource(inner Source) *GuardedSource {
	return &GuardedSource{
		inner:   inner,
		quoteCB: gobreaker.NewCircuitBreaker(guardSettings("market_quote")),
		histCB:  gobreaker.NewCircuitBreaker(guardSettings("market_history")),
	}
}

func (g *GuardedSource) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	out, err := g.quoteCB.Execute(func() (any, error) {
		return g.inner.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return Quote{}, err
	}
	return out.(Quote), nil
}

func (g *GuardedSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	out, err := g.histCB.Execute(func() (any, error) {
		return g.inner.FetchHistory(ctx, symbol, interval, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Candle), nil
}

var _ Source = (*GuardedSource)(nil)

// GuardedProvider wraps one SentimentProvider the same way.
type GuardedProvider struct {
	inner SentimentProvider
	cb    *gobreaker.CircuitBreaker
}

func NewGuardedProvider(inner SentimentProvider) *GuardedProvider {
	return &GuardedProvider{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(guardSettings("sentiment_" + inner.Name())),
	}
}

func (g *GuardedProvider) Name() string { return g.inner.Name() }

func (g *GuardedProvider) Fetch(ctx context.Context, asset string) (signal.RawPayload, error) {
	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.Fetch(ctx, asset)
	})
	if err != nil {
		return signal.RawPayload{}, err
	}
	return out.(signal.RawPayload), nil
}

var _ SentimentProvider = (*GuardedProvider)(nil)
