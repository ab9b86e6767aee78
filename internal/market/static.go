package market

import (
	"context"
	"fmt"
	"time"
)

// StaticSource serves preloaded candles and quotes. Used for dry runs and in
// tests where hitting a live exchange is pointless.
type StaticSource struct {
	Quotes  map[string]Quote
	History map[string][]Candle
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		Quotes:  make(map[string]Quote),
		History: make(map[string][]Candle),
	}
}

func (s *StaticSource) SetQuote(symbol string, price float64) {
	s.Quotes[symbol] = Quote{Symbol: symbol, Price: price, At: time.Now().UTC()}
}

func (s *StaticSource) SetHistory(symbol string, candles []Candle) {
	s.History[symbol] = candles
}

func (s *StaticSource) FetchQuote(_ context.Context, symbol string) (Quote, error) {
	q, ok := s.Quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("static source: no quote for %s", symbol)
	}
	return q, nil
}

func (s *StaticSource) FetchHistory(_ context.Context, symbol, _ string, limit int) ([]Candle, error) {
	candles, ok := s.History[symbol]
	if !ok {
		return nil, fmt.Errorf("static source: no history for %s", symbol)
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]Candle, len(candles))
	copy(out, candles)
	return out, nil
}

var _ Source = (*StaticSource)(nil)
