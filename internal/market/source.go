package market

import (
	"context"
	"time"
)

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Quote is the current price snapshot for one asset.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	At     time.Time `json:"at"`
}

// Source supplies the current quote and a bounded window of historical bars.
// The engine is agnostic to what sits behind it.
type Source interface {
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
