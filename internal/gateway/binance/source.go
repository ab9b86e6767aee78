package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"helmsman/internal/market"
)

const maxHistoryLimit = 1500

// Config 描述 Binance 行情源的访问方式。
type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.RESTBaseURL) == "" {
		c.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Source 基于 go-binance SDK 实现 market.Source（只读行情，无下单）。
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

func (s *Source) FetchQuote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return market.Quote{}, fmt.Errorf("symbol is required")
	}
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance: fetching price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return market.Quote{}, fmt.Errorf("binance: empty price response for %s", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance: parsing price %q: %w", prices[0].Price, err)
	}
	return market.Quote{Symbol: symbol, Price: price, At: time.Now().UTC()}, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetching klines for %s %s: %w", symbol, interval, err)
	}
	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := convertKline(k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func convertKline(k *futures.Kline) (market.Candle, error) {
	parse := func(field, v string) (float64, error) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("binance: parsing kline %s %q: %w", field, v, err)
		}
		return f, nil
	}
	open, err := parse("open", k.Open)
	if err != nil {
		return market.Candle{}, err
	}
	high, err := parse("high", k.High)
	if err != nil {
		return market.Candle{}, err
	}
	low, err := parse("low", k.Low)
	if err != nil {
		return market.Candle{}, err
	}
	closeP, err := parse("close", k.Close)
	if err != nil {
		return market.Candle{}, err
	}
	volume, err := parse("volume", k.Volume)
	if err != nil {
		return market.Candle{}, err
	}
	return market.Candle{
		OpenTime:  k.OpenTime,
		CloseTime: k.CloseTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    volume,
	}, nil
}

var _ market.Source = (*Source)(nil)
