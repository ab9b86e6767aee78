package config

import "helmsman/internal/fuse"

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9985"
	}
	if c.App.DBPath == "" {
		c.App.DBPath = "data/helmsman.db"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "binance"
	}
	if c.Market.HistoryBars <= 0 {
		c.Market.HistoryBars = 200
	}
	if c.Market.Interval == "" {
		c.Market.Interval = "1h"
	}
	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = 10
	}
	if c.Sentiment.PollTimeoutSeconds <= 0 {
		c.Sentiment.PollTimeoutSeconds = 5
	}
	zero := fuse.Weights{}
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Threshold == 0 {
			a.Threshold = 0.3
		}
		if a.Interval == "" {
			a.Interval = c.Market.Interval
		}
		if a.Weights == zero {
			a.Weights = fuse.DefaultWeights()
		}
	}
}
