package engine

import (
	"time"

	"helmsman/internal/config"
	"helmsman/internal/fuse"
	"helmsman/internal/risk"
	"helmsman/internal/scheduler"
)

// Agent binds one tradable asset to one fixed strategy personality: the
// fusion weight table, the action threshold and the per-agent risk limits.
// Immutable after startup.
type Agent struct {
	ID       string
	Asset    string
	Interval time.Duration
	Weights  fuse.Weights
	Limits   risk.Limits

	fuser *fuse.Fuser
}

// NewAgent builds an agent from its validated configuration.
func NewAgent(cfg config.AgentConfig) *Agent {
	interval, _ := scheduler.ParseIntervalDuration(cfg.Interval)
	return &Agent{
		ID:       cfg.ID,
		Asset:    cfg.Asset,
		Interval: interval,
		Weights:  cfg.Weights,
		Limits:   cfg.Limits,
		fuser:    fuse.NewFuser(cfg.Threshold),
	}
}
