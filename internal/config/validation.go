package config

import (
	"fmt"
	"strings"

	"helmsman/internal/scheduler"
)

// validate 对配置进行基础校验。权重求和与限额正负都在这里一次性拦下，
// 避免运行期才暴露。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Company.Validate(); err != nil {
		return err
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("agents requires at least one entry")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for i := range c.Agents {
		if err := c.Agents[i].validate(); err != nil {
			return err
		}
		id := c.Agents[i].ID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("agents contains duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(m.Provider)) {
	case "binance", "static":
	default:
		return fmt.Errorf("market.provider must be binance or static, got %q", m.Provider)
	}
	if _, ok := scheduler.ParseIntervalDuration(m.Interval); !ok {
		return fmt.Errorf("market.interval %q is not a valid interval", m.Interval)
	}
	return nil
}

func (a *AgentConfig) validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("agents contains entry without id")
	}
	if strings.TrimSpace(a.Asset) == "" {
		return fmt.Errorf("agent %s missing asset", a.ID)
	}
	if a.Threshold <= 0 || a.Threshold >= 1 {
		return fmt.Errorf("agent %s threshold must be in (0,1), got %v", a.ID, a.Threshold)
	}
	if _, ok := scheduler.ParseIntervalDuration(a.Interval); !ok {
		return fmt.Errorf("agent %s cycle_interval %q is not a valid interval", a.ID, a.Interval)
	}
	if err := a.Weights.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", a.ID, err)
	}
	if err := a.Limits.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", a.ID, err)
	}
	return nil
}
