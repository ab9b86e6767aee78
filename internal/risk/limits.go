package risk

import (
	"fmt"
	"math"
	"strings"
)

// Limits is the per-agent risk configuration. Read-only during a cycle;
// validated once at load time.
type Limits struct {
	MaxPositionValue float64 `mapstructure:"max_position_value"`
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct"`
	MaxTradesPerDay  int     `mapstructure:"max_trades_per_day"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
}

// Validate rejects non-positive or non-finite limits at startup.
func (l Limits) Validate() error {
	for name, v := range map[string]float64{
		"max_position_value": l.MaxPositionValue,
		"stop_loss_pct":      l.StopLossPct,
		"take_profit_pct":    l.TakeProfitPct,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("limits.%s must be finite and positive, got %v", name, v)
		}
	}
	if l.MaxTradesPerDay <= 0 {
		return fmt.Errorf("limits.max_trades_per_day must be positive, got %d", l.MaxTradesPerDay)
	}
	if l.MinConfidence < 0 || l.MinConfidence > 1 || math.IsNaN(l.MinConfidence) {
		return fmt.Errorf("limits.min_confidence must be in [0,1], got %v", l.MinConfidence)
	}
	return nil
}

// CompanyLimits bound aggregate risk across every agent.
type CompanyLimits struct {
	MaxTotalExposure      float64 `mapstructure:"max_total_exposure"`
	MaxCorrelatedExposure float64 `mapstructure:"max_correlated_exposure"`
	DailyLossLimit        float64 `mapstructure:"daily_loss_limit"`
}

func (c CompanyLimits) Validate() error {
	for name, v := range map[string]float64{
		"max_total_exposure":      c.MaxTotalExposure,
		"max_correlated_exposure": c.MaxCorrelatedExposure,
		"daily_loss_limit":        c.DailyLossLimit,
	} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("company.%s must be finite and positive, got %v", name, v)
		}
	}
	return nil
}

// BucketMap assigns each asset to a correlation bucket. Static configuration,
// never inferred at runtime, so the correlation rule stays auditable.
type BucketMap map[string]string

// Bucket returns the correlation bucket for an asset, defaulting to the asset
// itself so an unmapped asset is at least self-correlated.
func (m BucketMap) Bucket(asset string) string {
	if b, ok := m[strings.ToUpper(strings.TrimSpace(asset))]; ok {
		return b
	}
	return strings.ToUpper(strings.TrimSpace(asset))
}
