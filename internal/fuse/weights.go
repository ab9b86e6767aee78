package fuse

import (
	"fmt"
	"math"
)

const weightSumTolerance = 1e-9

// Weights is the fixed per-agent weight table. Technical and Sentiment split
// the two categories; News/Social/Filing blend the sentiment composite.
// Each group must sum to 1.0, checked once at config load.
type Weights struct {
	Technical float64 `mapstructure:"technical"`
	Sentiment float64 `mapstructure:"sentiment"`
	News      float64 `mapstructure:"news"`
	Social    float64 `mapstructure:"social"`
	Filing    float64 `mapstructure:"filing"`
}

// DefaultWeights mirrors the stock personality: technical 40%, sentiment 60%,
// with news carrying the larger share of the sentiment blend.
func DefaultWeights() Weights {
	return Weights{
		Technical: 0.4,
		Sentiment: 0.6,
		News:      0.4,
		Social:    0.3,
		Filing:    0.3,
	}
}

// Validate enforces that both weight groups sum to 1.0 and no entry is
// negative. Called at startup; an invalid table is fatal, never a runtime
// surprise.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"technical": w.Technical,
		"sentiment": w.Sentiment,
		"news":      w.News,
		"social":    w.Social,
		"filing":    w.Filing,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("weights.%s must be a finite value >= 0, got %v", name, v)
		}
	}
	if diff := math.Abs(w.Technical + w.Sentiment - 1); diff > weightSumTolerance {
		return fmt.Errorf("category weights must sum to 1.0, got %v", w.Technical+w.Sentiment)
	}
	if diff := math.Abs(w.News + w.Social + w.Filing - 1); diff > weightSumTolerance {
		return fmt.Errorf("sentiment sub-weights must sum to 1.0, got %v", w.News+w.Social+w.Filing)
	}
	return nil
}
