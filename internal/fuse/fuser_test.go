package fuse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/signal"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func sig(src signal.Source, dir signal.Direction, mag, conf float64) signal.Signal {
	return signal.Signal{
		Source:     src,
		Direction:  dir,
		Magnitude:  mag,
		Confidence: conf,
		Timestamp:  testNow,
	}
}

func TestFuse_WeightedBlend(t *testing.T) {
	f := NewFuser(0.3)
	signals := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.6, 0.8),
		sig(signal.SourceSentimentNews, signal.DirectionBullish, 0.4, 0.5),
	}

	d := f.Fuse("alpha-btc", "BTCUSDT", signals, DefaultWeights(), testNow)

	// 0.4*0.6 + 0.6*0.4 with the news sub-weight renormalized to 1.
	assert.InDelta(t, 0.48, d.Score, 1e-9)
	assert.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 0.48, d.Confidence, 1e-9)
	assert.InDelta(t, d.Confidence, d.SizeFraction, 1e-12)
	assert.Equal(t, "alpha-btc", d.AgentID)
	assert.Equal(t, "BTCUSDT", d.Asset)
}

func TestFuse_Deterministic(t *testing.T) {
	f := NewFuser(0.3)
	signals := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.7, 0.9),
		sig(signal.SourceSentimentNews, signal.DirectionBearish, 0.5, 0.4),
		sig(signal.SourceSentimentSocial, signal.DirectionBullish, 0.3, 0.6),
		sig(signal.SourceSentimentFiling, signal.DirectionNeutral, 0.2, 0.8),
	}
	w := DefaultWeights()

	first := f.Fuse("a", "ETHUSDT", signals, w, testNow)
	for i := 0; i < 20; i++ {
		again := f.Fuse("a", "ETHUSDT", signals, w, testNow)
		assert.Equal(t, first, again)
	}
}

func TestFuse_EmptySentimentTransfersWeight(t *testing.T) {
	f := NewFuser(0.3)
	signals := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.5, 0.9),
	}

	d := f.Fuse("a", "BTCUSDT", signals, DefaultWeights(), testNow)

	// With no sentiment the technical category carries weight 1: the fused
	// score equals the technical group score alone.
	assert.InDelta(t, 0.5, d.Score, 1e-9)
	assert.Equal(t, ActionBuy, d.Action)
}

func TestFuse_EmptyTechnicalTransfersWeight(t *testing.T) {
	f := NewFuser(0.3)
	signals := []signal.Signal{
		sig(signal.SourceSentimentNews, signal.DirectionBearish, 0.8, 0.5),
	}

	d := f.Fuse("a", "BTCUSDT", signals, DefaultWeights(), testNow)

	assert.InDelta(t, -0.8, d.Score, 1e-9)
	assert.Equal(t, ActionSell, d.Action)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
}

func TestFuse_SubWeightRenormalization(t *testing.T) {
	f := NewFuser(0.3)
	// Only news and social present: 0.4/0.3 renormalize to 4/7 and 3/7.
	signals := []signal.Signal{
		sig(signal.SourceSentimentNews, signal.DirectionBullish, 1.0, 0.5),
		sig(signal.SourceSentimentSocial, signal.DirectionBearish, 1.0, 0.5),
	}

	d := f.Fuse("a", "BTCUSDT", signals, DefaultWeights(), testNow)

	want := 4.0/7.0*1.0 + 3.0/7.0*-1.0
	assert.InDelta(t, want, d.Score, 1e-9)
}

func TestFuse_ConfidenceWeightingWithinGroup(t *testing.T) {
	f := NewFuser(0.3)
	// Two technical signals, opposite directions; the high-confidence one
	// dominates the group score: (1*0.8*0.9 - 1*0.8*0.1) / 1.0 = 0.64.
	signals := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.8, 0.9),
		sig(signal.SourceTechnical, signal.DirectionBearish, 0.8, 0.1),
	}

	d := f.Fuse("a", "BTCUSDT", signals, DefaultWeights(), testNow)

	assert.InDelta(t, 0.64, d.Score, 1e-9)
	assert.Equal(t, ActionBuy, d.Action)
}

func TestFuse_MonotonicInConfidence(t *testing.T) {
	f := NewFuser(0.3)
	bearish := sig(signal.SourceTechnical, signal.DirectionBearish, 0.3, 0.2)
	base := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.9, 0.5),
		bearish,
	}
	d := f.Fuse("a", "BTCUSDT", base, DefaultWeights(), testNow)
	require.Equal(t, ActionBuy, d.Action)

	// Raising the bullish signal's confidence must never flip the action
	// away from buy.
	for _, conf := range []float64{0.6, 0.7, 0.8, 0.9, 1.0} {
		raised := []signal.Signal{
			sig(signal.SourceTechnical, signal.DirectionBullish, 0.9, conf),
			bearish,
		}
		again := f.Fuse("a", "BTCUSDT", raised, DefaultWeights(), testNow)
		assert.Equal(t, ActionBuy, again.Action, "confidence %v", conf)
	}
}

func TestFuse_ThresholdBands(t *testing.T) {
	f := NewFuser(0.3)

	cases := []struct {
		name string
		dir  signal.Direction
		mag  float64
		want Action
	}{
		{"strong bullish buys", signal.DirectionBullish, 0.8, ActionBuy},
		{"weak bullish holds", signal.DirectionBullish, 0.2, ActionHold},
		{"exactly threshold holds", signal.DirectionBullish, 0.3, ActionHold},
		{"strong bearish sells", signal.DirectionBearish, 0.8, ActionSell},
		{"neutral holds", signal.DirectionNeutral, 0.9, ActionHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := f.Fuse("a", "BTCUSDT", []signal.Signal{
				sig(signal.SourceTechnical, tc.dir, tc.mag, 0.9),
			}, DefaultWeights(), testNow)
			assert.Equal(t, tc.want, d.Action)
		})
	}
}

func TestFuse_NoSignalsHoldsWithZeroConfidence(t *testing.T) {
	f := NewFuser(0.3)

	d := f.Fuse("a", "BTCUSDT", nil, DefaultWeights(), testNow)

	assert.Equal(t, ActionHold, d.Action)
	assert.Zero(t, d.Confidence)
	assert.Zero(t, d.SizeFraction)
	assert.Empty(t, d.Rationale)
}

func TestFuse_RationaleWeightsSumToOne(t *testing.T) {
	f := NewFuser(0.3)
	signals := []signal.Signal{
		sig(signal.SourceTechnical, signal.DirectionBullish, 0.6, 0.8),
		sig(signal.SourceTechnical, signal.DirectionBearish, 0.4, 0.2),
		sig(signal.SourceSentimentNews, signal.DirectionBullish, 0.4, 0.5),
		sig(signal.SourceSentimentSocial, signal.DirectionBullish, 0.1, 0.3),
	}

	d := f.Fuse("a", "BTCUSDT", signals, DefaultWeights(), testNow)

	require.Len(t, d.Rationale, len(signals))
	var sum float64
	for _, entry := range d.Rationale {
		sum += entry.EffectiveWeight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestWeights_Validate(t *testing.T) {
	t.Run("defaults valid", func(t *testing.T) {
		assert.NoError(t, DefaultWeights().Validate())
	})
	t.Run("category sum off", func(t *testing.T) {
		w := DefaultWeights()
		w.Technical = 0.5
		assert.Error(t, w.Validate())
	})
	t.Run("sub sum off", func(t *testing.T) {
		w := DefaultWeights()
		w.News = 0.9
		assert.Error(t, w.Validate())
	})
}
