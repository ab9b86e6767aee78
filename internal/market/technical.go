package market

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"

	"helmsman/internal/signal"
)

// TechnicalAnalyzer turns a candle window into one raw technical payload.
// Three indicator votes (RSI extreme, MACD histogram, close vs trend EMA) are
// tallied: direction from the majority, strength from the mean vote weight,
// confidence from how many of the three agree. The output crosses the same
// RawPayload boundary every external provider does.
type TechnicalAnalyzer struct {
	RSIPeriod  int
	Overbought float64
	Oversold   float64
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	TrendEMA   int
}

func NewTechnicalAnalyzer() *TechnicalAnalyzer {
	return &TechnicalAnalyzer{
		RSIPeriod:  14,
		Overbought: 70,
		Oversold:   30,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		TrendEMA:   50,
	}
}

type vote struct {
	sign   float64
	weight float64
}

// Analyze produces a technical payload for the normalizer. Fails when the
// window is too short for the slowest indicator.
func (a *TechnicalAnalyzer) Analyze(candles []Candle, now time.Time) (signal.RawPayload, error) {
	need := a.TrendEMA + 1
	if slow := a.MACDSlow + a.MACDSignal; slow+1 > need {
		need = slow + 1
	}
	if len(candles) < need {
		return signal.RawPayload{}, fmt.Errorf("technical: need %d candles, got %d", need, len(candles))
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	last := closes[len(closes)-1]

	votes := []vote{
		a.rsiVote(closes),
		a.macdVote(closes),
		a.trendVote(closes, last),
	}

	var sum, weightSum float64
	for _, v := range votes {
		sum += v.sign
		weightSum += math.Abs(v.sign) * v.weight
	}
	direction := signal.DirectionNeutral
	switch {
	case sum > 0:
		direction = signal.DirectionBullish
	case sum < 0:
		direction = signal.DirectionBearish
	}
	agreeing := 0
	for _, v := range votes {
		if (sum > 0 && v.sign > 0) || (sum < 0 && v.sign < 0) {
			agreeing++
		}
	}
	strength := 0.0
	confidence := 0.0
	if sum != 0 {
		strength = clamp01(weightSum / float64(len(votes)))
		confidence = float64(agreeing) / float64(len(votes))
	}

	body, err := json.Marshal(map[string]any{
		"source":     string(signal.SourceTechnical),
		"direction":  string(direction),
		"strength":   strength,
		"confidence": confidence,
		"timestamp":  now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return signal.RawPayload{}, err
	}
	return signal.RawPayload{Provider: "technical_analyzer", Body: body}, nil
}

// rsiVote: oversold argues bullish, overbought bearish, weighted by how deep
// into the extreme the reading sits.
func (a *TechnicalAnalyzer) rsiVote(closes []float64) vote {
	series := talib.Rsi(closes, a.RSIPeriod)
	if len(series) == 0 {
		return vote{}
	}
	val := series[len(series)-1]
	switch {
	case val <= a.Oversold:
		return vote{sign: 1, weight: clamp01((a.Oversold - val) / a.Oversold)}
	case val >= a.Overbought:
		return vote{sign: -1, weight: clamp01((val - a.Overbought) / (100 - a.Overbought))}
	default:
		return vote{}
	}
}

func (a *TechnicalAnalyzer) macdVote(closes []float64) vote {
	_, _, hist := talib.Macd(closes, a.MACDFast, a.MACDSlow, a.MACDSignal)
	if len(hist) == 0 {
		return vote{}
	}
	h := hist[len(hist)-1]
	last := closes[len(closes)-1]
	if h == 0 || last == 0 {
		return vote{}
	}
	weight := clamp01(math.Abs(h) / last * 100)
	if h > 0 {
		return vote{sign: 1, weight: weight}
	}
	return vote{sign: -1, weight: weight}
}

func (a *TechnicalAnalyzer) trendVote(closes []float64, last float64) vote {
	ema := talib.Ema(closes, a.TrendEMA)
	if len(ema) == 0 {
		return vote{}
	}
	ref := ema[len(ema)-1]
	if ref <= 0 {
		return vote{}
	}
	dist := (last - ref) / ref
	weight := clamp01(math.Abs(dist) * 20)
	switch {
	case dist > 0:
		return vote{sign: 1, weight: weight}
	case dist < 0:
		return vote{sign: -1, weight: weight}
	default:
		return vote{}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
