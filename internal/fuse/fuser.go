package fuse

import (
	"time"

	"helmsman/internal/signal"
)

// Fuser combines normalized signals into one Decision. It is a pure function
// of its inputs: no hidden state, fully deterministic, so the same signal list
// and weight table always produce an identical Decision (modulo CreatedAt,
// which the caller stamps).
type Fuser struct {
	// Threshold maps the fused score in [-1,1] onto an action:
	// score > +Threshold -> buy, score < -Threshold -> sell, else hold.
	Threshold float64
}

// NewFuser builds a fuser with the given action threshold. A non-positive
// threshold falls back to 0.3.
func NewFuser(threshold float64) *Fuser {
	if threshold <= 0 {
		threshold = 0.3
	}
	return &Fuser{Threshold: threshold}
}

// group is one confidence-weighted bundle of same-source signals.
type group struct {
	signals []signal.Signal
	sumConf float64
}

func (g group) empty() bool { return len(g.signals) == 0 || g.sumConf <= 0 }

// score is the confidence-weighted average direction strength of the group.
func (g group) score() float64 {
	if g.empty() {
		return 0
	}
	var sum float64
	for _, s := range g.signals {
		sum += s.Direction.Sign() * s.Magnitude * s.Confidence
	}
	return sum / g.sumConf
}

// Fuse combines signals for one agent into a Decision. With zero signals the
// result is a hold with confidence 0 (the short-circuit the normalizer
// contract requires).
func (f *Fuser) Fuse(agentID, asset string, signals []signal.Signal, w Weights, now time.Time) Decision {
	d := Decision{
		AgentID:   agentID,
		Asset:     asset,
		Action:    ActionHold,
		CreatedAt: now.UTC(),
	}
	if len(signals) == 0 {
		return d
	}

	technical := collect(signals, signal.SourceTechnical)
	news := collect(signals, signal.SourceSentimentNews)
	social := collect(signals, signal.SourceSentimentSocial)
	filing := collect(signals, signal.SourceSentimentFiling)

	// Sentiment composite: blend the non-empty sub-sources, renormalizing
	// their sub-weights so the blend still sums to 1.
	subWeights := map[signal.Source]float64{}
	var subSum float64
	for src, pair := range map[signal.Source]struct {
		g group
		w float64
	}{
		signal.SourceSentimentNews:   {news, w.News},
		signal.SourceSentimentSocial: {social, w.Social},
		signal.SourceSentimentFiling: {filing, w.Filing},
	} {
		if !pair.g.empty() {
			subWeights[src] = pair.w
			subSum += pair.w
		}
	}
	sentimentScore := 0.0
	hasSentiment := subSum > 0
	if hasSentiment {
		for src := range subWeights {
			subWeights[src] /= subSum
		}
		sentimentScore = subWeights[signal.SourceSentimentNews]*news.score() +
			subWeights[signal.SourceSentimentSocial]*social.score() +
			subWeights[signal.SourceSentimentFiling]*filing.score()
	}

	// Category weights: an empty category is excluded and the remaining
	// weight renormalized to 1, so a cycle with no sentiment trades purely
	// on the technical score.
	techWeight, sentWeight := w.Technical, w.Sentiment
	switch {
	case technical.empty() && !hasSentiment:
		return d
	case technical.empty():
		techWeight, sentWeight = 0, 1
	case !hasSentiment:
		techWeight, sentWeight = 1, 0
	default:
		total := techWeight + sentWeight
		techWeight /= total
		sentWeight /= total
	}

	score := techWeight*technical.score() + sentWeight*sentimentScore
	d.Score = score
	d.Confidence = abs(score)
	d.SizeFraction = d.Confidence
	switch {
	case score > f.Threshold:
		d.Action = ActionBuy
	case score < -f.Threshold:
		d.Action = ActionSell
	default:
		d.Action = ActionHold
	}

	d.Rationale = rationale(technical, techWeight, nil, 0)
	if hasSentiment {
		for _, src := range []signal.Source{signal.SourceSentimentNews, signal.SourceSentimentSocial, signal.SourceSentimentFiling} {
			g := map[signal.Source]group{
				signal.SourceSentimentNews:   news,
				signal.SourceSentimentSocial: social,
				signal.SourceSentimentFiling: filing,
			}[src]
			d.Rationale = append(d.Rationale, rationale(g, sentWeight, subWeights, subWeights[src])...)
		}
	}
	return d
}

// rationale expands one group into per-signal effective weights:
// categoryWeight * subWeight * signalConfidence / groupConfidenceSum.
func rationale(g group, categoryWeight float64, subWeights map[signal.Source]float64, subWeight float64) []RationaleEntry {
	if g.empty() {
		return nil
	}
	scale := categoryWeight
	if subWeights != nil {
		scale *= subWeight
	}
	entries := make([]RationaleEntry, 0, len(g.signals))
	for _, s := range g.signals {
		entries = append(entries, RationaleEntry{
			Signal:          s,
			EffectiveWeight: scale * s.Confidence / g.sumConf,
		})
	}
	return entries
}

func collect(signals []signal.Signal, src signal.Source) group {
	var g group
	for _, s := range signals {
		if s.Source != src {
			continue
		}
		g.signals = append(g.signals, s)
		g.sumConf += s.Confidence
	}
	return g
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
