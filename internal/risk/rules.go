package risk

import (
	"helmsman/internal/fuse"
	"helmsman/internal/pkg/trading"
	"helmsman/internal/state"
)

// ruleEnv is the working context threaded through the rule chain. Sizing
// rules narrow proposedValue as they run; terminal rules return an Outcome.
type ruleEnv struct {
	v        *Validator
	decision fuse.Decision
	limits   Limits
	st       *state.AgentState
	price    float64

	proposedValue  float64
	downsized      bool
	downsizeReason string
}

// A rule either returns a terminal Outcome (short-circuiting the chain) or
// nil to pass evaluation to the next rule. First failing rule wins; later
// rules are never evaluated.
type rule struct {
	name string
	eval func(*ruleEnv) *Outcome
}

// ruleChain is the ordered safety gate every decision passes through.
var ruleChain = []rule{
	{"circuit_breaker", ruleCircuitBreaker},
	{"min_confidence", ruleMinConfidence},
	{"hold_short_circuit", ruleHold},
	{"daily_trade_cap", ruleDailyTradeCap},
	{"position_sizing", rulePositionSizing},
	{"total_exposure", ruleTotalExposure},
	{"correlation_bucket", ruleCorrelation},
	{"daily_loss", ruleDailyLoss},
}

func ruleCircuitBreaker(e *ruleEnv) *Outcome {
	if e.v.breaker.IsTripped() {
		return e.reject(ReasonCircuitBreakerActive)
	}
	if _, halted := e.v.breaker.HaltedAgent(e.decision.AgentID); halted {
		return e.reject(ReasonCircuitBreakerActive)
	}
	return nil
}

func ruleMinConfidence(e *ruleEnv) *Outcome {
	if e.decision.Confidence < e.limits.MinConfidence {
		return e.reject(ReasonBelowConfidence)
	}
	return nil
}

// A hold is always approved with zero size effect; nothing downstream needs
// to run and no state is mutated for it.
func ruleHold(e *ruleEnv) *Outcome {
	if e.decision.Action == fuse.ActionHold {
		return &Outcome{Verdict: VerdictApproved, Decision: e.decision}
	}
	return nil
}

func ruleDailyTradeCap(e *ruleEnv) *Outcome {
	if e.st.TradesToday >= e.limits.MaxTradesPerDay {
		return e.reject(ReasonDailyTradeLimit)
	}
	return nil
}

// rulePositionSizing computes the proposed position value and clamps it to
// the per-agent cap. Sells are bounded by the open position instead; selling
// with nothing held is rejected outright (long-only book).
func rulePositionSizing(e *ruleEnv) *Outcome {
	proposed := e.decision.SizeFraction * e.limits.MaxPositionValue

	if e.decision.Action == fuse.ActionSell {
		if e.st.Position == nil || e.st.Position.Quantity <= 0 {
			return e.reject(ReasonNoOpenPosition)
		}
		if held := e.st.Position.Value(); proposed > held {
			proposed = held
		}
		e.proposedValue = proposed
		return nil
	}

	clamped, wasClamped := trading.ClampValue(proposed, e.limits.MaxPositionValue)
	if wasClamped {
		e.downsized = true
		e.downsizeReason = ReasonPositionSizeClamp
	}
	e.proposedValue = clamped
	return nil
}

// ruleTotalExposure clamps a buy to the remaining company-wide headroom and
// rejects when there is none. Sells release exposure and skip the check.
func ruleTotalExposure(e *ruleEnv) *Outcome {
	if e.decision.Action != fuse.ActionBuy {
		return nil
	}
	headroom := trading.Headroom(e.v.company.MaxTotalExposure, e.v.totalExposure)
	if headroom <= 0 {
		return e.reject(ReasonExposureLimit)
	}
	if e.proposedValue > headroom {
		e.proposedValue = headroom
		e.downsized = true
		e.downsizeReason = ReasonExposureHeadroom
	}
	return nil
}

// ruleCorrelation bounds the asset's correlation bucket across all agents.
func ruleCorrelation(e *ruleEnv) *Outcome {
	if e.decision.Action != fuse.ActionBuy {
		return nil
	}
	bucket := e.v.buckets.Bucket(e.decision.Asset)
	if e.v.bucketExposure[bucket]+e.proposedValue > e.v.company.MaxCorrelatedExposure {
		return e.reject(ReasonCorrelationLimit)
	}
	return nil
}

// ruleDailyLoss is the circuit-breaking rule. A per-agent breach halts that
// agent; an aggregate breach latches the company-wide breaker. The latch is
// never cleared here.
func ruleDailyLoss(e *ruleEnv) *Outcome {
	limit := e.v.company.DailyLossLimit
	if e.st.DailyPnL <= -limit {
		e.v.breaker.TripAgent(e.decision.AgentID, "daily loss limit breached by agent "+e.decision.AgentID)
		e.v.persistBreaker()
		return e.reject(ReasonDailyLossLimit)
	}
	if e.v.aggregateDailyPnL(e.decision.AgentID, e.st.DailyPnL) <= -limit {
		e.v.breaker.Trip("aggregate daily loss limit breached")
		e.v.persistBreaker()
		return e.reject(ReasonDailyLossLimit)
	}
	return nil
}

func (e *ruleEnv) reject(reason string) *Outcome {
	return &Outcome{Verdict: VerdictRejected, Reason: reason, Decision: e.decision}
}
