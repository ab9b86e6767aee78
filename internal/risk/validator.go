package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helmsman/internal/fuse"
	"helmsman/internal/logger"
	"helmsman/internal/pkg/trading"
	"helmsman/internal/state"
)

// Validator owns every piece of risk state shared across concurrent agent
// cycles: the company-wide exposure aggregates, the per-bucket exposure
// aggregates, the daily P&L tally, and the breaker latch. One mutex
// serializes check-then-commit so two agents can never both pass an exposure
// check that together breaches the limit.
type Validator struct {
	mu      sync.Mutex
	company CompanyLimits
	buckets BucketMap
	breaker *Breaker
	store   state.Store

	totalExposure  float64
	bucketExposure map[string]float64
	dailyPnL       map[string]float64
	pnlYear        int // UTC year+year-day the dailyPnL tally belongs to
	pnlDay         int

	now func() time.Time
}

// ValidatorOption customizes a Validator at construction.
type ValidatorOption func(*Validator)

// WithClock overrides the validator's time source so tests can pin the UTC
// day the rollover logic sees.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(company CompanyLimits, buckets BucketMap, store state.Store, breaker *Breaker, opts ...ValidatorOption) *Validator {
	if breaker == nil {
		breaker = NewBreaker()
	}
	v := &Validator{
		company:        company,
		buckets:        buckets,
		breaker:        breaker,
		store:          store,
		bucketExposure: make(map[string]float64),
		dailyPnL:       make(map[string]float64),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Breaker exposes the latch for the operator surface (reset) and metrics.
func (v *Validator) Breaker() *Breaker { return v.breaker }

// Restore rebuilds the in-memory aggregates and the breaker latch from the
// persisted agent states. assetByAgent maps each agent_id to its traded asset
// so bucket exposure can be reattributed. Must run once before the first
// cycle.
func (v *Validator) Restore(ctx context.Context, assetByAgent map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap, ok, err := v.store.GetBreaker(ctx)
	if err != nil {
		return fmt.Errorf("restoring breaker state: %w", err)
	}
	if ok {
		v.breaker.Restore(snap)
		if snap.Tripped {
			logger.Warnf("risk: breaker restored TRIPPED (reason=%s), trading halted until operator reset", snap.Reason)
		}
	}

	agents, err := v.store.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("restoring agent states: %w", err)
	}
	now := v.now().UTC()
	v.totalExposure = 0
	v.bucketExposure = make(map[string]float64)
	v.dailyPnL = make(map[string]float64)
	v.pnlYear = now.Year()
	v.pnlDay = now.YearDay()
	for _, st := range agents {
		v.totalExposure += st.CumulativeExposure
		if st.Position != nil {
			v.bucketExposure[v.buckets.Bucket(assetByAgent[st.AgentID])] += st.Position.Value()
		}
		working := st
		working.RolloverIfNewDay(now)
		v.dailyPnL[st.AgentID] = working.DailyPnL
	}
	logger.Infof("risk: restored %d agents, total exposure %.2f", len(agents), v.totalExposure)
	return nil
}

// ValidateAndCommit runs the ordered rule chain against one decision and, on
// approval or downsizing, applies the AgentState mutation atomically with the
// validation. The returned AgentState is the post-validation record (identical
// to the pre-state for holds and rejections). The error return is reserved
// for infrastructure failures (persistence); business rejections come back as
// a normal Outcome.
func (v *Validator) ValidateAndCommit(ctx context.Context, d fuse.Decision, limits Limits, price float64) (Outcome, state.AgentState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now().UTC()
	v.rolloverTally(now)

	prev, found, err := v.store.GetAgent(ctx, d.AgentID)
	if err != nil {
		return Outcome{}, state.AgentState{}, fmt.Errorf("loading agent state: %w", err)
	}
	if !found {
		prev = state.AgentState{AgentID: d.AgentID}
	}
	working := prev.Clone()
	working.RolloverIfNewDay(now)

	env := &ruleEnv{v: v, decision: d, limits: limits, st: &working, price: price}
	var outcome *Outcome
	for _, r := range ruleChain {
		if outcome = r.eval(env); outcome != nil {
			break
		}
	}

	if outcome != nil {
		// Terminal before commit: a rejection or a zero-size hold. Agent
		// state is returned untouched.
		return *outcome, prev, nil
	}

	// All rules passed: commit the mutation atomically with the verdict.
	result, next, err := v.commit(ctx, env, now)
	if err != nil {
		return Outcome{}, prev, err
	}
	return result, next, nil
}

// commit applies the approved action to the working state, persists it, and
// only then updates the in-memory aggregates. A persistence failure leaves
// both the store and the aggregates untouched so the cycle aborts cleanly.
func (v *Validator) commit(ctx context.Context, env *ruleEnv, now time.Time) (Outcome, state.AgentState, error) {
	d := env.decision
	next := *env.st
	if env.st.Position != nil {
		p := *env.st.Position
		next.Position = &p
	}

	var approvedValue, approvedQty float64
	var exposureDelta float64
	var realized float64

	switch d.Action {
	case fuse.ActionBuy:
		approvedValue = env.proposedValue
		approvedQty = trading.Quantity(approvedValue, env.price)
		if approvedQty <= 0 {
			return Outcome{}, state.AgentState{}, fmt.Errorf("cannot size buy for %s at price %v", d.Asset, env.price)
		}
		if next.Position == nil {
			next.Position = &state.Position{Quantity: approvedQty, AvgEntryPrice: env.price}
		} else {
			totalQty := next.Position.Quantity + approvedQty
			next.Position.AvgEntryPrice = (next.Position.Value() + approvedValue) / totalQty
			next.Position.Quantity = totalQty
		}
		next.CumulativeExposure += approvedValue
		exposureDelta = approvedValue

	case fuse.ActionSell:
		entry := next.Position.AvgEntryPrice
		closeQty := next.Position.Quantity
		if q := env.proposedValue / entry; q < closeQty {
			closeQty = q
		}
		approvedQty = closeQty
		approvedValue = closeQty * entry
		realized = (env.price - entry) * closeQty
		next.DailyPnL += realized
		next.CumulativeExposure -= approvedValue
		if next.CumulativeExposure < 0 {
			next.CumulativeExposure = 0
		}
		next.Position.Quantity -= closeQty
		if next.Position.Quantity <= 1e-12 {
			next.Position = nil
		}
		exposureDelta = -approvedValue

	default:
		return Outcome{}, state.AgentState{}, fmt.Errorf("unexpected action %q in commit", d.Action)
	}

	next.TradesToday++
	next.LastDecisionAt = now

	if err := v.store.PutAgent(ctx, next); err != nil {
		return Outcome{}, state.AgentState{}, fmt.Errorf("persisting agent state: %w", err)
	}

	v.totalExposure += exposureDelta
	if v.totalExposure < 0 {
		v.totalExposure = 0
	}
	bucket := v.buckets.Bucket(d.Asset)
	v.bucketExposure[bucket] += exposureDelta
	if v.bucketExposure[bucket] < 0 {
		v.bucketExposure[bucket] = 0
	}
	v.dailyPnL[d.AgentID] = next.DailyPnL

	verdict := VerdictApproved
	reason := ""
	if env.downsized {
		verdict = VerdictDownsized
		reason = env.downsizeReason
		logger.Infof("risk: downsized %s %s to %.2f (%s)", d.AgentID, d.Action, approvedValue, reason)
	}
	return Outcome{
		Verdict:          verdict,
		Reason:           reason,
		Decision:         d,
		ApprovedValue:    approvedValue,
		ApprovedQuantity: approvedQty,
	}, next, nil
}

// aggregateDailyPnL sums today's P&L across every agent, substituting the
// in-flight agent's freshly rolled-over figure for its stale tally entry.
func (v *Validator) aggregateDailyPnL(agentID string, current float64) float64 {
	sum := current
	for id, pnl := range v.dailyPnL {
		if id == agentID {
			continue
		}
		sum += pnl
	}
	return sum
}

// rolloverTally clears the per-agent daily P&L map at the UTC day boundary.
// Year and year-day are both checked, same as AgentState.RolloverIfNewDay.
// The breaker latch deliberately survives the rollover.
func (v *Validator) rolloverTally(now time.Time) {
	if now.Year() != v.pnlYear || now.YearDay() != v.pnlDay {
		v.pnlYear = now.Year()
		v.pnlDay = now.YearDay()
		v.dailyPnL = make(map[string]float64)
	}
}

// persistBreaker writes the latch snapshot; called from the rule chain while
// the validator mutex is held. Best effort: a failed write is logged, the
// in-memory latch stays authoritative.
func (v *Validator) persistBreaker() {
	if v.store == nil {
		return
	}
	if err := v.store.PutBreaker(context.Background(), v.breaker.Snapshot()); err != nil {
		logger.Errorf("risk: persisting breaker snapshot failed: %v", err)
	}
}

// PersistBreaker flushes the current latch state, used by the operator reset
// path.
func (v *Validator) PersistBreaker(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.PutBreaker(ctx, v.breaker.Snapshot())
}

// Exposure reports the current aggregates for the admin surface and metrics.
func (v *Validator) Exposure() (total float64, byBucket map[string]float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	byBucket = make(map[string]float64, len(v.bucketExposure))
	for k, val := range v.bucketExposure {
		byBucket[k] = val
	}
	return v.totalExposure, byBucket
}
