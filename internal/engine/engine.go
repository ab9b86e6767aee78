package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"helmsman/internal/executor"
	"helmsman/internal/fuse"
	"helmsman/internal/logger"
	"helmsman/internal/market"
	"helmsman/internal/metrics"
	"helmsman/internal/risk"
	"helmsman/internal/scheduler"
	"helmsman/internal/signal"
	"helmsman/internal/state"
)

// Engine orchestrates one evaluation cycle per agent: fetch signals,
// normalize, fuse, validate, execute, persist. Agents run concurrently;
// within a single agent cycles never overlap.
type Engine struct {
	agents    []*Agent
	source    market.Source
	analyzer  *market.TechnicalAnalyzer
	providers []market.SentimentProvider
	validator *risk.Validator
	store     state.Store
	exec      executor.Executor

	historyInterval string
	historyBars     int

	mu       sync.Mutex
	inflight map[string]bool

	now func() time.Time
}

// Params collects the engine's collaborators.
type Params struct {
	Agents          []*Agent
	Source          market.Source
	Analyzer        *market.TechnicalAnalyzer
	Providers       []market.SentimentProvider
	Validator       *risk.Validator
	Store           state.Store
	Executor        executor.Executor
	HistoryInterval string
	HistoryBars     int
}

func New(p Params) (*Engine, error) {
	if len(p.Agents) == 0 {
		return nil, fmt.Errorf("engine requires at least one agent")
	}
	if p.Source == nil || p.Validator == nil || p.Store == nil || p.Executor == nil {
		return nil, fmt.Errorf("engine is missing a collaborator")
	}
	if p.Analyzer == nil {
		p.Analyzer = market.NewTechnicalAnalyzer()
	}
	if p.HistoryBars <= 0 {
		p.HistoryBars = 200
	}
	if p.HistoryInterval == "" {
		p.HistoryInterval = "1h"
	}
	return &Engine{
		agents:          p.Agents,
		source:          p.Source,
		analyzer:        p.Analyzer,
		providers:       p.Providers,
		validator:       p.Validator,
		store:           p.Store,
		exec:            p.Executor,
		historyInterval: p.HistoryInterval,
		historyBars:     p.HistoryBars,
		inflight:        make(map[string]bool),
		now:             time.Now,
	}, nil
}

// Run blocks, driving one aligned scheduler per agent until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, agent := range e.agents {
		agent := agent
		group.Go(func() error {
			sched := scheduler.NewAlignedScheduler(ctx, agent.Interval, 5*time.Second)
			sched.Start(func() {
				if err := e.RunCycle(ctx, agent); err != nil {
					logger.Errorf("engine: cycle for %s failed: %v", agent.ID, err)
				}
			})
			return nil
		})
	}
	return group.Wait()
}

// RunCycle executes one full evaluation for one agent. Any unexpected failure
// after normalization aborts to a no-op: AgentState is never left partially
// updated and no order is submitted without an immediately preceding
// approved or downsized validation.
func (e *Engine) RunCycle(ctx context.Context, agent *Agent) error {
	if !e.acquire(agent.ID) {
		logger.Warnf("engine: cycle for %s still in flight, skipping tick", agent.ID)
		return nil
	}
	defer e.release(agent.ID)

	if e.validator.Breaker().IsTripped() {
		logger.Debugf("engine: breaker tripped, skipping cycle for %s", agent.ID)
		return nil
	}

	started := e.now()
	defer func() {
		metrics.CycleDuration.WithLabelValues(agent.ID).Observe(e.now().Sub(started).Seconds())
	}()
	traceID := uuid.NewString()

	// External I/O happens out here, never inside the risk critical section.
	quote, err := e.source.FetchQuote(ctx, agent.Asset)
	if err != nil {
		return fmt.Errorf("fetching quote for %s: %w", agent.Asset, err)
	}
	raws := e.collectPayloads(ctx, agent)

	signals, dropped := signal.Normalize(raws)
	if n := len(dropped); n > 0 {
		metrics.SignalsDropped.WithLabelValues(agent.ID).Add(float64(n))
	}

	now := e.now().UTC()
	if len(signals) == 0 {
		// InsufficientSignals: short-circuit to hold with confidence 0.
		hold := agent.fuser.Fuse(agent.ID, agent.Asset, nil, agent.Weights, now)
		e.audit(ctx, traceID, hold, risk.Outcome{Verdict: risk.VerdictApproved, Decision: hold, Reason: signal.ErrInsufficientSignals.Error()})
		logger.Infof("engine: %s holding, %v this cycle (trace=%s)", agent.ID, signal.ErrInsufficientSignals, traceID)
		return nil
	}

	decision := agent.fuser.Fuse(agent.ID, agent.Asset, signals, agent.Weights, now)

	outcome, _, err := e.validator.ValidateAndCommit(ctx, decision, agent.Limits, quote.Price)
	if err != nil {
		// Infrastructure failure: abort without mutation; the next scheduled
		// cycle is the retry.
		return fmt.Errorf("validating decision for %s: %w", agent.ID, err)
	}

	e.recordOutcome(agent, outcome)
	e.audit(ctx, traceID, decision, outcome)

	if !outcome.Actionable() {
		return nil
	}
	e.execute(ctx, traceID, agent, outcome, quote)
	return nil
}

// collectPayloads gathers the technical payload plus one payload per
// sentiment provider. Provider failures are logged and skipped: signal-level
// errors are absorbed locally.
func (e *Engine) collectPayloads(ctx context.Context, agent *Agent) []signal.RawPayload {
	var raws []signal.RawPayload

	history, err := e.source.FetchHistory(ctx, agent.Asset, e.historyInterval, e.historyBars)
	if err != nil {
		logger.Warnf("engine: history fetch for %s failed: %v", agent.Asset, err)
	} else if payload, err := e.analyzer.Analyze(history, e.now()); err != nil {
		logger.Warnf("engine: technical analysis for %s failed: %v", agent.Asset, err)
	} else {
		raws = append(raws, payload)
	}

	for _, p := range e.providers {
		payload, err := p.Fetch(ctx, agent.Asset)
		if err != nil {
			logger.Warnf("engine: sentiment provider %s failed for %s: %v", p.Name(), agent.Asset, err)
			continue
		}
		raws = append(raws, payload)
	}
	return raws
}

// execute submits the approved order. Risk bookkeeping is already committed:
// a failed fill is logged as a reconciliation mismatch, never rolled back.
func (e *Engine) execute(ctx context.Context, traceID string, agent *Agent, outcome risk.Outcome, quote market.Quote) {
	order := executor.Order{
		TraceID:  traceID,
		AgentID:  agent.ID,
		Asset:    agent.Asset,
		Side:     string(outcome.Decision.Action),
		Quantity: outcome.ApprovedQuantity,
		Value:    outcome.ApprovedValue,
	}
	if outcome.Decision.Action == fuse.ActionBuy {
		order.StopLoss = quote.Price * (1 - agent.Limits.StopLossPct)
		order.TakeProfit = quote.Price * (1 + agent.Limits.TakeProfitPct)
	}
	fill, err := e.exec.Execute(ctx, order)
	switch {
	case err != nil:
		logger.Errorf("engine: execution failed for %s (trace=%s), risk bookkeeping already committed, needs reconciliation: %v",
			agent.ID, traceID, err)
	case !fill.Filled:
		logger.Errorf("engine: order for %s not filled (trace=%s), risk bookkeeping already committed, needs reconciliation",
			agent.ID, traceID)
	default:
		logger.Infof("engine: %s %s %s qty=%.6f at %.2f (trace=%s)",
			agent.ID, order.Side, agent.Asset, order.Quantity, fill.FillPrice, traceID)
	}
}

func (e *Engine) recordOutcome(agent *Agent, outcome risk.Outcome) {
	metrics.DecisionOutcomes.WithLabelValues(agent.ID, string(outcome.Decision.Action), string(outcome.Verdict)).Inc()
	if outcome.Verdict == risk.VerdictRejected {
		metrics.RejectionReasons.WithLabelValues(outcome.Reason).Inc()
		logger.Infof("engine: %s %s rejected: %s", agent.ID, outcome.Decision.Action, outcome.Reason)
	}
	if e.validator.Breaker().IsTripped() {
		metrics.BreakerTripped.Set(1)
	}
	total, _ := e.validator.Exposure()
	metrics.TotalExposure.Set(total)
}

func (e *Engine) audit(ctx context.Context, traceID string, d fuse.Decision, outcome risk.Outcome) {
	rationale, err := json.Marshal(d.Rationale)
	if err != nil {
		rationale = nil
	}
	rec := state.AuditRecord{
		TraceID:       traceID,
		AgentID:       d.AgentID,
		Asset:         d.Asset,
		Action:        string(d.Action),
		Outcome:       string(outcome.Verdict),
		Reason:        outcome.Reason,
		Score:         d.Score,
		Confidence:    d.Confidence,
		SizeFraction:  d.SizeFraction,
		ApprovedValue: outcome.ApprovedValue,
		RationaleJSON: string(rationale),
		CreatedAt:     d.CreatedAt,
	}
	if err := e.store.AppendAudit(ctx, rec); err != nil {
		logger.Errorf("engine: audit append failed for %s: %v", d.AgentID, err)
	}
}

func (e *Engine) acquire(agentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[agentID] {
		return false
	}
	e.inflight[agentID] = true
	return true
}

func (e *Engine) release(agentID string) {
	e.mu.Lock()
	delete(e.inflight, agentID)
	e.mu.Unlock()
}
