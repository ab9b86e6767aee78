package risk

import "helmsman/internal/fuse"

// Verdict tags what the validator did with a decision.
type Verdict string

const (
	VerdictApproved  Verdict = "approved"
	VerdictDownsized Verdict = "downsized"
	VerdictRejected  Verdict = "rejected"
)

// Rejection and downsizing reasons. These strings go straight into audit
// logs, so they stay stable.
const (
	ReasonCircuitBreakerActive = "circuit_breaker_active"
	ReasonBelowConfidence      = "below_confidence_threshold"
	ReasonDailyTradeLimit      = "daily_trade_limit"
	ReasonExposureLimit        = "exposure_limit"
	ReasonCorrelationLimit     = "correlation_limit"
	ReasonDailyLossLimit       = "daily_loss_limit"
	ReasonNoOpenPosition       = "no_open_position"

	ReasonPositionSizeClamp = "position_size_limit"
	ReasonExposureHeadroom  = "exposure_headroom"
)

// Outcome is the validator's terminal result for one decision. A rejected or
// downsized decision never edits the input in place; the adjusted size lives
// here.
type Outcome struct {
	Verdict  Verdict
	Reason   string
	Decision fuse.Decision

	// ApprovedValue/ApprovedQuantity are the position value and asset
	// quantity cleared for execution. Zero for holds and rejections.
	ApprovedValue    float64
	ApprovedQuantity float64
}

// Actionable reports whether the outcome should reach the execution provider.
func (o Outcome) Actionable() bool {
	return (o.Verdict == VerdictApproved || o.Verdict == VerdictDownsized) &&
		o.Decision.Action != fuse.ActionHold && o.ApprovedQuantity > 0
}
