package signal

import (
	"errors"
	"time"
)

// Source identifies the producer category of a signal.
type Source string

const (
	SourceTechnical       Source = "technical"
	SourceSentimentNews   Source = "sentiment_news"
	SourceSentimentSocial Source = "sentiment_social"
	SourceSentimentFiling Source = "sentiment_filing"
)

// IsSentiment reports whether the source belongs to the sentiment category.
func (s Source) IsSentiment() bool {
	switch s {
	case SourceSentimentNews, SourceSentimentSocial, SourceSentimentFiling:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the declared sources.
func (s Source) Valid() bool {
	switch s {
	case SourceTechnical, SourceSentimentNews, SourceSentimentSocial, SourceSentimentFiling:
		return true
	default:
		return false
	}
}

// Direction is the directional reading of a single signal.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Sign maps the direction onto {-1, 0, +1} for fusion arithmetic.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionBullish:
		return 1
	case DirectionBearish:
		return -1
	default:
		return 0
	}
}

// Signal is one normalized, confidence-scored observation from one source.
// Magnitude and Confidence are always in [0,1]. Immutable once produced:
// Confidence is the producer's self-assessed reliability, never adjusted to
// agree with other signals.
type Signal struct {
	Source     Source    `json:"source"`
	Direction  Direction `json:"direction"`
	Magnitude  float64   `json:"magnitude"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// RawPayload is one untouched provider payload plus the provider's name,
// exactly as it crossed the collaborator boundary.
type RawPayload struct {
	Provider string
	Body     []byte
}

var (
	// ErrMalformedSignal marks a payload missing required fields or out of
	// its declared range. Recoverable: drop and log, never fatal to a cycle.
	ErrMalformedSignal = errors.New("malformed signal")

	// ErrInsufficientSignals means zero valid signals survived normalization;
	// the cycle must short-circuit to hold with confidence 0.
	ErrInsufficientSignals = errors.New("no valid signals")
)
