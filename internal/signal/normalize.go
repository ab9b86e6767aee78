package signal

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"

	"helmsman/internal/logger"
)

// Normalize converts raw provider payloads into Signal records with magnitude
// and confidence in [0,1]. Malformed payloads are dropped and logged; the
// returned error slice carries one wrapped ErrMalformedSignal per drop so the
// caller can audit them. Normalize never fails the cycle itself.
func Normalize(raws []RawPayload) ([]Signal, []error) {
	signals := make([]Signal, 0, len(raws))
	var dropped []error
	for _, raw := range raws {
		sig, err := normalizeOne(raw)
		if err != nil {
			dropped = append(dropped, err)
			logger.Warnf("signal: dropping payload from %s: %v", raw.Provider, err)
			continue
		}
		signals = append(signals, sig)
	}
	return signals, dropped
}

func normalizeOne(raw RawPayload) (Signal, error) {
	body := string(raw.Body)
	if !gjson.Valid(body) {
		return Signal{}, fmt.Errorf("%w: provider %s sent invalid json", ErrMalformedSignal, raw.Provider)
	}
	var doc any
	if err := json.Unmarshal(raw.Body, &doc); err != nil {
		return Signal{}, fmt.Errorf("%w: provider %s: %v", ErrMalformedSignal, raw.Provider, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return Signal{}, fmt.Errorf("%w: provider %s: %v", ErrMalformedSignal, raw.Provider, err)
	}

	parsed := gjson.Parse(body)
	source := Source(parsed.Get("source").String())
	confidence := parsed.Get("confidence").Float()
	ts, err := parseTimestamp(parsed.Get("timestamp").String())
	if err != nil {
		return Signal{}, fmt.Errorf("%w: provider %s: %v", ErrMalformedSignal, raw.Provider, err)
	}

	if source == SourceTechnical {
		return normalizeTechnical(raw.Provider, parsed, confidence, ts)
	}
	return normalizeSentiment(raw.Provider, source, parsed, confidence, ts)
}

// normalizeTechnical expects direction + strength already in [0,1].
func normalizeTechnical(provider string, parsed gjson.Result, confidence float64, ts time.Time) (Signal, error) {
	dirField := parsed.Get("direction")
	if !dirField.Exists() {
		return Signal{}, fmt.Errorf("%w: provider %s: technical payload missing direction", ErrMalformedSignal, provider)
	}
	strengthField := parsed.Get("strength")
	if !strengthField.Exists() {
		return Signal{}, fmt.Errorf("%w: provider %s: technical payload missing strength", ErrMalformedSignal, provider)
	}
	strength := strengthField.Float()
	if math.IsNaN(strength) || strength < 0 || strength > 1 {
		return Signal{}, fmt.Errorf("%w: provider %s: strength %v outside [0,1]", ErrMalformedSignal, provider, strength)
	}
	return Signal{
		Source:     SourceTechnical,
		Direction:  Direction(dirField.String()),
		Magnitude:  strength,
		Confidence: confidence,
		Timestamp:  ts,
	}, nil
}

// normalizeSentiment maps a score in [-1,1] to magnitude=|score| with the
// direction taken from the sign.
func normalizeSentiment(provider string, source Source, parsed gjson.Result, confidence float64, ts time.Time) (Signal, error) {
	scoreField := parsed.Get("score")
	if !scoreField.Exists() {
		return Signal{}, fmt.Errorf("%w: provider %s: sentiment payload missing score", ErrMalformedSignal, provider)
	}
	score := scoreField.Float()
	if math.IsNaN(score) || score < -1 || score > 1 {
		return Signal{}, fmt.Errorf("%w: provider %s: score %v outside [-1,1]", ErrMalformedSignal, provider, score)
	}
	direction := DirectionNeutral
	switch {
	case score > 0:
		direction = DirectionBullish
	case score < 0:
		direction = DirectionBearish
	}
	return Signal{
		Source:     source,
		Direction:  direction,
		Magnitude:  math.Abs(score),
		Confidence: confidence,
		Timestamp:  ts,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q not RFC3339", value)
	}
	return ts.UTC(), nil
}
