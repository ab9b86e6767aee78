package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(provider, body string) RawPayload {
	return RawPayload{Provider: provider, Body: []byte(body)}
}

func TestNormalize_Technical(t *testing.T) {
	signals, dropped := Normalize([]RawPayload{
		raw("ta", `{"source":"technical","direction":"bullish","strength":0.72,"confidence":0.9,"timestamp":"2026-08-01T12:00:00Z"}`),
	})

	require.Empty(t, dropped)
	require.Len(t, signals, 1)
	s := signals[0]
	assert.Equal(t, SourceTechnical, s.Source)
	assert.Equal(t, DirectionBullish, s.Direction)
	assert.InDelta(t, 0.72, s.Magnitude, 1e-12)
	assert.InDelta(t, 0.9, s.Confidence, 1e-12)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), s.Timestamp)
}

func TestNormalize_SentimentScoreMapping(t *testing.T) {
	cases := []struct {
		name    string
		score   string
		wantDir Direction
		wantMag float64
	}{
		{"positive score is bullish", "0.6", DirectionBullish, 0.6},
		{"negative score is bearish", "-0.35", DirectionBearish, 0.35},
		{"zero score is neutral", "0", DirectionNeutral, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals, dropped := Normalize([]RawPayload{
				raw("news", `{"source":"sentiment_news","score":`+tc.score+`,"confidence":0.5,"timestamp":"2026-08-01T12:00:00Z"}`),
			})
			require.Empty(t, dropped)
			require.Len(t, signals, 1)
			assert.Equal(t, tc.wantDir, signals[0].Direction)
			assert.InDelta(t, tc.wantMag, signals[0].Magnitude, 1e-12)
		})
	}
}

func TestNormalize_DropsMalformedAndKeepsRest(t *testing.T) {
	signals, dropped := Normalize([]RawPayload{
		raw("ok", `{"source":"technical","direction":"bearish","strength":0.4,"confidence":0.8,"timestamp":"2026-08-01T12:00:00Z"}`),
		raw("junk", `{not json`),
		raw("bad-source", `{"source":"astrology","score":0.5,"confidence":0.5,"timestamp":"2026-08-01T12:00:00Z"}`),
		raw("range", `{"source":"sentiment_social","score":1.7,"confidence":0.5,"timestamp":"2026-08-01T12:00:00Z"}`),
		raw("conf", `{"source":"technical","direction":"bullish","strength":0.4,"confidence":1.4,"timestamp":"2026-08-01T12:00:00Z"}`),
		raw("time", `{"source":"sentiment_news","score":0.2,"confidence":0.5,"timestamp":"yesterday"}`),
		raw("missing", `{"source":"technical","confidence":0.8,"timestamp":"2026-08-01T12:00:00Z"}`),
	})

	require.Len(t, signals, 1)
	assert.Equal(t, DirectionBearish, signals[0].Direction)

	require.Len(t, dropped, 6)
	for _, err := range dropped {
		assert.ErrorIs(t, err, ErrMalformedSignal)
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	signals, dropped := Normalize(nil)
	assert.Empty(t, signals)
	assert.Empty(t, dropped)
}

func TestSource_Helpers(t *testing.T) {
	assert.True(t, SourceSentimentNews.IsSentiment())
	assert.False(t, SourceTechnical.IsSentiment())
	assert.True(t, SourceTechnical.Valid())
	assert.False(t, Source("astrology").Valid())
}

func TestDirection_Sign(t *testing.T) {
	assert.Equal(t, 1.0, DirectionBullish.Sign())
	assert.Equal(t, -1.0, DirectionBearish.Sign())
	assert.Zero(t, DirectionNeutral.Sign())
}
