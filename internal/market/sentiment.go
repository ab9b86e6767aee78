package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"helmsman/internal/signal"
)

// SentimentProvider supplies one raw sentiment payload per call. Providers
// are best-effort: a fetch error means the cycle simply runs without that
// source.
type SentimentProvider interface {
	Name() string
	Fetch(ctx context.Context, asset string) (signal.RawPayload, error)
}

const newsIndexConfidence = 0.6

// NewsIndexProvider polls a fear/greed style index endpoint returning a value
// in [0,100] and maps it onto a sentiment_news score in [-1,1] centered on 50.
type NewsIndexProvider struct {
	endpoint string
	client   *http.Client
	clock    func() time.Time
}

func NewNewsIndexProvider(endpoint string, timeout time.Duration) *NewsIndexProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NewsIndexProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		clock:    time.Now,
	}
}

func (p *NewsIndexProvider) Name() string { return "news_index" }

func (p *NewsIndexProvider) Fetch(ctx context.Context, asset string) (signal.RawPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return signal.RawPayload{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return signal.RawPayload{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return signal.RawPayload{}, fmt.Errorf("news index: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return signal.RawPayload{}, err
	}
	value := gjson.GetBytes(raw, "data.0.value")
	if !value.Exists() {
		value = gjson.GetBytes(raw, "value")
	}
	if !value.Exists() {
		return signal.RawPayload{}, fmt.Errorf("news index: response missing value field")
	}
	idx := value.Float()
	if idx < 0 || idx > 100 {
		return signal.RawPayload{}, fmt.Errorf("news index: value %v outside [0,100]", idx)
	}
	score := (idx - 50) / 50

	body, err := json.Marshal(map[string]any{
		"source":     string(signal.SourceSentimentNews),
		"score":      score,
		"confidence": newsIndexConfidence,
		"timestamp":  p.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return signal.RawPayload{}, err
	}
	return signal.RawPayload{Provider: p.Name(), Body: body}, nil
}
