package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	hcfg "helmsman/internal/config"
	"helmsman/internal/engine"
	"helmsman/internal/executor"
	"helmsman/internal/gateway/binance"
	"helmsman/internal/logger"
	"helmsman/internal/market"
	"helmsman/internal/risk"
	"helmsman/internal/state"
	"helmsman/internal/store"
	adminhttp "helmsman/internal/transport/http/admin"
)

// AppBuilder wires the engine's collaborators. The *Fn seams exist so tests
// can swap the market stack or store without touching the assembly order.
type AppBuilder struct {
	cfg *hcfg.Config

	storeFn     func(hcfg.AppConfig) (state.Store, error)
	sourceFn    func(hcfg.MarketConfig) (market.Source, error)
	providersFn func(hcfg.SentimentConfig) []market.SentimentProvider

	storeOverride state.Store
}

type AppBuilderOption func(*AppBuilder)

// WithStore overrides the persistence layer (tests use the memory store).
func WithStore(s state.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = s }
}

func NewAppBuilder(cfg *hcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		storeFn:     buildStore,
		sourceFn:    buildSource,
		providersFn: buildProviders,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	st := b.storeOverride
	if st == nil {
		var err error
		st, err = b.storeFn(cfg.App)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
	}

	breaker := risk.NewBreaker()
	validator := risk.NewValidator(cfg.Company, risk.BucketMap(cfg.Buckets), st, breaker)
	assetByAgent := make(map[string]string, len(cfg.Agents))
	agents := make([]*engine.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		assetByAgent[ac.ID] = ac.Asset
		agents = append(agents, engine.NewAgent(ac))
	}
	if err := validator.Restore(ctx, assetByAgent); err != nil {
		return nil, fmt.Errorf("restoring risk state: %w", err)
	}

	source, err := b.sourceFn(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("initializing market source: %w", err)
	}
	providers := b.providersFn(cfg.Sentiment)

	paper := executor.NewPaperExecutor(func(ctx context.Context, asset string) (float64, error) {
		q, err := source.FetchQuote(ctx, asset)
		if err != nil {
			return 0, err
		}
		return q.Price, nil
	})

	eng, err := engine.New(engine.Params{
		Agents:          agents,
		Source:          source,
		Providers:       providers,
		Validator:       validator,
		Store:           st,
		Executor:        paper,
		HistoryInterval: cfg.Market.Interval,
		HistoryBars:     cfg.Market.HistoryBars,
	})
	if err != nil {
		return nil, err
	}

	adminSrv, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Store:     st,
		Validator: validator,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing admin server: %w", err)
	}

	logger.Infof("✓ assembled %d agents, market provider=%s", len(agents), cfg.Market.Provider)
	return &App{cfg: cfg, engine: eng, adminHTTP: adminSrv, store: st}, nil
}

func buildStore(app hcfg.AppConfig) (state.Store, error) {
	return store.NewSQLiteStore(app.DBPath)
}

func buildSource(mc hcfg.MarketConfig) (market.Source, error) {
	switch strings.ToLower(strings.TrimSpace(mc.Provider)) {
	case "static":
		return market.NewStaticSource(), nil
	default:
		src := binance.New(binance.Config{
			RESTBaseURL: mc.RESTBaseURL,
			HTTPTimeout: time.Duration(mc.TimeoutSeconds) * time.Second,
		})
		return market.NewGuardedSource(src), nil
	}
}

func buildProviders(sc hcfg.SentimentConfig) []market.SentimentProvider {
	var providers []market.SentimentProvider
	if strings.TrimSpace(sc.NewsURL) != "" {
		news := market.NewNewsIndexProvider(sc.NewsURL, time.Duration(sc.PollTimeoutSeconds)*time.Second)
		providers = append(providers, market.NewGuardedProvider(news))
	}
	return providers
}
