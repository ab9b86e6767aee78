package config

import (
	"helmsman/internal/fuse"
	"helmsman/internal/risk"
)

// Config 是 Helmsman 的主配置载体。
type Config struct {
	App       AppConfig          `mapstructure:"app"`
	Market    MarketConfig       `mapstructure:"market"`
	Sentiment SentimentConfig    `mapstructure:"sentiment"`
	Company   risk.CompanyLimits `mapstructure:"company"`
	Buckets   map[string]string  `mapstructure:"buckets"`
	// BucketFile optionally points at a standalone YAML asset->bucket map;
	// entries there override inline Buckets.
	BucketFile string        `mapstructure:"bucket_file"`
	Agents     []AgentConfig `mapstructure:"agents"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogPath  string `mapstructure:"log_path"`
	DBPath   string `mapstructure:"db_path"`
}

type MarketConfig struct {
	// Provider selects the market data source: "binance" or "static".
	Provider       string `mapstructure:"provider"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	HistoryBars    int    `mapstructure:"history_bars"`
	Interval       string `mapstructure:"interval"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SentimentConfig struct {
	NewsURL            string `mapstructure:"news_url"`
	PollTimeoutSeconds int    `mapstructure:"poll_timeout_seconds"`
}

// AgentConfig 描述一个交易 agent 的人格：绑定资产、融合权重与风险限额。
// 启动时完整校验，运行期只读。
type AgentConfig struct {
	ID        string       `mapstructure:"id"`
	Asset     string       `mapstructure:"asset"`
	Threshold float64      `mapstructure:"threshold"`
	Interval  string       `mapstructure:"cycle_interval"`
	Weights   fuse.Weights `mapstructure:"weights"`
	Limits    risk.Limits  `mapstructure:"limits"`
}
