package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load 读取并校验配置文件。任何校验失败都是启动期致命错误。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.loadBucketFile(); err != nil {
		return nil, err
	}
	cfg.normalizeBuckets()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadBucketFile merges the standalone correlation-bucket map, if configured.
func (c *Config) loadBucketFile() error {
	path := strings.TrimSpace(c.BucketFile)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading bucket file failed (%s): %w", path, err)
	}
	extra := map[string]string{}
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return fmt.Errorf("parsing bucket file failed (%s): %w", path, err)
	}
	if c.Buckets == nil {
		c.Buckets = map[string]string{}
	}
	for asset, bucket := range extra {
		c.Buckets[asset] = bucket
	}
	return nil
}

func (c *Config) normalizeBuckets() {
	if len(c.Buckets) == 0 {
		return
	}
	normalized := make(map[string]string, len(c.Buckets))
	for asset, bucket := range c.Buckets {
		normalized[strings.ToUpper(strings.TrimSpace(asset))] = strings.TrimSpace(bucket)
	}
	c.Buckets = normalized
}
