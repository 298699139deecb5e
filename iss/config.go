package iss

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the client and source options.
//
//	base_url: https://iss.moex.com
//	timeout: 10s
//	retry_limit: 10
//	retry_delay: 10s
//	cache_size: 1000
//	cache_dir: /var/cache/moex
//	market: shares
//	main_board_only: false
//	max_chain_length: 32
//	parallelism: 2
//	lookahead: 5
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryLimit int           `yaml:"retry_limit"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	CacheSize  int           `yaml:"cache_size"`
	CacheDir   string        `yaml:"cache_dir"`

	Market         string `yaml:"market"`
	MainBoardOnly  bool   `yaml:"main_board_only"`
	MaxChainLength int    `yaml:"max_chain_length"`

	Parallelism int `yaml:"parallelism"`
	// Lookahead of 0 uses history.DefaultLookahead.
	Lookahead int `yaml:"lookahead"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values of the config. Zero values mean defaults.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("retry_limit must not be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.Market != "" {
		if _, err := MarketByName(c.Market); err != nil {
			return err
		}
	}
	if c.MaxChainLength < 0 {
		return fmt.Errorf("max_chain_length must not be negative")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative")
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("lookahead must not be negative")
	}
	return nil
}

// ClientOpts returns the client options of the config.
func (c *Config) ClientOpts() ClientOpts {
	return ClientOpts{
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		RetryLimit: c.RetryLimit,
		RetryDelay: c.RetryDelay,
		CacheSize:  c.CacheSize,
		CacheDir:   c.CacheDir,
	}
}

// SourceOpts returns the source options of the config.
func (c *Config) SourceOpts() (SourceOpts, error) {
	opts := SourceOpts{MainBoardOnly: c.MainBoardOnly, MaxChainLength: c.MaxChainLength}
	if c.Market != "" {
		m, err := MarketByName(c.Market)
		if err != nil {
			return SourceOpts{}, err
		}
		opts.Market = m
	}
	return opts, nil
}
