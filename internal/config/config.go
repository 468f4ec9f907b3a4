package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cricbid/auction-backend/internal/engine"
)

// Config is the server process configuration: YAML file first, then
// environment overrides. Auction rules inside it are frozen into an
// engine.Config at startup.
type Config struct {
	Addr              string        `yaml:"addr"`
	NATSURL           string        `yaml:"nats_url"`
	DatabaseDSN       string        `yaml:"database_dsn"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	Auction           Rules         `yaml:"auction"`
}

type Rules struct {
	BidIncrement      int64 `yaml:"bid_increment"`
	MinimumBasePrice  int64 `yaml:"minimum_base_price"`
	MaxRounds         int   `yaml:"max_rounds"`
	HistoryLimit      int   `yaml:"history_limit"`
	UnderAgeLimit     int   `yaml:"under_age_limit"`
	MaxUnderAge       int   `yaml:"max_under_age"`
	SafeFundBufferPct int64 `yaml:"safe_fund_buffer_pct"`
	WarnSpendPct      int64 `yaml:"warn_spend_pct"`
	DangerSpendPct    int64 `yaml:"danger_spend_pct"`
}

func Default() Config {
	e := engine.DefaultConfig()
	return Config{
		Addr:              ":8080",
		HeartbeatInterval: 2 * time.Second,
		ConnectTimeout:    3 * time.Second,
		Auction: Rules{
			BidIncrement:      e.BidIncrement,
			MinimumBasePrice:  e.MinimumBasePrice,
			MaxRounds:         e.MaxRounds,
			HistoryLimit:      e.HistoryLimit,
			UnderAgeLimit:     e.UnderAgeLimit,
			MaxUnderAge:       e.MaxUnderAge,
			SafeFundBufferPct: e.SafeFundBufferPct,
			WarnSpendPct:      e.WarnSpendPct,
			DangerSpendPct:    e.DangerSpendPct,
		},
	}
}

// Load reads the optional YAML file at path, then applies environment
// overrides (AUCTION_ADDR, NATS_URL, DATABASE_URL).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Addr = getEnv("AUCTION_ADDR", cfg.Addr)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.DatabaseDSN = getEnv("DATABASE_URL", cfg.DatabaseDSN)
	return cfg, nil
}

// Engine freezes the rule set for injection into the ledger.
func (r Rules) Engine() engine.Config {
	return engine.Config{
		BidIncrement:      r.BidIncrement,
		MinimumBasePrice:  r.MinimumBasePrice,
		MaxRounds:         r.MaxRounds,
		HistoryLimit:      r.HistoryLimit,
		UnderAgeLimit:     r.UnderAgeLimit,
		MaxUnderAge:       r.MaxUnderAge,
		SafeFundBufferPct: r.SafeFundBufferPct,
		WarnSpendPct:      r.WarnSpendPct,
		DangerSpendPct:    r.DangerSpendPct,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
