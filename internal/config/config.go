// Package config loads the scanbot YAML configuration.
package config

import (
	"time"

	"dealer-scan/internal/detector"
	"dealer-scan/internal/domain"
	"dealer-scan/internal/executor"
	"dealer-scan/internal/supervisor"
)

// Config is the top-level scanbot configuration.
type Config struct {
	Solana     SolanaConfig         `yaml:"solana"`
	PrivateKey string               `yaml:"private_key"`
	Monitors   []domain.MonitorRule `yaml:"monitors"`
	ScanDealer ScanDealerConfig     `yaml:"scan_dealer"`
	Jito       JitoConfig           `yaml:"jito"`
	Execution  ExecutionConfig      `yaml:"execution"`
	Reconnect  ReconnectConfig      `yaml:"reconnect"`
	Storage    StorageConfig        `yaml:"storage"`
	Metrics    MetricsConfig        `yaml:"metrics"`
	Log        LogConfig            `yaml:"log"`
}

// SolanaConfig holds the node endpoints.
type SolanaConfig struct {
	RPCURL string `yaml:"rpc_url"`
	WSURL  string `yaml:"ws_url"`
}

// ScanDealerConfig tunes the dealer detector. Unset thresholds take the
// defaults; an explicit 0 is kept.
type ScanDealerConfig struct {
	AlarmTolerance *float64      `yaml:"alarm_tolerance"`
	MinEvents      int           `yaml:"min_events"`
	BuyFloorSOL    *float64      `yaml:"buy_floor_sol"`
	EvictAfter     time.Duration `yaml:"evict_after"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	HoldingTime    time.Duration `yaml:"holding_time"`
	QueueSize      int           `yaml:"queue_size"` // notifications buffered per monitor
}

// JitoConfig holds relay and tip settings.
type JitoConfig struct {
	TipsPercentile int     `yaml:"tips_percentile"`
	TipStreamURL   string  `yaml:"tip_stream_url"`
	BlockEngineURL string  `yaml:"block_engine_url"`
	ExtraTip       float64 `yaml:"extra_tip"`
	Slippage       float64 `yaml:"slippage"` // percent, 30 means 30%
}

// ExecutionConfig controls trading on alarms.
type ExecutionConfig struct {
	Enabled         *bool         `yaml:"enabled"`
	Simulate        bool          `yaml:"simulate"`
	BuySOL          float64       `yaml:"buy_sol"`
	MaxInFlight     int           `yaml:"max_in_flight"`
	QueueSize       int           `yaml:"queue_size"` // alarms awaiting execution
	ConfirmAttempts int           `yaml:"confirm_attempts"`
	ConfirmDelay    time.Duration `yaml:"confirm_delay"`
}

// ReconnectConfig controls supervised stream restarts.
type ReconnectConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

// StorageConfig selects audit stores. Empty DSNs select in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// MetricsConfig configures the /metrics and /health listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Detector returns the detector configuration.
func (c *Config) Detector() detector.Config {
	return detector.Config{
		Tolerance:     valueOr(c.ScanDealer.AlarmTolerance, DefaultAlarmTolerance),
		MinEvents:     c.ScanDealer.MinEvents,
		BuyFloorSOL:   valueOr(c.ScanDealer.BuyFloorSOL, DefaultBuyFloorSOL),
		EvictAfter:    c.ScanDealer.EvictAfter,
		CheckInterval: c.ScanDealer.CheckInterval,
	}
}

// Supervisor returns the stream restart policy.
func (c *Config) Supervisor() supervisor.Config {
	return supervisor.Config{
		Enabled:   enabled(c.Reconnect.Enabled),
		BaseDelay: c.Reconnect.BaseDelay,
		MaxDelay:  c.Reconnect.MaxDelay,
	}
}

// Executor returns the alarm execution settings.
func (c *Config) Executor() executor.Config {
	return executor.Config{
		Enabled:     enabled(c.Execution.Enabled),
		BuySOL:      c.Execution.BuySOL,
		SlippagePct: c.Jito.Slippage,
		HoldingTime: c.ScanDealer.HoldingTime,
		MaxInFlight: c.Execution.MaxInFlight,
	}
}

// Trader returns the per-swap tip and submission settings.
func (c *Config) Trader() executor.TraderConfig {
	return executor.TraderConfig{
		TipPercentile: c.Jito.TipsPercentile,
		ExtraTipSOL:   c.Jito.ExtraTip,
		Simulate:      c.Execution.Simulate,
	}
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
