package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRPCURL          = "https://api.mainnet-beta.solana.com"
	DefaultWSURL           = "wss://api.mainnet-beta.solana.com"
	DefaultAlarmTolerance  = 0.15
	DefaultMinEvents       = 3
	DefaultBuyFloorSOL     = 0.5
	DefaultEvictAfter      = 5 * time.Second
	DefaultCheckInterval   = 1 * time.Second
	DefaultNotifyQueueSize = 256
	DefaultTipsPercentile  = 50
	DefaultTipStreamURL    = "ws://bundles-api-rest.jito.wtf/api/v1/bundles/tip_stream"
	DefaultBlockEngineURL  = "https://mainnet.block-engine.jito.wtf/api/v1"
	DefaultSlippage        = 30
	DefaultBuySOL          = 0.01
	DefaultMaxInFlight     = 4
	DefaultExecQueueSize   = 64
	DefaultConfirmAttempts = 10
	DefaultConfirmDelay    = 2 * time.Second
	DefaultReconnectBase   = 1 * time.Second
	DefaultReconnectMax    = 30 * time.Second
	DefaultMetricsAddr     = ":9090"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *Config) applyDefaults() {
	// Solana defaults
	if c.Solana.RPCURL == "" {
		c.Solana.RPCURL = DefaultRPCURL
	}
	if c.Solana.WSURL == "" {
		c.Solana.WSURL = DefaultWSURL
	}

	// Detector defaults
	if c.ScanDealer.AlarmTolerance == nil {
		tolerance := DefaultAlarmTolerance
		c.ScanDealer.AlarmTolerance = &tolerance
	}
	if c.ScanDealer.MinEvents == 0 {
		c.ScanDealer.MinEvents = DefaultMinEvents
	}
	if c.ScanDealer.BuyFloorSOL == nil {
		floor := DefaultBuyFloorSOL
		c.ScanDealer.BuyFloorSOL = &floor
	}
	if c.ScanDealer.EvictAfter == 0 {
		c.ScanDealer.EvictAfter = DefaultEvictAfter
	}
	if c.ScanDealer.CheckInterval == 0 {
		c.ScanDealer.CheckInterval = DefaultCheckInterval
	}
	if c.ScanDealer.QueueSize == 0 {
		c.ScanDealer.QueueSize = DefaultNotifyQueueSize
	}

	// Jito defaults
	if c.Jito.TipsPercentile == 0 {
		c.Jito.TipsPercentile = DefaultTipsPercentile
	}
	if c.Jito.TipStreamURL == "" {
		c.Jito.TipStreamURL = DefaultTipStreamURL
	}
	if c.Jito.BlockEngineURL == "" {
		c.Jito.BlockEngineURL = DefaultBlockEngineURL
	}
	if c.Jito.Slippage == 0 {
		c.Jito.Slippage = DefaultSlippage
	}

	// Execution defaults
	if c.Execution.BuySOL == 0 {
		c.Execution.BuySOL = DefaultBuySOL
	}
	if c.Execution.MaxInFlight == 0 {
		c.Execution.MaxInFlight = DefaultMaxInFlight
	}
	if c.Execution.QueueSize == 0 {
		c.Execution.QueueSize = DefaultExecQueueSize
	}
	if c.Execution.ConfirmAttempts == 0 {
		c.Execution.ConfirmAttempts = DefaultConfirmAttempts
	}
	if c.Execution.ConfirmDelay == 0 {
		c.Execution.ConfirmDelay = DefaultConfirmDelay
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBase
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMax
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
