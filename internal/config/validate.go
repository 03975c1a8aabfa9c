package config

import (
	"errors"
	"fmt"
	"strings"

	solanago "github.com/gagliardetto/solana-go"

	"dealer-scan/internal/domain"
	"dealer-scan/internal/jito"
	"dealer-scan/internal/solana"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return errors.New("solana.rpc_url is required")
	}
	if c.Solana.WSURL == "" {
		return errors.New("solana.ws_url is required")
	}

	if len(c.Monitors) == 0 {
		return errors.New("monitors must list at least one address")
	}
	seen := make(map[string]bool, len(c.Monitors))
	for i, m := range c.Monitors {
		if err := solana.ValidateAddress(m.Address); err != nil {
			return fmt.Errorf("monitors[%d].address: %w", i, err)
		}
		if m.RuleType != domain.RuleScanDealer {
			return fmt.Errorf("monitors[%d].rule_type %q is not supported", i, m.RuleType)
		}
		if seen[m.Address] {
			return fmt.Errorf("monitors[%d].address %s is listed twice", i, m.Address)
		}
		seen[m.Address] = true
	}

	if err := c.Detector().Validate(); err != nil {
		return fmt.Errorf("scan_dealer: %w", err)
	}
	if c.ScanDealer.HoldingTime < 0 {
		return errors.New("scan_dealer.holding_time must be >= 0")
	}
	if c.ScanDealer.QueueSize < 1 {
		return errors.New("scan_dealer.queue_size must be >= 1")
	}

	if !jito.ValidPercentile(c.Jito.TipsPercentile) {
		return fmt.Errorf("jito.tips_percentile must be one of 25, 50, 75, 95, 99, got %d", c.Jito.TipsPercentile)
	}
	if c.Jito.ExtraTip < 0 {
		return errors.New("jito.extra_tip must be >= 0")
	}
	if c.Jito.Slippage < 0 || c.Jito.Slippage > 100 {
		return fmt.Errorf("jito.slippage must be between 0 and 100, got %v", c.Jito.Slippage)
	}

	if err := c.validateExecution(); err != nil {
		return err
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return errors.New("reconnect.max_delay must be >= reconnect.base_delay")
	}

	if c.Storage.ClickhouseDSN != "" && !strings.HasPrefix(c.Storage.ClickhouseDSN, "clickhouse://") {
		return errors.New("storage.clickhouse_dsn must use the clickhouse:// scheme")
	}

	return nil
}

func (c *Config) validateExecution() error {
	if !enabled(c.Execution.Enabled) {
		return nil
	}
	if c.PrivateKey == "" {
		return errors.New("private_key is required when execution is enabled")
	}
	if _, err := solanago.PrivateKeyFromBase58(c.PrivateKey); err != nil {
		return fmt.Errorf("private_key: %w", err)
	}
	if c.Jito.TipStreamURL == "" {
		return errors.New("jito.tip_stream_url is required")
	}
	if c.Jito.BlockEngineURL == "" {
		return errors.New("jito.block_engine_url is required")
	}
	if c.Execution.BuySOL <= 0 {
		return errors.New("execution.buy_sol must be > 0")
	}
	if c.Execution.MaxInFlight < 1 {
		return errors.New("execution.max_in_flight must be >= 1")
	}
	if c.Execution.QueueSize < 1 {
		return errors.New("execution.queue_size must be >= 1")
	}
	if c.Execution.ConfirmAttempts < 1 {
		return errors.New("execution.confirm_attempts must be >= 1")
	}
	if c.Execution.ConfirmDelay <= 0 {
		return errors.New("execution.confirm_delay must be > 0")
	}
	return nil
}
