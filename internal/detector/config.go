// Package detector implements the windowed dealer-accumulation detector.
package detector

import (
	"fmt"
	"time"
)

// MinEvictAfter is the lower bound on bucket age before evaluation.
const MinEvictAfter = 5 * time.Second

// Config tunes the detector.
type Config struct {
	// Tolerance is the allowed relative deviation from the baseline amount.
	Tolerance float64
	// MinEvents is the number of events per bucket the rule inspects.
	MinEvents int
	// BuyFloorSOL drops buys below this amount before they enter the window.
	BuyFloorSOL float64
	// EvictAfter is the bucket age at which it is evaluated and evicted.
	EvictAfter time.Duration
	// CheckInterval is the sweep period.
	CheckInterval time.Duration
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		Tolerance:     0.15,
		MinEvents:     3,
		BuyFloorSOL:   0.5,
		EvictAfter:    MinEvictAfter,
		CheckInterval: time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %v", c.Tolerance)
	}
	if c.MinEvents < 1 {
		return fmt.Errorf("min events must be >= 1, got %d", c.MinEvents)
	}
	if c.BuyFloorSOL < 0 {
		return fmt.Errorf("buy floor must be >= 0, got %v", c.BuyFloorSOL)
	}
	if c.EvictAfter < MinEvictAfter {
		return fmt.Errorf("evict after must be >= %s, got %s", MinEvictAfter, c.EvictAfter)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be > 0, got %s", c.CheckInterval)
	}
	return nil
}
