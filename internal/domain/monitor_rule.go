package domain

import (
	"fmt"
	"strings"
)

// RuleType selects the detection strategy of a monitor rule.
type RuleType string

// Supported rule types.
const (
	RuleScanDealer RuleType = "scan_dealer"
)

// ParseRuleType accepts both the snake_case and the CamelCase spelling.
func ParseRuleType(s string) (RuleType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "scandealer":
		return RuleScanDealer, nil
	default:
		return "", fmt.Errorf("unknown rule type %q", s)
	}
}

// UnmarshalText lets rule types be read straight from config files.
func (r *RuleType) UnmarshalText(text []byte) error {
	rt, err := ParseRuleType(string(text))
	if err != nil {
		return err
	}
	*r = rt
	return nil
}

// MonitorRule is one monitored target. Immutable after load.
type MonitorRule struct {
	Address  string   `yaml:"address"`
	RuleType RuleType `yaml:"rule_type"`
}

func (m MonitorRule) String() string {
	return fmt.Sprintf("%s(%s)", m.RuleType, m.Address)
}
