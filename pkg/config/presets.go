package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyPreset is a named bundle of strategy parameters loadable from YAML.
// Presets let operators re-tune stake progression without a rebuild.
type StrategyPreset struct {
	Name                string  `yaml:"name"`
	InitialStake        float64 `yaml:"initial_stake"`
	ProfitThreshold     float64 `yaml:"profit_threshold"`
	LossThreshold       float64 `yaml:"loss_threshold"`
	MaxRecoveryAttempts int     `yaml:"max_recovery_attempts"`
	MaxDailyTrades      int     `yaml:"max_daily_trades"`
}

// LoadPresets reads strategy presets from a YAML file keyed by trading mode.
func LoadPresets(path string) (map[string]StrategyPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var doc struct {
		Presets map[string]StrategyPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	for mode, p := range doc.Presets {
		if p.InitialStake <= 0 || p.ProfitThreshold <= 0 || p.LossThreshold <= 0 {
			return nil, fmt.Errorf("preset %q: stakes and thresholds must be positive", mode)
		}
	}
	return doc.Presets, nil
}
