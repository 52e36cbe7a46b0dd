package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout. Nil fields were absent from the file.
type fileConfig struct {
	Mode              *string                    `yaml:"mode"`
	Symbols           []string                   `yaml:"symbols"`
	Volumes           map[string]decimal.Decimal `yaml:"volumes"`
	TickSizes         map[string]decimal.Decimal `yaml:"tickSizes"`
	DefaultTick       *decimal.Decimal           `yaml:"defaultTick"`
	Timeframe         *string                    `yaml:"timeframe"`
	StopLossPercent   *decimal.Decimal           `yaml:"stopLossPercent"`
	TakeProfitPercent *decimal.Decimal           `yaml:"takeProfitPercent"`
	KickPercent       *decimal.Decimal           `yaml:"kickPercent"`
	Cutoff            *string                    `yaml:"cutoff"`
	StopTime          *string                    `yaml:"stopTime"`
	Timezone          *string                    `yaml:"timezone"`
	ClosesSource      *string                    `yaml:"closesSource"`
	ClosesDBPath      *string                    `yaml:"closesDb"`
	Feed              *string                    `yaml:"feed"`
	DecisionsPath     *string                    `yaml:"decisionsPath"`
	CheckpointPath    *string                    `yaml:"checkpointPath"`
	MetricsAddr       *string                    `yaml:"metricsAddr"`
	OrdersPerSecond   *float64                   `yaml:"ordersPerSecond"`
	MaxNotional       *decimal.Decimal           `yaml:"maxNotional"`
	KillSwitch        *bool                      `yaml:"killSwitch"`
	AttachStop        *bool                      `yaml:"attachStop"`
	KeepRunning       *bool                      `yaml:"keepRunning"`
	LogLevel          *string                    `yaml:"logLevel"`
	APIKey            *string                    `yaml:"apiKey"`
	APISecret         *string                    `yaml:"apiSecret"`
}

func readFile(path string) (fileConfig, error) {
	var file fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config %s: %w", path, err)
	}
	if file.Timeframe != nil {
		if _, err := time.ParseDuration(*file.Timeframe); err != nil {
			return file, fmt.Errorf("parse config %s: timeframe: %w", path, err)
		}
	}
	return file, nil
}

// apply copies file values into cfg and fv unless the matching flag was
// given explicitly.
func (f fileConfig) apply(cfg *Config, fv *flagValues, explicit map[string]bool) {
	setString := func(name string, dst *string, src *string) {
		if src != nil && !explicit[name] {
			*dst = *src
		}
	}
	setDecimal := func(name string, dst *string, src *decimal.Decimal) {
		if src != nil && !explicit[name] {
			*dst = src.String()
		}
	}

	setString("mode", &fv.mode, f.Mode)
	if len(f.Symbols) > 0 && !explicit["symbols"] {
		fv.symbols = strings.Join(f.Symbols, ",")
	}
	if len(f.Volumes) > 0 && !explicit["volumes"] {
		fv.volumes = formatDecimalMap(f.Volumes)
	}
	if len(f.TickSizes) > 0 && !explicit["tick-sizes"] {
		fv.tickSizes = formatDecimalMap(f.TickSizes)
	}
	setDecimal("default-tick", &fv.defaultTick, f.DefaultTick)
	if f.Timeframe != nil && !explicit["timeframe"] {
		cfg.Timeframe, _ = time.ParseDuration(*f.Timeframe)
	}
	setDecimal("stop-loss-percent", &fv.stopLoss, f.StopLossPercent)
	setDecimal("take-profit-percent", &fv.takeProfit, f.TakeProfitPercent)
	setDecimal("kick-percent", &fv.kick, f.KickPercent)
	setString("cutoff", &fv.cutoff, f.Cutoff)
	setString("stop-time", &fv.stopTime, f.StopTime)
	setString("timezone", &cfg.Timezone, f.Timezone)
	setString("closes-source", &cfg.ClosesSource, f.ClosesSource)
	setString("closes-db", &cfg.ClosesDBPath, f.ClosesDBPath)
	setString("feed", &cfg.Feed, f.Feed)
	setString("decisions-path", &cfg.DecisionsPath, f.DecisionsPath)
	setString("checkpoint-path", &cfg.CheckpointPath, f.CheckpointPath)
	setString("metrics-addr", &cfg.MetricsAddr, f.MetricsAddr)
	setString("log-level", &cfg.LogLevel, f.LogLevel)
	if f.OrdersPerSecond != nil && !explicit["orders-per-second"] {
		cfg.OrdersPerSecond = *f.OrdersPerSecond
	}
	setDecimal("max-notional", &fv.maxNotional, f.MaxNotional)
	if f.KillSwitch != nil && !explicit["kill-switch"] {
		cfg.KillSwitch = *f.KillSwitch
	}
	if f.AttachStop != nil && !explicit["attach-stop"] {
		cfg.AttachStop = *f.AttachStop
	}
	if f.KeepRunning != nil && !explicit["keep-running"] {
		cfg.KeepRunning = *f.KeepRunning
	}
	if f.APIKey != nil {
		cfg.APIKey = *f.APIKey
	}
	if f.APISecret != nil {
		cfg.APISecret = *f.APISecret
	}
}
