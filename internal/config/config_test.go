package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickday/internal/schedule"
)

func validConfig() Config {
	return Config{
		Mode:            ModeDryRun,
		Symbols:         []string{"SBER", "GAZP"},
		Volumes:         map[string]decimal.Decimal{"SBER": decimal.NewFromInt(10), "GAZP": decimal.NewFromInt(5)},
		DefaultTick:     decimal.RequireFromString("0.01"),
		StopLossPercent: decimal.NewFromInt(1),
		KickPercent:     decimal.NewFromInt(2),
		Cutoff:          schedule.TimeOfDay{Hours: 18, Minutes: 35},
		StopTime:        schedule.TimeOfDay{Hours: 23, Minutes: 45},
		ClosesSource:    ClosesSQLite,
		ClosesDBPath:    "closes.db",
	}
}

func TestValidateConfigAcceptsValidConfig(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidateConfigRejectsMissingVolume(t *testing.T) {
	cfg := validConfig()
	delete(cfg.Volumes, "GAZP")
	assert.ErrorContains(t, validate(cfg), "missing volume for GAZP")
}

func TestValidateConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]func(*Config){
		"negative kick":         func(c *Config) { c.KickPercent = decimal.NewFromInt(-1) },
		"negative stop loss":    func(c *Config) { c.StopLossPercent = decimal.NewFromInt(-1) },
		"zero volume":           func(c *Config) { c.Volumes["SBER"] = decimal.Zero },
		"no symbols":            func(c *Config) { c.Symbols = nil },
		"duplicate symbol":      func(c *Config) { c.Symbols = []string{"SBER", "SBER"} },
		"stop before cutoff":    func(c *Config) { c.StopTime = schedule.TimeOfDay{Hours: 10} },
		"bad mode":              func(c *Config) { c.Mode = "stream" },
		"paper without keys":    func(c *Config) { c.Mode = ModePaper },
		"alpaca without keys":   func(c *Config) { c.ClosesSource = ClosesAlpaca },
		"unknown closes source": func(c *Config) { c.ClosesSource = "csv" },
		"negative tick":         func(c *Config) { c.TickSizes = map[string]decimal.Decimal{"RTS": decimal.NewFromInt(-10)} },
		"negative max notional": func(c *Config) { c.MaxNotional = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	configContents := `
mode: dry-run
symbols: [SBER, GAZP]
volumes:
  SBER: 10
  GAZP: 5
tickSizes:
  GAZP: 0.05
kickPercent: 3
stopLossPercent: 1.5
cutoff: "18:40"
timezone: UTC
maxNotional: 250000
killSwitch: true
apiKey: config-key
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContents), 0o600))

	t.Setenv("KICKDAY_KICK_PERCENT", "2.5")
	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")

	resetFlags := resetFlagSet(t)
	defer resetFlags()

	os.Args = []string{
		"cmd",
		"--config", configPath,
		"--cutoff", "18:35",
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"SBER", "GAZP"}, cfg.Symbols)
	assert.True(t, cfg.Volumes["GAZP"].Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.TickSizes["GAZP"].Equal(decimal.RequireFromString("0.05")))
	assert.True(t, cfg.StopLossPercent.Equal(decimal.RequireFromString("1.5")), "stop loss from file")
	assert.True(t, cfg.KickPercent.Equal(decimal.RequireFromString("2.5")), "kick from env")
	assert.Equal(t, schedule.TimeOfDay{Hours: 18, Minutes: 35}, cfg.Cutoff, "cutoff from CLI")
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.MaxNotional.Equal(decimal.NewFromInt(250000)))
	assert.True(t, cfg.KillSwitch)
}

func TestLoadConfigFlagsOnly(t *testing.T) {
	resetFlags := resetFlagSet(t)
	defer resetFlags()

	os.Args = []string{
		"cmd",
		"--symbols", "SBER",
		"--volumes", "SBER=7",
		"--timezone", "UTC",
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeDryRun, cfg.Mode)
	assert.True(t, cfg.Volumes["SBER"].Equal(decimal.NewFromInt(7)))
	assert.True(t, cfg.KickPercent.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, schedule.TimeOfDay{Hours: 23, Minutes: 45}, cfg.StopTime)
	assert.True(t, cfg.MaxNotional.IsZero())
	assert.False(t, cfg.KillSwitch)
}

func TestParseDecimalMapRejectsMalformedPairs(t *testing.T) {
	_, err := parseDecimalMap("SBER10")
	assert.Error(t, err)
	_, err = parseDecimalMap("SBER=ten")
	assert.Error(t, err)
}

func resetFlagSet(t *testing.T) func() {
	t.Helper()
	originalArgs := os.Args
	originalCommandLine := flag.CommandLine
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	return func() {
		flag.CommandLine = originalCommandLine
		os.Args = originalArgs
	}
}

func TestReadFileKeepsDecimalPrecision(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContents := `
volumes:
  SBER: 12345678901234567891
tickSizes:
  RTS: "0.0000000001"
kickPercent: 2.000000000000000001
maxNotional: 1e6
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContents), 0o600))

	file, err := readFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567891", file.Volumes["SBER"].String())
	assert.Equal(t, "0.0000000001", file.TickSizes["RTS"].String())
	require.NotNil(t, file.KickPercent)
	assert.Equal(t, "2.000000000000000001", file.KickPercent.String())
	require.NotNil(t, file.MaxNotional)
	assert.True(t, file.MaxNotional.Equal(decimal.NewFromInt(1000000)))
}
