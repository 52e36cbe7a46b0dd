package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kickday/internal/schedule"
)

type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModePaper  Mode = "paper"
	ModeLive   Mode = "live"
)

const (
	ClosesSQLite = "sqlite"
	ClosesAlpaca = "alpaca"
)

type Config struct {
	Mode              Mode
	Symbols           []string
	Volumes           map[string]decimal.Decimal
	TickSizes         map[string]decimal.Decimal
	DefaultTick       decimal.Decimal
	Timeframe         time.Duration
	StopLossPercent   decimal.Decimal
	TakeProfitPercent decimal.Decimal
	KickPercent       decimal.Decimal
	Cutoff            schedule.TimeOfDay
	StopTime          schedule.TimeOfDay
	Timezone          string
	Location          *time.Location
	ClosesSource      string
	ClosesDBPath      string
	Feed              string
	DecisionsPath     string
	CheckpointPath    string
	PaperBaseURL      string
	LiveBaseURL       string
	MetricsAddr       string
	OrdersPerSecond   float64
	MaxNotional       decimal.Decimal
	KillSwitch        bool
	AttachStop        bool
	KeepRunning       bool
	LogLevel          string
	PrettyLogs        bool
	ConfigPath        string
	APIKey            string
	APISecret         string
}

// BaseURL is the trading API endpoint for the configured mode.
func (c Config) BaseURL() string {
	if c.Mode == ModeLive {
		return c.LiveBaseURL
	}
	return c.PaperBaseURL
}

// flagValues holds raw strings that are parsed once every source has been
// applied.
type flagValues struct {
	mode        string
	symbols     string
	volumes     string
	tickSizes   string
	defaultTick string
	stopLoss    string
	takeProfit  string
	kick        string
	cutoff      string
	stopTime    string
	maxNotional string
}

// Load builds the configuration. Later sources win: defaults, the YAML file
// named by --config, environment variables, then flags set on the command line.
func Load() (Config, error) {
	var cfg Config
	var fv flagValues

	loadDotEnvIfPresent(".env")

	flag.StringVar(&cfg.ConfigPath, "config", "", "path to YAML config file")
	flag.StringVar(&fv.mode, "mode", string(ModeDryRun), "run mode: dry-run, paper or live")
	flag.StringVar(&fv.symbols, "symbols", "", "comma separated instrument codes, in evaluation order")
	flag.StringVar(&fv.volumes, "volumes", "", "order volume per instrument, e.g. SBER=10,GAZP=5")
	flag.StringVar(&fv.tickSizes, "tick-sizes", "", "tick size per instrument, e.g. RTS=10")
	flag.StringVar(&fv.defaultTick, "default-tick", "0.01", "tick size for instruments without an entry")
	flag.DurationVar(&cfg.Timeframe, "timeframe", 24*time.Hour, "strategy timeframe")
	flag.StringVar(&fv.stopLoss, "stop-loss-percent", "1", "stop loss distance, percent of entry")
	flag.StringVar(&fv.takeProfit, "take-profit-percent", "0", "take profit distance, percent of entry")
	flag.StringVar(&fv.kick, "kick-percent", "2", "gap from the previous close that triggers an entry, percent")
	flag.StringVar(&fv.cutoff, "cutoff", "18:35", "time of day the gap check runs (HH:MM)")
	flag.StringVar(&fv.stopTime, "stop-time", "23:45", "time of day the session stops (HH:MM)")
	flag.StringVar(&cfg.Timezone, "timezone", "Local", "IANA location of the trading clock")
	flag.StringVar(&cfg.ClosesSource, "closes-source", ClosesSQLite, "previous close source: sqlite or alpaca")
	flag.StringVar(&cfg.ClosesDBPath, "closes-db", "closes.db", "sqlite file with evening clearing prices")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flag.StringVar(&cfg.DecisionsPath, "decisions-path", "decisions.ndjson", "path to decisions log")
	flag.StringVar(&cfg.CheckpointPath, "checkpoint-path", "checkpoint.json", "path to checkpoint file")
	flag.StringVar(&cfg.PaperBaseURL, "paper-base-url", "https://paper-api.alpaca.markets", "paper trading base URL")
	flag.StringVar(&cfg.LiveBaseURL, "live-base-url", "https://api.alpaca.markets", "live trading base URL")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "listen address for /metrics and /healthz, empty disables")
	flag.Float64Var(&cfg.OrdersPerSecond, "orders-per-second", 5, "order submission rate limit, 0 disables")
	flag.StringVar(&fv.maxNotional, "max-notional", "0", "largest limit price times volume per order, 0 disables")
	flag.BoolVar(&cfg.KillSwitch, "kill-switch", false, "reject every order before it is sent")
	flag.BoolVar(&cfg.AttachStop, "attach-stop", true, "send the stop price as a stop-loss leg")
	flag.BoolVar(&cfg.KeepRunning, "keep-running", false, "ignore the stop time and fire every business day")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	flag.BoolVar(&cfg.PrettyLogs, "pretty-logs", false, "human readable console logs")
	flag.Parse()

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if cfg.ConfigPath != "" {
		file, err := readFile(cfg.ConfigPath)
		if err != nil {
			return cfg, err
		}
		file.apply(&cfg, &fv, explicit)
	}
	applyEnv(&cfg, &fv, explicit)

	if err := parseValues(&cfg, fv); err != nil {
		return cfg, err
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, fv *flagValues, explicit map[string]bool) {
	cfg.APIKey = envOr("APCA_API_KEY_ID", cfg.APIKey)
	cfg.APISecret = envOr("APCA_API_SECRET_KEY", cfg.APISecret)
	if !explicit["mode"] {
		fv.mode = envOr("KICKDAY_MODE", fv.mode)
	}
	if !explicit["symbols"] {
		fv.symbols = envOr("KICKDAY_SYMBOLS", fv.symbols)
	}
	if !explicit["kick-percent"] {
		fv.kick = envOr("KICKDAY_KICK_PERCENT", fv.kick)
	}
	if !explicit["kill-switch"] && os.Getenv("KICKDAY_KILL_SWITCH") == "true" {
		cfg.KillSwitch = true
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func parseValues(cfg *Config, fv flagValues) error {
	var err error
	cfg.Mode = Mode(fv.mode)
	cfg.Symbols = splitList(fv.symbols)
	if cfg.Volumes, err = parseDecimalMap(fv.volumes); err != nil {
		return fmt.Errorf("volumes: %w", err)
	}
	if cfg.TickSizes, err = parseDecimalMap(fv.tickSizes); err != nil {
		return fmt.Errorf("tick-sizes: %w", err)
	}
	if cfg.DefaultTick, err = decimal.NewFromString(fv.defaultTick); err != nil {
		return fmt.Errorf("default-tick: %w", err)
	}
	if cfg.StopLossPercent, err = decimal.NewFromString(fv.stopLoss); err != nil {
		return fmt.Errorf("stop-loss-percent: %w", err)
	}
	if cfg.TakeProfitPercent, err = decimal.NewFromString(fv.takeProfit); err != nil {
		return fmt.Errorf("take-profit-percent: %w", err)
	}
	if cfg.KickPercent, err = decimal.NewFromString(fv.kick); err != nil {
		return fmt.Errorf("kick-percent: %w", err)
	}
	if cfg.MaxNotional, err = decimal.NewFromString(fv.maxNotional); err != nil {
		return fmt.Errorf("max-notional: %w", err)
	}
	if cfg.Cutoff, err = schedule.ParseTimeOfDay(fv.cutoff); err != nil {
		return fmt.Errorf("cutoff: %w", err)
	}
	if cfg.StopTime, err = schedule.ParseTimeOfDay(fv.stopTime); err != nil {
		return fmt.Errorf("stop-time: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDecimalMap(value string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, pair := range splitList(value) {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[strings.TrimSpace(key)] = amount
	}
	return out, nil
}

func formatDecimalMap(values map[string]decimal.Decimal) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+values[k].String())
	}
	return strings.Join(parts, ",")
}

func validate(cfg Config) error {
	if cfg.Mode != ModeDryRun && cfg.Mode != ModePaper && cfg.Mode != ModeLive {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		if cfg.Mode != ModeDryRun || cfg.ClosesSource == ClosesAlpaca {
			return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in %s mode", cfg.Mode)
		}
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		if seen[symbol] {
			return fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true
		volume, ok := cfg.Volumes[symbol]
		if !ok {
			return fmt.Errorf("missing volume for %s", symbol)
		}
		if !volume.IsPositive() {
			return fmt.Errorf("volume for %s must be > 0", symbol)
		}
	}
	if cfg.KickPercent.IsNegative() {
		return fmt.Errorf("kick-percent must be >= 0")
	}
	if cfg.StopLossPercent.IsNegative() {
		return fmt.Errorf("stop-loss-percent must be >= 0")
	}
	if cfg.TakeProfitPercent.IsNegative() {
		return fmt.Errorf("take-profit-percent must be >= 0")
	}
	if cfg.MaxNotional.IsNegative() {
		return fmt.Errorf("max-notional must be >= 0")
	}
	if cfg.DefaultTick.IsNegative() {
		return fmt.Errorf("default-tick must be >= 0")
	}
	for symbol, tick := range cfg.TickSizes {
		if tick.IsNegative() {
			return fmt.Errorf("tick size for %s must be >= 0", symbol)
		}
	}
	if !cfg.Cutoff.Before(cfg.StopTime) {
		return fmt.Errorf("stop-time %s must be after cutoff %s", cfg.StopTime, cfg.Cutoff)
	}
	switch cfg.ClosesSource {
	case ClosesSQLite:
		if cfg.ClosesDBPath == "" {
			return fmt.Errorf("closes-db is required for the sqlite source")
		}
	case ClosesAlpaca:
	default:
		return fmt.Errorf("invalid closes-source: %s", cfg.ClosesSource)
	}
	if cfg.OrdersPerSecond < 0 {
		return fmt.Errorf("orders-per-second must be >= 0")
	}
	return nil
}
