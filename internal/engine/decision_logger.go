package engine

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kickday/internal/strategy"
)

// Decision is one journaled outcome: a single instrument in a firing, or the
// whole firing when the close snapshot was unavailable.
type Decision struct {
	TriggerAt     time.Time
	Symbol        string
	PrevClose     decimal.Decimal
	LastTrade     decimal.Decimal
	KickPercent   decimal.Decimal
	Signal        strategy.Action
	Reason        string
	Result        string
	LimitPrice    decimal.Decimal
	StopPrice     decimal.Decimal
	Volume        decimal.Decimal
	OrderID       string
	ClientOrderID string
	Error         string
}

// DecisionLogger appends decisions as NDJSON.
type DecisionLogger struct {
	runID  string
	file   *os.File
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewDecisionLogger(path string, runID string) (*DecisionLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	d := NewDecisionWriter(file, runID)
	d.file = file
	return d, nil
}

func NewDecisionWriter(w io.Writer, runID string) *DecisionLogger {
	return &DecisionLogger{
		runID:  runID,
		logger: zerolog.New(w).With().Timestamp().Str("run_id", runID).Logger(),
	}
}

func (d *DecisionLogger) RunID() string {
	return d.runID
}

func (d *DecisionLogger) Append(decision Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev := d.logger.Log().
		Time("trigger_at", decision.TriggerAt).
		Str("result", decision.Result)
	if decision.Symbol != "" {
		ev = ev.Str("symbol", decision.Symbol)
	}
	if decision.Signal != "" {
		ev = ev.Str("signal", string(decision.Signal)).Str("reason", decision.Reason)
	}
	ev = decimalField(ev, "prev_close", decision.PrevClose)
	// A signal means a trade was read, and a zero last trade is what made it a hold.
	if decision.Signal != "" {
		ev = ev.Str("last_trade", decision.LastTrade.String())
	} else {
		ev = decimalField(ev, "last_trade", decision.LastTrade)
	}
	ev = decimalField(ev, "kick_percent", decision.KickPercent)
	ev = decimalField(ev, "limit_price", decision.LimitPrice)
	ev = decimalField(ev, "stop_price", decision.StopPrice)
	ev = decimalField(ev, "volume", decision.Volume)
	if decision.OrderID != "" {
		ev = ev.Str("order_id", decision.OrderID)
	}
	if decision.ClientOrderID != "" {
		ev = ev.Str("client_order_id", decision.ClientOrderID)
	}
	if decision.Error != "" {
		ev = ev.Str("error", decision.Error)
	}
	ev.Send()
}

func decimalField(ev *zerolog.Event, key string, value decimal.Decimal) *zerolog.Event {
	if value.IsZero() {
		return ev
	}
	return ev.Str(key, value.String())
}

func (d *DecisionLogger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}
