package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"kickday/internal/broker"
	"kickday/internal/risk"
	"kickday/internal/schedule"
	"kickday/internal/state"
	"kickday/internal/strategy"
)

// closesDaysBack selects the session immediately before today.
const closesDaysBack = 1

// ErrStopTimeReached ends Run once the session's stop deadline has passed.
var ErrStopTimeReached = errors.New("stop time reached")

type ClosesSource interface {
	PreviousSessionCloses(ctx context.Context, daysBack int) (map[string]strategy.PriceRecord, error)
}

type PriceSource interface {
	LastTrade(ctx context.Context, symbol string) (strategy.PriceRecord, error)
}

type OrderSink interface {
	Submit(ctx context.Context, intent strategy.OrderIntent) (broker.OrderRef, error)
}

type Recorder interface {
	ObserveFiring(duration time.Duration)
	ObserveSignal(symbol, action string)
	ObserveOrder(symbol, result string)
	ObserveDataUnavailable(scope string)
	SetNextTrigger(t time.Time)
}

type Deps struct {
	Strategy       strategy.Strategy
	Scheduler      schedule.BusinessDayScheduler
	Clock          schedule.Clock
	Closes         ClosesSource
	Prices         PriceSource
	Sink           OrderSink
	State          *state.Store
	Decisions      *DecisionLogger
	Recorder       Recorder
	CheckpointPath string
}

// Engine is the trigger loop: it sleeps until the scheduled trigger, runs one
// firing over every tracked symbol, then re-arms for the next business day.
type Engine struct {
	symbols        []string
	kickPercent    decimal.Decimal
	strategy       strategy.Strategy
	scheduler      schedule.BusinessDayScheduler
	clock          schedule.Clock
	closes         ClosesSource
	prices         PriceSource
	sink           OrderSink
	state          *state.Store
	decisions      *DecisionLogger
	recorder       Recorder
	checkpointPath string
	stopAt         time.Time
}

func New(symbols []string, kickPercent decimal.Decimal, deps Deps) *Engine {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	store := deps.State
	if store == nil {
		store = state.NewStore()
	}
	return &Engine{
		symbols:        append([]string(nil), symbols...),
		kickPercent:    kickPercent,
		strategy:       deps.Strategy,
		scheduler:      deps.Scheduler,
		clock:          deps.Clock,
		closes:         deps.Closes,
		prices:         deps.Prices,
		sink:           deps.Sink,
		state:          store,
		decisions:      deps.Decisions,
		recorder:       recorder,
		checkpointPath: deps.CheckpointPath,
	}
}

// Arm sets the first trigger from today's date. A checkpointed trigger that
// is later wins, so a restart does not fire the same day twice.
func (e *Engine) Arm() time.Time {
	initial := e.scheduler.InitialTrigger(e.clock.Now())
	e.state.SetNextTrigger(initial)
	next := e.state.NextTrigger()
	e.recorder.SetNextTrigger(next)
	return next
}

// SetStopAt sets the deadline after which no firing starts. Zero disables.
func (e *Engine) SetStopAt(t time.Time) {
	e.stopAt = t
}

// StopReached reports whether the stop deadline, if any, has passed.
func (e *Engine) StopReached() bool {
	return !e.stopAt.IsZero() && !e.clock.Now().Before(e.stopAt)
}

func (e *Engine) NextTrigger() time.Time {
	return e.state.NextTrigger()
}

// Run blocks until ctx is done. Each firing completes before the next
// wake-up is requested.
func (e *Engine) Run(ctx context.Context) error {
	if e.state.NextTrigger().IsZero() {
		e.Arm()
	}
	for {
		at := e.state.NextTrigger()
		log.Info().Time("next_trigger", at).Msg("waiting for cutoff")
		if err := e.clock.WaitUntil(ctx, at); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.StopReached() {
			log.Info().Time("stop_at", e.stopAt).Time("trigger_at", at).Msg("stop time passed, not firing")
			return ErrStopTimeReached
		}
		e.Fire(ctx, at)
	}
}

// Fire evaluates every tracked symbol for the trigger at and re-arms. The
// close snapshot is read once per firing.
func (e *Engine) Fire(ctx context.Context, at time.Time) time.Time {
	started := e.clock.Now()
	firing := state.Firing{TriggerAt: at, FiredAt: started}

	snapshot, err := e.closes.PreviousSessionCloses(ctx, closesDaysBack)
	switch {
	case err != nil:
		log.Error().Err(err).Time("trigger_at", at).Msg("could not read previous session closes")
		e.closesUnavailable(at, err.Error())
	case len(snapshot) == 0:
		log.Error().Time("trigger_at", at).Msg("previous session closes contain no instruments")
		e.closesUnavailable(at, "empty snapshot")
	default:
		for _, symbol := range e.symbols {
			e.evaluate(ctx, at, symbol, snapshot, &firing)
		}
	}

	next := e.scheduler.NextAfter(at, e.clock.Now())
	e.state.SetNextTrigger(next)
	e.state.RecordFiring(firing)
	e.recorder.ObserveFiring(e.clock.Now().Sub(started))
	e.recorder.SetNextTrigger(next)
	if e.checkpointPath != "" {
		if err := e.state.Save(e.checkpointPath); err != nil {
			log.Error().Err(err).Str("path", e.checkpointPath).Msg("failed to save checkpoint")
		}
	}

	log.Info().Time("trigger_at", at).Int("signals", firing.Signals).Int("orders", firing.Orders).
		Time("next_trigger", next).Msg("next attempt scheduled")
	return next
}

func (e *Engine) closesUnavailable(at time.Time, reason string) {
	e.recorder.ObserveDataUnavailable("firing")
	e.journal(Decision{TriggerAt: at, Result: "closes_unavailable", Error: reason})
}

func (e *Engine) evaluate(ctx context.Context, at time.Time, symbol string, snapshot map[string]strategy.PriceRecord, firing *state.Firing) {
	decision := Decision{TriggerAt: at, Symbol: symbol, KickPercent: e.kickPercent}

	prev, ok := snapshot[symbol]
	if !ok {
		log.Error().Str("symbol", symbol).Msg("no previous session close for instrument")
		e.recorder.ObserveDataUnavailable("instrument")
		decision.Result = "missing_close"
		e.journal(decision)
		return
	}
	decision.PrevClose = prev.Price
	log.Info().Str("symbol", symbol).Str("prev_close", prev.Price.String()).Time("prev_close_at", prev.Time).Msg("previous session close")

	last, err := e.prices.LastTrade(ctx, symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("could not read last trade")
		e.recorder.ObserveDataUnavailable("last_trade")
		decision.Result = "price_unavailable"
		decision.Error = err.Error()
		e.journal(decision)
		return
	}
	decision.LastTrade = last.Price

	gap, intent := e.strategy.Decide(strategy.MarketSnapshot{
		Symbol:    symbol,
		PrevClose: prev.Price,
		LastTrade: last.Price,
	})
	decision.Signal = gap.Action
	decision.Reason = gap.Reason
	e.recorder.ObserveSignal(symbol, string(gap.Action))

	if intent == nil {
		if gap.Reason == "no_trade_price" {
			log.Info().Str("symbol", symbol).Msg("last trade price is zero, ignoring entry signal")
		} else {
			log.Debug().Str("symbol", symbol).Str("last_trade", last.Price.String()).Str("reason", gap.Reason).Msg("no kick")
		}
		decision.Result = "hold"
		e.journal(decision)
		return
	}

	firing.Signals++
	decision.LimitPrice = intent.LimitPrice
	decision.StopPrice = intent.StopPrice
	decision.Volume = intent.Volume
	log.Info().Str("symbol", symbol).Str("side", string(intent.Action)).Str("limit", intent.LimitPrice.String()).
		Str("qty", intent.Volume.String()).Str("stop", intent.StopPrice.String()).
		Str("prev_close", prev.Price.String()).Msg("kick day entry")

	ref, err := e.sink.Submit(ctx, *intent)
	if err != nil {
		decision.Result = "order_failed"
		if errors.Is(err, risk.ErrRejected) {
			decision.Result = "risk_rejected"
		} else {
			log.Error().Err(err).Str("symbol", symbol).Msg("order submission failed")
		}
		e.recorder.ObserveOrder(symbol, decision.Result)
		decision.Error = err.Error()
		e.journal(decision)
		return
	}

	firing.Orders++
	e.recorder.ObserveOrder(symbol, "order_submitted")
	decision.Result = "order_submitted"
	decision.OrderID = ref.ID
	decision.ClientOrderID = ref.ClientOrderID
	e.journal(decision)
}

func (e *Engine) journal(decision Decision) {
	if e.decisions != nil {
		e.decisions.Append(decision)
	}
}

// ReportStartup logs the strategy parameters and the previous evening prices.
func (e *Engine) ReportStartup(ctx context.Context, stopLossPercent decimal.Decimal) {
	log.Info().Time("next_trigger", e.state.NextTrigger()).Str("kick_percent", e.kickPercent.String()).
		Str("stop_loss_percent", stopLossPercent.String()).Strs("symbols", e.symbols).Msg("strategy starting")

	snapshot, err := e.closes.PreviousSessionCloses(ctx, closesDaysBack)
	if err != nil {
		log.Warn().Err(err).Msg("previous evening prices unavailable at startup")
		return
	}
	for _, symbol := range e.symbols {
		record, ok := snapshot[symbol]
		if !ok {
			log.Warn().Str("symbol", symbol).Msg("no previous evening price")
			continue
		}
		log.Info().Str("symbol", symbol).Str("price", record.Price.String()).Time("at", record.Time).Msg("previous evening price")
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveFiring(time.Duration) {}
func (nopRecorder) ObserveSignal(string, string) {}
func (nopRecorder) ObserveOrder(string, string) {}
func (nopRecorder) ObserveDataUnavailable(string) {}
func (nopRecorder) SetNextTrigger(time.Time) {}
