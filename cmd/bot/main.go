package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kickday/internal/broker"
	"kickday/internal/closes"
	"kickday/internal/config"
	"kickday/internal/engine"
	"kickday/internal/logging"
	"kickday/internal/md"
	"kickday/internal/metrics"
	"kickday/internal/risk"
	"kickday/internal/schedule"
	"kickday/internal/state"
	"kickday/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("config error")
	}
	logging.Setup(cfg.LogLevel, cfg.PrettyLogs)

	runID := generateRunID()
	decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath, runID)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DecisionsPath).Msg("decision logger error")
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close decision logger")
		}
	}()

	store := state.NewStore()
	if err := store.Load(cfg.CheckpointPath); err == nil {
		log.Info().Str("path", cfg.CheckpointPath).Time("next_trigger", store.NextTrigger()).Msg("loaded checkpoint")
	}

	clock := schedule.NewRealClock(cfg.Location)

	var source engine.ClosesSource
	switch cfg.ClosesSource {
	case config.ClosesAlpaca:
		source = closes.NewAlpacaSource(md.NewClient(cfg.APIKey, cfg.APISecret), cfg.Symbols, md.ParseFeed(cfg.Feed), clock.Now)
	default:
		db, err := closes.Open(cfg.ClosesDBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ClosesDBPath).Msg("closes store error")
		}
		defer db.Close()
		source = db.WithClock(clock.Now)
	}

	var sink engine.OrderSink
	if cfg.Mode == config.ModeDryRun {
		sink = broker.NewDryRun(runID)
	} else {
		sink = broker.New(cfg.APIKey, cfg.APISecret, cfg.BaseURL(), broker.Options{
			RunID:           runID,
			AttachStop:      cfg.AttachStop,
			OrdersPerSecond: cfg.OrdersPerSecond,
		})
	}

	sink = risk.NewGatedSink(risk.Gate{Limits: risk.Limits{
		MaxNotional: cfg.MaxNotional,
		KillSwitch:  cfg.KillSwitch,
	}}, sink)

	var prices engine.PriceSource
	if cfg.APIKey != "" {
		prices = md.NewLatestTrades(md.NewClient(cfg.APIKey, cfg.APISecret), cfg.Feed)
	} else {
		prices = unavailablePrices{}
	}

	registry := metrics.NewRegistry()
	engineImpl := engine.New(cfg.Symbols, cfg.KickPercent, engine.Deps{
		Strategy: strategy.KickDay{
			KickPercent:     cfg.KickPercent,
			StopLossPercent: cfg.StopLossPercent,
			Volumes:         cfg.Volumes,
			Rounder:         broker.NewTickTable(cfg.TickSizes, cfg.DefaultTick),
		},
		Scheduler:      schedule.NewBusinessDayScheduler(cfg.Cutoff),
		Clock:          clock,
		Closes:         source,
		Prices:         prices,
		Sink:           sink,
		State:          store,
		Decisions:      decisions,
		Recorder:       registry,
		CheckpointPath: cfg.CheckpointPath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	next := engineImpl.Arm()
	engineImpl.ReportStartup(ctx, cfg.StopLossPercent)

	if !cfg.KeepRunning {
		deadline := schedule.StopAt(next, cfg.StopTime)
		engineImpl.SetStopAt(deadline)
		if engineImpl.StopReached() {
			log.Warn().Time("stop_at", deadline).Time("next_trigger", next).Msg("stop time already passed, exiting")
			if err := store.Save(cfg.CheckpointPath); err != nil {
				log.Error().Err(err).Msg("failed to save checkpoint")
			}
			return
		}
		log.Info().Time("stop_at", deadline).Msg("strategy will stop at end of session")
		go func() {
			if err := clock.WaitUntil(ctx, deadline); err == nil {
				log.Info().Time("stop_at", deadline).Msg("stop time reached")
				cancel()
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.NewRouter(registry, store)); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	log.Info().Str("mode", string(cfg.Mode)).Strs("symbols", cfg.Symbols).Str("feed", cfg.Feed).
		Str("closes", cfg.ClosesSource).Str("timeframe", cfg.Timeframe.String()).
		Str("take_profit_percent", cfg.TakeProfitPercent.String()).Str("run_id", runID).Msg("starting bot")
	if err := engineImpl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, engine.ErrStopTimeReached) {
		log.Error().Err(err).Msg("trigger loop stopped")
	}

	if err := store.Save(cfg.CheckpointPath); err != nil {
		log.Error().Err(err).Msg("failed to save checkpoint")
	}

	log.Info().Msg("bot shutdown complete")
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return timestamp + "-" + uuid.NewString()[:8]
}

// unavailablePrices stands in when dry-run has no market data credentials;
// every instrument is skipped for the firing.
type unavailablePrices struct{}

func (unavailablePrices) LastTrade(ctx context.Context, symbol string) (strategy.PriceRecord, error) {
	return strategy.PriceRecord{}, errors.New("no market data credentials configured")
}
