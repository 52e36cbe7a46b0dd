package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"kickday/internal/closes"
	"kickday/internal/logging"
)

// kickday-import loads evening clearing prices from a CSV export into the
// closes store read by the bot.
func main() {
	csvPath := flag.String("csv", "", "CSV file with symbol,price,time rows")
	dbPath := flag.String("closes-db", "closes.db", "sqlite file with evening clearing prices")
	timezone := flag.String("timezone", "Local", "timezone for timestamps without an offset")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Setup(*logLevel, true)

	if *csvPath == "" {
		log.Fatal().Msg("--csv is required")
	}
	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", *timezone).Msg("invalid timezone")
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("open csv")
	}
	defer file.Close()

	prices, err := closes.ParseCSV(file, loc)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("parse csv")
	}

	store, err := closes.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("closes store error")
	}
	defer store.Close()

	if err := store.Save(context.Background(), prices); err != nil {
		log.Fatal().Err(err).Msg("save evening prices")
	}

	sessions := map[string]int{}
	for _, p := range prices {
		sessions[p.Session]++
	}
	for session, count := range sessions {
		log.Info().Str("session", session).Int("prices", count).Msg("imported session")
	}
	log.Info().Int("rows", len(prices)).Str("db", *dbPath).Msg("import complete")
}
