package closes

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"kickday/internal/strategy"
)

// lookbackDays covers long weekends and exchange holidays.
const lookbackDays = 14

// Daily bars are stamped at midnight exchange time, so sessions are dated in
// New York regardless of the clock's location.
var exchangeLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type barsGetter interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaSource derives previous session closes from daily bars.
type AlpacaSource struct {
	client  barsGetter
	symbols []string
	feed    marketdata.Feed
	now     func() time.Time
}

func NewAlpacaSource(client barsGetter, symbols []string, feed marketdata.Feed, now func() time.Time) *AlpacaSource {
	if now == nil {
		now = time.Now
	}
	return &AlpacaSource{client: client, symbols: symbols, feed: feed, now: now}
}

func (a *AlpacaSource) PreviousSessionCloses(ctx context.Context, daysBack int) (map[string]strategy.PriceRecord, error) {
	if daysBack < 1 {
		return nil, fmt.Errorf("days back must be >= 1, got %d", daysBack)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := a.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	bars, err := a.client.GetMultiBars(a.symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     startOfToday.AddDate(0, 0, -(lookbackDays + daysBack)),
		End:       now,
		Feed:      a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("daily bars: %w", err)
	}

	today := SessionKey(now.In(exchangeLocation))
	result := make(map[string]strategy.PriceRecord, len(bars))
	for symbol, series := range bars {
		past := 0
		for i := len(series) - 1; i >= 0; i-- {
			bar := series[i]
			if SessionKey(bar.Timestamp.In(exchangeLocation)) >= today {
				continue
			}
			past++
			if past == daysBack {
				result[symbol] = strategy.PriceRecord{
					Price: decimal.NewFromFloat(bar.Close),
					Time:  bar.Timestamp,
				}
				break
			}
		}
	}
	return result, nil
}
