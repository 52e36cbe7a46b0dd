package md

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrader struct {
	trades map[string]*marketdata.Trade
	feeds  []marketdata.Feed
	err    error
}

func (f *fakeTrader) GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error) {
	f.feeds = append(f.feeds, req.Feed)
	if f.err != nil {
		return nil, f.err
	}
	return f.trades[symbol], nil
}

func TestLastTradeConvertsPrice(t *testing.T) {
	at := time.Date(2024, time.June, 3, 18, 34, 59, 0, time.UTC)
	trader := &fakeTrader{trades: map[string]*marketdata.Trade{
		"AAPL": {Price: 103.25, Timestamp: at},
	}}
	source := NewLatestTrades(trader, "sip")

	record, err := source.LastTrade(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, record.Price.Equal(decimal.RequireFromString("103.25")))
	assert.Equal(t, at, record.Time)
	assert.Equal(t, []marketdata.Feed{marketdata.SIP}, trader.feeds)
}

func TestLastTradeMissingSymbol(t *testing.T) {
	source := NewLatestTrades(&fakeTrader{trades: map[string]*marketdata.Trade{}}, "iex")
	_, err := source.LastTrade(context.Background(), "MSFT")
	assert.Error(t, err)
}

func TestLastTradeWrapsError(t *testing.T) {
	cause := errors.New("unavailable")
	source := NewLatestTrades(&fakeTrader{err: cause}, "iex")
	_, err := source.LastTrade(context.Background(), "MSFT")
	assert.ErrorIs(t, err, cause)
}

func TestParseFeedDefaultsToIEX(t *testing.T) {
	assert.Equal(t, marketdata.IEX, ParseFeed("test"))
	assert.Equal(t, marketdata.SIP, ParseFeed("sip"))
}
