package md

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"kickday/internal/breakers"
	"kickday/internal/strategy"
)

type latestTrader interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// LatestTrades reads the last trade for a symbol on demand.
type LatestTrades struct {
	client  latestTrader
	feed    marketdata.Feed
	breaker *gobreaker.CircuitBreaker
}

func NewClient(apiKey, apiSecret string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
}

func NewLatestTrades(client latestTrader, feed string) *LatestTrades {
	return &LatestTrades{
		client:  client,
		feed:    ParseFeed(feed),
		breaker: breakers.New("alpaca-latest-trade"),
	}
}

func (l *LatestTrades) LastTrade(ctx context.Context, symbol string) (strategy.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return strategy.PriceRecord{}, err
	}
	result, err := l.breaker.Execute(func() (interface{}, error) {
		return l.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: l.feed})
	})
	if err != nil {
		return strategy.PriceRecord{}, fmt.Errorf("latest trade %s: %w", symbol, err)
	}
	trade := result.(*marketdata.Trade)
	if trade == nil {
		return strategy.PriceRecord{}, fmt.Errorf("latest trade %s: empty response", symbol)
	}
	log.Debug().Str("symbol", symbol).Float64("price", trade.Price).Time("at", trade.Timestamp).Msg("latest trade")
	return strategy.PriceRecord{
		Price: decimal.NewFromFloat(trade.Price),
		Time:  trade.Timestamp,
	}, nil
}

func ParseFeed(feed string) marketdata.Feed {
	switch feed {
	case "iex":
		return marketdata.IEX
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
