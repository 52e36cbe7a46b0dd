package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// EnterComment tags every order this rule places.
const EnterComment = "KickDay, enter"

// PriceRecord is a price and the time it was observed at.
type PriceRecord struct {
	Price decimal.Decimal
	Time  time.Time
}

// Decision is the gap evaluation result for one instrument. ReferencePrice
// is the previous close the gap was measured against.
type Decision struct {
	Action         Action
	ReferencePrice decimal.Decimal
	Reason         string
}

func (d Decision) Signal() bool {
	return d.Action == Buy || d.Action == Sell
}

type OrderIntent struct {
	Symbol     string
	Action     Action
	LimitPrice decimal.Decimal
	Volume     decimal.Decimal
	StopPrice  decimal.Decimal
	Comment    string
}

// TickRounder aligns a price to an instrument's minimum price increment.
type TickRounder interface {
	Round(symbol string, price decimal.Decimal) decimal.Decimal
}

type MarketSnapshot struct {
	Symbol    string
	PrevClose decimal.Decimal
	LastTrade decimal.Decimal
}

type Strategy interface {
	Decide(snapshot MarketSnapshot) (Decision, *OrderIntent)
}
