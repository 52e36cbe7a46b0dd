package strategy

import (
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Evaluate compares the last trade against the previous close. A zero last
// trade means no trade has been observed yet.
func Evaluate(lastTrade, prevClose, kickPercent decimal.Decimal) Decision {
	if lastTrade.IsZero() {
		return Decision{Action: Hold, ReferencePrice: prevClose, Reason: "no_trade_price"}
	}

	kick := kickPercent.Div(hundred)
	deviation := lastTrade.Sub(prevClose)
	if deviation.Abs().LessThanOrEqual(prevClose.Mul(kick)) {
		return Decision{Action: Hold, ReferencePrice: prevClose, Reason: "within_threshold"}
	}

	// The three branches are kept separate; a price that slips past the
	// threshold test but matches neither bound stays a hold.
	if lastTrade.GreaterThanOrEqual(prevClose.Mul(one.Add(kick))) {
		return Decision{Action: Buy, ReferencePrice: prevClose, Reason: "gap_up"}
	}
	if lastTrade.LessThanOrEqual(prevClose.Mul(one.Sub(kick))) {
		return Decision{Action: Sell, ReferencePrice: prevClose, Reason: "gap_down"}
	}
	return Decision{Action: Hold, ReferencePrice: prevClose, Reason: "unclassified"}
}

// StopPrice derives the stop-loss level for an entry at lastTrade: rounded
// to a whole currency unit, then aligned to the instrument's tick.
func StopPrice(symbol string, action Action, lastTrade, stopLossPercent decimal.Decimal, rounder TickRounder) decimal.Decimal {
	offset := stopLossPercent.Div(hundred)
	var raw decimal.Decimal
	if action == Buy {
		raw = lastTrade.Mul(one.Sub(offset))
	} else {
		raw = lastTrade.Mul(one.Add(offset))
	}
	return rounder.Round(symbol, raw.RoundBank(0))
}

// BuildIntent turns a Buy or Sell decision into a limit order at the last
// trade price.
func BuildIntent(symbol string, decision Decision, lastTrade, volume, stopLossPercent decimal.Decimal, rounder TickRounder) OrderIntent {
	return OrderIntent{
		Symbol:     symbol,
		Action:     decision.Action,
		LimitPrice: lastTrade,
		Volume:     volume,
		StopPrice:  StopPrice(symbol, decision.Action, lastTrade, stopLossPercent, rounder),
		Comment:    EnterComment,
	}
}

// KickDay is the gap rule bound to its configuration.
type KickDay struct {
	KickPercent     decimal.Decimal
	StopLossPercent decimal.Decimal
	Volumes         map[string]decimal.Decimal
	Rounder         TickRounder
}

func (k KickDay) Decide(snapshot MarketSnapshot) (Decision, *OrderIntent) {
	decision := Evaluate(snapshot.LastTrade, snapshot.PrevClose, k.KickPercent)
	if !decision.Signal() {
		return decision, nil
	}
	intent := BuildIntent(snapshot.Symbol, decision, snapshot.LastTrade, k.Volumes[snapshot.Symbol], k.StopLossPercent, k.Rounder)
	return decision, &intent
}
