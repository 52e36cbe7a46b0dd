package broker

import (
	"github.com/shopspring/decimal"
)

// TickTable rounds prices to each symbol's minimum price increment.
type TickTable struct {
	sizes       map[string]decimal.Decimal
	defaultSize decimal.Decimal
}

func NewTickTable(sizes map[string]decimal.Decimal, defaultSize decimal.Decimal) TickTable {
	copied := make(map[string]decimal.Decimal, len(sizes))
	for symbol, size := range sizes {
		copied[symbol] = size
	}
	return TickTable{sizes: copied, defaultSize: defaultSize}
}

func (t TickTable) TickSize(symbol string) decimal.Decimal {
	if size, ok := t.sizes[symbol]; ok {
		return size
	}
	return t.defaultSize
}

// Round returns price aligned to the nearest tick. A non-positive tick size
// leaves the price untouched.
func (t TickTable) Round(symbol string, price decimal.Decimal) decimal.Decimal {
	tick := t.TickSize(symbol)
	if !tick.IsPositive() {
		return price
	}
	return price.Div(tick).Round(0).Mul(tick)
}
