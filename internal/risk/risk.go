package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"kickday/internal/broker"
	"kickday/internal/strategy"
)

// ErrRejected wraps every reason the gate refuses an intent.
var ErrRejected = errors.New("risk rejected")

type Limits struct {
	// MaxNotional caps limit price times volume per order. Zero disables.
	MaxNotional decimal.Decimal
	KillSwitch  bool
}

type Gate struct {
	Limits Limits
}

// Evaluate checks an intent before it is sent. The stop price is not
// checked: whole-unit rounding may move it past the entry, and the broker
// leaves such a stop off the order.
func (g Gate) Evaluate(intent strategy.OrderIntent) error {
	reject := func(reason string) error {
		log.Info().Str("symbol", intent.Symbol).Str("side", string(intent.Action)).Str("reason", reason).Msg("risk rejected")
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	if g.Limits.KillSwitch {
		return reject("kill_switch_enabled")
	}
	if intent.Action != strategy.Buy && intent.Action != strategy.Sell {
		return reject("no_side")
	}
	if !intent.Volume.IsPositive() {
		return reject("invalid_volume")
	}
	if !intent.LimitPrice.IsPositive() {
		return reject("invalid_limit_price")
	}
	notional := intent.LimitPrice.Mul(intent.Volume)
	if g.Limits.MaxNotional.IsPositive() && notional.GreaterThan(g.Limits.MaxNotional) {
		return reject("max_notional_exceeded")
	}

	log.Debug().Str("symbol", intent.Symbol).Str("notional", notional.String()).Msg("risk approved")
	return nil
}

type sink interface {
	Submit(ctx context.Context, intent strategy.OrderIntent) (broker.OrderRef, error)
}

// GatedSink runs every intent through the gate before handing it on.
type GatedSink struct {
	gate Gate
	next sink
}

func NewGatedSink(gate Gate, next sink) *GatedSink {
	return &GatedSink{gate: gate, next: next}
}

func (s *GatedSink) Submit(ctx context.Context, intent strategy.OrderIntent) (broker.OrderRef, error) {
	if err := s.gate.Evaluate(intent); err != nil {
		return broker.OrderRef{}, err
	}
	return s.next.Submit(ctx, intent)
}
