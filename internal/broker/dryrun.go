package broker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"kickday/internal/strategy"
)

// DryRun logs intents instead of sending them.
type DryRun struct {
	runID string
	seq   uint64
}

func NewDryRun(runID string) *DryRun {
	return &DryRun{runID: runID}
}

func (d *DryRun) Submit(ctx context.Context, intent strategy.OrderIntent) (OrderRef, error) {
	seq := atomic.AddUint64(&d.seq, 1)
	clientOrderID := fmt.Sprintf("%s-%d", d.runID, seq)
	log.Info().Str("symbol", intent.Symbol).Str("side", string(intent.Action)).
		Str("limit", intent.LimitPrice.String()).Str("qty", intent.Volume.String()).
		Str("stop", intent.StopPrice.String()).Str("client_order_id", clientOrderID).
		Str("comment", intent.Comment).Msg("dry run order")
	return OrderRef{ClientOrderID: clientOrderID, Status: "dry_run"}, nil
}
