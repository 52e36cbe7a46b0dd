package broker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"kickday/internal/breakers"
	"kickday/internal/strategy"
)

type OrderRequest struct {
	Symbol        string
	Qty           decimal.Decimal
	Side          alpaca.Side
	Type          alpaca.OrderType
	TimeInForce   alpaca.TimeInForce
	ClientOrderID string
	LimitPrice    *decimal.Decimal
	StopLoss      *decimal.Decimal
	// Comment tags the order in logs; Alpaca has no free-text order field.
	Comment       string
}

type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

type orderPlacer interface {
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

type Options struct {
	RunID string
	// AttachStop sends the stop price as a one-triggers-other stop leg.
	AttachStop bool
	// OrdersPerSecond throttles submissions; zero disables throttling.
	OrdersPerSecond float64
}

type Client struct {
	client     orderPlacer
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	runID      string
	attachStop bool
	seq        uint64
}

func New(apiKey, apiSecret, baseURL string, opts Options) *Client {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return newClient(client, opts)
}

func newClient(placer orderPlacer, opts Options) *Client {
	c := &Client{
		client:     placer,
		breaker:    breakers.New("alpaca-orders"),
		runID:      opts.RunID,
		attachStop: opts.AttachStop,
	}
	if opts.OrdersPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.OrdersPerSecond), 1)
	}
	return c
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderRef, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return OrderRef{}, fmt.Errorf("order throttle: %w", err)
		}
	}

	qty := req.Qty
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		ClientOrderID: req.ClientOrderID,
		LimitPrice:    req.LimitPrice,
	}
	if req.StopLoss != nil {
		orderReq.OrderClass = alpaca.OTO
		orderReq.StopLoss = &alpaca.StopLoss{StopPrice: req.StopLoss}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.PlaceOrder(orderReq)
	})
	if err != nil {
		log.Error().Err(err).Str("side", string(req.Side)).Str("symbol", req.Symbol).Str("qty", req.Qty.String()).
			Str("comment", req.Comment).Msg("place order failed")
		return OrderRef{}, err
	}
	order := result.(*alpaca.Order)

	log.Info().Str("order_id", order.ID).Str("side", string(req.Side)).Str("symbol", req.Symbol).
		Str("qty", req.Qty.String()).Str("status", string(order.Status)).Str("client_order_id", req.ClientOrderID).
		Str("comment", req.Comment).Msg("place order success")
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

// Submit places a day limit order for the intent.
func (c *Client) Submit(ctx context.Context, intent strategy.OrderIntent) (OrderRef, error) {
	req, err := c.buildOrder(intent)
	if err != nil {
		return OrderRef{}, err
	}
	return c.PlaceOrder(ctx, req)
}

func (c *Client) buildOrder(intent strategy.OrderIntent) (OrderRequest, error) {
	side, err := parseSide(intent.Action)
	if err != nil {
		return OrderRequest{}, err
	}
	limit := intent.LimitPrice
	req := OrderRequest{
		Symbol:        intent.Symbol,
		Qty:           intent.Volume,
		Side:          side,
		Type:          alpaca.Limit,
		TimeInForce:   alpaca.Day,
		ClientOrderID: c.nextClientOrderID(),
		LimitPrice:    &limit,
		Comment:       intent.Comment,
	}
	if c.attachStop && intent.StopPrice.IsPositive() {
		if stopProtects(intent) {
			stop := intent.StopPrice
			req.StopLoss = &stop
		} else {
			log.Warn().Str("symbol", intent.Symbol).Str("side", string(intent.Action)).
				Str("limit", intent.LimitPrice.String()).Str("stop", intent.StopPrice.String()).
				Msg("stop price not below a buy or above a sell entry, sending without stop leg")
		}
	}
	return req, nil
}

// stopProtects reports whether the stop sits strictly on the losing side of
// the entry, which the OTO stop leg requires.
func stopProtects(intent strategy.OrderIntent) bool {
	if intent.Action == strategy.Buy {
		return intent.StopPrice.LessThan(intent.LimitPrice)
	}
	return intent.StopPrice.GreaterThan(intent.LimitPrice)
}

func (c *Client) nextClientOrderID() string {
	seq := atomic.AddUint64(&c.seq, 1)
	return fmt.Sprintf("%s-%d", c.runID, seq)
}

func parseSide(action strategy.Action) (alpaca.Side, error) {
	switch action {
	case strategy.Buy:
		return alpaca.Buy, nil
	case strategy.Sell:
		return alpaca.Sell, nil
	default:
		return "", fmt.Errorf("unsupported order action: %s", action)
	}
}
