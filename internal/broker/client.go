package broker

import (
	"context"
	"strings"

	"bg-scalp-bot/internal/request"

	"go.uber.org/zap"
)

// ProductType is the futures product line orders are routed to.
const ProductType = "USDT-FUTURES"

const (
	spotOrderPath    = "/spot/market-order"
	futuresOrderPath = "/mix/market-order"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// SpotOrder is a market order on the spot leg. Size is a quote-currency
// notional when SizeType is USDT, a coin quantity when it is COIN.
type SpotOrder struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	SizeType string  `json:"sizeType"`
	Size     float64 `json:"size"`
}

// FuturesOrder is a leveraged market order used for the hedge leg.
type FuturesOrder struct {
	ProductType string   `json:"productType"`
	Symbol      string   `json:"symbol"`
	Side        string   `json:"side"`
	SizeType    string   `json:"sizeType"`
	Size        float64  `json:"size"`
	Leverage    int      `json:"leverage"`
	MarginMode  string   `json:"marginMode"`
	TPPct       *float64 `json:"tpPct,omitempty"`
	SLPct       *float64 `json:"slPct,omitempty"`
}

// Client issues order requests to the execution service. It never talks to an
// exchange directly; the service's accept/reject is the only signal callers
// act on, carried by the Result's OK flag.
type Client struct {
	req     *request.Client
	baseURL string
	log     *zap.Logger
}

func New(req *request.Client, baseURL string, log *zap.Logger) *Client {
	return &Client{
		req:     req,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

func (c *Client) PlaceSpot(ctx context.Context, order SpotOrder) request.Result {
	res := c.req.PostJSON(ctx, c.baseURL+spotOrderPath, order)
	c.logOutcome("spot order", order.Side, res)
	return res
}

func (c *Client) PlaceFutures(ctx context.Context, order FuturesOrder) request.Result {
	if order.ProductType == "" {
		order.ProductType = ProductType
	}
	res := c.req.PostJSON(ctx, c.baseURL+futuresOrderPath, order)
	c.logOutcome("futures order", order.Side, res)
	return res
}

func (c *Client) logOutcome(kind, side string, res request.Result) {
	if c.log == nil {
		return
	}
	if res.OK {
		c.log.Info(kind+" accepted", zap.String("side", side), zap.Int("status", res.Status))
		return
	}
	c.log.Warn(kind+" rejected", zap.String("side", side), zap.Int("status", res.Status), zap.String("error", res.Err))
}
