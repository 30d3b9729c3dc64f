package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bg-scalp-bot/internal/request"

	"go.uber.org/zap"
)

const (
	spotTickersPath = "/api/v2/spot/market/tickers"
	futTickersPath  = "/api/v2/mix/market/tickers?productType=USDT-FUTURES"
	mergeDepthPath  = "/api/v2/mix/market/merge-depth?productType=USDT-FUTURES"
)

// Snapshot is the normalized view of one tick's market data. Every field is
// independently optional because the upstream provider may omit or rename
// them; a snapshot is produced fresh each tick and never retained.
type Snapshot struct {
	SpotPrice    float64
	HasSpot      bool
	FuturesPrice float64
	HasFutures   bool
	BestBid      float64
	HasBid       bool
	BestAsk      float64
	HasAsk       bool
	BookNotional float64
	HasNotional  bool
}

// Feed polls the public market-data provider through the shared request
// client. It treats the provider as best-effort: any miss surfaces as a
// (0, false) pair, never as an error.
type Feed struct {
	req        *request.Client
	baseURL    string
	symbolKeys []string
	priceKeys  []string
	log        *zap.Logger
	now        func() time.Time
}

func NewFeed(req *request.Client, baseURL string, symbolKeys, priceKeys []string, log *zap.Logger) *Feed {
	return &Feed{
		req:        req,
		baseURL:    strings.TrimRight(baseURL, "/"),
		symbolKeys: symbolKeys,
		priceKeys:  priceKeys,
		log:        log,
		now:        time.Now,
	}
}

func (f *Feed) SpotPrice(ctx context.Context, symbol string) (float64, bool) {
	res := f.req.Get(ctx, f.cacheBusted(f.baseURL+spotTickersPath))
	if !res.OK {
		f.logMiss("spot tickers", res)
		return 0, false
	}
	return PriceFromTickers(res.Data, symbol, f.symbolKeys, f.priceKeys)
}

func (f *Feed) FuturesPrice(ctx context.Context, symbol string) (float64, bool) {
	res := f.req.Get(ctx, f.cacheBusted(f.baseURL+futTickersPath))
	if !res.OK {
		f.logMiss("futures tickers", res)
		return 0, false
	}
	return PriceFromTickers(res.Data, symbol, f.symbolKeys, f.priceKeys)
}

// Book fetches the merged futures order book limited to topN levels per side.
func (f *Feed) Book(ctx context.Context, symbol string, topN int) (Book, bool) {
	url := fmt.Sprintf("%s%s&symbol=%s&precision=scale0&limit=%d", f.baseURL, mergeDepthPath, symbol, topN)
	res := f.req.Get(ctx, f.cacheBusted(url))
	if !res.OK {
		f.logMiss("depth", res)
		return Book{}, false
	}
	return ParseBook(res.Data), true
}

// DepthSnapshot folds the book into the fields the risk engine consumes:
// best bid/ask and total notional over the top topN levels of both sides.
func (f *Feed) DepthSnapshot(ctx context.Context, symbol string, topN int, snap *Snapshot) {
	book, ok := f.Book(ctx, symbol, topN)
	if !ok {
		return
	}
	if bid, ok := book.BestBid(); ok {
		snap.BestBid, snap.HasBid = bid, true
	}
	if ask, ok := book.BestAsk(); ok {
		snap.BestAsk, snap.HasAsk = ask, true
	}
	snap.BookNotional = NotionalAtDepth(book.Bids, topN) + NotionalAtDepth(book.Asks, topN)
	snap.HasNotional = true
}

// cacheBusted appends a millisecond timestamp so intermediaries never serve a
// stale ticker list.
func (f *Feed) cacheBusted(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_=" + strconv.FormatInt(f.now().UnixMilli(), 10)
}

func (f *Feed) logMiss(what string, res request.Result) {
	if f.log == nil {
		return
	}
	f.log.Debug("market data unavailable",
		zap.String("endpoint", what),
		zap.Int("status", res.Status),
		zap.String("error", res.Err),
	)
}
