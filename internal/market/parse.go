package market

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Upstream field names are not a stable contract; both lists are ordered by
// how often the provider has been observed to use them and can be overridden
// from configuration.
var (
	DefaultSymbolKeys = []string{"symbol", "instId"}
	DefaultPriceKeys  = []string{"lastPr", "last", "close", "lastPrice", "closePrice"}
)

// PriceFromTickers walks a ticker list payload and returns the last price for
// symbol. The payload is the decoded response body, whose records sit under a
// "data" wrapper. A missing symbol or an unparseable price is a normal miss,
// not an error.
func PriceFromTickers(payload any, symbol string, symbolKeys, priceKeys []string) (float64, bool) {
	if len(symbolKeys) == 0 {
		symbolKeys = DefaultSymbolKeys
	}
	if len(priceKeys) == 0 {
		priceKeys = DefaultPriceKeys
	}
	records, ok := toSlice(unwrapData(payload))
	if !ok {
		return 0, false
	}
	want := strings.ToUpper(strings.TrimSpace(symbol))
	for _, rec := range records {
		m, ok := toMap(rec)
		if !ok {
			continue
		}
		name := stringFromMap(m, symbolKeys...)
		if name == "" || !strings.EqualFold(name, want) {
			continue
		}
		return finiteFromMap(m, priceKeys...)
	}
	return 0, false
}

// Book is a parsed depth payload: ordered [price, size] levels, best first.
type Book struct {
	Bids [][2]float64
	Asks [][2]float64
}

// ParseBook extracts bid/ask levels from a depth payload, skipping any level
// that does not parse as two numbers. Partial payloads degrade to shorter
// books, never to an error.
func ParseBook(payload any) Book {
	data, _ := toMap(unwrapData(payload))
	if data == nil {
		data, _ = toMap(payload)
	}
	var book Book
	if data == nil {
		return book
	}
	book.Bids = parseLevels(data["bids"])
	book.Asks = parseLevels(data["asks"])
	return book
}

func (b Book) BestBid() (float64, bool) {
	if len(b.Bids) == 0 {
		return 0, false
	}
	return b.Bids[0][0], true
}

func (b Book) BestAsk() (float64, bool) {
	if len(b.Asks) == 0 {
		return 0, false
	}
	return b.Asks[0][0], true
}

// NotionalAtDepth sums price*size over the first n levels.
func NotionalAtDepth(levels [][2]float64, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	var total float64
	for i := 0; i < n; i++ {
		total += levels[i][0] * levels[i][1]
	}
	return total
}

func parseLevels(v any) [][2]float64 {
	raw, ok := toSlice(v)
	if !ok {
		return nil
	}
	levels := make([][2]float64, 0, len(raw))
	for _, entry := range raw {
		pair, ok := toSlice(entry)
		if !ok || len(pair) < 2 {
			continue
		}
		price, okPrice := finiteFromAny(pair[0])
		size, okSize := finiteFromAny(pair[1])
		if !okPrice || !okSize {
			continue
		}
		levels = append(levels, [2]float64{price, size})
	}
	return levels
}

// unwrapData peels the provider's {"code":..., "data": ...} envelope.
func unwrapData(payload any) any {
	if m, ok := toMap(payload); ok {
		if inner, ok := m["data"]; ok {
			return inner
		}
	}
	return payload
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func stringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, _ := v.(string); strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func finiteFromMap(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if f, ok := finiteFromAny(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func finiteFromAny(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
