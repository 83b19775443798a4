// Package exchange maps exchange identifiers to ticker URL builders and
// response parsers. The exchange set is closed and enumerable, so adapters are
// plain data in a registry of function pairs rather than a type hierarchy.
package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AskBid is the parsed best ask/bid from one exchange response.
type AskBid struct {
	Ask float64
	Bid float64
}

// Adapter bundles the pure functions needed to poll one exchange: a URL
// builder and a body parser. Batch adapters additionally parse a whole-market
// response into per-coin quotes.
type Adapter struct {
	// Exchange is the canonical exchange identifier.
	Exchange string

	// Batch marks exchanges whose API returns every coin in one response.
	// Batch exchanges are polled once per cycle for all coins; URL ignores
	// its argument.
	Batch bool

	// URL returns the request URL for the exchange-native coin symbol.
	URL func(coin string) string

	// Parse extracts the best ask/bid for the given exchange-native coin
	// symbol from a raw response body.
	Parse func(body []byte, coin string) (AskBid, error)

	// ParseBatch extracts ask/bid for each requested coin from a single
	// whole-market body. A coin that fails to parse is reported in the error
	// map and does not abort parsing of the remaining coins.
	ParseBatch func(body []byte, coins []string) (map[string]AskBid, map[string]error)
}

// Endpoints holds the base URL per exchange. Zero values fall back to nothing;
// callers populate every field from configuration.
type Endpoints struct {
	Poloniex string
	Kraken   string
	Okcoin   string
	Gemini   string
	Bitstamp string
	Bittrex  string
	Bitfinex string
}

// Registry is the closed adapter set, keyed by exchange identifier.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds the adapter registry for the supported exchanges using
// the given endpoints.
func NewRegistry(eps Endpoints) *Registry {
	adapters := map[string]Adapter{
		"poloniex": {
			Exchange:   "poloniex",
			Batch:      true,
			URL:        func(string) string { return eps.Poloniex },
			Parse:      parsePoloniex,
			ParseBatch: parsePoloniexBatch,
		},
		"kraken": {
			Exchange: "kraken",
			URL:      func(coin string) string { return eps.Kraken + coin },
			Parse:    parseKraken,
		},
		"okcoin": {
			Exchange: "okcoin",
			URL:      func(coin string) string { return eps.Okcoin + coin },
			Parse:    parseOkcoin,
		},
		"gemini": {
			Exchange: "gemini",
			URL:      func(coin string) string { return eps.Gemini + coin },
			Parse:    parseGemini,
		},
		"bitstamp": {
			Exchange: "bitstamp",
			URL:      func(coin string) string { return eps.Bitstamp + coin },
			Parse:    parseBitstamp,
		},
		"bittrex": {
			Exchange: "bittrex",
			URL:      func(coin string) string { return eps.Bittrex + coin },
			Parse:    parseBittrex,
		},
		"bitfinex": {
			Exchange: "bitfinex",
			URL:      func(coin string) string { return eps.Bitfinex + coin },
			Parse:    parseBitfinex,
		},
	}
	return &Registry{adapters: adapters}
}

// Get returns the adapter for the exchange identifier.
func (r *Registry) Get(exchange string) (Adapter, bool) {
	a, ok := r.adapters[exchange]
	return a, ok
}

// Exchanges returns the identifiers of every registered exchange.
func (r *Registry) Exchanges() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}

// ---------------------------------------------------------------------------
// JSON traversal helpers. Exchange payloads mix string and numeric price
// fields, so everything funnels through toFloat.
// ---------------------------------------------------------------------------

// toFloat coerces a decoded JSON value (string or number) to float64.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric price %q", t)
		}
		return f, nil
	case json.Number:
		return t.Float64()
	case nil:
		return 0, fmt.Errorf("price field is null")
	default:
		return 0, fmt.Errorf("unexpected price type %T", v)
	}
}

// objField returns the value at key in obj or an error naming the key.
func objField(obj map[string]any, key string) (any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return v, nil
}

// asObject asserts that v is a JSON object.
func asObject(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}

// decodeObject unmarshals body into a JSON object.
func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// askBidFrom reads the named ask/bid fields out of obj.
func askBidFrom(obj map[string]any, askKey, bidKey string) (AskBid, error) {
	askRaw, err := objField(obj, askKey)
	if err != nil {
		return AskBid{}, err
	}
	ask, err := toFloat(askRaw)
	if err != nil {
		return AskBid{}, fmt.Errorf("%s: %w", askKey, err)
	}
	bidRaw, err := objField(obj, bidKey)
	if err != nil {
		return AskBid{}, err
	}
	bid, err := toFloat(bidRaw)
	if err != nil {
		return AskBid{}, fmt.Errorf("%s: %w", bidKey, err)
	}
	return AskBid{Ask: ask, Bid: bid}, nil
}
