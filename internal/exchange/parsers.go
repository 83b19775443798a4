package exchange

import (
	"fmt"
	"sort"
)

// parsePoloniex extracts one coin from the whole-market returnTicker payload.
// Poloniex keys the response by its own pair symbol, e.g. "USDT_BTC".
func parsePoloniex(body []byte, coin string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	return poloniexCoin(obj, coin)
}

// parsePoloniexBatch extracts every requested coin from a single returnTicker
// payload. A coin that is missing or malformed lands in the error map; the
// rest still parse.
func parsePoloniexBatch(body []byte, coins []string) (map[string]AskBid, map[string]error) {
	quotes := make(map[string]AskBid, len(coins))
	errs := make(map[string]error)

	obj, err := decodeObject(body)
	if err != nil {
		for _, coin := range coins {
			errs[coin] = err
		}
		return quotes, errs
	}

	for _, coin := range coins {
		ab, err := poloniexCoin(obj, coin)
		if err != nil {
			errs[coin] = err
			continue
		}
		quotes[coin] = ab
	}
	return quotes, errs
}

func poloniexCoin(obj map[string]any, coin string) (AskBid, error) {
	raw, err := objField(obj, coin)
	if err != nil {
		return AskBid{}, err
	}
	ticker, err := asObject(raw)
	if err != nil {
		return AskBid{}, fmt.Errorf("ticker for %s: %w", coin, err)
	}
	return askBidFrom(ticker, "lowestAsk", "highestBid")
}

// parseKraken reads the single result entry. Kraken echoes its own canonical
// pair name as the key, which rarely matches the requested symbol, so the
// parser takes the first entry rather than looking the symbol up.
func parseKraken(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	raw, err := objField(obj, "result")
	if err != nil {
		return AskBid{}, err
	}
	result, err := asObject(raw)
	if err != nil {
		return AskBid{}, err
	}
	if len(result) == 0 {
		return AskBid{}, fmt.Errorf("empty result")
	}

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)

	ticker, err := asObject(result[names[0]])
	if err != nil {
		return AskBid{}, err
	}
	ask, err := krakenLevel(ticker, "a")
	if err != nil {
		return AskBid{}, err
	}
	bid, err := krakenLevel(ticker, "b")
	if err != nil {
		return AskBid{}, err
	}
	return AskBid{Ask: ask, Bid: bid}, nil
}

// krakenLevel reads the price out of kraken's ["price", "wholeLotVolume",
// "lotVolume"] arrays.
func krakenLevel(ticker map[string]any, key string) (float64, error) {
	raw, err := objField(ticker, key)
	if err != nil {
		return 0, err
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return 0, fmt.Errorf("field %q is not a non-empty array", key)
	}
	f, err := toFloat(arr[0])
	if err != nil {
		return 0, fmt.Errorf("%s[0]: %w", key, err)
	}
	return f, nil
}

// parseOkcoin reads the nested ticker object; okcoin names the sides
// sell/buy.
func parseOkcoin(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	raw, err := objField(obj, "ticker")
	if err != nil {
		return AskBid{}, err
	}
	ticker, err := asObject(raw)
	if err != nil {
		return AskBid{}, err
	}
	return askBidFrom(ticker, "sell", "buy")
}

// parseGemini reads the flat pubticker payload.
func parseGemini(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	return askBidFrom(obj, "ask", "bid")
}

// parseBitstamp reads the flat v2 ticker payload.
func parseBitstamp(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	return askBidFrom(obj, "ask", "bid")
}

// parseBittrex reads the getticker result object; bittrex reports numeric
// Ask/Bid rather than strings.
func parseBittrex(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	raw, err := objField(obj, "result")
	if err != nil {
		return AskBid{}, err
	}
	result, err := asObject(raw)
	if err != nil {
		return AskBid{}, err
	}
	return askBidFrom(result, "Ask", "Bid")
}

// parseBitfinex reads the flat v1 pubticker payload.
func parseBitfinex(body []byte, _ string) (AskBid, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return AskBid{}, err
	}
	return askBidFrom(obj, "ask", "bid")
}
