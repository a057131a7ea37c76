package holdings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

// Upstream systems disagree on field naming. Candidate lists are checked in
// order and the first present key wins.
var (
	wrapperKeys     = []string{"portfolio_holdings", "holdings", "data", "positions"}
	symbolKeys      = []string{"symbol", "ticker", "Symbol", "Ticker"}
	nameKeys        = []string{"name", "company", "Name", "companyName"}
	sharesKeys      = []string{"shares", "quantity", "open_quantity", "Shares", "Quantity"}
	averageCostKeys = []string{"average_cost", "averageCost", "average_entry_price", "cost_basis"}
	priceKeys       = []string{"current_price", "currentPrice", "price"}
	marketValueKeys = []string{"market_value", "marketValue", "current_market_value", "value"}
	sectorKeys      = []string{"sector", "Sector"}
)

// extractRecords locates the holdings list inside an arbitrary payload shape.
// Accepted shapes: a bare array, an object wrapping an array under a known
// key, or a single holding object. Non-object list entries are dropped and
// counted, never fatal.
func extractRecords(payload interface{}) ([]map[string]interface{}, int, error) {
	switch v := payload.(type) {
	case []interface{}:
		records, dropped := toRecordList(v)
		return records, dropped, nil
	case map[string]interface{}:
		for _, key := range wrapperKeys {
			if inner, ok := v[key]; ok {
				if list, isList := inner.([]interface{}); isList {
					records, dropped := toRecordList(list)
					return records, dropped, nil
				}
			}
		}
		// No wrapper key: treat the object itself as a single holding.
		return []map[string]interface{}{v}, 0, nil
	default:
		return nil, 0, fmt.Errorf("unsupported payload shape: %T", payload)
	}
}

func toRecordList(list []interface{}) ([]map[string]interface{}, int) {
	records := make([]map[string]interface{}, 0, len(list))
	dropped := 0
	for _, item := range list {
		record, ok := item.(map[string]interface{})
		if !ok {
			dropped++
			continue
		}
		records = append(records, record)
	}
	return records, dropped
}

// normalizeRecord maps one raw holdings record to the canonical holding.
// Records without a resolvable symbol are rejected.
func normalizeRecord(record map[string]interface{}) (models.Holding, error) {
	symbol := common.NormalizeSymbol(firstString(record, symbolKeys))
	if symbol == "" {
		return models.Holding{}, fmt.Errorf("record has no symbol under any known key")
	}

	h := models.Holding{
		Symbol:       symbol,
		Name:         firstString(record, nameKeys),
		Shares:       firstFloat(record, sharesKeys),
		AverageCost:  firstFloat(record, averageCostKeys),
		CurrentPrice: firstFloat(record, priceKeys),
		MarketValue:  firstFloat(record, marketValueKeys),
		Sector:       firstString(record, sectorKeys),
	}

	if h.Name == "" {
		h.Name = symbol
	}
	if h.MarketValue == 0 && h.Shares > 0 && h.CurrentPrice > 0 {
		h.MarketValue = h.Shares * h.CurrentPrice
	}

	return h, nil
}

// firstString returns the first non-empty string under any candidate key.
func firstString(record map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := record[key]; ok {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// firstFloat returns the first numeric value under any candidate key.
// Numbers arriving as JSON strings are coerced.
func firstFloat(record map[string]interface{}, keys []string) float64 {
	for _, key := range keys {
		v, ok := record[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return 0
}
