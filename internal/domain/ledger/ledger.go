// Package ledger aggregates cost and investment amounts.
package ledger

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Entry is one categorized amount. Amount is whatever the caller received,
// typically a number or a numeric string coming from a form or an API payload.
type Entry struct {
	Category string
	Amount   any
}

// SumByCategory groups entries by category and sums their amounts.
// Amounts that are not numeric count as 0. No rounding is applied.
func SumByCategory(entries []Entry) map[string]float64 {
	sums := make(map[string]float64)
	for _, e := range entries {
		sums[e.Category] += ToFloat(e.Amount)
	}
	return sums
}

// Total sums every value of a per-category map.
func Total(sums map[string]float64) float64 {
	var total float64
	for _, v := range sums {
		total += v
	}
	return total
}

// Categories returns the map keys sorted alphabetically.
func Categories(sums map[string]float64) []string {
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToFloat coerces a loosely typed value into a float64. Missing, non-numeric
// and non-finite values yield 0.
func ToFloat(value any) float64 {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case decimal.Decimal:
		f = v.InexactFloat64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(rv.Uint())
		default:
			return 0
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
