// Package encoding holds the shared JSON configuration.
package encoding

import (
	"encoding/json"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// JSONiter decodes numbers into json.Number so 64-bit block heights and
// timestamps survive a round trip through interface{} values.
var JSONiter = jsoniter.Config{
	EscapeHTML:    false,
	CaseSensitive: true,
	UseNumber:     true,
}.Froze()

// MaybeGetInt64 reads an integer out of a decoded JSON value. It accepts
// json.Number, decimal strings and the native integer types. Fractions and
// values that overflow int64 are rejected.
func MaybeGetInt64(numberish interface{}) (int64, bool) {
	switch n := numberish.(type) {
	case json.Number:
		v, err := n.Int64()
		return v, err == nil
	case string:
		v, err := strconv.ParseInt(n, 10, 64)
		return v, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// MaybeGetUint64 is MaybeGetInt64 for non-negative values such as block heights.
func MaybeGetUint64(numberish interface{}) (uint64, bool) {
	switch n := numberish.(type) {
	case json.Number:
		v, err := strconv.ParseUint(n.String(), 10, 64)
		return v, err == nil
	case string:
		v, err := strconv.ParseUint(n, 10, 64)
		return v, err == nil
	case uint64:
		return n, true
	}
	v, ok := MaybeGetInt64(numberish)
	if !ok || v < 0 {
		return 0, false
	}
	return uint64(v), true
}
