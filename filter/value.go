package filter

import (
	"encoding/json"
	"math"
	"time"
)

// TimeLayout is the wire encoding of time values for stores without a native
// time type. It is fixed width so that encoded values order lexically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime encodes t in TimeLayout (always UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Normalize maps a Go value onto the wire value set: string, bool, int64,
// float64 and nil. Times become TimeLayout strings. Unknown types are
// returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatTime(*x)
	}
	return v
}

// Compare orders two wire values. The boolean is false when the values are
// not comparable (different kinds, or either is nil while the other is not).
func Compare(a, b any) (int, bool) {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return order(x < y, x > y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return order(!x && y, x && !y), true
	case int64:
		switch y := b.(type) {
		case int64:
			return order(x < y, x > y), true
		case float64:
			fx := float64(x)
			return order(fx < y, fx > y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return order(x < y, x > y), true
		case int64:
			fy := float64(y)
			return order(x < fy, x > fy), true
		}
	}
	return 0, false
}

func order(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// Match evaluates f against a record held in process. Missing fields
// compare as nil.
func Match(f Filter, rec map[string]any) bool {
	switch f.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, a := range f.Args {
			if !Match(a, rec) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range f.Args {
			if Match(a, rec) {
				return true
			}
		}
		return false
	case OpNot:
		return len(f.Args) == 1 && !Match(f.Args[0], rec)
	}

	c, ok := Compare(rec[f.Field], f.Value)
	if !ok {
		return f.Op == OpNe
	}
	switch f.Op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}
