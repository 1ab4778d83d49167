/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package kdb

import (
	"math"

	"github.com/google/uuid"
)

// Temporal atoms keep the server's integer encodings. Dates and times are relative
// to the kdb+ epoch, 2000.01.01.
type (
	// Timestamp is nanoseconds since the epoch.
	Timestamp int64
	// Month is months since the epoch.
	Month int32
	// Date is days since the epoch.
	Date int32
	// Datetime is fractional days since the epoch.
	Datetime float64
	// Timespan is a signed duration in nanoseconds.
	Timespan int64
	// Minute is minutes relative to midnight of the epoch.
	Minute int32
	// Second is seconds relative to midnight of the epoch.
	Second int32
	// Time is milliseconds since midnight.
	Time int32
	// Char is a single character atom.
	Char byte
)

// Null sentinels used by kdb+ for integer-backed types.
const (
	NullShort int16 = math.MinInt16
	NullInt   int32 = math.MinInt32
	NullLong  int64 = math.MinInt64
)

// Vector is a homogeneous sequence of atoms. Type is the positive vector
// type code; each element has the Go type the atom of that code decodes to.
type Vector struct {
	Type      TypeCode
	Attribute byte
	Elems     []any
}

// NewVector builds a vector of the given type from its elements.
func NewVector(t TypeCode, elems ...any) *Vector {
	return &Vector{Type: t.Abs(), Elems: elems}
}

// Len returns the element count.
func (v *Vector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Elems)
}

// List is a general (type 0) list whose items may be of any type.
type List []any

// Dict maps a key list onto a value list of the same length.
type Dict struct {
	Keys   any
	Values any
	Sorted bool
}

// Table is a flipped dictionary of column names to equal-length columns.
// Each column is a *Vector or a List.
type Table struct {
	Columns []string
	Data    []any
}

// RowCount returns the length of the first column.
func (t *Table) RowCount() int {
	if t == nil || len(t.Data) == 0 {
		return 0
	}
	return Len(t.Data[0])
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) any {
	for i, c := range t.Columns {
		if c == name && i < len(t.Data) {
			return t.Data[i]
		}
	}
	return nil
}

// Function is any executable value (lambda, primitive, projection, ...).
// Text holds the lambda source when the server sent it.
type Function struct {
	Type TypeCode
	Text string
}

// Len returns the item count of a list-like value, 1 for atoms and 0 for nil.
func Len(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case *Vector:
		return x.Len()
	case List:
		return len(x)
	case []any:
		return len(x)
	case *Table:
		return x.RowCount()
	case *Dict:
		if x == nil {
			return 0
		}
		return Len(x.Keys)
	case map[string]any:
		return len(x)
	default:
		return 1
	}
}

// Index returns the i-th item of a list-like value, or nil when out of range.
func Index(v any, i int) any {
	switch x := v.(type) {
	case *Vector:
		if x != nil && i >= 0 && i < len(x.Elems) {
			return x.Elems[i]
		}
	case List:
		if i >= 0 && i < len(x) {
			return x[i]
		}
	case []any:
		if i >= 0 && i < len(x) {
			return x[i]
		}
	}
	return nil
}

// TypeOf returns the kdb+ type code of a decoded value.
func TypeOf(v any) TypeCode {
	switch x := v.(type) {
	case bool:
		return -TypeBoolean
	case uuid.UUID:
		return -TypeGUID
	case byte:
		return -TypeByte
	case int16:
		return -TypeShort
	case int32:
		return -TypeInt
	case int64, int:
		return -TypeLong
	case float32:
		return -TypeReal
	case float64:
		return -TypeFloat
	case Char:
		return -TypeChar
	case string:
		return -TypeSymbol
	case Timestamp:
		return -TypeTimestamp
	case Month:
		return -TypeMonth
	case Date:
		return -TypeDate
	case Datetime:
		return -TypeDatetime
	case Timespan:
		return -TypeTimespan
	case Minute:
		return -TypeMinute
	case Second:
		return -TypeSecond
	case Time:
		return -TypeTime
	case *Vector:
		return x.Type
	case List, []any:
		return TypeMixed
	case *Table:
		return TypeTable
	case *Dict:
		return TypeDict
	case *Function:
		return x.Type
	default:
		return TypeMixed
	}
}

// IsCompound reports whether v holds further structured values.
func IsCompound(v any) bool {
	switch v.(type) {
	case *Vector, List, []any, *Dict, *Table, map[string]any:
		return true
	}
	return false
}

// CharVector builds a kdb+ string (a char vector) from s.
func CharVector(s string) *Vector {
	elems := make([]any, len(s))
	for i := 0; i < len(s); i++ {
		elems[i] = Char(s[i])
	}
	return &Vector{Type: TypeChar, Elems: elems}
}

// StringOf returns the text of a char vector, symbol or char atom.
func StringOf(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case Char:
		return string(rune(x)), true
	case *Vector:
		if x == nil || x.Type != TypeChar {
			return "", false
		}
		b := make([]byte, 0, len(x.Elems))
		for _, e := range x.Elems {
			c, ok := e.(Char)
			if !ok {
				return "", false
			}
			b = append(b, byte(c))
		}
		return string(b), true
	}
	return "", false
}

// Strings returns the items of a symbol vector or a list of strings. Items
// that are not text are skipped.
func Strings(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []string:
		return x
	}
	n := Len(v)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s, ok := StringOf(Index(v, i)); ok {
			out = append(out, s)
		}
	}
	return out
}
