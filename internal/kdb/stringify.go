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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NestedMarker replaces any value that holds further structured values.
// Rendering stops at one level of nesting.
const NestedMarker = "[nested]"

const (
	nanosPerMicro  = int64(1000)
	microsPerDay   = int64(86400) * 1000000
	nanosPerSecond = int64(1000000000)
	nanosPerDay    = 86400 * nanosPerSecond
	millisPerDay   = int64(86400000)
	minutesPerDay  = int64(1440)
	secondsPerDay  = int64(86400)
)

// Epoch is the kdb+ epoch all temporal encodings are relative to.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Stringify renders one atom the way the q console displays it, selecting
// the branch by type tag. It never fails: values that do not match the tag
// fall back to their default text.
func Stringify(tag byte, v any) string {
	if v == nil {
		return ""
	}
	if IsCompound(v) {
		// An empty list, dictionary or table has no value to show
		if Len(v) == 0 {
			return ""
		}
		return NestedMarker
	}

	switch tag {
	case 'f', 'e':
		if f, ok := toFloat(v); ok {
			return formatFloat(f)
		}
	case 'b':
		switch x := v.(type) {
		case bool:
			if x {
				return "1"
			}
			return "0"
		default:
			if n, ok := toInt(v); ok {
				if n != 0 {
					return "1"
				}
				return "0"
			}
		}
	case 'd':
		if n, ok := toInt(v); ok {
			return formatDate(n)
		}
	case 'p':
		if n, ok := toInt(v); ok {
			return formatTimestamp(n)
		}
	case 'n':
		if n, ok := toInt(v); ok {
			return formatTimespan(n)
		}
	case 't':
		if n, ok := toInt(v); ok {
			return formatTime(n)
		}
	case 'u':
		if n, ok := toInt(v); ok {
			return formatMinute(n)
		}
	case 'v':
		if n, ok := toInt(v); ok {
			return formatSecond(n)
		}
	case 'm':
		if n, ok := toInt(v); ok {
			return formatMonth(n)
		}
	case 'z':
		if f, ok := toFloat(v); ok {
			return formatDatetime(f)
		}
	case 'x':
		if n, ok := toInt(v); ok {
			return fmt.Sprintf("%02x", byte(n))
		}
	case 'h', 'i', 'j':
		if n, ok := toInt(v); ok {
			return formatInteger(n, v)
		}
	case ' ':
		if own := Lookup(TypeOf(v)).Tag; own != ' ' {
			return Stringify(own, v)
		}
	}
	return defaultString(v)
}

// StringifyVector renders a homogeneous list: elements joined by the tag's
// separator, wrapped in its prefix and suffix, with a leading comma when
// there is exactly one element.
func StringifyVector(tag byte, elems []any) string {
	if len(elems) == 0 {
		return "()"
	}
	if IsCompound(elems[0]) {
		return NestedMarker
	}

	desc := LookupTag(tag)
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = Stringify(tag, e)
	}

	var sb strings.Builder
	if len(elems) == 1 {
		sb.WriteByte(',')
	}
	sb.WriteString(desc.ListPrefix)
	sb.WriteString(strings.Join(parts, desc.ListSeparator))
	sb.WriteString(desc.ListSuffix)
	return sb.String()
}

// StringifyCell renders a table cell. Cells of vector columns are vectors
// themselves and go through StringifyVector; anything deeper is cut off.
func StringifyCell(tag byte, v any) string {
	switch x := v.(type) {
	case *Vector:
		if x == nil {
			return ""
		}
		return StringifyVector(Lookup(x.Type).Tag, x.Elems)
	case List:
		return StringifyVector(' ', x)
	case []any:
		return StringifyVector(' ', x)
	}
	return Stringify(tag, v)
}

func defaultString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case Char:
		return string(rune(x))
	case uuid.UUID:
		return x.String()
	case *Function:
		if x.Text != "" {
			return x.Text
		}
		return fmt.Sprintf("[function %d]", int(x.Type))
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// formatFloat prints seven fractional digits and then drops trailing zeros
// and a bare trailing point.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "0n"
	case math.IsInf(f, 1):
		return "0w"
	case math.IsInf(f, -1):
		return "-0w"
	}
	s := strconv.FormatFloat(f, 'f', 7, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}

func formatInteger(n int64, original any) string {
	switch x := original.(type) {
	case int16:
		if x == NullShort {
			return "0N"
		}
	case int32:
		if x == NullInt {
			return "0N"
		}
	case int64:
		if x == NullLong {
			return "0N"
		}
	}
	return strconv.FormatInt(n, 10)
}

func formatDate(days int64) string {
	if days == int64(NullInt) {
		return "0Nd"
	}
	return Epoch.AddDate(0, 0, int(days)).Format("2006.01.02")
}

// formatTimestamp renders nanoseconds since the epoch at microsecond
// precision; the sub-microsecond remainder is rounded half up.
func formatTimestamp(ns int64) string {
	switch ns {
	case NullLong:
		return "0Np"
	case math.MaxInt64:
		return "0Wp"
	case -math.MaxInt64:
		return "-0Wp"
	}

	micros := floorDiv(ns, nanosPerMicro)
	if ns-micros*nanosPerMicro >= nanosPerMicro/2 {
		micros++
	}
	days := floorDiv(micros, microsPerDay)
	rem := micros - days*microsPerDay

	date := Epoch.AddDate(0, 0, int(days)).Format("2006.01.02")
	return fmt.Sprintf("%sD%02d:%02d:%02d.%06d", date,
		rem/3600000000, rem/60000000%60, rem/1000000%60, rem%1000000)
}

func formatTimespan(ns int64) string {
	if ns == NullLong {
		return "0Nn"
	}
	sign := ""
	if ns < 0 {
		sign = "-"
		ns = -ns
	}
	days := ns / nanosPerDay
	rem := ns % nanosPerDay
	secs := rem / nanosPerSecond
	return fmt.Sprintf("%s%dD%02d:%02d:%02d.%09d", sign, days,
		secs/3600, secs/60%60, secs%60, rem%nanosPerSecond)
}

func formatTime(ms int64) string {
	if ms == int64(NullInt) {
		return "0Nt"
	}
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign,
		ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// formatMinute treats the value as an offset from midnight of the epoch, so
// negative values count backwards into the previous day.
func formatMinute(m int64) string {
	if m == int64(NullInt) {
		return "0Nu"
	}
	m = floorMod(m, minutesPerDay)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func formatSecond(s int64) string {
	if s == int64(NullInt) {
		return "0Nv"
	}
	s = floorMod(s, secondsPerDay)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func formatMonth(m int64) string {
	if m == int64(NullInt) {
		return "0Nm"
	}
	return fmt.Sprintf("%04d.%02dm", 2000+floorDiv(m, 12), floorMod(m, 12)+1)
}

func formatDatetime(days float64) string {
	if math.IsNaN(days) {
		return "0Nz"
	}
	if math.IsInf(days, 0) {
		if days > 0 {
			return "0wz"
		}
		return "-0wz"
	}
	ms := int64(math.Round(days * float64(millisPerDay)))
	d := floorDiv(ms, millisPerDay)
	rem := ms - d*millisPerDay
	date := Epoch.AddDate(0, 0, int(d)).Format("2006.01.02")
	return fmt.Sprintf("%sT%02d:%02d:%02d.%03d", date,
		rem/3600000, rem/60000%60, rem/1000%60, rem%1000)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case byte:
		return int64(x), true
	case Char:
		return int64(x), true
	case Timestamp:
		return int64(x), true
	case Timespan:
		return int64(x), true
	case Month:
		return int64(x), true
	case Date:
		return int64(x), true
	case Minute:
		return int64(x), true
	case Second:
		return int64(x), true
	case Time:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case Datetime:
		return float64(x), true
	}
	if n, ok := toInt(v); ok {
		return float64(n), true
	}
	return 0, false
}
