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
	"testing"

	"github.com/google/uuid"
)

func TestStringify(t *testing.T) {
	const day = int64(86400) * 1000000000

	tests := []struct {
		name     string
		tag      byte
		input    any
		expected string
	}{
		{"nil value", 'j', nil, ""},
		{"nested vector", 'j', NewVector(TypeLong, int64(1)), NestedMarker},
		{"nested dict", 's', &Dict{Keys: NewVector(TypeSymbol, "a"), Values: NewVector(TypeLong, int64(1))}, NestedMarker},
		{"nested list", ' ', List{int64(1), "a"}, NestedMarker},
		{"empty vector", 'j', NewVector(TypeLong), ""},
		{"empty list", ' ', List{}, ""},
		{"empty dict", 's', &Dict{}, ""},
		{"empty table", 's', &Table{Columns: []string{"a"}, Data: []any{NewVector(TypeLong)}}, ""},
		{"nil vector", 'j', (*Vector)(nil), ""},
		{"nil dict", 'j', (*Dict)(nil), ""},
		{"nil table", 'j', (*Table)(nil), ""},

		{"float fraction", 'f', 1.5, "1.5"},
		{"float whole", 'f', 2.0, "2"},
		{"float rounding", 'f', 0.123456789, "0.1234568"},
		{"float negative", 'f', -3.25, "-3.25"},
		{"float null", 'f', math.NaN(), "0n"},
		{"float infinity", 'f', math.Inf(1), "0w"},
		{"float negative infinity", 'f', math.Inf(-1), "-0w"},
		{"real", 'e', float32(0.25), "0.25"},

		{"boolean true", 'b', true, "1"},
		{"boolean false", 'b', false, "0"},

		{"date epoch", 'd', Date(0), "2000.01.01"},
		{"date before epoch", 'd', Date(-1), "1999.12.31"},
		{"date leap year", 'd', Date(366), "2001.01.01"},
		{"date null", 'd', Date(NullInt), "0Nd"},

		{"timestamp epoch", 'p', Timestamp(0), "2000.01.01D00:00:00.000000"},
		{"timestamp rounds up", 'p', Timestamp(1500), "2000.01.01D00:00:00.000002"},
		{"timestamp rounds down", 'p', Timestamp(1499), "2000.01.01D00:00:00.000001"},
		{"timestamp next day", 'p', Timestamp(day + 3661000000000 + 123456789), "2000.01.02D01:01:01.123457"},
		{"timestamp before epoch", 'p', Timestamp(-1000), "1999.12.31D23:59:59.999999"},
		{"timestamp null", 'p', Timestamp(NullLong), "0Np"},

		{"timespan zero", 'n', Timespan(0), "0D00:00:00.000000000"},
		{"timespan", 'n', Timespan(3723000000001), "0D01:02:03.000000001"},
		{"timespan days", 'n', Timespan(2*day + 1), "2D00:00:00.000000001"},
		{"timespan negative", 'n', Timespan(-(day + 1)), "-1D00:00:00.000000001"},

		{"time", 't', Time(45296789), "12:34:56.789"},
		{"time negative", 't', Time(-1), "-00:00:00.001"},

		{"minute", 'u', Minute(75), "01:15"},
		{"minute before anchor", 'u', Minute(-1), "23:59"},
		{"second", 'v', Second(3661), "01:01:01"},
		{"second before anchor", 'v', Second(-1), "23:59:59"},

		{"month", 'm', Month(0), "2000.01m"},
		{"month before epoch", 'm', Month(-1), "1999.12m"},
		{"datetime", 'z', Datetime(1.5), "2000.01.02T12:00:00.000"},

		{"symbol", 's', "abc", "abc"},
		{"char", 'c', Char('q'), "q"},
		{"long", 'j', int64(42), "42"},
		{"long null", 'j', NullLong, "0N"},
		{"int", 'i', int32(-7), "-7"},
		{"short", 'h', int16(3), "3"},
		{"byte", 'x', byte(10), "0a"},
		{"guid", 'g', uuid.MustParse("8c680a01-5a49-5aab-5a65-d4bfddb6a661"), "8c680a01-5a49-5aab-5a65-d4bfddb6a661"},

		{"mismatched tag", 'd', "not a date", "not a date"},
		{"untyped tag uses value type", ' ', Date(0), "2000.01.01"},
		{"unknown tag", '?', int64(5), "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Stringify(tt.tag, tt.input)
			if result != tt.expected {
				t.Errorf("Stringify(%q, %v) = %q, want %q", tt.tag, tt.input, result, tt.expected)
			}
		})
	}
}

func TestStringify_Deterministic(t *testing.T) {
	values := []any{Timestamp(123456789012345), Timespan(-98765), 3.14159, Minute(-600)}
	tags := []byte{'p', 'n', 'f', 'u'}
	for i, v := range values {
		first := Stringify(tags[i], v)
		for j := 0; j < 3; j++ {
			if again := Stringify(tags[i], v); again != first {
				t.Errorf("Stringify(%q, %v) changed from %q to %q", tags[i], v, first, again)
			}
		}
	}
}

func TestStringifyVector(t *testing.T) {
	tests := []struct {
		name     string
		tag      byte
		elems    []any
		expected string
	}{
		{"empty", 'j', nil, "()"},
		{"booleans", 'b', []any{true, false, true}, "101b"},
		{"single boolean", 'b', []any{true}, ",1b"},
		{"single symbol", 's', []any{"abc"}, ",`abc"},
		{"symbols", 's', []any{"a", "b", "c"}, "`a`b`c"},
		{"longs", 'j', []any{int64(1), int64(2), int64(3)}, "1 2 3"},
		{"single float", 'f', []any{1.5}, ",1.5"},
		{"floats", 'f', []any{1.5, 2.0}, "1.5 2"},
		{"shorts", 'h', []any{int16(1), int16(2)}, "1 2h"},
		{"chars", 'c', []any{Char('a'), Char('b')}, `"ab"`},
		{"single char", 'c', []any{Char('a')}, `,"a"`},
		{"bytes", 'x', []any{byte(1), byte(255)}, "0x01ff"},
		{"dates", 'd', []any{Date(0), Date(1)}, "2000.01.01 2000.01.02"},
		{"nested first element", 'j', []any{NewVector(TypeLong, int64(1)), int64(2)}, NestedMarker},
		{"mixed list", ' ', []any{int64(1), "a", Date(0)}, "(1;a;2000.01.01)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StringifyVector(tt.tag, tt.elems)
			if result != tt.expected {
				t.Errorf("StringifyVector(%q, %v) = %q, want %q", tt.tag, tt.elems, result, tt.expected)
			}
		})
	}
}

func TestStringifyCell(t *testing.T) {
	if got := StringifyCell('J', NewVector(TypeLong, int64(1), int64(2))); got != "1 2" {
		t.Errorf("StringifyCell(vector) = %q, want %q", got, "1 2")
	}
	if got := StringifyCell('C', NewVector(TypeChar, Char('h'), Char('i'))); got != `"hi"` {
		t.Errorf("StringifyCell(string) = %q, want %q", got, `"hi"`)
	}
	if got := StringifyCell(' ', List{NewVector(TypeLong, int64(1))}); got != NestedMarker {
		t.Errorf("StringifyCell(nested list) = %q, want %q", got, NestedMarker)
	}
	if got := StringifyCell('f', 0.5); got != "0.5" {
		t.Errorf("StringifyCell(atom) = %q, want %q", got, "0.5")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		code TypeCode
		name string
		tag  byte
	}{
		{-TypeBoolean, "boolean", 'b'},
		{TypeTimestamp, "timestamp", 'p'},
		{-TypeFloat, "float", 'f'},
		{TypeSymbol, "symbol", 's'},
		{TypeMixed, "list", ' '},
		{TypeDict, "unknown", ' '},
		{TypeError, "unknown", ' '},
	}

	for _, tt := range tests {
		d := Lookup(tt.code)
		if d.DisplayName != tt.name || d.Tag != tt.tag {
			t.Errorf("Lookup(%d) = %+v, want name %q tag %q", tt.code, d, tt.name, tt.tag)
		}
	}

	if d := LookupTag('P'); d.DisplayName != "timestamp" {
		t.Errorf("LookupTag('P') = %+v, want timestamp", d)
	}
}
