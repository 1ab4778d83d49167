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

// TypeCode identifies the kdb+ type of a value. Negative codes are atoms,
// positive codes are vectors of the same element type and 0 is a general
// (mixed) list.
type TypeCode int

const (
	TypeMixed     TypeCode = 0
	TypeBoolean   TypeCode = 1
	TypeGUID      TypeCode = 2
	TypeByte      TypeCode = 4
	TypeShort     TypeCode = 5
	TypeInt       TypeCode = 6
	TypeLong      TypeCode = 7
	TypeReal      TypeCode = 8
	TypeFloat     TypeCode = 9
	TypeChar      TypeCode = 10
	TypeSymbol    TypeCode = 11
	TypeTimestamp TypeCode = 12
	TypeMonth     TypeCode = 13
	TypeDate      TypeCode = 14
	TypeDatetime  TypeCode = 15
	TypeTimespan  TypeCode = 16
	TypeMinute    TypeCode = 17
	TypeSecond    TypeCode = 18
	TypeTime      TypeCode = 19
	TypeEnum      TypeCode = 20

	TypeTable  TypeCode = 98
	TypeDict   TypeCode = 99
	TypeLambda TypeCode = 100
	TypeError  TypeCode = -128
)

// IsAtom reports whether the code denotes a single value.
func (t TypeCode) IsAtom() bool {
	return t < 0
}

// Abs returns the magnitude of the code.
func (t TypeCode) Abs() TypeCode {
	if t < 0 {
		return -t
	}
	return t
}

// Descriptor returns the type table entry for the code.
func (t TypeCode) Descriptor() TypeDescriptor {
	return Lookup(t)
}

// TypeDescriptor describes how values of one kdb+ type are displayed.
type TypeDescriptor struct {
	DisplayName   string
	Tag           byte
	ListSeparator string
	ListPrefix    string
	ListSuffix    string
}

// UnknownType is returned by Lookup for codes outside the type table.
var UnknownType = TypeDescriptor{DisplayName: "unknown", Tag: ' ', ListSeparator: " "}

var typeTable = [...]TypeDescriptor{
	{DisplayName: "list", Tag: ' ', ListSeparator: ";", ListPrefix: "(", ListSuffix: ")"},
	{DisplayName: "boolean", Tag: 'b', ListSeparator: "", ListSuffix: "b"},
	{DisplayName: "guid", Tag: 'g', ListSeparator: " "},
	{DisplayName: "unknown", Tag: ' ', ListSeparator: " "},
	{DisplayName: "byte", Tag: 'x', ListSeparator: "", ListPrefix: "0x"},
	{DisplayName: "short", Tag: 'h', ListSeparator: " ", ListSuffix: "h"},
	{DisplayName: "int", Tag: 'i', ListSeparator: " ", ListSuffix: "i"},
	{DisplayName: "long", Tag: 'j', ListSeparator: " "},
	{DisplayName: "real", Tag: 'e', ListSeparator: " ", ListSuffix: "e"},
	{DisplayName: "float", Tag: 'f', ListSeparator: " "},
	{DisplayName: "char", Tag: 'c', ListSeparator: "", ListPrefix: `"`, ListSuffix: `"`},
	{DisplayName: "symbol", Tag: 's', ListSeparator: "`", ListPrefix: "`"},
	{DisplayName: "timestamp", Tag: 'p', ListSeparator: " "},
	{DisplayName: "month", Tag: 'm', ListSeparator: " "},
	{DisplayName: "date", Tag: 'd', ListSeparator: " "},
	{DisplayName: "datetime", Tag: 'z', ListSeparator: " "},
	{DisplayName: "timespan", Tag: 'n', ListSeparator: " "},
	{DisplayName: "minute", Tag: 'u', ListSeparator: " "},
	{DisplayName: "second", Tag: 'v', ListSeparator: " "},
	{DisplayName: "time", Tag: 't', ListSeparator: " "},
	{DisplayName: "enum", Tag: 's', ListSeparator: "`", ListPrefix: "`"},
}

// Lookup returns the descriptor for a type code. Codes whose magnitude is
// outside the table yield UnknownType rather than failing, so exotic server
// types never stop a render.
func Lookup(code TypeCode) TypeDescriptor {
	idx := int(code.Abs())
	if idx >= len(typeTable) {
		return UnknownType
	}
	return typeTable[idx]
}

// LookupTag returns the descriptor whose tag matches. Upper-case tags, as
// reported by meta for columns of vectors, match their lower-case type.
func LookupTag(tag byte) TypeDescriptor {
	if tag >= 'A' && tag <= 'Z' {
		tag += 'a' - 'A'
	}
	for _, d := range typeTable {
		if d.Tag == tag {
			return d
		}
	}
	return UnknownType
}
