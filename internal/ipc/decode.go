/*-------------------------------------------------------------------------
 *
 * kdb+/q Console - IPC Protocol
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package ipc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"kdb-q-console/internal/kdb"
)

// decoder reads q values from a message body.
type decoder struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// Decode decodes a single value from a message body. A server error (type
// -128) is returned as a *QError.
func Decode(body []byte, order binary.ByteOrder) (any, error) {
	d := &decoder{buf: body, order: order}
	return d.value()
}

func (d *decoder) need(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d of %d", ErrMalformed, n, d.pos, len(d.buf))
	}
	return nil
}

func (d *decoder) byte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) uint16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := d.order.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) uint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := d.order.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) uint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := d.order.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// symbol reads a null-terminated string.
func (d *decoder) symbol() (string, error) {
	end := bytes.IndexByte(d.buf[d.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated symbol", ErrMalformed)
	}
	s := string(d.buf[d.pos : d.pos+end])
	d.pos += end + 1
	return s, nil
}

func (d *decoder) length() (int, error) {
	n, err := d.uint32()
	if err != nil {
		return 0, err
	}
	if int(n) > len(d.buf) {
		return 0, fmt.Errorf("%w: list length %d exceeds message", ErrMalformed, n)
	}
	return int(n), nil
}

func (d *decoder) value() (any, error) {
	b, err := d.byte()
	if err != nil {
		return nil, err
	}
	t := int8(b)

	switch {
	case t == -128:
		msg, err := d.symbol()
		if err != nil {
			return nil, err
		}
		return nil, &QError{Message: msg}

	case t < 0 && t >= -19:
		return d.atom(kdb.TypeCode(-t))

	case t >= 0 && t <= 19:
		return d.list(kdb.TypeCode(t))

	case t == 98:
		if _, err := d.byte(); err != nil { // attribute
			return nil, err
		}
		inner, err := d.value()
		if err != nil {
			return nil, err
		}
		dict, ok := inner.(*kdb.Dict)
		if !ok {
			return nil, fmt.Errorf("%w: table is not a flipped dictionary", ErrMalformed)
		}
		return &kdb.Table{Columns: kdb.Strings(dict.Keys), Data: listItems(dict.Values)}, nil

	case t == 99 || t == 127:
		keys, err := d.value()
		if err != nil {
			return nil, err
		}
		values, err := d.value()
		if err != nil {
			return nil, err
		}
		return &kdb.Dict{Keys: keys, Values: values, Sorted: t == 127}, nil
	}

	return d.function(t)
}

// function decodes the executable types 100-111.
func (d *decoder) function(t int8) (any, error) {
	code := kdb.TypeCode(uint8(t))
	switch {
	case code == 100:
		if _, err := d.symbol(); err != nil { // context
			return nil, err
		}
		body, err := d.value()
		if err != nil {
			return nil, err
		}
		text, _ := kdb.StringOf(body)
		return &kdb.Function{Type: code, Text: text}, nil

	case code >= 101 && code <= 103:
		op, err := d.byte()
		if err != nil {
			return nil, err
		}
		if code == 101 && op == 0 {
			// generic null (::)
			return nil, nil
		}
		return &kdb.Function{Type: code}, nil

	case code == 104 || code == 105:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if _, err := d.value(); err != nil {
				return nil, err
			}
		}
		return &kdb.Function{Type: code}, nil

	case code >= 106 && code <= 111:
		if _, err := d.value(); err != nil {
			return nil, err
		}
		return &kdb.Function{Type: code}, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, t)
}

func (d *decoder) list(t kdb.TypeCode) (any, error) {
	attr, err := d.byte()
	if err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}

	if t == kdb.TypeMixed {
		items := make(kdb.List, n)
		for i := range items {
			if items[i], err = d.value(); err != nil {
				return nil, err
			}
		}
		return items, nil
	}

	elems := make([]any, n)
	for i := range elems {
		if elems[i], err = d.atom(t); err != nil {
			return nil, err
		}
	}
	return &kdb.Vector{Type: t, Attribute: attr, Elems: elems}, nil
}

func (d *decoder) atom(t kdb.TypeCode) (any, error) {
	switch t {
	case kdb.TypeBoolean:
		b, err := d.byte()
		return b != 0, err
	case kdb.TypeGUID:
		if err := d.need(16); err != nil {
			return nil, err
		}
		var g uuid.UUID
		copy(g[:], d.buf[d.pos:d.pos+16])
		d.pos += 16
		return g, nil
	case kdb.TypeByte:
		return d.byte()
	case kdb.TypeShort:
		v, err := d.uint16()
		return int16(v), err
	case kdb.TypeInt:
		v, err := d.uint32()
		return int32(v), err
	case kdb.TypeLong:
		v, err := d.uint64()
		return int64(v), err
	case kdb.TypeReal:
		v, err := d.uint32()
		return math.Float32frombits(v), err
	case kdb.TypeFloat:
		v, err := d.uint64()
		return math.Float64frombits(v), err
	case kdb.TypeChar:
		b, err := d.byte()
		return kdb.Char(b), err
	case kdb.TypeSymbol:
		return d.symbol()
	case kdb.TypeTimestamp:
		v, err := d.uint64()
		return kdb.Timestamp(int64(v)), err
	case kdb.TypeMonth:
		v, err := d.uint32()
		return kdb.Month(int32(v)), err
	case kdb.TypeDate:
		v, err := d.uint32()
		return kdb.Date(int32(v)), err
	case kdb.TypeDatetime:
		v, err := d.uint64()
		return kdb.Datetime(math.Float64frombits(v)), err
	case kdb.TypeTimespan:
		v, err := d.uint64()
		return kdb.Timespan(int64(v)), err
	case kdb.TypeMinute:
		v, err := d.uint32()
		return kdb.Minute(int32(v)), err
	case kdb.TypeSecond:
		v, err := d.uint32()
		return kdb.Second(int32(v)), err
	case kdb.TypeTime:
		v, err := d.uint32()
		return kdb.Time(int32(v)), err
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, -int(t))
}

// listItems returns the items of a table's column list.
func listItems(v any) []any {
	switch x := v.(type) {
	case kdb.List:
		return x
	case *kdb.Vector:
		return x.Elems
	}
	return nil
}
