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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"kdb-q-console/internal/kdb"
)

// encoder appends little-endian q values to a buffer.
type encoder struct {
	buf []byte
}

// Encode serializes v as a message body. Go ints are sent as longs and
// strings as symbols; use kdb.CharVector for q strings.
func Encode(v any) ([]byte, error) {
	e := &encoder{}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func (e *encoder) byte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) uint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) uint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *encoder) symbol(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

func (e *encoder) value(v any) error {
	switch x := v.(type) {
	case nil:
		e.byte(101)
		e.byte(0)
		return nil

	case *kdb.Vector:
		return e.vector(x)

	case kdb.List:
		return e.list([]any(x))

	case []any:
		return e.list(x)

	case []string:
		e.byte(byte(kdb.TypeSymbol))
		e.byte(0)
		e.uint32(uint32(len(x)))
		for _, s := range x {
			e.symbol(s)
		}
		return nil

	case *kdb.Dict:
		if x.Sorted {
			e.byte(127)
		} else {
			e.byte(byte(kdb.TypeDict))
		}
		if err := e.value(x.Keys); err != nil {
			return err
		}
		return e.value(x.Values)

	case *kdb.Table:
		e.byte(byte(kdb.TypeTable))
		e.byte(0)
		e.byte(byte(kdb.TypeDict))
		if err := e.value(x.Columns); err != nil {
			return err
		}
		return e.list(x.Data)

	case *kdb.Function:
		if x.Type != kdb.TypeLambda || x.Text == "" {
			return fmt.Errorf("%w: function type %d", ErrUnsupportedType, x.Type)
		}
		e.byte(byte(kdb.TypeLambda))
		e.symbol("")
		return e.vector(kdb.CharVector(x.Text))
	}

	t := kdb.TypeOf(v)
	if !t.IsAtom() {
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	e.byte(byte(int8(t)))
	return e.atom(t.Abs(), v)
}

func (e *encoder) list(items []any) error {
	e.byte(byte(kdb.TypeMixed))
	e.byte(0)
	e.uint32(uint32(len(items)))
	for _, item := range items {
		if err := e.value(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) vector(v *kdb.Vector) error {
	if v.Type == kdb.TypeMixed {
		return e.list(v.Elems)
	}
	e.byte(byte(v.Type))
	e.byte(v.Attribute)
	e.uint32(uint32(len(v.Elems)))
	for _, el := range v.Elems {
		if err := e.atom(v.Type, el); err != nil {
			return err
		}
	}
	return nil
}

// atom writes the payload of an atom of type t without its type byte.
func (e *encoder) atom(t kdb.TypeCode, v any) error {
	switch x := v.(type) {
	case bool:
		if x {
			e.byte(1)
		} else {
			e.byte(0)
		}
	case uuid.UUID:
		e.buf = append(e.buf, x[:]...)
	case byte:
		e.byte(x)
	case int16:
		e.uint16(uint16(x))
	case int32:
		e.uint32(uint32(x))
	case int64:
		e.uint64(uint64(x))
	case int:
		e.uint64(uint64(int64(x)))
	case float32:
		e.uint32(math.Float32bits(x))
	case float64:
		e.uint64(math.Float64bits(x))
	case kdb.Char:
		e.byte(byte(x))
	case string:
		e.symbol(x)
	case kdb.Timestamp:
		e.uint64(uint64(x))
	case kdb.Month:
		e.uint32(uint32(x))
	case kdb.Date:
		e.uint32(uint32(x))
	case kdb.Datetime:
		e.uint64(math.Float64bits(float64(x)))
	case kdb.Timespan:
		e.uint64(uint64(x))
	case kdb.Minute:
		e.uint32(uint32(x))
	case kdb.Second:
		e.uint32(uint32(x))
	case kdb.Time:
		e.uint32(uint32(x))
	default:
		return fmt.Errorf("%w: %T in vector of type %d", ErrUnsupportedType, v, t)
	}
	return nil
}
