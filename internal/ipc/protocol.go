/*-------------------------------------------------------------------------
 *
 * kdb+/q Console - IPC Protocol
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package ipc implements the client side of the kdb+ IPC protocol: the
// login handshake, message framing, compression and the binary encoding of
// q values.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Message types carried in byte 1 of the header
const (
	MsgAsync    byte = 0
	MsgSync     byte = 1
	MsgResponse byte = 2
)

const (
	headerSize = 8

	// DefaultCapability requests protocol version 3 (timestamps, timespans,
	// guids and compression).
	DefaultCapability byte = 3

	// maxMessageSize bounds the memory a single response may claim.
	maxMessageSize = 1<<31 - 1

	// maxExpansion bounds how much compressed input can grow: at best
	// a flag byte and eight 2-byte back references yield 8*257 bytes.
	maxExpansion = 128
)

var (
	// ErrAuthFailed is returned when the server closes the connection
	// during the login handshake.
	ErrAuthFailed = errors.New("kdb+ authentication failed")

	// ErrClosed is returned for operations on a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrUnsupportedType is returned when a value of an unknown type code is
	// encountered on the wire or asked to be encoded.
	ErrUnsupportedType = errors.New("unsupported kdb+ type")

	// ErrMalformed is returned for truncated or inconsistent messages.
	ErrMalformed = errors.New("malformed kdb+ message")
)

// QError is an error raised by the server while evaluating a query.
type QError struct {
	Message string
}

func (e *QError) Error() string {
	return "'" + e.Message
}

// header is the fixed 8-byte prefix of every message.
type header struct {
	order      binary.ByteOrder
	msgType    byte
	compressed bool
	length     int
}

func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, fmt.Errorf("%w: short header", ErrMalformed)
	}
	h := header{
		order:      binary.BigEndian,
		msgType:    b[1],
		compressed: b[2] == 1,
	}
	if b[0] == 1 {
		h.order = binary.LittleEndian
	}
	h.length = int(h.order.Uint32(b[4:8]))
	if h.length < headerSize || h.length > maxMessageSize {
		return header{}, fmt.Errorf("%w: message length %d", ErrMalformed, h.length)
	}
	return h, nil
}

// readMessage reads one framed message and returns its type, body (without
// header, decompressed) and byte order.
func readMessage(r io.Reader) (byte, []byte, binary.ByteOrder, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, nil, nil, err
	}
	h, err := parseHeader(hdr)
	if err != nil {
		return 0, nil, nil, err
	}

	msg := make([]byte, h.length)
	copy(msg, hdr)
	if _, err := io.ReadFull(r, msg[headerSize:]); err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read message body: %w", err)
	}

	if h.compressed {
		msg, err = decompress(msg, h.order)
		if err != nil {
			return 0, nil, nil, err
		}
	}
	return h.msgType, msg[headerSize:], h.order, nil
}

// frame prefixes an encoded body with a little-endian header.
func frame(msgType byte, body []byte) []byte {
	msg := make([]byte, headerSize, headerSize+len(body))
	msg[0] = 1
	msg[1] = msgType
	binary.LittleEndian.PutUint32(msg[4:8], uint32(headerSize+len(body)))
	return append(msg, body...)
}

// decompress expands a compressed message. The result includes the 8-byte
// header; the uncompressed length is stored right after the header.
func decompress(msg []byte, order binary.ByteOrder) ([]byte, error) {
	if len(msg) < headerSize+4 {
		return nil, fmt.Errorf("%w: short compressed message", ErrMalformed)
	}
	size := int(order.Uint32(msg[8:12]))
	if size < headerSize || size > maxMessageSize || size-headerSize > (len(msg)-12)*maxExpansion {
		return nil, fmt.Errorf("%w: uncompressed length %d", ErrMalformed, size)
	}

	dst := make([]byte, size)
	copy(dst, msg[:headerSize])

	var hash [256]int
	s, p, d := headerSize, headerSize, 12
	flags, bit := 0, 0

	for s < size {
		if bit == 0 {
			if d >= len(msg) {
				return nil, fmt.Errorf("%w: compressed data truncated", ErrMalformed)
			}
			flags = int(msg[d])
			d++
			bit = 1
		}

		n := 0
		if flags&bit != 0 {
			if d+1 >= len(msg) {
				return nil, fmt.Errorf("%w: compressed data truncated", ErrMalformed)
			}
			r := hash[msg[d]]
			n = int(msg[d+1])
			d += 2
			if s+2+n > size {
				return nil, fmt.Errorf("%w: bad back reference", ErrMalformed)
			}
			dst[s] = dst[r]
			dst[s+1] = dst[r+1]
			s += 2
			r += 2
			for m := 0; m < n; m++ {
				dst[s+m] = dst[r+m]
			}
		} else {
			if d >= len(msg) {
				return nil, fmt.Errorf("%w: compressed data truncated", ErrMalformed)
			}
			dst[s] = msg[d]
			s++
			d++
		}

		for p < s-1 {
			hash[dst[p]^dst[p+1]] = p
			p++
		}
		if flags&bit != 0 {
			s += n
			p = s
		}

		bit <<= 1
		if bit == 256 {
			bit = 0
		}
	}

	// The header of the expanded message describes the expanded body.
	dst[2] = 0
	order.PutUint32(dst[4:8], uint32(size))
	return dst, nil
}
