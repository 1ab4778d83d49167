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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"kdb-q-console/internal/kdb"
	"kdb-q-console/internal/logging"
)

// DefaultTimeout bounds dialing and the login handshake when Options does
// not set one.
const DefaultTimeout = 10 * time.Second

// Options describes how to reach and log in to a q process.
type Options struct {
	Host       string
	Port       int
	User       string
	Password   string
	Timeout    time.Duration
	Capability byte
}

func (o Options) address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Conn is a client connection to a q process. Only one request is in flight
// at a time; concurrent callers are serialized.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	addr   string
	closed bool
}

// Dial connects to the q process described by opts and performs the login
// handshake.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}

	addr := opts.address()
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, err := NewConn(ctx, nc, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

// NewConn performs the login handshake over an established transport.
func NewConn(ctx context.Context, nc net.Conn, opts Options) (*Conn, error) {
	capability := opts.Capability
	if capability == 0 {
		capability = DefaultCapability
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := nc.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
	}

	creds := opts.User
	if opts.Password != "" {
		creds += ":" + opts.Password
	}
	login := append([]byte(creds), capability, 0)
	if _, err := nc.Write(login); err != nil {
		return nil, fmt.Errorf("failed to send login: %w", err)
	}

	reply := make([]byte, 1)
	if _, err := io.ReadFull(nc, reply); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("failed to read login reply: %w", err)
	}

	if err := nc.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("failed to clear handshake deadline: %w", err)
	}

	addr := nc.RemoteAddr().String()
	logging.Debug("kdb_connected", "addr", addr, "capability", reply[0])
	return &Conn{conn: nc, addr: addr}, nil
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() string {
	return c.addr
}

// Query sends q source text for evaluation and returns the decoded result.
func (c *Conn) Query(ctx context.Context, text string) (any, error) {
	v, _, err := c.request(ctx, kdb.CharVector(text))
	return v, err
}

// Call applies fn (a function name or lambda source) to args on the server.
func (c *Conn) Call(ctx context.Context, fn string, args ...any) (any, error) {
	v, _, err := c.call(ctx, fn, args...)
	return v, err
}

// call is Call that also reports the size of the reply on the wire.
func (c *Conn) call(ctx context.Context, fn string, args ...any) (any, int, error) {
	msg := make(kdb.List, 0, len(args)+1)
	msg = append(msg, kdb.CharVector(fn))
	msg = append(msg, args...)
	return c.request(ctx, msg)
}

// Async sends a message without waiting for a reply.
func (c *Conn) Async(ctx context.Context, text string) error {
	body, err := Encode(kdb.CharVector(text))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	defer c.conn.SetDeadline(time.Time{})

	if _, err := c.conn.Write(frame(MsgAsync, body)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Conn) request(ctx context.Context, v any) (any, int, error) {
	body, err := Encode(v)
	if err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, ErrClosed
	}
	if err := c.applyDeadline(ctx); err != nil {
		return nil, 0, err
	}
	defer c.conn.SetDeadline(time.Time{})

	if _, err := c.conn.Write(frame(MsgSync, body)); err != nil {
		return nil, 0, fmt.Errorf("failed to send query: %w", err)
	}

	r := &countingReader{r: c.conn}
	for {
		r.n = 0
		msgType, reply, order, err := readMessage(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, 0, ErrClosed
			}
			return nil, 0, fmt.Errorf("failed to read response: %w", err)
		}
		if msgType != MsgResponse {
			logging.Debug("kdb_message_skipped", "addr", c.addr, "type", msgType, "bytes", r.n)
			continue
		}
		logging.Debug("kdb_response", "addr", c.addr, "bytes", r.n)
		decoded, err := Decode(reply, order)
		return decoded, r.n, err
	}
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += n
	return n, err
}

// applyDeadline maps the context deadline onto the socket.
func (c *Conn) applyDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	return c.conn.SetDeadline(d)
}

// Close closes the connection. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	logging.Debug("kdb_disconnected", "addr", c.addr)
	return c.conn.Close()
}
