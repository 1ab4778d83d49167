/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package session

import (
	"context"
	"errors"
	"testing"

	"kdb-q-console/internal/ipc"
	"kdb-q-console/internal/kdb"
	"kdb-q-console/internal/servers"
)

type fakeConn struct {
	opts    ipc.Options
	closed  bool
	queries int
	failing bool
}

func (f *fakeConn) Query(_ context.Context, text string) (any, error) {
	f.queries++
	return &kdb.Dict{
		Keys:   kdb.NewVector(kdb.TypeSymbol, ""),
		Values: kdb.List{kdb.NewVector(kdb.TypeSymbol, "trade")},
	}, nil
}

func (f *fakeConn) Execute(_ context.Context, text string) (*kdb.Envelope, error) {
	if f.failing {
		return nil, ipc.ErrClosed
	}
	return kdb.Normalize(int64(len(text))), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// recorder is a Dialer that hands out fake connections
type recorder struct {
	conns []*fakeConn
	err   error
}

func (r *recorder) dial(_ context.Context, opts ipc.Options) (Conn, error) {
	if r.err != nil {
		return nil, r.err
	}
	c := &fakeConn{opts: opts}
	r.conns = append(r.conns, c)
	return c, nil
}

type prefixDecrypter struct{}

func (prefixDecrypter) Decrypt(s string) (string, error) { return "plain-" + s, nil }

func mustParse(t *testing.T, raw string) servers.Server {
	t.Helper()
	s, err := servers.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", raw, err)
	}
	return s
}

func TestOpen(t *testing.T) {
	r := &recorder{}
	s, err := Open(context.Background(), mustParse(t, "kdb1:5001:trader:enc:xyz"), Options{
		Capability: 3,
		Decrypter:  prefixDecrypter{},
		Dial:       r.dial,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	opts := r.conns[0].opts
	if opts.Host != "kdb1" || opts.Port != 5001 || opts.User != "trader" || opts.Password != "plain-xyz" || opts.Capability != 3 {
		t.Errorf("dial options = %+v", opts)
	}
	if s.Server().Label() != "kdb1:5001" {
		t.Errorf("Server() = %v", s.Server())
	}
}

func TestOpenErrors(t *testing.T) {
	r := &recorder{err: errors.New("refused")}
	if _, err := Open(context.Background(), mustParse(t, "kdb1:5001"), Options{Dial: r.dial}); err == nil {
		t.Error("Open() expected dial error")
	}

	r = &recorder{}
	if _, err := Open(context.Background(), mustParse(t, "kdb1:5001:u:enc:xyz"), Options{Dial: r.dial}); err == nil {
		t.Error("Open() expected error without a decrypter")
	}
	if len(r.conns) != 0 {
		t.Error("Open() dialed despite the password error")
	}
}

func TestExecuteRetainsLast(t *testing.T) {
	r := &recorder{}
	s, _ := Open(context.Background(), mustParse(t, "kdb1:5001"), Options{Dial: r.dial})

	if s.Last() != nil {
		t.Error("Last() before any query should be nil")
	}
	exec, err := s.Execute(context.Background(), "til 10")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.Envelope.Value != int64(6) || exec.Query != "til 10" {
		t.Errorf("Execute() = %+v", exec)
	}
	if s.Last() != exec {
		t.Error("Last() did not return the latest execution")
	}

	r.conns[0].failing = true
	if _, err := s.Execute(context.Background(), "1"); !errors.Is(err, ipc.ErrClosed) {
		t.Errorf("Execute() error = %v, want ErrClosed", err)
	}
	if s.Last() != exec {
		t.Error("failed execution replaced Last()")
	}
}

func TestNamespacesCached(t *testing.T) {
	r := &recorder{}
	s, _ := Open(context.Background(), mustParse(t, "kdb1:5001"), Options{Dial: r.dial})

	if s.CachedNamespaces() != nil {
		t.Error("CachedNamespaces() before load should be nil")
	}
	tree, err := s.Namespaces(context.Background(), false)
	if err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	if names := tree.Names(); len(names) != 1 || names[0] != "trade" {
		t.Errorf("Names() = %v", names)
	}

	s.Namespaces(context.Background(), false)
	if r.conns[0].queries != 1 {
		t.Errorf("queries = %d, want 1 (cached)", r.conns[0].queries)
	}
	s.Namespaces(context.Background(), true)
	if r.conns[0].queries != 2 {
		t.Errorf("queries = %d, want 2 after refresh", r.conns[0].queries)
	}
}

func TestManager(t *testing.T) {
	r := &recorder{}
	m := NewManager(Options{Dial: r.dial})

	if _, err := m.Current(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Current() error = %v, want ErrNotConnected", err)
	}
	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect() with no session error = %v", err)
	}

	first, err := m.Connect(context.Background(), mustParse(t, "a:1"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	second, err := m.Connect(context.Background(), mustParse(t, "b:2"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !r.conns[0].closed {
		t.Error("reconnect did not close the previous connection")
	}
	if cur, _ := m.Current(); cur != second || cur == first {
		t.Error("Current() is not the latest session")
	}

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !r.conns[1].closed {
		t.Error("Disconnect() did not close the connection")
	}

	// A failed connect leaves no session behind
	r.err = errors.New("refused")
	if _, err := m.Connect(context.Background(), mustParse(t, "c:3")); err == nil {
		t.Error("Connect() expected error")
	}
	if _, err := m.Current(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Current() after failed connect error = %v", err)
	}
}
