/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package session holds the state of one connection to a q process: the
// connection itself, the last result and the cached namespace tree.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kdb-q-console/internal/explorer"
	"kdb-q-console/internal/ipc"
	"kdb-q-console/internal/kdb"
	"kdb-q-console/internal/logging"
	"kdb-q-console/internal/servers"
)

// ErrNotConnected is returned when no session is open.
var ErrNotConnected = errors.New("not connected to a q process")

// Conn is the transport a session runs queries over.
type Conn interface {
	Query(ctx context.Context, text string) (any, error)
	Execute(ctx context.Context, text string) (*kdb.Envelope, error)
	Close() error
}

// Dialer opens a transport to a server.
type Dialer func(ctx context.Context, opts ipc.Options) (Conn, error)

// DialIPC is the default Dialer.
func DialIPC(ctx context.Context, opts ipc.Options) (Conn, error) {
	c, err := ipc.Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures how sessions connect.
type Options struct {
	Timeout    time.Duration
	Capability byte

	// Decrypter resolves enc: passwords; nil when no secret is configured.
	Decrypter servers.Decrypter

	// Dial defaults to DialIPC.
	Dial Dialer
}

// Execution is the outcome of one query.
type Execution struct {
	Query    string
	Envelope *kdb.Envelope
	Elapsed  time.Duration
}

// Session is an open connection to one server.
type Session struct {
	server servers.Server
	conn   Conn

	mu         sync.Mutex
	last       *Execution
	namespaces *explorer.Tree
}

// Open connects to server.
func Open(ctx context.Context, server servers.Server, opts Options) (*Session, error) {
	resolved, err := server.Resolve(opts.Decrypter)
	if err != nil {
		return nil, err
	}

	dial := opts.Dial
	if dial == nil {
		dial = DialIPC
	}

	conn, err := dial(ctx, ipc.Options{
		Host:       resolved.Host,
		Port:       resolved.Port,
		User:       resolved.User,
		Password:   resolved.Password,
		Timeout:    opts.Timeout,
		Capability: opts.Capability,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", server.Label(), err)
	}

	logging.Info("session_opened", "server", server.Label(), "user", server.User)
	return &Session{server: server, conn: conn}, nil
}

// Server returns the server the session is connected to.
func (s *Session) Server() servers.Server {
	return s.server
}

// Execute runs q text and retains the result as Last. Query errors are
// reported in the envelope; the error return is for transport failures.
func (s *Session) Execute(ctx context.Context, text string) (*Execution, error) {
	start := time.Now()
	env, err := s.conn.Execute(ctx, text)
	if err != nil {
		logging.Warn("query_failed", "server", s.server.Label(), "error", err)
		return nil, err
	}

	exec := &Execution{Query: text, Envelope: env, Elapsed: time.Since(start)}
	logging.Debug("query_executed",
		"server", s.server.Label(),
		"success", env.Success,
		"rows", len(env.Rows),
		"elapsed_ms", exec.Elapsed.Milliseconds(),
	)

	s.mu.Lock()
	s.last = exec
	s.mu.Unlock()
	return exec, nil
}

// Last returns the most recent execution, or nil.
func (s *Session) Last() *Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Namespaces returns the namespace tree, loading it on first use or when
// refresh is set.
func (s *Session) Namespaces(ctx context.Context, refresh bool) (*explorer.Tree, error) {
	s.mu.Lock()
	cached := s.namespaces
	s.mu.Unlock()
	if cached != nil && !refresh {
		return cached, nil
	}

	tree, err := explorer.Load(ctx, s.conn)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.namespaces = tree
	s.mu.Unlock()
	return tree, nil
}

// CachedNamespaces returns the namespace tree if it has been loaded.
func (s *Session) CachedNamespaces() *explorer.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namespaces
}

// Close closes the connection.
func (s *Session) Close() error {
	logging.Info("session_closed", "server", s.server.Label())
	return s.conn.Close()
}

// Manager owns the current session. Connecting closes the previous session
// first so at most one connection is open.
type Manager struct {
	opts Options

	mu      sync.Mutex
	current *Session
}

// NewManager creates a manager with no session.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Connect closes the current session, if any, and opens a new one.
func (m *Manager) Connect(ctx context.Context, server servers.Server) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Close(); err != nil {
			logging.Warn("session_close_failed", "server", m.current.server.Label(), "error", err)
		}
		m.current = nil
	}

	s, err := Open(ctx, server, m.opts)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Current returns the open session or ErrNotConnected.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNotConnected
	}
	return m.current, nil
}

// Disconnect closes the current session. It is a no-op when none is open.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// SetOptions replaces the options used for subsequent connections.
func (m *Manager) SetOptions(opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
}
