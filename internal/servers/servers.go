/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package servers parses configured connection strings and arranges them
// into the tree shown by the servers command.
package servers

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EncryptedPrefix marks a password stored encrypted in the config file.
const EncryptedPrefix = "enc:"

// Server is a parsed connection string of the form
// host:port[:user[:password]].
type Server struct {
	Host     string
	Port     int
	User     string
	Password string

	// Raw is the connection string as configured.
	Raw string
}

// Decrypter decrypts passwords stored with EncryptedPrefix.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Parse parses a connection string. The password may itself contain
// colons.
func Parse(raw string) (Server, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 4)
	if len(parts) < 2 || parts[0] == "" {
		return Server{}, fmt.Errorf("invalid server %q: expected host:port[:user[:password]]", raw)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port <= 0 || port > 65535 {
		return Server{}, fmt.Errorf("invalid port in server %q", raw)
	}

	s := Server{Host: parts[0], Port: port, Raw: strings.TrimSpace(raw)}
	if len(parts) > 2 {
		s.User = parts[2]
	}
	if len(parts) > 3 {
		s.Password = parts[3]
	}
	return s, nil
}

// ParseAll parses a list of connection strings, stopping at the first
// invalid entry.
func ParseAll(raw []string) ([]Server, error) {
	list := make([]Server, 0, len(raw))
	for _, r := range raw {
		s, err := Parse(r)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// Label is the host:port shown for a server.
func (s Server) Label() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Description shows the user with the password masked, or nothing when no
// user is configured.
func (s Server) Description() string {
	if s.User == "" {
		return ""
	}
	password := s.Password
	if strings.HasPrefix(password, EncryptedPrefix) {
		password = "********"
	}
	return s.User + ":" + strings.Repeat("*", len(password))
}

// Encrypted reports whether the password needs decrypting before use.
func (s Server) Encrypted() bool {
	return strings.HasPrefix(s.Password, EncryptedPrefix)
}

// Resolve returns a copy of s with an encrypted password decrypted.
func (s Server) Resolve(d Decrypter) (Server, error) {
	if !s.Encrypted() {
		return s, nil
	}
	if d == nil {
		return s, fmt.Errorf("server %s has an encrypted password but no secret is configured", s.Label())
	}
	plain, err := d.Decrypt(strings.TrimPrefix(s.Password, EncryptedPrefix))
	if err != nil {
		return s, fmt.Errorf("failed to decrypt password for %s: %w", s.Label(), err)
	}
	s.Password = plain
	return s, nil
}

// GroupMode selects how the server tree is arranged.
type GroupMode string

const (
	GroupNone     GroupMode = "none"
	GroupHostname GroupMode = "hostname"
)

// ParseGroupMode accepts the mode names case-insensitively; an empty
// string means GroupNone.
func ParseGroupMode(s string) (GroupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(GroupNone):
		return GroupNone, nil
	case string(GroupHostname):
		return GroupHostname, nil
	}
	return "", fmt.Errorf("invalid server group mode %q (must be none or hostname)", s)
}

// Node is an entry of the server tree: either a server leaf or a host
// group holding leaves. Index is the leaf's 1-based position in the
// configured list.
type Node struct {
	Label    string
	Index    int
	Server   *Server
	Children []*Node
}

// IsLeaf reports whether the node is a server.
func (n *Node) IsLeaf() bool {
	return n.Server != nil
}

// BuildTree arranges servers for display. In hostname mode servers are
// grouped by host in order of first appearance; a single group is shown
// as its servers directly.
func BuildTree(list []Server, mode GroupMode) []*Node {
	all := make([]*Node, len(list))
	for i := range list {
		s := list[i]
		all[i] = &Node{Label: s.Label(), Index: i + 1, Server: &s}
	}
	if mode != GroupHostname {
		return all
	}

	var hosts []string
	groups := make(map[string][]*Node)
	for _, n := range all {
		h := n.Server.Host
		if _, ok := groups[h]; !ok {
			hosts = append(hosts, h)
		}
		groups[h] = append(groups[h], n)
	}

	if len(hosts) == 1 {
		return groups[hosts[0]]
	}

	nodes := make([]*Node, 0, len(hosts))
	for _, h := range hosts {
		nodes = append(nodes, &Node{Label: h, Children: groups[h]})
	}
	return nodes
}

// RenderTree writes the tree with two spaces of indentation per level.
// Leaves carry their index for Select.
func RenderTree(w io.Writer, nodes []*Node) error {
	return renderNodes(w, nodes, 0)
}

func renderNodes(w io.Writer, nodes []*Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		var err error
		if n.IsLeaf() {
			line := fmt.Sprintf("%s[%d] %s", indent, n.Index, n.Label)
			if d := n.Server.Description(); d != "" {
				line += "  " + d
			}
			_, err = fmt.Fprintln(w, line)
		} else {
			if _, err = fmt.Fprintf(w, "%s%s/\n", indent, n.Label); err == nil {
				err = renderNodes(w, n.Children, depth+1)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Select finds a server by 1-based index into the list, by its raw
// connection string or by its host:port label.
func Select(list []Server, key string) (Server, bool) {
	if i, err := strconv.Atoi(key); err == nil {
		if i >= 1 && i <= len(list) {
			return list[i-1], true
		}
		return Server{}, false
	}
	for _, s := range list {
		if s.Raw == key || s.Label() == key {
			return s, true
		}
	}
	return Server{}, false
}
