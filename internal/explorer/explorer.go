/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package explorer builds the tree of namespaces and their globals
// (variables and functions) defined on a connected q process.
package explorer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"kdb-q-console/internal/kdb"
)

// NamespaceQuery lists the globals of the root namespace (under the null
// symbol) and of every user namespace, skipping the system ones.
const NamespaceQuery = "{ns:`,{` sv `,x} each key[`] except `q`Q`h`j`o`z;" +
	" ns!{asc distinct (system \"v \",x),system \"f \",x} each string ns}[]"

// Querier evaluates q text and returns the decoded value.
type Querier interface {
	Query(ctx context.Context, text string) (any, error)
}

// Node is a namespace or a global. Globals are leaves labelled with their
// fully qualified name.
type Node struct {
	Label     string
	Namespace string
	Leaf      bool
	Children  []*Node
}

// Expandable reports whether the node has anything to show beneath it.
// Empty namespaces are not expandable.
func (n *Node) Expandable() bool {
	return len(n.Children) > 0
}

// Tree is the explorer contents for one connection.
type Tree struct {
	Nodes []*Node
}

// Load runs NamespaceQuery and builds the tree from its result.
func Load(ctx context.Context, q Querier) (*Tree, error) {
	v, err := q.Query(ctx, NamespaceQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return Build(v)
}

// Build arranges a namespace!names dictionary. Globals of the root
// namespace appear at the top level unqualified; every other namespace is
// a node holding its globals as ns.name leaves.
func Build(v any) (*Tree, error) {
	dict, ok := v.(*kdb.Dict)
	if !ok {
		return nil, fmt.Errorf("unexpected namespace listing of type %d", kdb.TypeOf(v))
	}

	tree := &Tree{}
	namespaces := kdb.Strings(dict.Keys)
	for i, ns := range namespaces {
		names := kdb.Strings(kdb.Index(dict.Values, i))
		if ns == "" || ns == "." {
			for _, name := range names {
				tree.Nodes = append(tree.Nodes, &Node{Label: name, Leaf: true})
			}
			continue
		}

		node := &Node{Label: ns, Namespace: ns}
		for _, name := range names {
			node.Children = append(node.Children, &Node{
				Label:     ns + "." + name,
				Namespace: ns,
				Leaf:      true,
			})
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree, nil
}

// Names returns the qualified name of every global, for completion.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	var names []string
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Leaf {
				names = append(names, n.Label)
			}
			walk(n.Children)
		}
	}
	walk(t.Nodes)
	return names
}

// Render writes the tree, one node per line, namespaces suffixed with a
// slash and their globals indented beneath.
func (t *Tree) Render(w io.Writer) error {
	if t == nil {
		return nil
	}
	for _, n := range t.Nodes {
		label := n.Label
		if !n.Leaf {
			label += "/"
		}
		if _, err := fmt.Fprintln(w, label); err != nil {
			return err
		}
		for _, c := range n.Children {
			if _, err := fmt.Fprintln(w, "  "+c.Label); err != nil {
				return err
			}
		}
	}
	return nil
}

// Filter returns the names starting with prefix.
func (t *Tree) Filter(prefix string) []string {
	var out []string
	for _, name := range t.Names() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}
