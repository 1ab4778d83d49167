/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package explorer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"kdb-q-console/internal/kdb"
)

func listing() *kdb.Dict {
	return &kdb.Dict{
		Keys: kdb.NewVector(kdb.TypeSymbol, "", ".util", ".empty"),
		Values: kdb.List{
			kdb.NewVector(kdb.TypeSymbol, "trade", "vwap"),
			kdb.NewVector(kdb.TypeSymbol, "fmt"),
			kdb.NewVector(kdb.TypeSymbol),
		},
	}
}

type fakeQuerier struct {
	value any
	err   error
	query string
}

func (f *fakeQuerier) Query(_ context.Context, text string) (any, error) {
	f.query = text
	return f.value, f.err
}

func TestBuild(t *testing.T) {
	tree, err := Build(listing())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tree.Nodes) != 4 {
		t.Fatalf("len(Nodes) = %d, want 4", len(tree.Nodes))
	}
	if n := tree.Nodes[0]; n.Label != "trade" || !n.Leaf {
		t.Errorf("Nodes[0] = %+v, want root leaf trade", n)
	}
	util := tree.Nodes[2]
	if util.Label != ".util" || util.Leaf || !util.Expandable() {
		t.Errorf("Nodes[2] = %+v, want expandable .util", util)
	}
	if util.Children[0].Label != ".util.fmt" {
		t.Errorf("child label = %q, want %q", util.Children[0].Label, ".util.fmt")
	}
	if empty := tree.Nodes[3]; empty.Leaf || empty.Expandable() {
		t.Errorf("Nodes[3] = %+v, want non-expandable namespace", empty)
	}
}

func TestBuildRejectsNonDict(t *testing.T) {
	if _, err := Build(int64(1)); err == nil {
		t.Error("Build() expected error for non-dictionary")
	}
}

func TestNamesAndFilter(t *testing.T) {
	tree, _ := Build(listing())
	want := []string{"trade", "vwap", ".util.fmt"}
	if got := tree.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got := tree.Filter(".u"); !reflect.DeepEqual(got, []string{".util.fmt"}) {
		t.Errorf("Filter() = %v", got)
	}
	var nilTree *Tree
	if got := nilTree.Names(); got != nil {
		t.Errorf("nil Names() = %v, want nil", got)
	}
}

func TestRender(t *testing.T) {
	tree, _ := Build(listing())
	var sb strings.Builder
	if err := tree.Render(&sb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "trade\nvwap\n.util/\n  .util.fmt\n.empty/\n"
	if sb.String() != want {
		t.Errorf("Render() = %q, want %q", sb.String(), want)
	}
}

func TestLoad(t *testing.T) {
	q := &fakeQuerier{value: listing()}
	tree, err := Load(context.Background(), q)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if q.query != NamespaceQuery {
		t.Errorf("query = %q, want NamespaceQuery", q.query)
	}
	if len(tree.Names()) != 3 {
		t.Errorf("Names() = %v", tree.Names())
	}

	failing := &fakeQuerier{err: errors.New("closed")}
	if _, err := Load(context.Background(), failing); err == nil {
		t.Error("Load() expected error")
	}
}
