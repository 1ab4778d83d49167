/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package render turns classified query results into the console's three
// views: plain text, a JSON grid and a markdown document.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"kdb-q-console/internal/kdb"
)

// View selects how results are shown
type View string

const (
	ViewConsole  View = "console"
	ViewGrid     View = "grid"
	ViewDocument View = "document"
)

// Views lists the available views in display order
var Views = []View{ViewConsole, ViewGrid, ViewDocument}

// ParseView validates a view name
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q (must be console, grid or document)", s)
}

// Options controls rendering
type Options struct {
	Separator string
	MaxRows   int

	// Document view settings
	NoColor       bool
	MarkdownStyle string
	Width         int
}

func (o Options) format() kdb.FormatOptions {
	return kdb.FormatOptions{Separator: o.Separator, MaxRows: o.MaxRows}
}

// Text renders a result the way the q console prints it
func Text(res kdb.Result, opts Options) string {
	return kdb.Format(res, opts.format())
}

// GridColumn describes one grid column
type GridColumn struct {
	Field      string `json:"field"`
	HeaderName string `json:"headerName"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
}

// GridData is the JSON document behind the grid view
type GridData struct {
	Columns   []GridColumn        `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	Truncated int                 `json:"truncated,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// valueField names the single column used for non-tabular results
const valueField = "value"

// BuildGrid lays a result out as columns and rows of stringified cells.
// Vectors become one row per item and other values a single row.
func BuildGrid(res kdb.Result, maxRows int) *GridData {
	grid := &GridData{Columns: []GridColumn{}, Rows: []map[string]string{}}

	switch r := res.(type) {
	case *kdb.ErrorResult:
		grid.Error = r.Message

	case *kdb.TableResult:
		ft := r.Formatted(maxRows)
		for i, name := range ft.Headers {
			grid.Columns = append(grid.Columns, GridColumn{
				Field:      name,
				HeaderName: name,
				Type:       kdb.LookupTag(ft.Tags[i]).DisplayName,
				Key:        i < ft.KeyColumnCount,
			})
		}
		for _, cells := range ft.Cells {
			row := make(map[string]string, len(cells))
			for i, cell := range cells {
				row[ft.Headers[i]] = cell
			}
			grid.Rows = append(grid.Rows, row)
		}
		grid.Truncated = ft.Truncated

	case *kdb.VectorResult:
		desc := kdb.Lookup(r.Type)
		grid.Columns = append(grid.Columns, GridColumn{Field: valueField, HeaderName: valueField, Type: desc.DisplayName})
		values := r.Values
		if maxRows > 0 && len(values) > maxRows {
			grid.Truncated = len(values) - maxRows
			values = values[:maxRows]
		}
		for _, v := range values {
			grid.Rows = append(grid.Rows, map[string]string{valueField: kdb.StringifyCell(desc.Tag, v)})
		}

	case *kdb.ScalarResult:
		grid.Columns = append(grid.Columns, GridColumn{Field: valueField, HeaderName: valueField, Type: kdb.Lookup(r.Type).DisplayName})
		grid.Rows = append(grid.Rows, map[string]string{valueField: kdb.Format(r, kdb.FormatOptions{})})
	}

	return grid
}

// Grid renders a result as indented grid JSON
func Grid(res kdb.Result, opts Options) (string, error) {
	data, err := json.MarshalIndent(BuildGrid(res, opts.MaxRows), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode grid: %w", err)
	}
	return string(data), nil
}

// Markdown builds the document view source: the query in a q code block
// followed by its result
func Markdown(query string, res kdb.Result, opts Options) string {
	var sb strings.Builder
	if query != "" {
		sb.WriteString("```q\n")
		sb.WriteString(query)
		sb.WriteString("\n```\n\n")
	}
	sb.WriteString("```\n")
	sb.WriteString(Text(res, opts))
	sb.WriteString("\n```\n")
	return sb.String()
}

// Document renders the markdown document for the terminal. Without color
// the markdown is returned as is; if rendering fails the markdown is the
// fallback.
func Document(query string, res kdb.Result, opts Options) string {
	md := Markdown(query, res, opts)
	if opts.NoColor {
		return md
	}

	width := opts.Width
	if width <= 0 || width > 120 {
		width = 120
	}

	renderOpts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch opts.MarkdownStyle {
	case "", "auto":
		renderOpts = append(renderOpts, glamour.WithAutoStyle())
	default:
		renderOpts = append(renderOpts, glamour.WithStylePath(opts.MarkdownStyle))
	}

	r, err := glamour.NewTermRenderer(renderOpts...)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

// Render produces the output for a view
func Render(view View, query string, res kdb.Result, opts Options) (string, error) {
	switch view {
	case ViewGrid:
		return Grid(res, opts)
	case ViewDocument:
		return Document(query, res, opts), nil
	default:
		return Text(res, opts), nil
	}
}
