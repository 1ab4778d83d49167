/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package kdb

import "kdb-q-console/internal/tablefmt"

// ErrorMarker prefixes error messages, as the q console does.
const ErrorMarker = "'"

// FormatOptions controls text rendering.
type FormatOptions struct {
	// Separator joins table cells; a single space when empty.
	Separator string
	// MaxRows caps the number of table rows shown; 0 shows all.
	MaxRows int
}

// FormattedTable is a table whose cells have all been stringified.
type FormattedTable struct {
	Headers        []string
	Tags           []byte
	Alignment      []tablefmt.Align
	KeyColumnCount int
	Cells          [][]string
	// Truncated is the number of rows dropped by MaxRows.
	Truncated int
}

// Format renders a classified result as text.
func Format(res Result, opts FormatOptions) string {
	switch r := res.(type) {
	case *ErrorResult:
		return ErrorMarker + r.Message
	case *ScalarResult:
		return formatScalar(r)
	case *VectorResult:
		return StringifyVector(Lookup(r.Type).Tag, r.Values)
	case *TableResult:
		ft := r.Formatted(opts.MaxRows)
		out := tablefmt.FormatCells(ft.Spec(opts.Separator), ft.Cells)
		if ft.Truncated > 0 {
			out += "\n.."
		}
		return out
	}
	return ""
}

// FormatEnvelope classifies and renders an envelope in one step.
func FormatEnvelope(env *Envelope, opts FormatOptions) string {
	return Format(Classify(env), opts)
}

func formatScalar(r *ScalarResult) string {
	switch v := r.Value.(type) {
	case *Dict:
		return formatSide(v.Keys) + "!" + formatSide(v.Values)
	case byte:
		return "0x" + Stringify('x', v)
	case *Table:
		return NestedMarker
	}
	return Stringify(Lookup(r.Type).Tag, r.Value)
}

// formatSide renders one side of a dictionary a single level deep.
func formatSide(v any) string {
	switch x := v.(type) {
	case *Vector:
		return StringifyVector(Lookup(x.Type).Tag, x.Elems)
	case List:
		return StringifyVector(' ', x)
	}
	return Stringify(Lookup(TypeOf(v)).Tag, v)
}

// Formatted stringifies every cell of the table, keeping at most maxRows
// rows when maxRows is positive.
func (t *TableResult) Formatted(maxRows int) *FormattedTable {
	ft := &FormattedTable{
		Headers:        make([]string, len(t.Columns)),
		Tags:           make([]byte, len(t.Columns)),
		Alignment:      make([]tablefmt.Align, len(t.Columns)),
		KeyColumnCount: t.KeyColumnCount,
	}
	for i, col := range t.Columns {
		ft.Headers[i] = col.Name
		ft.Tags[i] = col.TypeTag
		ft.Alignment[i] = AlignmentFor(col.TypeTag)
	}

	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		ft.Truncated = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	ft.Cells = make([][]string, len(rows))
	for r, row := range rows {
		line := make([]string, len(t.Columns))
		for c, col := range t.Columns {
			line[c] = StringifyCell(col.TypeTag, row[col.Name])
		}
		ft.Cells[r] = line
	}
	return ft
}

// Spec returns the layout for the table formatter.
func (ft *FormattedTable) Spec(separator string) tablefmt.Spec {
	return tablefmt.Spec{
		Headers:    ft.Headers,
		Alignment:  ft.Alignment,
		KeyColumns: ft.KeyColumnCount,
		Separator:  separator,
	}
}

// AlignmentFor picks the alignment of a column from its meta type tag:
// floating point lines up on the decimal point, integers are right-aligned
// and everything else, including vector columns, is left-aligned.
func AlignmentFor(tag byte) tablefmt.Align {
	switch tag {
	case 'f', 'e':
		return tablefmt.AlignDecimal
	case 'h', 'i', 'j':
		return tablefmt.AlignRight
	}
	return tablefmt.AlignLeft
}
