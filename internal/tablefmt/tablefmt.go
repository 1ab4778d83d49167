/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package tablefmt renders rows of pre-formatted cells as a monospaced,
// aligned text table in the style of the q console.
package tablefmt

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Align is a column alignment mode.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
	// AlignDecimal lines up the decimal points of a column.
	AlignDecimal
)

// DefaultSeparator joins cells within a line.
const DefaultSeparator = " "

// KeyMarker is inserted between the key and value columns of keyed tables.
const KeyMarker = "|"

// Spec describes how to lay out a table.
type Spec struct {
	Headers   []string
	Alignment []Align
	// KeyColumns is the number of leading key columns; 0 for none.
	KeyColumns int
	// Separator joins cells; DefaultSeparator when empty.
	Separator string
}

// Row maps header names to formatted cells.
type Row map[string]string

// Format lays out rows addressed by header name.
func Format(spec Spec, rows []Row) string {
	cells := make([][]string, len(rows))
	for r, row := range rows {
		line := make([]string, len(spec.Headers))
		for c, h := range spec.Headers {
			line[c] = row[h]
		}
		cells[r] = line
	}
	return FormatCells(spec, cells)
}

// FormatCells lays out positional rows. Rows may be shorter or longer than
// the header list; missing cells are empty and extra columns get an empty
// header.
func FormatCells(spec Spec, rows [][]string) string {
	sep := spec.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	ncols := len(spec.Headers)
	for _, row := range rows {
		if len(row) > ncols {
			ncols = len(row)
		}
	}
	if ncols == 0 {
		return ""
	}

	headers := make([]string, ncols)
	copy(headers, spec.Headers)
	aligns := make([]Align, ncols)
	copy(aligns, spec.Alignment)

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, ncols)
		copy(cells[r], row)
	}

	for c := 0; c < ncols; c++ {
		if aligns[c] == AlignDecimal {
			alignDecimalColumn(cells, c)
		}
	}

	widths := computeColumnWidths(headers, cells)

	lines := make([]string, 0, len(cells)+2)
	header := make([]string, ncols)
	for c, h := range headers {
		al := aligns[c]
		if al == AlignDecimal {
			al = AlignLeft
		}
		header[c] = alignValue(h, widths[c], al)
	}
	headerLine := strings.Join(header, sep)
	lines = append(lines, headerLine, strings.Repeat("-", runewidth.StringWidth(headerLine)))

	for _, row := range cells {
		out := make([]string, ncols)
		for c, cell := range row {
			al := aligns[c]
			if al == AlignDecimal {
				// Decimal cells are already padded among themselves; only
				// the header may still be wider.
				al = AlignLeft
			}
			out[c] = alignValue(cell, widths[c], al)
		}
		lines = append(lines, strings.Join(out, sep))
	}

	if k := spec.KeyColumns; k > 0 && k <= ncols {
		offset := keyOffset(widths[:k], runewidth.StringWidth(sep))
		for i, line := range lines {
			lines[i] = insertAt(line, offset, KeyMarker)
		}
	}

	return strings.Join(lines, "\n")
}

// computeColumnWidths returns, per column, the widest of its header and
// cells, measured in terminal cells.
func computeColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for c, h := range headers {
		widths[c] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for c, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}
	return widths
}

// alignDecimalColumn pads column c so that every decimal point sits at the
// same position. A value without a fractional part reserves the point's
// position plus the widest fraction on its right.
func alignDecimalColumn(rows [][]string, c int) {
	maxLeft, maxRight := 0, 0
	for _, row := range rows {
		left, right, ok := splitDecimal(row[c])
		if left > maxLeft {
			maxLeft = left
		}
		if ok {
			if right > maxRight {
				maxRight = right
			}
		}
	}

	for _, row := range rows {
		cell := row[c]
		left, right, ok := splitDecimal(cell)
		// Whole numbers keep a blank where the point would be
		trailing := maxRight + 1
		if ok {
			trailing = maxRight - right
		}
		row[c] = strings.Repeat(" ", maxLeft-left) + cell + strings.Repeat(" ", trailing)
	}
}

// splitDecimal returns the widths left and right of the decimal point. Text
// that does not parse as a number, or has no point, is all "left".
func splitDecimal(s string) (left, right int, hasPoint bool) {
	w := runewidth.StringWidth(s)
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return w, 0, false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return w, 0, false
	}
	return idx, len(s) - idx - 1, true
}

// alignValue pads s to width according to al. Center puts the odd space on
// the right.
func alignValue(s string, width int, al Align) string {
	padding := width - runewidth.StringWidth(s)
	if padding <= 0 {
		return s
	}

	switch al {
	case AlignRight:
		return strings.Repeat(" ", padding) + s
	case AlignCenter:
		leftPad := padding / 2
		return strings.Repeat(" ", leftPad) + s + strings.Repeat(" ", padding-leftPad)
	default:
		return s + strings.Repeat(" ", padding)
	}
}

// keyOffset returns the display column at which the key columns end.
func keyOffset(keyWidths []int, sepWidth int) int {
	offset := 0
	for i, w := range keyWidths {
		offset += w
		if i > 0 {
			offset += sepWidth
		}
	}
	return offset
}

// insertAt inserts marker at display column offset, padding short lines.
func insertAt(line string, offset int, marker string) string {
	col := 0
	for i, r := range line {
		if col >= offset {
			return line[:i] + marker + line[i:]
		}
		col += runewidth.RuneWidth(r)
	}
	if col < offset {
		line += strings.Repeat(" ", offset-col)
	}
	return line + marker
}
