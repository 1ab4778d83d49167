/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"kdb-q-console/internal/kdb"
)

// Status summarizes a result for the line printed after it, for example
// "1,024 rows · 12ms · 48 kB". received is the size of the server's reply.
func Status(res kdb.Result, elapsed time.Duration, received int) string {
	var parts []string

	switch r := res.(type) {
	case *kdb.TableResult:
		parts = append(parts, count(len(r.Rows), "row", "rows"))
	case *kdb.VectorResult:
		parts = append(parts, count(len(r.Values), "item", "items"))
	case *kdb.ErrorResult:
		parts = append(parts, "error")
	}

	parts = append(parts, formatElapsed(elapsed), humanize.Bytes(uint64(received)))
	return strings.Join(parts, " · ")
}

func count(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return humanize.Comma(int64(n)) + " " + plural
}

// formatElapsed shows milliseconds below a second and rounded seconds above
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}
