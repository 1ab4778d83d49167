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
	"sort"
	"strings"
	"unicode"
)

// qKeywords are the q built-ins offered by completion
var qKeywords = []string{
	"abs", "acos", "aj", "aj0", "ajf", "all", "and", "any", "asc", "asin",
	"asof", "atan", "attr", "avg", "avgs", "bin", "binr", "ceiling", "cols",
	"cor", "cos", "count", "cov", "cross", "csv", "cut", "delete", "deltas",
	"desc", "dev", "differ", "distinct", "div", "do", "dsave", "each", "ej",
	"ema", "enlist", "eval", "except", "exec", "exit", "exp", "fby", "fills",
	"first", "fkeys", "flip", "floor", "from", "get", "getenv", "group",
	"gtime", "hclose", "hcount", "hdel", "hopen", "hsym", "iasc", "idesc",
	"if", "ij", "ijf", "in", "insert", "inter", "inv", "key", "keys", "last",
	"like", "lj", "ljf", "load", "log", "lower", "lsq", "ltime", "ltrim",
	"mavg", "max", "maxs", "mcount", "md5", "mdev", "med", "meta", "min",
	"mins", "mmax", "mmin", "mmu", "mod", "msum", "neg", "next", "not",
	"null", "or", "over", "parse", "peach", "pj", "prd", "prds", "prev",
	"prior", "rand", "rank", "ratios", "raze", "read0", "read1", "reciprocal",
	"reval", "reverse", "rload", "rotate", "rsave", "rtrim", "save", "scan",
	"scov", "sdev", "select", "set", "setenv", "show", "signum", "sin",
	"sqrt", "ss", "ssr", "string", "sublist", "sum", "sums", "sv", "svar",
	"system", "tables", "tan", "til", "trim", "type", "uj", "ujf", "ungroup",
	"union", "update", "upper", "upsert", "value", "var", "view", "views",
	"vs", "wavg", "where", "while", "within", "wj", "wj1", "wsum", "ww",
	"xasc", "xbar", "xcol", "xcols", "xdesc", "xexp", "xgroup", "xkey",
	"xlog", "xprev", "xrank",
}

// Completer completes the word before the cursor from a list of
// candidates. Lines starting with a slash complete command names.
type Completer struct {
	Words func() []string
}

// Do implements readline.AutoCompleter
func (cp *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if pos > len(line) {
		pos = len(line)
	}
	head := line[:pos]

	var candidates []string
	var word []rune
	if len(head) > 0 && head[0] == '/' && !containsSpace(head) {
		word = head
		candidates = slashCommands
	} else {
		start := pos
		for start > 0 && isWordRune(head[start-1]) {
			start--
		}
		word = head[start:]
		if len(word) == 0 {
			return nil, 0
		}
		if cp.Words != nil {
			candidates = cp.Words()
		}
	}

	prefix := string(word)
	seen := make(map[string]bool)
	var matches []string
	for _, cand := range candidates {
		if len(cand) > len(prefix) && strings.HasPrefix(cand, prefix) && !seen[cand] {
			seen[cand] = true
			matches = append(matches, cand)
		}
	}
	sort.Strings(matches)

	for _, m := range matches {
		newLine = append(newLine, []rune(m[len(prefix):]))
	}
	return newLine, len(word)
}

func isWordRune(r rune) bool {
	return r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsSpace(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
