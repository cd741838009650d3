package dmn

import (
	"fmt"
	"strings"
)

// suggestName proposes a replacement for an unresolved name: the closest
// name in scope when it is a few edits away, otherwise the names in scope.
func suggestName(unknown string, scope []string) string {
	if len(scope) == 0 {
		return "no names are in scope"
	}

	best, bestDist := "", 1<<30
	for _, s := range scope {
		if d := levenshtein(strings.ToLower(unknown), strings.ToLower(s)); d < bestDist {
			best, bestDist = s, d
		}
	}
	if bestDist < 5 {
		return fmt.Sprintf("did you mean %q?", best)
	}
	if len(scope) > 5 {
		return fmt.Sprintf("names in scope include %s, ...", quoteAll(scope[:5]))
	}
	return "names in scope: " + quoteAll(scope)
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

// levenshtein is the edit distance between a and b, counted in runes.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	s, t := []rune(a), []rune(b)
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(t)]
}
