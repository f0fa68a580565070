package utils

import (
	"sort"
	"strings"
)

// NaturalLess compares two strings with embedded numeric runs compared
// numerically, so "page2" sorts before "page10". Comparison is
// case-insensitive on the non-numeric runs.
func NaturalLess(a, b string) bool {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare the full numeric runs. Skip leading zeros so
			// "002" and "2" compare equal in magnitude.
			si, sj := i, j
			for i < len(ra) && isDigit(ra[i]) {
				i++
			}
			for j < len(rb) && isDigit(rb[j]) {
				j++
			}
			na := strings.TrimLeft(string(ra[si:i]), "0")
			nb := strings.TrimLeft(string(rb[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ra)-i < len(rb)-j
}

// SortNatural sorts strings in natural order, in place
func SortNatural(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return NaturalLess(items[i], items[j])
	})
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
