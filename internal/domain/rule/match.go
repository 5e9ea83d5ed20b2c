package rule

import "strings"

// Normalize upper-cases path the same way a rule's pattern is
// upper-cased on insertion (I2), so Match never needs to case-fold.
func Normalize(path string) string {
	return strings.ToUpper(path)
}

// Match reports whether the upper-cased pattern matches the
// upper-cased path, honoring '?' (exactly one character) and '*'
// (any run, including empty) the way the NT device-path expression
// matcher does. Both arguments are expected already upper-cased
// (pattern by Store.Add, path by the caller via Normalize); Match
// itself does not case-fold, matching I2's intent that matching never
// pays for case-folding on the hot path.
//
// This is a hand-rolled matcher rather than stdlib filepath.Match
// because filepath.Match treats the path separator specially (a '*'
// never crosses a '/'), which does not hold for the device-path
// wildcard semantics this store replicates; no example in the source
// pack implements that semantic either, so this one function is the
// repo's documented stdlib-only exception (see DESIGN.md).
func Match(pattern, path string) bool {
	return matchHere(pattern, path)
}

// matchHere is a classic backtracking glob matcher over '?' and '*'.
func matchHere(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse consecutive '*' runs.
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchHere(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		}
	}
	return len(s) == 0
}
