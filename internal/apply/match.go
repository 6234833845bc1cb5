package apply

import (
	"fmt"
	"strings"
	"unicode"
)

// MatchPolicy decides which radio option a free-form model answer refers to.
type MatchPolicy string

const (
	// MatchExact accepts only a case-insensitive equal option.
	MatchExact MatchPolicy = "exact"
	// MatchContains tries exact first, then the first option that appears
	// as a whole word inside the answer.
	MatchContains MatchPolicy = "contains"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MatchExact, MatchContains:
		return p, nil
	case "":
		return MatchContains, nil
	default:
		return "", fmt.Errorf("unknown answer match policy %q", s)
	}
}

// Resolve returns the index of the option answer selects.
func (p MatchPolicy) Resolve(answer string, options []string) (int, bool) {
	answer = strings.TrimSpace(answer)
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return i, true
		}
	}
	if p != MatchContains {
		return 0, false
	}

	lower := strings.ToLower(answer)
	for i, opt := range options {
		needle := strings.ToLower(strings.TrimSpace(opt))
		if needle != "" && containsWord(lower, needle) {
			return i, true
		}
	}
	return 0, false
}

// containsWord reports whether needle occurs in s bounded by non-alphanumerics
// or the ends of s.
func containsWord(s, needle string) bool {
	for from := 0; from <= len(s)-len(needle); {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
