package common

import "strings"

// ContainsFold reports whether sub is within s, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// AnyContainsFold returns true if any of values contains sub, ignoring case.
func AnyContainsFold(values []string, sub string) bool {
	for _, v := range values {
		if ContainsFold(v, sub) {
			return true
		}
	}
	return false
}

// FoldSpace lowercases s and collapses runs of whitespace to single spaces.
func FoldSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
