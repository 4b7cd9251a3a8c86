package common

import "strings"

// ContainsAnyFold reports whether s contains any of the terms, ignoring case.
// No terms matches everything.
func ContainsAnyFold(s string, terms ...string) bool {
	if len(terms) == 0 {
		return true
	}
	s = strings.ToLower(s)
	for _, term := range terms {
		if strings.Contains(s, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
