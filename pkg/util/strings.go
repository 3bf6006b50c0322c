package util

import "strings"

// SplitCommaSeparated splits a comma-separated string and trims whitespace from each element.
// Empty input returns nil.
func SplitCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// TrimmedLines splits text on newlines and returns the non-empty lines with
// surrounding whitespace removed.
func TrimmedLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// LineSet returns the trimmed lines of text as a set.
func LineSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, l := range TrimmedLines(text) {
		set[l] = true
	}
	return set
}

// Missing returns the elements of required for which covered reports false,
// preserving the order of required and dropping duplicates.
func Missing[T comparable](required []T, covered func(T) bool) []T {
	var missing []T
	seen := make(map[T]bool, len(required))
	for _, r := range required {
		if seen[r] {
			continue
		}
		seen[r] = true
		if !covered(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// Difference returns required \ have, preserving the order of required.
func Difference[T comparable](required, have []T) []T {
	set := make(map[T]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	return Missing(required, func(r T) bool { return set[r] })
}
