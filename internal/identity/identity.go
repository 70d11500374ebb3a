// Package identity sanitises and uniques player display names per
// spec.md §3: trimmed, length-clamped to 50, "<" and ">" stripped, and
// uniqued within a room by appending " <n>" on collision.
package identity

import (
	"fmt"
	"strings"
)

// MaxNameLength is spec.md's MAX_NAME_LENGTH.
const MaxNameLength = 50

var stripper = strings.NewReplacer("<", "", ">", "")

// Sanitize trims, strips angle brackets and clamps length. An empty or
// all-whitespace name becomes "Player".
func Sanitize(name string) string {
	name = stripper.Replace(strings.TrimSpace(name))
	if name == "" {
		name = "Player"
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

// Unique appends " <n>" to name until it no longer collides with
// taken(candidate). n starts at 2 to match the common "Name <2>" UX for
// a second player named "Name".
func Unique(name string, taken func(candidate string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s <%d>", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
