package builder

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the artifact base name from a session title: lowercase,
// non-alphanumeric runs collapsed to a single dash, truncated to 80 bytes.
// The mapping is lossy; distinct titles can collide, which the builder
// rejects up front.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
