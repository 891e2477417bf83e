package surface

import (
	"regexp"
	"strings"
)

var (
	reActivePrefix = regexp.MustCompile(`@(\S*)$`)
	reFileRef      = regexp.MustCompile(`@\[([^\]]+)\]`)
)

// ActivePrefix returns the partial path after a trailing "@", if the input
// ends with one.
func ActivePrefix(input string) (string, bool) {
	m := reActivePrefix.FindStringSubmatch(input)
	if m == nil || strings.HasPrefix(m[1], "[") {
		return "", false
	}
	return m[1], true
}

// CompleteFilePath replaces the last "@prefix" in input with "@[suggestion]".
// Input without "@prefix" is returned unchanged.
func CompleteFilePath(input, prefix, suggestion string) string {
	at := strings.LastIndex(input, "@"+prefix)
	if at < 0 {
		return input
	}
	return input[:at] + "@[" + suggestion + "]" + input[at+len(prefix)+1:]
}

// FileRefs returns the distinct "@[path]" references in text, in order.
func FileRefs(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range reFileRef.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}
