package services

import (
	"regexp"
	"sort"
	"strings"
)

// maxPatternLength caps normalised endpoint patterns.
const maxPatternLength = 200

// Placeholders substituted for identifier segments.
const (
	placeholderID   = "{id}"
	placeholderUUID = "{uuid}"
)

var (
	numericSegment = regexp.MustCompile(`^\d{5,}$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// NormalizeEndpoint reduces a raw URL to a stable pattern for frequency
// analysis. Numeric segments of five or more digits and UUID segments are
// replaced with placeholders, query strings collapse to their sorted unique
// parameter names, and the result is capped at 200 characters.
// Normalising an already normalised pattern returns it unchanged.
func NormalizeEndpoint(endpoint string) string {
	out := normalizeOnce(endpoint)
	// Truncation can leave a cut query name, digit run or trailing space
	// that a further pass would rewrite. Every pass that changes the
	// pattern shortens or sorts it, so this settles well within the cap.
	for range maxPatternLength {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if i := strings.IndexByte(endpoint, '#'); i >= 0 {
		endpoint = endpoint[:i]
	}

	path, query, hasQuery := strings.Cut(endpoint, "?")

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case numericSegment.MatchString(seg):
			segments[i] = placeholderID
		case uuidSegment.MatchString(seg):
			segments[i] = placeholderUUID
		}
	}
	out := strings.Join(segments, "/")

	if hasQuery {
		if names := queryParamNames(query); len(names) > 0 {
			out += "?" + strings.Join(names, "&")
		}
	}

	if r := []rune(out); len(r) > maxPatternLength {
		out = string(r[:maxPatternLength])
	}
	return out
}

// queryParamNames returns the sorted, deduplicated parameter names of a query.
func queryParamNames(query string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(part, "=")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
