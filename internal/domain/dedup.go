package domain

import (
	"net/url"
	"strings"
)

// CanonicalURL returns the comparison form of an article URL: lower-cased, without
// query string, fragment or trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(stripQuery(raw)), "/")
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")

	path := strings.TrimRight(strings.ToLower(u.EscapedPath()), "/")
	return strings.ToLower(u.Scheme) + "://" + host + path
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

// Deduplicate drops candidates whose canonical URL was already seen, keeping the first
// occurrence and the relative order of the rest.
func Deduplicate(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := CanonicalURL(c.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
