package relay

import "strings"

const (
	secureScheme   = "wss://"
	insecureScheme = "ws://"
)

// NormalizeURL turns a relay address into the form used as its identity: a websocket scheme
// (wss:// unless ws:// or wss:// is already present) and a single trailing slash.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, secureScheme) && !strings.HasPrefix(url, insecureScheme) {
		url = secureScheme + url
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// NormalizeURLs normalizes every url of the list, dropping empty entries and duplicates.
// The order of the first occurrence is kept.
func NormalizeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if strings.TrimSpace(url) == "" {
			continue
		}
		normalized := NormalizeURL(url)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
