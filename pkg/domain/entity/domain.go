package entity

import "strings"

// DomainKey returns the first three "/" delimited segments of url joined by
// "/", which is the scheme, the empty segment and the authority for an
// absolute URL. It is the unit of deduplication of the crawl.
func DomainKey(url string) string {
	parts := strings.SplitN(url, "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "/")
}
