package nostr

import (
	gonostr "github.com/nbd-wtf/go-nostr"
)

type (
	// Filter selects events on a relay. Tag filters are keyed by the tag name without the '#'
	// prefix, e.g. Tags["e"] for "#e".
	Filter = gonostr.Filter
	// Filters is a set of filters sent in one subscription. An event matches if any filter matches.
	Filters = gonostr.Filters
	// TagMap holds the tag conditions of a Filter.
	TagMap = gonostr.TagMap
)

// Limit returns the largest limit of the set, or zero if any filter is unlimited.
func Limit(filters Filters) int {
	limit := 0
	for _, f := range filters {
		if f.Limit <= 0 {
			return 0
		}
		limit = max(limit, f.Limit)
	}
	return limit
}
