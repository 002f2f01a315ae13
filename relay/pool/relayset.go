package pool

import (
	"strings"

	"github.com/pareto-space/pareto-bridge/relay"
)

// RelaySet is an ordered set of normalized relay urls a request is scoped to.
type RelaySet struct {
	urls []string
}

// NewRelaySet builds a RelaySet from raw relay urls.
func NewRelaySet(urls ...string) *RelaySet {
	return &RelaySet{urls: relay.NormalizeURLs(urls)}
}

// RelaySet builds a RelaySet over the given urls, adding relays unknown to the pool.
// Without urls the set spans every relay of the pool.
func (p *Pool) RelaySet(urls ...string) *RelaySet {
	if len(urls) == 0 {
		return NewRelaySet(p.Relays()...)
	}
	p.AddRelays(urls...)
	return NewRelaySet(urls...)
}

// URLs returns the urls of the set.
func (s *RelaySet) URLs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.urls...)
}

// Len returns the amount of relays in the set.
func (s *RelaySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}

func (s *RelaySet) String() string {
	if s == nil {
		return "[]"
	}
	return "[" + strings.Join(s.urls, " ") + "]"
}
