// Package nostr adapts go-nostr's NIP-01 types to the bridge: it names the event kinds the
// bridge treats specially and adds the lookups the bridge needs on top of them.
package nostr

import (
	"fmt"

	gonostr "github.com/nbd-wtf/go-nostr"
)

// Well-known event kinds the bridge treats specially.
const (
	KindProfile             = 0
	KindShortNote           = 1
	KindFollowList          = 3
	KindDeletion            = 5
	KindRepost              = 6
	KindReaction            = 7
	KindZapReceipt          = 9735
	KindHighlight           = 9802
	KindRelayList           = 10002
	KindPrivateRelayList    = 10013
	KindLongFormArticle     = 30023
	KindLongFormDraft       = 30024
	KindDraftWrap           = 31234
	KindCommunityDefinition = 34550
)

type (
	// Event is a nostr event. Signatures are carried verbatim and never verified by the bridge.
	Event = gonostr.Event
	// Tag is a single event tag, e.g. ["p", "<pubkey>", "<relay>"].
	Tag = gonostr.Tag
	// Tags is the list of tags of an Event.
	Tags = gonostr.Tags
	// Timestamp is a unix timestamp in seconds.
	Timestamp = gonostr.Timestamp
)

// Validate performs a structural check of the event. It does not check the id hash or signature.
func Validate(ev *Event) error {
	switch {
	case ev == nil:
		return fmt.Errorf("nostr: missing event")
	case ev.ID == "":
		return fmt.Errorf("nostr: event has empty id")
	case ev.PubKey == "":
		return fmt.Errorf("nostr: event %s has empty pubkey", ev.ID)
	case ev.Kind < 0:
		return fmt.Errorf("nostr: event %s has negative kind %d", ev.ID, ev.Kind)
	}
	return nil
}

// FirstTag returns the first tag named exactly name. Tags.GetFirst matches the name as a prefix,
// which would confuse "d" with "description".
func FirstTag(tags Tags, name string) (Tag, bool) {
	for _, tag := range tags {
		if tag.Key() == name {
			return tag, true
		}
	}
	return nil, false
}

// LastTag returns the last tag named exactly name.
func LastTag(tags Tags, name string) (Tag, bool) {
	for i := len(tags) - 1; i >= 0; i-- {
		if tags[i].Key() == name {
			return tags[i], true
		}
	}
	return nil, false
}

// TagValues collects the first values of all tags named exactly name.
func TagValues(tags Tags, name string) []string {
	var out []string
	for _, tag := range tags {
		if tag.Key() == name && len(tag) > 1 {
			out = append(out, tag.Value())
		}
	}
	return out
}
