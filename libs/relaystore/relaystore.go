// Package relaystore persists the relays the bridge was asked to connect to.
package relaystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/relay"
)

var (
	storePrefix = datastore.NewKey("relaystore")
	relaysKey   = datastore.NewKey("relays")

	log = logging.Logger("relaystore")
)

// RelayStore stores and loads relay urls to and from disk.
type RelayStore struct {
	ds datastore.Datastore
}

// NewRelayStore creates a new relay store backed by the given datastore.
func NewRelayStore(ctx context.Context, ds datastore.Datastore) (*RelayStore, error) {
	store := &RelayStore{
		ds: namespace.Wrap(ds, storePrefix),
	}

	exists, err := store.ds.Has(ctx, relaysKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return store, store.Put(ctx, []string{})
	}

	// a list that does not decode is replaced by an empty one
	_, err = store.Load(ctx)
	if err != nil {
		log.Warnw("relaystore: corrupted relay list detected, resetting...", "err", err)
		return store, store.reset(ctx)
	}

	return store, nil
}

// Load loads the relay urls from the datastore.
func (s *RelayStore) Load(ctx context.Context) ([]string, error) {
	bin, err := s.ds.Get(ctx, relaysKey)
	if err != nil {
		return nil, fmt.Errorf("relaystore: loading relays from datastore: %w", err)
	}

	var relays []string
	err = json.Unmarshal(bin, &relays)
	if err != nil {
		return nil, fmt.Errorf("relaystore: unmarshalling relays: %w", err)
	}

	log.Debugw("loaded relays from disk", "amount", len(relays))
	return relays, nil
}

// Put replaces the persisted relays with the given ones, normalized.
func (s *RelayStore) Put(ctx context.Context, relays []string) error {
	relays = relay.NormalizeURLs(relays)
	if relays == nil {
		relays = []string{}
	}

	bin, err := json.Marshal(relays)
	if err != nil {
		return fmt.Errorf("relaystore: marshal relays: %w", err)
	}

	if err = s.ds.Put(ctx, relaysKey, bin); err != nil {
		return fmt.Errorf("relaystore: writing to datastore: %w", err)
	}

	log.Debugw("persisted relays", "amount", len(relays))
	return nil
}

// Add merges the given relays into the persisted ones, keeping the existing order.
func (s *RelayStore) Add(ctx context.Context, relays ...string) ([]string, error) {
	stored, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	merged := relay.NormalizeURLs(append(stored, relays...))
	if len(merged) == len(stored) {
		return stored, nil
	}
	return merged, s.Put(ctx, merged)
}

func (s *RelayStore) reset(ctx context.Context) error {
	err := s.ds.Delete(ctx, relaysKey)
	if err != nil {
		return fmt.Errorf("relaystore: resetting datastore: %w", err)
	}

	return s.Put(ctx, []string{})
}
