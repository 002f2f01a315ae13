// Package eventstore caches nostr events on disk, with the most recently used ones kept in memory.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/autobatch"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/nostr"
)

var log = logging.Logger("eventstore")

var (
	storePrefix = datastore.NewKey("events")

	// ErrNotFound is returned when an event is not in the store.
	ErrNotFound = errors.New("eventstore: event not found")
)

// Parameters configure the Store.
type Parameters struct {
	// CacheSize is the amount of events kept in memory.
	CacheSize int
	// WriteBatchSize is the amount of events buffered before they are written to disk.
	WriteBatchSize int
}

// DefaultParameters returns the default store parameters.
func DefaultParameters() Parameters {
	return Parameters{
		CacheSize:      4096,
		WriteBatchSize: 256,
	}
}

// Validate validates the values in Parameters.
func (p *Parameters) Validate() error {
	if p.CacheSize <= 0 {
		return fmt.Errorf("eventstore: invalid cache size %d", p.CacheSize)
	}
	if p.WriteBatchSize <= 0 {
		return fmt.Errorf("eventstore: invalid write batch size %d", p.WriteBatchSize)
	}
	return nil
}

// Store is a persistent event cache keyed by event id.
type Store struct {
	cache *lru.Cache[string, *nostr.Event]

	dsLk sync.RWMutex
	ds   *autobatch.Datastore
}

// NewStore creates a Store on top of the given datastore.
func NewStore(ds datastore.Batching, params Parameters) (*Store, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, *nostr.Event](params.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("eventstore: creating cache: %w", err)
	}

	return &Store{
		cache: cache,
		ds:    autobatch.NewAutoBatching(namespace.Wrap(ds, storePrefix), params.WriteBatchSize),
	}, nil
}

// Put stores the events. Events without id are skipped.
func (s *Store) Put(ctx context.Context, events ...*nostr.Event) error {
	s.dsLk.Lock()
	defer s.dsLk.Unlock()

	for _, ev := range events {
		if ev == nil || ev.ID == "" {
			continue
		}
		if s.cache.Contains(ev.ID) {
			continue
		}

		bin, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("eventstore: marshalling event %s: %w", ev.ID, err)
		}
		if err := s.ds.Put(ctx, eventKey(ev.ID), bin); err != nil {
			return fmt.Errorf("eventstore: writing event %s: %w", ev.ID, err)
		}
		s.cache.Add(ev.ID, ev)
	}
	return nil
}

// Get returns the event with the given id.
func (s *Store) Get(ctx context.Context, id string) (*nostr.Event, error) {
	if ev, ok := s.cache.Get(id); ok {
		return ev, nil
	}

	s.dsLk.RLock()
	bin, err := s.ds.Get(ctx, eventKey(id))
	s.dsLk.RUnlock()
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("eventstore: reading event %s: %w", id, err)
	}

	ev := new(nostr.Event)
	if err := json.Unmarshal(bin, ev); err != nil {
		return nil, fmt.Errorf("eventstore: unmarshalling event %s: %w", id, err)
	}
	s.cache.Add(id, ev)
	return ev, nil
}

// Has reports whether the event with the given id is stored.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	if s.cache.Contains(id) {
		return true, nil
	}

	s.dsLk.RLock()
	defer s.dsLk.RUnlock()
	return s.ds.Has(ctx, eventKey(id))
}

// Query returns the stored events matching any of the filters, newest first. The result is cut
// to the largest limit among the filters, if every filter sets one.
func (s *Store) Query(ctx context.Context, filters nostr.Filters) ([]*nostr.Event, error) {
	s.dsLk.Lock()
	// queued writes are not visible to queries
	err := s.ds.Flush(ctx)
	s.dsLk.Unlock()
	if err != nil {
		return nil, fmt.Errorf("eventstore: flushing writes: %w", err)
	}

	s.dsLk.RLock()
	results, err := s.ds.Query(ctx, query.Query{})
	s.dsLk.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("eventstore: querying events: %w", err)
	}
	defer results.Close()

	var events []*nostr.Event
	for res := range results.Next() {
		if res.Error != nil {
			return nil, fmt.Errorf("eventstore: iterating events: %w", res.Error)
		}
		ev := new(nostr.Event)
		if err := json.Unmarshal(res.Value, ev); err != nil {
			log.Warnw("skipping undecodable event", "key", res.Key, "err", err)
			continue
		}
		if filters.Match(ev) {
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt > events[j].CreatedAt
	})
	if limit := nostr.Limit(filters); limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Close flushes queued writes to disk.
func (s *Store) Close(ctx context.Context) error {
	s.dsLk.Lock()
	defer s.dsLk.Unlock()
	return s.ds.Flush(ctx)
}

func eventKey(id string) datastore.Key {
	return datastore.NewKey(id)
}
