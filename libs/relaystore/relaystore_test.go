package relaystore

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	store, err := NewRelayStore(ctx, sync.MutexWrap(datastore.NewMapDatastore()))
	require.NoError(t, err)

	relays, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, relays)

	err = store.Put(ctx, []string{"relay.one", "ws://relay.two", "wss://relay.one/"})
	require.NoError(t, err)

	relays, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://relay.one/", "ws://relay.two/"}, relays)

	relays, err = store.Add(ctx, "relay.three", "relay.one")
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://relay.one/", "ws://relay.two/", "wss://relay.three/"}, relays)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, relays, loaded)
}

func TestCorruptedStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	ds := sync.MutexWrap(datastore.NewMapDatastore())
	err := ds.Put(ctx, datastore.NewKey("relaystore/relays"), []byte("not json"))
	require.NoError(t, err)

	store, err := NewRelayStore(ctx, ds)
	require.NoError(t, err)

	relays, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, relays)
}
