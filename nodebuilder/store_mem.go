package nodebuilder

import (
	"sync"

	"github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
)

// NewMemStore creates an in-memory Store for ephemeral nodes and testing.
func NewMemStore() Store {
	return &memStore{
		data: ds_sync.MutexWrap(datastore.NewMapDatastore()),
	}
}

type memStore struct {
	data datastore.Batching

	cfgLk sync.Mutex
	cfg   *Config
}

func (m *memStore) Path() string {
	return ""
}

func (m *memStore) Datastore() (datastore.Batching, error) {
	return m.data, nil
}

func (m *memStore) Config() (*Config, error) {
	m.cfgLk.Lock()
	defer m.cfgLk.Unlock()
	if m.cfg == nil {
		return nil, ErrNotInited
	}
	return m.cfg, nil
}

func (m *memStore) PutConfig(cfg *Config) error {
	m.cfgLk.Lock()
	defer m.cfgLk.Unlock()
	m.cfg = cfg
	return nil
}

func (m *memStore) Close() error {
	return nil
}
