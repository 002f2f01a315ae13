// Package bridge connects application shells to the relay pool.
//
// Every connected shell gets its own Session. Commands sent before the session is connected are
// stored and replayed once the first relay of the pool is ready, or the connect timeout elapsed.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

var log = logging.Logger("bridge")

// Pool is the relay pool sessions connect to.
type Pool interface {
	AddRelays(urls ...string) []string
	Relays() []string
	RelaySet(urls ...string) *pool.RelaySet
	WaitAnyReady(ctx context.Context, timeout time.Duration) int
	WaitRelaySet(ctx context.Context, set *pool.RelaySet) int
	Publish(ctx context.Context, ev *nostr.Event, set *pool.RelaySet) ([]pool.PublishResult, error)

	OnRelayConnecting(pool.RelayHandler) (cancel func())
	OnRelayConnect(pool.RelayHandler) (cancel func())
	OnRelayReady(pool.RelayHandler) (cancel func())
	OnRelayDisconnect(pool.RelayHandler) (cancel func())
	OnNotice(pool.NoticeHandler) (cancel func())
}

// Dispatcher serves fetch requests once their relays are ready.
type Dispatcher interface {
	FetchEvents(dispatch.Sink, dispatch.Request)
}

// EventStore caches events delivered to shells.
type EventStore interface {
	Put(ctx context.Context, events ...*nostr.Event) error
}

// RelayStore persists relays shells connected to.
type RelayStore interface {
	Load(ctx context.Context) ([]string, error)
	Add(ctx context.Context, relays ...string) ([]string, error)
}

// Parameters configure sessions.
type Parameters struct {
	// ConnectTimeout bounds how long connect waits for relays before the session is connected.
	ConnectTimeout time.Duration
	// PublishTimeout bounds publishing an event.
	PublishTimeout time.Duration
	// DefaultRelay receives events sent without relays.
	DefaultRelay string
}

// DefaultParameters returns the default session parameters.
func DefaultParameters() Parameters {
	return Parameters{
		ConnectTimeout: 2 * time.Second,
		PublishTimeout: 5 * time.Second,
		DefaultRelay:   "wss://pareto.nostr1.com/",
	}
}

// Validate validates the values in Parameters.
func (p *Parameters) Validate() error {
	if p.ConnectTimeout <= 0 {
		return errors.New("bridge: connect timeout must be positive")
	}
	if p.PublishTimeout <= 0 {
		return errors.New("bridge: publish timeout must be positive")
	}
	return nil
}

// Service owns the collaborators shared by all sessions.
type Service struct {
	params     Parameters
	pool       Pool
	dispatcher Dispatcher
	events     EventStore
	relays     RelayStore

	lk       sync.Mutex
	sessions map[*Session]struct{}
}

// NewService creates a Service. The relay store is optional.
func NewService(p Pool, d Dispatcher, events EventStore, relays RelayStore, params Parameters) *Service {
	return &Service{
		params:     params,
		pool:       p,
		dispatcher: d,
		events:     events,
		relays:     relays,
		sessions:   make(map[*Session]struct{}),
	}
}

// Start adds the persisted relays to the pool.
func (s *Service) Start(ctx context.Context) error {
	if s.relays == nil {
		return nil
	}
	relays, err := s.relays.Load(ctx)
	if err != nil {
		return fmt.Errorf("bridge: loading persisted relays: %w", err)
	}
	added := s.pool.AddRelays(relays...)
	log.Infow("restored relays", "amount", len(added))
	return nil
}

// Stop closes all open sessions.
func (s *Service) Stop(context.Context) error {
	s.lk.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.lk.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	return nil
}

// NewSession opens a session that delivers messages to the given port.
func (s *Service) NewSession(port Port) *Session {
	sess := newSession(s, port)

	s.lk.Lock()
	s.sessions[sess] = struct{}{}
	s.lk.Unlock()
	return sess
}

// Sessions returns the amount of open sessions.
func (s *Service) Sessions() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return len(s.sessions)
}

func (s *Service) remove(sess *Session) {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.sessions, sess)
}
