package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pareto-space/pareto-bridge/nostr"
	"github.com/pareto-space/pareto-bridge/relay/dispatch"
)

// Session serves one application shell.
type Session struct {
	svc  *Service
	port Port

	lk          sync.Mutex
	connecting  bool
	connected   bool
	stored      []Command
	unsubscribe []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newSession(svc *Service, port Port) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		svc:    svc,
		port:   port,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connected reports whether the session finished connecting.
func (s *Session) Connected() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.connected
}

// Handle processes a command. Commands other than connect are stored until the session is
// connected.
func (s *Session) Handle(cmd Command) {
	if s.ctx.Err() != nil {
		return
	}
	if cmd.Command == CommandConnect {
		s.connect(cmd)
		return
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.connected {
		log.Debugw("storing command", "command", cmd.Command)
		s.stored = append(s.stored, cmd)
		return
	}
	s.process(cmd)
}

// Close detaches the session from the pool and waits for its pending work.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()

		s.lk.Lock()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.lk.Unlock()
		for _, u := range unsubscribe {
			u()
		}

		s.wg.Wait()
		s.svc.remove(s)
	})
}

func (s *Session) connect(cmd Command) {
	var relays []string
	if len(cmd.Value) > 0 {
		if err := json.Unmarshal(cmd.Value, &relays); err != nil {
			s.fail(cmd.Command, fmt.Errorf("decoding relays: %w", err))
			return
		}
	}

	s.lk.Lock()
	if s.connecting {
		s.lk.Unlock()
		// a second connect only adds relays
		s.addRelays(relays)
		return
	}
	s.connecting = true
	s.unsubscribe = append(s.unsubscribe, s.forwardLifecycle()...)
	s.lk.Unlock()

	log.Debugw("connecting session", "relays", relays)
	s.addRelays(relays)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ready := s.svc.pool.WaitAnyReady(s.ctx, s.svc.params.ConnectTimeout)
		if s.ctx.Err() != nil {
			return
		}

		s.lk.Lock()
		defer s.lk.Unlock()
		s.connected = true
		log.Infow("session connected", "ready", ready, "stored", len(s.stored))
		s.send(Message{Type: MessageConnected})

		for _, cmd := range s.stored {
			s.process(cmd)
		}
		s.stored = nil
	}()
}

func (s *Session) addRelays(relays []string) {
	if len(relays) == 0 {
		return
	}
	s.svc.pool.AddRelays(relays...)
	if s.svc.relays == nil {
		return
	}
	if _, err := s.svc.relays.Add(s.ctx, relays...); err != nil {
		log.Errorw("persisting relays", "err", err)
	}
}

func (s *Session) forwardLifecycle() []func() {
	p := s.svc.pool
	return []func(){
		p.OnRelayConnecting(func(string) {
			s.send(Message{Type: MessageConnecting})
		}),
		p.OnRelayConnect(func(url string) {
			s.send(Message{Type: MessageRelayConnected, Value: relayValue{URL: url}})
		}),
		p.OnRelayReady(func(url string) {
			s.send(Message{Type: MessageRelayReady, Value: relayValue{URL: url}})
		}),
		p.OnRelayDisconnect(func(url string) {
			s.send(Message{Type: MessageRelayDisconnected, Value: relayValue{URL: url}})
		}),
		p.OnNotice(func(url, notice string) {
			s.send(Message{Type: MessageRelayNotice, Value: noticeValue{Relay: url, Notice: notice}})
		}),
	}
}

// process runs a command of a connected session. Must be called with the lock held.
func (s *Session) process(cmd Command) {
	log.Debugw("processing command", "command", cmd.Command)

	switch cmd.Command {
	case CommandRequestEvents, CommandSearchEvents:
		s.requestEvents(cmd)
	case CommandSendEvent:
		s.sendEvent(cmd)
	default:
		if _, ok := browserCommands[cmd.Command]; ok {
			log.Warnw("command needs a browser signer, ignoring", "command", cmd.Command)
			return
		}
		log.Warnw("unknown command", "command", cmd.Command)
	}
}

func (s *Session) requestEvents(cmd Command) {
	var v requestEventsValue
	if err := json.Unmarshal(cmd.Value, &v); err != nil {
		s.fail(cmd.Command, fmt.Errorf("decoding value: %w", err))
		return
	}
	filters, err := v.filters()
	if err != nil {
		s.fail(cmd.Command, err)
		return
	}

	// relays unknown to the pool must be dialed to ever become ready
	s.svc.pool.AddRelays(v.Relays...)
	s.svc.dispatcher.FetchEvents(s, dispatch.Request{
		ID:          v.RequestID,
		Filters:     filters,
		CloseOnEOSE: v.CloseOnEOSE,
		Description: v.Description,
		Relays:      v.Relays,
	})
}

func (s *Session) sendEvent(cmd Command) {
	var v sendEventValue
	if err := json.Unmarshal(cmd.Value, &v); err != nil {
		s.fail(cmd.Command, fmt.Errorf("decoding value: %w", err))
		return
	}
	if v.Event == nil {
		s.fail(cmd.Command, fmt.Errorf("send %d carries no event", v.SendID))
		return
	}
	if err := nostr.Validate(v.Event); err != nil {
		s.fail(cmd.Command, err)
		return
	}

	relays := v.Relays
	if len(relays) == 0 && s.svc.params.DefaultRelay != "" {
		relays = []string{s.svc.params.DefaultRelay}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.publish(v, relays)
	}()
}

func (s *Session) publish(v sendEventValue, relays []string) {
	sendID := v.SendID
	ctx, cancel := context.WithTimeout(s.ctx, s.svc.params.PublishTimeout)
	defer cancel()

	set := s.svc.pool.RelaySet(relays...)
	s.svc.pool.WaitRelaySet(ctx, set)

	results, err := s.svc.pool.Publish(ctx, v.Event, set)
	if err != nil {
		log.Errorw("publishing event", "send", sendID, "id", v.Event.ID, "relays", set, "err", err)
		s.fail(CommandSendEvent, err)
		return
	}
	log.Debugw("published event", "send", sendID, "id", v.Event.ID)

	out := make([]publishedResult, len(results))
	for i, res := range results {
		out[i] = publishedResult{Relay: res.Relay, Accepted: res.Accepted, Message: res.Message}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	s.send(Message{Type: MessagePublished, Value: publishedValue{SendID: sendID, Event: v.Event, Results: out}})

	// sent events are fed back as if a relay delivered them
	s.ProcessEvents(sentEventRequestID, sentEventDescription, []*nostr.Event{v.Event})
}

func (s *Session) fail(command string, err error) {
	log.Warnw("command failed", "command", command, "err", err)
	s.send(Message{Type: MessageError, Value: errorValue{Command: command, Error: err.Error()}})
}

func (s *Session) send(msg Message) {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.port.Send(msg); err != nil {
		log.Debugw("sending message", "type", msg.Type, "err", err)
	}
}
