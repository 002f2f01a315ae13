package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pareto-space/pareto-bridge/bridge"
)

const (
	bridgeEndpoint = "/bridge"

	bridgeWriteTimeout = 10 * time.Second
	bridgeReadLimit    = 1 << 20
)

// origins are checked by the cors handler of the server
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsPort delivers bridge messages to a websocket connection.
type wsPort struct {
	ws *websocket.Conn

	lk     sync.Mutex
	closed bool
}

func (p *wsPort) Send(msg bridge.Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("gateway: encoding %s message: %w", msg.Type, err)
	}

	p.lk.Lock()
	defer p.lk.Unlock()
	if p.closed {
		return bridge.ErrPortClosed
	}
	if err := p.ws.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout)); err != nil {
		return err
	}
	return p.ws.WriteMessage(websocket.TextMessage, frame)
}

func (p *wsPort) close() {
	p.lk.Lock()
	defer p.lk.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if err := p.ws.Close(); err != nil {
		log.Debugw("closing bridge connection", "err", err)
	}
}

// handleBridge upgrades the request to a websocket and feeds its command frames to a new bridge
// session until the shell disconnects.
func (h *Handler) handleBridge(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		log.Debugw("upgrading bridge connection", "remote", r.RemoteAddr, "err", err)
		return
	}
	ws.SetReadLimit(bridgeReadLimit)

	port := &wsPort{ws: ws}
	sess := h.open(port)
	sessionsOpened.Inc()
	log.Infow("bridge session opened", "remote", r.RemoteAddr)
	defer func() {
		sess.Close()
		port.close()
		log.Infow("bridge session closed", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				log.Debugw("reading bridge connection", "remote", r.RemoteAddr, "err", err)
			}
			return
		}

		var cmd bridge.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Warnw("decoding bridge command", "remote", r.RemoteAddr, "err", err)
			_ = port.Send(bridge.Message{
				Type:  bridge.MessageError,
				Value: map[string]string{"error": fmt.Sprintf("decoding command: %s", err)},
			})
			continue
		}
		sess.Handle(cmd)
	}
}
