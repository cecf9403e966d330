// Package bridge carries page requests to the relay over websocket and
// page-bound responses back, one connection per page.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AlexZinkM/wallet-relay/internal/common"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
	"github.com/AlexZinkM/wallet-relay/internal/pending"
	"github.com/AlexZinkM/wallet-relay/internal/relay"
)

const (
	maxMessageSize = 64 * 1024
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 64
)

// Dispatcher is what the bridge needs from the relay
type Dispatcher interface {
	HandleInbound(ctx context.Context, req model.Request, origin string, respond pending.Handler) error
	Cancel(id string) bool
}

type Server struct {
	log      wlog.Logger
	relay    Dispatcher
	upgrader websocket.Upgrader
}

func NewServer(log wlog.Logger, relay Dispatcher) *Server {
	return &Server{
		log:   wlog.CreateModuleLogger("bridge", log),
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// any page may connect; its Origin header is what consent is keyed on
			CheckOrigin: func(r *http.Request) bool {
				return common.NormalizeOrigin(r.Header.Get("Origin")) != ""
			},
		},
	}
}

// ServeHTTP upgrades a page connection. The origin is the browser-sent
// Origin header, never a value from the message body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := common.NormalizeOrigin(r.Header.Get("Origin"))
	if origin == "" {
		common.WriteError(w, http.StatusForbidden, "origin_required", errors.New("missing or invalid Origin header"))
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade from %s failed: %v", origin, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		s:      s,
		ws:     ws,
		origin: origin,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		scope:  uuid.NewString(),
		ids:    make(map[string]struct{}),
	}
	s.log.Infof("page connected from %s", origin)

	go c.writePump()
	go c.readPump(ctx)
}

type conn struct {
	s      *Server
	ws     *websocket.Conn
	origin string
	send   chan []byte
	done   chan struct{}
	cancel context.CancelFunc
	// scope prefixes page ids so pages numbering requests alike never collide
	scope string

	mu  sync.Mutex
	ids map[string]struct{} // relay ids awaiting a response
}

// readPump dispatches every page message until the connection drops, then
// cancels what the page is still waiting for.
func (c *conn) readPump(ctx context.Context) {
	defer c.shutdown()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.s.log.Warnf("read from %s: %v", c.origin, err)
			}
			return
		}
		c.dispatch(ctx, message)
	}
}

func (c *conn) dispatch(ctx context.Context, message []byte) {
	var req model.Request
	if err := json.Unmarshal(message, &req); err != nil {
		c.s.log.Warnf("malformed message from %s: %v", c.origin, err)
		c.deliver(model.NewErrorResponse("", model.ErrCodeMalformed, "message is not a request envelope"))
		return
	}

	id := req.Data.ID
	relayID := c.relayID(id)
	req.Data.ID = relayID

	added := c.track(relayID)
	err := c.s.relay.HandleInbound(ctx, req, c.origin, func(resp model.Response) {
		c.untrack(relayID)
		resp.ID = id
		c.deliver(resp)
	})
	if err == nil {
		return
	}

	if added {
		c.untrack(relayID)
	}
	switch {
	case errors.Is(err, relay.ErrDuplicateRequest):
		// same id on this connection: the first request still owns its response
		c.s.log.Warnf("duplicate request %s from %s dropped", id, c.origin)
	case errors.Is(err, relay.ErrMalformedRequest):
		c.s.log.Warnf("rejected request from %s: %v", c.origin, err)
		c.deliver(model.NewErrorResponse(id, model.ErrCodeMalformed, err.Error()))
	default:
		c.s.log.Errorf("request %s from %s failed: %v", id, c.origin, err)
		c.deliver(model.NewErrorResponse(id, model.ErrCodeInternal, "request failed"))
	}
}

// relayID is the connection-scoped id the relay and approval UI see
func (c *conn) relayID(id string) string {
	if id == "" {
		return ""
	}
	return c.scope + ":" + id
}

func (c *conn) track(id string) bool {
	if id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[id]; ok {
		return false
	}
	c.ids[id] = struct{}{}
	return true
}

func (c *conn) untrack(id string) {
	c.mu.Lock()
	delete(c.ids, id)
	c.mu.Unlock()
}

// deliver queues resp for the page. Responses for a closed page are dropped.
func (c *conn) deliver(resp model.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		c.s.log.Errorf("failed to marshal response %s: %v", resp.ID, err)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	}
}

func (c *conn) shutdown() {
	close(c.done)
	c.cancel()

	c.mu.Lock()
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.s.relay.Cancel(id)
	}
	c.s.log.Infof("page from %s disconnected, %d requests cancelled", c.origin, len(ids))
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.s.log.Warnf("write to %s: %v", c.origin, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
