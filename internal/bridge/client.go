package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/AlexZinkM/wallet-relay/internal/common"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

var ErrClientClosed = errors.New("bridge connection closed")

// Client is the page side of the bridge. Calls are correlated by id only;
// responses may arrive in any order.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	waiters map[string]chan model.Response
	done    chan struct{}
	err     error
}

// Dial connects to the bridge at url presenting origin as the page origin
func Dial(ctx context.Context, url, origin string) (*Client, error) {
	header := http.Header{}
	header.Set("Origin", origin)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial bridge: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial bridge: %w", err)
	}

	c := &Client{
		conn:    conn,
		waiters: make(map[string]chan model.Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends a page request and waits for its response. An empty id is
// filled with a fresh one.
func (c *Client) Call(ctx context.Context, data model.RequestData) (model.Response, error) {
	if data.ID == "" {
		data.ID = common.NewRequestID()
	}

	ch := make(chan model.Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return model.Response{}, err
	}
	if _, ok := c.waiters[data.ID]; ok {
		c.mu.Unlock()
		return model.Response{}, fmt.Errorf("request %s already in flight", data.ID)
	}
	c.waiters[data.ID] = ch
	c.mu.Unlock()

	msg, err := json.Marshal(model.Request{Channel: model.PageChannel, Data: data})
	if err != nil {
		c.drop(data.ID)
		return model.Response{}, err
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, msg)
	c.writeMu.Unlock()
	if err != nil {
		c.drop(data.ID)
		return model.Response{}, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.drop(data.ID)
		return model.Response{}, ctx.Err()
	case <-c.done:
		// a response may have raced the close
		select {
		case resp := <-ch:
			return resp, nil
		default:
		}
		return model.Response{}, c.closeErr()
	}
}

func (c *Client) drop(id string) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	var err error
	for {
		var msg []byte
		_, msg, err = c.conn.ReadMessage()
		if err != nil {
			break
		}
		var resp model.Response
		if json.Unmarshal(msg, &resp) != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.waiters[resp.ID]
		delete(c.waiters, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.err = fmt.Errorf("%w: %v", ErrClientClosed, err)
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the connection; calls still waiting fail with ErrClientClosed
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
