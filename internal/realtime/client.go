package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024

	authorizeTimeout = 5 * time.Second
)

// Client is one websocket connection. A user may hold several.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	log      *log.Logger
	userId   string
	send     chan *ServerMessage
	subs     map[string]*Channel
	subsLock sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(userId string, conn *websocket.Conn, hub *Hub, l *log.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		log:    l,
		userId: userId,
		send:   make(chan *ServerMessage, 256),
		subs:   make(map[string]*Channel),
		stop:   make(chan struct{}),
	}
}

func (c *Client) UserId() string {
	return c.userId
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *ClientMessage) {
	msg.client = c
	msg.UserId = c.userId
	msg.Timestamp = Now()

	switch {
	case msg.Subscribe != nil:
		c.subscribe(msg)
	case msg.Unsubscribe != nil:
		c.unsubscribe(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send buffer full for user %q, dropping message", c.userId)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.hub.DeRegisterClient(c)
	c.leaveAllChannels()
	c.stopClient()
}

// leaveAllChannels drops every subscription the client holds.
func (c *Client) leaveAllChannels() {
	c.subsLock.RLock()
	defer c.subsLock.RUnlock()

	seen := make(map[*Channel]struct{})
	for _, ch := range c.subs {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}

		select {
		case ch.leaveChan <- c:
		default:
			c.log.Printf("leaveChan full for channel %q", ch.table)
		}
	}
}

func (c *Client) subscribe(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	err := c.hub.authorize(ctx, msg)
	cancel()
	switch {
	case errors.Is(err, ErrNotMember):
		c.queueMessage(ErrForbidden(msg.Id, err.Error()))
		return
	case err != nil:
		c.log.Printf("authorize subscription: %v", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	select {
	case c.hub.subscribeChan <- msg:
	default:
		c.log.Printf("subscribeChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) unsubscribe(msg *ClientMessage) {
	ch := c.getSub(msg.Unsubscribe.SubscriptionId)
	if ch == nil {
		c.queueMessage(ErrSubscriptionNotFound(msg.Id))
		return
	}

	select {
	case ch.unsubChan <- msg:
	default:
		c.log.Printf("unsubChan full for channel %q", ch.table)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) addSub(id string, ch *Channel) {
	c.subsLock.Lock()
	defer c.subsLock.Unlock()
	c.subs[id] = ch
}

func (c *Client) delSub(id string) {
	c.subsLock.Lock()
	defer c.subsLock.Unlock()
	delete(c.subs, id)
}

func (c *Client) getSub(id string) *Channel {
	c.subsLock.RLock()
	defer c.subsLock.RUnlock()
	return c.subs[id]
}
