package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/stats"
)

var (
	ErrHubStopped = errors.New("hub stopped")
	ErrNotMember  = errors.New("not a member of this session")
)

// Sink observes every change event the hub receives, whether or not a
// websocket client subscribed to its table.
type Sink interface {
	Observe(ev ChangeEvent)
}

type stopReq struct {
	done chan struct{}
}

// Hub owns the websocket clients and the per-table channels.
type Hub struct {
	log           *log.Logger
	db            database.Repository
	stats         stats.StatsProvider
	clients       map[*Client]struct{}
	userMap       map[string]map[*Client]struct{}
	clientsLock   sync.RWMutex
	channels      map[string]*Channel
	channelsLock  sync.RWMutex
	sinks         []Sink
	subscribeChan chan *ClientMessage
	eventChan     chan ChangeEvent
	unloadChan    chan string
	stop          chan stopReq
	stopped       chan struct{}
}

func NewHub(logger *log.Logger, db database.Repository, su stats.StatsProvider, sinks ...Sink) *Hub {
	h := &Hub{
		log:           logger,
		db:            db,
		stats:         su,
		clients:       make(map[*Client]struct{}),
		userMap:       make(map[string]map[*Client]struct{}),
		channels:      make(map[string]*Channel),
		sinks:         sinks,
		subscribeChan: make(chan *ClientMessage, 256),
		eventChan:     make(chan ChangeEvent, 1024),
		unloadChan:    make(chan string),
		stop:          make(chan stopReq),
		stopped:       make(chan struct{}),
	}

	su.RegisterMetric("NumActiveClients")
	su.RegisterMetric("NumActiveChannels")
	su.RegisterMetric("NumSubscriptions")
	su.RegisterMetric("TotalChangeEvents")

	return h
}

func (h *Hub) Run() {
	for {
		select {
		case msg := <-h.subscribeChan:
			h.handleSubscribe(msg)
		case ev := <-h.eventChan:
			h.handleEvent(ev)
		case table := <-h.unloadChan:
			h.unloadChannel(table)
		case req := <-h.stop:
			h.log.Println("shutting down channels")
			h.channelsLock.RLock()
			tables := make([]string, 0, len(h.channels))
			for table := range h.channels {
				tables = append(tables, table)
			}
			h.channelsLock.RUnlock()

			for _, table := range tables {
				h.unloadChannel(table)
			}

			close(h.stopped)
			close(req.done)
			return
		}
	}
}

// Publish hands ev to the hub loop. It blocks until the event is queued, ctx
// is done or the hub stops.
func (h *Hub) Publish(ctx context.Context, ev ChangeEvent) error {
	select {
	case <-h.stopped:
		return ErrHubStopped
	default:
	}

	select {
	case h.eventChan <- ev:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// authorize checks that msg's sender may read the rows it subscribes to.
// Session messages are only delivered to members of the session.
func (h *Hub) authorize(ctx context.Context, msg *ClientMessage) error {
	sub := msg.Subscribe
	if sub.Table != "messages" || sub.Filter == nil || sub.Filter.Column != "session_id" {
		return nil
	}

	n, err := h.db.Count(ctx, database.From("session_members").Where(
		database.Eq("session_id", sub.Filter.Value),
		database.Eq("user_id", msg.UserId),
	))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotMember
	}
	return nil
}

func (h *Hub) handleSubscribe(msg *ClientMessage) {
	table := msg.Subscribe.Table
	if !Subscribable(table) {
		msg.client.queueMessage(ErrBadRequest(msg.Id, "unknown table "+table))
		return
	}

	ch, ok := h.getChannel(table)
	if !ok {
		ch = newChannel(table, h)
		h.addChannel(table, ch)
		go ch.start()
	}

	select {
	case ch.subChan <- msg:
	default:
		h.log.Printf("subChan full for channel %q", table)
		msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (h *Hub) handleEvent(ev ChangeEvent) {
	h.stats.Incr("TotalChangeEvents")

	for _, s := range h.sinks {
		s.Observe(ev)
	}

	ch, ok := h.getChannel(ev.Table)
	if !ok {
		return
	}

	select {
	case ch.eventChan <- ev:
	default:
		h.log.Printf("eventChan full for channel %q, dropping %s", ev.Table, ev.Type)
	}
}

func (h *Hub) unloadChannel(table string) {
	ch, ok := h.getChannel(table)
	if !ok {
		return
	}

	h.log.Printf("unloading channel %q", table)
	h.removeChannel(table)
	ch.exit <- exitReq{}
	<-ch.done
}

func (h *Hub) addChannel(table string, ch *Channel) {
	h.channelsLock.Lock()
	defer h.channelsLock.Unlock()
	h.channels[table] = ch
	h.stats.Incr("NumActiveChannels")
}

func (h *Hub) getChannel(table string) (*Channel, bool) {
	h.channelsLock.RLock()
	defer h.channelsLock.RUnlock()
	ch, ok := h.channels[table]
	return ch, ok
}

func (h *Hub) removeChannel(table string) {
	h.channelsLock.Lock()
	defer h.channelsLock.Unlock()
	if _, ok := h.channels[table]; ok {
		delete(h.channels, table)
		h.stats.Decr("NumActiveChannels")
	}
}

// RegisterClient tracks c and marks its user online when it is the user's
// first connection.
func (h *Hub) RegisterClient(c *Client) {
	if first := h.addClient(c); first {
		h.setPresence(c.userId, true)
	}
}

// DeRegisterClient forgets c and marks its user offline when no connection
// remains.
func (h *Hub) DeRegisterClient(c *Client) {
	if last := h.removeClient(c); last {
		h.setPresence(c.userId, false)
	}
}

func (h *Hub) addClient(c *Client) bool {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[c]; ok {
		return false
	}

	h.clients[c] = struct{}{}
	first := h.userMap[c.userId] == nil
	if first {
		h.userMap[c.userId] = make(map[*Client]struct{})
	}
	h.userMap[c.userId][c] = struct{}{}
	h.stats.Incr("NumActiveClients")

	return first
}

func (h *Hub) removeClient(c *Client) bool {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}

	delete(h.clients, c)
	h.stats.Decr("NumActiveClients")

	userClients := h.userMap[c.userId]
	delete(userClients, c)
	if len(userClients) == 0 {
		delete(h.userMap, c.userId)
		return true
	}
	return false
}

func (h *Hub) getClients(userId string) []*Client {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	clients := make([]*Client, 0, len(h.userMap[userId]))
	for c := range h.userMap[userId] {
		clients = append(clients, c)
	}
	return clients
}

// Online reports whether userId has at least one open connection.
func (h *Hub) Online(userId string) bool {
	return len(h.getClients(userId)) > 0
}

func (h *Hub) setPresence(userId string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.db.SetPresence(ctx, userId, online, Now()); err != nil {
		h.log.Printf("set presence for %q: %v", userId, err)
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	h.log.Println("received shutdown signal")

	h.clientsLock.RLock()
	for c := range h.clients {
		c.stopClient()
	}
	h.clientsLock.RUnlock()

	req := stopReq{done: make(chan struct{})}
	select {
	case h.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
