package realtime

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/teris-io/shortid"
)

const idleChannelTimeout = time.Second * 30

type exitReq struct{}

type subscription struct {
	id     string
	client *Client
	event  EventType
	filter *Filter
}

// Channel fans out the change events of a single table to the subscriptions
// registered on it. All state is owned by the start goroutine.
type Channel struct {
	table     string
	hub       *Hub
	log       *log.Logger
	subChan   chan *ClientMessage
	unsubChan chan *ClientMessage
	leaveChan chan *Client
	eventChan chan ChangeEvent
	subs      map[string]*subscription
	// killTimer unloads the channel once it has no subscriptions left
	killTimer *time.Timer
	exit      chan exitReq
	done      chan struct{}
}

func newChannel(table string, hub *Hub) *Channel {
	return &Channel{
		table:     table,
		hub:       hub,
		log:       hub.log,
		subChan:   make(chan *ClientMessage, 256),
		unsubChan: make(chan *ClientMessage, 256),
		leaveChan: make(chan *Client, 256),
		eventChan: make(chan ChangeEvent, 256),
		subs:      make(map[string]*subscription),
		exit:      make(chan exitReq),
		done:      make(chan struct{}),
	}
}

func (ch *Channel) start() {
	ch.killTimer = time.NewTimer(idleChannelTimeout)
	ch.killTimer.Stop()

	for {
		select {
		case msg := <-ch.subChan:
			ch.handleSubscribe(msg)
		case msg := <-ch.unsubChan:
			ch.handleUnsubscribe(msg)
		case c := <-ch.leaveChan:
			ch.handleLeave(c)
		case ev := <-ch.eventChan:
			ch.handleEvent(ev)
		case <-ch.killTimer.C:
			ch.log.Printf("channel %q timed out", ch.table)
			select {
			case ch.hub.unloadChan <- ch.table:
			case <-ch.exit:
				ch.handleExit()
				return
			}
		case <-ch.exit:
			ch.handleExit()
			return
		}
	}
}

func (ch *Channel) validate(sub *Subscribe) error {
	switch sub.Event {
	case "", EventAll, EventInsert, EventUpdate, EventDelete:
	default:
		return fmt.Errorf("unknown event %q", sub.Event)
	}

	if sub.Filter == nil {
		return nil
	}

	if sub.Filter.Peer != "" {
		if ch.table != "messages" {
			return fmt.Errorf("peer filter is only valid on messages")
		}
		return nil
	}

	if !slices.Contains(database.Columns(ch.table), sub.Filter.Column) {
		return fmt.Errorf("unknown column %q on table %q", sub.Filter.Column, ch.table)
	}
	return nil
}

func (ch *Channel) handleSubscribe(msg *ClientMessage) {
	ch.killTimer.Stop()

	if err := ch.validate(msg.Subscribe); err != nil {
		msg.client.queueMessage(ErrBadRequest(msg.Id, err.Error()))
		ch.resetTimerIfIdle()
		return
	}

	id, err := shortid.Generate()
	if err != nil {
		ch.log.Println("generate subscription id:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		ch.resetTimerIfIdle()
		return
	}

	event := msg.Subscribe.Event
	if event == "" {
		event = EventAll
	}

	ch.subs[id] = &subscription{
		id:     id,
		client: msg.client,
		event:  event,
		filter: msg.Subscribe.Filter,
	}
	msg.client.addSub(id, ch)
	ch.hub.stats.Incr("NumSubscriptions")

	msg.client.queueMessage(NoErrOK(msg.Id, SubscribeResult{SubscriptionId: id, Table: ch.table}))
}

func (ch *Channel) handleUnsubscribe(msg *ClientMessage) {
	id := msg.Unsubscribe.SubscriptionId
	sub, ok := ch.subs[id]
	if !ok || sub.client != msg.client {
		msg.client.queueMessage(ErrSubscriptionNotFound(msg.Id))
		return
	}

	ch.removeSub(id)
	msg.client.queueMessage(NoErrOK(msg.Id, nil))
}

func (ch *Channel) handleLeave(c *Client) {
	for id, sub := range ch.subs {
		if sub.client == c {
			ch.removeSub(id)
		}
	}
}

func (ch *Channel) removeSub(id string) {
	sub, ok := ch.subs[id]
	if !ok {
		return
	}

	delete(ch.subs, id)
	sub.client.delSub(id)
	ch.hub.stats.Decr("NumSubscriptions")
	ch.resetTimerIfIdle()
}

func (ch *Channel) resetTimerIfIdle() {
	if len(ch.subs) == 0 {
		ch.killTimer.Reset(idleChannelTimeout)
	}
}

func (ch *Channel) handleEvent(ev ChangeEvent) {
	for id, sub := range ch.subs {
		if !sub.matches(ev) {
			continue
		}

		sub.client.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Change: &Change{
				SubscriptionId: id,
				Event:          ev,
			},
		})
	}
}

func (ch *Channel) handleExit() {
	ch.killTimer.Stop()

drain:
	for {
		select {
		case msg := <-ch.subChan:
			msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
		default:
			break drain
		}
	}

	for id, sub := range ch.subs {
		sub.client.delSub(id)
		sub.client.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				ChannelClosed: &ChannelClosed{SubscriptionId: id, Table: ch.table},
			},
		})
		delete(ch.subs, id)
		ch.hub.stats.Decr("NumSubscriptions")
	}

	close(ch.done)
}

func (s *subscription) matches(ev ChangeEvent) bool {
	if s.event != EventAll && s.event != ev.Type {
		return false
	}

	if !visibleTo(ev, s.client.userId, s.filter) {
		return false
	}

	if s.filter == nil {
		return true
	}

	if s.filter.Peer != "" {
		return Conversation{Self: s.client.userId, Peer: s.filter.Peer}.Matches(ev)
	}

	return ev.Value(s.filter.Column) == s.filter.Value
}

// visibleTo reports whether userId may observe ev. Direct messages and
// connections are private to their participants; session messages require a
// subscription scoped to the session, whose membership Hub.authorize checked
// when the subscription was made.
func visibleTo(ev ChangeEvent, userId string, filter *Filter) bool {
	switch ev.Table {
	case "messages":
		if ev.Value("session_id") != "" {
			return filter != nil && filter.Column == "session_id"
		}
		return ev.Value("sender_id") == userId || ev.Value("receiver_id") == userId
	case "connections":
		return ev.Value("requester_id") == userId || ev.Value("addressee_id") == userId
	default:
		return true
	}
}
