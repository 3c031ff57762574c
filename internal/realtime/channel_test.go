package realtime

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_handleSubscribe(t *testing.T) {
	tcases := []struct {
		name       string
		table      string
		sub        *Subscribe
		expectCode int
	}{
		{
			name:       "all events",
			table:      "broadcasts",
			sub:        &Subscribe{Table: "broadcasts"},
			expectCode: http.StatusOK,
		},
		{
			name:       "column filter",
			table:      "broadcasts",
			sub:        &Subscribe{Table: "broadcasts", Event: EventInsert, Filter: &Filter{Column: "campus_id", Value: "c1"}},
			expectCode: http.StatusOK,
		},
		{
			name:       "peer filter on messages",
			table:      "messages",
			sub:        &Subscribe{Table: "messages", Filter: &Filter{Peer: "u2"}},
			expectCode: http.StatusOK,
		},
		{
			name:       "peer filter on other table",
			table:      "sessions",
			sub:        &Subscribe{Table: "sessions", Filter: &Filter{Peer: "u2"}},
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "unknown column",
			table:      "profiles",
			sub:        &Subscribe{Table: "profiles", Filter: &Filter{Column: "password", Value: "x"}},
			expectCode: http.StatusBadRequest,
		},
		{
			name:       "unknown event",
			table:      "profiles",
			sub:        &Subscribe{Table: "profiles", Event: "TRUNCATE"},
			expectCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ch := newTestChannel(t, tc.table)
			c := newTestClient(t, "u1")

			ch.handleSubscribe(subscribeMsg(c, 7, tc.sub))

			resp := receive(t, c)
			require.NotNil(t, resp.Response)
			assert.Equal(t, 7, resp.Id)
			assert.Equal(t, tc.expectCode, resp.Response.ResponseCode)

			if tc.expectCode != http.StatusOK {
				assert.Empty(t, ch.subs)
				assert.Empty(t, c.subs)
				return
			}

			result, ok := resp.Response.Data.(SubscribeResult)
			require.True(t, ok, "expected SubscribeResult data")
			assert.Equal(t, tc.table, result.Table)
			assert.Contains(t, ch.subs, result.SubscriptionId)
			assert.Equal(t, ch, c.getSub(result.SubscriptionId))
		})
	}
}

func TestChannel_handleUnsubscribe(t *testing.T) {
	ch := newTestChannel(t, "sessions")
	owner := newTestClient(t, "u1")
	other := newTestClient(t, "u2")

	ch.handleSubscribe(subscribeMsg(owner, 1, &Subscribe{Table: "sessions"}))
	id := receive(t, owner).Response.Data.(SubscribeResult).SubscriptionId

	t.Run("not the owner", func(t *testing.T) {
		ch.handleUnsubscribe(&ClientMessage{
			BaseMessage: BaseMessage{Id: 2},
			Unsubscribe: &Unsubscribe{SubscriptionId: id},
			client:      other,
		})
		assert.Equal(t, http.StatusNotFound, receive(t, other).Response.ResponseCode)
		assert.Contains(t, ch.subs, id)
	})

	t.Run("owner", func(t *testing.T) {
		ch.handleUnsubscribe(&ClientMessage{
			BaseMessage: BaseMessage{Id: 3},
			Unsubscribe: &Unsubscribe{SubscriptionId: id},
			client:      owner,
		})
		assert.Equal(t, http.StatusOK, receive(t, owner).Response.ResponseCode)
		assert.NotContains(t, ch.subs, id)
		assert.Nil(t, owner.getSub(id))
		assert.True(t, ch.killTimer.Stop(), "expected kill timer to be running once idle")
	})
}

func TestChannel_handleLeave(t *testing.T) {
	ch := newTestChannel(t, "profiles")
	c1 := newTestClient(t, "u1")
	c2 := newTestClient(t, "u2")

	ch.handleSubscribe(subscribeMsg(c1, 1, &Subscribe{Table: "profiles"}))
	ch.handleSubscribe(subscribeMsg(c1, 2, &Subscribe{Table: "profiles", Event: EventUpdate}))
	ch.handleSubscribe(subscribeMsg(c2, 1, &Subscribe{Table: "profiles"}))
	require.Len(t, ch.subs, 3)

	ch.handleLeave(c1)
	assert.Len(t, ch.subs, 1)
	assert.Empty(t, c1.subs)
	assert.Len(t, c2.subs, 1)
}

func TestChannel_handleEvent(t *testing.T) {
	ch := newTestChannel(t, "broadcasts")
	match := newTestClient(t, "u1")
	miss := newTestClient(t, "u2")

	ch.handleSubscribe(subscribeMsg(match, 1, &Subscribe{Table: "broadcasts", Filter: &Filter{Column: "campus_id", Value: "c1"}}))
	id := receive(t, match).Response.Data.(SubscribeResult).SubscriptionId
	ch.handleSubscribe(subscribeMsg(miss, 1, &Subscribe{Table: "broadcasts", Filter: &Filter{Column: "campus_id", Value: "c2"}}))
	receive(t, miss)

	ev := ChangeEvent{Table: "broadcasts", Type: EventInsert, Record: map[string]any{"id": "b1", "campus_id": "c1"}}
	ch.handleEvent(ev)

	msg := receive(t, match)
	require.NotNil(t, msg.Change)
	assert.Equal(t, id, msg.Change.SubscriptionId)
	assert.Equal(t, ev, msg.Change.Event)
	assert.Len(t, miss.send, 0, "expected no change for a non-matching filter")
}

func TestChannel_handleExit(t *testing.T) {
	ch := newTestChannel(t, "sessions")
	c := newTestClient(t, "u1")
	pending := newTestClient(t, "u2")

	ch.handleSubscribe(subscribeMsg(c, 1, &Subscribe{Table: "sessions"}))
	id := receive(t, c).Response.Data.(SubscribeResult).SubscriptionId
	ch.subChan <- subscribeMsg(pending, 4, &Subscribe{Table: "sessions"})

	ch.handleExit()

	msg := receive(t, c)
	require.NotNil(t, msg.Notification)
	require.NotNil(t, msg.Notification.ChannelClosed)
	assert.Equal(t, id, msg.Notification.ChannelClosed.SubscriptionId)
	assert.Equal(t, "sessions", msg.Notification.ChannelClosed.Table)
	assert.Empty(t, c.subs)
	assert.Empty(t, ch.subs)

	resp := receive(t, pending)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Response.ResponseCode)

	select {
	case <-ch.done:
	default:
		t.Error("expected done to be closed")
	}
}

func TestSubscriptionMatches(t *testing.T) {
	tcases := []struct {
		name   string
		userId string
		event  EventType
		filter *Filter
		ev     ChangeEvent
		expect bool
	}{
		{
			name:   "any event without filter",
			userId: "u1",
			event:  EventAll,
			ev:     ChangeEvent{Table: "broadcasts", Type: EventDelete, OldRecord: map[string]any{"id": "b1"}},
			expect: true,
		},
		{
			name:   "event type mismatch",
			userId: "u1",
			event:  EventInsert,
			ev:     ChangeEvent{Table: "broadcasts", Type: EventUpdate, Record: map[string]any{"id": "b1"}},
			expect: false,
		},
		{
			name:   "delete matched on old record",
			userId: "u1",
			event:  EventAll,
			filter: &Filter{Column: "session_id", Value: "s1"},
			ev:     ChangeEvent{Table: "session_members", Type: EventDelete, OldRecord: map[string]any{"session_id": "s1"}},
			expect: true,
		},
		{
			name:   "direct message to someone else",
			userId: "u3",
			event:  EventAll,
			ev:     messageEvent("m1", "u1", "u2", ""),
			expect: false,
		},
		{
			name:   "direct message to subscriber",
			userId: "u2",
			event:  EventInsert,
			ev:     messageEvent("m1", "u1", "u2", ""),
			expect: true,
		},
		{
			name:   "conversation filter",
			userId: "u2",
			event:  EventInsert,
			filter: &Filter{Peer: "u1"},
			ev:     messageEvent("m1", "u1", "u2", ""),
			expect: true,
		},
		{
			name:   "conversation filter other peer",
			userId: "u2",
			event:  EventInsert,
			filter: &Filter{Peer: "u4"},
			ev:     messageEvent("m1", "u1", "u2", ""),
			expect: false,
		},
		{
			name:   "session message without session filter",
			userId: "u2",
			event:  EventAll,
			ev:     messageEvent("m2", "u1", "", "s1"),
			expect: false,
		},
		{
			name:   "session message with session filter",
			userId: "u2",
			event:  EventAll,
			filter: &Filter{Column: "session_id", Value: "s1"},
			ev:     messageEvent("m2", "u1", "", "s1"),
			expect: true,
		},
		{
			name:   "connection of others",
			userId: "u9",
			event:  EventAll,
			ev:     ChangeEvent{Table: "connections", Type: EventInsert, Record: map[string]any{"requester_id": "u1", "addressee_id": "u2"}},
			expect: false,
		},
		{
			name:   "connection addressed to subscriber",
			userId: "u2",
			event:  EventAll,
			ev:     ChangeEvent{Table: "connections", Type: EventInsert, Record: map[string]any{"requester_id": "u1", "addressee_id": "u2"}},
			expect: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			s := &subscription{
				client: newTestClient(t, tc.userId),
				event:  tc.event,
				filter: tc.filter,
			}
			assert.Equal(t, tc.expect, s.matches(tc.ev))
		})
	}
}
