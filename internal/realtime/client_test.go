package realtime

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := newTestClient(t, "u1")
		c.send = make(chan *ServerMessage, 1)

		assert.True(t, c.queueMessage(&ServerMessage{}), "expected queueMessage to return true when channel is not full")
		assert.Len(t, c.send, 1)
	})

	t.Run("channel full", func(t *testing.T) {
		c := newTestClient(t, "u1")
		c.send = make(chan *ServerMessage, 1)

		c.send <- &ServerMessage{}
		assert.False(t, c.queueMessage(&ServerMessage{}), "expected queueMessage to return false when channel is full")
	})
}

func Test_serializeMessage(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	message := &ServerMessage{
		BaseMessage: BaseMessage{Id: 1, Timestamp: ts},
		Response: &Response{
			ResponseCode: 200,
			Data:         SubscribeResult{SubscriptionId: "abc", Table: "broadcasts"},
		},
	}

	expected := `{"id":1,"timestamp":"2026-03-01T10:00:00Z","response":{"response_code":200,"data":{"subscription_id":"abc","table":"broadcasts"}}}`

	bytes, err := serializeMessage(message)
	require.NoError(t, err)
	assert.Equal(t, expected, string(bytes))
}

func Test_stopClient(t *testing.T) {
	c := newTestClient(t, "u1")

	c.stopClient()
	c.stopClient()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_dispatch(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		c := newTestClient(t, "u1")
		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 5}})

		resp := receive(t, c)
		assert.Equal(t, 5, resp.Id)
		assert.Equal(t, http.StatusBadRequest, resp.Response.ResponseCode)
	})

	t.Run("unsubscribe unknown subscription", func(t *testing.T) {
		c := newTestClient(t, "u1")
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 6},
			Unsubscribe: &Unsubscribe{SubscriptionId: "nope"},
		})

		resp := receive(t, c)
		assert.Equal(t, http.StatusNotFound, resp.Response.ResponseCode)
	})

	t.Run("unsubscribe routes to channel", func(t *testing.T) {
		c := newTestClient(t, "u1")
		ch := &Channel{table: "sessions", unsubChan: make(chan *ClientMessage, 1)}
		c.addSub("sub1", ch)

		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 7},
			Unsubscribe: &Unsubscribe{SubscriptionId: "sub1"},
		})

		require.Len(t, ch.unsubChan, 1)
		msg := <-ch.unsubChan
		assert.Equal(t, c, msg.client)
		assert.Equal(t, "u1", msg.UserId)
		assert.False(t, msg.Timestamp.IsZero())
	})

	t.Run("session subscription denied to non-member", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("Count", mock.Anything, membership("u1")).Return(0, nil).Once()

		c := newTestClient(t, "u1")
		c.hub = newTestHub(t, db)
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 8},
			Subscribe:   &Subscribe{Table: "messages", Filter: &Filter{Column: "session_id", Value: "s1"}},
		})

		resp := receive(t, c)
		assert.Equal(t, 8, resp.Id)
		assert.Equal(t, http.StatusForbidden, resp.Response.ResponseCode)
		assert.Empty(t, c.hub.subscribeChan, "expected subscription not to reach the hub")
		db.AssertExpectations(t)
	})

	t.Run("membership lookup fails", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("Count", mock.Anything, membership("u1")).Return(0, errors.New("timeout")).Once()

		c := newTestClient(t, "u1")
		c.hub = newTestHub(t, db)
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 9},
			Subscribe:   &Subscribe{Table: "messages", Filter: &Filter{Column: "session_id", Value: "s1"}},
		})

		resp := receive(t, c)
		assert.Equal(t, http.StatusInternalServerError, resp.Response.ResponseCode)
		assert.Empty(t, c.hub.subscribeChan)
	})

	t.Run("member subscription forwarded to hub", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("Count", mock.Anything, membership("u1")).Return(1, nil).Once()

		c := newTestClient(t, "u1")
		c.hub = newTestHub(t, db)
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 10},
			Subscribe:   &Subscribe{Table: "messages", Filter: &Filter{Column: "session_id", Value: "s1"}},
		})

		require.Len(t, c.hub.subscribeChan, 1)
		msg := <-c.hub.subscribeChan
		assert.Equal(t, "u1", msg.UserId)
		assert.Empty(t, c.send)
	})
}

func Test_leaveAllChannels(t *testing.T) {
	channels := []*Channel{
		{table: "sessions", leaveChan: make(chan *Client, 2)},
		{table: "messages", leaveChan: make(chan *Client, 2)},
	}

	c := newTestClient(t, "u1")
	c.addSub("a", channels[0])
	c.addSub("b", channels[0])
	c.addSub("c", channels[1])

	c.leaveAllChannels()

	for _, ch := range channels {
		assert.Len(t, ch.leaveChan, 1, "expected one leave request for channel %s", ch.table)
		assert.Equal(t, c, <-ch.leaveChan)
	}
}
