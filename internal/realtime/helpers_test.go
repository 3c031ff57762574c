package realtime

import (
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/stats"
	"github.com/devquest008/campus-connect/internal/testutil"
	"github.com/stretchr/testify/mock"
)

func newTestHub(t *testing.T, db database.Repository, sinks ...Sink) *Hub {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	return NewHub(testutil.TestLogger(t), db, su, sinks...)
}

func newTestChannel(t *testing.T, table string) *Channel {
	ch := newChannel(table, newTestHub(t, &database.MockRepository{}))
	ch.killTimer = time.NewTimer(idleChannelTimeout)
	ch.killTimer.Stop()
	return ch
}

func newTestClient(t *testing.T, userId string) *Client {
	return &Client{
		log:    testutil.TestLogger(t),
		userId: userId,
		send:   make(chan *ServerMessage, 16),
		subs:   make(map[string]*Channel),
		stop:   make(chan struct{}),
	}
}

func receive(t *testing.T, c *Client) *ServerMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout: expected a message to be queued to client")
		return nil
	}
}

func subscribeMsg(c *Client, id int, sub *Subscribe) *ClientMessage {
	return &ClientMessage{
		BaseMessage: BaseMessage{Id: id, Timestamp: Now()},
		Subscribe:   sub,
		UserId:      c.userId,
		client:      c,
	}
}
