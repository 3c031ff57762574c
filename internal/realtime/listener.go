package realtime

import (
	"context"
	"log"
	"time"

	"github.com/lib/pq"
)

const (
	NotifyChannel = "row_changes"

	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Listener relays Postgres row change notifications to a Publisher.
type Listener struct {
	log       *log.Logger
	dsn       string
	publisher Publisher
}

func NewListener(logger *log.Logger, dsn string, p Publisher) *Listener {
	return &Listener{
		log:       logger,
		dsn:       dsn,
		publisher: p,
	}
}

// Run listens until ctx is done. pq.Listener reconnects on its own; a nil
// notification marks a reconnect, after which events may have been missed.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Printf("listener event %d: %v", ev, err)
		}
	})
	defer pl.Close()

	if err := pl.Listen(NotifyChannel); err != nil {
		return err
	}
	l.log.Printf("listening for notifications on %q", NotifyChannel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case n := <-pl.Notify:
			if n == nil {
				l.log.Println("listener reconnected")
				continue
			}
			l.handleNotification(ctx, n)
		case <-ticker.C:
			go pl.Ping()
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Listener) handleNotification(ctx context.Context, n *pq.Notification) {
	ev, err := ParseChangeEvent([]byte(n.Extra))
	if err != nil {
		l.log.Printf("discarding notification from pid %d: %v", n.BePid, err)
		return
	}

	if err := l.publisher.Publish(ctx, ev); err != nil {
		l.log.Printf("publish %s on %q: %v", ev.Type, ev.Table, err)
	}
}
