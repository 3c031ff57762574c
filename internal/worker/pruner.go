package worker

import (
	"context"
	"log"
	"time"
)

// BroadcastStore deletes broadcasts that expired before a cutoff.
type BroadcastStore interface {
	DeleteExpiredBroadcasts(ctx context.Context, before time.Time) (int64, error)
}

// Pruner periodically removes broadcasts that expired more than retention
// ago. Listings already hide expired broadcasts; pruning only bounds the
// table.
type Pruner struct {
	log       *log.Logger
	db        BroadcastStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
}

func NewPruner(logger *log.Logger, db BroadcastStore, interval, retention time.Duration) *Pruner {
	return &Pruner{
		log:       logger,
		db:        db,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run prunes once immediately and then every interval until Stop is called.
func (p *Pruner) Run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.prune()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stop:
			return
		}
	}
}

// Stop ends Run and waits for an in flight prune to finish.
func (p *Pruner) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	cutoff := p.now().Add(-p.retention)
	n, err := p.db.DeleteExpiredBroadcasts(ctx, cutoff)
	if err != nil {
		p.log.Printf("prune broadcasts: %v", err)
		return
	}
	if n > 0 {
		p.log.Printf("pruned %d broadcasts expired before %s", n, cutoff.Format(time.RFC3339))
	}
}
