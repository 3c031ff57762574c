package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/realtime"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL  = 5 * time.Minute
	loadTimeout = 10 * time.Second
)

// Loader is the part of the gateway whose rows are cached.
type Loader interface {
	GetProfileByUserId(ctx context.Context, userId string) (database.Profile, error)
	GetCampus(ctx context.Context, id string) (database.Campus, error)
}

type entry struct {
	value   any
	expires time.Time
}

// Cache holds profiles by user id and campuses by id. Concurrent misses on one
// key share a single load; change events evict the affected key.
type Cache struct {
	log     *log.Logger
	db      Loader
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry
	// versions is bumped on every eviction so loads racing an eviction are not stored
	versions map[string]uint64
}

func New(logger *log.Logger, db Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		log:      logger,
		db:       db,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]entry),
		versions: make(map[string]uint64),
	}
}

func key(table, id string) string {
	return table + ":" + id
}

func (c *Cache) lookup(k string) (any, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if ok && c.now().Before(e.expires) {
		return e.value, 0, true
	}
	if ok {
		delete(c.entries, k)
	}
	return nil, c.versions[k], false
}

func (c *Cache) store(k string, version uint64, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.versions[k] != version {
		return
	}
	c.entries[k] = entry{value: v, expires: c.now().Add(c.ttl)}
}

func (c *Cache) get(ctx context.Context, k string, load func(context.Context) (any, error)) (any, error) {
	if v, _, ok := c.lookup(k); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		// shared loads are not tied to the caller that started them
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		_, version, _ := c.lookup(k)
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(k, version, v)
		return v, nil
	})
	return v, err
}

func (c *Cache) GetProfileByUserId(ctx context.Context, userId string) (database.Profile, error) {
	v, err := c.get(ctx, key("profiles", userId), func(ctx context.Context) (any, error) {
		return c.db.GetProfileByUserId(ctx, userId)
	})
	if err != nil {
		return database.Profile{}, err
	}
	return v.(database.Profile), nil
}

func (c *Cache) GetCampus(ctx context.Context, id string) (database.Campus, error) {
	v, err := c.get(ctx, key("campuses", id), func(ctx context.Context) (any, error) {
		return c.db.GetCampus(ctx, id)
	})
	if err != nil {
		return database.Campus{}, err
	}
	return v.(database.Campus), nil
}

func (c *Cache) Invalidate(table, id string) {
	k := key(table, id)

	c.mu.Lock()
	delete(c.entries, k)
	c.versions[k]++
	c.mu.Unlock()

	c.group.Forget(k)
}

// Observe evicts the profile named by a profiles change event.
func (c *Cache) Observe(ev realtime.ChangeEvent) {
	if ev.Table != "profiles" {
		return
	}

	if userId := ev.Value("user_id"); userId != "" {
		c.Invalidate("profiles", userId)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ realtime.Sink = (*Cache)(nil)
