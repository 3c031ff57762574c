package identity

import (
	"context"
	"sync"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/realtime"
)

// Registry keeps one Store per signed in account.
type Registry struct {
	gw     Gateway
	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry(gw Gateway) *Registry {
	return &Registry{
		gw:     gw,
		stores: make(map[string]*Store),
	}
}

func (r *Registry) store(account database.Account) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[account.Id]; ok {
		return s, false
	}

	s := NewStore(r.gw)
	s.SignIn(account)
	r.stores[account.Id] = s
	return s, true
}

// Get returns the state of account, loading it on first use.
func (r *Registry) Get(ctx context.Context, account database.Account) (State, error) {
	s, _ := r.store(account)
	if st := s.State(); st.Ready {
		return st, nil
	}
	return s.Refresh(ctx)
}

// Refresh forces a reload of account's profile and campus.
func (r *Registry) Refresh(ctx context.Context, account database.Account) (State, error) {
	s, _ := r.store(account)
	return s.Refresh(ctx)
}

func (r *Registry) SignOut(userId string) {
	r.mu.Lock()
	s, ok := r.stores[userId]
	delete(r.stores, userId)
	r.mu.Unlock()

	if ok {
		s.SignOut()
	}
}

// Observe marks the state of a user stale when their profile row changes.
func (r *Registry) Observe(ev realtime.ChangeEvent) {
	if ev.Table != "profiles" {
		return
	}

	userId := ev.Value("user_id")
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userId)
}

var _ realtime.Sink = (*Registry)(nil)
