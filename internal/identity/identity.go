package identity

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

type Stage string

const (
	StageUnauthenticated Stage = "unauthenticated"
	StageNeedsProfile    Stage = "needs-profile"
	StageReady           Stage = "ready"
)

type Route string

const (
	RouteAuth       Route = "auth"
	RouteOnboarding Route = "onboarding"
	RouteDashboard  Route = "dashboard"
)

// Gateway is the read path the store needs. A missing row is reported as
// sql.ErrNoRows.
type Gateway interface {
	GetProfileByUserId(ctx context.Context, userId string) (database.Profile, error)
	GetCampus(ctx context.Context, id string) (database.Campus, error)
}

// State is a snapshot of who is signed in. Ready is false until the first
// refresh for the current identity has been applied.
type State struct {
	Account *database.Account
	Profile *database.Profile
	Campus  *database.Campus
	Ready   bool
}

// Stage depends only on the presence of the account and the profile.
func (s State) Stage() Stage {
	switch {
	case s.Account == nil:
		return StageUnauthenticated
	case s.Profile == nil:
		return StageNeedsProfile
	default:
		return StageReady
	}
}

func (s State) Route() Route {
	switch s.Stage() {
	case StageReady:
		return RouteDashboard
	case StageNeedsProfile:
		return RouteOnboarding
	default:
		return RouteAuth
	}
}

func (s State) Wire() types.Identity {
	id := types.Identity{
		Stage: string(s.Stage()),
		Route: string(s.Route()),
		Ready: s.Ready,
	}
	if s.Account != nil {
		u := types.FromAccount(*s.Account)
		id.User = &u
	}
	if s.Profile != nil {
		p := types.FromProfile(*s.Profile)
		id.Profile = &p
	}
	if s.Campus != nil {
		c := types.FromCampus(*s.Campus)
		id.Campus = &c
	}
	return id
}

// Store holds the identity state of one account. Every refresh is stamped
// with a generation; a result older than the last applied one is dropped.
type Store struct {
	gw      Gateway
	mu      sync.Mutex
	state   State
	gen     uint64
	applied uint64
}

func NewStore(gw Gateway) *Store {
	return &Store{gw: gw}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SignIn replaces the identity. Profile and campus are cleared until the next
// Refresh.
func (s *Store) SignIn(account database.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.applied = s.gen
	s.state = State{Account: &account}
}

func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.applied = s.gen
	s.state = State{Ready: true}
}

func (s *Store) begin() (uint64, *database.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen, s.state.Account
}

// apply installs next if gen is newer than anything applied so far and
// reports whether it did.
func (s *Store) apply(gen uint64, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.applied {
		return false
	}
	s.applied = gen
	s.state = next
	return true
}

// Refresh reloads the profile of the signed in account and then the campus
// the profile points at. A missing profile or campus leaves that field nil
// without an error.
func (s *Store) Refresh(ctx context.Context) (State, error) {
	gen, account := s.begin()

	if account == nil {
		s.apply(gen, State{Ready: true})
		return s.State(), nil
	}

	next := State{Account: account, Ready: true}

	profile, err := s.gw.GetProfileByUserId(ctx, account.Id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return s.State(), err
	default:
		next.Profile = &profile

		campus, err := s.gw.GetCampus(ctx, profile.CampusId)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return s.State(), err
		default:
			next.Campus = &campus
		}
	}

	s.apply(gen, next)
	return s.State(), nil
}
