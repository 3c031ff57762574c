package views

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/microcosm-cc/bluemonday"
)

// ProfileLoader resolves profiles and campuses, normally through the entity
// cache.
type ProfileLoader interface {
	GetProfileByUserId(ctx context.Context, userId string) (database.Profile, error)
	GetCampus(ctx context.Context, id string) (database.Campus, error)
	Invalidate(table, id string)
}

type base struct {
	log     *log.Logger
	db      database.Repository
	loader  ProfileLoader
	now     func() time.Time
	policy  *bluemonday.Policy
	maxText int
}

// clean strips markup from user text and trims it. The result stays HTML
// escaped. It fails on empty text or text longer than limit runes.
func (b *base) clean(field, s string, limit int) (string, error) {
	s = strings.TrimSpace(b.policy.Sanitize(s))
	if s == "" {
		return "", invalidf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > limit {
		return "", invalidf("%s exceeds %d characters", field, limit)
	}
	return s, nil
}

// message cleans chat content, which is bounded in bytes rather than runes.
func (b *base) message(s string) (string, error) {
	s, err := b.clean("message", s, b.maxText)
	if err != nil {
		return "", err
	}
	if len(s) > b.maxText {
		return "", invalidf("message exceeds %d bytes", b.maxText)
	}
	return s, nil
}

// optional is clean for fields that may be left blank.
func (b *base) optional(field string, s *string, limit int) (*string, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v, err := b.clean(field, *s, limit)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *base) profile(ctx context.Context, userId string) (database.Profile, error) {
	p, err := b.loader.GetProfileByUserId(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNoProfile
	}
	return p, err
}

// Controllers bundles the per-screen view controllers.
type Controllers struct {
	Login      *Login
	Profile    *Profile
	Dashboard  *Dashboard
	Sessions   *Sessions
	Chat       *Chat
	Broadcasts *Broadcasts
	Heatmap    *Heatmap
}

type Options struct {
	// Now defaults to time.Now.
	Now            func() time.Time
	MaxMessageSize int
}

func New(logger *log.Logger, db database.Repository, loader ProfileLoader, ids IdentityRefresher, codes CodeSender, opts Options) *Controllers {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}

	b := &base{
		log:     logger,
		db:      db,
		loader:  loader,
		now:     opts.Now,
		policy:  bluemonday.StrictPolicy(),
		maxText: opts.MaxMessageSize,
	}

	return &Controllers{
		Login:      &Login{base: b, codes: codes},
		Profile:    &Profile{base: b, ids: ids},
		Dashboard:  &Dashboard{base: b},
		Sessions:   &Sessions{base: b},
		Chat:       &Chat{base: b},
		Broadcasts: &Broadcasts{base: b},
		Heatmap:    &Heatmap{base: b},
	}
}
