package views

import (
	"context"
	"slices"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

const (
	maxBroadcastLength = 280
	broadcastListLimit = 50
)

// Durations are the broadcast lifetimes, in minutes, a user can pick.
var Durations = []int{15, 30, 60, 120}

// RemainingMinutes returns the whole minutes left before expiresAt, never
// less than zero.
func RemainingMinutes(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

type BroadcastInput struct {
	Message         string `json:"message"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

type Broadcasts struct {
	*base
}

// activeBroadcasts lists the unexpired broadcasts of a campus, newest first.
// Expiry is evaluated against the clock on every call.
func (b *base) activeBroadcasts(ctx context.Context, campusId, userId string, limit int) ([]types.Broadcast, error) {
	now := b.now()
	rows, err := b.db.ListBroadcasts(ctx, database.From("broadcasts").
		Where(database.Eq("campus_id", campusId), database.Gt("expires_at", now)).
		Order("created_at", true).
		Take(limit))
	if err != nil {
		return nil, err
	}

	out := make([]types.Broadcast, 0, len(rows))
	for _, r := range rows {
		out = append(out, b.broadcast(r, userId, now))
	}
	return out, nil
}

func (b *base) broadcast(r database.Broadcast, userId string, now time.Time) types.Broadcast {
	bc := types.FromBroadcast(r)
	bc.RemainingMinutes = RemainingMinutes(r.ExpiresAt, now)
	bc.IsMine = r.UserId == userId
	return bc
}

func (b *Broadcasts) List(ctx context.Context, userId string) ([]types.Broadcast, error) {
	me, err := b.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	return b.activeBroadcasts(ctx, me.CampusId, userId, broadcastListLimit)
}

func (b *Broadcasts) Create(ctx context.Context, userId string, in BroadcastInput) (types.Broadcast, error) {
	me, err := b.profile(ctx, userId)
	if err != nil {
		return types.Broadcast{}, err
	}

	msg, err := b.clean("message", in.Message, maxBroadcastLength)
	if err != nil {
		return types.Broadcast{}, err
	}
	if !database.ValidCategory(in.Category) {
		return types.Broadcast{}, invalidf("unknown category %q", in.Category)
	}
	if !slices.Contains(Durations, in.DurationMinutes) {
		return types.Broadcast{}, invalidf("duration must be one of %v minutes", Durations)
	}

	now := b.now()
	row, err := b.db.CreateBroadcast(ctx, database.CreateBroadcastParams{
		UserId:          userId,
		CampusId:        me.CampusId,
		Message:         msg,
		Category:        in.Category,
		DurationMinutes: in.DurationMinutes,
		ExpiresAt:       now.Add(time.Duration(in.DurationMinutes) * time.Minute),
	})
	if err != nil {
		return types.Broadcast{}, err
	}
	return b.broadcast(row, userId, now), nil
}

// Delete removes a broadcast owned by userId.
func (b *Broadcasts) Delete(ctx context.Context, userId, id string) error {
	row, err := b.db.GetBroadcast(ctx, id)
	if err != nil {
		return notFound(err, "broadcast")
	}
	if row.UserId != userId {
		return ErrForbidden
	}
	return notFound(b.db.DeleteBroadcast(ctx, id), "broadcast")
}
