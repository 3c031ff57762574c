package views

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func errNoRows() error { return sql.ErrNoRows }

func TestRemainingMinutes(t *testing.T) {
	expires := testNow.Add(60 * time.Minute)

	tcases := []struct {
		name   string
		now    time.Time
		expect int
	}{
		{name: "at creation", now: testNow, expect: 60},
		{name: "after 59 minutes", now: testNow.Add(59 * time.Minute), expect: 1},
		{name: "seconds before expiry", now: expires.Add(-30 * time.Second), expect: 0},
		{name: "at expiry", now: expires, expect: 0},
		{name: "after 61 minutes", now: testNow.Add(61 * time.Minute), expect: 0},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, RemainingMinutes(expires, tc.now))
		})
	}
}

func TestBroadcastsCreate(t *testing.T) {
	t.Run("expires after the chosen duration", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		params := database.CreateBroadcastParams{
			UserId:          "u1",
			CampusId:        "c1",
			Message:         "study group at the library",
			Category:        database.CategoryStudy,
			DurationMinutes: 60,
			ExpiresAt:       testNow.Add(time.Hour),
		}
		env.db.On("CreateBroadcast", mock.Anything, params).Return(database.Broadcast{
			Id:              "b1",
			UserId:          "u1",
			CampusId:        "c1",
			Message:         params.Message,
			Category:        params.Category,
			DurationMinutes: 60,
			ExpiresAt:       params.ExpiresAt,
			CreatedAt:       testNow,
		}, nil)

		got, err := env.Broadcasts.Create(context.Background(), "u1", BroadcastInput{
			Message:         " <b>study group</b> at the library ",
			Category:        database.CategoryStudy,
			DurationMinutes: 60,
		})
		require.NoError(t, err)
		assert.Equal(t, 60, got.RemainingMinutes)
		assert.True(t, got.IsMine)
	})

	tcases := []struct {
		name  string
		input BroadcastInput
	}{
		{name: "unsupported duration", input: BroadcastInput{Message: "hi", Category: database.CategoryHelp, DurationMinutes: 45}},
		{name: "unknown category", input: BroadcastInput{Message: "hi", Category: "party", DurationMinutes: 15}},
		{name: "empty message", input: BroadcastInput{Message: "  ", Category: database.CategoryHelp, DurationMinutes: 15}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.withProfile()

			_, err := env.Broadcasts.Create(context.Background(), "u1", tc.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
			env.db.AssertNotCalled(t, "CreateBroadcast", mock.Anything, mock.Anything)
		})
	}
}

func TestBroadcastsList(t *testing.T) {
	env := newTestEnv(t)
	env.withProfile()
	env.db.On("ListBroadcasts", mock.Anything, database.From("broadcasts").
		Where(database.Eq("campus_id", "c1"), database.Gt("expires_at", testNow)).
		Order("created_at", true).
		Take(broadcastListLimit)).
		Return([]database.Broadcast{
			{Id: "b2", UserId: "u1", ExpiresAt: testNow.Add(90 * time.Second)},
			{Id: "b1", UserId: "u2", ExpiresAt: testNow.Add(2 * time.Hour)},
		}, nil)

	got, err := env.Broadcasts.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].RemainingMinutes)
	assert.True(t, got[0].IsMine)
	assert.Equal(t, 120, got[1].RemainingMinutes)
	assert.False(t, got[1].IsMine)
}

func TestBroadcastsDelete(t *testing.T) {
	tcases := []struct {
		name      string
		setup     func(db *database.MockRepository)
		expectErr error
	}{
		{
			name: "owner",
			setup: func(db *database.MockRepository) {
				db.On("GetBroadcast", mock.Anything, "b1").Return(database.Broadcast{Id: "b1", UserId: "u1"}, nil)
				db.On("DeleteBroadcast", mock.Anything, "b1").Return(nil)
			},
		},
		{
			name: "someone else's broadcast",
			setup: func(db *database.MockRepository) {
				db.On("GetBroadcast", mock.Anything, "b1").Return(database.Broadcast{Id: "b1", UserId: "u2"}, nil)
			},
			expectErr: ErrForbidden,
		},
		{
			name: "missing broadcast",
			setup: func(db *database.MockRepository) {
				db.On("GetBroadcast", mock.Anything, "b1").Return(database.Broadcast{}, sql.ErrNoRows)
			},
			expectErr: ErrNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tc.setup(env.db)

			err := env.Broadcasts.Delete(context.Background(), "u1", "b1")
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				env.db.AssertNotCalled(t, "DeleteBroadcast", mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
		})
	}
}
