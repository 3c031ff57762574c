package views

import (
	"context"
	"testing"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSession = database.Session{
	Id:        "s1",
	CreatorId: "u2",
	CampusId:  "c1",
	Title:     "DSA revision",
	Category:  database.CategoryStudy,
	IsActive:  true,
	CreatedAt: testNow,
}

func memberQuery(sessionId, userId string) database.Query {
	return database.From("session_members").
		Where(database.Eq("session_id", sessionId), database.Eq("user_id", userId))
}

// expectList primes one re-fetch of the session list with the given member
// count and membership of u1.
func expectList(db *database.MockRepository, count int, member bool) {
	db.On("ListSessions", mock.Anything, mock.Anything).Return([]database.Session{testSession}, nil).Once()
	db.On("CountSessionMembers", mock.Anything, []string{"s1"}).Return(map[string]int{"s1": count}, nil).Once()

	mine := []database.SessionMember{}
	if member {
		mine = append(mine, database.SessionMember{SessionId: "s1", UserId: "u1"})
	}
	db.On("ListSessionMembers", mock.Anything, mock.Anything).Return(mine, nil).Once()
}

func TestSessionsList(t *testing.T) {
	t.Run("category filter", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("ListSessions", mock.Anything, database.From("sessions").
			Where(database.Eq("campus_id", "c1"), database.Eq("is_active", true), database.Eq("category", "hobby")).
			Order("created_at", true).
			Take(sessionListLimit)).
			Return([]database.Session{}, nil)

		got, err := env.Sessions.List(context.Background(), "u1", "hobby")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("all categories", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		expectList(env.db, 3, true)

		got, err := env.Sessions.List(context.Background(), "u1", CategoryAll)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].MemberCount)
		assert.True(t, got[0].IsMember)
	})

	t.Run("unknown category", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.Sessions.List(context.Background(), "u1", "party")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSessionsJoinThenLeave(t *testing.T) {
	env := newTestEnv(t)
	env.withProfile()
	env.db.On("GetSession", mock.Anything, "s1").Return(testSession, nil)

	expectList(env.db, 1, false)
	before, err := env.Sessions.List(context.Background(), "u1", "")
	require.NoError(t, err)

	env.db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(0, nil).Once()
	env.db.On("AddSessionMember", mock.Anything, "s1", "u1").Return(true, nil).Once()
	expectList(env.db, 2, true)
	joined, err := env.Sessions.Join(context.Background(), "u1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, joined[0].MemberCount)
	assert.True(t, joined[0].IsMember)

	env.db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(1, nil).Once()
	expectList(env.db, 2, true)
	again, err := env.Sessions.Join(context.Background(), "u1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, joined, again)
	env.db.AssertNumberOfCalls(t, "AddSessionMember", 1)

	env.db.On("RemoveSessionMember", mock.Anything, "s1", "u1").Return(nil).Once()
	expectList(env.db, 1, false)
	after, err := env.Sessions.Leave(context.Background(), "u1", "s1", "")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSessionsJoin(t *testing.T) {
	full := testSession
	full.MaxMembers = testutil.Ptr(2)
	inactive := testSession
	inactive.IsActive = false
	elsewhere := testSession
	elsewhere.CampusId = "c2"

	tcases := []struct {
		name      string
		setup     func(db *database.MockRepository)
		expectErr error
	}{
		{
			name: "session at capacity",
			setup: func(db *database.MockRepository) {
				db.On("GetSession", mock.Anything, "s1").Return(full, nil)
				db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(0, nil)
				db.On("CountSessionMembers", mock.Anything, []string{"s1"}).Return(map[string]int{"s1": 2}, nil)
			},
			expectErr: ErrSessionFull,
		},
		{
			name: "inactive session",
			setup: func(db *database.MockRepository) {
				db.On("GetSession", mock.Anything, "s1").Return(inactive, nil)
			},
			expectErr: ErrInvalidInput,
		},
		{
			name: "session on another campus",
			setup: func(db *database.MockRepository) {
				db.On("GetSession", mock.Anything, "s1").Return(elsewhere, nil)
			},
			expectErr: ErrForbidden,
		},
		{
			name: "missing session",
			setup: func(db *database.MockRepository) {
				db.On("GetSession", mock.Anything, "s1").Return(database.Session{}, errNoRows())
			},
			expectErr: ErrNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.withProfile()
			tc.setup(env.db)

			_, err := env.Sessions.Join(context.Background(), "u1", "s1", "")
			assert.ErrorIs(t, err, tc.expectErr)
			env.db.AssertNotCalled(t, "AddSessionMember", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("existing member of a full session", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("GetSession", mock.Anything, "s1").Return(full, nil)
		env.db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(1, nil)
		expectList(env.db, 2, true)

		_, err := env.Sessions.Join(context.Background(), "u1", "s1", "")
		assert.NoError(t, err)
	})
}

func TestSessionsCreate(t *testing.T) {
	env := newTestEnv(t)
	env.withProfile()
	env.db.On("CreateSession", mock.Anything, database.CreateSessionParams{
		CreatorId: "u1",
		CampusId:  "c1",
		Title:     "Chess club",
		Category:  database.CategoryHobby,
		Location:  testutil.Ptr("Block C"),
		Lat:       testutil.Ptr(16.46),
		Lng:       testutil.Ptr(80.5),
	}).Return(database.Session{Id: "s9", CampusId: "c1"}, nil)
	expectList(env.db, 1, true)

	_, err := env.Sessions.Create(context.Background(), "u1", SessionInput{
		Title:    " Chess club ",
		Category: database.CategoryHobby,
		Location: testutil.Ptr("Block C"),
		Lat:      testutil.Ptr(16.46),
		Lng:      testutil.Ptr(80.5),
	})
	require.NoError(t, err)
	env.db.AssertNotCalled(t, "AddSessionMember", mock.Anything, mock.Anything, mock.Anything)

	t.Run("rejects half a coordinate", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()

		_, err := env.Sessions.Create(context.Background(), "u1", SessionInput{
			Title:    "Chess club",
			Category: database.CategoryHobby,
			Lat:      testutil.Ptr(16.46),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSessionsCheckIn(t *testing.T) {
	t.Run("member", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("GetSession", mock.Anything, "s1").Return(testSession, nil)
		env.db.On("CheckInSessionMember", mock.Anything, "s1", "u1").Return(nil)
		expectList(env.db, 1, true)

		_, err := env.Sessions.CheckIn(context.Background(), "u1", "s1", "")
		assert.NoError(t, err)
	})

	t.Run("not a member", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("GetSession", mock.Anything, "s1").Return(testSession, nil)
		env.db.On("CheckInSessionMember", mock.Anything, "s1", "u1").Return(errNoRows())

		_, err := env.Sessions.CheckIn(context.Background(), "u1", "s1", "")
		assert.ErrorIs(t, err, ErrNotMember)
	})
}

func TestSessionsMessages(t *testing.T) {
	t.Run("members read the thread oldest first", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("GetSession", mock.Anything, "s1").Return(testSession, nil)
		env.db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(1, nil)
		env.db.On("ListMessages", mock.Anything, database.From("messages").
			Where(database.Eq("session_id", "s1")).
			Order("created_at", true).
			Take(threadLimit)).
			Return([]database.Message{
				{Id: "m2", SenderId: "u2", Content: "second"},
				{Id: "m1", SenderId: "u1", Content: "first"},
			}, nil)

		got, err := env.Sessions.Messages(context.Background(), "u1", "s1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "m1", got[0].Id)
		assert.Equal(t, "m2", got[1].Id)
	})

	t.Run("non members cannot post", func(t *testing.T) {
		env := newTestEnv(t)
		env.withProfile()
		env.db.On("GetSession", mock.Anything, "s1").Return(testSession, nil)
		env.db.On("Count", mock.Anything, memberQuery("s1", "u1")).Return(0, nil)

		_, err := env.Sessions.Post(context.Background(), "u1", "s1", "hello")
		assert.ErrorIs(t, err, ErrNotMember)
		env.db.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})
}
