package views

import (
	"context"
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func student(userId string, tags ...string) database.Profile {
	return database.Profile{Id: "p-" + userId, UserId: userId, CampusId: "c1", Username: userId, InterestTags: tags}
}

func TestRankNearby(t *testing.T) {
	mine := []string{"Music", "Chess", "Art"}
	candidates := []database.Profile{
		student("a"),
		student("b", "Music"),
		student("c", "Music", "Chess", "Art"),
		student("d", "Gaming"),
		student("e", "Chess"),
		student("f", "Art", "Music"),
	}

	ranked := RankNearby(mine, candidates, 8)
	require.Len(t, ranked, 6)

	order := make([]string, 0, len(ranked))
	for i, s := range ranked {
		order = append(order, s.Profile.UserId)
		if i > 0 {
			assert.LessOrEqual(t, len(s.SharedTags), len(ranked[i-1].SharedTags))
		}
	}
	assert.Equal(t, []string{"c", "f", "b", "e", "a", "d"}, order)
	assert.Equal(t, []string{"Art", "Music"}, ranked[1].SharedTags)
	assert.Empty(t, ranked[4].SharedTags)

	assert.Len(t, RankNearby(mine, candidates, 3), 3)
}

func TestTrendingTags(t *testing.T) {
	profiles := []database.Profile{
		student("a", "Music", "Chess"),
		student("b", "Music", "Art"),
		student("c", "Music", "Chess"),
		student("d", "Art"),
		student("e", "Travel"),
	}

	got := TrendingTags(profiles, 3)
	assert.Equal(t, []string{"Music", "Art", "Chess"}, []string{got[0].Tag, got[1].Tag, got[2].Tag})
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, 2, got[2].Count)
}

func TestDashboardLoad(t *testing.T) {
	env := newTestEnv(t)
	env.withProfile()

	env.db.On("ListProfiles", mock.Anything, mock.MatchedBy(func(q database.Query) bool {
		return q.Limit == nearbyFetchLimit
	})).Return([]database.Profile{
		student("u2", "Gaming"),
		student("u3", "Music", "Chess"),
	}, nil)
	env.db.On("ListProfiles", mock.Anything, mock.MatchedBy(func(q database.Query) bool {
		return q.Limit == trendingPopulation
	})).Return([]database.Profile{
		testProfile,
		student("u2", "Gaming"),
		student("u3", "Music", "Chess"),
	}, nil)
	env.db.On("ListSessions", mock.Anything, mock.MatchedBy(func(q database.Query) bool {
		return q.Limit == dashboardSessions
	})).Return([]database.Session{}, nil)
	env.db.On("ListBroadcasts", mock.Anything, mock.MatchedBy(func(q database.Query) bool {
		return q.Limit == dashboardBroadcasts
	})).Return([]database.Broadcast{
		{Id: "b1", UserId: "u2", CampusId: "c1", Message: "anyone for chess?", ExpiresAt: testNow.Add(30 * time.Minute)},
	}, nil)

	dash, err := env.Dashboard.Load(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, dash.NearbyStudents, 2)
	assert.Equal(t, "u3", dash.NearbyStudents[0].Profile.UserId)
	assert.Equal(t, []string{"Music", "Chess"}, dash.NearbyStudents[0].SharedTags)
	assert.Equal(t, "Chess", dash.TrendingTags[0].Tag)
	assert.Empty(t, dash.ActiveSessions)
	require.Len(t, dash.Broadcasts, 1)
	assert.Equal(t, 30, dash.Broadcasts[0].RemainingMinutes)
	assert.False(t, dash.Broadcasts[0].IsMine)
}

func TestDashboardLoadWithoutProfile(t *testing.T) {
	env := newTestEnv(t)
	env.db.On("GetProfileByUserId", mock.Anything, "u1").Return(database.Profile{}, errNoRows())

	_, err := env.Dashboard.Load(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoProfile)
}
