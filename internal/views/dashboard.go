package views

import (
	"cmp"
	"context"
	"slices"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

const (
	nearbyFetchLimit    = 12
	nearbyShown         = 8
	trendingLimit       = 10
	trendingPopulation  = 500
	dashboardSessions   = 6
	dashboardBroadcasts = 8
)

type Dashboard struct {
	*base
}

// SharedTags returns the tags of theirs that also appear in mine, in their
// order.
func SharedTags(mine, theirs []string) []string {
	shared := make([]string, 0)
	for _, t := range theirs {
		if slices.Contains(mine, t) && !slices.Contains(shared, t) {
			shared = append(shared, t)
		}
	}
	return shared
}

// RankNearby orders candidates by the number of tags shared with mine,
// highest first. Candidates with equal overlap keep their input order.
func RankNearby(mine []string, candidates []database.Profile, limit int) []types.Student {
	students := make([]types.Student, 0, len(candidates))
	for _, p := range candidates {
		students = append(students, types.Student{
			Profile:    types.FromProfile(p),
			SharedTags: SharedTags(mine, p.InterestTags),
		})
	}

	slices.SortStableFunc(students, func(a, b types.Student) int {
		return cmp.Compare(len(b.SharedTags), len(a.SharedTags))
	})

	if len(students) > limit {
		students = students[:limit]
	}
	return students
}

// TrendingTags counts tag usage across profiles and returns the most used,
// ties broken alphabetically.
func TrendingTags(profiles []database.Profile, limit int) []types.TagCount {
	counts := make(map[string]int)
	for _, p := range profiles {
		for _, t := range p.InterestTags {
			counts[t]++
		}
	}

	tags := make([]types.TagCount, 0, len(counts))
	for t, n := range counts {
		tags = append(tags, types.TagCount{Tag: t, Count: n})
	}
	slices.SortFunc(tags, func(a, b types.TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})

	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func (d *Dashboard) Load(ctx context.Context, userId string) (types.Dashboard, error) {
	var dash types.Dashboard

	me, err := d.profile(ctx, userId)
	if err != nil {
		return dash, err
	}

	others, err := d.db.ListProfiles(ctx, database.From("profiles").
		Where(database.Eq("campus_id", me.CampusId), database.Neq("user_id", userId)).
		Take(nearbyFetchLimit))
	if err != nil {
		return dash, err
	}
	dash.NearbyStudents = RankNearby(me.InterestTags, others, nearbyShown)

	population, err := d.db.ListProfiles(ctx, database.From("profiles").
		Where(database.Eq("campus_id", me.CampusId)).
		Take(trendingPopulation))
	if err != nil {
		return dash, err
	}
	dash.TrendingTags = TrendingTags(population, trendingLimit)

	if dash.ActiveSessions, err = d.listSessions(ctx, me.CampusId, userId, "", dashboardSessions); err != nil {
		return dash, err
	}
	if dash.Broadcasts, err = d.activeBroadcasts(ctx, me.CampusId, userId, dashboardBroadcasts); err != nil {
		return dash, err
	}
	return dash, nil
}
