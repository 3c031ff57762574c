package views

import (
	"context"
	"maps"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

const (
	MapZoom         = 16
	TileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	TileAttribution = "&copy; OpenStreetMap contributors"

	heatmapSessions   = 100
	heatmapBroadcasts = 50
)

// CategoryColors maps session categories to their marker colour.
var CategoryColors = map[string]string{
	database.CategoryStudy:  "#3b82f6",
	database.CategoryHobby:  "#22c55e",
	database.CategoryHelp:   "#ef4444",
	database.CategorySocial: "#a855f7",
}

type Heatmap struct {
	*base
}

// Load centres the map on the user's campus and plots the active sessions
// that carry coordinates.
func (h *Heatmap) Load(ctx context.Context, userId string) (types.Heatmap, error) {
	var hm types.Heatmap

	me, err := h.profile(ctx, userId)
	if err != nil {
		return hm, err
	}
	campus, err := h.loader.GetCampus(ctx, me.CampusId)
	if err != nil {
		return hm, notFound(err, "campus")
	}

	sessions, err := h.listSessions(ctx, me.CampusId, userId, "", heatmapSessions)
	if err != nil {
		return hm, err
	}
	broadcasts, err := h.activeBroadcasts(ctx, me.CampusId, userId, heatmapBroadcasts)
	if err != nil {
		return hm, err
	}

	hm = types.Heatmap{
		Center:      types.MapPoint{Lat: campus.Lat, Lng: campus.Lng},
		Zoom:        MapZoom,
		TileURL:     TileURL,
		Attribution: TileAttribution,
		Legend:      maps.Clone(CategoryColors),
		Sessions:    make([]types.MapSession, 0, len(sessions)),
		Broadcasts:  broadcasts,
	}
	for _, s := range sessions {
		if s.Lat == nil || s.Lng == nil {
			continue
		}
		hm.Sessions = append(hm.Sessions, types.MapSession{
			Session: s,
			Point:   types.MapPoint{Lat: *s.Lat, Lng: *s.Lng},
			Color:   CategoryColors[s.Category],
		})
	}
	return hm, nil
}
