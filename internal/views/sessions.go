package views

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

const (
	CategoryAll = "all"

	maxTitleLength       = 80
	maxDescriptionLength = 500
	sessionListLimit     = 50
	threadLimit          = 100
)

type SessionInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Category    string     `json:"category"`
	InterestTag *string    `json:"interest_tag,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	MaxMembers  *int       `json:"max_members,omitempty"`
	SessionTime *time.Time `json:"session_time,omitempty"`
}

type Sessions struct {
	*base
}

// listSessions returns the active sessions of a campus, newest first, with
// member counts and the caller's membership filled in. An empty category
// matches every category.
func (b *base) listSessions(ctx context.Context, campusId, userId, category string, limit int) ([]types.Session, error) {
	q := database.From("sessions").Where(database.Eq("campus_id", campusId), database.Eq("is_active", true))
	if category != "" {
		q = q.Where(database.Eq("category", category))
	}

	rows, err := b.db.ListSessions(ctx, q.Order("created_at", true).Take(limit))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []types.Session{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Id)
	}

	counts, err := b.db.CountSessionMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	mine, err := b.db.ListSessionMembers(ctx, database.From("session_members").
		Where(database.Eq("user_id", userId), database.In("session_id", ids)))
	if err != nil {
		return nil, err
	}
	joined := make(map[string]bool, len(mine))
	for _, m := range mine {
		joined[m.SessionId] = true
	}

	out := make([]types.Session, 0, len(rows))
	for _, r := range rows {
		s := types.FromSession(r)
		s.MemberCount = counts[r.Id]
		s.IsMember = joined[r.Id]
		out = append(out, s)
	}
	return out, nil
}

func (b *base) isMember(ctx context.Context, sessionId, userId string) (bool, error) {
	n, err := b.db.Count(ctx, database.From("session_members").
		Where(database.Eq("session_id", sessionId), database.Eq("user_id", userId)))
	return n > 0, err
}

func parseCategory(category string) (string, error) {
	switch {
	case category == "" || category == CategoryAll:
		return "", nil
	case database.ValidCategory(category):
		return category, nil
	default:
		return "", invalidf("unknown category %q", category)
	}
}

// List returns the caller's campus sessions, filtered by category ("all" or
// one category).
func (s *Sessions) List(ctx context.Context, userId, category string) ([]types.Session, error) {
	category, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.listSessions(ctx, me.CampusId, userId, category, sessionListLimit)
}

func (s *Sessions) Create(ctx context.Context, userId string, in SessionInput) ([]types.Session, error) {
	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}

	params := database.CreateSessionParams{
		CreatorId:   userId,
		CampusId:    me.CampusId,
		Category:    in.Category,
		Lat:         in.Lat,
		Lng:         in.Lng,
		SessionTime: in.SessionTime,
	}
	if params.Title, err = s.clean("title", in.Title, maxTitleLength); err != nil {
		return nil, err
	}
	if params.Description, err = s.optional("description", in.Description, maxDescriptionLength); err != nil {
		return nil, err
	}
	if params.Location, err = s.optional("location", in.Location, maxTitleLength); err != nil {
		return nil, err
	}
	if params.InterestTag, err = s.optional("interest tag", in.InterestTag, maxTagLength); err != nil {
		return nil, err
	}
	if !database.ValidCategory(in.Category) {
		return nil, invalidf("unknown category %q", in.Category)
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, invalidf("lat and lng must be set together")
	}
	if in.MaxMembers != nil {
		if *in.MaxMembers < 2 {
			return nil, invalidf("max members must be at least 2")
		}
		params.MaxMembers = in.MaxMembers
	}

	// CreateSession enrolls the creator in the same transaction.
	if _, err := s.db.CreateSession(ctx, params); err != nil {
		return nil, err
	}

	return s.listSessions(ctx, me.CampusId, userId, "", sessionListLimit)
}

func (s *Sessions) session(ctx context.Context, me database.Profile, sessionId string) (database.Session, error) {
	sess, err := s.db.GetSession(ctx, sessionId)
	if err != nil {
		return sess, notFound(err, "session")
	}
	if sess.CampusId != me.CampusId {
		return sess, ErrForbidden
	}
	return sess, nil
}

// Join adds the caller to a session. Joining twice is a no-op; a session at
// max_members rejects new members.
func (s *Sessions) Join(ctx context.Context, userId, sessionId, category string) ([]types.Session, error) {
	category, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, me, sessionId)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return nil, invalidf("session is no longer active")
	}

	member, err := s.isMember(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}

	if !member {
		if sess.MaxMembers != nil {
			counts, err := s.db.CountSessionMembers(ctx, []string{sessionId})
			if err != nil {
				return nil, err
			}
			if counts[sessionId] >= *sess.MaxMembers {
				return nil, ErrSessionFull
			}
		}
		if _, err := s.db.AddSessionMember(ctx, sessionId, userId); err != nil {
			return nil, err
		}
	}

	return s.listSessions(ctx, me.CampusId, userId, category, sessionListLimit)
}

func (s *Sessions) Leave(ctx context.Context, userId, sessionId, category string) ([]types.Session, error) {
	category, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	if _, err := s.session(ctx, me, sessionId); err != nil {
		return nil, err
	}
	if err := s.db.RemoveSessionMember(ctx, sessionId, userId); err != nil {
		return nil, err
	}

	return s.listSessions(ctx, me.CampusId, userId, category, sessionListLimit)
}

func (s *Sessions) CheckIn(ctx context.Context, userId, sessionId, category string) ([]types.Session, error) {
	category, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	if _, err := s.session(ctx, me, sessionId); err != nil {
		return nil, err
	}
	if err := s.db.CheckInSessionMember(ctx, sessionId, userId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	return s.listSessions(ctx, me.CampusId, userId, category, sessionListLimit)
}

func (s *Sessions) Members(ctx context.Context, userId, sessionId string) ([]types.SessionMember, error) {
	me, err := s.profile(ctx, userId)
	if err != nil {
		return nil, err
	}
	if _, err := s.session(ctx, me, sessionId); err != nil {
		return nil, err
	}

	rows, err := s.db.ListSessionMembers(ctx, database.From("session_members").
		Where(database.Eq("session_id", sessionId)).
		Order("joined_at", false))
	if err != nil {
		return nil, err
	}

	out := make([]types.SessionMember, 0, len(rows))
	for _, m := range rows {
		out = append(out, types.FromSessionMember(m))
	}
	return out, nil
}

func (s *Sessions) member(ctx context.Context, userId, sessionId string) error {
	me, err := s.profile(ctx, userId)
	if err != nil {
		return err
	}
	if _, err := s.session(ctx, me, sessionId); err != nil {
		return err
	}

	ok, err := s.isMember(ctx, sessionId, userId)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// Messages returns the last messages of a session's group thread in
// ascending order. Only members can read it.
func (s *Sessions) Messages(ctx context.Context, userId, sessionId string) ([]types.Message, error) {
	if err := s.member(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	rows, err := s.db.ListMessages(ctx, database.From("messages").
		Where(database.Eq("session_id", sessionId)).
		Order("created_at", true).
		Take(threadLimit))
	if err != nil {
		return nil, err
	}
	return ascending(rows), nil
}

func (s *Sessions) Post(ctx context.Context, userId, sessionId, content string) (types.Message, error) {
	if err := s.member(ctx, userId, sessionId); err != nil {
		return types.Message{}, err
	}

	content, err := s.message(content)
	if err != nil {
		return types.Message{}, err
	}

	msg, err := s.db.CreateMessage(ctx, database.CreateMessageParams{
		SenderId:  userId,
		SessionId: &sessionId,
		Content:   content,
	})
	if err != nil {
		return types.Message{}, err
	}
	return types.FromMessage(msg), nil
}

// ascending converts a newest-first page of messages into display order.
func ascending(rows []database.Message) []types.Message {
	out := make([]types.Message, 0, len(rows))
	for _, m := range slices.Backward(rows) {
		out = append(out, types.FromMessage(m))
	}
	return out
}
