package views

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/devquest008/campus-connect/internal/types"
)

// DefaultMaxMessageSize is the default cap on sanitized message content, in
// bytes. Change notifications for an updated message carry the row twice and
// must fit the 8000 byte pg_notify payload limit.
const DefaultMaxMessageSize = 3000

const (
	TabAll         = "all"
	TabCampus      = "campus"
	TabCrossCampus = "cross-campus"
)

type Chat struct {
	*base
}

func involving(userId string) database.Query {
	return database.From("connections").Or(
		[]database.Filter{database.Eq("requester_id", userId)},
		[]database.Filter{database.Eq("addressee_id", userId)},
	)
}

func conversation(a, b string) database.Query {
	return database.From("messages").
		Where(database.IsNull("session_id")).
		Or(
			[]database.Filter{database.Eq("sender_id", a), database.Eq("receiver_id", b)},
			[]database.Filter{database.Eq("sender_id", b), database.Eq("receiver_id", a)},
		).
		Order("created_at", true)
}

func matchesSearch(p types.Profile, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.DisplayName), search) ||
		strings.Contains(strings.ToLower(p.Username), search)
}

// Contacts lists the peers the user has an accepted connection with, filtered
// by tab and a case-insensitive name search. Contacts with the most recent
// message come first.
func (c *Chat) Contacts(ctx context.Context, userId, tab, search string) ([]types.Contact, error) {
	switch tab {
	case "", TabAll, TabCampus, TabCrossCampus:
	default:
		return nil, invalidf("unknown tab %q", tab)
	}

	conns, err := c.db.ListConnections(ctx, involving(userId).
		Where(database.Eq("status", database.ConnectionAccepted)))
	if err != nil {
		return nil, err
	}

	byPeer := make(map[string]database.Connection, len(conns))
	peers := make([]string, 0, len(conns))
	for _, conn := range conns {
		if tab == TabCampus && conn.IsCrossCampus || tab == TabCrossCampus && !conn.IsCrossCampus {
			continue
		}
		peer := conn.Other(userId)
		byPeer[peer] = conn
		peers = append(peers, peer)
	}
	if len(peers) == 0 {
		return []types.Contact{}, nil
	}

	profiles, err := c.db.ListProfiles(ctx, database.From("profiles").Where(database.In("user_id", peers)))
	if err != nil {
		return nil, err
	}

	unread, err := c.db.CountUnreadBySender(ctx, userId)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	contacts := make([]types.Contact, 0, len(profiles))
	for _, p := range profiles {
		prof := types.FromProfile(p)
		if !matchesSearch(prof, search) {
			continue
		}

		conn := byPeer[p.UserId]
		contact := types.Contact{
			Profile:       prof,
			ConnectionId:  conn.Id,
			UnreadCount:   unread[p.UserId],
			IsCrossCampus: conn.IsCrossCampus,
		}

		last, err := c.db.ListMessages(ctx, conversation(userId, p.UserId).Take(1))
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			m := types.FromMessage(last[0])
			contact.LastMessage = &m
		}
		contacts = append(contacts, contact)
	}

	slices.SortStableFunc(contacts, func(a, b types.Contact) int {
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return cmp.Compare(strings.ToLower(a.Profile.DisplayName), strings.ToLower(b.Profile.DisplayName))
		case a.LastMessage == nil:
			return 1
		case b.LastMessage == nil:
			return -1
		}
		return b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt)
	})
	return contacts, nil
}

// connected returns the accepted connection between two users.
func (c *Chat) connected(ctx context.Context, userId, peerId string) (database.Connection, error) {
	if userId == peerId {
		return database.Connection{}, invalidf("cannot message yourself")
	}

	conn, err := c.db.GetConnectionBetween(ctx, userId, peerId)
	if errors.Is(err, sql.ErrNoRows) {
		return conn, ErrNotConnected
	}
	if err != nil {
		return conn, err
	}
	if conn.Status != database.ConnectionAccepted {
		return conn, ErrNotConnected
	}
	return conn, nil
}

// Thread returns the last direct messages between the user and peerId in
// ascending order.
func (c *Chat) Thread(ctx context.Context, userId, peerId string) ([]types.Message, error) {
	if _, err := c.connected(ctx, userId, peerId); err != nil {
		return nil, err
	}

	rows, err := c.db.ListMessages(ctx, conversation(userId, peerId).Take(threadLimit))
	if err != nil {
		return nil, err
	}
	return ascending(rows), nil
}

// Send stores a direct message. Delivery to the peer happens through the
// change stream.
func (c *Chat) Send(ctx context.Context, userId, peerId, content string) (types.Message, error) {
	content, err := c.message(content)
	if err != nil {
		return types.Message{}, err
	}
	if _, err := c.connected(ctx, userId, peerId); err != nil {
		return types.Message{}, err
	}

	msg, err := c.db.CreateMessage(ctx, database.CreateMessageParams{
		SenderId:   userId,
		ReceiverId: &peerId,
		Content:    content,
	})
	if err != nil {
		return types.Message{}, err
	}
	return types.FromMessage(msg), nil
}

// MarkRead flags every message from peerId to the user as read and returns
// how many changed.
func (c *Chat) MarkRead(ctx context.Context, userId, peerId string) (int64, error) {
	if _, err := c.connected(ctx, userId, peerId); err != nil {
		return 0, err
	}
	return c.db.MarkMessagesRead(ctx, userId, peerId)
}

func (c *Chat) Connections(ctx context.Context, userId string) ([]types.Connection, error) {
	rows, err := c.db.ListConnections(ctx, involving(userId).Order("created_at", true))
	if err != nil {
		return nil, err
	}

	out := make([]types.Connection, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.FromConnection(r))
	}
	return out, nil
}

// RequestConnection opens a pending connection to peerId. Peers on another
// campus must have opted into cross-campus visibility.
func (c *Chat) RequestConnection(ctx context.Context, userId, peerId string) (types.Connection, error) {
	if userId == peerId {
		return types.Connection{}, invalidf("cannot connect to yourself")
	}

	me, err := c.profile(ctx, userId)
	if err != nil {
		return types.Connection{}, err
	}
	peer, err := c.loader.GetProfileByUserId(ctx, peerId)
	if err != nil {
		return types.Connection{}, notFound(err, "profile")
	}

	_, err = c.db.GetConnectionBetween(ctx, userId, peerId)
	switch {
	case err == nil:
		return types.Connection{}, ErrAlreadyConnected
	case !errors.Is(err, sql.ErrNoRows):
		return types.Connection{}, err
	}

	crossCampus := me.CampusId != peer.CampusId
	if crossCampus && !peer.CrossCampusVisible {
		return types.Connection{}, ErrForbidden
	}

	conn, err := c.db.CreateConnection(ctx, userId, peerId, crossCampus)
	if err != nil {
		return types.Connection{}, err
	}
	return types.FromConnection(conn), nil
}

// AcceptConnection accepts a pending request addressed to the user.
func (c *Chat) AcceptConnection(ctx context.Context, userId, id string) (types.Connection, error) {
	conn, err := c.db.GetConnection(ctx, id)
	if err != nil {
		return types.Connection{}, notFound(err, "connection")
	}
	if conn.AddresseeId != userId {
		return types.Connection{}, ErrForbidden
	}
	if conn.Status == database.ConnectionAccepted {
		return types.FromConnection(conn), nil
	}

	conn, err = c.db.AcceptConnection(ctx, id)
	if err != nil {
		return types.Connection{}, notFound(err, "connection")
	}
	return types.FromConnection(conn), nil
}
