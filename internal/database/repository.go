package database

import (
	"context"
	"time"
)

// Repository is the typed gateway over the campus schema. Lookups of a single
// row return sql.ErrNoRows when nothing matches.
type Repository interface {
	Ping() error
	Count(ctx context.Context, q Query) (int, error)

	GetOrCreateAccount(ctx context.Context, email string) (Account, error)
	GetAccountById(ctx context.Context, id string) (Account, error)

	CreateOneTimeCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (OneTimeCode, error)
	ListActiveOneTimeCodes(ctx context.Context, email string, now time.Time) ([]OneTimeCode, error)
	ConsumeOneTimeCode(ctx context.Context, id string, at time.Time) error

	ListCampuses(ctx context.Context) ([]Campus, error)
	GetCampus(ctx context.Context, id string) (Campus, error)

	GetProfileByUserId(ctx context.Context, userId string) (Profile, error)
	ListProfiles(ctx context.Context, q Query) ([]Profile, error)
	CreateProfile(ctx context.Context, params CreateProfileParams) (Profile, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (Profile, error)
	SetInterestTags(ctx context.Context, userId string, tags []string) (Profile, error)
	SetCrossCampusVisible(ctx context.Context, userId string, visible bool) (Profile, error)
	SetPresence(ctx context.Context, userId string, online bool, at time.Time) error

	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, q Query) ([]Session, error)
	CreateSession(ctx context.Context, params CreateSessionParams) (Session, error)
	CountSessionMembers(ctx context.Context, sessionIds []string) (map[string]int, error)
	ListSessionMembers(ctx context.Context, q Query) ([]SessionMember, error)
	AddSessionMember(ctx context.Context, sessionId, userId string) (bool, error)
	RemoveSessionMember(ctx context.Context, sessionId, userId string) error
	CheckInSessionMember(ctx context.Context, sessionId, userId string) error

	GetBroadcast(ctx context.Context, id string) (Broadcast, error)
	ListBroadcasts(ctx context.Context, q Query) ([]Broadcast, error)
	CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (Broadcast, error)
	DeleteBroadcast(ctx context.Context, id string) error
	DeleteExpiredBroadcasts(ctx context.Context, before time.Time) (int64, error)

	GetConnection(ctx context.Context, id string) (Connection, error)
	GetConnectionBetween(ctx context.Context, userA, userB string) (Connection, error)
	ListConnections(ctx context.Context, q Query) ([]Connection, error)
	CreateConnection(ctx context.Context, requesterId, addresseeId string, crossCampus bool) (Connection, error)
	AcceptConnection(ctx context.Context, id string) (Connection, error)

	ListMessages(ctx context.Context, q Query) ([]Message, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	MarkMessagesRead(ctx context.Context, receiverId, senderId string) (int64, error)
	CountUnreadBySender(ctx context.Context, receiverId string) (map[string]int, error)

	ListBadges(ctx context.Context, userId string) ([]Badge, error)
}

var _ Repository = (*PgRepository)(nil)
