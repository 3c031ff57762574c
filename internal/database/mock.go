package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) Count(ctx context.Context, q Query) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetOrCreateAccount(ctx context.Context, email string) (Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) GetAccountById(ctx context.Context, id string) (Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) CreateOneTimeCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (OneTimeCode, error) {
	args := m.Called(ctx, email, codeHash, expiresAt)
	return args.Get(0).(OneTimeCode), args.Error(1)
}

func (m *MockRepository) ListActiveOneTimeCodes(ctx context.Context, email string, now time.Time) ([]OneTimeCode, error) {
	args := m.Called(ctx, email, now)
	return args.Get(0).([]OneTimeCode), args.Error(1)
}

func (m *MockRepository) ConsumeOneTimeCode(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockRepository) ListCampuses(ctx context.Context) ([]Campus, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Campus), args.Error(1)
}

func (m *MockRepository) GetCampus(ctx context.Context, id string) (Campus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Campus), args.Error(1)
}

func (m *MockRepository) GetProfileByUserId(ctx context.Context, userId string) (Profile, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(Profile), args.Error(1)
}

func (m *MockRepository) ListProfiles(ctx context.Context, q Query) ([]Profile, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Profile), args.Error(1)
}

func (m *MockRepository) CreateProfile(ctx context.Context, params CreateProfileParams) (Profile, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Profile), args.Error(1)
}

func (m *MockRepository) UpdateProfile(ctx context.Context, params UpdateProfileParams) (Profile, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Profile), args.Error(1)
}

func (m *MockRepository) SetInterestTags(ctx context.Context, userId string, tags []string) (Profile, error) {
	args := m.Called(ctx, userId, tags)
	return args.Get(0).(Profile), args.Error(1)
}

func (m *MockRepository) SetCrossCampusVisible(ctx context.Context, userId string, visible bool) (Profile, error) {
	args := m.Called(ctx, userId, visible)
	return args.Get(0).(Profile), args.Error(1)
}

func (m *MockRepository) SetPresence(ctx context.Context, userId string, online bool, at time.Time) error {
	args := m.Called(ctx, userId, online, at)
	return args.Error(0)
}

func (m *MockRepository) GetSession(ctx context.Context, id string) (Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockRepository) ListSessions(ctx context.Context, q Query) ([]Session, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockRepository) CreateSession(ctx context.Context, params CreateSessionParams) (Session, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockRepository) CountSessionMembers(ctx context.Context, sessionIds []string) (map[string]int, error) {
	args := m.Called(ctx, sessionIds)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRepository) ListSessionMembers(ctx context.Context, q Query) ([]SessionMember, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]SessionMember), args.Error(1)
}

func (m *MockRepository) AddSessionMember(ctx context.Context, sessionId, userId string) (bool, error) {
	args := m.Called(ctx, sessionId, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) RemoveSessionMember(ctx context.Context, sessionId, userId string) error {
	args := m.Called(ctx, sessionId, userId)
	return args.Error(0)
}

func (m *MockRepository) CheckInSessionMember(ctx context.Context, sessionId, userId string) error {
	args := m.Called(ctx, sessionId, userId)
	return args.Error(0)
}

func (m *MockRepository) GetBroadcast(ctx context.Context, id string) (Broadcast, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Broadcast), args.Error(1)
}

func (m *MockRepository) ListBroadcasts(ctx context.Context, q Query) ([]Broadcast, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Broadcast), args.Error(1)
}

func (m *MockRepository) CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (Broadcast, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Broadcast), args.Error(1)
}

func (m *MockRepository) DeleteBroadcast(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) DeleteExpiredBroadcasts(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetConnection(ctx context.Context, id string) (Connection, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Connection), args.Error(1)
}

func (m *MockRepository) GetConnectionBetween(ctx context.Context, userA, userB string) (Connection, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(Connection), args.Error(1)
}

func (m *MockRepository) ListConnections(ctx context.Context, q Query) ([]Connection, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Connection), args.Error(1)
}

func (m *MockRepository) CreateConnection(ctx context.Context, requesterId, addresseeId string, crossCampus bool) (Connection, error) {
	args := m.Called(ctx, requesterId, addresseeId, crossCampus)
	return args.Get(0).(Connection), args.Error(1)
}

func (m *MockRepository) AcceptConnection(ctx context.Context, id string) (Connection, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Connection), args.Error(1)
}

func (m *MockRepository) ListMessages(ctx context.Context, q Query) ([]Message, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) MarkMessagesRead(ctx context.Context, receiverId, senderId string) (int64, error) {
	args := m.Called(ctx, receiverId, senderId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountUnreadBySender(ctx context.Context, receiverId string) (map[string]int, error) {
	args := m.Called(ctx, receiverId)
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRepository) ListBadges(ctx context.Context, userId string) ([]Badge, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]Badge), args.Error(1)
}

var _ Repository = (*MockRepository)(nil)
