package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func returning(table string) string {
	return " RETURNING " + strings.Join(tableColumns[table], ", ")
}

func listRows[T any](ctx context.Context, conn *sql.DB, q Query, scan func(rowScanner) (T, error)) ([]T, error) {
	query, args, err := q.SelectSQL()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", q.Table, err)
	}

	return result, nil
}

func getRow[T any](ctx context.Context, conn *sql.DB, q Query, scan func(rowScanner) (T, error)) (T, error) {
	var zero T
	query, args, err := q.Take(1).SelectSQL()
	if err != nil {
		return zero, err
	}

	return scan(conn.QueryRowContext(ctx, query, args...))
}

func scanAccount(s rowScanner) (Account, error) {
	var a Account
	err := s.Scan(&a.Id, &a.Email, &a.CreatedAt)
	return a, err
}

func scanOneTimeCode(s rowScanner) (OneTimeCode, error) {
	var c OneTimeCode
	err := s.Scan(&c.Id, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	return c, err
}

func scanCampus(s rowScanner) (Campus, error) {
	var c Campus
	err := s.Scan(&c.Id, &c.Name, &c.ShortCode, &c.Domain, &c.Lat, &c.Lng, &c.Color, &c.CreatedAt)
	return c, err
}

func scanProfile(s rowScanner) (Profile, error) {
	var p Profile
	err := s.Scan(
		&p.Id,
		&p.UserId,
		&p.CampusId,
		&p.Username,
		&p.DisplayName,
		&p.Department,
		&p.Year,
		&p.Bio,
		&p.AvatarUrl,
		pq.Array(&p.InterestTags),
		&p.IsOnline,
		&p.LastSeen,
		&p.Reputation,
		&p.CrossCampusVisible,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanSession(s rowScanner) (Session, error) {
	var ses Session
	err := s.Scan(
		&ses.Id,
		&ses.CreatorId,
		&ses.CampusId,
		&ses.Title,
		&ses.Description,
		&ses.Category,
		&ses.InterestTag,
		&ses.Location,
		&ses.Lat,
		&ses.Lng,
		&ses.MaxMembers,
		&ses.SessionTime,
		&ses.IsActive,
		&ses.CreatedAt,
	)
	return ses, err
}

func scanSessionMember(s rowScanner) (SessionMember, error) {
	var m SessionMember
	err := s.Scan(&m.Id, &m.SessionId, &m.UserId, &m.CheckedIn, &m.JoinedAt)
	return m, err
}

func scanBroadcast(s rowScanner) (Broadcast, error) {
	var b Broadcast
	err := s.Scan(&b.Id, &b.UserId, &b.CampusId, &b.Message, &b.Category, &b.DurationMinutes, &b.ExpiresAt, &b.CreatedAt)
	return b, err
}

func scanConnection(s rowScanner) (Connection, error) {
	var c Connection
	err := s.Scan(&c.Id, &c.RequesterId, &c.AddresseeId, &c.Status, &c.IsCrossCampus, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanMessage(s rowScanner) (Message, error) {
	var m Message
	err := s.Scan(&m.Id, &m.SenderId, &m.ReceiverId, &m.SessionId, &m.Content, &m.IsRead, &m.CreatedAt)
	return m, err
}

func scanBadge(s rowScanner) (Badge, error) {
	var b Badge
	err := s.Scan(&b.Id, &b.UserId, &b.CampusId, &b.BadgeName, &b.BadgeIcon, &b.Description, &b.EarnedAt)
	return b, err
}

func (db *PgRepository) Count(ctx context.Context, q Query) (int, error) {
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return n, nil
}

func (db *PgRepository) GetOrCreateAccount(ctx context.Context, email string) (Account, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (email, created_at) VALUES ($1, $2) "+
			"ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email"+returning("accounts"),
		strings.ToLower(email),
		time.Now().UTC(),
	)
	return scanAccount(row)
}

func (db *PgRepository) GetAccountById(ctx context.Context, id string) (Account, error) {
	return getRow(ctx, db.conn, From("accounts").Where(Eq("id", id)), scanAccount)
}

func (db *PgRepository) CreateOneTimeCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (OneTimeCode, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO otp_codes (email, code_hash, expires_at, created_at) VALUES ($1, $2, $3, $4)"+returning("otp_codes"),
		strings.ToLower(email),
		codeHash,
		expiresAt,
		time.Now().UTC(),
	)
	return scanOneTimeCode(row)
}

func (db *PgRepository) ListActiveOneTimeCodes(ctx context.Context, email string, now time.Time) ([]OneTimeCode, error) {
	q := From("otp_codes").
		Where(Eq("email", strings.ToLower(email)), Gt("expires_at", now), IsNull("consumed_at")).
		Order("created_at", true).
		Take(5)
	return listRows(ctx, db.conn, q, scanOneTimeCode)
}

func (db *PgRepository) ConsumeOneTimeCode(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE otp_codes SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL",
		id,
		at,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (db *PgRepository) ListCampuses(ctx context.Context) ([]Campus, error) {
	return listRows(ctx, db.conn, From("campuses").Order("name", false), scanCampus)
}

func (db *PgRepository) GetCampus(ctx context.Context, id string) (Campus, error) {
	return getRow(ctx, db.conn, From("campuses").Where(Eq("id", id)), scanCampus)
}

func (db *PgRepository) GetProfileByUserId(ctx context.Context, userId string) (Profile, error) {
	return getRow(ctx, db.conn, From("profiles").Where(Eq("user_id", userId)), scanProfile)
}

func (db *PgRepository) ListProfiles(ctx context.Context, q Query) ([]Profile, error) {
	q.Table = "profiles"
	return listRows(ctx, db.conn, q, scanProfile)
}

func (db *PgRepository) CreateProfile(ctx context.Context, params CreateProfileParams) (Profile, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO profiles (user_id, campus_id, username, display_name, department, year, bio, interest_tags, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"+returning("profiles"),
		params.UserId,
		params.CampusId,
		params.Username,
		params.DisplayName,
		params.Department,
		params.Year,
		params.Bio,
		pq.Array(nonNilTags(params.InterestTags)),
		now,
		now,
	)
	return scanProfile(row)
}

func (db *PgRepository) UpdateProfile(ctx context.Context, params UpdateProfileParams) (Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE profiles SET display_name = $2, department = $3, year = $4, bio = $5, interest_tags = $6, updated_at = $7 "+
			"WHERE user_id = $1"+returning("profiles"),
		params.UserId,
		params.DisplayName,
		params.Department,
		params.Year,
		params.Bio,
		pq.Array(nonNilTags(params.InterestTags)),
		time.Now().UTC(),
	)
	return scanProfile(row)
}

func (db *PgRepository) SetInterestTags(ctx context.Context, userId string, tags []string) (Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE profiles SET interest_tags = $2, updated_at = $3 WHERE user_id = $1"+returning("profiles"),
		userId,
		pq.Array(nonNilTags(tags)),
		time.Now().UTC(),
	)
	return scanProfile(row)
}

func (db *PgRepository) SetCrossCampusVisible(ctx context.Context, userId string, visible bool) (Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE profiles SET cross_campus_visible = $2, updated_at = $3 WHERE user_id = $1"+returning("profiles"),
		userId,
		visible,
		time.Now().UTC(),
	)
	return scanProfile(row)
}

func (db *PgRepository) SetPresence(ctx context.Context, userId string, online bool, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE profiles SET is_online = $2, last_seen = $3 WHERE user_id = $1",
		userId,
		online,
		at,
	)
	return err
}

func (db *PgRepository) GetSession(ctx context.Context, id string) (Session, error) {
	return getRow(ctx, db.conn, From("sessions").Where(Eq("id", id)), scanSession)
}

func (db *PgRepository) ListSessions(ctx context.Context, q Query) ([]Session, error) {
	q.Table = "sessions"
	return listRows(ctx, db.conn, q, scanSession)
}

// CreateSession inserts the session and enrolls its creator as the first member.
func (db *PgRepository) CreateSession(ctx context.Context, params CreateSessionParams) (Session, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		"INSERT INTO sessions (creator_id, campus_id, title, description, category, interest_tag, location, lat, lng, max_members, session_time, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)"+returning("sessions"),
		params.CreatorId,
		params.CampusId,
		params.Title,
		params.Description,
		params.Category,
		params.InterestTag,
		params.Location,
		params.Lat,
		params.Lng,
		params.MaxMembers,
		params.SessionTime,
		time.Now().UTC(),
	)

	var session Session
	session, err = scanSession(row)
	if err != nil {
		return Session{}, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO session_members (session_id, user_id, joined_at) VALUES ($1, $2, $3)",
		session.Id,
		params.CreatorId,
		time.Now().UTC(),
	)
	if err != nil {
		return Session{}, err
	}

	if err = tx.Commit(); err != nil {
		return Session{}, err
	}

	return session, nil
}

func (db *PgRepository) CountSessionMembers(ctx context.Context, sessionIds []string) (map[string]int, error) {
	counts := make(map[string]int, len(sessionIds))
	if len(sessionIds) == 0 {
		return counts, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT session_id, COUNT(*) FROM session_members WHERE session_id = ANY($1) GROUP BY session_id",
		pq.Array(sessionIds),
	)
	if err != nil {
		return nil, fmt.Errorf("count session members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan member count: %w", err)
		}
		counts[id] = n
	}

	return counts, rows.Err()
}

func (db *PgRepository) ListSessionMembers(ctx context.Context, q Query) ([]SessionMember, error) {
	q.Table = "session_members"
	return listRows(ctx, db.conn, q, scanSessionMember)
}

// AddSessionMember reports whether a new membership row was created.
func (db *PgRepository) AddSessionMember(ctx context.Context, sessionId, userId string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO session_members (session_id, user_id, joined_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (session_id, user_id) DO NOTHING",
		sessionId,
		userId,
		time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *PgRepository) RemoveSessionMember(ctx context.Context, sessionId, userId string) error {
	query, args, err := From("session_members").
		Where(Eq("session_id", sessionId), Eq("user_id", userId)).
		DeleteSQL()
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, query, args...)
	return err
}

func (db *PgRepository) CheckInSessionMember(ctx context.Context, sessionId, userId string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE session_members SET checked_in = true WHERE session_id = $1 AND user_id = $2",
		sessionId,
		userId,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (db *PgRepository) GetBroadcast(ctx context.Context, id string) (Broadcast, error) {
	return getRow(ctx, db.conn, From("broadcasts").Where(Eq("id", id)), scanBroadcast)
}

func (db *PgRepository) ListBroadcasts(ctx context.Context, q Query) ([]Broadcast, error) {
	q.Table = "broadcasts"
	return listRows(ctx, db.conn, q, scanBroadcast)
}

func (db *PgRepository) CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (Broadcast, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO broadcasts (user_id, campus_id, message, category, duration_minutes, expires_at, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)"+returning("broadcasts"),
		params.UserId,
		params.CampusId,
		params.Message,
		params.Category,
		params.DurationMinutes,
		params.ExpiresAt,
		time.Now().UTC(),
	)
	return scanBroadcast(row)
}

func (db *PgRepository) DeleteBroadcast(ctx context.Context, id string) error {
	query, args, err := From("broadcasts").Where(Eq("id", id)).DeleteSQL()
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (db *PgRepository) DeleteExpiredBroadcasts(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := From("broadcasts").Where(Lt("expires_at", before)).DeleteSQL()
	if err != nil {
		return 0, err
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *PgRepository) GetConnection(ctx context.Context, id string) (Connection, error) {
	return getRow(ctx, db.conn, From("connections").Where(Eq("id", id)), scanConnection)
}

func (db *PgRepository) GetConnectionBetween(ctx context.Context, userA, userB string) (Connection, error) {
	q := From("connections").Or(
		[]Filter{Eq("requester_id", userA), Eq("addressee_id", userB)},
		[]Filter{Eq("requester_id", userB), Eq("addressee_id", userA)},
	)
	return getRow(ctx, db.conn, q, scanConnection)
}

func (db *PgRepository) ListConnections(ctx context.Context, q Query) ([]Connection, error) {
	q.Table = "connections"
	return listRows(ctx, db.conn, q, scanConnection)
}

func (db *PgRepository) CreateConnection(ctx context.Context, requesterId, addresseeId string, crossCampus bool) (Connection, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO connections (requester_id, addressee_id, status, is_cross_campus, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6)"+returning("connections"),
		requesterId,
		addresseeId,
		ConnectionPending,
		crossCampus,
		now,
		now,
	)
	return scanConnection(row)
}

func (db *PgRepository) AcceptConnection(ctx context.Context, id string) (Connection, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE connections SET status = $2, updated_at = $3 WHERE id = $1"+returning("connections"),
		id,
		ConnectionAccepted,
		time.Now().UTC(),
	)
	return scanConnection(row)
}

func (db *PgRepository) ListMessages(ctx context.Context, q Query) ([]Message, error) {
	q.Table = "messages"
	return listRows(ctx, db.conn, q, scanMessage)
}

func (db *PgRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, session_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4, $5)"+returning("messages"),
		params.SenderId,
		params.ReceiverId,
		params.SessionId,
		params.Content,
		time.Now().UTC(),
	)
	return scanMessage(row)
}

func (db *PgRepository) MarkMessagesRead(ctx context.Context, receiverId, senderId string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET is_read = true WHERE receiver_id = $1 AND sender_id = $2 AND is_read = false",
		receiverId,
		senderId,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *PgRepository) CountUnreadBySender(ctx context.Context, receiverId string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT sender_id, COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = false GROUP BY sender_id",
		receiverId,
	)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			sender string
			n      int
		)
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, fmt.Errorf("scan unread: %w", err)
		}
		counts[sender] = n
	}

	return counts, rows.Err()
}

func (db *PgRepository) ListBadges(ctx context.Context, userId string) ([]Badge, error) {
	q := From("badges").Where(Eq("user_id", userId)).Order("earned_at", true)
	return listRows(ctx, db.conn, q, scanBadge)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
