package types

import (
	"time"
)

type User struct {
	Id        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Campus struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	ShortCode string  `json:"short_code"`
	Domain    string  `json:"domain"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Color     string  `json:"color"`
}

type Profile struct {
	Id                 string     `json:"id"`
	UserId             string     `json:"user_id"`
	CampusId           string     `json:"campus_id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"display_name,omitempty"`
	Department         string     `json:"department,omitempty"`
	Year               *int       `json:"year,omitempty"`
	Bio                string     `json:"bio,omitempty"`
	AvatarUrl          string     `json:"avatar_url,omitempty"`
	InterestTags       []string   `json:"interest_tags"`
	IsOnline           bool       `json:"is_online"`
	LastSeen           *time.Time `json:"last_seen,omitempty"`
	Reputation         int        `json:"reputation"`
	CrossCampusVisible bool       `json:"cross_campus_visible"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Identity is the session state handed to clients for routing.
type Identity struct {
	Stage   string   `json:"stage"`
	Route   string   `json:"route"`
	User    *User    `json:"user,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
	Campus  *Campus  `json:"campus,omitempty"`
	Ready   bool     `json:"ready"`
}

type Student struct {
	Profile    Profile  `json:"profile"`
	SharedTags []string `json:"shared_tags"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Session struct {
	Id          string     `json:"id"`
	CreatorId   string     `json:"creator_id"`
	CampusId    string     `json:"campus_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	InterestTag string     `json:"interest_tag,omitempty"`
	Location    string     `json:"location,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	MaxMembers  *int       `json:"max_members,omitempty"`
	SessionTime *time.Time `json:"session_time,omitempty"`
	IsActive    bool       `json:"is_active"`
	MemberCount int        `json:"member_count"`
	IsMember    bool       `json:"is_member"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SessionMember struct {
	UserId    string    `json:"user_id"`
	CheckedIn bool      `json:"checked_in"`
	JoinedAt  time.Time `json:"joined_at"`
}

type Broadcast struct {
	Id               string    `json:"id"`
	UserId           string    `json:"user_id"`
	CampusId         string    `json:"campus_id"`
	Message          string    `json:"message"`
	Category         string    `json:"category"`
	DurationMinutes  int       `json:"duration_minutes"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingMinutes int       `json:"remaining_minutes"`
	IsMine           bool      `json:"is_mine"`
	CreatedAt        time.Time `json:"created_at"`
}

type Connection struct {
	Id            string    `json:"id"`
	RequesterId   string    `json:"requester_id"`
	AddresseeId   string    `json:"addressee_id"`
	Status        string    `json:"status"`
	IsCrossCampus bool      `json:"is_cross_campus"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Message struct {
	Id         string    `json:"id"`
	SenderId   string    `json:"sender_id"`
	ReceiverId string    `json:"receiver_id,omitempty"`
	SessionId  string    `json:"session_id,omitempty"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type Contact struct {
	Profile       Profile  `json:"profile"`
	ConnectionId  string   `json:"connection_id"`
	LastMessage   *Message `json:"last_message,omitempty"`
	UnreadCount   int      `json:"unread_count"`
	IsCrossCampus bool     `json:"is_cross_campus"`
}

type Badge struct {
	Id          string    `json:"id"`
	BadgeName   string    `json:"badge_name"`
	BadgeIcon   string    `json:"badge_icon"`
	Description string    `json:"description,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

type Dashboard struct {
	NearbyStudents []Student   `json:"nearby_students"`
	TrendingTags   []TagCount  `json:"trending_tags"`
	ActiveSessions []Session   `json:"active_sessions"`
	Broadcasts     []Broadcast `json:"broadcasts"`
}

type MapPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type MapSession struct {
	Session Session  `json:"session"`
	Point   MapPoint `json:"point"`
	Color   string   `json:"color"`
}

type Heatmap struct {
	Center      MapPoint          `json:"center"`
	Zoom        int               `json:"zoom"`
	TileURL     string            `json:"tile_url"`
	Attribution string            `json:"attribution"`
	Legend      map[string]string `json:"legend"`
	Sessions    []MapSession      `json:"sessions"`
	Broadcasts  []Broadcast       `json:"broadcasts"`
}
