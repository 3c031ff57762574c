package database

import "time"

const (
	CategoryStudy  = "study"
	CategoryHobby  = "hobby"
	CategoryHelp   = "help"
	CategorySocial = "social"

	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

var Categories = []string{CategoryStudy, CategoryHobby, CategoryHelp, CategorySocial}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Account struct {
	Id        string
	Email     string
	CreatedAt time.Time
}

type OneTimeCode struct {
	Id         string
	Email      string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type Campus struct {
	Id        string
	Name      string
	ShortCode string
	Domain    string
	Lat       float64
	Lng       float64
	Color     string
	CreatedAt time.Time
}

type Profile struct {
	Id                 string
	UserId             string
	CampusId           string
	Username           string
	DisplayName        *string
	Department         *string
	Year               *int
	Bio                *string
	AvatarUrl          *string
	InterestTags       []string
	IsOnline           bool
	LastSeen           *time.Time
	Reputation         int
	CrossCampusVisible bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Name returns the display name, falling back to the username.
func (p Profile) Name() string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	return p.Username
}

type Session struct {
	Id          string
	CreatorId   string
	CampusId    string
	Title       string
	Description *string
	Category    string
	InterestTag *string
	Location    *string
	Lat         *float64
	Lng         *float64
	MaxMembers  *int
	SessionTime *time.Time
	IsActive    bool
	CreatedAt   time.Time
}

type SessionMember struct {
	Id        string
	SessionId string
	UserId    string
	CheckedIn bool
	JoinedAt  time.Time
}

type Broadcast struct {
	Id              string
	UserId          string
	CampusId        string
	Message         string
	Category        string
	DurationMinutes int
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

type Connection struct {
	Id            string
	RequesterId   string
	AddresseeId   string
	Status        string
	IsCrossCampus bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Other returns the id of the participant that is not userId.
func (c Connection) Other(userId string) string {
	if c.RequesterId == userId {
		return c.AddresseeId
	}
	return c.RequesterId
}

type Message struct {
	Id         string
	SenderId   string
	ReceiverId *string
	SessionId  *string
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}

type Badge struct {
	Id          string
	UserId      string
	CampusId    string
	BadgeName   string
	BadgeIcon   string
	Description *string
	EarnedAt    time.Time
}

type CreateProfileParams struct {
	UserId       string
	CampusId     string
	Username     string
	DisplayName  string
	Department   *string
	Year         *int
	Bio          *string
	InterestTags []string
}

type UpdateProfileParams struct {
	UserId       string
	DisplayName  string
	Department   *string
	Year         *int
	Bio          *string
	InterestTags []string
}

type CreateSessionParams struct {
	CreatorId   string
	CampusId    string
	Title       string
	Description *string
	Category    string
	InterestTag *string
	Location    *string
	Lat         *float64
	Lng         *float64
	MaxMembers  *int
	SessionTime *time.Time
}

type CreateBroadcastParams struct {
	UserId          string
	CampusId        string
	Message         string
	Category        string
	DurationMinutes int
	ExpiresAt       time.Time
}

type CreateMessageParams struct {
	SenderId   string
	ReceiverId *string
	SessionId  *string
	Content    string
}
