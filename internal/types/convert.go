package types

import (
	"github.com/devquest008/campus-connect/internal/database"
)

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func FromAccount(a database.Account) User {
	return User{Id: a.Id, Email: a.Email, CreatedAt: a.CreatedAt}
}

func FromCampus(c database.Campus) Campus {
	return Campus{
		Id:        c.Id,
		Name:      c.Name,
		ShortCode: c.ShortCode,
		Domain:    c.Domain,
		Lat:       c.Lat,
		Lng:       c.Lng,
		Color:     c.Color,
	}
}

func FromProfile(p database.Profile) Profile {
	tags := p.InterestTags
	if tags == nil {
		tags = []string{}
	}

	return Profile{
		Id:                 p.Id,
		UserId:             p.UserId,
		CampusId:           p.CampusId,
		Username:           p.Username,
		DisplayName:        p.Name(),
		Department:         deref(p.Department),
		Year:               p.Year,
		Bio:                deref(p.Bio),
		AvatarUrl:          deref(p.AvatarUrl),
		InterestTags:       tags,
		IsOnline:           p.IsOnline,
		LastSeen:           p.LastSeen,
		Reputation:         p.Reputation,
		CrossCampusVisible: p.CrossCampusVisible,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func FromSession(s database.Session) Session {
	return Session{
		Id:          s.Id,
		CreatorId:   s.CreatorId,
		CampusId:    s.CampusId,
		Title:       s.Title,
		Description: deref(s.Description),
		Category:    s.Category,
		InterestTag: deref(s.InterestTag),
		Location:    deref(s.Location),
		Lat:         s.Lat,
		Lng:         s.Lng,
		MaxMembers:  s.MaxMembers,
		SessionTime: s.SessionTime,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}
}

func FromSessionMember(m database.SessionMember) SessionMember {
	return SessionMember{UserId: m.UserId, CheckedIn: m.CheckedIn, JoinedAt: m.JoinedAt}
}

func FromBroadcast(b database.Broadcast) Broadcast {
	return Broadcast{
		Id:              b.Id,
		UserId:          b.UserId,
		CampusId:        b.CampusId,
		Message:         b.Message,
		Category:        b.Category,
		DurationMinutes: b.DurationMinutes,
		ExpiresAt:       b.ExpiresAt,
		CreatedAt:       b.CreatedAt,
	}
}

func FromConnection(c database.Connection) Connection {
	return Connection{
		Id:            c.Id,
		RequesterId:   c.RequesterId,
		AddresseeId:   c.AddresseeId,
		Status:        c.Status,
		IsCrossCampus: c.IsCrossCampus,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func FromMessage(m database.Message) Message {
	return Message{
		Id:         m.Id,
		SenderId:   m.SenderId,
		ReceiverId: deref(m.ReceiverId),
		SessionId:  deref(m.SessionId),
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func FromBadge(b database.Badge) Badge {
	return Badge{
		Id:          b.Id,
		BadgeName:   b.BadgeName,
		BadgeIcon:   b.BadgeIcon,
		Description: deref(b.Description),
		EarnedAt:    b.EarnedAt,
	}
}
