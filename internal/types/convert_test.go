package types

import (
	"testing"
	"time"

	"github.com/devquest008/campus-connect/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestFromProfile(t *testing.T) {
	bio := "CSE, likes chess"
	p := FromProfile(database.Profile{
		Id:       "p1",
		UserId:   "u1",
		Username: "asha",
		Bio:      &bio,
	})

	assert.Equal(t, "asha", p.DisplayName, "expected display name to fall back to username")
	assert.Equal(t, bio, p.Bio)
	assert.Equal(t, "", p.Department)
	assert.NotNil(t, p.InterestTags, "expected tags to encode as an empty list")
	assert.Empty(t, p.InterestTags)
}

func TestFromMessage(t *testing.T) {
	receiver := "u2"
	now := time.Now()

	direct := FromMessage(database.Message{Id: "m1", SenderId: "u1", ReceiverId: &receiver, Content: "hi", CreatedAt: now})
	assert.Equal(t, "u2", direct.ReceiverId)
	assert.Equal(t, "", direct.SessionId)

	session := "s1"
	group := FromMessage(database.Message{Id: "m2", SenderId: "u1", SessionId: &session})
	assert.Equal(t, "", group.ReceiverId)
	assert.Equal(t, "s1", group.SessionId)
}
