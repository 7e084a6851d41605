package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docpilot/portal/internal/model"
)

func TestNewSettingsRepository(t *testing.T) {
	db := &Connection{}
	repo := NewSettingsRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestSettingsArgs_Order(t *testing.T) {
	s := model.DefaultAccountSettings(uuid.New())
	s.FullName = "Ada"
	s.AvatarKey = "avatars/a.png"

	args := settingsArgs(s)
	assert.Len(t, args, 10)
	assert.Equal(t, s.UserID, args[0])
	assert.Equal(t, "Ada", args[1])
	assert.Equal(t, "UTC", args[4])
	assert.Equal(t, "en", args[5])
	assert.Equal(t, "avatars/a.png", args[9])
}

func TestConnection_PingWithoutPool(t *testing.T) {
	c := &Connection{}
	assert.Error(t, c.Ping(t.Context()))
	assert.NoError(t, c.Close())
}
