package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserIsFresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-23 * time.Hour)
	old := now.Add(-25 * time.Hour)

	assert.False(t, (&User{}).IsFresh(now, 24*time.Hour))
	assert.True(t, (&User{LastUpdated: &recent}).IsFresh(now, 24*time.Hour))
	assert.False(t, (&User{LastUpdated: &old}).IsFresh(now, 24*time.Hour))
	var nilUser *User
	assert.False(t, nilUser.IsFresh(now, 24*time.Hour))
}

func TestApplyProfileKeepsExternalIDWhenMissing(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{ID: "u1", ExternalID: "g-1"}
	u.ApplyProfile(&Profile{DisplayName: "Ann", PhotoURL: "p", ProfileURL: "q"}, now)

	assert.Equal(t, "g-1", u.ExternalID)
	assert.Equal(t, "Ann", u.DisplayName)
	if assert.NotNil(t, u.LastUpdated) {
		assert.True(t, now.Equal(*u.LastUpdated))
	}
}

func TestCredentialExpiry(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Credential{ExpiresIn: 3600, Created: created}
	assert.Equal(t, created.Add(time.Hour), c.Expiry())
	assert.True(t, (&Credential{}).Expiry().IsZero())
}
