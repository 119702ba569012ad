package models

import "time"

// User is a local Haiku+ account linked to exactly one Google identity.
// ID is generated once and never derived from ExternalID.
type User struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"google_plus_id"`
	DisplayName string     `json:"google_display_name"`
	PhotoURL    string     `json:"google_photo_url"`
	ProfileURL  string     `json:"google_profile_url"`
	LastUpdated *time.Time `json:"last_updated"`
}

// IsFresh reports whether the cached profile was refreshed less than maxAge before now.
// A user whose profile was never fetched is never fresh.
func (u *User) IsFresh(now time.Time, maxAge time.Duration) bool {
	if u == nil || u.LastUpdated == nil {
		return false
	}
	return now.Sub(*u.LastUpdated) < maxAge
}

// Profile is the subset of the provider profile cached on the user record.
type Profile struct {
	ExternalID  string
	DisplayName string
	PhotoURL    string
	ProfileURL  string
}

// ApplyProfile overwrites the cached profile fields and stamps the refresh time.
func (u *User) ApplyProfile(p *Profile, now time.Time) {
	if p.ExternalID != "" {
		u.ExternalID = p.ExternalID
	}
	u.DisplayName = p.DisplayName
	u.PhotoURL = p.PhotoURL
	u.ProfileURL = p.ProfileURL
	t := now.UTC()
	u.LastUpdated = &t
}
