package models

import "time"

// Credential is the provider token bundle stored for a user. There is at most one per user.
type Credential struct {
	UserID       string    `json:"-"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
	Created      time.Time `json:"created"`
}

// Expiry is the instant the access token stops being accepted by the provider.
// The zero time means the expiry is unknown.
func (c *Credential) Expiry() time.Time {
	if c.ExpiresIn <= 0 || c.Created.IsZero() {
		return time.Time{}
	}
	return c.Created.Add(time.Duration(c.ExpiresIn) * time.Second)
}

// Edge is a directed "source has target in circles" relation between two local users.
type Edge struct {
	ID           string `json:"id"`
	SourceUserID string `json:"source_user_id"`
	TargetUserID string `json:"target_user_id"`
}
