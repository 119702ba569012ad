package sessions

import "time"

// Session is the server-side state behind a session cookie. UserID is empty until a
// credential presentation binds the session to a local user.
type Session struct {
	Handle    string    `bson:"_id" json:"handle"`
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}
