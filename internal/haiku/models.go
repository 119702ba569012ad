package haiku

import (
	"time"

	"github.com/haikuplus/haikuplus-server/internal/models"
)

// Haiku is a three-line poem posted by a user. Author is resolved from AuthorID by the
// service layer and is nil when the author no longer exists.
type Haiku struct {
	ID                     string       `json:"id"`
	AuthorID               string       `json:"-"`
	Author                 *models.User `json:"author"`
	Title                  string       `json:"title"`
	LineOne                string       `json:"line_one"`
	LineTwo                string       `json:"line_two"`
	LineThree              string       `json:"line_three"`
	Votes                  int64        `json:"votes"`
	CreationTime           time.Time    `json:"creation_time"`
	ContentURL             string       `json:"content_url,omitempty"`
	ContentDeepLinkID      string       `json:"content_deep_link_id,omitempty"`
	CallToActionURL        string       `json:"call_to_action_url,omitempty"`
	CallToActionDeepLinkID string       `json:"call_to_action_deep_link_id,omitempty"`
}

// Draft holds the only fields a client may set when creating a haiku.
type Draft struct {
	Title     string `json:"title"`
	LineOne   string `json:"line_one"`
	LineTwo   string `json:"line_two"`
	LineThree string `json:"line_three"`
}

// SetLinks derives the sharing URLs and deep-link ids from the public base URI.
func (h *Haiku) SetLinks(baseURI string) {
	h.ContentDeepLinkID = "/haikus/" + h.ID
	h.CallToActionDeepLinkID = h.ContentDeepLinkID + "?action=vote"
	h.ContentURL = baseURI + h.ContentDeepLinkID
	h.CallToActionURL = baseURI + h.CallToActionDeepLinkID
}
