package auth

import (
	"net/http"
	"regexp"
)

const (
	// CodeHeader carries a one-time authorization code, optionally followed by
	// redirect_uri='<uri>'.
	CodeHeader = "X-OAuth-Code"
	// OutOfBandRedirect is the redirect URI installed apps exchange codes with.
	OutOfBandRedirect = "urn:ietf:wg:oauth:2.0:oob"
)

var (
	codeRe        = regexp.MustCompile(`\s*(\S+)\s*\S*`)
	redirectURIRe = regexp.MustCompile(`redirect_uri='(\S+)'`)
	bearerRe      = regexp.MustCompile(`(?i)^\s*Bearer\s+(\S+)`)
	projectIDRe   = regexp.MustCompile(`^[0-9]+`)
)

// Credentials are the credential inputs a request presents. Empty fields mean the
// corresponding header was absent or unparseable.
type Credentials struct {
	Code        string
	RedirectURI string
	BearerToken string
}

// ParseHeaders extracts the code and bearer inputs. A missing header is not an error.
func ParseHeaders(h http.Header) Credentials {
	var c Credentials
	if v := h.Get(CodeHeader); v != "" {
		if m := codeRe.FindStringSubmatch(v); m != nil {
			c.Code = m[1]
		}
		if m := redirectURIRe.FindStringSubmatch(v); m != nil {
			c.RedirectURI = m[1]
		}
		if c.Code != "" && c.RedirectURI == "" {
			c.RedirectURI = OutOfBandRedirect
		}
	}
	if v := h.Get("Authorization"); v != "" {
		if m := bearerRe.FindStringSubmatch(v); m != nil {
			c.BearerToken = m[1]
		}
	}
	return c
}

// projectID returns the leading numeric project number of an OAuth client id,
// e.g. "1234-abc.apps.googleusercontent.com" -> "1234".
func projectID(clientID string) string {
	return projectIDRe.FindString(clientID)
}

// sameProject reports whether the audience was issued to the same project as clientID.
func sameProject(audience, clientID string) bool {
	a := projectID(audience)
	return a != "" && a == projectID(clientID)
}
