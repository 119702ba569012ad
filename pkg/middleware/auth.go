package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/internal/auth"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/haikuplus/haikuplus-server/internal/sessions"
	"github.com/haikuplus/haikuplus-server/internal/tokens"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
)

const (
	SessionKey = "session"
	UserKey    = "user"
)

var log = logger.Named("middleware")

// Authenticator resolves the user behind a request.
type Authenticator interface {
	Authenticate(ctx context.Context, h http.Header, sess *sessions.Session) (*models.User, error)
}

// SessionLoader returns the session for a handle, creating one when needed.
type SessionLoader interface {
	Load(ctx context.Context, handle string) (*sessions.Session, error)
}

// CookieConfig describes the session cookie. Its value is a signed token carrying the
// session handle.
type CookieConfig struct {
	Name   string
	Secret string
	TTL    time.Duration
	Secure bool
}

// Session loads the request's session from the cookie (or starts a new one) and stores
// it in the context under SessionKey.
func Session(loader SessionLoader, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var handle string
		if raw, err := c.Cookie(cookie.Name); err == nil && raw != "" {
			h, err := tokens.ParseSessionHandle(cookie.Secret, raw)
			if err != nil {
				log.Debugf("ignoring session cookie: %v", err)
			} else {
				handle = h
			}
		}
		sess, err := loader.Load(c.Request.Context(), handle)
		if err != nil {
			log.Errorf("load session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not load session"})
			return
		}
		if sess.Handle != handle {
			WriteSessionCookie(c, cookie, sess)
		}
		c.Set(SessionKey, sess)
		c.Next()
	}
}

// RequireUser authenticates every request through AuthenticateRequest.
func RequireUser(a Authenticator, cookie CookieConfig, realm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := AuthenticateRequest(c, a, cookie, realm); !ok {
			return
		}
		c.Next()
	}
}

// AuthenticateRequest authenticates the request against its headers and session. On
// success the user is stored under UserKey; on failure the request is aborted with the
// error's status, challenge header and a {"message"} body.
func AuthenticateRequest(c *gin.Context, a Authenticator, cookie CookieConfig, realm string) (*models.User, bool) {
	sess := SessionFrom(c)
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "no session"})
		return nil, false
	}
	before := sess.Handle
	user, err := a.Authenticate(c.Request.Context(), c.Request.Header, sess)
	if sess.Handle != before {
		WriteSessionCookie(c, cookie, sess)
	}
	if err != nil {
		AbortWithError(c, err, realm)
		return nil, false
	}
	c.Set(UserKey, user)
	return user, true
}

// AbortWithError writes err in the authenticator's error convention.
func AbortWithError(c *gin.Context, err error, realm string) {
	e := auth.AsError(err)
	if name, value := e.ChallengeHeader(realm); name != "" {
		c.Header(name, value)
	}
	c.AbortWithStatusJSON(e.Status(), gin.H{"message": e.Message})
}

// WriteSessionCookie (re)issues the cookie for sess.
func WriteSessionCookie(c *gin.Context, cookie CookieConfig, sess *sessions.Session) {
	signed, err := tokens.SignSessionHandle(cookie.Secret, sess.Handle, cookie.TTL)
	if err != nil {
		log.Errorf("sign session cookie: %v", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.Name, signed, int(cookie.TTL.Seconds()), "/", "", cookie.Secure, true)
}

func SessionFrom(c *gin.Context) *sessions.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*sessions.Session)
	return sess
}

func UserFrom(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
