package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/haikuplus/haikuplus-server/internal/sessions"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
	"github.com/haikuplus/haikuplus-server/pkg/middleware"
)

var log = logger.Named("handlers")

// Guard bundles what the handlers need to authenticate a request.
type Guard struct {
	Auth   middleware.Authenticator
	Cookie middleware.CookieConfig
	Realm  string
}

func (g Guard) Require() gin.HandlerFunc {
	return middleware.RequireUser(g.Auth, g.Cookie, g.Realm)
}

func (g Guard) Authenticate(c *gin.Context) (*models.User, bool) {
	return middleware.AuthenticateRequest(c, g.Auth, g.Cookie, g.Realm)
}

// Accounts is the account lifecycle behind sign-out and disconnect.
type Accounts interface {
	SignOut(ctx context.Context, sess *sessions.Session)
	Disconnect(ctx context.Context, user *models.User, sess *sessions.Session) error
}

// AuthHandler serves the current user, sign-out and disconnect.
type AuthHandler struct {
	guard    Guard
	accounts Accounts
}

func NewAuthHandler(g Guard, a Accounts) *AuthHandler {
	return &AuthHandler{guard: g, accounts: a}
}

// Register routes under /api. Expects the session middleware to run first.
func (h *AuthHandler) Register(rg gin.IRouter) {
	rg.GET("/users/me", h.guard.Require(), h.Me)
	rg.POST("/signout", h.SignOut)
	rg.POST("/disconnect", h.guard.Require(), h.Disconnect)
}

// Me returns the authenticated user with its cached profile.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.UserFrom(c))
}

// SignOut unbinds the session from its user. It always succeeds.
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.accounts.SignOut(c.Request.Context(), middleware.SessionFrom(c))
	c.JSON(http.StatusOK, nil)
}

// Disconnect revokes the provider grant and deletes the account with all its content.
func (h *AuthHandler) Disconnect(c *gin.Context) {
	user := middleware.UserFrom(c)
	if err := h.accounts.Disconnect(c.Request.Context(), user, middleware.SessionFrom(c)); err != nil {
		log.Warnf("disconnect user %s: %v", user.ID, err)
		middleware.AbortWithError(c, err, h.guard.Realm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully disconnected."})
}
