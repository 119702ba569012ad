package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/internal/haiku"
	haikusvc "github.com/haikuplus/haikuplus-server/internal/haiku/service"
	"github.com/haikuplus/haikuplus-server/internal/models"
)

// Circles refreshes and reads the "in circles" edges of a user.
type Circles interface {
	RefreshBestEffort(ctx context.Context, user *models.User)
	Targets(ctx context.Context, userID string) ([]string, error)
}

type HaikuHandler struct {
	guard   Guard
	haikus  haikusvc.Service
	circles Circles
	demo    bool
}

func NewHaikuHandler(g Guard, svc haikusvc.Service, circles Circles, demo bool) *HaikuHandler {
	return &HaikuHandler{guard: g, haikus: svc, circles: circles, demo: demo}
}

// Register routes under /api. Listing and fetching are public unless filtered by circles.
func (h *HaikuHandler) Register(rg gin.IRouter) {
	rg.GET("/haikus", h.List)
	rg.POST("/haikus", h.Create)
	rg.GET("/haikus/:id", h.Get)
	rg.POST("/haikus/:id/vote", h.guard.Require(), h.Vote)
}

// List returns every haiku, or with ?filter=circles only those by people in the
// authenticated user's circles.
func (h *HaikuHandler) List(c *gin.Context) {
	if c.Query("filter") != "circles" {
		list, err := h.haikus.List(c.Request.Context())
		if err != nil {
			h.internalError(c, "list haikus", err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}

	user, ok := h.guard.Authenticate(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	h.circles.RefreshBestEffort(ctx, user)
	targets, err := h.circles.Targets(ctx, user.ID)
	if err != nil {
		h.internalError(c, "load circles", err)
		return
	}
	list := []*haiku.Haiku{}
	if len(targets) > 0 {
		list, err = h.haikus.ListByAuthors(ctx, targets)
		if err != nil {
			h.internalError(c, "list circle haikus", err)
			return
		}
	}
	c.JSON(http.StatusOK, list)
}

// Create stores a haiku by the authenticated user. Refused while running as a demo.
func (h *HaikuHandler) Create(c *gin.Context) {
	if h.demo {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Cannot create haikus during demo."})
		return
	}
	user, ok := h.guard.Authenticate(c)
	if !ok {
		return
	}
	var d haiku.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	created, err := h.haikus.Create(c.Request.Context(), user, d)
	if err != nil {
		h.internalError(c, "create haiku", err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *HaikuHandler) Get(c *gin.Context) {
	got, err := h.haikus.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, haikusvc.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Haiku not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get haiku", err)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (h *HaikuHandler) Vote(c *gin.Context) {
	voted, err := h.haikus.Vote(c.Request.Context(), c.Param("id"))
	if errors.Is(err, haikusvc.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Haiku not found"})
		return
	}
	if err != nil {
		h.internalError(c, "vote", err)
		return
	}
	c.JSON(http.StatusOK, voted)
}

func (h *HaikuHandler) internalError(c *gin.Context, op string, err error) {
	log.Errorf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
