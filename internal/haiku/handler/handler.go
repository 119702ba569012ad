package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/internal/haiku/service"
)

// RegisterRoutes mounts the anonymous read-only haiku feed. The optional
// author query parameter takes a comma-separated list of user ids.
func RegisterRoutes(r gin.IRouter, svc service.Service) {
	r.GET("/haikus", func(c *gin.Context) {
		var (
			list interface{}
			err  error
		)
		if authors := splitIDs(c.Query("author")); len(authors) > 0 {
			list, err = svc.ListByAuthors(c.Request.Context(), authors)
		} else {
			list, err = svc.List(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list haikus"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/haikus/:id", func(c *gin.Context) {
		h, err := svc.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Haiku not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not load haiku"})
			return
		}
		c.JSON(http.StatusOK, h)
	})
}

func splitIDs(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
