// Command haikus serves the public, read-only haiku feed without any
// authentication stack. It shares storage with the main server.
package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/internal/database"
	"github.com/haikuplus/haikuplus-server/internal/haiku/handler"
	"github.com/haikuplus/haikuplus-server/internal/haiku/service"
	"github.com/haikuplus/haikuplus-server/internal/users"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("FEED_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}
	baseURI := os.Getenv("BASE_URI")

	r := gin.New()
	r.Use(gin.Recovery())

	var svc service.Service
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI != "" {
		timeout := 10 * time.Second
		if v, err := time.ParseDuration(os.Getenv("MONGODB_TIMEOUT")); err == nil && v > 0 {
			timeout = v
		}
		client, err := database.ConnectMongo(context.Background(), mongoURI, timeout)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v), serving an empty in-memory feed", err)
			svc = service.NewMemoryService(users.NewService(users.NewMemoryUserRepository()), baseURI)
		} else {
			db := client.Database(os.Getenv("MONGODB_DATABASE"))
			authors := users.NewService(users.NewMongoUserRepository(db.Collection(database.UsersCollection)))
			svc = service.NewMongoService(db.Collection(database.HaikusCollection), authors, baseURI)
		}
	} else {
		svc = service.NewMemoryService(users.NewService(users.NewMemoryUserRepository()), baseURI)
	}

	handler.RegisterRoutes(r.Group("/api"), svc)

	logger.Infof("haiku feed listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("feed server: %v", err)
	}
}
