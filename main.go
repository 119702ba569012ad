package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haikuplus/haikuplus-server/handlers"
	"github.com/haikuplus/haikuplus-server/internal/auth"
	"github.com/haikuplus/haikuplus-server/internal/circles"
	"github.com/haikuplus/haikuplus-server/internal/config"
	"github.com/haikuplus/haikuplus-server/internal/credentials"
	"github.com/haikuplus/haikuplus-server/internal/google"
	haikusvc "github.com/haikuplus/haikuplus-server/internal/haiku/service"
	"github.com/haikuplus/haikuplus-server/internal/oidc"
	"github.com/haikuplus/haikuplus-server/internal/sessions"
	"github.com/haikuplus/haikuplus-server/internal/users"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
	"github.com/haikuplus/haikuplus-server/pkg/metrics"
	"github.com/haikuplus/haikuplus-server/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: google_client=%v mongo=%v redis=%v demo=%v", cfg.Google.ClientID != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Server.Demo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStores(ctx, cfg)
	defer st.Close()

	var verifier oidc.TokenVerifier
	if cfg.Google.InsecureIDTokens {
		logger.Warnf("ID token signatures are NOT verified (ALLOW_INSECURE_TOKEN)")
		verifier = oidc.NewInsecureVerifier(cfg.Google.ClientID)
	} else {
		verifier = oidc.NewVerifier(ctx, cfg.Google.Issuer, cfg.Google.JWKSURL, cfg.Google.ClientID)
	}
	provider := google.New(google.Config{
		ClientID:       cfg.Google.ClientID,
		ClientSecret:   cfg.Google.ClientSecret,
		TokenURL:       cfg.Google.TokenURL,
		TokenInfoURL:   cfg.Google.TokenInfoURL,
		UserInfoURL:    cfg.Google.UserInfoURL,
		RevokeURL:      cfg.Google.RevokeURL,
		ConnectionsURL: cfg.Google.ConnectionsURL,
		Timeout:        cfg.Google.Timeout,
		Verifier:       verifier,
	})

	userSvc := users.NewService(st.users)
	credSvc := credentials.NewService(st.credentials)
	sessionsSvc := sessions.NewService(st.sessions, cfg.Session.TTL)
	haikuSvc := haikusvc.NewService(st.haikus, userSvc, cfg.Server.BaseURI)
	circleSvc := circles.NewService(st.edges, provider, credSvc, userSvc)

	deps := auth.Deps{
		Provider:    provider,
		Users:       userSvc,
		Credentials: credSvc,
		Sessions:    sessionsSvc,
		Content:     haikuSvc,
		Edges:       circleSvc,
	}
	if st.redis != nil {
		deps.Revoked = sessions.NewRevokedTokens(st.redis)
	}
	authenticator := auth.New(cfg.Google.ClientID, deps)

	cookie := middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	}
	if cookie.Secret == "" {
		cookie.Secret = randomSecret()
		logger.Warnf("SESSION_SECRET not set; using an ephemeral secret, sessions will not survive a restart")
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		checks := st.Ready(c.Request.Context())
		ready := true
		for _, ok := range checks {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": checks, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api", middleware.Session(sessionsSvc, cookie))
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && st.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			api.Use(middleware.RedisRateLimitMiddleware(st.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		logger.Infof("rate limiter enabled: rps=%.2f burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis && st.redis != nil)
	}

	guard := handlers.Guard{Auth: authenticator, Cookie: cookie, Realm: cfg.Google.Realm}
	handlers.NewAuthHandler(guard, authenticator).Register(api)
	handlers.NewHaikuHandler(guard, haikuSvc, circleSvc, cfg.Server.Demo).Register(api)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting Haiku+ on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// cors is the permissive dev policy; put a stricter proxy in front in production.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-OAuth-Code")
		h.Set("Access-Control-Expose-Headers", "Content-Length, WWW-Authenticate, X-OAuth-Code")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Fatalf("generate session secret: %v", err)
	}
	return hex.EncodeToString(b)
}
