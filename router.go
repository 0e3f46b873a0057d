package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/handlers"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/config"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// readinessCheck reports whether a dependency is usable.
type readinessCheck func(ctx context.Context) error

type routerDeps struct {
	cfg           *config.Config
	authenticator middleware.Authenticator
	identity      handlers.IdentityService
	users         handlers.UserStore
	redis         *redis.Client
	checks        map[string]readinessCheck
}

func setupRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(d.cfg.Server.FrontendURL))

	// authentication runs first so the rate limiter can key on the identity
	r.Use(middleware.Authenticate(d.authenticator, middleware.AuthOptions{
		Strict:  d.cfg.Auth.StrictBearer,
		Timeout: d.cfg.Auth.VerifyTimeout,
	}))
	if d.cfg.RateLimit.Enabled {
		if d.cfg.RateLimit.UseRedis && d.redis != nil {
			win := time.Duration(d.cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(d.redis, d.cfg.RateLimit.RPS, d.cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(d.cfg.RateLimit.RPS, d.cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readyHandler(d.checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	handlers.Register(r, handlers.NewAuthHandler(d.identity).Routes())
	handlers.Register(r, handlers.NewUserHandler(d.users).Routes())
	return r
}

// readyHandler returns 200 only when every dependency check passes.
func readyHandler(checks map[string]readinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{}
		for name, check := range checks {
			ok := check(ctx) == nil
			deps[name] = ok
			ready = ready && ok
		}
		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}

// corsMiddleware allows the configured frontend and any localhost origin.
func corsMiddleware(frontendURL string) gin.HandlerFunc {
	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if frontendURL != "" && strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(frontendURL, "/")) {
			return true
		}
		return origin == "http://localhost" || strings.HasPrefix(origin, "http://localhost:")
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "3600")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
