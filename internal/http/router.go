// README: HTTP router registration.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carpool/internal/http/handlers"
	"carpool/internal/http/middleware"
	"carpool/internal/infra"
)

// ProfileService is what the router needs from the profile module: the
// handler surface plus first-login user creation.
type ProfileService interface {
	handlers.ProfileService
	middleware.UserEnsurer
}

type RouterDeps struct {
	Log         *slog.Logger
	Verifier    infra.TokenVerifier
	CookieName  string
	Profiles    ProfileService
	Preferences handlers.PreferenceService
	Matches     handlers.MatchService
	Public      handlers.PublicConfig
	// Ready is probed by /health; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(d.Log),
		middleware.Metrics(),
		middleware.Recovery(d.Log),
	)

	r.GET("/health", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	configHandler := handlers.NewConfigHandler(d.Public)
	r.GET("/api/config", configHandler.Get)

	authHandler := handlers.NewAuthHandler(d.Profiles, d.CookieName)
	r.POST("/api/auth/logout", authHandler.Logout)

	api := r.Group("/api", middleware.Auth(d.Verifier, d.CookieName, d.Profiles))
	api.GET("/auth/me", authHandler.Me)

	profileHandler := handlers.NewProfileHandler(d.Profiles)
	api.GET("/profile", profileHandler.Get)
	api.PUT("/profile", profileHandler.Update)

	prefHandler := handlers.NewPreferenceHandler(d.Preferences)
	api.GET("/preferences", prefHandler.List)
	api.PUT("/preferences", prefHandler.Upsert)
	api.DELETE("/preferences/:direction", prefHandler.Delete)

	matchHandler := handlers.NewMatchHandler(d.Matches)
	api.GET("/matches", matchHandler.List)
	api.POST("/matches/compute", matchHandler.Compute)

	return r
}
