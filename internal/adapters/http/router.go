package http

import (
	"context"
	"crypto/rand"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/avatarstream/internal/config"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/remote"
)

// TokenIssuer is the key-authenticated part of the lifecycle client the
// server exposes to browsers.
type TokenIssuer interface {
	CreateToken(ctx context.Context) (string, error)
	ListAvatars(ctx context.Context) ([]domain.StreamingAvatar, error)
}

// SetupRouter serves the static host page and the token API. The API key
// never leaves the server; browsers only receive ephemeral tokens.
func SetupRouter(cfg *config.Config, issuer TokenIssuer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore(sessionSecret(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("AvatarSessions", store))
	r.Use(ClientIDMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	limiter := NewRateLimiter(cfg.TokenRateLimit, cfg.TokenRateInterval)
	h := &handlers{issuer: issuer}

	api := r.Group("/api")
	api.POST("/get-access-token", rateLimit(limiter), h.accessToken)
	api.GET("/avatars", h.avatars)

	return r
}

// sessionSecret falls back to a per-process key, which invalidates client
// cookies on restart.
func sessionSecret(secret string) []byte {
	if secret != "" {
		return []byte(secret)
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}

// ClientIDMiddleware gives every browser a stable id in its cookie session.
// Only the id is stored; issued tokens never go into the cookie.
func ClientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(clientIDKey).(string)
		if id == "" {
			id = uuid.NewString()
			s.Set(clientIDKey, id)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client session")
			}
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

const clientIDKey = "client_id"

func rateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			log.Warn().Str("module", "adapters.http").Str("ip", c.ClientIP()).Msg("token rate limit")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}

type handlers struct {
	issuer TokenIssuer
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *handlers) accessToken(c *gin.Context) {
	token, err := h.issuer.CreateToken(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("client", c.GetString(clientIDKey)).Msg("create token")
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("module", "adapters.http").Str("client", c.GetString(clientIDKey)).Msg("token issued")
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (h *handlers) avatars(c *gin.Context) {
	avatars, err := h.issuer.ListAvatars(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list avatars")
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatars": avatars})
}

func upstreamStatus(err error) int {
	if e, ok := remote.AsError(err); ok {
		switch {
		case e.IsUnauthorized():
			return http.StatusUnauthorized
		case e.IsRateLimit():
			return http.StatusTooManyRequests
		}
	}
	return http.StatusBadGateway
}
