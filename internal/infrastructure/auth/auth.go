package auth

import (
	"context"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// ContextKeyToken is the gin context key holding the validated token.
const ContextKeyToken = "auth_token"

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return NewValidatorWithJWKS(cfg, jwks, log), nil
}

// NewValidatorWithJWKS uses an already loaded key set.
func NewValidatorWithJWKS(cfg *config.Config, jwks *keyfunc.JWKS, log zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, log: log, jwks: jwks}
}

// Middleware enforces JWT auth when enabled. WebSocket upgrades may carry the token in the
// access_token query parameter, since browsers cannot set headers on them.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	options := []jwt.ParserOption{
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	}
	if v.cfg.AuthAudience != "" {
		options = append(options, jwt.WithAudience(v.cfg.AuthAudience))
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" && isWebSocketUpgrade(c) {
			tokenString = strings.TrimSpace(c.Query("access_token"))
		}
		if tokenString == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc, options...)
		if err != nil || !token.Valid {
			v.log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected token")
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
