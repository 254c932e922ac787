package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/config"
	"github.com/kasuganosora/tabletrade/model"
)

const (
	ParticipantKey = "participant"
	claimsKey      = "participant_claims"
)

func revokedKey(tokenID string) string { return "session:revoked:" + tokenID }

// bearer returns the token from the Authorization header, or from the token
// query parameter for clients that cannot set headers (EventSource).
func bearer(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the participant token and rejects revoked sessions.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := bearer(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims.ID != "" {
			cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			revoked, err := c.Exists(cacheCtx, revokedKey(claims.ID))
			cancel()
			if err != nil || revoked {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
		}

		ctx.Set(ParticipantKey, claims.Participant())
		ctx.Set(claimsKey, claims)
		ctx.Next()
	}
}

// Revoke invalidates the caller's token until it would have expired anyway.
func Revoke(ctx *gin.Context, c cache.Cache) error {
	v, ok := ctx.Get(claimsKey)
	if !ok {
		return nil
	}
	claims := v.(*Claims)
	if claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx.Request.Context(), revokedKey(claims.ID), "1", ttl)
}

// GetParticipant retrieves the authenticated participant from the Gin context.
func GetParticipant(c *gin.Context) model.Participant {
	if v, exists := c.Get(ParticipantKey); exists {
		return v.(model.Participant)
	}
	return model.Participant{}
}
