package rest

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/config"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scheduler"
	"go.uber.org/zap"
)

// HostAuth checks the X-Host-Key header. With an empty key every host route
// answers 503 so an unconfigured server never mints tokens.
func HostAuth(hostKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hostKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "host endpoints disabled: set server.host_key in config"})
			return
		}
		key := c.GetHeader("X-Host-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(hostKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// SessionHandler issues and revokes participant tokens for the host.
type SessionHandler struct {
	sec       config.SecurityConfig
	cache     cache.Cache
	sched     *scheduler.Scheduler
	validator *Validator
	logger    *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sec config.SecurityConfig, c cache.Cache, sched *scheduler.Scheduler, validator *Validator, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sec: sec, cache: c, sched: sched, validator: validator, logger: logger}
}

// Issue handles POST /api/host/sessions. The host names the participant and
// role; the token carries them to every later request.
func (h *SessionHandler) Issue(c *gin.Context) {
	var p model.Participant
	if !bindCommand(c, h.validator, schemaSession, &p) {
		return
	}
	if p.Role == "" {
		p.Role = model.RolePlayer
	}
	tok, err := mw.GenerateToken(p, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("participant token issued", zap.String("participant_id", p.ID), zap.String("role", string(p.Role)))
	c.JSON(http.StatusCreated, gin.H{"token": tok, "participant": p})
}

// Tasks handles GET /api/host/tasks.
func (h *SessionHandler) Tasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// Me handles GET /api/session.
func (h *SessionHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participant": mw.GetParticipant(c)})
}

// Revoke handles DELETE /api/session.
func (h *SessionHandler) Revoke(c *gin.Context) {
	if err := mw.Revoke(c, h.cache); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
