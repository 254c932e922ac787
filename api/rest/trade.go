package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/game/partner"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"go.uber.org/zap"
)

// TradeHandler serves partner discovery and the trade negotiation commands.
type TradeHandler struct {
	coordinator *trade.Coordinator
	discovery   *partner.Discovery
	validator   *Validator
	logger      *zap.Logger
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(co *trade.Coordinator, discovery *partner.Discovery, validator *Validator, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{coordinator: co, discovery: discovery, validator: validator, logger: logger}
}

type initiateRequest struct {
	TokenID       string `json:"tokenId"`
	TargetTokenID string `json:"targetTokenId"`
}

type respondRequest struct {
	TradeID string `json:"tradeId"`
}

// Partners handles GET /api/partners?tokenId=<requester token>.
func (h *TradeHandler) Partners(c *gin.Context) {
	tokenID := c.Query("tokenId")
	if tokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokenId is required"})
		return
	}
	cands, err := h.discovery.Discover(c.Request.Context(), mw.GetParticipant(c), tokenID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": cands})
}

// Current handles GET /api/trade.
func (h *TradeHandler) Current(c *gin.Context) {
	rec, err := h.coordinator.Current(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade": rec})
}

// Initiate handles POST /api/trade.
func (h *TradeHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if !bindCommand(c, h.validator, schemaTradeInitiate, &req) {
		return
	}
	rec, err := h.coordinator.Initiate(c.Request.Context(), mw.GetParticipant(c), req.TokenID, req.TargetTokenID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trade": rec})
}

// Accept handles POST /api/trade/accept.
func (h *TradeHandler) Accept(c *gin.Context) {
	var req respondRequest
	if !bindCommand(c, h.validator, schemaTradeRespond, &req) {
		return
	}
	rec, err := h.coordinator.Accept(c.Request.Context(), mw.GetParticipant(c), req.TradeID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade": rec})
}

// Decline handles POST /api/trade/decline.
func (h *TradeHandler) Decline(c *gin.Context) {
	var req respondRequest
	if !bindCommand(c, h.validator, schemaTradeRespond, &req) {
		return
	}
	if err := h.coordinator.Decline(c.Request.Context(), mw.GetParticipant(c), req.TradeID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cancel handles POST /api/trade/cancel.
func (h *TradeHandler) Cancel(c *gin.Context) {
	var req respondRequest
	if !bindCommand(c, h.validator, schemaTradeRespond, &req) {
		return
	}
	if err := h.coordinator.Cancel(c.Request.Context(), mw.GetParticipant(c), req.TradeID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
