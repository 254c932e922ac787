package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/game/item"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"go.uber.org/zap"
)

// CharacterHandler serves character sheets and inventory commands.
type CharacterHandler struct {
	items     *item.Service
	validator *Validator
	logger    *zap.Logger
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(items *item.Service, validator *Validator, logger *zap.Logger) *CharacterHandler {
	return &CharacterHandler{items: items, validator: validator, logger: logger}
}

// Get handles GET /api/characters/:token.
func (h *CharacterHandler) Get(c *gin.Context) {
	view, err := h.items.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Equip handles POST /api/characters/:token/equip.
func (h *CharacterHandler) Equip(c *gin.Context) {
	var req item.EquipRequest
	if !bindCommand(c, h.validator, schemaEquip, &req) {
		return
	}
	res, err := h.items.Equip(c.Request.Context(), mw.GetParticipant(c), c.Param("token"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Unequip handles POST /api/characters/:token/unequip.
func (h *CharacterHandler) Unequip(c *gin.Context) {
	var req item.UnequipRequest
	if !bindCommand(c, h.validator, schemaUnequip, &req) {
		return
	}
	res, err := h.items.Unequip(c.Request.Context(), mw.GetParticipant(c), c.Param("token"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transfer handles POST /api/characters/:token/transfer.
func (h *CharacterHandler) Transfer(c *gin.Context) {
	var req item.TransferRequest
	if !bindCommand(c, h.validator, schemaTransfer, &req) {
		return
	}
	res, err := h.items.Transfer(c.Request.Context(), mw.GetParticipant(c), c.Param("token"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Coins handles POST /api/characters/:token/coins.
func (h *CharacterHandler) Coins(c *gin.Context) {
	var req item.CoinRequest
	if !bindCommand(c, h.validator, schemaCoins, &req) {
		return
	}
	res, err := h.items.MoveCoins(c.Request.Context(), mw.GetParticipant(c), c.Param("token"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Restore handles POST /api/characters/:token/restore.
func (h *CharacterHandler) Restore(c *gin.Context) {
	view, err := h.items.Restore(c.Request.Context(), mw.GetParticipant(c), c.Param("token"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
