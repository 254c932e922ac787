package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/game/item"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/scene"
	"go.uber.org/zap"
)

var statusTable = []struct {
	err    error
	status int
}{
	{scene.ErrNotFound, http.StatusNotFound},
	{item.ErrItemNotFound, http.StatusNotFound},
	{item.ErrStorageNotFound, http.StatusNotFound},
	{item.ErrVaultNotFound, http.StatusNotFound},
	{item.ErrNoDurableCopy, http.StatusNotFound},
	{trade.ErrNoTrade, http.StatusNotFound},

	{item.ErrForbidden, http.StatusForbidden},
	{trade.ErrNotClaimed, http.StatusForbidden},
	{trade.ErrNotAddressed, http.StatusForbidden},
	{trade.ErrCancelDenied, http.StatusForbidden},

	{item.ErrSlotChoiceRequired, http.StatusConflict},
	{trade.ErrTradeInProgress, http.StatusConflict},
	{trade.ErrTradeChanged, http.StatusConflict},
	{trade.ErrNotPending, http.StatusConflict},
	{trade.ErrNotActive, http.StatusConflict},
	{trade.ErrCorruptRecord, http.StatusConflict},

	{item.ErrInvalidQuantity, http.StatusBadRequest},
	{item.ErrInvalidDirection, http.StatusBadRequest},
	{item.ErrInvalidContainer, http.StatusBadRequest},
	{item.ErrInvalidCoin, http.StatusBadRequest},
	{item.ErrInvalidSlot, http.StatusBadRequest},

	{item.ErrAlreadyEquipped, http.StatusUnprocessableEntity},
	{item.ErrNotEquipped, http.StatusUnprocessableEntity},
	{item.ErrItemEquipped, http.StatusUnprocessableEntity},
	{item.ErrNoEligibleSlot, http.StatusUnprocessableEntity},
	{item.ErrSlotFull, http.StatusUnprocessableEntity},
	{item.ErrStorageNotNearby, http.StatusUnprocessableEntity},
	{item.ErrStorageFull, http.StatusUnprocessableEntity},
	{item.ErrInsufficientCoins, http.StatusUnprocessableEntity},
	{item.ErrCoinCapExceeded, http.StatusUnprocessableEntity},
	{trade.ErrTooFar, http.StatusUnprocessableEntity},
	{trade.ErrTargetUnclaimed, http.StatusUnprocessableEntity},
	{trade.ErrNotTradeable, http.StatusUnprocessableEntity},
	{trade.ErrSameToken, http.StatusUnprocessableEntity},
}

// statusFor maps a service error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with the user-facing message and any structured detail
// the error carries. Internal errors are logged and hidden.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var capErr *item.SlotCapacityError
	var choiceErr *item.SlotChoiceError
	var catErr *item.CategoryError
	switch {
	case errors.As(err, &capErr):
		body["slot"] = capErr.Slot
		body["cost"] = capErr.Cost
		body["remaining"] = capErr.Remaining
	case errors.As(err, &choiceErr):
		body["candidates"] = choiceErr.Candidates
	case errors.As(err, &catErr):
		body["category"] = catErr.Category
	}
	c.JSON(status, body)
}
