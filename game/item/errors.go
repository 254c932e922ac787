package item

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kasuganosora/tabletrade/model"
)

var (
	ErrItemNotFound       = errors.New("item not found in inventory")
	ErrAlreadyEquipped    = errors.New("item already equipped")
	ErrNotEquipped        = errors.New("item not equipped")
	ErrItemEquipped       = errors.New("unequip the item before moving it")
	ErrNoEligibleSlot     = errors.New("item cannot be equipped")
	ErrSlotChoiceRequired = errors.New("choose a slot for this item")
	ErrInvalidSlot        = errors.New("invalid slot choice")
	ErrSlotFull           = errors.New("not enough slot capacity")
	ErrStorageNotFound    = errors.New("storage not found")
	ErrStorageNotNearby   = errors.New("storage is not nearby")
	ErrStorageFull        = errors.New("storage cannot hold that much weight")
	ErrVaultNotFound      = errors.New("vault not found")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidDirection   = errors.New("direction must be deposit or withdraw")
	ErrInvalidContainer   = errors.New("container must be storage or vault")
	ErrInvalidCoin        = errors.New("unknown coin type")
	ErrInsufficientCoins  = errors.New("not enough coins")
	ErrCoinCapExceeded    = errors.New("storage coin capacity exceeded")
	ErrForbidden          = errors.New("you do not control this character")
	ErrNoDurableCopy      = errors.New("no saved copy of this character")
)

// SlotCapacityError reports the shortfall when an equip would overflow a slot.
type SlotCapacityError struct {
	Slot      model.Slot `json:"slot"`
	Cost      int        `json:"cost"`
	Remaining int        `json:"remaining"`
}

func (e *SlotCapacityError) Error() string {
	return fmt.Sprintf("not enough %s slots: needs %d, %d remaining", e.Slot, e.Cost, e.Remaining)
}

func (e *SlotCapacityError) Unwrap() error { return ErrSlotFull }

// SlotChoiceError lists the slots a caller must choose between.
type SlotChoiceError struct {
	Candidates []model.Slot `json:"candidates"`
}

func (e *SlotChoiceError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, s := range e.Candidates {
		names[i] = string(s)
	}
	return fmt.Sprintf("choose a slot for this item: %s", strings.Join(names, ", "))
}

func (e *SlotChoiceError) Unwrap() error { return ErrSlotChoiceRequired }

// CategoryError names a category with no eligible slot.
type CategoryError struct {
	Category string `json:"category"`
}

func (e *CategoryError) Error() string {
	if e.Category == "" {
		return "items without a category cannot be equipped"
	}
	return fmt.Sprintf("%s items cannot be equipped", e.Category)
}

func (e *CategoryError) Unwrap() error { return ErrNoEligibleSlot }
