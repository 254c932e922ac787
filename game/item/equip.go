package item

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/tabletrade/game/encumbrance"
	"github.com/kasuganosora/tabletrade/model"
)

// EquipRequest asks for one item to be equipped. Slot is only needed when the
// item fits more than one slot. A non-empty StorageID equips inside that storage.
type EquipRequest struct {
	ItemID    string     `json:"itemId"`
	Slot      model.Slot `json:"slot,omitempty"`
	StorageID string     `json:"storageId,omitempty"`
}

// EquipResult describes a committed equip.
type EquipResult struct {
	ItemID    string            `json:"itemId"`
	Slot      model.Slot        `json:"slot"`
	SplitFrom string            `json:"splitFrom,omitempty"`
	Stats     encumbrance.Stats `json:"stats"`
}

// UnequipRequest asks for one item to be unequipped.
type UnequipRequest struct {
	ItemID    string `json:"itemId"`
	StorageID string `json:"storageId,omitempty"`
}

// UnequipResult describes a committed unequip. MergedInto is set when the
// item was folded into a matching carried stack.
type UnequipResult struct {
	ItemID     string            `json:"itemId"`
	MergedInto string            `json:"mergedInto,omitempty"`
	Stats      encumbrance.Stats `json:"stats"`
}

// Resolver validates and applies equip state transitions. It checks every
// precondition before touching the inventory.
type Resolver struct {
	engine *encumbrance.Engine
	newID  func() string
}

// NewResolver creates a Resolver. A nil engine uses the built-in rules.
func NewResolver(engine *encumbrance.Engine) *Resolver {
	if engine == nil {
		engine = encumbrance.New(nil)
	}
	return &Resolver{engine: engine, newID: uuid.NewString}
}

// Engine returns the encumbrance engine the resolver reads slot usage from.
func (r *Resolver) Engine() *encumbrance.Engine {
	return r.engine
}

// CandidateSlots returns the slots an item may occupy, in display order.
// Pack-specific utility rules do not apply inside a storage.
func (r *Resolver) CandidateSlots(c model.Character, it model.Item, inStorage bool) []model.Slot {
	rules := r.engine.Rules()
	var out []model.Slot
	if s, ok := rules.CategorySlot(it.Category); ok {
		out = append(out, s)
	}
	utility := rules.AlwaysUtility(it.Category)
	if !utility && !inStorage {
		utility = rules.PackUtility(rules.Pack(c.PackType), it)
	}
	if utility {
		out = append(out, model.SlotUtility)
	}
	return out
}

// context resolves which inventory a request targets and its current stats.
func (r *Resolver) context(c *model.Character, storageID string) (*[]model.Item, encumbrance.Stats, bool, error) {
	if storageID == "" {
		return &c.Inventory, r.engine.Compute(*c), false, nil
	}
	s := c.Storage(storageID)
	if s == nil {
		return nil, encumbrance.Stats{}, true, fmt.Errorf("%w: %s", ErrStorageNotFound, storageID)
	}
	return &s.Inventory, r.engine.ComputeStorage(*s), true, nil
}

func (r *Resolver) stats(c *model.Character, storageID string) encumbrance.Stats {
	if storageID == "" {
		return r.engine.Compute(*c)
	}
	return r.engine.ComputeStorage(*c.Storage(storageID))
}

// Equip places an item into a slot. Multi-quantity items other than
// ammunition split off one equipped unit under a fresh id.
func (r *Resolver) Equip(c *model.Character, req EquipRequest) (EquipResult, error) {
	items, st, inStorage, err := r.context(c, req.StorageID)
	if err != nil {
		return EquipResult{}, err
	}
	idx := model.IndexOfItem(*items, req.ItemID)
	if idx < 0 {
		return EquipResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, req.ItemID)
	}
	it := (*items)[idx]
	if it.IsEquipped() {
		return EquipResult{}, ErrAlreadyEquipped
	}

	candidates := r.CandidateSlots(*c, it, inStorage)
	slot, err := chooseSlot(candidates, req.Slot, it.Category)
	if err != nil {
		return EquipResult{}, err
	}

	cost := r.engine.SlotCost(it.Category)
	if !st.Fits(slot, cost) {
		return EquipResult{}, &SlotCapacityError{Slot: slot, Cost: cost, Remaining: st.Remaining(slot)}
	}

	res := EquipResult{Slot: slot}
	if it.Quantity <= 1 || r.engine.Rules().IsAmmunition(it.Category) {
		(*items)[idx].EquippedSlot = slot
		res.ItemID = it.ID
	} else {
		unit := it.Clone()
		unit.ID = r.newID()
		unit.Quantity = 1
		unit.EquippedSlot = slot
		(*items)[idx].Quantity--
		*items = insertAt(*items, idx+1, unit)
		res.ItemID = unit.ID
		res.SplitFrom = it.ID
	}
	res.Stats = r.stats(c, req.StorageID)
	return res, nil
}

func chooseSlot(candidates []model.Slot, requested model.Slot, category string) (model.Slot, error) {
	if len(candidates) == 0 {
		return "", &CategoryError{Category: category}
	}
	if requested == "" {
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		return "", &SlotChoiceError{Candidates: candidates}
	}
	for _, s := range candidates {
		if s == requested {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidSlot, requested)
}

// Unequip clears an item's slot, merging it into a carried stack of the same
// name, category and value when one exists.
func (r *Resolver) Unequip(c *model.Character, req UnequipRequest) (UnequipResult, error) {
	items, _, _, err := r.context(c, req.StorageID)
	if err != nil {
		return UnequipResult{}, err
	}
	idx := model.IndexOfItem(*items, req.ItemID)
	if idx < 0 {
		return UnequipResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, req.ItemID)
	}
	it := (*items)[idx]
	if !it.IsEquipped() {
		return UnequipResult{}, ErrNotEquipped
	}

	res := UnequipResult{ItemID: it.ID}
	if j := findStack(*items, it, idx); j >= 0 {
		(*items)[j].Quantity += it.Quantity
		res.MergedInto = (*items)[j].ID
		*items = append((*items)[:idx], (*items)[idx+1:]...)
	} else {
		(*items)[idx].EquippedSlot = ""
	}
	res.Stats = r.stats(c, req.StorageID)
	return res, nil
}

// findStack returns the index of a carried stack it can merge into, skipping skip.
func findStack(items []model.Item, it model.Item, skip int) int {
	for j := range items {
		if j != skip && !items[j].IsEquipped() && items[j].StacksWith(it) {
			return j
		}
	}
	return -1
}

func insertAt(items []model.Item, i int, it model.Item) []model.Item {
	items = append(items, model.Item{})
	copy(items[i+1:], items[i:])
	items[i] = it
	return items
}
