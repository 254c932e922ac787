package model

import "strings"

// Slot is an equipment slot. The empty slot and SlotNone both mean "carried".
type Slot string

const (
	SlotWeapon   Slot = "weapon"
	SlotArmor    Slot = "armor"
	SlotClothing Slot = "clothing"
	SlotJewelry  Slot = "jewelry"
	SlotUtility  Slot = "utility"
	SlotNone     Slot = "none"
)

// EquipSlots lists every slot an item can occupy, in display order.
var EquipSlots = []Slot{SlotWeapon, SlotArmor, SlotClothing, SlotJewelry, SlotUtility}

// Equipped reports whether s names a real slot.
func (s Slot) Equipped() bool {
	return s != "" && s != SlotNone
}

// ParseSlot maps user input onto a known equip slot.
func ParseSlot(v string) (Slot, bool) {
	s := Slot(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range EquipSlots {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Charges tracks limited uses on an item.
type Charges struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Item is a single stack in an inventory.
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Weight       float64  `json:"weight"`
	Quantity     int      `json:"quantity"`
	Value        string   `json:"value,omitempty"`
	EquippedSlot Slot     `json:"equippedSlot,omitempty"`
	Charges      *Charges `json:"charges,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// IsEquipped reports whether the item currently occupies a slot.
func (it Item) IsEquipped() bool {
	return it.EquippedSlot.Equipped()
}

// StacksWith reports whether two items are the same kind of thing and may
// share one stack.
func (it Item) StacksWith(o Item) bool {
	return it.Name == o.Name && it.Category == o.Category && it.Value == o.Value
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	if it.Charges != nil {
		ch := *it.Charges
		it.Charges = &ch
	}
	return it
}

// IndexOfItem returns the index of the item with id, or -1.
func IndexOfItem(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// RemoveQuantity takes qty units from the item at idx. A stack that reaches
// zero is removed from the slice.
func RemoveQuantity(items []Item, idx, qty int) []Item {
	if idx < 0 || idx >= len(items) || qty <= 0 {
		return items
	}
	if items[idx].Quantity > qty {
		items[idx].Quantity -= qty
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
