package encumbrance

import (
	"github.com/kasuganosora/tabletrade/game/rules"
	"github.com/kasuganosora/tabletrade/model"
)

// Unbounded marks a slot with no cap.
const Unbounded = -1

// Stats is the derived carrying state of a character or storage.
type Stats struct {
	Pack          string             `json:"pack,omitempty"`
	MaxSlots      map[model.Slot]int `json:"maxSlots"`
	UsedSlots     map[model.Slot]int `json:"usedSlots"`
	CarriedWeight float64            `json:"carriedWeight"`
	CoinWeight    int                `json:"coinWeight"`
	Weight        float64            `json:"weight"`
	Capacity      float64            `json:"capacity"`
	Overburdened  bool               `json:"overburdened"`
}

// Remaining returns the free capacity of a slot, or Unbounded.
func (s Stats) Remaining(slot model.Slot) int {
	m := s.MaxSlots[slot]
	if m == Unbounded {
		return Unbounded
	}
	return max(0, m-s.UsedSlots[slot])
}

// Fits reports whether cost more units fit into slot.
func (s Stats) Fits(slot model.Slot, cost int) bool {
	m := s.MaxSlots[slot]
	return m == Unbounded || s.UsedSlots[slot]+cost <= m
}

// Engine computes Stats from a rule table. It never caches: every call walks
// the inventory again.
type Engine struct {
	rules *rules.Rules
}

// New creates an Engine. A nil table uses the built-in rules.
func New(r *rules.Rules) *Engine {
	if r == nil {
		r = rules.Default()
	}
	return &Engine{rules: r}
}

// Rules returns the table the engine reads.
func (e *Engine) Rules() *rules.Rules {
	return e.rules
}

// Compute derives a character's stats. Missing fields count as zero or default.
func (e *Engine) Compute(c model.Character) Stats {
	pack := e.rules.Pack(c.PackType)
	free := e.rules.CoinFreeLimit
	if pack.NonPlayer {
		free = 0
	}
	st := Stats{
		Pack:     pack.Name,
		MaxSlots: e.rules.MaxSlots(pack),
		Capacity: pack.Capacity,
	}
	e.walk(&st, c.Inventory)
	st.CoinWeight = coinWeight(c.Currency.Total(), free, e.rules.CoinsPerWeight)
	st.finish()
	return st
}

// ComputeStorage derives a storage's stats from its type row. Storages carry
// every coin at weight; utility is unbounded inside them.
func (e *Engine) ComputeStorage(s model.Storage) Stats {
	typ := e.rules.StorageType(s.Type)
	st := Stats{
		MaxSlots: map[model.Slot]int{
			model.SlotWeapon:   max(0, typ.WeaponSlots),
			model.SlotArmor:    max(0, typ.ArmorSlots),
			model.SlotClothing: e.rules.BaseSlots[model.SlotClothing],
			model.SlotJewelry:  e.rules.BaseSlots[model.SlotJewelry],
			model.SlotUtility:  Unbounded,
		},
		Capacity: typ.Capacity,
	}
	e.walk(&st, s.Inventory)
	st.CoinWeight = coinWeight(s.Currency.Total(), 0, e.rules.CoinsPerWeight)
	st.finish()
	return st
}

func (e *Engine) walk(st *Stats, items []model.Item) {
	st.UsedSlots = make(map[model.Slot]int, len(model.EquipSlots))
	for _, s := range model.EquipSlots {
		st.UsedSlots[s] = 0
	}
	for _, it := range items {
		if it.IsEquipped() {
			st.UsedSlots[it.EquippedSlot] += e.rules.SlotCost(it.Category)
			continue
		}
		if it.Weight > 0 && it.Quantity > 0 {
			st.CarriedWeight += it.Weight * float64(it.Quantity)
		}
	}
}

func (st *Stats) finish() {
	st.Weight = st.CarriedWeight + float64(st.CoinWeight)
	st.Overburdened = st.Weight > st.Capacity
}

// SlotCost is the slot cost of one equipped item of the category.
func (e *Engine) SlotCost(category string) int {
	return e.rules.SlotCost(category)
}

func coinWeight(total, freeLimit, perWeight int) int {
	over := total - freeLimit
	if over <= 0 {
		return 0
	}
	return (over + perWeight - 1) / perWeight
}

// Compute derives a character's stats with the built-in rules.
func Compute(c model.Character) Stats {
	return New(nil).Compute(c)
}

// CoinWeight is ceil(max(0, total-freeLimit)/10) under the built-in rules.
func CoinWeight(total, freeLimit int) int {
	return coinWeight(total, freeLimit, rules.Default().CoinsPerWeight)
}

// SlotCost is the built-in slot cost of a category.
func SlotCost(category string) int {
	return rules.Default().SlotCost(category)
}
