package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kasuganosora/tabletrade/model"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// UtilityClause admits an item into the utility slot when every set field matches.
// An empty category list matches any category; a nil MaxWeight matches any weight.
type UtilityClause struct {
	Categories []string `yaml:"categories"`
	MaxWeight  *float64 `yaml:"max_weight"`
}

func (uc UtilityClause) matches(it model.Item) bool {
	if len(uc.Categories) > 0 && !containsFold(uc.Categories, it.Category) {
		return false
	}
	if uc.MaxWeight != nil && it.Weight > *uc.MaxWeight {
		return false
	}
	return true
}

// Pack is a carrying-capacity and slot profile.
type Pack struct {
	Name         string             `yaml:"name"`
	Capacity     float64            `yaml:"capacity"`
	UtilitySlots int                `yaml:"utility_slots"`
	Modifiers    map[model.Slot]int `yaml:"modifiers"`
	Utility      []UtilityClause    `yaml:"utility"`
	NonPlayer    bool               `yaml:"non_player"`
}

// StorageType is a row of the external container table.
type StorageType struct {
	Name        string  `yaml:"name"`
	Capacity    float64 `yaml:"capacity"`
	WeaponSlots int     `yaml:"weapon_slots"`
	ArmorSlots  int     `yaml:"armor_slots"`
	CoinCap     int     `yaml:"coin_cap"`
}

// Categories is the fixed item taxonomy and its slot mapping.
type Categories struct {
	Weapon        []string       `yaml:"weapon"`
	Armor         []string       `yaml:"armor"`
	Clothing      []string       `yaml:"clothing"`
	Jewelry       []string       `yaml:"jewelry"`
	AlwaysUtility []string       `yaml:"always_utility"`
	Ammunition    []string       `yaml:"ammunition"`
	Other         []string       `yaml:"other"`
	SlotCosts     map[string]int `yaml:"slot_costs"`
}

// Rules holds every table the encumbrance engine and equip resolver consult.
type Rules struct {
	BaseSlots      map[model.Slot]int `yaml:"base_slots"`
	CoinFreeLimit  int                `yaml:"coin_free_limit"`
	CoinsPerWeight int                `yaml:"coins_per_weight"`
	DefaultPack    string             `yaml:"default_pack"`
	DefaultStorage string             `yaml:"default_storage"`
	Packs          []Pack             `yaml:"packs"`
	Categories     Categories         `yaml:"categories"`
	StorageTypes   []StorageType      `yaml:"storage_types"`

	packs    map[string]Pack
	storages map[string]StorageType
	slotOf   map[string]model.Slot
	costs    map[string]int
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
)

// Default returns the built-in tables.
func Default() *Rules {
	defaultOnce.Do(func() {
		r, err := Parse(defaultsYAML)
		if err != nil {
			panic(fmt.Sprintf("rules: embedded defaults: %v", err))
		}
		defaultRules = r
	})
	return defaultRules
}

// Load reads a rules file. An empty path returns the built-in tables.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and indexes a rules document.
func Parse(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if r.CoinsPerWeight <= 0 {
		return nil, fmt.Errorf("rules: coins_per_weight must be positive")
	}

	r.packs = make(map[string]Pack, len(r.Packs))
	for _, p := range r.Packs {
		r.packs[fold(p.Name)] = p
	}
	if _, ok := r.packs[fold(r.DefaultPack)]; !ok {
		return nil, fmt.Errorf("rules: default pack %q is not defined", r.DefaultPack)
	}

	r.storages = make(map[string]StorageType, len(r.StorageTypes))
	for _, s := range r.StorageTypes {
		r.storages[fold(s.Name)] = s
	}
	if _, ok := r.storages[fold(r.DefaultStorage)]; !ok {
		return nil, fmt.Errorf("rules: default storage %q is not defined", r.DefaultStorage)
	}

	r.slotOf = make(map[string]model.Slot)
	for slot, cats := range map[model.Slot][]string{
		model.SlotWeapon:   r.Categories.Weapon,
		model.SlotArmor:    r.Categories.Armor,
		model.SlotClothing: r.Categories.Clothing,
		model.SlotJewelry:  r.Categories.Jewelry,
	} {
		for _, c := range cats {
			r.slotOf[fold(c)] = slot
		}
	}
	r.costs = make(map[string]int, len(r.Categories.SlotCosts))
	for c, n := range r.Categories.SlotCosts {
		r.costs[fold(c)] = n
	}
	return &r, nil
}

// Pack resolves a pack by name, falling back to the default pack.
func (r *Rules) Pack(name string) Pack {
	if p, ok := r.packs[fold(name)]; ok {
		return p
	}
	return r.packs[fold(r.DefaultPack)]
}

// StorageType resolves a storage type by name, falling back to the default type.
func (r *Rules) StorageType(name string) StorageType {
	if s, ok := r.storages[fold(name)]; ok {
		return s
	}
	return r.storages[fold(r.DefaultStorage)]
}

// MaxSlots returns base plus pack modifier for every slot; utility comes from
// the pack. Counts never go below zero.
func (r *Rules) MaxSlots(p Pack) map[model.Slot]int {
	out := make(map[model.Slot]int, len(model.EquipSlots))
	for _, s := range []model.Slot{model.SlotWeapon, model.SlotArmor, model.SlotClothing, model.SlotJewelry} {
		out[s] = max(0, r.BaseSlots[s]+p.Modifiers[s])
	}
	out[model.SlotUtility] = max(0, p.UtilitySlots)
	return out
}

// CategorySlot returns the non-utility slot a category maps to.
func (r *Rules) CategorySlot(category string) (model.Slot, bool) {
	s, ok := r.slotOf[fold(category)]
	return s, ok
}

// AlwaysUtility reports whether a category may always go in the utility slot.
func (r *Rules) AlwaysUtility(category string) bool {
	return containsFold(r.Categories.AlwaysUtility, category)
}

// PackUtility reports whether the pack's own policy admits the item into utility.
func (r *Rules) PackUtility(p Pack, it model.Item) bool {
	for _, clause := range p.Utility {
		if clause.matches(it) {
			return true
		}
	}
	return false
}

// IsAmmunition reports whether a category equips as a whole stack.
func (r *Rules) IsAmmunition(category string) bool {
	return containsFold(r.Categories.Ammunition, category)
}

// SlotCost is the number of slots one equipped item of the category uses.
func (r *Rules) SlotCost(category string) int {
	if n, ok := r.costs[fold(category)]; ok && n > 0 {
		return n
	}
	return 1
}

// KnownCategory reports whether the category is part of the taxonomy.
func (r *Rules) KnownCategory(category string) bool {
	c := r.Categories
	for _, list := range [][]string{c.Weapon, c.Armor, c.Clothing, c.Jewelry, c.AlwaysUtility, c.Other} {
		if containsFold(list, category) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
