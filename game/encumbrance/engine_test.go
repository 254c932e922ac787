package encumbrance

import (
	"testing"

	"github.com/kasuganosora/tabletrade/model"
	"github.com/stretchr/testify/assert"
)

func TestCoinWeight(t *testing.T) {
	assert.Equal(t, 2, CoinWeight(45, 30))
	assert.Equal(t, 1, CoinWeight(5, 0))
	assert.Equal(t, 0, CoinWeight(30, 30))
	assert.Equal(t, 0, CoinWeight(0, 30))
	assert.Equal(t, 1, CoinWeight(31, 30))
	assert.Equal(t, 1, CoinWeight(40, 30))
	assert.Equal(t, 2, CoinWeight(41, 30))
}

func TestSlotCostTable(t *testing.T) {
	assert.Equal(t, 2, SlotCost("Two-Handed Weapon"))
	assert.Equal(t, 2, SlotCost("Medium Armor"))
	assert.Equal(t, 3, SlotCost("Heavy Armor"))
	for _, c := range []string{"One-Handed Weapon", "Light Armor", "Clothing", "Jewelry", "Potion", ""} {
		assert.Equal(t, 1, SlotCost(c), c)
	}
}

func TestCompute_UnknownPackIsStandard(t *testing.T) {
	st := Compute(model.Character{PackType: "Flying Carpet"})
	std := Compute(model.Character{PackType: "Standard"})
	assert.Equal(t, "Standard", st.Pack)
	assert.Equal(t, std.MaxSlots, st.MaxSlots)
	assert.Equal(t, 50.0, st.Capacity)
}

func TestCompute_EmptyCharacter(t *testing.T) {
	st := Compute(model.Character{})
	assert.Equal(t, 0.0, st.Weight)
	assert.False(t, st.Overburdened)
	for _, s := range model.EquipSlots {
		assert.Equal(t, 0, st.UsedSlots[s])
	}
}

func TestCompute_WeightAndSlots(t *testing.T) {
	c := model.Character{
		PackType: "Warrior",
		Inventory: []model.Item{
			{ID: "gs", Category: "Two-Handed Weapon", Weight: 6, Quantity: 1, EquippedSlot: model.SlotWeapon},
			{ID: "plate", Category: "Heavy Armor", Weight: 65, Quantity: 1, EquippedSlot: model.SlotArmor},
			{ID: "rope", Category: "Adventuring Gear", Weight: 10, Quantity: 1},
			{ID: "rations", Category: "Consumable", Weight: 2, Quantity: 5},
			{ID: "bad", Category: "Misc", Weight: 3, Quantity: 0},
		},
		Currency: model.Currency{GP: 40, SP: 5},
	}
	st := Compute(c)
	assert.Equal(t, 2, st.UsedSlots[model.SlotWeapon])
	assert.Equal(t, 3, st.UsedSlots[model.SlotArmor])
	assert.Equal(t, 20.0, st.CarriedWeight)
	assert.Equal(t, 2, st.CoinWeight)
	assert.Equal(t, 22.0, st.Weight)
	assert.Equal(t, 60.0, st.Capacity)
	assert.False(t, st.Overburdened)
	assert.Equal(t, 1, st.Remaining(model.SlotWeapon))
	assert.True(t, st.Fits(model.SlotArmor, 1))
	assert.False(t, st.Fits(model.SlotArmor, 2))
}

func TestCompute_Overburdened(t *testing.T) {
	c := model.Character{
		Inventory: []model.Item{{ID: "anvil", Category: "Material", Weight: 50, Quantity: 1}},
		Currency:  model.Currency{CP: 31},
	}
	st := Compute(c)
	assert.Equal(t, 51.0, st.Weight)
	assert.True(t, st.Overburdened)

	c.Currency = model.Currency{CP: 30}
	assert.False(t, Compute(c).Overburdened, "exactly at capacity is not overburdened")
}

func TestCompute_NPCFreeLimitZero(t *testing.T) {
	c := model.Character{PackType: "NPC", Currency: model.Currency{GP: 5}}
	assert.Equal(t, 1, Compute(c).CoinWeight)
	c.PackType = "Standard"
	assert.Equal(t, 0, Compute(c).CoinWeight)
}

func TestComputeStorage(t *testing.T) {
	e := New(nil)
	st := e.ComputeStorage(model.Storage{
		Type: "Saddlebags",
		Inventory: []model.Item{
			{ID: "bow", Category: "Ranged Weapon", Weight: 2, Quantity: 1, EquippedSlot: model.SlotWeapon},
			{ID: "oats", Category: "Consumable", Weight: 1, Quantity: 10},
		},
		Currency: model.Currency{GP: 5},
	})
	assert.Equal(t, 1, st.MaxSlots[model.SlotWeapon])
	assert.Equal(t, 0, st.MaxSlots[model.SlotArmor])
	assert.Equal(t, 3, st.MaxSlots[model.SlotClothing])
	assert.Equal(t, 2, st.MaxSlots[model.SlotJewelry])
	assert.Equal(t, Unbounded, st.MaxSlots[model.SlotUtility])
	assert.Equal(t, Unbounded, st.Remaining(model.SlotUtility))
	assert.True(t, st.Fits(model.SlotUtility, 1000))
	assert.False(t, st.Fits(model.SlotWeapon, 1))
	assert.Equal(t, 1, st.CoinWeight)
	assert.Equal(t, 11.0, st.Weight)
	assert.Equal(t, 60.0, st.Capacity)

	unknown := e.ComputeStorage(model.Storage{Type: "Teleporter"})
	assert.Equal(t, 200.0, unknown.Capacity)
}

func TestCompute_Recomputed(t *testing.T) {
	e := New(nil)
	c := model.Character{Inventory: []model.Item{{ID: "a", Category: "Misc", Weight: 1, Quantity: 1}}}
	first := e.Compute(c)
	c.Inventory[0].Quantity = 4
	second := e.Compute(c)
	assert.Equal(t, 1.0, first.Weight)
	assert.Equal(t, 4.0, second.Weight)
}
