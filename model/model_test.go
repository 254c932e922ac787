package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	s, ok := ParseSlot(" Weapon ")
	require.True(t, ok)
	assert.Equal(t, SlotWeapon, s)

	_, ok = ParseSlot("none")
	assert.False(t, ok)
	_, ok = ParseSlot("hat")
	assert.False(t, ok)

	assert.False(t, Item{}.IsEquipped())
	assert.False(t, Item{EquippedSlot: SlotNone}.IsEquipped())
	assert.True(t, Item{EquippedSlot: SlotUtility}.IsEquipped())
}

func TestRemoveQuantity(t *testing.T) {
	items := []Item{{ID: "a", Quantity: 3}, {ID: "b", Quantity: 1}}

	items = RemoveQuantity(items, 0, 2)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)

	items = RemoveQuantity(items, 0, 1)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)

	items = RemoveQuantity(items, 5, 1)
	assert.Len(t, items, 1)
}

func TestItemClone(t *testing.T) {
	it := Item{ID: "wand", Charges: &Charges{Current: 3, Max: 7}}
	cp := it.Clone()
	cp.Charges.Current = 0
	assert.Equal(t, 3, it.Charges.Current)
}

func TestCurrency(t *testing.T) {
	c := Currency{GP: 5}
	require.NoError(t, c.Add(CoinGold, -5))
	assert.Equal(t, 0, c.GP)
	assert.Error(t, c.Add(CoinGold, -1))
	assert.Equal(t, 0, c.GP)
	assert.Error(t, c.Add(Coin("zz"), 1))

	require.NoError(t, c.Add(CoinCopper, 12))
	require.NoError(t, c.Add(CoinPlatinum, 3))
	assert.Equal(t, 15, c.Total())
	assert.Equal(t, 12, c.Get(CoinCopper))

	bad := Currency{SP: -4, GP: 2}
	bad.Normalize()
	assert.Equal(t, Currency{GP: 2}, bad)

	coin, ok := ParseCoin("PP")
	require.True(t, ok)
	assert.Equal(t, CoinPlatinum, coin)
}

func TestCharacterValidate(t *testing.T) {
	c := Character{Inventory: []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}}}
	assert.NoError(t, c.Validate())

	c.Inventory = append(c.Inventory, Item{ID: "a", Quantity: 1})
	assert.ErrorIs(t, c.Validate(), ErrDuplicateItem)

	c.Inventory = []Item{{ID: "a", Quantity: 0}}
	assert.ErrorIs(t, c.Validate(), ErrEmptyStack)

	c.Inventory = []Item{{ID: "a", Quantity: 1, Charges: &Charges{Current: 4, Max: 3}}}
	assert.ErrorIs(t, c.Validate(), ErrBadChargeCount)

	c.Inventory = nil
	c.Storages = []Storage{{ID: "s1", Currency: Currency{CP: -1}}}
	assert.ErrorIs(t, c.Validate(), ErrNegativeCoins)
}

func TestCharacterClone(t *testing.T) {
	c := Character{
		Inventory: []Item{{ID: "a", Quantity: 1}},
		Storages:  []Storage{{ID: "s1", Inventory: []Item{{ID: "x", Quantity: 1}}}},
		Vaults:    []Vault{{ID: "v1", Currency: Currency{GP: 1}}},
	}
	cp := c.Clone()
	cp.Inventory[0].Quantity = 9
	cp.Storages[0].Inventory[0].Quantity = 9
	cp.Vaults[0].Currency.GP = 9
	cp.Storage("s1").Name = "changed"

	assert.Equal(t, 1, c.Inventory[0].Quantity)
	assert.Equal(t, 1, c.Storages[0].Inventory[0].Quantity)
	assert.Equal(t, 1, c.Vaults[0].Currency.GP)
	assert.Empty(t, c.Storages[0].Name)
	assert.Nil(t, c.Storage("nope"))
	assert.NotNil(t, c.Vault("v1"))
}

func TestActiveTradeHelpers(t *testing.T) {
	tr := ActiveTrade{
		Initiator: TradeParticipant{PlayerID: "p1"},
		Target:    TradeParticipant{PlayerID: "p2"},
	}
	assert.True(t, tr.Involves("p1"))
	assert.True(t, tr.Involves("p2"))
	assert.False(t, tr.Involves("p3"))
	assert.False(t, tr.Involves(""))
	assert.True(t, tr.AddressedTo("p2"))
	assert.False(t, tr.AddressedTo("p1"))
}
