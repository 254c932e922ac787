package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kasuganosora/tabletrade/game/item"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipPersistsAndRestores(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	alice := UniqueID("alice")
	aliceTok := ts.Join(t, alice, model.RolePlayer)
	gmTok := ts.Join(t, UniqueID("gm"), model.RoleGM)
	tok := model.Token{ID: "ash", Name: "Ash", Kind: model.TokenPlayer, ClaimedBy: alice}
	ts.PlaceCharacter(t, tok, model.Character{
		PackType: "Warrior",
		Inventory: []model.Item{
			{ID: "cloak", Name: "Cloak", Category: "Clothing", Weight: 1, Quantity: 1},
		},
	})

	resp := ts.Do(t, http.MethodPost, "/api/characters/ash/equip", map[string]string{"itemId": "cloak"}, aliceTok)
	Expect(t, resp, http.StatusOK)

	// The durable copy follows the scene write.
	saved, err := ts.Repo.Load(t.Context(), campaignID, "ash")
	require.NoError(t, err)
	require.Len(t, saved.Inventory, 1)
	assert.Equal(t, model.SlotClothing, saved.Inventory[0].EquippedSlot)

	// Wipe the token's sheet, then have the GM bring it back.
	tok.Metadata = map[string]json.RawMessage{}
	require.NoError(t, ts.Store.PutToken(t.Context(), tok))

	Expect(t, ts.Do(t, http.MethodPost, "/api/characters/ash/restore", nil, aliceTok), http.StatusForbidden)

	var view item.CharacterView
	ReadJSON(t, ts.Do(t, http.MethodPost, "/api/characters/ash/restore", nil, gmTok), &view)
	require.Len(t, view.Character.Inventory, 1)
	assert.Equal(t, model.SlotClothing, view.Character.Inventory[0].EquippedSlot)
}

func TestRestoreWithoutDurableCopy(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	gmTok := ts.Join(t, UniqueID("gm"), model.RoleGM)
	ts.PlaceCharacter(t, model.Token{ID: "fresh", Name: "Fresh", Kind: model.TokenNPC}, model.Character{})
	Expect(t, ts.Do(t, http.MethodPost, "/api/characters/fresh/restore", nil, gmTok), http.StatusNotFound)
}
