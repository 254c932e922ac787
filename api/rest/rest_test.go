package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/api/rest"
	"github.com/kasuganosora/tabletrade/config"
	"github.com/kasuganosora/tabletrade/game/character"
	"github.com/kasuganosora/tabletrade/game/item"
	"github.com/kasuganosora/tabletrade/game/partner"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret"

var (
	alice = model.Participant{ID: "alice", Name: "Alice", Role: model.RolePlayer}
	bob   = model.Participant{ID: "bob", Name: "Bob", Role: model.RolePlayer}
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	store  scene.Store
	tokens map[string]string
}

func characterToken(t *testing.T, tok model.Token, c model.Character) model.Token {
	t.Helper()
	tok.Metadata = map[string]json.RawMessage{}
	require.NoError(t, character.PutMetadata(tok.Metadata, c))
	return tok
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	c, _ := testutil.SetupTestCache(t)
	store := testutil.SetupTestScene(t)

	testutil.PutTokens(t, store,
		characterToken(t, model.Token{ID: "ash", Name: "Ash", Kind: model.TokenPlayer, ClaimedBy: "alice"}, model.Character{
			PackType: "Warrior",
			Inventory: []model.Item{
				{ID: "sword", Name: "Sword", Category: "One-Handed Weapon", Weight: 3, Quantity: 1},
				{ID: "plate", Name: "Plate", Category: "Heavy Armor", Weight: 20, Quantity: 2},
			},
			Currency: model.Currency{GP: 40},
			Vaults:   []model.Vault{{ID: "bank", Name: "Bank"}},
		}),
		model.Token{ID: "brim", Name: "Brim", Kind: model.TokenPlayer, ClaimedBy: "bob", Position: model.Point{X: 300}},
	)

	validator, err := rest.NewValidator()
	require.NoError(t, err)
	items := item.NewService(store, item.NewResolver(nil), nil, nil, "camp", logger)
	co := trade.NewCoordinator(store, scene.Grid{}, trade.Config{ProximityUnits: 5, CompareAndSwap: true}, nil, logger)
	disc := partner.NewDiscovery(store, scene.Grid{}, 5, logger)

	sec := config.SecurityConfig{JWTSecret: secret, JWTTTLH: time.Hour}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	api := r.Group("/api", mw.Auth(sec, c))
	rest.Mount(api, rest.NewCharacterHandler(items, validator, logger), rest.NewTradeHandler(co, disc, validator, logger))

	f := &fixture{router: r, store: store, tokens: map[string]string{}}
	for _, p := range []model.Participant{alice, bob} {
		tok, err := mw.GenerateToken(p, secret, time.Hour)
		require.NoError(t, err)
		f.tokens[p.ID] = tok
	}
	return f
}

func (f *fixture) do(method, path, as string, body any) *httptest.ResponseRecorder {
	var b []byte
	switch v := body.(type) {
	case nil:
	case string:
		b = []byte(v)
	default:
		b, _ = json.Marshal(v)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[as])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRequiresAuth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/characters/ash", "", nil).Code)
}

func TestGetCharacter(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/characters/ash", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ash", body["tokenId"])
	assert.Contains(t, body, "stats")

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/characters/ghost", "bob", nil).Code)
}

func TestEquip_ChoiceThenSuccess(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/characters/ash/equip", "alice", map[string]any{"itemId": "sword"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, []any{"weapon", "utility"}, decode(t, w)["candidates"])

	w = f.do(http.MethodPost, "/api/characters/ash/equip", "alice", map[string]any{"itemId": "sword", "slot": "utility"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "utility", decode(t, w)["slot"])
}

func TestEquip_SlotCapacityDetail(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/characters/ash/equip", "alice", map[string]any{"itemId": "plate"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Warrior armor is 4; a second heavy armor costs 3 with 1 left.
	w = f.do(http.MethodPost, "/api/characters/ash/equip", "alice", map[string]any{"itemId": "plate"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "armor", body["slot"])
	assert.Equal(t, float64(3), body["cost"])
	assert.Equal(t, float64(1), body["remaining"])
}

func TestCommands_SchemaValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		path string
		body any
	}{
		{"/api/characters/ash/equip", map[string]any{}},
		{"/api/characters/ash/equip", map[string]any{"itemId": "sword", "slot": "head"}},
		{"/api/characters/ash/equip", map[string]any{"itemId": "sword", "extra": 1}},
		{"/api/characters/ash/transfer", map[string]any{"itemId": "sword", "storageId": "x", "direction": "up"}},
		{"/api/characters/ash/coins", map[string]any{"container": "vault", "containerId": "bank", "direction": "deposit", "coin": "gp", "amount": 0}},
		{"/api/characters/ash/unequip", "{not json"},
		{"/api/trade", map[string]any{"tokenId": "ash"}},
	}
	for _, tc := range cases {
		w := f.do(http.MethodPost, tc.path, "alice", tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %v: %s", tc.path, tc.body, w.Body.String())
	}
}

func TestCoins_VaultDeposit(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/characters/ash/coins", "alice", map[string]any{
		"container": "vault", "containerId": "bank", "direction": "deposit", "coin": "gp", "amount": 15,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(25), decode(t, w)["wallet"].(map[string]any)["gp"])

	w = f.do(http.MethodPost, "/api/characters/ash/coins", "bob", map[string]any{
		"container": "vault", "containerId": "bank", "direction": "withdraw", "coin": "gp", "amount": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPartners(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/partners?tokenId=ash", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partners := decode(t, w)["partners"].([]any)
	require.Len(t, partners, 1)
	assert.Equal(t, "other-player", partners[0].(map[string]any)["classification"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/partners", "alice", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/partners?tokenId=brim", "alice", nil).Code)
}

func TestTradeLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/trade", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["trade"])

	w = f.do(http.MethodPost, "/api/trade", "alice", map[string]any{"tokenId": "ash", "targetTokenId": "brim"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode(t, w)["trade"].(map[string]any)
	id := rec["id"].(string)
	assert.Equal(t, "pending-acceptance", rec["status"])

	w = f.do(http.MethodPost, "/api/trade", "bob", map[string]any{"tokenId": "brim", "targetTokenId": "ash"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/trade/accept", "alice", map[string]any{"tradeId": id})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/trade/accept", "bob", map[string]any{"tradeId": "stale"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/trade/accept", "bob", map[string]any{"tradeId": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "active", decode(t, w)["trade"].(map[string]any)["status"])

	w = f.do(http.MethodPost, "/api/trade/cancel", "bob", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodPost, "/api/trade/decline", "bob", map[string]any{"tradeId": id})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrade_TooFar(t *testing.T) {
	f := newFixture(t)
	testutil.PutTokens(t, f.store, model.Token{ID: "far", Name: "Far", Kind: model.TokenPlayer, ClaimedBy: "bob", Position: model.Point{X: 6 * scene.DefaultDPI}})

	w := f.do(http.MethodPost, "/api/trade", "alice", map[string]any{"tokenId": "ash", "targetTokenId": "far"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["error"], "too far")
}

func TestRestore_RequiresGM(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/characters/ash/restore", "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidator_Check(t *testing.T) {
	v, err := rest.NewValidator()
	require.NoError(t, err)

	coins := `{"container":"vault","containerId":"bank","direction":"deposit","coin":"gp","amount":%s}`
	assert.NoError(t, v.Check("coins", []byte(fmt.Sprintf(coins, "15"))))
	assert.Error(t, v.Check("coins", []byte(fmt.Sprintf(coins, "1.5"))))
	assert.Error(t, v.Check("coins", []byte(fmt.Sprintf(coins, "0"))))
	assert.Error(t, v.Check("coins", []byte(`{not json`)))
	assert.Error(t, v.Check("nope", []byte(`{}`)))
	assert.NoError(t, v.Check("trade_respond", []byte(`{}`)))
}
