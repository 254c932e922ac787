package character

import (
	"sort"

	"github.com/kasuganosora/tabletrade/model"
)

// Migration upgrades a raw character document to Version. Apply must be
// idempotent: running it on an already-upgraded document changes nothing.
type Migration struct {
	Version int
	Name    string
	Apply   func(doc map[string]any)
}

// Migrations is applied in order on load to documents older than each Version.
var Migrations = []Migration{
	{Version: 1, Name: "wallet", Apply: migrateWallet},
	{Version: 2, Name: "items", Apply: migrateItems},
	{Version: 3, Name: "containers", Apply: migrateContainers},
}

// Migrate runs every migration newer than the document's schemaVersion and
// stamps the current version.
func Migrate(doc map[string]any) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}
	from := toInt(doc["schemaVersion"])
	for _, m := range Migrations {
		if m.Version > from {
			m.Apply(doc)
		}
	}
	doc["schemaVersion"] = model.CurrentSchemaVersion
	return doc
}

// migrateWallet gives every document a currency object and folds the legacy
// top-level gold counter into it.
func migrateWallet(doc map[string]any) {
	wallet, ok := doc["currency"].(map[string]any)
	if !ok {
		wallet = map[string]any{}
		doc["currency"] = wallet
	}
	if gold, ok := doc["gold"]; ok {
		wallet["gp"] = toInt(wallet["gp"]) + toInt(gold)
		delete(doc, "gold")
	}
}

// migrateItems renames legacy item fields and drops empty stacks, in the
// character inventory and in every storage.
func migrateItems(doc map[string]any) {
	doc["inventory"] = migrateItemList(doc["inventory"])
	switch storages := doc["storages"].(type) {
	case []any:
		for _, s := range storages {
			if sm, ok := s.(map[string]any); ok {
				sm["inventory"] = migrateItemList(sm["inventory"])
			}
		}
	case map[string]any:
		for _, s := range storages {
			if sm, ok := s.(map[string]any); ok {
				sm["inventory"] = migrateItemList(sm["inventory"])
			}
		}
	}
}

func migrateItemList(v any) []any {
	list, _ := v.([]any)
	out := make([]any, 0, len(list))
	for _, raw := range list {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if qty, ok := it["qty"]; ok {
			if _, has := it["quantity"]; !has {
				it["quantity"] = qty
			}
			delete(it, "qty")
		}
		if _, has := it["quantity"]; !has {
			it["quantity"] = 1
		}
		if eq, ok := it["equipped"]; ok {
			if on, _ := eq.(bool); on {
				if slot, _ := it["slot"].(string); slot != "" {
					it["equippedSlot"] = slot
				}
			}
			delete(it, "equipped")
			delete(it, "slot")
		}
		if toInt(it["quantity"]) < 1 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// migrateContainers defaults the pack and converts keyed storage/vault maps
// into ordered lists.
func migrateContainers(doc map[string]any) {
	if p, _ := doc["packType"].(string); p == "" {
		doc["packType"] = model.DefaultPackType
	}
	doc["storages"] = containerList(doc["storages"])
	doc["vaults"] = containerList(doc["vaults"])
	for _, s := range doc["storages"].([]any) {
		sm, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if typ, _ := sm["type"].(string); typ == "" {
			sm["type"] = defaultStorageType
		}
	}
}

func containerList(v any) []any {
	switch c := v.(type) {
	case []any:
		return c
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			m, ok := c[k].(map[string]any)
			if !ok {
				continue
			}
			if id, _ := m["id"].(string); id == "" {
				m["id"] = k
			}
			out = append(out, m)
		}
		return out
	}
	return []any{}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
