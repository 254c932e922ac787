package character

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/tabletrade/model"
)

// MetadataKey is the token metadata entry holding the character document.
const MetadataKey = "tabletrade/character"

const defaultStorageType = "Chest"

// Decode parses a stored character document of any schema version. Missing
// or legacy-shaped fields come back as safe defaults.
func Decode(raw []byte) (model.Character, error) {
	doc := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Empty(), fmt.Errorf("character: decode: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	upgraded, err := json.Marshal(Migrate(doc))
	if err != nil {
		return Empty(), fmt.Errorf("character: re-encode: %w", err)
	}
	var c model.Character
	if err := json.Unmarshal(upgraded, &c); err != nil {
		return Empty(), fmt.Errorf("character: decode migrated: %w", err)
	}
	normalize(&c)
	return c, nil
}

// Encode writes the character at the current schema version.
func Encode(c model.Character) ([]byte, error) {
	c.SchemaVersion = model.CurrentSchemaVersion
	return json.Marshal(c)
}

// Empty is the zero character with defaults applied.
func Empty() model.Character {
	var c model.Character
	normalize(&c)
	c.SchemaVersion = model.CurrentSchemaVersion
	return c
}

// FromToken reads the character stored on a token. It never fails; an
// unreadable document degrades to an empty character named after the token.
func FromToken(t model.Token) model.Character {
	c, err := Decode(t.Metadata[MetadataKey])
	if err != nil {
		c = Empty()
	}
	if c.Name == "" {
		c.Name = t.Name
	}
	c.ClaimedBy = t.ClaimedBy
	return c
}

// FromMetadata reads the character out of a metadata map during a patch.
func FromMetadata(meta map[string]json.RawMessage) (model.Character, error) {
	return Decode(meta[MetadataKey])
}

// PutMetadata writes the character into a metadata map.
func PutMetadata(meta map[string]json.RawMessage, c model.Character) error {
	c.ClaimedBy = ""
	raw, err := Encode(c)
	if err != nil {
		return fmt.Errorf("character: encode: %w", err)
	}
	meta[MetadataKey] = raw
	return nil
}

func normalize(c *model.Character) {
	if c.PackType == "" {
		c.PackType = model.DefaultPackType
	}
	c.Inventory = normalizeItems("inventory", c.Inventory)
	c.Currency.Normalize()
	if c.Storages == nil {
		c.Storages = []model.Storage{}
	}
	for i := range c.Storages {
		s := &c.Storages[i]
		if s.Type == "" {
			s.Type = defaultStorageType
		}
		if s.ID == "" {
			s.ID = legacyID("storage", i, s.Name)
		}
		s.Inventory = normalizeItems("storage:"+s.ID, s.Inventory)
		s.Currency.Normalize()
	}
	if c.Vaults == nil {
		c.Vaults = []model.Vault{}
	}
	for i := range c.Vaults {
		if c.Vaults[i].ID == "" {
			c.Vaults[i].ID = legacyID("vault", i, c.Vaults[i].Name)
		}
		c.Vaults[i].Currency.Normalize()
	}
}

// idSpace namespaces ids derived for legacy entries that were stored without one.
var idSpace = uuid.MustParse("5b7c1f0e-3d2a-4e8b-9a61-2f4c8d0b7e13")

// legacyID derives a stable id from an entry's list and position, so every
// read of the same unsaved document yields the same ids.
func legacyID(list string, index int, name string) string {
	return uuid.NewSHA1(idSpace, fmt.Appendf(nil, "%s/%d/%s", list, index, name)).String()
}

// normalizeItems drops empty stacks, clamps charges, and re-keys missing or
// duplicate item ids so ids stay unique.
func normalizeItems(list string, items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.ID]; dup || it.ID == "" {
			it.ID = legacyID(list, i, it.Name)
			for n := 1; ; n++ {
				if _, taken := seen[it.ID]; !taken {
					break
				}
				it.ID = legacyID(list, i, fmt.Sprintf("%s#%d", it.Name, n))
			}
		}
		seen[it.ID] = struct{}{}
		if it.EquippedSlot == model.SlotNone {
			it.EquippedSlot = ""
		}
		if it.Charges != nil {
			it.Charges.Current = max(0, min(it.Charges.Current, it.Charges.Max))
		}
		out = append(out, it)
	}
	return out
}
