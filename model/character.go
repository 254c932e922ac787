package model

import (
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the character payload version written by this code.
const CurrentSchemaVersion = 3

// DefaultPackType is used when a character has no pack classification.
const DefaultPackType = "Standard"

// Storage is an external container owned by one character: a mount, cart or chest.
type Storage struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Nearby    bool     `json:"nearby"`
	Inventory []Item   `json:"inventory"`
	Currency  Currency `json:"currency"`
}

// Vault is a currency-only container reachable from anywhere.
type Vault struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Currency Currency `json:"currency"`
}

// Character is the record stored in a token's metadata.
type Character struct {
	SchemaVersion int       `json:"schemaVersion"`
	Name          string    `json:"name"`
	PackType      string    `json:"packType"`
	Inventory     []Item    `json:"inventory"`
	Currency      Currency  `json:"currency"`
	Storages      []Storage `json:"storages"`
	Vaults        []Vault   `json:"vaults"`
	ClaimedBy     string    `json:"claimedBy,omitempty"`
}

// Storage returns the storage with id, or nil.
func (c *Character) Storage(id string) *Storage {
	for i := range c.Storages {
		if c.Storages[i].ID == id {
			return &c.Storages[i]
		}
	}
	return nil
}

// Vault returns the vault with id, or nil.
func (c *Character) Vault(id string) *Vault {
	for i := range c.Vaults {
		if c.Vaults[i].ID == id {
			return &c.Vaults[i]
		}
	}
	return nil
}

// Clone returns a deep copy so a command can be applied speculatively.
func (c Character) Clone() Character {
	out := c
	out.Inventory = cloneItems(c.Inventory)
	if c.Storages != nil {
		out.Storages = make([]Storage, len(c.Storages))
		for i, s := range c.Storages {
			s.Inventory = cloneItems(s.Inventory)
			out.Storages[i] = s
		}
	}
	if c.Vaults != nil {
		out.Vaults = append([]Vault(nil), c.Vaults...)
	}
	return out
}

var (
	ErrDuplicateItem  = errors.New("duplicate item id")
	ErrEmptyStack     = errors.New("item quantity must be at least 1")
	ErrNegativeCoins  = errors.New("currency cannot be negative")
	ErrBadChargeCount = errors.New("item charges exceed maximum")
)

// Validate checks the record invariants.
func (c Character) Validate() error {
	if err := validateItems(c.Inventory); err != nil {
		return err
	}
	if err := validateCurrency(c.Currency); err != nil {
		return err
	}
	for _, s := range c.Storages {
		if err := validateItems(s.Inventory); err != nil {
			return fmt.Errorf("storage %s: %w", s.ID, err)
		}
		if err := validateCurrency(s.Currency); err != nil {
			return fmt.Errorf("storage %s: %w", s.ID, err)
		}
	}
	for _, v := range c.Vaults {
		if err := validateCurrency(v.Currency); err != nil {
			return fmt.Errorf("vault %s: %w", v.ID, err)
		}
	}
	return nil
}

func validateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: %s", ErrEmptyStack, it.ID)
		}
		if it.Charges != nil && it.Charges.Current > it.Charges.Max {
			return fmt.Errorf("%w: %s", ErrBadChargeCount, it.ID)
		}
	}
	return nil
}

func validateCurrency(c Currency) error {
	for _, coin := range Coins {
		if c.Get(coin) < 0 {
			return ErrNegativeCoins
		}
	}
	return nil
}
