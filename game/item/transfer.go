package item

import (
	"fmt"

	"github.com/kasuganosora/tabletrade/model"
)

// Direction is relative to the character: deposit moves out of the character
// into the container, withdraw moves back.
type Direction string

const (
	Deposit  Direction = "deposit"
	Withdraw Direction = "withdraw"
)

// ContainerKind names the container side of a coin move.
type ContainerKind string

const (
	ContainerStorage ContainerKind = "storage"
	ContainerVault   ContainerKind = "vault"
)

// TransferRequest moves Quantity units of a carried item between the
// character and one of its storages. Zero Quantity moves the whole stack.
type TransferRequest struct {
	ItemID    string    `json:"itemId"`
	StorageID string    `json:"storageId"`
	Quantity  int       `json:"quantity"`
	Direction Direction `json:"direction"`
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	ItemID     string `json:"itemId"`
	Moved      int    `json:"moved"`
	MergedInto string `json:"mergedInto,omitempty"`
}

// CoinRequest moves Amount coins of one denomination between the character's
// wallet and a storage or vault.
type CoinRequest struct {
	Container   ContainerKind `json:"container"`
	ContainerID string        `json:"containerId"`
	Direction   Direction     `json:"direction"`
	Coin        model.Coin    `json:"coin"`
	Amount      int           `json:"amount"`
}

// CoinResult holds both purses after a committed coin move.
type CoinResult struct {
	Wallet    model.Currency `json:"wallet"`
	Container model.Currency `json:"container"`
}

// TransferItem moves an unequipped item between the character and a nearby
// storage. Arriving units merge into a matching carried stack.
func (r *Resolver) TransferItem(c *model.Character, req TransferRequest) (TransferResult, error) {
	s := c.Storage(req.StorageID)
	if s == nil {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrStorageNotFound, req.StorageID)
	}
	if !s.Nearby {
		return TransferResult{}, ErrStorageNotNearby
	}

	var src, dst *[]model.Item
	switch req.Direction {
	case Deposit:
		src, dst = &c.Inventory, &s.Inventory
	case Withdraw:
		src, dst = &s.Inventory, &c.Inventory
	default:
		return TransferResult{}, ErrInvalidDirection
	}

	idx := model.IndexOfItem(*src, req.ItemID)
	if idx < 0 {
		return TransferResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, req.ItemID)
	}
	it := (*src)[idx]
	if it.IsEquipped() {
		return TransferResult{}, ErrItemEquipped
	}
	qty := req.Quantity
	if qty == 0 {
		qty = it.Quantity
	}
	if qty < 0 || qty > it.Quantity {
		return TransferResult{}, fmt.Errorf("%w: have %d, asked for %d", ErrInvalidQuantity, it.Quantity, req.Quantity)
	}

	if req.Direction == Deposit {
		st := r.engine.ComputeStorage(*s)
		if st.Weight+it.Weight*float64(qty) > st.Capacity {
			return TransferResult{}, ErrStorageFull
		}
	}

	moved := it.Clone()
	moved.Quantity = qty
	res := TransferResult{Moved: qty}
	if j := findStack(*dst, moved, -1); j >= 0 {
		(*dst)[j].Quantity += qty
		res.ItemID = (*dst)[j].ID
		res.MergedInto = (*dst)[j].ID
	} else {
		if qty < it.Quantity || model.IndexOfItem(*dst, moved.ID) >= 0 {
			moved.ID = r.newID()
		}
		*dst = append(*dst, moved)
		res.ItemID = moved.ID
	}
	*src = model.RemoveQuantity(*src, idx, qty)
	return res, nil
}

// MoveCoins moves coins between the wallet and a container. Storages must be
// nearby and respect their coin cap; vaults are reachable from anywhere.
func (r *Resolver) MoveCoins(c *model.Character, req CoinRequest) (CoinResult, error) {
	coin, ok := model.ParseCoin(string(req.Coin))
	if !ok {
		return CoinResult{}, fmt.Errorf("%w: %s", ErrInvalidCoin, req.Coin)
	}
	if req.Amount < 1 {
		return CoinResult{}, fmt.Errorf("%w: amount must be at least 1", ErrInvalidQuantity)
	}
	if req.Direction != Deposit && req.Direction != Withdraw {
		return CoinResult{}, ErrInvalidDirection
	}

	var purse *model.Currency
	coinCap := -1
	switch req.Container {
	case ContainerStorage:
		s := c.Storage(req.ContainerID)
		if s == nil {
			return CoinResult{}, fmt.Errorf("%w: %s", ErrStorageNotFound, req.ContainerID)
		}
		if !s.Nearby {
			return CoinResult{}, ErrStorageNotNearby
		}
		purse = &s.Currency
		coinCap = r.engine.Rules().StorageType(s.Type).CoinCap
	case ContainerVault:
		v := c.Vault(req.ContainerID)
		if v == nil {
			return CoinResult{}, fmt.Errorf("%w: %s", ErrVaultNotFound, req.ContainerID)
		}
		purse = &v.Currency
	default:
		return CoinResult{}, ErrInvalidContainer
	}

	from, to := &c.Currency, purse
	if req.Direction == Withdraw {
		from, to = purse, &c.Currency
	}
	if have := from.Get(coin); have < req.Amount {
		return CoinResult{}, fmt.Errorf("%w: have %d %s, need %d", ErrInsufficientCoins, have, coin, req.Amount)
	}
	if req.Direction == Deposit && coinCap >= 0 && purse.Total()+req.Amount > coinCap {
		return CoinResult{}, fmt.Errorf("%w: holds %d of %d", ErrCoinCapExceeded, purse.Total(), coinCap)
	}

	if err := from.Add(coin, -req.Amount); err != nil {
		return CoinResult{}, err
	}
	if err := to.Add(coin, req.Amount); err != nil {
		return CoinResult{}, err
	}
	return CoinResult{Wallet: c.Currency, Container: *purse}, nil
}
