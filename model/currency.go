package model

import (
	"fmt"
	"strings"
)

// Coin is a currency denomination.
type Coin string

const (
	CoinCopper   Coin = "cp"
	CoinSilver   Coin = "sp"
	CoinElectrum Coin = "ep"
	CoinGold     Coin = "gp"
	CoinPlatinum Coin = "pp"
)

// Coins lists every denomination.
var Coins = []Coin{CoinCopper, CoinSilver, CoinElectrum, CoinGold, CoinPlatinum}

// ParseCoin maps user input onto a denomination.
func ParseCoin(v string) (Coin, bool) {
	c := Coin(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Coins {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Currency is a coin purse. Every field is a non-negative count.
type Currency struct {
	CP int `json:"cp"`
	SP int `json:"sp"`
	EP int `json:"ep"`
	GP int `json:"gp"`
	PP int `json:"pp"`
}

func (c *Currency) field(coin Coin) *int {
	switch coin {
	case CoinCopper:
		return &c.CP
	case CoinSilver:
		return &c.SP
	case CoinElectrum:
		return &c.EP
	case CoinGold:
		return &c.GP
	case CoinPlatinum:
		return &c.PP
	}
	return nil
}

// Get returns the count of one denomination.
func (c Currency) Get(coin Coin) int {
	if p := c.field(coin); p != nil {
		return *p
	}
	return 0
}

// Add changes one denomination by delta. It refuses to go negative.
func (c *Currency) Add(coin Coin, delta int) error {
	p := c.field(coin)
	if p == nil {
		return fmt.Errorf("unknown coin %q", coin)
	}
	if *p+delta < 0 {
		return fmt.Errorf("not enough %s: have %d, need %d", coin, *p, -delta)
	}
	*p += delta
	return nil
}

// Total is the number of coins across all denominations.
func (c Currency) Total() int {
	return c.CP + c.SP + c.EP + c.GP + c.PP
}

// Normalize clamps negative counts to zero.
func (c *Currency) Normalize() {
	for _, coin := range Coins {
		if p := c.field(coin); *p < 0 {
			*p = 0
		}
	}
}
