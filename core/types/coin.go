package types

import "math/big"

// Coin is a single denom/amount pair, the unit every Bond/Transfer/Payout
// operation moves around. Amount is always non-negative; callers that need
// a signed delta use a plain *big.Int instead.
type Coin struct {
	Denom  string
	Amount *big.Int
}

// NewCoin returns a Coin, cloning amount so callers may keep mutating their
// own reference afterwards.
func NewCoin(denom string, amount *big.Int) Coin {
	cloned := big.NewInt(0)
	if amount != nil {
		cloned.Set(amount)
	}
	return Coin{Denom: denom, Amount: cloned}
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.Sign() == 0
}

// Clone returns a deep copy.
func (c Coin) Clone() Coin {
	return NewCoin(c.Denom, c.Amount)
}
