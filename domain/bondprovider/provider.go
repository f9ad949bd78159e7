// Package bondprovider implements the two concrete bond-provider variants
// (native base-asset, tokenized-share) behind the closed Provider
// capability interface Core polls when matching an incoming deposit.
package bondprovider

import (
	"context"
	"math/big"

	"liquidctl/core/types"
)

// Provider is the capability set Core polls when matching an incoming
// Bond deposit. Implementations own their internal pending/redeem
// bookkeeping; Core only reads aggregates through these methods.
type Provider interface {
	// CanBond reports whether this provider accepts the given denom.
	CanBond(denom string) bool
	// TokenAmount returns the receipt-token amount owed for coin at the
	// frozen exchange rate Core used to decide the match.
	TokenAmount(coin types.Coin, exchangeRate *big.Rat) (*big.Int, error)
	// AssetAmount returns this provider's current base-asset-equivalent
	// contribution to the exchange rate numerator.
	AssetAmount() *big.Int
	// Bond records an accepted deposit.
	Bond(ctx context.Context, coin types.Coin) error
	// CanProcessOnIdle reports whether ProcessOnIdle has work to do.
	CanProcessOnIdle() bool
	// ProcessOnIdle advances this provider's pending work by one step
	// (e.g. dispatching an IBC transfer or a share redemption) when Core
	// is Idle and chooses to visit this provider.
	ProcessOnIdle(ctx context.Context) error
	// Remaining reports how much more of coin.Denom this provider will
	// still accept, or nil if it is unlimited. Bond consults this before
	// recording a deposit and fails with ErrBondLimitExceeded if amount
	// would exceed it.
	Remaining(denom string) *big.Int
}
