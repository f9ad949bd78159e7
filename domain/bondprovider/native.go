package bondprovider

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/ibcmsg"
)

// Transport is the subset of the puppeteer this provider needs: dispatching
// the controller-to-ICA IBC transfer of newly bonded base asset.
type Transport interface {
	IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error
}

// NativeConfig configures a NativeBondProvider.
type NativeConfig struct {
	BaseDenom           string
	MinIBCTransfer      *big.Int
	TransferChannel     string
	ICAAddress          string
	TransferTimeoutSecs uint64
	// BondLimit caps the total base-asset-equivalent this provider will
	// ever hold across non-staked and pending; nil means unlimited.
	BondLimit *big.Int
}

// NativeBondProvider holds locally-deposited base asset awaiting transfer
// to the ICA. AssetAmount is the sum of what has not yet been sent
// (non-staked) and what has been sent but not yet acknowledged (pending):
// once an IBC transfer acknowledges, the funds are realized on the ICA
// balance and are no longer this provider's to count — pendingCoins
// collapses to zero on success and returns to nonStaked on failure, so
// the amount is never double-counted against the puppeteer's own
// ICA-balance tracking.
type NativeBondProvider struct {
	mu sync.Mutex

	cfg          NativeConfig
	nonStaked    *big.Int
	pendingCoins *big.Int

	sender    crypto.Address
	transport Transport
}

// NewNativeBondProvider constructs an empty NativeBondProvider.
func NewNativeBondProvider(cfg NativeConfig, sender crypto.Address, transport Transport) *NativeBondProvider {
	return &NativeBondProvider{
		cfg:          cfg,
		nonStaked:    big.NewInt(0),
		pendingCoins: big.NewInt(0),
		sender:       sender,
		transport:    transport,
	}
}

// CanBond accepts only the configured base denom.
func (n *NativeBondProvider) CanBond(denom string) bool {
	return denom == n.cfg.BaseDenom
}

// TokenAmount returns floor(coin.Amount / exchangeRate), the receipt-token
// amount this deposit mints at the frozen rate.
func (n *NativeBondProvider) TokenAmount(coin types.Coin, exchangeRate *big.Rat) (*big.Int, error) {
	if coin.Denom != n.cfg.BaseDenom {
		return nil, coreerrors.ErrInvalidDenom
	}
	if exchangeRate == nil || exchangeRate.Sign() <= 0 {
		return nil, fmt.Errorf("bondprovider: invalid exchange rate")
	}
	amountRat := new(big.Rat).SetInt(coin.Amount)
	tokens := new(big.Rat).Quo(amountRat, exchangeRate)
	quotient := new(big.Int).Quo(tokens.Num(), tokens.Denom())
	return quotient, nil
}

// Remaining reports how much more of the base denom this provider will
// accept before BondLimit, or nil if unlimited or denom doesn't match.
func (n *NativeBondProvider) Remaining(denom string) *big.Int {
	if denom != n.cfg.BaseDenom || n.cfg.BondLimit == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	held := new(big.Int).Add(n.nonStaked, n.pendingCoins)
	remaining := new(big.Int).Sub(n.cfg.BondLimit, held)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return remaining
}

// AssetAmount returns non-staked plus in-flight-pending base asset.
func (n *NativeBondProvider) AssetAmount() *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Add(n.nonStaked, n.pendingCoins)
}

// Bond records a deposit of the base denom into the running non-staked
// balance.
func (n *NativeBondProvider) Bond(ctx context.Context, coin types.Coin) error {
	if coin.Denom != n.cfg.BaseDenom {
		return coreerrors.ErrInvalidDenom
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonStaked.Add(n.nonStaked, coin.Amount)
	return nil
}

// CanProcessOnIdle reports whether the non-staked balance has reached the
// configured minimum and no transfer is already pending.
func (n *NativeBondProvider) CanProcessOnIdle() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pendingCoins.Sign() != 0 {
		return false
	}
	return n.nonStaked.Cmp(n.cfg.MinIBCTransfer) >= 0
}

// ProcessOnIdle dispatches an IBC transfer of the full non-staked balance
// to the ICA address, moving it into pendingCoins until the transfer
// resolves via ConfirmTransfer or RollbackTransfer.
func (n *NativeBondProvider) ProcessOnIdle(ctx context.Context) error {
	n.mu.Lock()
	if n.pendingCoins.Sign() != 0 {
		n.mu.Unlock()
		return coreerrors.ErrNothingToProcess
	}
	if n.nonStaked.Cmp(n.cfg.MinIBCTransfer) < 0 {
		n.mu.Unlock()
		return coreerrors.ErrBelowMinIBCTransfer
	}
	amount := new(big.Int).Set(n.nonStaked)
	n.pendingCoins = amount
	n.nonStaked = big.NewInt(0)
	n.mu.Unlock()

	msg := ibcmsg.MsgTransfer{
		SourceChannel: n.cfg.TransferChannel,
		Token:         ibcmsg.Coin{Denom: n.cfg.BaseDenom, Amount: amount},
		Receiver:      n.cfg.ICAAddress,
		TimeoutSecs:   n.cfg.TransferTimeoutSecs,
	}
	if err := n.transport.IBCTransfer(ctx, n.sender, msg); err != nil {
		n.RollbackTransfer()
		return fmt.Errorf("bondprovider: dispatch ibc transfer: %w", err)
	}
	return nil
}

// ConfirmTransfer clears the pending amount once Puppeteer reports the
// IBC transfer acknowledged: the funds now live on the ICA balance.
func (n *NativeBondProvider) ConfirmTransfer() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pendingCoins = big.NewInt(0)
}

// RollbackTransfer returns the pending amount to non-staked after an
// error or timeout, so a future tick retries.
func (n *NativeBondProvider) RollbackTransfer() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonStaked.Add(n.nonStaked, n.pendingCoins)
	n.pendingCoins = big.NewInt(0)
}

// NonStakedBalance returns the current un-transferred balance.
func (n *NativeBondProvider) NonStakedBalance() *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.nonStaked)
}

// PendingCoins returns the amount currently awaiting transfer
// acknowledgement.
func (n *NativeBondProvider) PendingCoins() *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.pendingCoins)
}

var _ Provider = (*NativeBondProvider)(nil)
