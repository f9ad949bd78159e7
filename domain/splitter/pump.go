package splitter

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

// SwapAdapter converts a claimed non-base reward coin into the base denom
// before it is folded into the pump balance. This mirrors spec.md's
// out-of-scope "DEX swap adapter" collaborator (supplemented from
// original_source's astroport-exchange-handler contract, consumed here
// only as a boundary interface — its routing/slippage internals are not
// reimplemented).
type SwapAdapter interface {
	Swap(ctx context.Context, offer types.Coin, minReturn *big.Int) (*big.Int, error)
}

// PumpTransport dispatches the host-to-controller IBC transfer that
// returns pumped rewards to the withdrawal/splitter receiving address on
// the controller chain.
type PumpTransport interface {
	IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error
}

// PumpConfig configures a RewardsPump.
type PumpConfig struct {
	BaseDenom       string
	TransferChannel string
	Receiver        string
	MinPumpAmount   *big.Int
	TimeoutSecs     uint64
}

// RewardsPump accumulates claimed rewards on the host chain — converting
// non-base denoms via an injected SwapAdapter — and periodically pumps
// the accumulated base-denom balance back to the controller chain over
// IBC, following the same pending/rollback shape as
// bondprovider.NativeBondProvider's own IBC dispatch.
type RewardsPump struct {
	mu sync.Mutex

	cfg       PumpConfig
	swap      SwapAdapter
	sender    crypto.Address
	transport PumpTransport

	balance *big.Int
	pending *big.Int
}

// NewRewardsPump constructs an empty RewardsPump. swap may be nil if this
// deployment only ever claims base-denom rewards.
func NewRewardsPump(cfg PumpConfig, sender crypto.Address, swap SwapAdapter, transport PumpTransport) *RewardsPump {
	return &RewardsPump{
		cfg:       cfg,
		swap:      swap,
		sender:    sender,
		transport: transport,
		balance:   big.NewInt(0),
		pending:   big.NewInt(0),
	}
}

// CreditReward folds a claimed reward coin into the pump balance,
// converting it through the SwapAdapter first if its denom isn't the
// base denom.
func (p *RewardsPump) CreditReward(ctx context.Context, coin types.Coin) error {
	if coin.Denom == p.cfg.BaseDenom {
		p.mu.Lock()
		p.balance.Add(p.balance, coin.Amount)
		p.mu.Unlock()
		return nil
	}
	if p.swap == nil {
		return coreerrors.ErrUnsupportedDenom
	}
	converted, err := p.swap.Swap(ctx, coin, big.NewInt(0))
	if err != nil {
		return fmt.Errorf("splitter: swap reward to base denom: %w", err)
	}
	p.mu.Lock()
	p.balance.Add(p.balance, converted)
	p.mu.Unlock()
	return nil
}

// Balance returns the current settled (non-pending) pump balance.
func (p *RewardsPump) Balance() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.balance)
}

// CanProcessOnIdle reports whether the balance has reached the configured
// minimum and no pump is already in flight.
func (p *RewardsPump) CanProcessOnIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.Sign() != 0 {
		return false
	}
	return p.balance.Cmp(p.cfg.MinPumpAmount) >= 0
}

// ProcessOnIdle dispatches an IBC transfer of the full pump balance back
// to the configured receiver, moving it into pending until
// ConfirmPump/RollbackPump resolves it.
func (p *RewardsPump) ProcessOnIdle(ctx context.Context) error {
	p.mu.Lock()
	if p.pending.Sign() != 0 {
		p.mu.Unlock()
		return coreerrors.ErrNothingToProcess
	}
	if p.balance.Cmp(p.cfg.MinPumpAmount) < 0 {
		p.mu.Unlock()
		return coreerrors.ErrBelowMinIBCTransfer
	}
	amount := new(big.Int).Set(p.balance)
	p.pending = amount
	p.balance = big.NewInt(0)
	p.mu.Unlock()

	msg := ibcmsg.MsgTransfer{
		SourceChannel: p.cfg.TransferChannel,
		Token:         ibcmsg.Coin{Denom: p.cfg.BaseDenom, Amount: amount},
		Receiver:      p.cfg.Receiver,
		TimeoutSecs:   p.cfg.TimeoutSecs,
	}
	if err := p.transport.IBCTransfer(ctx, p.sender, msg); err != nil {
		p.RollbackPump()
		return fmt.Errorf("splitter: dispatch reward pump transfer: %w", err)
	}
	return nil
}

// ConfirmPump clears the pending amount once the transfer acknowledges.
func (p *RewardsPump) ConfirmPump() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = big.NewInt(0)
}

// RollbackPump returns the pending amount to the balance after an error
// or timeout.
func (p *RewardsPump) RollbackPump() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance.Add(p.balance, p.pending)
	p.pending = big.NewInt(0)
}
