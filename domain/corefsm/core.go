// Package corefsm implements Core, the tick-driven orchestrator tying
// every other domain package together: matching deposits to bond
// providers, burning receipt tokens into withdrawal vouchers, and walking
// the five-state remote-transaction state machine (spec.md §4.1) that
// drives reward claims, bonding transfers, (un)delegation, and payout.
package corefsm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/events"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/domain/bondprovider"
	"liquidctl/domain/ownership"
	"liquidctl/domain/pause"
	"liquidctl/domain/puppeteer"
	"liquidctl/domain/strategy"
	"liquidctl/domain/validatorset"
	"liquidctl/domain/withdrawal"
	"liquidctl/ibcmsg"
	"liquidctl/observability"
)

// ReceiptTokenMinter is the external receipt-token (liquid-staking
// derivative) collaborator: Core holds mint authority on Bond and burn
// authority on Unbond.
type ReceiptTokenMinter interface {
	Mint(ctx context.Context, receiver crypto.Address, amount *big.Int) error
	Burn(ctx context.Context, owner crypto.Address, amount *big.Int) error
	TotalSupply() *big.Int
}

// UnbondObserver resolves the actual base-asset amount a host chain
// released for a matured unbond batch. This is genuinely host-state
// observation (an ICA balance delta attributable to one batch among
// possibly several in flight) rather than bookkeeping Core can derive from
// its own snapshots, so it is delegated to a collaborator the same way
// TokenizedShareBondProvider delegates denom-trace resolution.
type UnbondObserver interface {
	ObserveUnbondedAmount(ctx context.Context, batchID *big.Int, expected *big.Int) (*big.Int, error)
}

// pendingStaking/pendingUnbonding carry the Strategy allocation proposed
// for the in-flight Delegate/Undelegate so Core can write it back into its
// running ledger only once the remote chain acknowledges it (spec.md §6:
// Strategy never mutates state itself).
type pendingAllocation struct {
	batchID     *big.Int // nil for Staking, set for Unbonding
	allocations []strategy.Allocation
}

// Core is the mutex-guarded tick state machine. Only one of Bond/Unbond/
// Tick/admin calls may touch its fields at a time.
type Core struct {
	mu sync.Mutex

	cfg    Config
	owned  *ownership.Owned
	pause  *pause.Gate
	logger *slog.Logger

	sender         crypto.Address
	validators     *validatorset.Set
	puppeteer      *puppeteer.Puppeteer
	nativeProvider *bondprovider.NativeBondProvider
	providers      []bondprovider.Provider
	withdrawalMgr  *withdrawal.Manager
	receiptToken   ReceiptTokenMinter
	unbondObserver UnbondObserver
	emitter        events.Emitter

	state FsmState

	ledger             strategy.Ledger
	lastTickAt         int64
	lastRewardsClaimAt int64
	lastStakedBalance  *big.Int

	pending         *pendingAllocation
	claimStartedAt  int64
	withdrawAmounts map[string]*big.Int // batchID.String() -> observed amount, stashed between dispatch and ack

	// inflightWithdrawBatchID is the one batch whose payout transfer is
	// currently awaiting Puppeteer's ack. Puppeteer allows only one
	// in-flight transaction at a time, so this is always unambiguous —
	// but other batches may sit in StatusWithdrawing awaiting a retry
	// after a prior dispatch failure, so onIBCTransferResolved must not
	// resolve "whichever batch happens to be Withdrawing".
	inflightWithdrawBatchID *big.Int
}

// New constructs a Core wired to its collaborators and registers its
// reply handlers with puppeteer for every TransactionKind it originates
// (ClaimRewards, IBCTransfer, Delegate, Undelegate). Bond providers
// register their own handlers for TokenizeShares/RedeemShares separately,
// since those are dispatched from idle-time provider polling rather than
// a named FsmState.
func New(
	cfg Config,
	owned *ownership.Owned,
	gate *pause.Gate,
	sender crypto.Address,
	validators *validatorset.Set,
	pup *puppeteer.Puppeteer,
	nativeProvider *bondprovider.NativeBondProvider,
	otherProviders []bondprovider.Provider,
	withdrawalMgr *withdrawal.Manager,
	receiptToken ReceiptTokenMinter,
	unbondObserver UnbondObserver,
	emitter events.Emitter,
	logger *slog.Logger,
) *Core {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	providers := make([]bondprovider.Provider, 0, len(otherProviders)+1)
	providers = append(providers, nativeProvider)
	providers = append(providers, otherProviders...)

	c := &Core{
		cfg:             cfg,
		owned:           owned,
		pause:           gate,
		logger:          logger,
		sender:          sender,
		validators:      validators,
		puppeteer:       pup,
		nativeProvider:  nativeProvider,
		providers:       providers,
		withdrawalMgr:   withdrawalMgr,
		receiptToken:    receiptToken,
		unbondObserver:  unbondObserver,
		emitter:         emitter,
		state:           StateIdle,
		ledger:          strategy.Ledger{Delegated: map[string]*big.Int{}, OnTopAllocated: map[string]*big.Int{}},
		lastStakedBalance: big.NewInt(0),
		withdrawAmounts: map[string]*big.Int{},
	}

	pup.RegisterReplyHandler(puppeteer.KindClaimRewards, c.onClaimRewardsResolved)
	pup.RegisterReplyHandler(puppeteer.KindIBCTransfer, c.onIBCTransferResolved)
	pup.RegisterReplyHandler(puppeteer.KindDelegate, c.onDelegateResolved)
	pup.RegisterReplyHandler(puppeteer.KindUndelegate, c.onUndelegateResolved)
	return c
}

// State returns the current FsmState.
func (c *Core) State() FsmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateConfig replaces the runtime configuration. Caller must be owner.
func (c *Core) UpdateConfig(caller crypto.Address, cfg Config) error {
	if err := c.owned.RequireOwner(caller); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

// SetPause toggles the three independent circuit breakers. Caller must be
// owner.
func (c *Core) SetPause(caller crypto.Address, flags pause.Flags) error {
	if err := c.owned.RequireOwner(caller); err != nil {
		return err
	}
	c.pause.Set(flags)
	return nil
}

// exchangeRate computes receipt-token/base-asset exchange rate per
// spec.md §4.1: (bonded + non_staked + sum(provider_assets) -
// unprocessed_unbond_expected) / receipt_token_supply, frozen at 1.0 while
// supply is zero.
func (c *Core) exchangeRate() *big.Rat {
	supply := c.receiptToken.TotalSupply()
	if supply == nil || supply.Sign() == 0 {
		return big.NewRat(1, 1)
	}

	numerator := big.NewInt(0)
	if snap, ok, err := c.puppeteer.LatestCompleteSnapshot(); err == nil && ok {
		numerator.Add(numerator, snap.BondedTotal())
	}
	for _, p := range c.providers {
		numerator.Add(numerator, p.AssetAmount())
	}
	numerator.Sub(numerator, c.withdrawalMgr.UnprocessedUnbondExpected())

	return new(big.Rat).SetFrac(numerator, supply)
}

// ExchangeRate returns the current exchange rate, recording it to
// observability at the same time (read-only callers, e.g. the gateway's
// query surface, use this directly rather than reaching into Tick).
func (c *Core) ExchangeRate() *big.Rat {
	c.mu.Lock()
	defer c.mu.Unlock()
	rate := c.exchangeRate()
	observability.Core().SetExchangeRate(rate)
	return rate
}

// Bond matches coin to the first provider that accepts its denom, prices
// it at the frozen exchange rate, records the deposit with that provider,
// and mints the owed receipt tokens to receiver.
func (c *Core) Bond(ctx context.Context, caller, receiver crypto.Address, coin types.Coin) error {
	if err := c.pause.RequireBond(); err != nil {
		return err
	}
	if coin.Amount == nil || coin.Amount.Sign() <= 0 {
		return coreerrors.ErrPaymentNoFunds
	}

	c.mu.Lock()
	var matched bondprovider.Provider
	for _, p := range c.providers {
		if p.CanBond(coin.Denom) {
			matched = p
			break
		}
	}
	if matched == nil {
		c.mu.Unlock()
		return coreerrors.ErrInvalidDenom
	}
	rate := c.exchangeRate()
	c.mu.Unlock()

	if remaining := matched.Remaining(coin.Denom); remaining != nil && coin.Amount.Cmp(remaining) > 0 {
		return coreerrors.ErrBondLimitExceeded
	}

	// Bond must run before TokenAmount: TokenizedShareBondProvider prices
	// off data Bond itself resolves and records (spec.md §4.3.2), and
	// NativeBondProvider.Bond is unaffected by the ordering either way.
	if err := matched.Bond(ctx, coin); err != nil {
		return fmt.Errorf("corefsm: bond deposit: %w", err)
	}
	tokens, err := matched.TokenAmount(coin, rate)
	if err != nil {
		return fmt.Errorf("corefsm: price deposit: %w", err)
	}
	if err := c.receiptToken.Mint(ctx, receiver, tokens); err != nil {
		return fmt.Errorf("corefsm: mint receipt tokens: %w", err)
	}

	observability.Core().RecordBond(providerName(matched), coin.Amount)
	c.emitter.Emit(BondEvent{
		Bonder:        caller.String(),
		Denom:         coin.Denom,
		Amount:        coin.Amount.String(),
		ReceiptTokens: tokens.String(),
	})
	return nil
}

func providerName(p bondprovider.Provider) string {
	if _, ok := p.(*bondprovider.NativeBondProvider); ok {
		return "native"
	}
	return "tokenized_share"
}

// Unbond burns amount receipt tokens from caller and mints a withdrawal
// voucher against the currently open batch.
func (c *Core) Unbond(ctx context.Context, caller crypto.Address, amount *big.Int, now int64) (*withdrawal.Voucher, error) {
	if err := c.pause.RequireUnbond(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, coreerrors.ErrPaymentNoFunds
	}

	if err := c.receiptToken.Burn(ctx, caller, amount); err != nil {
		return nil, fmt.Errorf("corefsm: burn receipt tokens: %w", err)
	}
	voucher, err := c.withdrawalMgr.RecordUnbond(ctx, caller, amount, now)
	if err != nil {
		return nil, fmt.Errorf("corefsm: record unbond: %w", err)
	}

	observability.Core().RecordUnbond("new", amount)
	c.emitter.Emit(UnbondEvent{
		Owner:     caller.String(),
		Amount:    amount.String(),
		VoucherID: voucher.ID,
		BatchID:   voucher.BatchID.String(),
	})
	return voucher, nil
}

// Withdraw pays out a settled voucher. Thin pass-through to the
// withdrawal manager; Core adds no FSM semantics of its own here.
func (c *Core) Withdraw(ctx context.Context, caller crypto.Address, voucherID string, receiver crypto.Address) error {
	return c.withdrawalMgr.Withdraw(ctx, caller, voucherID, receiver)
}

// Tick drives the FSM forward by at most one transition. Idempotent by
// state: if Core is not Idle, the previous transition is still awaiting
// its Puppeteer callback and Tick is a no-op success — the callback
// itself, not a repeated Tick, is what resolves it.
func (c *Core) Tick(ctx context.Context, now int64) error {
	if err := c.pause.RequireTick(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.lastTickAt != 0 && now-c.lastTickAt < int64(c.cfg.IdleMinInterval.Seconds()) {
		c.mu.Unlock()
		return coreerrors.ErrTickTooSoon
	}
	c.lastTickAt = now
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	for _, try := range []func(context.Context, int64) (bool, error){
		c.tryClaiming,
		c.tryTransferring,
		c.tryStaking,
		c.tryUnbonding,
		c.tryWithdrawing,
	} {
		fired, err := try(ctx, now)
		if fired {
			return err
		}
	}

	// No primary transition fired: let bond providers and the reward
	// pump use the idle window for their own dispatches. These share
	// Puppeteer's single-inflight gate but don't move Core's own FsmState
	// (spec.md doesn't name them as one of the five states).
	for _, p := range c.providers {
		if p.CanProcessOnIdle() {
			return p.ProcessOnIdle(ctx)
		}
	}
	return nil
}

func (c *Core) transition(to FsmState) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	observability.Core().RecordTick(fmt.Sprintf("%s_to_%s", from, to))
	c.emitter.Emit(TickTransitionEvent{From: from, To: to})
}

// tryClaiming implements spec.md §4.1 rule 1: Idle -> Claiming once the
// rewards-claim epoch has elapsed and the host chain has accrued at least
// min_non_native_rewards since the last claim. The piggy-backed transfer
// of a matured batch's payout is left to rule 5's own dedicated
// Withdrawing transition rather than duplicated here.
func (c *Core) tryClaiming(ctx context.Context, now int64) (bool, error) {
	c.mu.Lock()
	elapsed := c.lastRewardsClaimAt == 0 || now-c.lastRewardsClaimAt >= int64(c.cfg.RewardsClaimEpoch.Seconds())
	c.mu.Unlock()
	if !elapsed {
		return false, nil
	}
	snap, ok, err := c.puppeteer.LatestCompleteSnapshot()
	if err != nil || !ok {
		return false, nil
	}
	minRewards := c.cfg.MinNonNativeRewards
	if minRewards == nil {
		minRewards = big.NewInt(0)
	}
	if snap.HostBalance == nil || snap.HostBalance.Cmp(minRewards) < 0 {
		return false, nil
	}

	operators := make([]string, 0)
	for _, v := range c.validators.List() {
		operators = append(operators, v.Operator)
	}
	if len(operators) == 0 {
		return false, nil
	}

	if err := c.puppeteer.ClaimRewardsAndOptionalyTransfer(ctx, c.sender, c.cfg.ICADelegator, operators, nil); err != nil {
		return true, fmt.Errorf("corefsm: dispatch claim rewards: %w", err)
	}
	c.mu.Lock()
	c.claimStartedAt = now
	c.mu.Unlock()
	c.transition(StateClaiming)
	return true, nil
}

func (c *Core) onClaimRewardsResolved(outcome puppeteer.Outcome) {
	c.mu.Lock()
	if outcome.Success {
		c.lastRewardsClaimAt = c.claimStartedAt
	}
	c.mu.Unlock()
	c.transition(StateIdle)
}

// tryTransferring implements spec.md §4.1 rule 2: Idle -> Transferring
// when the native bond provider's non-staked balance has reached
// min_ibc_transfer. Core only asks the provider to dispatch; the provider
// owns its own pending/confirm/rollback bookkeeping.
func (c *Core) tryTransferring(ctx context.Context, now int64) (bool, error) {
	if !c.nativeProvider.CanProcessOnIdle() {
		return false, nil
	}
	if err := c.nativeProvider.ProcessOnIdle(ctx); err != nil {
		return true, fmt.Errorf("corefsm: dispatch native transfer: %w", err)
	}
	c.transition(StateTransferring)
	return true, nil
}

// tryStaking implements spec.md §4.1 rule 3: Idle -> Staking once a fresh
// (within icq_update_delay_blocks) snapshot reports the ICA balance grew
// since the last Staking round, allocating the delta across validators
// via Strategy.
func (c *Core) tryStaking(ctx context.Context, now int64) (bool, error) {
	snap, ok, err := c.puppeteer.LatestCompleteSnapshot()
	if err != nil || !ok {
		return false, nil
	}
	c.mu.Lock()
	delta := new(big.Int).Sub(snap.HostBalance, c.lastStakedBalance)
	ledger := c.cloneLedger()
	c.mu.Unlock()
	if delta.Sign() <= 0 {
		return false, nil
	}

	validators := c.validators.List()
	allocations, err := strategy.Allocate(validators, ledger, delta)
	if err != nil || len(allocations) == 0 {
		return false, nil
	}

	items := make([]ibcmsg.MsgDelegate, 0, len(allocations))
	for _, a := range allocations {
		if a.Delta.Sign() <= 0 {
			continue
		}
		items = append(items, ibcmsg.MsgDelegate{ValidatorAddress: a.Operator, Amount: ibcmsg.Coin{Denom: c.cfg.BaseDenom, Amount: a.Delta}})
	}
	if len(items) == 0 {
		return false, nil
	}

	if err := c.puppeteer.Delegate(ctx, c.sender, c.cfg.ICADelegator, items); err != nil {
		return true, fmt.Errorf("corefsm: dispatch delegate: %w", err)
	}
	c.mu.Lock()
	c.pending = &pendingAllocation{allocations: allocations}
	c.lastStakedBalance = new(big.Int).Set(snap.HostBalance)
	c.mu.Unlock()
	c.transition(StateStaking)
	return true, nil
}

func (c *Core) onDelegateResolved(outcome puppeteer.Outcome) {
	c.mu.Lock()
	if outcome.Success && c.pending != nil {
		c.applyAllocationsLocked(c.pending.allocations)
	}
	c.pending = nil
	c.mu.Unlock()
	c.transition(StateIdle)
}

// tryUnbonding implements spec.md §4.1 rule 4: Idle -> Unbonding once the
// open batch has aged past unbond_batch_switch_time, closing it at the
// frozen exchange rate and draining Strategy's negative-delta allocation
// from the validator set.
func (c *Core) tryUnbonding(ctx context.Context, now int64) (bool, error) {
	batch, ok := c.withdrawalMgr.OpenBatch()
	if !ok || batch.TotalDAssetAmountToWithdraw.Sign() <= 0 {
		return false, nil
	}
	opened := batch.StatusTimestamps[withdrawal.StatusNew]
	if now-opened < int64(c.cfg.UnbondBatchSwitchTime.Seconds()) {
		return false, nil
	}

	c.mu.Lock()
	rate := c.exchangeRate()
	ledger := c.cloneLedger()
	c.mu.Unlock()

	closed, err := c.withdrawalMgr.CloseOpenBatchForUnbonding(rate, now)
	if err != nil {
		return true, fmt.Errorf("corefsm: close batch for unbonding: %w", err)
	}

	validators := c.validators.List()
	target := new(big.Int).Neg(closed.ExpectedNativeAssetAmount)
	allocations, err := strategy.Allocate(validators, ledger, target)
	if err != nil || len(allocations) == 0 {
		if failErr := c.withdrawalMgr.MarkUnbondFailed(closed.ID, now); failErr != nil {
			c.logger.Error("corefsm: mark unbond failed after empty allocation", "error", failErr)
		}
		return true, coreerrors.ErrNothingToProcess
	}

	items := make([]ibcmsg.MsgUndelegate, 0, len(allocations))
	for _, a := range allocations {
		if a.Delta.Sign() >= 0 {
			continue
		}
		items = append(items, ibcmsg.MsgUndelegate{ValidatorAddress: a.Operator, Amount: ibcmsg.Coin{Denom: c.cfg.BaseDenom, Amount: new(big.Int).Abs(a.Delta)}})
	}

	if err := c.puppeteer.Undelegate(ctx, c.sender, c.cfg.ICADelegator, items, closed.ID.String()); err != nil {
		if failErr := c.withdrawalMgr.MarkUnbondFailed(closed.ID, now); failErr != nil {
			c.logger.Error("corefsm: mark unbond failed after dispatch error", "error", failErr)
		}
		return true, fmt.Errorf("corefsm: dispatch undelegate: %w", err)
	}
	c.mu.Lock()
	c.pending = &pendingAllocation{batchID: closed.ID, allocations: allocations}
	c.mu.Unlock()
	c.transition(StateUnbonding)
	return true, nil
}

func (c *Core) onUndelegateResolved(outcome puppeteer.Outcome) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil || pending.batchID == nil {
		c.transition(StateIdle)
		return
	}
	now := time.Now().Unix()
	if outcome.Success {
		c.mu.Lock()
		c.applyAllocationsLocked(pending.allocations)
		c.mu.Unlock()
		releaseTime := now + int64(c.cfg.UnbondingPeriod.Seconds())
		if err := c.withdrawalMgr.MarkUnbonding(pending.batchID, releaseTime, now); err != nil {
			c.logger.Error("corefsm: mark unbonding", "error", err)
		}
	} else {
		if err := c.withdrawalMgr.MarkUnbondFailed(pending.batchID, now); err != nil {
			c.logger.Error("corefsm: mark unbond failed", "error", err)
		}
	}
	c.transition(StateIdle)
}

// tryWithdrawing implements spec.md §4.1 rule 5: Unbonding -> Withdrawing
// once a batch's unbonding period plus safety margin has elapsed, asking
// Puppeteer to observe the settled amount and transfer it back to the
// withdrawal manager over IBC. Batches already in Withdrawing are retried
// here too, covering a prior IBC-transfer dispatch failure.
func (c *Core) tryWithdrawing(ctx context.Context, now int64) (bool, error) {
	var batch *withdrawal.UnbondBatch
	for _, b := range c.withdrawalMgr.BatchesByStatus(withdrawal.StatusWithdrawing) {
		batch = b
		break
	}
	if batch == nil {
		for _, b := range c.withdrawalMgr.BatchesByStatus(withdrawal.StatusUnbonding) {
			safe := b.ExpectedReleaseTime + int64(c.cfg.UnbondingSafePeriod.Seconds())
			if now >= safe {
				batch = b
				break
			}
		}
		if batch == nil {
			return false, nil
		}
		if err := c.withdrawalMgr.MarkWithdrawing(batch.ID, now); err != nil {
			return true, fmt.Errorf("corefsm: mark withdrawing: %w", err)
		}
	}

	observed, err := c.unbondObserver.ObserveUnbondedAmount(ctx, batch.ID, batch.ExpectedNativeAssetAmount)
	if err != nil {
		return true, fmt.Errorf("corefsm: observe unbonded amount: %w", err)
	}

	msg := ibcmsg.MsgTransfer{
		SourceChannel: c.cfg.TransferChannel,
		Token:         ibcmsg.Coin{Denom: c.cfg.BaseDenom, Amount: observed},
		Receiver:      c.cfg.WithdrawalAddr,
		TimeoutSecs:   uint64(c.cfg.TransferTimeout.Seconds()),
	}
	if err := c.puppeteer.IBCTransfer(ctx, c.sender, msg); err != nil {
		return true, fmt.Errorf("corefsm: dispatch withdrawal transfer: %w", err)
	}

	c.mu.Lock()
	c.withdrawAmounts[batch.ID.String()] = observed
	c.inflightWithdrawBatchID = batch.ID
	c.mu.Unlock()
	c.transition(StateWithdrawing)
	return true, nil
}

// onIBCTransferResolved disambiguates between the Transferring and
// Withdrawing flows by Core's own FsmState, since both dispatch through
// the same puppeteer.KindIBCTransfer and Puppeteer's reply router holds
// one handler per kind (spec.md doesn't separate them on the wire either
// — the distinction is purely which side initiated it).
func (c *Core) onIBCTransferResolved(outcome puppeteer.Outcome) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateTransferring:
		if outcome.Success {
			c.nativeProvider.ConfirmTransfer()
		} else {
			c.nativeProvider.RollbackTransfer()
		}
		c.transition(StateIdle)
	case StateWithdrawing:
		c.resolveWithdrawing(outcome)
	default:
		c.logger.Warn("corefsm: ibc transfer resolved outside Transferring/Withdrawing", "state", state.String())
	}
}

func (c *Core) resolveWithdrawing(outcome puppeteer.Outcome) {
	c.mu.Lock()
	batchID := c.inflightWithdrawBatchID
	c.inflightWithdrawBatchID = nil
	var observed *big.Int
	if batchID != nil {
		observed = c.withdrawAmounts[batchID.String()]
		delete(c.withdrawAmounts, batchID.String())
	}
	c.mu.Unlock()

	if batchID == nil {
		c.transition(StateIdle)
		return
	}

	if outcome.Success && observed != nil {
		closed, err := c.withdrawalMgr.ObserveUnbondedAmount(batchID, observed, time.Now().Unix())
		if err != nil {
			c.logger.Error("corefsm: observe unbonded amount", "error", err)
		} else {
			observability.Core().RecordSlashing(closed.ID.String(), closed.SlashingEffect)
		}
	}
	// A failed or timed-out transfer leaves the batch in Withdrawing so
	// the next tick's tryWithdrawing retries the transfer dispatch.
	c.transition(StateIdle)
}

// cloneLedger derives Strategy's Ledger from Core's running delegated
// totals. OnTopAllocated is computed rather than tracked separately: the
// on-top tranche is always filled first and can never exceed a
// validator's configured OnTop, so OnTopAllocated[op] = min(Delegated[op],
// OnTop[op]) is an exact derivation, not an approximation. Must be called
// with c.mu held.
func (c *Core) cloneLedger() strategy.Ledger {
	delegated := make(map[string]*big.Int, len(c.ledger.Delegated))
	onTop := make(map[string]*big.Int, len(c.ledger.Delegated))
	for operator, amount := range c.ledger.Delegated {
		delegated[operator] = new(big.Int).Set(amount)
	}
	for _, v := range c.validators.List() {
		amount := delegated[v.Operator]
		if amount == nil {
			amount = big.NewInt(0)
		}
		if v.OnTop != nil && v.OnTop.Sign() > 0 {
			onTop[v.Operator] = minBigInt(amount, v.OnTop)
		}
	}
	return strategy.Ledger{Delegated: delegated, OnTopAllocated: onTop}
}

// applyAllocationsLocked folds a successfully acknowledged Strategy
// allocation into the running delegated-totals ledger. Must be called
// with c.mu held.
func (c *Core) applyAllocationsLocked(allocations []strategy.Allocation) {
	for _, a := range allocations {
		current, ok := c.ledger.Delegated[a.Operator]
		if !ok || current == nil {
			current = big.NewInt(0)
		}
		c.ledger.Delegated[a.Operator] = new(big.Int).Add(current, a.Delta)
	}
}

func minBigInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
