package withdrawal

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	coreerrors "liquidctl/core/errors"
	"liquidctl/crypto"
	"liquidctl/domain/ownership"

	"github.com/google/uuid"
)

// VoucherToken is the external NFT collaborator: Core holds mint
// authority, the Manager holds burn authority (spec.md §4.4). Transfer
// and approval semantics belong to that contract and are out of scope
// here — only mint/burn/metadata are consumed.
type VoucherToken interface {
	Mint(ctx context.Context, owner crypto.Address, voucherID string, batchID *big.Int, amount *big.Int) error
	Burn(ctx context.Context, voucherID string) error
}

// PayoutTransport moves settled base asset out of the manager's balance to
// a withdrawing user.
type PayoutTransport interface {
	Transfer(ctx context.Context, receiver crypto.Address, amount *big.Int) error
}

// Manager tracks unbond batches and their vouchers end to end: folding
// unbond requests into the open batch, advancing batch status as the host
// chain's unbonding pipeline reports progress, and paying vouchers out
// once a batch settles.
type Manager struct {
	mu sync.Mutex

	owned        *ownership.Owned
	voucherToken VoucherToken
	payout       PayoutTransport

	batches     map[string]*UnbondBatch
	vouchers    map[string]*Voucher
	nextBatchID *big.Int
	openBatchID *big.Int

	// balance is base asset the manager currently holds, credited by
	// ObserveUnbondedAmount/FundEmergencyWithdrawal and debited by Withdraw.
	balance *big.Int
}

// NewManager returns an empty Manager owned by owned's current owner.
func NewManager(owned *ownership.Owned, voucherToken VoucherToken, payout PayoutTransport) *Manager {
	return &Manager{
		owned:        owned,
		voucherToken: voucherToken,
		payout:       payout,
		batches:      make(map[string]*UnbondBatch),
		vouchers:     make(map[string]*Voucher),
		nextBatchID:  big.NewInt(0),
		balance:      big.NewInt(0),
	}
}

// Batch returns a copy of the batch keyed by id.
func (m *Manager) Batch(id *big.Int) (*UnbondBatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id.String()]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Voucher returns a copy of the voucher keyed by id.
func (m *Manager) Voucher(id string) (*Voucher, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// OpenBatch returns the currently open (status New) batch, if any.
func (m *Manager) OpenBatch() (*UnbondBatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openBatchID == nil {
		return nil, false
	}
	return m.batches[m.openBatchID.String()].Clone(), true
}

// Balance returns the manager's current payout-ready base-asset balance.
func (m *Manager) Balance() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance)
}

// UnprocessedUnbondExpected sums ExpectedNativeAssetAmount across every
// batch that has left StatusNew but not yet settled (Withdrawn or
// WithdrawnEmergency). This is the exchange-rate formula's
// unprocessed_unbond_expected term (spec.md §4.1).
func (m *Manager) UnprocessedUnbondExpected() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := big.NewInt(0)
	for _, b := range m.batches {
		if b.Status == StatusNew || b.Status == StatusWithdrawn || b.Status == StatusWithdrawnEmergency {
			continue
		}
		if b.ExpectedNativeAssetAmount != nil {
			total.Add(total, b.ExpectedNativeAssetAmount)
		}
	}
	return total
}

// BatchesByStatus returns a copy of every batch currently in status,
// ordered by ascending batch id so callers can deterministically pick the
// oldest.
func (m *Manager) BatchesByStatus(status Status) []*UnbondBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UnbondBatch
	for _, b := range m.batches {
		if b.Status == status {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Cmp(out[j].ID) < 0 })
	return out
}

// RecordUnbond folds a user's burned-receipt-token amount into the
// currently open batch — lazily opening one if none exists — and mints a
// withdrawal voucher with metadata {batch_id, amount}.
func (m *Manager) RecordUnbond(ctx context.Context, owner crypto.Address, amount *big.Int, now int64) (*Voucher, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, coreerrors.ErrPaymentNoFunds
	}

	m.mu.Lock()
	if m.openBatchID == nil {
		id := new(big.Int).Set(m.nextBatchID)
		m.nextBatchID.Add(m.nextBatchID, big.NewInt(1))
		m.batches[id.String()] = newBatch(id, now)
		m.openBatchID = id
	}
	batch := m.batches[m.openBatchID.String()]
	batch.TotalDAssetAmountToWithdraw.Add(batch.TotalDAssetAmountToWithdraw, amount)
	batch.TotalUnbondItems++
	batchID := new(big.Int).Set(batch.ID)
	m.mu.Unlock()

	voucherID := uuid.NewString()
	if err := m.voucherToken.Mint(ctx, owner, voucherID, batchID, amount); err != nil {
		return nil, fmt.Errorf("withdrawal: mint voucher: %w", err)
	}

	voucher := &Voucher{ID: voucherID, Owner: owner, BatchID: batchID, Amount: new(big.Int).Set(amount)}
	m.mu.Lock()
	m.vouchers[voucherID] = voucher
	m.mu.Unlock()
	return voucher.Clone(), nil
}

// CloseOpenBatchForUnbonding snapshots the open batch's expected native
// payout at exchangeRate, moves it to UnbondRequested, and clears
// openBatchID so the next RecordUnbond lazily opens a fresh one. Returns
// the closed batch.
func (m *Manager) CloseOpenBatchForUnbonding(exchangeRate *big.Rat, now int64) (*UnbondBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openBatchID == nil {
		return nil, coreerrors.ErrBatchNotReady
	}
	batch := m.batches[m.openBatchID.String()]
	if batch.Status != StatusNew {
		return nil, coreerrors.ErrBatchNotReady
	}
	if exchangeRate == nil || exchangeRate.Sign() <= 0 {
		return nil, fmt.Errorf("withdrawal: invalid exchange rate")
	}
	expectedRat := new(big.Rat).Mul(new(big.Rat).SetInt(batch.TotalDAssetAmountToWithdraw), exchangeRate)
	batch.ExpectedNativeAssetAmount = new(big.Int).Quo(expectedRat.Num(), expectedRat.Denom())
	batch.transition(StatusUnbondRequested, now)
	m.openBatchID = nil
	return batch.Clone(), nil
}

// MarkUnbonding transitions a batch from UnbondRequested to Unbonding once
// Puppeteer's Undelegate has been acknowledged, recording the earliest
// release time.
func (m *Manager) MarkUnbonding(batchID *big.Int, expectedReleaseTime, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID.String()]
	if !ok {
		return coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusUnbondRequested {
		return coreerrors.ErrInvalidStatusTransition
	}
	batch.ExpectedReleaseTime = expectedReleaseTime
	batch.transition(StatusUnbonding, now)
	return nil
}

// MarkUnbondFailed rolls a batch back to UnbondFailed on a Puppeteer error
// or timeout, so a future tick retries with fresh Strategy allocation.
func (m *Manager) MarkUnbondFailed(batchID *big.Int, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID.String()]
	if !ok {
		return coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusUnbondRequested && batch.Status != StatusUnbonding {
		return coreerrors.ErrInvalidStatusTransition
	}
	batch.transition(StatusUnbondFailed, now)
	return nil
}

// MarkWithdrawing transitions a batch from Unbonding to Withdrawing once
// Core has asked Puppeteer to observe and transfer back the settled
// balance (spec.md §4.1 rule 5).
func (m *Manager) MarkWithdrawing(batchID *big.Int, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID.String()]
	if !ok {
		return coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusUnbonding {
		return coreerrors.ErrInvalidStatusTransition
	}
	batch.transition(StatusWithdrawing, now)
	return nil
}

// ObserveUnbondedAmount records the actual base-asset amount the host
// chain released for batch, computes slashing_effect, credits the
// manager's payout balance, and moves the batch to Withdrawn.
// Overpayment is forbidden: slashing_effect is capped at 1 even if the
// host reports more than expected.
func (m *Manager) ObserveUnbondedAmount(batchID *big.Int, unbondedAmount *big.Int, now int64) (*UnbondBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID.String()]
	if !ok {
		return nil, coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusWithdrawing {
		return nil, coreerrors.ErrInvalidStatusTransition
	}
	if batch.ExpectedNativeAssetAmount == nil || batch.ExpectedNativeAssetAmount.Sign() <= 0 {
		return nil, fmt.Errorf("withdrawal: batch has no expected native asset amount recorded")
	}

	batch.UnbondedAmount = new(big.Int).Set(unbondedAmount)
	ratio := new(big.Rat).SetFrac(unbondedAmount, batch.ExpectedNativeAssetAmount)
	if ratio.Cmp(big.NewRat(1, 1)) > 0 {
		ratio = big.NewRat(1, 1)
	}
	batch.SlashingEffect = ratio
	batch.transition(StatusWithdrawn, now)
	m.balance.Add(m.balance, unbondedAmount)
	return batch.Clone(), nil
}

// FundEmergencyWithdrawal is the owner-signed admin path used when a
// batch's host-side unbond failed: the owner manually supplies the
// settlement funds out of band, and the manager only records the
// externally supplied balance (spec.md §9b's resolved open question).
func (m *Manager) FundEmergencyWithdrawal(caller crypto.Address, batchID *big.Int, amount *big.Int, now int64) (*UnbondBatch, error) {
	if err := m.owned.RequireOwner(caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, coreerrors.ErrPaymentNoFunds
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID.String()]
	if !ok {
		return nil, coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusUnbondFailed {
		return nil, coreerrors.ErrInvalidStatusTransition
	}
	if batch.ExpectedNativeAssetAmount == nil || batch.ExpectedNativeAssetAmount.Sign() <= 0 {
		return nil, fmt.Errorf("withdrawal: batch has no expected native asset amount recorded")
	}

	batch.transition(StatusWithdrawingEmergency, now)
	batch.UnbondedAmount = new(big.Int).Set(amount)
	ratio := new(big.Rat).SetFrac(amount, batch.ExpectedNativeAssetAmount)
	if ratio.Cmp(big.NewRat(1, 1)) > 0 {
		ratio = big.NewRat(1, 1)
	}
	batch.SlashingEffect = ratio
	batch.transition(StatusWithdrawnEmergency, now)
	m.balance.Add(m.balance, amount)
	return batch.Clone(), nil
}

// Withdraw loads the voucher and its batch, asserts the batch has settled,
// pays the caller-specified receiver their slashing-adjusted share, and
// burns the voucher.
func (m *Manager) Withdraw(ctx context.Context, caller crypto.Address, voucherID string, receiver crypto.Address) error {
	m.mu.Lock()
	voucher, ok := m.vouchers[voucherID]
	if !ok {
		m.mu.Unlock()
		return coreerrors.ErrVoucherNotFound
	}
	if !voucher.Owner.Equal(caller) {
		m.mu.Unlock()
		return coreerrors.ErrNotVoucherOwner
	}
	batch, ok := m.batches[voucher.BatchID.String()]
	if !ok {
		m.mu.Unlock()
		return coreerrors.ErrBatchNotFound
	}
	if batch.Status != StatusWithdrawn && batch.Status != StatusWithdrawnEmergency {
		m.mu.Unlock()
		return coreerrors.ErrBatchNotReady
	}

	payoutRat := new(big.Rat).Mul(new(big.Rat).SetInt(voucher.Amount), batch.SlashingEffect)
	payout := new(big.Int).Quo(payoutRat.Num(), payoutRat.Denom())
	if payout.Cmp(voucher.Amount) > 0 {
		m.mu.Unlock()
		return coreerrors.ErrPayoutExceeds
	}
	if m.balance.Cmp(payout) < 0 {
		m.mu.Unlock()
		return coreerrors.ErrInsufficientFunds
	}
	m.mu.Unlock()

	if err := m.payout.Transfer(ctx, receiver, payout); err != nil {
		return fmt.Errorf("withdrawal: transfer payout: %w", err)
	}
	if err := m.voucherToken.Burn(ctx, voucherID); err != nil {
		return fmt.Errorf("withdrawal: burn voucher: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance.Sub(m.balance, payout)
	batch.WithdrawnAmount = payout
	delete(m.vouchers, voucherID)
	return nil
}
