// Package ledger provides concrete, in-process implementations of the
// boundary collaborators Core, the withdrawal Manager, and Splitter treat
// as external contracts (domain/corefsm.ReceiptTokenMinter,
// domain/withdrawal.VoucherToken, domain/withdrawal.PayoutTransport,
// domain/splitter.PayoutTransport). SPEC_FULL.md §1 is explicit that the
// receipt/voucher token contracts themselves are out of scope, but also
// that "concrete in-process implementations are provided for a
// self-contained deployment" — this package is that self-contained
// deployment, a local bank-keeper-shaped ledger backed by storage.Store
// the same way the teacher's core/state keeps account balances behind a
// prefixed KV accessor, simplified since this control plane has no trie
// commitment to maintain.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"liquidctl/crypto"
	"liquidctl/storage"
)

var (
	receiptBalancePrefix = []byte("ledger/receipt/balance/")
	receiptSupplyPrefix  = []byte("ledger/receipt/supply")
	payoutBalancePrefix  = []byte("ledger/payout/balance/")
	voucherPrefix        = []byte("ledger/voucher/")
)

type storedAmount struct {
	Amount string `json:"amount"`
}

func (s storedAmount) toBigInt() *big.Int {
	if s.Amount == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s.Amount, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// ReceiptToken is a storage-backed bank-keeper implementing
// corefsm.ReceiptTokenMinter: Core's sole mint/burn authority over the
// liquid-staking derivative, tracked here as plain account balances since
// this package does not model transfer/approval semantics (SPEC_FULL.md
// §8 Non-goals).
type ReceiptToken struct {
	mu    sync.Mutex
	store *storage.Store
}

// NewReceiptToken wraps store for receipt-token accounting.
func NewReceiptToken(store *storage.Store) *ReceiptToken {
	return &ReceiptToken{store: store}
}

// Mint implements corefsm.ReceiptTokenMinter.
func (t *ReceiptToken) Mint(_ context.Context, receiver crypto.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balanceLocked(receiver)
	balance.Add(balance, amount)
	if err := t.putBalanceLocked(receiver, balance); err != nil {
		return err
	}
	supply := t.totalSupplyLocked()
	supply.Add(supply, amount)
	return t.putSupplyLocked(supply)
}

// Burn implements corefsm.ReceiptTokenMinter.
func (t *ReceiptToken) Burn(_ context.Context, owner crypto.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balanceLocked(owner)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: burn %s exceeds balance %s for %s", amount, balance, owner)
	}
	balance.Sub(balance, amount)
	if err := t.putBalanceLocked(owner, balance); err != nil {
		return err
	}
	supply := t.totalSupplyLocked()
	supply.Sub(supply, amount)
	return t.putSupplyLocked(supply)
}

// TotalSupply implements corefsm.ReceiptTokenMinter.
func (t *ReceiptToken) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSupplyLocked()
}

// Balance returns addr's current receipt-token balance, exposed for the
// HTTP query surface.
func (t *ReceiptToken) Balance(addr crypto.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(addr)
}

func (t *ReceiptToken) balanceLocked(addr crypto.Address) *big.Int {
	var stored storedAmount
	found, err := t.store.Get(receiptBalancePrefix, addr.Bytes(), &stored)
	if err != nil || !found {
		return big.NewInt(0)
	}
	return stored.toBigInt()
}

func (t *ReceiptToken) putBalanceLocked(addr crypto.Address, amount *big.Int) error {
	return t.store.Put(receiptBalancePrefix, addr.Bytes(), storedAmount{Amount: amount.String()})
}

func (t *ReceiptToken) totalSupplyLocked() *big.Int {
	var stored storedAmount
	found, err := t.store.Get(receiptSupplyPrefix, nil, &stored)
	if err != nil || !found {
		return big.NewInt(0)
	}
	return stored.toBigInt()
}

func (t *ReceiptToken) putSupplyLocked(amount *big.Int) error {
	return t.store.Put(receiptSupplyPrefix, nil, storedAmount{Amount: amount.String()})
}

// PayoutAccount is a storage-backed account ledger implementing both
// withdrawal.PayoutTransport and splitter.PayoutTransport: crediting a
// receiver's balance the way the controller chain's own bank module would
// once a voucher settles or a reward split pays out. It does not model
// debits from any particular source account since the amounts it
// receives (UnbondObserver-confirmed host releases, claimed rewards) have
// already left host-chain custody by the time Transfer is called.
type PayoutAccount struct {
	mu    sync.Mutex
	store *storage.Store
}

// NewPayoutAccount wraps store for settled-payout accounting.
func NewPayoutAccount(store *storage.Store) *PayoutAccount {
	return &PayoutAccount{store: store}
}

// Transfer implements withdrawal.PayoutTransport and splitter.PayoutTransport.
func (p *PayoutAccount) Transfer(_ context.Context, receiver crypto.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	balance := p.balanceLocked(receiver)
	balance.Add(balance, amount)
	return p.putBalanceLocked(receiver, balance)
}

// Balance returns receiver's current settled balance, exposed for the
// HTTP query surface.
func (p *PayoutAccount) Balance(receiver crypto.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balanceLocked(receiver)
}

func (p *PayoutAccount) balanceLocked(addr crypto.Address) *big.Int {
	var stored storedAmount
	found, err := p.store.Get(payoutBalancePrefix, addr.Bytes(), &stored)
	if err != nil || !found {
		return big.NewInt(0)
	}
	return stored.toBigInt()
}

func (p *PayoutAccount) putBalanceLocked(addr crypto.Address, amount *big.Int) error {
	return p.store.Put(payoutBalancePrefix, addr.Bytes(), storedAmount{Amount: amount.String()})
}

type storedVoucherMeta struct {
	Owner   string `json:"owner"`
	BatchID string `json:"batch_id"`
	Amount  string `json:"amount"`
	Burned  bool   `json:"burned"`
}

// VoucherLedger is a storage-backed NFT-shaped ledger implementing
// withdrawal.VoucherToken: one metadata record per voucher ID, since this
// package models only the mint/burn/metadata surface withdrawal.Manager
// actually consumes (SPEC_FULL.md §8 Non-goals excludes the voucher
// contract's transfer/approval semantics).
type VoucherLedger struct {
	mu    sync.Mutex
	store *storage.Store
}

// NewVoucherLedger wraps store for voucher-metadata accounting.
func NewVoucherLedger(store *storage.Store) *VoucherLedger {
	return &VoucherLedger{store: store}
}

// Mint implements withdrawal.VoucherToken.
func (v *VoucherLedger) Mint(_ context.Context, owner crypto.Address, voucherID string, batchID *big.Int, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	meta := storedVoucherMeta{
		Owner:   owner.String(),
		BatchID: batchID.String(),
		Amount:  amount.String(),
	}
	return v.store.Put(voucherPrefix, []byte(voucherID), meta)
}

// Burn implements withdrawal.VoucherToken.
func (v *VoucherLedger) Burn(_ context.Context, voucherID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var meta storedVoucherMeta
	found, err := v.store.Get(voucherPrefix, []byte(voucherID), &meta)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("ledger: voucher %s not found", voucherID)
	}
	meta.Burned = true
	return v.store.Put(voucherPrefix, []byte(voucherID), meta)
}

// PassthroughUnbondObserver implements corefsm.UnbondObserver by reporting
// a matured batch's observed release as exactly its expected amount. A
// real deployment would reconcile this against an ICQ-observed ICA
// balance delta the way puppeteer's delegations-and-balances snapshot
// does for staked amounts; SPEC_FULL.md's Non-goals exclude a second,
// payout-specific ICQ pipeline, so this in-process stand-in assumes no
// slashing occurred between MarkUnbonding and the withdrawal observation
// — any real slashing must be reconciled through Core's SlashingEffect
// bookkeeping first.
type PassthroughUnbondObserver struct{}

// ObserveUnbondedAmount implements corefsm.UnbondObserver.
func (PassthroughUnbondObserver) ObserveUnbondedAmount(_ context.Context, _ *big.Int, expected *big.Int) (*big.Int, error) {
	return new(big.Int).Set(expected), nil
}
