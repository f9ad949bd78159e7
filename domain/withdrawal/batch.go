// Package withdrawal implements the unbond-batch and voucher lifecycle:
// folding per-user unbond requests into a shared batch, tracking the
// batch through the host-chain unbonding pipeline, and paying vouchers
// out once a batch settles (spec.md §4.4).
package withdrawal

import (
	"math/big"

	"liquidctl/crypto"
)

// Status is a batch's position in the unbonding pipeline.
type Status int

const (
	StatusNew Status = iota
	StatusUnbondRequested
	StatusUnbondFailed
	StatusUnbonding
	StatusWithdrawing
	StatusWithdrawn
	StatusWithdrawingEmergency
	StatusWithdrawnEmergency
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusUnbondRequested:
		return "UnbondRequested"
	case StatusUnbondFailed:
		return "UnbondFailed"
	case StatusUnbonding:
		return "Unbonding"
	case StatusWithdrawing:
		return "Withdrawing"
	case StatusWithdrawn:
		return "Withdrawn"
	case StatusWithdrawingEmergency:
		return "WithdrawingEmergency"
	case StatusWithdrawnEmergency:
		return "WithdrawnEmergency"
	default:
		return "Unknown"
	}
}

// UnbondBatch accumulates receipt tokens burned by Unbond calls between two
// batch switches, then carries that claim through unbonding, observation,
// and payout on the host chain.
type UnbondBatch struct {
	ID                          *big.Int
	TotalDAssetAmountToWithdraw *big.Int
	ExpectedNativeAssetAmount   *big.Int
	ExpectedReleaseTime         int64
	TotalUnbondItems            int
	Status                      Status
	SlashingEffect              *big.Rat
	UnbondedAmount              *big.Int
	WithdrawnAmount             *big.Int
	StatusTimestamps            map[Status]int64
}

func newBatch(id *big.Int, now int64) *UnbondBatch {
	return &UnbondBatch{
		ID:                          new(big.Int).Set(id),
		TotalDAssetAmountToWithdraw: big.NewInt(0),
		TotalUnbondItems:            0,
		Status:                      StatusNew,
		StatusTimestamps:            map[Status]int64{StatusNew: now},
	}
}

// Clone returns a deep copy so callers can't mutate Manager-internal state.
func (b *UnbondBatch) Clone() *UnbondBatch {
	clone := *b
	clone.ID = new(big.Int).Set(b.ID)
	clone.TotalDAssetAmountToWithdraw = new(big.Int).Set(b.TotalDAssetAmountToWithdraw)
	if b.ExpectedNativeAssetAmount != nil {
		clone.ExpectedNativeAssetAmount = new(big.Int).Set(b.ExpectedNativeAssetAmount)
	}
	if b.SlashingEffect != nil {
		clone.SlashingEffect = new(big.Rat).Set(b.SlashingEffect)
	}
	if b.UnbondedAmount != nil {
		clone.UnbondedAmount = new(big.Int).Set(b.UnbondedAmount)
	}
	if b.WithdrawnAmount != nil {
		clone.WithdrawnAmount = new(big.Int).Set(b.WithdrawnAmount)
	}
	clone.StatusTimestamps = make(map[Status]int64, len(b.StatusTimestamps))
	for k, v := range b.StatusTimestamps {
		clone.StatusTimestamps[k] = v
	}
	return &clone
}

func (b *UnbondBatch) transition(to Status, now int64) {
	b.Status = to
	if _, seen := b.StatusTimestamps[to]; !seen {
		b.StatusTimestamps[to] = now
	}
}

// Voucher is the NFT stand-in minted to a user on Unbond and burned on
// Withdraw. Metadata is exactly {batch_id, amount}; transfer/approval
// semantics live in the VoucherToken collaborator, out of scope here.
type Voucher struct {
	ID      string
	Owner   crypto.Address
	BatchID *big.Int
	Amount  *big.Int
}

func (v *Voucher) Clone() *Voucher {
	clone := *v
	clone.BatchID = new(big.Int).Set(v.BatchID)
	clone.Amount = new(big.Int).Set(v.Amount)
	return &clone
}
