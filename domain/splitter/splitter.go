// Package splitter implements the reward-distribution and host-local
// reward pump supplementing spec.md's core components (overview table:
// "Splitter / RewardsPump — split claimed rewards across receivers by
// weight; pump host-local rewards over IBC").
package splitter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"liquidctl/crypto"
	"liquidctl/domain/ownership"
)

var (
	ErrNoReceivers     = errors.New("splitter: no receivers configured")
	ErrZeroTotalWeight = errors.New("splitter: all receivers have zero weight")
)

// Receiver is one weighted payee of the split non-base-reward pool.
type Receiver struct {
	Address crypto.Address
	Weight  uint64
}

// Allocation is one receiver's share of a Split call.
type Allocation struct {
	Address crypto.Address
	Amount  *big.Int
}

// PayoutTransport moves a settled allocation out to its receiver.
type PayoutTransport interface {
	Transfer(ctx context.Context, receiver crypto.Address, amount *big.Int) error
}

// Splitter divides claimed non-base rewards across a weighted receiver
// list, following the same floor-then-dust shape as domain/strategy's
// stake allocation: evenly-floored shares first, then any leftover
// dust assigned one unit at a time by descending weight, then
// lexicographic address, so the split is fully deterministic.
type Splitter struct {
	mu        sync.RWMutex
	owned     *ownership.Owned
	receivers []Receiver
	transport PayoutTransport
}

// NewSplitter returns a Splitter owned by owned's current owner.
func NewSplitter(owned *ownership.Owned, receivers []Receiver, transport PayoutTransport) *Splitter {
	return &Splitter{
		owned:     owned,
		receivers: cloneReceivers(receivers),
		transport: transport,
	}
}

func cloneReceivers(in []Receiver) []Receiver {
	out := make([]Receiver, len(in))
	copy(out, in)
	return out
}

// SetReceivers replaces the weighted receiver list. Owner-only.
func (s *Splitter) SetReceivers(caller crypto.Address, receivers []Receiver) error {
	if err := s.owned.RequireOwner(caller); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivers = cloneReceivers(receivers)
	return nil
}

// Receivers returns a copy of the current receiver list.
func (s *Splitter) Receivers() []Receiver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneReceivers(s.receivers)
}

// Split divides amount across the configured receivers proportionally to
// weight, flooring each share and assigning the remainder dust one unit
// at a time, highest weight first and ties broken by address.
func (s *Splitter) Split(amount *big.Int) ([]Allocation, error) {
	s.mu.RLock()
	receivers := cloneReceivers(s.receivers)
	s.mu.RUnlock()

	if len(receivers) == 0 {
		return nil, ErrNoReceivers
	}
	if amount == nil || amount.Sign() == 0 {
		return nil, nil
	}

	var totalWeight uint64
	for _, r := range receivers {
		totalWeight += r.Weight
	}
	if totalWeight == 0 {
		return nil, ErrZeroTotalWeight
	}

	sorted := make([]Receiver, len(receivers))
	copy(sorted, receivers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Address.String() < sorted[j].Address.String()
	})

	shares := make([]*big.Int, len(sorted))
	assigned := big.NewInt(0)
	totalWeightRat := new(big.Int).SetUint64(totalWeight)
	for i, r := range sorted {
		share := new(big.Int).Mul(amount, new(big.Int).SetUint64(r.Weight))
		share.Quo(share, totalWeightRat)
		shares[i] = share
		assigned.Add(assigned, share)
	}

	dust := new(big.Int).Sub(amount, assigned)
	for i := 0; dust.Sign() > 0; i = (i + 1) % len(sorted) {
		shares[i].Add(shares[i], big.NewInt(1))
		dust.Sub(dust, big.NewInt(1))
	}

	out := make([]Allocation, 0, len(sorted))
	for i, r := range sorted {
		if shares[i].Sign() == 0 {
			continue
		}
		out = append(out, Allocation{Address: r.Address, Amount: shares[i]})
	}
	return out, nil
}

// Distribute splits amount and transfers each non-zero share to its
// receiver.
func (s *Splitter) Distribute(ctx context.Context, amount *big.Int) error {
	allocations, err := s.Split(amount)
	if err != nil {
		return err
	}
	for _, alloc := range allocations {
		if err := s.transport.Transfer(ctx, alloc.Address, alloc.Amount); err != nil {
			return fmt.Errorf("splitter: transfer to %s: %w", alloc.Address.String(), err)
		}
	}
	return nil
}
