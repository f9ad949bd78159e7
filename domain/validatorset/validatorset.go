// Package validatorset stores the host-chain validator roster that
// domain/strategy allocates stake across. It is shared-read by Strategy,
// Core, and the bond providers; only the owner or an authorized
// validator-reference authority may mutate it.
package validatorset

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"liquidctl/crypto"
	"liquidctl/domain/ownership"
)

var (
	ErrValidatorNotFound  = errors.New("validatorset: validator not found")
	ErrNoActiveValidators = errors.New("validatorset: no validators with positive weight")
	ErrNegativeOnTop      = errors.New("validatorset: on-top amount must be non-negative")
)

// OnTopOp selects how EditOnTop combines the supplied amount with the
// validator's existing on-top reservation.
type OnTopOp int

const (
	// OnTopAdd adds the supplied amount to the existing on-top reservation.
	OnTopAdd OnTopOp = iota
	// OnTopSet replaces the existing on-top reservation outright.
	OnTopSet
)

// Validator is a host-chain validator operator entry. Weight of zero
// excludes it from Strategy's weight-proportional allocation but does not
// remove it from the set. OnTop is preserved across weight updates unless
// explicitly edited via EditOnTop.
type Validator struct {
	Operator string
	Weight   uint64
	OnTop    *big.Int

	// Observational metrics, refreshed from the Puppeteer's
	// delegations-and-balances ICQ callback via ApplyObservedInfo.
	LastProcessedRemoteHeight uint64
	Uptime                    *big.Rat
	Tombstoned                bool
	JailedCount               uint64
	ProposalsSigned           uint64
	ProposalsMissed           uint64
}

// Clone returns a deep copy so callers can safely mutate the result without
// affecting the Set's internal state.
func (v Validator) Clone() Validator {
	clone := v
	if v.OnTop != nil {
		clone.OnTop = new(big.Int).Set(v.OnTop)
	}
	if v.Uptime != nil {
		clone.Uptime = new(big.Rat).Set(v.Uptime)
	}
	return clone
}

// Update describes a desired validator entry for UpdateValidators. A nil
// OnTop means "preserve whatever on-top this validator already has."
type Update struct {
	Operator string
	Weight   uint64
	OnTop    *big.Int
}

// ObservedInfo carries the fields refreshed from an ICQ snapshot.
type ObservedInfo struct {
	RemoteHeight    uint64
	Uptime          *big.Rat
	Tombstoned      bool
	JailedCount     uint64
	ProposalsSigned uint64
	ProposalsMissed uint64
}

// Set is the mutex-guarded validator roster.
type Set struct {
	mu         sync.RWMutex
	validators map[string]*Validator
	owned      *ownership.Owned
}

// New returns an empty Set owned by owner.
func New(owned *ownership.Owned) *Set {
	return &Set{
		validators: make(map[string]*Validator),
		owned:      owned,
	}
}

// Get returns a copy of the validator entry for operator.
func (s *Set) Get(operator string) (Validator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[operator]
	if !ok {
		return Validator{}, false
	}
	return v.Clone(), true
}

// List returns a copy of every validator, ordered by operator address for
// deterministic iteration.
func (s *Set) List() []Validator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	operators := make([]string, 0, len(s.validators))
	for operator := range s.validators {
		operators = append(operators, operator)
	}
	sort.Strings(operators)
	out := make([]Validator, 0, len(operators))
	for _, operator := range operators {
		out = append(out, s.validators[operator].Clone())
	}
	return out
}

// UpdateValidators replaces weights for the given entries, preserving each
// validator's previously set on-top reservation when Update.OnTop is nil.
// Validators absent from list are left untouched; this only adds or
// reweights, it never removes an entry (weight 0 is how an operator is
// retired from allocation without losing its history).
func (s *Set) UpdateValidators(caller crypto.Address, list []Update) error {
	if err := s.owned.RequireOwner(caller); err != nil {
		return err
	}
	for _, u := range list {
		if u.OnTop != nil && u.OnTop.Sign() < 0 {
			return ErrNegativeOnTop
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range list {
		existing, ok := s.validators[u.Operator]
		onTop := u.OnTop
		if onTop == nil {
			if ok && existing.OnTop != nil {
				onTop = new(big.Int).Set(existing.OnTop)
			} else {
				onTop = big.NewInt(0)
			}
		} else {
			onTop = new(big.Int).Set(onTop)
		}
		if ok {
			existing.Weight = u.Weight
			existing.OnTop = onTop
			continue
		}
		s.validators[u.Operator] = &Validator{
			Operator: u.Operator,
			Weight:   u.Weight,
			OnTop:    onTop,
		}
	}
	return nil
}

// EditOnTop adjusts a single validator's on-top reservation. Callable by
// the owner, or by an authorized validator-reference party when
// refAuthority is non-nil and matches caller.
func (s *Set) EditOnTop(caller crypto.Address, refAuthority *crypto.Address, operator string, op OnTopOp, amount *big.Int) error {
	authorized := s.owned.RequireOwner(caller) == nil
	if !authorized && refAuthority != nil && caller.Equal(*refAuthority) {
		authorized = true
	}
	if !authorized {
		return ownership.ErrNotOwner
	}
	if amount != nil && amount.Sign() < 0 {
		return ErrNegativeOnTop
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validators[operator]
	if !ok {
		return ErrValidatorNotFound
	}
	switch op {
	case OnTopAdd:
		if v.OnTop == nil {
			v.OnTop = big.NewInt(0)
		}
		v.OnTop = new(big.Int).Add(v.OnTop, amount)
	case OnTopSet:
		v.OnTop = new(big.Int).Set(amount)
	}
	return nil
}

// ApplyObservedInfo refreshes a validator's observational metrics from a
// freshly reconciled ICQ snapshot. Unlike weight/on-top, these fields carry
// no ownership gate: they are system-derived, not operator-set.
func (s *Set) ApplyObservedInfo(operator string, info ObservedInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validators[operator]
	if !ok {
		return ErrValidatorNotFound
	}
	v.LastProcessedRemoteHeight = info.RemoteHeight
	if info.Uptime != nil {
		v.Uptime = new(big.Rat).Set(info.Uptime)
	}
	v.Tombstoned = info.Tombstoned
	v.JailedCount = info.JailedCount
	v.ProposalsSigned = info.ProposalsSigned
	v.ProposalsMissed = info.ProposalsMissed
	return nil
}

// TotalWeight sums the weight of every validator with weight > 0.
func (s *Set) TotalWeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, v := range s.validators {
		total += v.Weight
	}
	return total
}
