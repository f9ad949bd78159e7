// Package strategy computes pure stake-allocation plans over a
// validatorset.Set. Strategy never mutates the set: it returns proposed
// per-validator deltas that Core writes back into the on-top ledger only
// after a successful remote acknowledgement, matching the Puppeteer's
// single-inflight ordering guarantee.
package strategy

import (
	"math/big"
	"sort"

	"liquidctl/domain/validatorset"
)

// Allocation is a signed per-validator adjustment: positive means stake
// more, negative means unstake. Zero-delta entries are never returned.
type Allocation struct {
	Operator string
	Delta    *big.Int
}

// Ledger is Strategy's view of amounts already committed per validator.
// Strategy holds no state of its own; Core supplies this from the
// Puppeteer's delegation snapshot plus its own on-top bookkeeping.
type Ledger struct {
	// Delegated is the total amount currently delegated to each validator,
	// keyed by operator address. Missing entries are treated as zero.
	Delegated map[string]*big.Int
	// OnTopAllocated is the subset of Delegated attributable to on-top
	// reservations rather than weight-proportional share.
	OnTopAllocated map[string]*big.Int
}

func (l Ledger) delegated(operator string) *big.Int {
	if v, ok := l.Delegated[operator]; ok && v != nil {
		return v
	}
	return big.NewInt(0)
}

func (l Ledger) onTopAllocated(operator string) *big.Int {
	if v, ok := l.OnTopAllocated[operator]; ok && v != nil {
		return v
	}
	return big.NewInt(0)
}

// Allocate computes a per-validator allocation plan for a signed target
// delta. A positive delta reserves each validator's on-top deficit first
// (in descending-weight, then lexicographic-address order), then
// distributes the remainder proportionally to weight, assigning leftover
// dust one unit at a time in that same deterministic order. A negative
// delta drains weight-proportional stake before touching on-top
// reservations, preserving weight proportions in both phases.
func Allocate(validators []validatorset.Validator, ledger Ledger, delta *big.Int) ([]Allocation, error) {
	if delta == nil || delta.Sign() == 0 {
		return nil, nil
	}
	ordered := orderedByWeightThenAddress(validators)
	if delta.Sign() > 0 {
		return toAllocations(allocatePositive(ordered, ledger, new(big.Int).Set(delta))), nil
	}
	return toAllocations(allocateNegative(ordered, ledger, new(big.Int).Abs(delta))), nil
}

func orderedByWeightThenAddress(validators []validatorset.Validator) []validatorset.Validator {
	ordered := make([]validatorset.Validator, len(validators))
	copy(ordered, validators)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Weight != ordered[j].Weight {
			return ordered[i].Weight > ordered[j].Weight
		}
		return ordered[i].Operator < ordered[j].Operator
	})
	return ordered
}

func allocatePositive(ordered []validatorset.Validator, ledger Ledger, remaining *big.Int) map[string]*big.Int {
	deltas := make(map[string]*big.Int, len(ordered))

	// Phase 1: reserve on-top deficits in deterministic order.
	for _, v := range ordered {
		if remaining.Sign() == 0 {
			break
		}
		if v.OnTop == nil || v.OnTop.Sign() <= 0 {
			continue
		}
		deficit := new(big.Int).Sub(v.OnTop, ledger.onTopAllocated(v.Operator))
		if deficit.Sign() <= 0 {
			continue
		}
		take := minBigInt(remaining, deficit)
		addInto(deltas, v.Operator, take)
		remaining.Sub(remaining, take)
	}

	// Phase 2: distribute the remainder proportional to weight.
	if remaining.Sign() > 0 {
		weighted := weightEligible(ordered)
		if len(weighted) > 0 {
			shares, dust := weightedShares(weighted, remaining)
			for operator, share := range shares {
				addInto(deltas, operator, share)
			}
			assignDust(weighted, deltas, dust)
		}
	}

	return deltas
}

func allocateNegative(ordered []validatorset.Validator, ledger Ledger, amount *big.Int) map[string]*big.Int {
	deltas := make(map[string]*big.Int, len(ordered))
	remaining := new(big.Int).Set(amount)

	// Phase 1: drain the weight-proportional (non-on-top) stake first.
	nonOnTop := make(map[string]*big.Int, len(ordered))
	for _, v := range ordered {
		avail := new(big.Int).Sub(ledger.delegated(v.Operator), ledger.onTopAllocated(v.Operator))
		if avail.Sign() > 0 {
			nonOnTop[v.Operator] = avail
		}
	}
	drawn, leftover := cappedProportionalDrain(ordered, nonOnTop, remaining)
	for operator, amt := range drawn {
		addInto(deltas, operator, new(big.Int).Neg(amt))
	}
	remaining = leftover

	// Phase 2: drain on-top reservations once non-on-top stake is exhausted.
	if remaining.Sign() > 0 {
		onTop := make(map[string]*big.Int, len(ordered))
		for _, v := range ordered {
			amt := ledger.onTopAllocated(v.Operator)
			if amt.Sign() > 0 {
				onTop[v.Operator] = amt
			}
		}
		drawn, remaining = cappedProportionalDrain(ordered, onTop, remaining)
		for operator, amt := range drawn {
			addInto(deltas, operator, new(big.Int).Neg(amt))
		}
	}

	return deltas
}

// weightEligible returns the subset of ordered with a positive weight,
// preserving order.
func weightEligible(ordered []validatorset.Validator) []validatorset.Validator {
	eligible := make([]validatorset.Validator, 0, len(ordered))
	for _, v := range ordered {
		if v.Weight > 0 {
			eligible = append(eligible, v)
		}
	}
	return eligible
}

// weightedShares computes each validator's floor(amount * weight /
// totalWeight) share and returns the leftover dust (always < len(weighted)).
func weightedShares(weighted []validatorset.Validator, amount *big.Int) (map[string]*big.Int, *big.Int) {
	totalWeight := new(big.Int)
	for _, v := range weighted {
		totalWeight.Add(totalWeight, new(big.Int).SetUint64(v.Weight))
	}
	shares := make(map[string]*big.Int, len(weighted))
	allocated := new(big.Int)
	for _, v := range weighted {
		share := new(big.Int).Mul(amount, new(big.Int).SetUint64(v.Weight))
		share.Div(share, totalWeight)
		shares[v.Operator] = share
		allocated.Add(allocated, share)
	}
	dust := new(big.Int).Sub(amount, allocated)
	return shares, dust
}

// assignDust hands out the leftover dust one unit at a time, in descending
// weight then lexicographic address order, wrapping around as needed.
func assignDust(weighted []validatorset.Validator, deltas map[string]*big.Int, dust *big.Int) {
	if len(weighted) == 0 {
		return
	}
	one := big.NewInt(1)
	i := 0
	for dust.Sign() > 0 {
		addInto(deltas, weighted[i%len(weighted)].Operator, one)
		dust.Sub(dust, one)
		i++
	}
}

// cappedProportionalDrain removes up to `total` from `available`, drawing
// proportionally to weight among validators with room, in rounds: each
// round computes weight-proportional shares against remaining demand and
// remaining eligible weight, clamps each to that validator's remaining
// capacity, and repeats with whatever validators still have room until
// demand or capacity is exhausted. Returns the amounts drawn per validator
// and whatever portion of `total` could not be drawn (available < total).
func cappedProportionalDrain(ordered []validatorset.Validator, available map[string]*big.Int, total *big.Int) (map[string]*big.Int, *big.Int) {
	drawn := make(map[string]*big.Int)
	remaining := new(big.Int).Set(total)

	eligible := make([]validatorset.Validator, 0, len(ordered))
	for _, v := range ordered {
		if v.Weight == 0 {
			continue
		}
		if amt, ok := available[v.Operator]; ok && amt.Sign() > 0 {
			eligible = append(eligible, v)
		}
	}

	for pass := 0; remaining.Sign() > 0 && len(eligible) > 0 && pass <= len(eligible); pass++ {
		shares, _ := weightedShares(eligible, remaining)
		next := eligible[:0]
		progressed := false
		for _, v := range eligible {
			room := new(big.Int).Sub(available[v.Operator], drawnOrZero(drawn, v.Operator))
			share := shares[v.Operator]
			if share.Cmp(room) > 0 {
				share = room
			}
			if share.Sign() > 0 {
				addInto(drawn, v.Operator, share)
				remaining.Sub(remaining, share)
				progressed = true
			}
			if new(big.Int).Sub(available[v.Operator], drawnOrZero(drawn, v.Operator)).Sign() > 0 {
				next = append(next, v)
			}
		}
		eligible = next
		if !progressed {
			break
		}
	}

	// Assign any rounding dust to validators with remaining room.
	i := 0
	for remaining.Sign() > 0 && len(eligible) > 0 {
		v := eligible[i%len(eligible)]
		room := new(big.Int).Sub(available[v.Operator], drawnOrZero(drawn, v.Operator))
		if room.Sign() > 0 {
			addInto(drawn, v.Operator, big.NewInt(1))
			remaining.Sub(remaining, big.NewInt(1))
		}
		i++
		if i > len(eligible)*2 {
			break
		}
	}

	return drawn, remaining
}

func drawnOrZero(drawn map[string]*big.Int, operator string) *big.Int {
	if v, ok := drawn[operator]; ok {
		return v
	}
	return big.NewInt(0)
}

func addInto(m map[string]*big.Int, operator string, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	if cur, ok := m[operator]; ok {
		cur.Add(cur, amount)
		return
	}
	m[operator] = new(big.Int).Set(amount)
}

func minBigInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func toAllocations(deltas map[string]*big.Int) []Allocation {
	if len(deltas) == 0 {
		return nil
	}
	operators := make([]string, 0, len(deltas))
	for operator := range deltas {
		operators = append(operators, operator)
	}
	sort.Strings(operators)
	allocations := make([]Allocation, 0, len(operators))
	for _, operator := range operators {
		if deltas[operator].Sign() == 0 {
			continue
		}
		allocations = append(allocations, Allocation{Operator: operator, Delta: deltas[operator]})
	}
	return allocations
}
