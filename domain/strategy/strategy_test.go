package strategy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidctl/domain/validatorset"
)

func mustAlloc(t *testing.T, allocations []Allocation, operator string) *big.Int {
	t.Helper()
	for _, a := range allocations {
		if a.Operator == operator {
			return a.Delta
		}
	}
	t.Fatalf("no allocation for %s", operator)
	return nil
}

func TestAllocateEqualWeightsSplitsEvenly(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(0)},
		{Operator: "v2", Weight: 1, OnTop: big.NewInt(0)},
	}
	allocations, err := Allocate(validators, Ledger{}, big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	require.Equal(t, big.NewInt(50), mustAlloc(t, allocations, "v1"))
	require.Equal(t, big.NewInt(50), mustAlloc(t, allocations, "v2"))
}

func TestAllocateReservesOnTopDeficitFirst(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(80)},
		{Operator: "v2", Weight: 1, OnTop: big.NewInt(0)},
	}
	// 80 goes to v1's on-top deficit, remaining 20 splits evenly.
	allocations, err := Allocate(validators, Ledger{}, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(90), mustAlloc(t, allocations, "v1"))
	require.Equal(t, big.NewInt(10), mustAlloc(t, allocations, "v2"))
}

func TestAllocateOnTopDeficitAlreadyPartiallyFilled(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(80)},
		{Operator: "v2", Weight: 1, OnTop: big.NewInt(0)},
	}
	ledger := Ledger{OnTopAllocated: map[string]*big.Int{"v1": big.NewInt(80)}}
	// v1's on-top deficit is already filled, so the full 100 splits evenly.
	allocations, err := Allocate(validators, ledger, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), mustAlloc(t, allocations, "v1"))
	require.Equal(t, big.NewInt(50), mustAlloc(t, allocations, "v2"))
}

func TestAllocateDustGoesToHighestWeightThenAddress(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "vb", Weight: 1, OnTop: big.NewInt(0)},
		{Operator: "va", Weight: 1, OnTop: big.NewInt(0)},
		{Operator: "vc", Weight: 1, OnTop: big.NewInt(0)},
	}
	// 10 / 3 = 3 each with 1 unit of dust, assigned to the lexicographically
	// first address among equal weights: "va".
	allocations, err := Allocate(validators, Ledger{}, big.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4), mustAlloc(t, allocations, "va"))
	require.Equal(t, big.NewInt(3), mustAlloc(t, allocations, "vb"))
	require.Equal(t, big.NewInt(3), mustAlloc(t, allocations, "vc"))
}

func TestAllocateIgnoresZeroWeightValidators(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(0)},
		{Operator: "v2", Weight: 0, OnTop: big.NewInt(0)},
	}
	allocations, err := Allocate(validators, Ledger{}, big.NewInt(50))
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	require.Equal(t, big.NewInt(50), mustAlloc(t, allocations, "v1"))
}

func TestAllocateNegativeDrainsNonOnTopBeforeOnTop(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(80)},
	}
	ledger := Ledger{
		Delegated:      map[string]*big.Int{"v1": big.NewInt(180)},
		OnTopAllocated: map[string]*big.Int{"v1": big.NewInt(80)},
	}
	// non-on-top portion is 100; unbonding 60 should come entirely from it.
	allocations, err := Allocate(validators, ledger, big.NewInt(-60))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(-60), mustAlloc(t, allocations, "v1"))
}

func TestAllocateNegativeSpillsIntoOnTopOnceNonOnTopExhausted(t *testing.T) {
	validators := []validatorset.Validator{
		{Operator: "v1", Weight: 1, OnTop: big.NewInt(80)},
	}
	ledger := Ledger{
		Delegated:      map[string]*big.Int{"v1": big.NewInt(180)},
		OnTopAllocated: map[string]*big.Int{"v1": big.NewInt(80)},
	}
	// non-on-top portion is 100; unbonding 150 drains it fully then 50 of on-top.
	allocations, err := Allocate(validators, ledger, big.NewInt(-150))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(-150), mustAlloc(t, allocations, "v1"))
}

func TestAllocateZeroDeltaReturnsNil(t *testing.T) {
	allocations, err := Allocate(nil, Ledger{}, big.NewInt(0))
	require.NoError(t, err)
	require.Nil(t, allocations)
}
