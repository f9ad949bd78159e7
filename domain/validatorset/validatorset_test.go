package validatorset

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidctl/crypto"
	"liquidctl/domain/ownership"
)

func newOwnerAndSet(t *testing.T) (crypto.Address, *Set) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	owner := key.PubKey().Address()
	return owner, New(ownership.New(owner))
}

func TestUpdateValidatorsPreservesOnTopWhenOmitted(t *testing.T) {
	owner, set := newOwnerAndSet(t)

	require.NoError(t, set.UpdateValidators(owner, []Update{
		{Operator: "valoper1", Weight: 1, OnTop: big.NewInt(500)},
	}))

	require.NoError(t, set.UpdateValidators(owner, []Update{
		{Operator: "valoper1", Weight: 3},
	}))

	v, ok := set.Get("valoper1")
	require.True(t, ok)
	require.EqualValues(t, 3, v.Weight)
	require.Equal(t, big.NewInt(500), v.OnTop)
}

func TestUpdateValidatorsExplicitOnTopOverrides(t *testing.T) {
	owner, set := newOwnerAndSet(t)

	require.NoError(t, set.UpdateValidators(owner, []Update{
		{Operator: "valoper1", Weight: 1, OnTop: big.NewInt(500)},
	}))
	require.NoError(t, set.UpdateValidators(owner, []Update{
		{Operator: "valoper1", Weight: 1, OnTop: big.NewInt(100)},
	}))

	v, ok := set.Get("valoper1")
	require.True(t, ok)
	require.Equal(t, big.NewInt(100), v.OnTop)
}

func TestUpdateValidatorsRequiresOwner(t *testing.T) {
	_, set := newOwnerAndSet(t)
	outsider, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	err = set.UpdateValidators(outsider.PubKey().Address(), []Update{{Operator: "valoper1", Weight: 1}})
	require.ErrorIs(t, err, ownership.ErrNotOwner)
}

func TestEditOnTopAddAndSet(t *testing.T) {
	owner, set := newOwnerAndSet(t)
	require.NoError(t, set.UpdateValidators(owner, []Update{{Operator: "valoper1", Weight: 1}}))

	require.NoError(t, set.EditOnTop(owner, nil, "valoper1", OnTopAdd, big.NewInt(50)))
	v, _ := set.Get("valoper1")
	require.Equal(t, big.NewInt(50), v.OnTop)

	require.NoError(t, set.EditOnTop(owner, nil, "valoper1", OnTopAdd, big.NewInt(25)))
	v, _ = set.Get("valoper1")
	require.Equal(t, big.NewInt(75), v.OnTop)

	require.NoError(t, set.EditOnTop(owner, nil, "valoper1", OnTopSet, big.NewInt(10)))
	v, _ = set.Get("valoper1")
	require.Equal(t, big.NewInt(10), v.OnTop)
}

func TestEditOnTopAuthorizedReferenceAuthority(t *testing.T) {
	owner, set := newOwnerAndSet(t)
	require.NoError(t, set.UpdateValidators(owner, []Update{{Operator: "valoper1", Weight: 1}}))

	refKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	ref := refKey.PubKey().Address()

	require.NoError(t, set.EditOnTop(ref, &ref, "valoper1", OnTopAdd, big.NewInt(5)))

	outsiderKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	err = set.EditOnTop(outsiderKey.PubKey().Address(), &ref, "valoper1", OnTopAdd, big.NewInt(5))
	require.ErrorIs(t, err, ownership.ErrNotOwner)
}

func TestApplyObservedInfoIsUngated(t *testing.T) {
	owner, set := newOwnerAndSet(t)
	require.NoError(t, set.UpdateValidators(owner, []Update{{Operator: "valoper1", Weight: 1}}))

	uptime := big.NewRat(99, 100)
	require.NoError(t, set.ApplyObservedInfo("valoper1", ObservedInfo{
		RemoteHeight: 1000,
		Uptime:       uptime,
		JailedCount:  2,
	}))

	v, _ := set.Get("valoper1")
	require.EqualValues(t, 1000, v.LastProcessedRemoteHeight)
	require.Equal(t, uptime, v.Uptime)
	require.EqualValues(t, 2, v.JailedCount)
}

func TestApplyObservedInfoUnknownValidator(t *testing.T) {
	_, set := newOwnerAndSet(t)
	err := set.ApplyObservedInfo("valoper-missing", ObservedInfo{})
	require.ErrorIs(t, err, ErrValidatorNotFound)
}
