package ownership

import (
	"testing"

	"github.com/stretchr/testify/require"

	"liquidctl/crypto"
)

func newTestAddress(t *testing.T) crypto.Address {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address()
}

func TestTransferAndAcceptOwnership(t *testing.T) {
	owner := newTestAddress(t)
	candidate := newTestAddress(t)
	o := New(owner)

	require.NoError(t, o.TransferOwnership(owner, candidate))
	pending, ok := o.PendingOwner()
	require.True(t, ok)
	require.True(t, pending.Equal(candidate))

	require.NoError(t, o.AcceptOwnership(candidate))
	require.True(t, o.Owner().Equal(candidate))
	_, ok = o.PendingOwner()
	require.False(t, ok)
}

func TestTransferOwnershipRequiresCurrentOwner(t *testing.T) {
	owner := newTestAddress(t)
	outsider := newTestAddress(t)
	candidate := newTestAddress(t)
	o := New(owner)

	err := o.TransferOwnership(outsider, candidate)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestAcceptOwnershipRequiresPendingOwner(t *testing.T) {
	owner := newTestAddress(t)
	candidate := newTestAddress(t)
	impostor := newTestAddress(t)
	o := New(owner)

	require.ErrorIs(t, o.AcceptOwnership(candidate), ErrNoPendingOwner)

	require.NoError(t, o.TransferOwnership(owner, candidate))
	require.ErrorIs(t, o.AcceptOwnership(impostor), ErrNotPendingOwner)
}

func TestTransferOwnershipRejectsSameOwner(t *testing.T) {
	owner := newTestAddress(t)
	o := New(owner)
	require.ErrorIs(t, o.TransferOwnership(owner, owner), ErrSameOwner)
}

func TestRenounceOwnershipClearsOwnerAndPending(t *testing.T) {
	owner := newTestAddress(t)
	candidate := newTestAddress(t)
	o := New(owner)

	require.NoError(t, o.TransferOwnership(owner, candidate))
	require.NoError(t, o.RenounceOwnership(owner))
	require.True(t, o.Owner().IsZero())
	_, ok := o.PendingOwner()
	require.False(t, ok)

	// Renouncing again is rejected: the zero address is not the caller.
	require.ErrorIs(t, o.RenounceOwnership(owner), ErrNotOwner)
}

func TestCancelTransfer(t *testing.T) {
	owner := newTestAddress(t)
	candidate := newTestAddress(t)
	o := New(owner)

	require.NoError(t, o.TransferOwnership(owner, candidate))
	require.NoError(t, o.CancelTransfer(owner))
	_, ok := o.PendingOwner()
	require.False(t, ok)
	require.ErrorIs(t, o.AcceptOwnership(candidate), ErrNoPendingOwner)
}
