package splitter

import (
	"context"
	"math/big"
	"testing"

	"liquidctl/crypto"
	"liquidctl/domain/ownership"

	"github.com/stretchr/testify/require"
)

type fakeTransfer struct {
	calls map[string]*big.Int
}

func (f *fakeTransfer) Transfer(ctx context.Context, receiver crypto.Address, amount *big.Int) error {
	if f.calls == nil {
		f.calls = make(map[string]*big.Int)
	}
	f.calls[receiver.String()] = amount
	return nil
}

func newTestAddress(t *testing.T) crypto.Address {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return priv.PubKey().Address()
}

func TestSplitEvenWeightsDivideEvenly(t *testing.T) {
	a, b := newTestAddress(t), newTestAddress(t)
	owner := newTestAddress(t)
	s := NewSplitter(ownership.New(owner), []Receiver{{Address: a, Weight: 1}, {Address: b, Weight: 1}}, &fakeTransfer{})

	allocs, err := s.Split(big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	total := big.NewInt(0)
	for _, alloc := range allocs {
		total.Add(total, alloc.Amount)
	}
	require.Equal(t, big.NewInt(100), total)
}

func TestSplitDustGoesToHighestWeightFirst(t *testing.T) {
	a, b, c := newTestAddress(t), newTestAddress(t), newTestAddress(t)
	owner := newTestAddress(t)
	s := NewSplitter(ownership.New(owner), []Receiver{
		{Address: a, Weight: 3},
		{Address: b, Weight: 2},
		{Address: c, Weight: 1},
	}, &fakeTransfer{})

	// 10 / 6 total weight: floors are 5,3,1 = 9, one unit of dust remains,
	// assigned to the highest-weight receiver (a).
	allocs, err := s.Split(big.NewInt(10))
	require.NoError(t, err)
	byAddr := map[string]*big.Int{}
	for _, alloc := range allocs {
		byAddr[alloc.Address.String()] = alloc.Amount
	}
	require.Equal(t, big.NewInt(6), byAddr[a.String()])
	require.Equal(t, big.NewInt(3), byAddr[b.String()])
	require.Equal(t, big.NewInt(1), byAddr[c.String()])
}

func TestSplitRejectsEmptyReceivers(t *testing.T) {
	owner := newTestAddress(t)
	s := NewSplitter(ownership.New(owner), nil, &fakeTransfer{})
	_, err := s.Split(big.NewInt(10))
	require.ErrorIs(t, err, ErrNoReceivers)
}

func TestSplitZeroAmountReturnsNil(t *testing.T) {
	a := newTestAddress(t)
	owner := newTestAddress(t)
	s := NewSplitter(ownership.New(owner), []Receiver{{Address: a, Weight: 1}}, &fakeTransfer{})
	allocs, err := s.Split(big.NewInt(0))
	require.NoError(t, err)
	require.Nil(t, allocs)
}

func TestDistributeTransfersEachShare(t *testing.T) {
	a, b := newTestAddress(t), newTestAddress(t)
	owner := newTestAddress(t)
	transport := &fakeTransfer{}
	s := NewSplitter(ownership.New(owner), []Receiver{{Address: a, Weight: 1}, {Address: b, Weight: 1}}, transport)

	require.NoError(t, s.Distribute(context.Background(), big.NewInt(50)))
	require.Equal(t, big.NewInt(25), transport.calls[a.String()])
	require.Equal(t, big.NewInt(25), transport.calls[b.String()])
}

func TestSetReceiversRequiresOwner(t *testing.T) {
	a := newTestAddress(t)
	owner := newTestAddress(t)
	stranger := newTestAddress(t)
	s := NewSplitter(ownership.New(owner), []Receiver{{Address: a, Weight: 1}}, &fakeTransfer{})

	err := s.SetReceivers(stranger, []Receiver{{Address: a, Weight: 2}})
	require.ErrorIs(t, err, ownership.ErrNotOwner)
}
