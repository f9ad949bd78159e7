package splitter

import (
	"context"
	"math/big"
	"testing"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/ibcmsg"

	"github.com/stretchr/testify/require"
)

type fakeSwapAdapter struct {
	rate *big.Rat
}

func (f *fakeSwapAdapter) Swap(ctx context.Context, offer types.Coin, minReturn *big.Int) (*big.Int, error) {
	out := new(big.Rat).Mul(new(big.Rat).SetInt(offer.Amount), f.rate)
	return new(big.Int).Quo(out.Num(), out.Denom()), nil
}

type fakePumpTransport struct {
	calls []ibcmsg.MsgTransfer
	err   error
}

func (f *fakePumpTransport) IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error {
	f.calls = append(f.calls, msg)
	return f.err
}

func newTestPumpSender(t *testing.T) crypto.Address {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return priv.PubKey().Address()
}

func newPumpCfg() PumpConfig {
	return PumpConfig{
		BaseDenom:       "ubase",
		TransferChannel: "channel-0",
		Receiver:        "ctrl1splitter",
		MinPumpAmount:   big.NewInt(100),
		TimeoutSecs:     600,
	}
}

func TestRewardsPumpCreditsBaseDenomDirectly(t *testing.T) {
	sender := newTestPumpSender(t)
	p := NewRewardsPump(newPumpCfg(), sender, nil, &fakePumpTransport{})
	require.NoError(t, p.CreditReward(context.Background(), types.NewCoin("ubase", big.NewInt(50))))
	require.Equal(t, big.NewInt(50), p.Balance())
}

func TestRewardsPumpConvertsNonBaseDenomViaSwapAdapter(t *testing.T) {
	sender := newTestPumpSender(t)
	swap := &fakeSwapAdapter{rate: big.NewRat(2, 1)}
	p := NewRewardsPump(newPumpCfg(), sender, swap, &fakePumpTransport{})
	require.NoError(t, p.CreditReward(context.Background(), types.NewCoin("uatom", big.NewInt(25))))
	require.Equal(t, big.NewInt(50), p.Balance())
}

func TestRewardsPumpCreditRewardWithoutSwapAdapterFails(t *testing.T) {
	sender := newTestPumpSender(t)
	p := NewRewardsPump(newPumpCfg(), sender, nil, &fakePumpTransport{})
	err := p.CreditReward(context.Background(), types.NewCoin("uatom", big.NewInt(25)))
	require.ErrorIs(t, err, coreerrors.ErrUnsupportedDenom)
}

func TestRewardsPumpProcessOnIdleDispatchesAndConfirms(t *testing.T) {
	sender := newTestPumpSender(t)
	transport := &fakePumpTransport{}
	p := NewRewardsPump(newPumpCfg(), sender, nil, transport)
	require.NoError(t, p.CreditReward(context.Background(), types.NewCoin("ubase", big.NewInt(500))))

	require.True(t, p.CanProcessOnIdle())
	require.NoError(t, p.ProcessOnIdle(context.Background()))
	require.False(t, p.CanProcessOnIdle())
	require.Len(t, transport.calls, 1)

	p.ConfirmPump()
	require.Equal(t, big.NewInt(0), p.Balance())
}

func TestRewardsPumpProcessOnIdleBelowMinimum(t *testing.T) {
	sender := newTestPumpSender(t)
	p := NewRewardsPump(newPumpCfg(), sender, nil, &fakePumpTransport{})
	require.NoError(t, p.CreditReward(context.Background(), types.NewCoin("ubase", big.NewInt(10))))
	require.False(t, p.CanProcessOnIdle())
	err := p.ProcessOnIdle(context.Background())
	require.ErrorIs(t, err, coreerrors.ErrBelowMinIBCTransfer)
}

func TestRewardsPumpRollsBackOnDispatchError(t *testing.T) {
	sender := newTestPumpSender(t)
	transport := &fakePumpTransport{err: context.DeadlineExceeded}
	p := NewRewardsPump(newPumpCfg(), sender, nil, transport)
	require.NoError(t, p.CreditReward(context.Background(), types.NewCoin("ubase", big.NewInt(500))))

	err := p.ProcessOnIdle(context.Background())
	require.Error(t, err)
	require.Equal(t, big.NewInt(500), p.Balance())
	require.True(t, p.CanProcessOnIdle())
}
