package bondprovider

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

type fakeIBCTransport struct {
	calls []ibcmsg.MsgTransfer
	err   error
}

func (f *fakeIBCTransport) IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error {
	f.calls = append(f.calls, msg)
	return f.err
}

func newTestSender(t *testing.T) crypto.Address {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return priv.PubKey().Address()
}

func newNativeCfg() NativeConfig {
	return NativeConfig{
		BaseDenom:           "ubase",
		MinIBCTransfer:      big.NewInt(1000),
		TransferChannel:     "channel-0",
		ICAAddress:          "remote1ica",
		TransferTimeoutSecs: 600,
	}
}

func TestNativeBondProviderCanBond(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.True(t, p.CanBond("ubase"))
	require.False(t, p.CanBond("uatom"))
}

func TestNativeBondProviderBondAccumulatesNonStaked(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(500))))
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(300))))
	require.Equal(t, big.NewInt(800), p.NonStakedBalance())
	require.Equal(t, big.NewInt(800), p.AssetAmount())

	err := p.Bond(context.Background(), types.NewCoin("uatom", big.NewInt(1)))
	require.ErrorIs(t, err, coreerrors.ErrInvalidDenom)
}

func TestNativeBondProviderTokenAmount(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)

	rate := big.NewRat(2, 1)
	tokens, err := p.TokenAmount(types.NewCoin("ubase", big.NewInt(1000)), rate)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), tokens)

	_, err = p.TokenAmount(types.NewCoin("uatom", big.NewInt(1000)), rate)
	require.ErrorIs(t, err, coreerrors.ErrInvalidDenom)
}

func TestNativeBondProviderProcessOnIdleDispatchesAndConfirms(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(5000))))

	require.True(t, p.CanProcessOnIdle())
	require.NoError(t, p.ProcessOnIdle(context.Background()))
	require.False(t, p.CanProcessOnIdle(), "a transfer is already pending")
	require.Equal(t, big.NewInt(0), p.NonStakedBalance())
	require.Equal(t, big.NewInt(5000), p.PendingCoins())
	require.Len(t, transport.calls, 1)
	require.Equal(t, "channel-0", transport.calls[0].SourceChannel)

	p.ConfirmTransfer()
	require.Equal(t, big.NewInt(0), p.PendingCoins())
	require.Equal(t, big.NewInt(0), p.AssetAmount())
}

func TestNativeBondProviderProcessOnIdleBelowMinimum(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(10))))

	require.False(t, p.CanProcessOnIdle())
	err := p.ProcessOnIdle(context.Background())
	require.ErrorIs(t, err, coreerrors.ErrBelowMinIBCTransfer)
}

func TestNativeBondProviderProcessOnIdleRollsBackOnDispatchError(t *testing.T) {
	transport := &fakeIBCTransport{err: context.DeadlineExceeded}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(5000))))

	err := p.ProcessOnIdle(context.Background())
	require.Error(t, err)
	require.Equal(t, big.NewInt(0), p.PendingCoins())
	require.Equal(t, big.NewInt(5000), p.NonStakedBalance())
}

func TestNativeBondProviderRemainingUnlimitedByDefault(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.Nil(t, p.Remaining("ubase"))
}

func TestNativeBondProviderRemainingTracksBondLimit(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	cfg := newNativeCfg()
	cfg.BondLimit = big.NewInt(1000)
	p := NewNativeBondProvider(cfg, sender, transport)

	require.Equal(t, big.NewInt(1000), p.Remaining("ubase"))
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(400))))
	require.Equal(t, big.NewInt(600), p.Remaining("ubase"))

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(600))))
	require.Equal(t, big.NewInt(0), p.Remaining("ubase"))

	require.Nil(t, p.Remaining("uatom"))
}

func TestNativeBondProviderRollbackTransferAfterTimeout(t *testing.T) {
	transport := &fakeIBCTransport{}
	sender := newTestSender(t)
	p := NewNativeBondProvider(newNativeCfg(), sender, transport)
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ubase", big.NewInt(5000))))
	require.NoError(t, p.ProcessOnIdle(context.Background()))

	p.RollbackTransfer()
	require.Equal(t, big.NewInt(0), p.PendingCoins())
	require.Equal(t, big.NewInt(5000), p.NonStakedBalance())
	require.True(t, p.CanProcessOnIdle())
}
