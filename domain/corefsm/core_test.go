package corefsm

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/domain/bondprovider"
	"liquidctl/domain/ownership"
	"liquidctl/domain/pause"
	"liquidctl/domain/puppeteer"
	"liquidctl/domain/validatorset"
	"liquidctl/domain/withdrawal"
	"liquidctl/ibcmsg"
)

type fakeReceiptToken struct {
	supply *big.Int
	minted map[string]*big.Int
	burned map[string]*big.Int
}

func newFakeReceiptToken() *fakeReceiptToken {
	return &fakeReceiptToken{supply: big.NewInt(0), minted: map[string]*big.Int{}, burned: map[string]*big.Int{}}
}

func (f *fakeReceiptToken) Mint(ctx context.Context, receiver crypto.Address, amount *big.Int) error {
	f.minted[receiver.String()] = amount
	f.supply.Add(f.supply, amount)
	return nil
}

func (f *fakeReceiptToken) Burn(ctx context.Context, owner crypto.Address, amount *big.Int) error {
	f.burned[owner.String()] = amount
	f.supply.Sub(f.supply, amount)
	return nil
}

func (f *fakeReceiptToken) TotalSupply() *big.Int { return new(big.Int).Set(f.supply) }

type fakeUnbondObserver struct {
	observed *big.Int
	err      error
}

func (f *fakeUnbondObserver) ObserveUnbondedAmount(ctx context.Context, batchID *big.Int, expected *big.Int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.observed != nil {
		return f.observed, nil
	}
	return new(big.Int).Set(expected), nil
}

type fakeIBCTransport struct {
	submitErr error
	submitted []ibcmsg.Msg
}

func (f *fakeIBCTransport) RegisterICA(ctx context.Context, identifier string) error { return nil }

func (f *fakeIBCTransport) SubmitTx(ctx context.Context, msgs []ibcmsg.Msg, memo string, timeout time.Duration) error {
	f.submitted = msgs
	return f.submitErr
}

func (f *fakeIBCTransport) RegisterBalanceAndDelegationsQuery(ctx context.Context, validators []string, chunkSize int) (int, error) {
	return 1, nil
}

type fakeVoucherToken struct{}

func (fakeVoucherToken) Mint(ctx context.Context, owner crypto.Address, voucherID string, batchID *big.Int, amount *big.Int) error {
	return nil
}
func (fakeVoucherToken) Burn(ctx context.Context, voucherID string) error { return nil }

type fakePayoutTransport struct{}

func (fakePayoutTransport) Transfer(ctx context.Context, receiver crypto.Address, amount *big.Int) error {
	return nil
}

type testHarness struct {
	core      *Core
	puppeteer *puppeteer.Puppeteer
	native    *bondprovider.NativeBondProvider
	receipt   *fakeReceiptToken
	withdraw  *withdrawal.Manager
	validators *validatorset.Set
	sender    crypto.Address
	transport *fakeIBCTransport
}

func newTestHarness(t *testing.T, nativeOpts ...func(*bondprovider.NativeConfig)) *testHarness {
	t.Helper()
	ownerPriv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	owner := ownerPriv.PubKey().Address()
	senderPriv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sender := senderPriv.PubKey().Address()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "snapshots.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := puppeteer.NewSnapshotStore(db)
	require.NoError(t, err)

	transport := &fakeIBCTransport{}
	pup := puppeteer.New(puppeteer.Config{
		Transport:      transport,
		Snapshots:      store,
		AllowedSenders: []crypto.Address{sender},
		ICAIdentifier:  "DROP",
		TxTimeout:      time.Second,
	})
	require.NoError(t, pup.RegisterICA(context.Background(), sender))
	pup.HandleICAOpenAck("ctrl1ica")

	owned := ownership.New(owner)
	gate := pause.New()
	validators := validatorset.New(owned)
	require.NoError(t, validators.UpdateValidators(owner, []validatorset.Update{
		{Operator: "valoper1a", Weight: 1},
	}))

	nativeCfg := bondprovider.NativeConfig{
		BaseDenom:           "ubase",
		MinIBCTransfer:      big.NewInt(100),
		TransferChannel:     "channel-0",
		ICAAddress:          "ctrl1ica",
		TransferTimeoutSecs: 600,
	}
	for _, opt := range nativeOpts {
		opt(&nativeCfg)
	}
	native := bondprovider.NewNativeBondProvider(nativeCfg, sender, pup)

	withdrawMgr := withdrawal.NewManager(owned, fakeVoucherToken{}, fakePayoutTransport{})
	receipt := newFakeReceiptToken()
	observer := &fakeUnbondObserver{}

	cfg := Config{
		BaseDenom:             "ubase",
		ICADelegator:          "ctrl1ica",
		WithdrawalAddr:        "ctrl1withdraw",
		TransferChannel:       "channel-0",
		TransferTimeout:       10 * time.Minute,
		IdleMinInterval:       10 * time.Second,
		UnbondBatchSwitchTime: time.Hour,
		UnbondingPeriod:       24 * time.Hour,
		UnbondingSafePeriod:   time.Hour,
		RewardsClaimEpoch:     time.Hour,
		MinNonNativeRewards:   big.NewInt(10),
		ICQUpdateDelayBlocks:  10,
	}

	core := New(cfg, owned, gate, sender, validators, pup, native, nil, withdrawMgr, receipt, observer, nil, nil)

	return &testHarness{
		core:       core,
		puppeteer:  pup,
		native:     native,
		receipt:    receipt,
		withdraw:   withdrawMgr,
		validators: validators,
		sender:     sender,
		transport:  transport,
	}
}

func TestBondAtZeroSupplyMintsOneToOne(t *testing.T) {
	h := newTestHarness(t)
	receiver := h.sender
	err := h.core.Bond(context.Background(), h.sender, receiver, types.NewCoin("ubase", big.NewInt(500)))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), h.receipt.minted[receiver.String()])
}

func TestBondRejectsUnknownDenom(t *testing.T) {
	h := newTestHarness(t)
	err := h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ufoo", big.NewInt(500)))
	require.ErrorIs(t, err, coreerrors.ErrInvalidDenom)
}

func TestBondFailsWhenProviderOverLimit(t *testing.T) {
	h := newTestHarness(t, func(c *bondprovider.NativeConfig) {
		c.BondLimit = big.NewInt(300)
	})

	err := h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(500)))
	require.ErrorIs(t, err, coreerrors.ErrBondLimitExceeded)
	require.Nil(t, h.receipt.minted[h.sender.String()])

	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(300))))
	require.Equal(t, big.NewInt(300), h.receipt.minted[h.sender.String()])
}

func TestBondRejectsZeroAmount(t *testing.T) {
	h := newTestHarness(t)
	err := h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(0)))
	require.ErrorIs(t, err, coreerrors.ErrPaymentNoFunds)
}

func TestUnbondBurnsReceiptTokensAndMintsVoucher(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(500))))

	voucher, err := h.core.Unbond(context.Background(), h.sender, big.NewInt(200), 1000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200), voucher.Amount)
	require.Equal(t, big.NewInt(200), h.receipt.burned[h.sender.String()])
}

func TestTickRateLimitsViaIdleMinInterval(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Tick(context.Background(), 1000))
	err := h.core.Tick(context.Background(), 1005)
	require.ErrorIs(t, err, coreerrors.ErrTickTooSoon)
}

func TestTickIsNoopWhileNotIdle(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(500))))

	// Drive Tick into Transferring.
	require.NoError(t, h.core.Tick(context.Background(), 1000))
	require.Equal(t, StateTransferring, h.core.State())

	// A second Tick, even after idle_min_interval, is a no-op while
	// non-Idle: the in-flight transfer's ack resolves it, not Tick itself.
	err := h.core.Tick(context.Background(), 5000)
	require.NoError(t, err)
	require.Equal(t, StateTransferring, h.core.State())
}

func TestTickTransfersNativeBalanceAndConfirmsOnAck(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(500))))

	require.NoError(t, h.core.Tick(context.Background(), 1000))
	require.Equal(t, StateTransferring, h.core.State())
	require.Len(t, h.transport.submitted, 1)

	require.NoError(t, h.puppeteer.HandleSubmitted("seq-1", "channel-0"))
	require.NoError(t, h.puppeteer.HandleAck(1, 1))
	require.Equal(t, StateIdle, h.core.State())
	require.Equal(t, big.NewInt(0), h.native.PendingCoins())
}

func TestTickRollsBackNativeTransferOnError(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(500))))

	require.NoError(t, h.core.Tick(context.Background(), 1000))
	require.NoError(t, h.puppeteer.HandleSubmitted("seq-1", "channel-0"))
	require.NoError(t, h.puppeteer.HandleError("remote failure"))

	require.Equal(t, StateIdle, h.core.State())
	require.Equal(t, big.NewInt(500), h.native.NonStakedBalance())
	require.Equal(t, big.NewInt(0), h.native.PendingCoins())
}

func TestTickClaimsRewardsWhenEpochElapsedAndAboveThreshold(t *testing.T) {
	h := newTestHarness(t)
	snap, err := h.puppeteer.HandleICQChunk(1, 0, 1, nil, big.NewInt(50))
	require.NoError(t, err)
	require.True(t, snap.Complete())

	require.NoError(t, h.core.Tick(context.Background(), 1000))
	require.Equal(t, StateClaiming, h.core.State())

	require.NoError(t, h.puppeteer.HandleSubmitted("seq-1", "channel-0"))
	require.NoError(t, h.puppeteer.HandleAck(1, 1))
	require.Equal(t, StateIdle, h.core.State())
}

func TestExchangeRateIsOneWhileSupplyIsZero(t *testing.T) {
	h := newTestHarness(t)
	rate := h.core.ExchangeRate()
	require.Equal(t, big.NewRat(1, 1), rate)
}

func TestExchangeRateReflectsProviderAssets(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.core.Bond(context.Background(), h.sender, h.sender, types.NewCoin("ubase", big.NewInt(1000))))
	rate := h.core.ExchangeRate()
	require.Equal(t, big.NewRat(1, 1), rate)
}
