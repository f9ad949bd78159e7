package bondprovider

import (
	"context"
	"math/big"
	"testing"
	"time"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/domain/validatorset"
	"liquidctl/ibcmsg"

	"github.com/stretchr/testify/require"
)

type fakeDenomTraceResolver struct {
	traces map[string]ibcmsg.DenomTrace
	err    error
}

func (f *fakeDenomTraceResolver) ResolveDenomTrace(ctx context.Context, ibcDenom string) (ibcmsg.DenomTrace, error) {
	if f.err != nil {
		return ibcmsg.DenomTrace{}, f.err
	}
	trace, ok := f.traces[ibcDenom]
	if !ok {
		return ibcmsg.DenomTrace{}, coreerrors.ErrUnsupportedDenom
	}
	return trace, nil
}

type fakeValidatorLookup struct {
	known map[string]bool
}

func (f *fakeValidatorLookup) Get(operator string) (validatorset.Validator, bool) {
	if !f.known[operator] {
		return validatorset.Validator{}, false
	}
	return validatorset.Validator{Operator: operator, Weight: 1}, true
}

type fakeShareRatioSource struct {
	ratios map[string]*big.Rat
}

func (f *fakeShareRatioSource) LatestShareRatio(operator string) (*big.Rat, bool) {
	r, ok := f.ratios[operator]
	return r, ok
}

type fakeRedeemTransport struct {
	calls [][]ibcmsg.MsgRedeemTokensForShares
	err   error
}

func (f *fakeRedeemTransport) RedeemShares(ctx context.Context, sender crypto.Address, items []ibcmsg.MsgRedeemTokensForShares) error {
	f.calls = append(f.calls, items)
	return f.err
}

func newTokenizedShareCfg() TokenizedShareConfig {
	return TokenizedShareConfig{
		TransferChannel:          "channel-0",
		LSMRedeemThreshold:       2,
		LSMRedeemMaximumInterval: time.Hour,
	}
}

func newTestTokenizedShareProvider(t *testing.T, sender crypto.Address, traces map[string]ibcmsg.DenomTrace, known map[string]bool, ratios map[string]*big.Rat, transport RedeemTransport) *TokenizedShareBondProvider {
	t.Helper()
	return NewTokenizedShareBondProvider(
		newTokenizedShareCfg(),
		sender,
		&fakeDenomTraceResolver{traces: traces},
		&fakeValidatorLookup{known: known},
		&fakeShareRatioSource{ratios: ratios},
		transport,
	)
}

func TestTokenizedShareCanBond(t *testing.T) {
	sender := newTestSender(t)
	p := newTestTokenizedShareProvider(t, sender, nil, nil, nil, &fakeRedeemTransport{})
	require.True(t, p.CanBond("ibc/AAAA"))
	require.False(t, p.CanBond("ubase"))
}

func TestTokenizedShareBondComputesBondedFundsFromShareRatio(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	ratios := map[string]*big.Rat{"remotevaloper1xyz": big.NewRat(11, 10)}
	transport := &fakeRedeemTransport{}
	p := newTestTokenizedShareProvider(t, sender, traces, known, ratios, transport)

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	require.Equal(t, big.NewInt(1100), p.AssetAmount())
}

func TestTokenizedShareBondDefaultsToParValueWithoutObservedRatio(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	p := newTestTokenizedShareProvider(t, sender, traces, known, nil, &fakeRedeemTransport{})

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	require.Equal(t, big.NewInt(1000), p.AssetAmount())
}

func TestTokenizedShareBondRejectsWrongTransferChannel(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-99", BaseDenom: "remotevaloper1xyz/1"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	p := newTestTokenizedShareProvider(t, sender, traces, known, nil, &fakeRedeemTransport{})

	err := p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000)))
	require.ErrorIs(t, err, coreerrors.ErrDenomTracePath)
}

func TestTokenizedShareBondRejectsUnknownValidator(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
	}
	p := newTestTokenizedShareProvider(t, sender, traces, nil, nil, &fakeRedeemTransport{})

	err := p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000)))
	require.ErrorIs(t, err, coreerrors.ErrUnknownValidator)
}

func TestTokenizedShareTokenAmountRequiresPriorBond(t *testing.T) {
	sender := newTestSender(t)
	p := newTestTokenizedShareProvider(t, sender, nil, nil, nil, &fakeRedeemTransport{})

	_, err := p.TokenAmount(types.NewCoin("ibc/AAAA", big.NewInt(1000)), big.NewRat(1, 1))
	require.ErrorIs(t, err, coreerrors.ErrUnsupportedDenom)
}

func TestTokenizedShareTokenAmountUsesBondedFunds(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	ratios := map[string]*big.Rat{"remotevaloper1xyz": big.NewRat(1, 1)}
	p := newTestTokenizedShareProvider(t, sender, traces, known, ratios, &fakeRedeemTransport{})

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	tokens, err := p.TokenAmount(types.NewCoin("ibc/AAAA", big.NewInt(1000)), big.NewRat(2, 1))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), tokens)
}

func TestTokenizedShareProcessOnIdlePromotesAndWaitsForThreshold(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	ratios := map[string]*big.Rat{"remotevaloper1xyz": big.NewRat(1, 1)}
	transport := &fakeRedeemTransport{}
	p := newTestTokenizedShareProvider(t, sender, traces, known, ratios, transport)

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	require.True(t, p.CanProcessOnIdle())
	require.NoError(t, p.ProcessOnIdle(context.Background()))
	require.Empty(t, transport.calls, "threshold of 2 not yet reached")
	require.Equal(t, big.NewInt(1000), p.AssetAmount())
}

func TestTokenizedShareProcessOnIdleRedeemsAtThreshold(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
		"ibc/BBBB": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/2"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	ratios := map[string]*big.Rat{"remotevaloper1xyz": big.NewRat(1, 1)}
	transport := &fakeRedeemTransport{}
	p := newTestTokenizedShareProvider(t, sender, traces, known, ratios, transport)

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	require.NoError(t, p.ProcessOnIdle(context.Background()))
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/BBBB", big.NewInt(500))))

	require.True(t, p.CanProcessOnIdle())
	require.NoError(t, p.ProcessOnIdle(context.Background()))
	require.Len(t, transport.calls, 1)
	require.Len(t, transport.calls[0], 2)
	require.False(t, p.CanProcessOnIdle())
}

func TestTokenizedShareProcessOnIdleRestoresOnDispatchError(t *testing.T) {
	sender := newTestSender(t)
	traces := map[string]ibcmsg.DenomTrace{
		"ibc/AAAA": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/1"},
		"ibc/BBBB": {Path: "transfer/channel-0", BaseDenom: "remotevaloper1xyz/2"},
	}
	known := map[string]bool{"remotevaloper1xyz": true}
	ratios := map[string]*big.Rat{"remotevaloper1xyz": big.NewRat(1, 1)}
	transport := &fakeRedeemTransport{err: context.DeadlineExceeded}
	p := newTestTokenizedShareProvider(t, sender, traces, known, ratios, transport)

	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/AAAA", big.NewInt(1000))))
	require.NoError(t, p.Bond(context.Background(), types.NewCoin("ibc/BBBB", big.NewInt(500))))

	err := p.ProcessOnIdle(context.Background())
	require.Error(t, err)
	require.True(t, p.CanProcessOnIdle(), "entries should be restored to shares_to_redeem for retry")
}
