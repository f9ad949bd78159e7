package puppeteer

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	coreerrors "liquidctl/core/errors"
	"liquidctl/crypto"
	"liquidctl/ibcmsg"
)

type fakeTransport struct {
	submitErr error
	submitted []ibcmsg.Msg
	chunks    int
}

func (f *fakeTransport) RegisterICA(ctx context.Context, identifier string) error { return nil }

func (f *fakeTransport) SubmitTx(ctx context.Context, msgs []ibcmsg.Msg, memo string, timeout time.Duration) error {
	f.submitted = msgs
	return f.submitErr
}

func (f *fakeTransport) RegisterBalanceAndDelegationsQuery(ctx context.Context, validators []string, chunkSize int) (int, error) {
	chunks := (len(validators) + chunkSize - 1) / chunkSize
	f.chunks = chunks
	return chunks, nil
}

func newTestPuppeteer(t *testing.T, transport Transport) (*Puppeteer, crypto.Address) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sender := key.PubKey().Address()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "snapshots.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := NewSnapshotStore(db)
	require.NoError(t, err)

	p := New(Config{
		Transport:      transport,
		Snapshots:      store,
		AllowedSenders: []crypto.Address{sender},
		ICAIdentifier:  "DROP",
		TxTimeout:      time.Second,
	})
	return p, sender
}

func registerAndOpenICA(t *testing.T, p *Puppeteer, sender crypto.Address) {
	t.Helper()
	require.NoError(t, p.RegisterICA(context.Background(), sender))
	p.HandleICAOpenAck("ica1addr")
	require.Equal(t, ICARegistered, p.ICA().Phase)
}

func TestDelegateLifecycleSuccess(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)
	registerAndOpenICA(t, p, sender)

	var outcome *Outcome
	p.RegisterReplyHandler(KindDelegate, func(o Outcome) { outcome = &o })

	err := p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper1", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(100)}},
	})
	require.NoError(t, err)
	require.Equal(t, PhaseInProgress, p.State().Phase)

	require.NoError(t, p.HandleSubmitted("seq-1", "channel-1"))
	require.Equal(t, PhaseWaitingForAck, p.State().Phase)

	require.NoError(t, p.HandleAck(10, 20))
	require.Equal(t, PhaseIdle, p.State().Phase)
	require.NotNil(t, outcome)
	require.True(t, outcome.Success)
	require.Equal(t, KindDelegate, outcome.Kind)
}

func TestSecondSubmissionWhileInFlightIsRejected(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)
	registerAndOpenICA(t, p, sender)

	require.NoError(t, p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper1", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(1)}},
	}))

	err := p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper2", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(1)}},
	})
	require.ErrorIs(t, err, coreerrors.ErrInvalidTxState)
}

func TestSubmitRejectsUnregisteredICA(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)

	err := p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper1", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(1)}},
	})
	require.ErrorIs(t, err, coreerrors.ErrICANotRegistered)
}

func TestSubmitRejectsDisallowedSender(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)
	registerAndOpenICA(t, p, sender)

	outsiderKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	err = p.Delegate(context.Background(), outsiderKey.PubKey().Address(), "ica1addr", nil)
	require.ErrorIs(t, err, coreerrors.ErrSenderNotAllowed)
}

func TestTimeoutMarksICATimeoutAndResetsTxState(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)
	registerAndOpenICA(t, p, sender)

	require.NoError(t, p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper1", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(1)}},
	}))
	require.NoError(t, p.HandleSubmitted("seq-1", "channel-1"))
	require.NoError(t, p.HandleTimeout())

	require.Equal(t, PhaseIdle, p.State().Phase)
	require.Equal(t, ICATimeout, p.ICA().Phase)

	err := p.Delegate(context.Background(), sender, "ica1addr", []ibcmsg.MsgDelegate{
		{ValidatorAddress: "valoper1", Amount: ibcmsg.Coin{Denom: "uatom", Amount: big.NewInt(1)}},
	})
	require.ErrorIs(t, err, coreerrors.ErrICANotRegistered)
}

func TestSudoOutOfBandIsHardError(t *testing.T) {
	transport := &fakeTransport{}
	p, _ := newTestPuppeteer(t, transport)

	err := p.HandleAck(1, 2)
	require.ErrorIs(t, err, coreerrors.ErrSudoOutOfBand)
}

func TestICQChunkReconstructionAdvancesPointer(t *testing.T) {
	transport := &fakeTransport{}
	p, _ := newTestPuppeteer(t, transport)

	snap, err := p.HandleICQChunk(100, 0, 2, []ValidatorDelegation{
		{Operator: "valoper1", Amount: big.NewInt(10), ShareRatio: big.NewRat(1, 1)},
	}, big.NewInt(5))
	require.NoError(t, err)
	require.False(t, snap.Complete())

	_, ok, err := p.LatestCompleteSnapshot()
	require.NoError(t, err)
	require.False(t, ok)

	snap, err = p.HandleICQChunk(100, 1, 2, []ValidatorDelegation{
		{Operator: "valoper2", Amount: big.NewInt(20), ShareRatio: big.NewRat(1, 1)},
	}, big.NewInt(3))
	require.NoError(t, err)
	require.True(t, snap.Complete())
	require.Equal(t, big.NewInt(30), snap.BondedTotal())
	require.Equal(t, big.NewInt(8), snap.HostBalance)

	latest, ok, err := p.LatestCompleteSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 100, latest.RemoteHeight)
}

func TestRegisterBalanceAndDelegationsQueryChunking(t *testing.T) {
	transport := &fakeTransport{}
	p, sender := newTestPuppeteer(t, transport)

	total, err := p.RegisterBalanceAndDelegatorDelegationsQuery(context.Background(), sender, []string{"v1", "v2", "v3"}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}
