// Package puppeteer implements the single-inflight interchain-account
// transaction engine: it serializes every remote staking/bank/
// distribution action over one ICA, enforces at-most-one-in-flight
// semantics, and routes sudo ack/error/timeout callbacks back to the
// component that originated the request. It also owns the chunked
// delegations-and-balances ICQ reconstruction.
package puppeteer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/events"
	"liquidctl/crypto"
	"liquidctl/ibcmsg"
	"liquidctl/observability"
)

// Transport abstracts the relayer sidecar the daemon talks to over gRPC
// (gateway/grpc): submitting ICA transactions and (re)registering ICQ
// chunks. The gRPC surface itself only carries bytes; Transport is where
// this package's domain types cross that boundary.
type Transport interface {
	RegisterICA(ctx context.Context, identifier string) error
	SubmitTx(ctx context.Context, msgs []ibcmsg.Msg, memo string, timeout time.Duration) error
	RegisterBalanceAndDelegationsQuery(ctx context.Context, validators []string, chunkSize int) (totalChunks int, err error)
}

// Puppeteer is the mutex-guarded single-inflight ICA engine.
type Puppeteer struct {
	mu sync.Mutex

	logger    *slog.Logger
	transport Transport
	snapshots *SnapshotStore
	emitter   events.Emitter

	allowedSenders []crypto.Address
	ica            ICAState
	tx             TxState
	replyRouter    map[TransactionKind]ReplyHandler

	txTimeout time.Duration
}

// Config configures a new Puppeteer.
type Config struct {
	Logger         *slog.Logger
	Transport      Transport
	Snapshots      *SnapshotStore
	Emitter        events.Emitter
	AllowedSenders []crypto.Address
	ICAIdentifier  string
	TxTimeout      time.Duration
}

// New constructs a Puppeteer in the ICANone/Idle state.
func New(cfg Config) *Puppeteer {
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Puppeteer{
		logger:         logger,
		transport:      cfg.Transport,
		snapshots:      cfg.Snapshots,
		emitter:        emitter,
		allowedSenders: cfg.AllowedSenders,
		ica:            ICAState{Phase: ICANone, Identifier: cfg.ICAIdentifier},
		tx:             TxState{Phase: PhaseIdle},
		replyRouter:    make(map[TransactionKind]ReplyHandler),
		txTimeout:      cfg.TxTimeout,
	}
}

// RegisterReplyHandler lets Core and the bond providers register the
// callback invoked when a transaction of the given kind resolves,
// mirroring the reply-id dispatch table the puppeteer's sudo handler
// consults once a kind is known.
func (p *Puppeteer) RegisterReplyHandler(kind TransactionKind, handler ReplyHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyRouter[kind] = handler
}

// State returns a copy of the current TxState.
func (p *Puppeteer) State() TxState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx
}

// ICA returns a copy of the current ICA lifecycle state.
func (p *Puppeteer) ICA() ICAState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ica
}

func (p *Puppeteer) requireAllowedSender(sender crypto.Address) error {
	if len(p.allowedSenders) == 0 {
		return nil
	}
	for _, allowed := range p.allowedSenders {
		if allowed.Equal(sender) {
			return nil
		}
	}
	return coreerrors.ErrSenderNotAllowed
}

// RegisterICA begins (or re-begins, after a Timeout) interchain-account
// registration. Only the Puppeteer may call this; Core and bond
// providers never touch ICA lifecycle directly.
func (p *Puppeteer) RegisterICA(ctx context.Context, sender crypto.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAllowedSender(sender); err != nil {
		return err
	}
	if p.ica.Phase == ICARegistered {
		return nil
	}
	if err := p.transport.RegisterICA(ctx, p.ica.Identifier); err != nil {
		return fmt.Errorf("puppeteer: register ica: %w", err)
	}
	p.ica.Phase = ICAInstantiated
	p.emitter.Emit(ICAStateChangedEvent{Phase: p.ica.Phase})
	return nil
}

// HandleICAOpenAck is called once the host-chain channel handshake's
// open-ack sudo establishes the remote ICA address.
func (p *Puppeteer) HandleICAOpenAck(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ica.Phase = ICARegistered
	p.ica.Address = address
	p.emitter.Emit(ICAStateChangedEvent{Phase: p.ica.Phase, Address: address})
}

// HandleICATimeout marks the ICA as timed out, blocking new submissions
// until RegisterICA is called again.
func (p *Puppeteer) HandleICATimeout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ica.Phase = ICATimeout
	p.emitter.Emit(ICAStateChangedEvent{Phase: p.ica.Phase})
}

// submit is the common Idle -> InProgress transition shared by every
// public Delegate/Undelegate/.../Transfer entry point. validate_tx_idle_state
// is the only path that may make this transition.
func (p *Puppeteer) submit(ctx context.Context, sender crypto.Address, kind TransactionKind, msgs []ibcmsg.Msg, memo string) error {
	p.mu.Lock()
	if err := p.requireAllowedSender(sender); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.tx.Phase != PhaseIdle {
		p.mu.Unlock()
		return coreerrors.ErrInvalidTxState
	}
	if p.ica.Phase != ICARegistered {
		p.mu.Unlock()
		return coreerrors.ErrICANotRegistered
	}
	p.tx = newInProgress(kind)
	correlationID := p.tx.CorrelationID
	p.mu.Unlock()

	observability.Puppeteer().SetInflight(true)
	observability.Puppeteer().RecordSubmission(string(kind), "submitted")
	p.emitter.Emit(TxSubmittedEvent{CorrelationID: correlationID, Kind: kind})
	p.logger.Info("puppeteer: submitting transaction", "kind", kind, "correlation_id", correlationID)

	timeout := p.txTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if err := p.transport.SubmitTx(ctx, msgs, memo, timeout); err != nil {
		p.resetToIdle()
		observability.Puppeteer().SetInflight(false)
		observability.Puppeteer().RecordSubmission(string(kind), "dispatch_error")
		return fmt.Errorf("puppeteer: submit tx: %w", err)
	}
	return nil
}

func (p *Puppeteer) resetToIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tx = TxState{Phase: PhaseIdle}
}

// HandleSubmitted binds the on-wire sequence id and channel once the
// host confirms broadcast receipt: InProgress -> WaitingForAck.
func (p *Puppeteer) HandleSubmitted(seqID, channel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx.Phase != PhaseInProgress {
		return coreerrors.ErrSudoOutOfBand
	}
	p.tx.Phase = PhaseWaitingForAck
	p.tx.SeqID = seqID
	p.tx.Channel = channel
	return nil
}

// HandleAck resolves a WaitingForAck transaction as successful, invoking
// the registered reply handler for its kind. Any sudo arriving outside
// WaitingForAck is a hard error, never silently dropped.
func (p *Puppeteer) HandleAck(localHeight, remoteHeight uint64) error {
	return p.resolve(Outcome{Success: true, LocalHeight: localHeight, RemoteHeight: remoteHeight})
}

// HandleError resolves a WaitingForAck transaction as failed.
func (p *Puppeteer) HandleError(details string) error {
	return p.resolve(Outcome{Success: false, Err: fmt.Errorf("puppeteer: remote error: %s", details)})
}

// HandleTimeout resolves a WaitingForAck transaction as timed out and
// marks the ICA as Timeout, blocking new submissions until re-registered.
func (p *Puppeteer) HandleTimeout() error {
	return p.resolve(Outcome{Success: false, Timeout: true, Err: coreerrors.ErrICATimeout})
}

func (p *Puppeteer) resolve(outcome Outcome) error {
	p.mu.Lock()
	if p.tx.Phase != PhaseWaitingForAck {
		p.mu.Unlock()
		return coreerrors.ErrSudoOutOfBand
	}
	kind := p.tx.Kind
	correlationID := p.tx.CorrelationID
	handler := p.replyRouter[kind]
	p.tx = TxState{Phase: PhaseIdle}
	if outcome.Timeout {
		p.ica.Phase = ICATimeout
	}
	p.mu.Unlock()

	outcome.Kind = kind
	observability.Puppeteer().SetInflight(false)
	status := "success"
	if !outcome.Success {
		status = "error"
		if outcome.Timeout {
			status = "timeout"
		}
	}
	observability.Puppeteer().RecordSubmission(string(kind), status)
	p.emitter.Emit(TxResolvedEvent{CorrelationID: correlationID, Kind: kind, Success: outcome.Success, Timeout: outcome.Timeout})
	p.logger.Info("puppeteer: transaction resolved", "kind", kind, "correlation_id", correlationID, "success", outcome.Success, "timeout", outcome.Timeout)

	if handler != nil {
		handler(outcome)
	}
	return nil
}

// Delegate submits a MsgDelegate per (validator, amount) pair.
func (p *Puppeteer) Delegate(ctx context.Context, sender crypto.Address, delegator string, items []ibcmsg.MsgDelegate) error {
	msgs := make([]ibcmsg.Msg, 0, len(items))
	for _, item := range items {
		item.DelegatorAddress = delegator
		msgs = append(msgs, item)
	}
	return p.submit(ctx, sender, KindDelegate, msgs, "")
}

// Undelegate submits a MsgUndelegate per (validator, amount) pair for the
// given unbond batch.
func (p *Puppeteer) Undelegate(ctx context.Context, sender crypto.Address, delegator string, items []ibcmsg.MsgUndelegate, batchID string) error {
	msgs := make([]ibcmsg.Msg, 0, len(items))
	for _, item := range items {
		item.DelegatorAddress = delegator
		msgs = append(msgs, item)
	}
	return p.submit(ctx, sender, KindUndelegate, msgs, batchID)
}

// Redelegate submits a MsgBeginRedelegate, optionally wrapped in an
// authz.MsgExec per config.Remote.WrapRedelegateInAuthzExec.
func (p *Puppeteer) Redelegate(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgBeginRedelegate, wrapInAuthzExec bool, grantee string) error {
	var built ibcmsg.Msg = msg
	if wrapInAuthzExec {
		built = ibcmsg.MsgExec{Grantee: grantee, Msgs: []ibcmsg.Msg{msg}}
	}
	return p.submit(ctx, sender, KindRedelegate, []ibcmsg.Msg{built}, "")
}

// TokenizeShares submits a MsgTokenizeShares. Only meaningful against a
// remote chain that supports LSM messages (config.Remote.SupportsLSM).
func (p *Puppeteer) TokenizeShares(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTokenizeShares) error {
	return p.submit(ctx, sender, KindTokenizeShares, []ibcmsg.Msg{msg}, "")
}

// RedeemShares submits one MsgRedeemTokensForShares per tokenized-share
// denom ready for redemption.
func (p *Puppeteer) RedeemShares(ctx context.Context, sender crypto.Address, items []ibcmsg.MsgRedeemTokensForShares) error {
	msgs := make([]ibcmsg.Msg, 0, len(items))
	for _, item := range items {
		msgs = append(msgs, item)
	}
	return p.submit(ctx, sender, KindRedeemShares, msgs, "")
}

// ClaimRewardsAndOptionalyTransfer withdraws delegator rewards from every
// validator and, if transfer is non-nil, folds a bank MsgSend into the
// same transaction to piggy-back a matured unbond batch's payout.
func (p *Puppeteer) ClaimRewardsAndOptionalyTransfer(ctx context.Context, sender crypto.Address, delegator string, validators []string, transfer *ibcmsg.MsgSend) error {
	msgs := make([]ibcmsg.Msg, 0, len(validators)+1)
	for _, valoper := range validators {
		msgs = append(msgs, ibcmsg.MsgWithdrawDelegatorReward{DelegatorAddress: delegator, ValidatorAddress: valoper})
	}
	if transfer != nil {
		msgs = append(msgs, *transfer)
	}
	return p.submit(ctx, sender, KindClaimRewards, msgs, "")
}

// Transfer submits a bank MsgSend from the ICA.
func (p *Puppeteer) Transfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgSend) error {
	return p.submit(ctx, sender, KindTransfer, []ibcmsg.Msg{msg}, "")
}

// IBCTransfer submits a bank-to-transfer-module MsgTransfer, used both to
// move newly bonded base asset to the ICA address and to return a
// matured unbond batch's payout back to the withdrawal manager.
func (p *Puppeteer) IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error {
	return p.submit(ctx, sender, KindIBCTransfer, []ibcmsg.Msg{msg}, "")
}

// SetupProtocol issues the one-time distribution set-withdraw-address
// call, redirecting the ICA's staking rewards to the withdrawal manager.
func (p *Puppeteer) SetupProtocol(ctx context.Context, sender crypto.Address, delegator, rewardsWithdrawAddress string) error {
	msg := ibcmsg.MsgSetWithdrawAddress{DelegatorAddress: delegator, WithdrawAddress: rewardsWithdrawAddress}
	return p.submit(ctx, sender, KindSetupProtocol, []ibcmsg.Msg{msg}, "")
}

// RegisterBalanceAndDelegatorDelegationsQuery (re)registers the ICQ
// chunks covering validators. This does not take the TxState lock: ICQ
// registration is a query subscription, not an ICA transaction.
func (p *Puppeteer) RegisterBalanceAndDelegatorDelegationsQuery(ctx context.Context, sender crypto.Address, validators []string, chunkSize int) (int, error) {
	if err := p.requireAllowedSender(sender); err != nil {
		return 0, err
	}
	if chunkSize <= 0 {
		chunkSize = len(validators)
	}
	totalChunks, err := p.transport.RegisterBalanceAndDelegationsQuery(ctx, validators, chunkSize)
	if err != nil {
		return 0, fmt.Errorf("puppeteer: register icq: %w", err)
	}
	return totalChunks, nil
}

// HandleICQChunk folds one chunk of a delegations-and-balances ICQ result
// into the snapshot for remoteHeight, advancing the completeness pointer
// once every chunk has arrived. Snapshots are independent of the TxState
// lock: ICQ results are observational and may arrive between, or
// alongside, in-flight transactions.
func (p *Puppeteer) HandleICQChunk(remoteHeight uint64, chunkIndex, totalChunks int, delegations []ValidatorDelegation, hostBalanceDelta *big.Int) (*Snapshot, error) {
	snap, err := p.snapshots.MergeChunk(remoteHeight, chunkIndex, totalChunks, delegations, hostBalanceDelta)
	if err != nil {
		return nil, fmt.Errorf("puppeteer: merge icq chunk: %w", err)
	}
	return snap, nil
}

// LatestCompleteSnapshot returns the most recently completed delegations-
// and-balances snapshot, if any. Core must not use a snapshot staler than
// icq_update_delay blocks behind the current height for stake/unbond
// decisions.
func (p *Puppeteer) LatestCompleteSnapshot() (*Snapshot, bool, error) {
	return p.snapshots.LatestComplete()
}
