package puppeteer

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind discriminates the remote transaction types the
// Puppeteer serializes over its single ICA.
type TransactionKind string

const (
	KindDelegate       TransactionKind = "delegate"
	KindUndelegate     TransactionKind = "undelegate"
	KindRedelegate     TransactionKind = "redelegate"
	KindTokenizeShares TransactionKind = "tokenize_shares"
	KindRedeemShares   TransactionKind = "redeem_shares"
	KindClaimRewards   TransactionKind = "claim_rewards"
	KindTransfer       TransactionKind = "transfer"
	KindSetupProtocol  TransactionKind = "setup_protocol"
	KindIBCTransfer    TransactionKind = "ibc_transfer"
)

// Phase is the Puppeteer's TxState discriminant. At most one non-Idle
// phase may be active at a time; Core must observe Idle before
// dispatching a new remote transaction.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseWaitingForAck
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in_progress"
	case PhaseWaitingForAck:
		return "waiting_for_ack"
	default:
		return "unknown"
	}
}

// TxState is the Puppeteer's singleton in-flight transaction record.
type TxState struct {
	Phase Phase

	// CorrelationID is a client-side id independent of the on-wire seq_id,
	// minted fresh for every submission so callers can trace a single
	// transaction's lifecycle through logs even before the chain assigns
	// a sequence number.
	CorrelationID string
	Kind          TransactionKind
	SubmittedAt   time.Time

	// SeqID and Channel are bound once the submit reply arrives
	// (InProgress -> WaitingForAck).
	SeqID   string
	Channel string
}

func newInProgress(kind TransactionKind) TxState {
	return TxState{
		Phase:         PhaseInProgress,
		CorrelationID: uuid.NewString(),
		Kind:          kind,
		SubmittedAt:   time.Now().UTC(),
	}
}

// Outcome is delivered to the originating reply handler once a
// transaction resolves, successfully or not.
type Outcome struct {
	Kind         TransactionKind
	Success      bool
	Timeout      bool
	LocalHeight  uint64
	RemoteHeight uint64
	Err          error
}

// ReplyHandler is invoked with the terminal Outcome of a transaction kind
// it was registered for.
type ReplyHandler func(Outcome)
