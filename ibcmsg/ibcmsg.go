// Package ibcmsg defines the on-wire Cosmos SDK / Initia message types the
// Puppeteer assembles into interchain-account transactions, plus the
// stargate query types used for denom-trace resolution. These are plain
// Go structs carrying the fields the remote chain's message handlers need;
// encoding to the host chain's wire format is the relayer sidecar's job,
// reached over the gRPC surface in gateway/grpc.
package ibcmsg

import "math/big"

// Type URLs for every message kind consumed by this control plane (spec
// §6 "Messages consumed").
const (
	TypeURLMsgSend                    = "/cosmos.bank.v1beta1.MsgSend"
	TypeURLMsgDelegate                = "/cosmos.staking.v1beta1.MsgDelegate"
	TypeURLMsgUndelegate              = "/cosmos.staking.v1beta1.MsgUndelegate"
	TypeURLMsgBeginRedelegate         = "/cosmos.staking.v1beta1.MsgBeginRedelegate"
	TypeURLMsgRedeemTokensForShares   = "/cosmos.staking.v1beta1.MsgRedeemTokensForShares"
	TypeURLMsgTokenizeShares          = "/cosmos.staking.v1beta1.MsgTokenizeShares"
	TypeURLMsgSetWithdrawAddress      = "/cosmos.distribution.v1beta1.MsgSetWithdrawAddress"
	TypeURLMsgWithdrawDelegatorReward = "/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward"
	TypeURLMsgExec                    = "/cosmos.authz.v1beta1.MsgExec"

	// Initia-style mstaking variants, used when config.Remote marks the
	// host chain as Initia-compatible (denom strings are prefixed "move/").
	TypeURLMstakingMsgDelegate        = "/initia.mstaking.v1.MsgDelegate"
	TypeURLMstakingMsgUndelegate      = "/initia.mstaking.v1.MsgUndelegate"
	TypeURLMstakingMsgBeginRedelegate = "/initia.mstaking.v1.MsgBeginRedelegate"

	TypeURLMsgTransfer = "/ibc.applications.transfer.v1.MsgTransfer"

	QueryDenomTrace = "/ibc.applications.transfer.v1.Query/DenomTrace"
)

// Coin mirrors cosmos.base.v1beta1.Coin.
type Coin struct {
	Denom  string
	Amount *big.Int
}

// Msg is implemented by every message type in this package so the
// Puppeteer can build a single ordered slice regardless of kind.
type Msg interface {
	TypeURL() string
}

type MsgSend struct {
	FromAddress string
	ToAddress   string
	Amount      []Coin
}

func (MsgSend) TypeURL() string { return TypeURLMsgSend }

type MsgDelegate struct {
	DelegatorAddress string
	ValidatorAddress string
	Amount           Coin
}

func (MsgDelegate) TypeURL() string { return TypeURLMsgDelegate }

type MsgUndelegate struct {
	DelegatorAddress string
	ValidatorAddress string
	Amount           Coin
}

func (MsgUndelegate) TypeURL() string { return TypeURLMsgUndelegate }

type MsgBeginRedelegate struct {
	DelegatorAddress    string
	ValidatorSrcAddress string
	ValidatorDstAddress string
	Amount              Coin
}

func (MsgBeginRedelegate) TypeURL() string { return TypeURLMsgBeginRedelegate }

type MsgRedeemTokensForShares struct {
	DelegatorAddress string
	Amount           Coin
}

func (MsgRedeemTokensForShares) TypeURL() string { return TypeURLMsgRedeemTokensForShares }

type MsgTokenizeShares struct {
	DelegatorAddress    string
	ValidatorAddress    string
	Amount              Coin
	TokenizedShareOwner string
}

func (MsgTokenizeShares) TypeURL() string { return TypeURLMsgTokenizeShares }

type MsgSetWithdrawAddress struct {
	DelegatorAddress string
	WithdrawAddress  string
}

func (MsgSetWithdrawAddress) TypeURL() string { return TypeURLMsgSetWithdrawAddress }

type MsgWithdrawDelegatorReward struct {
	DelegatorAddress string
	ValidatorAddress string
}

func (MsgWithdrawDelegatorReward) TypeURL() string { return TypeURLMsgWithdrawDelegatorReward }

// MsgExec wraps inner messages to be executed on behalf of Grantee by
// Grantee's own authorization, used to batch withdraw-reward calls
// (spec §6) when config.Remote.WrapRedelegateInAuthzExec is set.
type MsgExec struct {
	Grantee string
	Msgs    []Msg
}

func (MsgExec) TypeURL() string { return TypeURLMsgExec }

// MstakingMsgDelegate is the Initia-style sibling of MsgDelegate, selected
// when the remote chain's denom prefix is "move/".
type MstakingMsgDelegate struct {
	DelegatorAddress string
	ValidatorAddress string
	Amount           []Coin
}

func (MstakingMsgDelegate) TypeURL() string { return TypeURLMstakingMsgDelegate }

type MstakingMsgUndelegate struct {
	DelegatorAddress string
	ValidatorAddress string
	Amount           []Coin
}

func (MstakingMsgUndelegate) TypeURL() string { return TypeURLMstakingMsgUndelegate }

type MstakingMsgBeginRedelegate struct {
	DelegatorAddress    string
	ValidatorSrcAddress string
	ValidatorDstAddress string
	Amount              []Coin
}

func (MstakingMsgBeginRedelegate) TypeURL() string { return TypeURLMstakingMsgBeginRedelegate }

// MsgTransfer moves base-asset over the transfer channel, either from the
// controller chain to the ICA address (bonding) or back (unbonding
// payout). The generic IBC-transfer "mirror" hop helper consumes the
// same message shape (spec.md's out-of-scope collaborator).
type MsgTransfer struct {
	SourceChannel string
	Token         Coin
	Sender        string
	Receiver      string
	TimeoutSecs   uint64
}

func (MsgTransfer) TypeURL() string { return TypeURLMsgTransfer }

// DenomTraceQuery and DenomTraceResponse model the stargate query used to
// resolve an IBC-denominated tokenized-share deposit back to its base
// denom (spec §4.3.2 step 1, §6).
type DenomTraceQuery struct {
	Hash string
}

type DenomTrace struct {
	Path      string
	BaseDenom string
}
