package grpc

import "liquidctl/domain/puppeteer"

// SubmittedRequest reports the on-wire sequence id and source channel once
// the relayer has broadcast a submitted transaction, mirroring
// puppeteer.Puppeteer.HandleSubmitted's parameters.
type SubmittedRequest struct {
	SeqID   string `json:"seq_id"`
	Channel string `json:"channel"`
}

// AckRequest reports a successful transaction acknowledgement.
type AckRequest struct {
	LocalHeight  uint64 `json:"local_height"`
	RemoteHeight uint64 `json:"remote_height"`
}

// ErrorRequest reports a failed transaction.
type ErrorRequest struct {
	Details string `json:"details"`
}

// TimeoutRequest reports a timed-out transaction. It carries no fields of
// its own; the relayer distinguishes it from ErrorRequest by RPC method.
type TimeoutRequest struct{}

// ICAOpenAckRequest reports the host-chain channel handshake's open-ack,
// establishing the remote ICA address.
type ICAOpenAckRequest struct {
	Address string `json:"address"`
}

// ICATimeoutRequest reports that ICA channel registration itself timed out.
type ICATimeoutRequest struct{}

// ValidatorDelegationWire is the wire shape of one
// puppeteer.ValidatorDelegation row — *big.Int/*big.Rat don't round-trip
// through encoding/json without explicit string encoding.
type ValidatorDelegationWire struct {
	Operator        string `json:"operator"`
	Amount          string `json:"amount"`
	ShareRatioNum   string `json:"share_ratio_num,omitempty"`
	ShareRatioDenom string `json:"share_ratio_denom,omitempty"`
}

// ICQChunkRequest reports one chunk of a delegations-and-balances ICQ
// result, mirroring puppeteer.Puppeteer.HandleICQChunk's parameters.
type ICQChunkRequest struct {
	RemoteHeight     uint64                    `json:"remote_height"`
	ChunkIndex       int                       `json:"chunk_index"`
	TotalChunks      int                       `json:"total_chunks"`
	Delegations      []ValidatorDelegationWire `json:"delegations"`
	HostBalanceDelta string                    `json:"host_balance_delta"`
}

// Ack is the empty acknowledgement every callback RPC returns on success;
// errors are reported through the gRPC status, not a response field.
type Ack struct{}

func toValidatorDelegations(wire []ValidatorDelegationWire) []puppeteer.ValidatorDelegation {
	out := make([]puppeteer.ValidatorDelegation, 0, len(wire))
	for _, w := range wire {
		out = append(out, puppeteer.ValidatorDelegation{
			Operator:   w.Operator,
			Amount:     parseBigIntOrZero(w.Amount),
			ShareRatio: parseBigRatOrNil(w.ShareRatioNum, w.ShareRatioDenom),
		})
	}
	return out
}
