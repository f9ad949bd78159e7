package grpc

import (
	"context"

	"liquidctl/crypto"
	"liquidctl/ibcmsg"
)

// PumpTransport adapts Client to splitter.PumpTransport. It dispatches the
// reward-pump's IBC transfer through the same relayer sidecar connection
// Puppeteer uses, but deliberately bypasses Puppeteer's single-in-flight ICA
// gate and replyRouter: RewardsPump's transfer is a simplified host-local
// mirror hop (SPEC_FULL.md's reward-distribution section), not one of
// Puppeteer's ICA-authenticated transactions, so it has no sequence number
// to track and no ack/error/timeout callback to wait for. A synchronous
// Invoke that returns without error is treated as confirmation; Invoke
// returning an error is treated as a rollback signal. This keeps RewardsPump
// from colliding with Core's own KindIBCTransfer registration on Puppeteer's
// reply router, which already disambiguates native bond-in transfers from
// withdrawal payouts and has no slot for a third caller.
type PumpTransport struct {
	client *Client
}

// NewPumpTransport wraps client for splitter.PumpTransport use.
func NewPumpTransport(client *Client) *PumpTransport {
	return &PumpTransport{client: client}
}

// IBCTransfer implements splitter.PumpTransport.
func (t *PumpTransport) IBCTransfer(ctx context.Context, sender crypto.Address, msg ibcmsg.MsgTransfer) error {
	return t.client.invoke(ctx, "SubmitTx", &SubmitTxRequest{
		Msgs: []MsgWire{{TypeURL: msg.TypeURL(), Payload: msg}},
		Memo: "",
	}, &Ack{})
}
