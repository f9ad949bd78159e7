package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"liquidctl/ibcmsg"
)

// dispatchMethod is the companion outbound contract: the daemon calls the
// relayer sidecar to actually broadcast a transaction or register an ICQ,
// while the callback service above carries the sidecar's replies back in.
// Two directions, one private wire contract, same JSON codec.
const dispatchService = "liquidctl.relayer.v1.Dispatch"

// MsgWire is the JSON-safe envelope for one ibcmsg.Msg: TypeURL identifies
// the concrete type, Payload carries its fields. The relayer sidecar knows
// how to re-hydrate each TypeURL into the Cosmos SDK/Initia message it
// actually broadcasts.
type MsgWire struct {
	TypeURL string      `json:"type_url"`
	Payload ibcmsg.Msg `json:"payload"`
}

// SubmitTxRequest mirrors puppeteer.Transport.SubmitTx's parameters.
type SubmitTxRequest struct {
	Msgs       []MsgWire `json:"msgs"`
	Memo       string    `json:"memo"`
	TimeoutSec float64   `json:"timeout_seconds"`
}

// RegisterICARequest mirrors puppeteer.Transport.RegisterICA's parameters.
type RegisterICARequest struct {
	Identifier string `json:"identifier"`
}

// RegisterICQRequest mirrors puppeteer.Transport.
// RegisterBalanceAndDelegationsQuery's parameters.
type RegisterICQRequest struct {
	Validators []string `json:"validators"`
	ChunkSize  int      `json:"chunk_size"`
}

// RegisterICQResponse carries back the total chunk count the sidecar
// registered.
type RegisterICQResponse struct {
	TotalChunks int `json:"total_chunks"`
}

// ClientConfig configures the outbound connection to the relayer sidecar.
type ClientConfig struct {
	Addr         string
	SharedSecret string
}

// Client implements puppeteer.Transport over this package's JSON-codec
// gRPC contract, used to wire cmd/liquidctld's Puppeteer to a real relayer
// sidecar process.
type Client struct {
	conn   *grpc.ClientConn
	secret string
}

// Dial opens the client connection. Plaintext (insecure.NewCredentials) is
// appropriate only when the sidecar runs as a sibling container/process on
// a private network the shared secret already gates; production
// deployments should front this with mTLS the way network/security.go
// does for the p2p gRPC surface.
func Dial(cfg ClientConfig) (*Client, error) {
	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway/grpc: dial relayer %s: %w", cfg.Addr, err)
	}
	return &Client{conn: conn, secret: cfg.SharedSecret}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	fullMethod := fmt.Sprintf("/%s/%s", dispatchService, method)
	if c.secret != "" {
		ctx = withAuthToken(ctx, c.secret)
	}
	if err := c.conn.Invoke(ctx, fullMethod, req, resp); err != nil {
		return fmt.Errorf("gateway/grpc: invoke %s: %w", method, err)
	}
	return nil
}

// RegisterICA implements puppeteer.Transport.
func (c *Client) RegisterICA(ctx context.Context, identifier string) error {
	return c.invoke(ctx, "RegisterICA", &RegisterICARequest{Identifier: identifier}, &Ack{})
}

// SubmitTx implements puppeteer.Transport.
func (c *Client) SubmitTx(ctx context.Context, msgs []ibcmsg.Msg, memo string, timeout time.Duration) error {
	wire := make([]MsgWire, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, MsgWire{TypeURL: m.TypeURL(), Payload: m})
	}
	req := &SubmitTxRequest{Msgs: wire, Memo: memo, TimeoutSec: timeout.Seconds()}
	return c.invoke(ctx, "SubmitTx", req, &Ack{})
}

// RegisterBalanceAndDelegationsQuery implements puppeteer.Transport.
func (c *Client) RegisterBalanceAndDelegationsQuery(ctx context.Context, validators []string, chunkSize int) (int, error) {
	resp := &RegisterICQResponse{}
	req := &RegisterICQRequest{Validators: validators, ChunkSize: chunkSize}
	if err := c.invoke(ctx, "RegisterBalanceAndDelegationsQuery", req, resp); err != nil {
		return 0, err
	}
	return resp.TotalChunks, nil
}

func withAuthToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", token)
}
