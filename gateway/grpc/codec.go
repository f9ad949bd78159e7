// Package grpc exposes the internal gRPC surface the daemon listens on for
// its puppeteer's ICA relayer sidecar: the asynchronous sudo ack/error/
// timeout and ICQ-result callbacks that puppeteer.Puppeteer resolves
// in-process (puppeteer.go's HandleAck/HandleError/HandleTimeout/
// HandleICQChunk).
//
// The relayer sidecar and this daemon are two halves of one deployment unit
// speaking a private wire contract, not a public API consumed by third-party
// clients — so, rather than require a protoc toolchain to generate the usual
// proto.Message request/response types, the service registers a JSON codec
// (encoding.RegisterCodec, the same extension point protoc-gen-go-grpc
// itself targets) and a hand-written grpc.ServiceDesc over plain structs.
// google.golang.org/grpc's transport, framing, interceptor chain, and
// health/reflection machinery are all exercised unmodified; only the
// message encoding differs from protobuf wire format.
package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpc: marshal json codec: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpc: unmarshal json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }
