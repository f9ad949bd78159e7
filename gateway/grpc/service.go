package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"liquidctl/domain/puppeteer"
)

// serviceName matches what a protoc-generated ServiceDesc.ServiceName would
// carry; kept here since there is no .proto file this was compiled from.
const serviceName = "liquidctl.puppeteer.v1.Callback"

// callbackServer implements the relayer-facing callback RPCs by forwarding
// directly to puppeteer.Puppeteer's Handle* methods — this package adds no
// domain logic of its own, only transport.
type callbackServer struct {
	pup *puppeteer.Puppeteer
}

func (s *callbackServer) reportSubmitted(_ context.Context, req *SubmittedRequest) (*Ack, error) {
	if err := s.pup.HandleSubmitted(req.SeqID, req.Channel); err != nil {
		return nil, fmt.Errorf("callback: handle submitted: %w", err)
	}
	return &Ack{}, nil
}

func (s *callbackServer) reportAck(_ context.Context, req *AckRequest) (*Ack, error) {
	if err := s.pup.HandleAck(req.LocalHeight, req.RemoteHeight); err != nil {
		return nil, fmt.Errorf("callback: handle ack: %w", err)
	}
	return &Ack{}, nil
}

func (s *callbackServer) reportError(_ context.Context, req *ErrorRequest) (*Ack, error) {
	if err := s.pup.HandleError(req.Details); err != nil {
		return nil, fmt.Errorf("callback: handle error: %w", err)
	}
	return &Ack{}, nil
}

func (s *callbackServer) reportTimeout(_ context.Context, _ *TimeoutRequest) (*Ack, error) {
	if err := s.pup.HandleTimeout(); err != nil {
		return nil, fmt.Errorf("callback: handle timeout: %w", err)
	}
	return &Ack{}, nil
}

func (s *callbackServer) reportICAOpenAck(_ context.Context, req *ICAOpenAckRequest) (*Ack, error) {
	s.pup.HandleICAOpenAck(req.Address)
	return &Ack{}, nil
}

func (s *callbackServer) reportICATimeout(_ context.Context, _ *ICATimeoutRequest) (*Ack, error) {
	s.pup.HandleICATimeout()
	return &Ack{}, nil
}

func (s *callbackServer) reportICQChunk(_ context.Context, req *ICQChunkRequest) (*Ack, error) {
	_, err := s.pup.HandleICQChunk(
		req.RemoteHeight,
		req.ChunkIndex,
		req.TotalChunks,
		toValidatorDelegations(req.Delegations),
		parseBigIntOrZero(req.HostBalanceDelta),
	)
	if err != nil {
		return nil, fmt.Errorf("callback: handle icq chunk: %w", err)
	}
	return &Ack{}, nil
}

func unaryHandler[Req any](fn func(*callbackServer, context.Context, *Req) (*Ack, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(*callbackServer)
		if interceptor == nil {
			return fn(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(s, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit for a Callback service with one unary RPC per puppeteer.
// Puppeteer Handle* method.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReportSubmitted", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *SubmittedRequest) (*Ack, error) { return s.reportSubmitted(ctx, r) })},
		{MethodName: "ReportAck", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *AckRequest) (*Ack, error) { return s.reportAck(ctx, r) })},
		{MethodName: "ReportError", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *ErrorRequest) (*Ack, error) { return s.reportError(ctx, r) })},
		{MethodName: "ReportTimeout", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *TimeoutRequest) (*Ack, error) { return s.reportTimeout(ctx, r) })},
		{MethodName: "ReportICAOpenAck", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *ICAOpenAckRequest) (*Ack, error) { return s.reportICAOpenAck(ctx, r) })},
		{MethodName: "ReportICATimeout", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *ICATimeoutRequest) (*Ack, error) { return s.reportICATimeout(ctx, r) })},
		{MethodName: "ReportICQChunk", Handler: unaryHandler(func(s *callbackServer, ctx context.Context, r *ICQChunkRequest) (*Ack, error) { return s.reportICQChunk(ctx, r) })},
	},
	Metadata: "liquidctl/gateway/grpc/callback.proto",
}
