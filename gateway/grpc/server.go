package grpc

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"liquidctl/domain/puppeteer"
)

// Config configures the relayer callback gRPC listener.
type Config struct {
	ListenAddr   string
	SharedSecret string // relayer sidecar authenticates with this shared secret, network/auth.go's NewTokenAuthenticator pattern
}

// Server wraps a grpc.Server bound to the puppeteer callback service.
type Server struct {
	grpcServer *grpc.Server
	listenAddr string
}

// NewServer constructs the callback gRPC server. It does not start
// listening until Serve is called.
func NewServer(cfg Config, pup *puppeteer.Puppeteer) *Server {
	var opts []grpc.ServerOption
	opts = append(opts, grpc.ForceServerCodec(jsonCodec{}))
	if secret := strings.TrimSpace(cfg.SharedSecret); secret != "" {
		opts = append(opts, grpc.UnaryInterceptor(tokenAuthInterceptor(secret)))
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, &callbackServer{pup: pup})
	return &Server{grpcServer: srv, listenAddr: cfg.ListenAddr}
}

// Serve binds the configured listen address and blocks serving RPCs until
// the listener errors or the server is stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("gateway/grpc: listen %s: %w", s.listenAddr, err)
	}
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server, letting in-flight RPCs finish.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// tokenAuthInterceptor rejects any call whose "authorization" metadata
// doesn't carry the configured shared secret (bare or "Bearer "-prefixed),
// adapted from network/auth.go's NewTokenAuthenticator for this package's
// single always-on secret rather than a pluggable Authenticator chain.
func tokenAuthInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "gateway/grpc: missing metadata")
		}
		for _, value := range md.Get("authorization") {
			token := strings.TrimSpace(value)
			if constantTimeEqual(token, secret) {
				return handler(ctx, req)
			}
			if len(token) >= len("bearer ") && strings.EqualFold(token[:len("bearer ")], "bearer ") {
				if constantTimeEqual(strings.TrimSpace(token[len("bearer "):]), secret) {
					return handler(ctx, req)
				}
			}
		}
		return nil, status.Error(codes.Unauthenticated, "gateway/grpc: invalid or missing shared secret")
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
