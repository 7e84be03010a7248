package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const streamMethod = "/gamemesh.Link/Stream"

// linkServer is implemented by Server. Every gRPC stream is one connection and
// every stream message carries exactly one frame.
type linkServer interface {
	serveStream(stream grpc.ServerStream) error
}

var linkServiceDesc = grpc.ServiceDesc{
	ServiceName: "gamemesh.Link",
	HandlerType: (*linkServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       linkStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

func linkStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(linkServer).serveStream(stream)
}

func isStreamEnd(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}

	switch status.Code(err) {
	case codes.Canceled, codes.Unavailable:
		return true
	}

	return false
}

// msgStream is the part of grpc.ClientStream and grpc.ServerStream a link uses.
type msgStream interface {
	SendMsg(m interface{}) error
	RecvMsg(m interface{}) error
}

type grpcLink struct {
	stream  msgStream
	closeFn func() error
}

func (l *grpcLink) send(frame []byte) error {
	return l.stream.SendMsg(&wrapperspb.BytesValue{Value: frame})
}

func (l *grpcLink) recv() ([]byte, error) {
	msg := new(wrapperspb.BytesValue)

	if err := l.stream.RecvMsg(msg); err != nil {
		if isStreamEnd(err) {
			return nil, io.EOF
		}

		return nil, err
	}

	return msg.Value, nil
}

func (l *grpcLink) close() error {
	return l.closeFn()
}

// Server accepts connections over gRPC and hands each of them to the accept
// callback. The callback is expected to start serving the connection; the
// underlying stream lives until the connection is closed.
type Server struct {
	grpcServer *grpc.Server
	accept     func(*Conn)
	logger     kitlog.Logger
}

func NewServer(accept func(*Conn), logger kitlog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	opts = append([]grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}, opts...)

	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		accept:     accept,
		logger:     logger,
	}

	s.grpcServer.RegisterService(&linkServiceDesc, s)

	return s
}

func (s *Server) serveStream(stream grpc.ServerStream) error {
	addr := "unknown"
	if p, ok := peer.FromContext(stream.Context()); ok && p.Addr != nil {
		addr = p.Addr.String()
	}

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	conn := newConn(&grpcLink{
		stream: stream,
		closeFn: func() error {
			cancel()
			return nil
		},
	}, addr)

	level.Debug(s.logger).Log("msg", "connection accepted", "conn_id", conn.ID(), "addr", addr)

	s.accept(conn)

	// Returning from the handler terminates the stream.
	select {
	case <-conn.Done():
	case <-ctx.Done():
		_ = conn.Close()
	}

	return nil
}

// Serve accepts gRPC connections on the listener. It blocks until Stop is
// called or the listener fails.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}

	return nil
}

// Stop closes the listener and every open stream.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// GRPCDialer opens connections to a Server.
type GRPCDialer struct {
	opts []grpc.DialOption
}

// NewGRPCDialer creates a dialer with plaintext credentials and client-side
// keepalive. Extra options are applied after the defaults.
func NewGRPCDialer(opts ...grpc.DialOption) *GRPCDialer {
	return &GRPCDialer{opts: opts}
}

// DialContext connects to addr and opens the link stream. It blocks until the
// connection is ready or the context is canceled.
func (d *GRPCDialer) DialContext(ctx context.Context, addr string) (*Conn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithBlock(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}, d.opts...)

	grpcConn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial failed: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := grpcConn.NewStream(streamCtx, &linkServiceDesc.Streams[0], streamMethod)
	if err != nil {
		cancel()
		_ = grpcConn.Close()

		return nil, fmt.Errorf("open stream: %w", err)
	}

	return newConn(&grpcLink{
		stream: stream,
		closeFn: func() error {
			cancel()
			return grpcConn.Close()
		},
	}, addr), nil
}
