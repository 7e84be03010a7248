package transport

//go:generate mockgen -destination=../cluster/mock_dialer_test.go -package=cluster github.com/maxpoletaev/gamemesh/transport Dialer

import (
	"context"
)

// Dialer opens connections to other nodes.
type Dialer interface {
	DialContext(ctx context.Context, addr string) (*Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, addr string) (*Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, addr string) (*Conn, error) {
	return f(ctx, addr)
}
