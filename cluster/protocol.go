// Package cluster implements the master/slave membership protocol on top of
// transport connections, and the peer mesh that nodes build from membership
// events.
package cluster

import (
	"errors"
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/message"
	"github.com/maxpoletaev/gamemesh/router"
	"github.com/maxpoletaev/gamemesh/transport"
)

// Request is the context every handler receives: the decoded message and the
// connection it arrived on.
type Request struct {
	Conn    *transport.Conn
	Message message.Message
}

// Router dispatches decoded messages to handlers taking a *Request.
type Router = router.Router[message.Message, *Request]

// Executor runs application handler invocations. Membership messages are
// always handled inline on the connection's read goroutine.
type Executor func(inv router.Invoker)

// InlineExecutor runs the invocation on the calling goroutine, which keeps
// the per-connection arrival order.
func InlineExecutor(inv router.Invoker) {
	inv.Invoke()
}

type invokerFunc func()

func (f invokerFunc) Invoke() { f() }

// Protocol is the message vocabulary and handler table shared by every
// Master and Slave in the process.
type Protocol struct {
	Messages *message.Registry
	Router   *Router
	Executor Executor
	Metrics  *Metrics
	logger   kitlog.Logger
}

// NewProtocol creates a protocol with the membership messages and their
// handlers already registered.
func NewProtocol(logger kitlog.Logger, metrics *Metrics) (*Protocol, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	p := &Protocol{
		Messages: message.NewRegistry(),
		Router:   router.New[message.Message, *Request](logger),
		Executor: InlineExecutor,
		Metrics:  metrics,
		logger:   logger,
	}

	if err := p.Messages.Register(membership.Messages()...); err != nil {
		return nil, fmt.Errorf("register membership messages: %w", err)
	}

	if err := p.Router.Register(membershipHandlers(), nil); err != nil {
		return nil, fmt.Errorf("register membership handlers: %w", err)
	}

	return p, nil
}

// RegisterMessages adds application message types. Ids in the membership
// range are refused.
func (p *Protocol) RegisterMessages(ctors ...func() message.Message) error {
	for i, ctor := range ctors {
		m, err := message.Construct(ctor)
		if err != nil {
			return fmt.Errorf("constructor %d: %w", i, err)
		}

		if id := m.MessageID(); membership.IsControl(id) {
			return fmt.Errorf("%w: %s", ErrReservedID, id)
		}
	}

	return p.Messages.Register(ctors...)
}

// Handle registers an application handler container.
func (p *Protocol) Handle(c router.Container, factory router.InstanceFactory) error {
	return p.Router.Register(c, factory)
}

func (p *Protocol) recovering(inv router.Invoker) router.Invoker {
	return invokerFunc(func() {
		defer func() {
			if r := recover(); r != nil {
				level.Error(p.logger).Log("msg", "handler panicked", "handler", fmt.Sprint(inv), "panic", r)
			}
		}()

		inv.Invoke()
	})
}

// serve runs the read loop of conn. Frames are decoded and dispatched in
// arrival order. An unknown message id ends the connection, a malformed
// payload only drops that message. admit decides which decoded messages the
// connection may receive in its current state.
func (p *Protocol) serve(conn *transport.Conn, admit func(message.ID) bool, logger kitlog.Logger) error {
	newRequest := func(m message.Message) *Request {
		return &Request{Conn: conn, Message: m}
	}

	inline := func(inv router.Invoker) {
		p.recovering(inv).Invoke()
	}

	executor := func(inv router.Invoker) {
		p.Executor(p.recovering(inv))
	}

	return conn.Serve(func(frame []byte) error {
		m, err := p.Messages.Unmarshal(frame)

		switch {
		case errors.Is(err, message.ErrUnknownMessage):
			p.Metrics.frameReceived("unknown")
			return err
		case err != nil:
			p.Metrics.frameReceived("malformed")
			level.Warn(logger).Log("msg", "dropping malformed message", "err", err)

			return nil
		}

		if !admit(m.MessageID()) {
			p.Metrics.frameReceived("rejected")
			return fmt.Errorf("%w: %s", ErrUnexpectedMessage, message.Name(m))
		}

		p.Metrics.frameReceived("ok")

		consume := executor
		if membership.IsControl(m.MessageID()) {
			consume = inline
		}

		if !p.Router.Request(m, newRequest, consume) {
			p.Metrics.unboundMessage()
		}

		return nil
	})
}
