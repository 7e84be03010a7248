// Package transport carries message frames between cluster nodes. A Conn is a
// bidirectional, ordered stream of frames; the framing itself is provided by
// the underlying link (a gRPC stream or an in-memory pipe).
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/message"
)

var ErrClosed = errors.New("connection closed")

// link is a framed byte stream. recv returns io.EOF once the remote side has
// gone away in an orderly way.
type link interface {
	send(frame []byte) error
	recv() ([]byte, error)
	close() error
}

// Conn is a connection to another node. Sends are serialized, reads happen on
// the goroutine running Serve, one frame at a time in arrival order.
type Conn struct {
	id         ulid.ULID
	remoteAddr string
	link       link

	sendMut   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	closeErr  error

	mut        sync.Mutex
	tag        membership.Key
	tagged     bool
	attachment any
	onClose    []func()
}

func newConn(l link, remoteAddr string) *Conn {
	return &Conn{
		id:         ulid.Make(),
		remoteAddr: remoteAddr,
		link:       l,
		done:       make(chan struct{}),
	}
}

// ID is a unique connection id, useful for correlating logs.
func (c *Conn) ID() ulid.ULID {
	return c.id
}

func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

func (c *Conn) String() string {
	if key, ok := c.Tag(); ok {
		return fmt.Sprintf("%s(%s)", key, c.remoteAddr)
	}

	return c.remoteAddr
}

// SetTag records which server is on the other side of the connection.
func (c *Conn) SetTag(key membership.Key) {
	c.mut.Lock()
	c.tag, c.tagged = key, true
	c.mut.Unlock()
}

// Tag returns the key set with SetTag, if any.
func (c *Conn) Tag() (membership.Key, bool) {
	c.mut.Lock()
	defer c.mut.Unlock()

	return c.tag, c.tagged
}

// SetAttachment stores an arbitrary value owned by whoever serves the
// connection. Message handlers use it to find their session.
func (c *Conn) SetAttachment(v any) {
	c.mut.Lock()
	c.attachment = v
	c.mut.Unlock()
}

func (c *Conn) Attachment() any {
	c.mut.Lock()
	defer c.mut.Unlock()

	return c.attachment
}

// OnClose registers f to run once the connection is closed. If it is already
// closed, f runs immediately.
func (c *Conn) OnClose(f func()) {
	c.mut.Lock()

	select {
	case <-c.done:
		c.mut.Unlock()
		f()

		return
	default:
	}

	c.onClose = append(c.onClose, f)
	c.mut.Unlock()
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send encodes and writes a single message.
func (c *Conn) Send(m message.Message) error {
	frame, err := message.Marshal(m)
	if err != nil {
		return err
	}

	return c.SendFrame(frame)
}

// SendFrame writes an already encoded frame.
func (c *Conn) SendFrame(frame []byte) error {
	if c.IsClosed() {
		return ErrClosed
	}

	c.sendMut.Lock()
	defer c.sendMut.Unlock()

	if err := c.link.send(frame); err != nil {
		if c.IsClosed() {
			return ErrClosed
		}

		return fmt.Errorf("send: %w", err)
	}

	return nil
}

// Serve reads frames and passes each of them to handle, until the connection
// is closed, the remote side goes away, or handle returns an error. The
// connection is always closed when Serve returns. A locally closed connection
// and an orderly remote shutdown both yield a nil error.
func (c *Conn) Serve(handle func(frame []byte) error) error {
	defer c.Close()

	for {
		frame, err := c.link.recv()

		if c.IsClosed() {
			return nil
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("receive: %w", err)
		}

		if err := handle(frame); err != nil {
			return err
		}
	}
}

// Close closes the connection and runs the close hooks. It is safe to call
// multiple times, only the first call has an effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mut.Lock()
		close(c.done)
		hooks := c.onClose
		c.onClose = nil
		c.mut.Unlock()

		c.closeErr = c.link.close()

		for _, f := range hooks {
			f()
		}
	})

	return c.closeErr
}
