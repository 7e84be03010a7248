package transport

import (
	"io"
	"sync"
)

// Pipe returns two connected in-memory connections. Frames written to one
// side are read from the other in order. Writes never block. Closing either
// side closes both; frames already queued are still delivered to the reader.
func Pipe() (*Conn, *Conn) {
	p := &pipe{closed: make(chan struct{})}
	a := &pipeEnd{pipe: p, ready: make(chan struct{}, 1)}
	b := &pipeEnd{pipe: p, ready: make(chan struct{}, 1)}
	a.peer, b.peer = b, a

	return newConn(a, "pipe:a"), newConn(b, "pipe:b")
}

type pipe struct {
	once   sync.Once
	closed chan struct{}
}

type pipeEnd struct {
	*pipe
	peer  *pipeEnd
	mut   sync.Mutex
	queue [][]byte
	ready chan struct{}
}

func (e *pipeEnd) send(frame []byte) error {
	select {
	case <-e.closed:
		return io.ErrClosedPipe
	default:
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)

	e.peer.mut.Lock()
	e.peer.queue = append(e.peer.queue, buf)
	e.peer.mut.Unlock()

	select {
	case e.peer.ready <- struct{}{}:
	default:
	}

	return nil
}

func (e *pipeEnd) recv() ([]byte, error) {
	for {
		e.mut.Lock()

		if len(e.queue) > 0 {
			frame := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.mut.Unlock()

			return frame, nil
		}

		e.mut.Unlock()

		select {
		case <-e.ready:
		case <-e.closed:
			e.mut.Lock()
			empty := len(e.queue) == 0
			e.mut.Unlock()

			if empty {
				return nil, io.EOF
			}
		}
	}
}

func (e *pipeEnd) close() error {
	e.once.Do(func() {
		close(e.closed)
	})

	return nil
}
