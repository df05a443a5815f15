package link

import (
	"io"
	"sync"
)

// pipeEnd is one end of an in-memory stream pair. Writes never block
// on the reader.
type pipeEnd struct {
	rx      chan []byte
	tx      chan []byte
	pending []byte
	closed  chan struct{}
	peer    *pipeEnd
	once    sync.Once
}

// Pipe creates two connected in-memory streams. Bytes written to one are
// read from the other.
func Pipe() (io.ReadWriteCloser, io.ReadWriteCloser) {
	ab, ba := make(chan []byte, 1024), make(chan []byte, 1024)
	a := &pipeEnd{rx: ba, tx: ab, closed: make(chan struct{})}
	b := &pipeEnd{rx: ab, tx: ba, closed: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Read(buf []byte) (int, error) {
	for len(p.pending) == 0 {
		select {
		case data := <-p.rx:
			p.pending = data
		case <-p.closed:
			return 0, io.EOF
		case <-p.peer.closed:
			select {
			case data := <-p.rx:
				p.pending = data
			default:
				return 0, io.EOF
			}
		}
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *pipeEnd) Write(data []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-p.peer.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	select {
	case p.tx <- append([]byte{}, data...):
		return len(data), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-p.peer.closed:
		return 0, io.ErrClosedPipe
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
