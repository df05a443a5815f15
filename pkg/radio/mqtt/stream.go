package mqtt

import (
	"io"
	"sync"
)

// Link stream topics relative to the bus prefix.
const (
	HostToBridgeTopic = "link/h2b"
	BridgeToHostTopic = "link/b2h"
)

// Stream tunnels a byte stream through a pair of topics. It implements
// io.ReadWriteCloser.
type Stream struct {
	Bus     *Bus
	RxTopic string
	TxTopic string
	// OwnsBus closes the bus along with the stream.
	OwnsBus bool

	dataCh  chan []byte
	pending []byte
	closed  chan struct{}
	once    sync.Once
}

// NewStream creates a Stream receiving from rx and sending to tx.
// Start must be called to subscribe.
func NewStream(bus *Bus, rx, tx string) *Stream {
	return &Stream{
		Bus:     bus,
		RxTopic: rx,
		TxTopic: tx,
		dataCh:  make(chan []byte, 256),
		closed:  make(chan struct{}),
	}
}

// OpenStream connects to the broker and starts a Stream. The bridge side
// receives what the host side sends and vice versa.
func OpenStream(brokerURL string, bridgeSide bool) (*Stream, error) {
	bus, err := NewBusFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if err := bus.Connect(); err != nil {
		return nil, err
	}
	rx, tx := HostToBridgeTopic, BridgeToHostTopic
	if !bridgeSide {
		rx, tx = tx, rx
	}
	s := NewStream(bus, rx, tx)
	s.OwnsBus = true
	if err := s.Start(); err != nil {
		bus.Close()
		return nil, err
	}
	return s, nil
}

// Start subscribes to RxTopic.
func (s *Stream) Start() error {
	token := s.Bus.Subscribe(s.RxTopic, s.receive)
	token.Wait()
	return token.Error()
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		select {
		case data := <-s.dataCh:
			s.pending = data
		case <-s.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer. Each write is published as one message.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	token := s.Bus.Publish(s.TxTopic, append([]byte{}, p...))
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		if s.Bus != nil {
			s.Bus.Unsubscribe(s.RxTopic)
			if s.OwnsBus {
				s.Bus.Close()
			}
		}
	})
	return nil
}

func (s *Stream) receive(_ string, payload []byte) {
	select {
	case s.dataCh <- payload:
	case <-s.closed:
	}
}
