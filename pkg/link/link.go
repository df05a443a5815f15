package link

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialapi/pkg/transport"
)

// Default timeouts.
const (
	DefaultAckTimeout  = 1600 * time.Millisecond
	DefaultByteTimeout = 150 * time.Millisecond
)

// DefaultMaxPending is the default number of received events buffered
// before inbound frames are refused with CAN.
const DefaultMaxPending = 16

// Event is a received frame or the outcome of a transmitted frame.
type Event struct {
	Kind  transport.ParseKind
	Frame *Frame
}

// Link sends and receives frames over a byte stream. It implements
// transport.LinkCodec.
type Link struct {
	ReadWriter io.ReadWriter
	// Notify is called, outside of any lock, whenever an event is queued.
	Notify func()
	// MaxPending bounds queued events.
	MaxPending int

	ackTimeout  time.Duration
	byteTimeout time.Duration
	events      []Event
	awaiting    bool
	ackTimer    *time.Timer
	generation  uint64
	lock        sync.Mutex

	writeLock sync.Mutex
	parser    Parser
	stats     Stats
}

// New creates a Link.
func New(rw io.ReadWriter) *Link {
	return &Link{
		ReadWriter:  rw,
		MaxPending:  DefaultMaxPending,
		ackTimeout:  DefaultAckTimeout,
		byteTimeout: DefaultByteTimeout,
	}
}

// SetTimeouts updates the ACK and byte timeouts.
func (l *Link) SetTimeouts(ack, byteTimeout time.Duration) {
	l.lock.Lock()
	if ack > 0 {
		l.ackTimeout = ack
	}
	if byteTimeout > 0 {
		l.byteTimeout = byteTimeout
	}
	l.lock.Unlock()
}

// Timeouts returns the ACK and byte timeouts.
func (l *Link) Timeouts() (ack, byteTimeout time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.ackTimeout, l.byteTimeout
}

// Stats returns a copy of link statistics.
func (l *Link) Stats() Stats {
	return l.stats.snapshot()
}

// Awaiting indicates a transmitted frame is not yet acknowledged.
func (l *Link) Awaiting() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.awaiting
}

// Transmit implements transport.LinkCodec.
func (l *Link) Transmit(commandID byte, payload []byte, isReply bool) {
	frameType := Request
	if isReply {
		frameType = Response
	}
	l.Send(&Frame{Type: frameType, CommandID: commandID, Payload: payload})
}

// Send writes the frame and arms the ACK timer. A write failure is
// reported as TxTimedOutOrNacked.
func (l *Link) Send(f *Frame) {
	l.lock.Lock()
	l.generation++
	gen := l.generation
	l.awaiting = true
	if l.ackTimer != nil {
		l.ackTimer.Stop()
	}
	l.ackTimer = time.AfterFunc(l.ackTimeout, func() { l.ackExpired(gen) })
	l.lock.Unlock()

	glog.V(2).Infof("link tx %s", f)
	data := f.Bytes()
	if err := l.write(data); err != nil {
		glog.Errorf("link write error: %v", err)
		l.resolve(gen, transport.TxTimedOutOrNacked)
		return
	}
	inc(&l.stats.FramesTx)
}

// TryParseInbound implements transport.LinkCodec.
func (l *Link) TryParseInbound() transport.ParseResult {
	ev, ok := l.NextEvent()
	if !ok {
		return transport.ParseResult{}
	}
	r := transport.ParseResult{Kind: ev.Kind}
	if f := ev.Frame; f != nil {
		r.CommandID, r.Payload = f.CommandID, f.Payload
	}
	return r
}

// TryTxOutcome implements transport.LinkCodec. It pops the first transmit
// outcome and leaves received frames queued.
func (l *Link) TryTxOutcome() transport.ParseResult {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, ev := range l.events {
		if ev.Kind == transport.TxConfirmed || ev.Kind == transport.TxTimedOutOrNacked {
			l.events = append(l.events[:i], l.events[i+1:]...)
			return transport.ParseResult{Kind: ev.Kind}
		}
	}
	return transport.ParseResult{}
}

// NextEvent pops the next queued event.
func (l *Link) NextEvent() (Event, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.events) == 0 {
		return Event{}, false
	}
	ev := l.events[0]
	l.events[0] = Event{}
	l.events = l.events[1:]
	return ev, true
}

// Pending returns the number of queued events.
func (l *Link) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.events)
}

// Run reads from the stream until it fails or ctx is done.
func (l *Link) Run(ctx context.Context) error {
	dataCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, dataCh, errCh)

	var byteTimer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			if err == io.EOF {
				return ErrClosed
			}
			return err
		case <-byteTimer:
			byteTimer = nil
			if pr := l.parser.Timeout(); pr.Discarded {
				glog.V(2).Info("link byte timeout, partial frame dropped")
				inc(&l.stats.Discarded)
			}
		case data := <-dataCh:
			for _, b := range data {
				pr := l.parser.Parse(b)
				if err := l.applyParseResult(pr); err != nil {
					return err
				}
				switch pr.WhatAboutTimer() {
				case TimerRestart:
					_, byteTimeout := l.Timeouts()
					byteTimer = time.After(byteTimeout)
				case TimerStop:
					byteTimer = nil
				}
			}
		}
	}
}

func (l *Link) readLoop(ctx context.Context, dataCh chan []byte, errCh chan error) {
	buf := make([]byte, 256)
	for {
		n, err := l.ReadWriter.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case dataCh <- data:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (l *Link) applyParseResult(pr ParseResult) error {
	stats := &l.stats
	inc(&stats.BytesRx)
	if pr.Discarded {
		inc(&stats.Discarded)
	}
	switch pr.Control {
	case ACK:
		l.resolveCurrent(transport.TxConfirmed)
	case NAK:
		inc(&stats.NaksRx)
		l.resolveCurrent(transport.TxTimedOutOrNacked)
	case CAN:
		inc(&stats.CansRx)
		l.resolveCurrent(transport.TxTimedOutOrNacked)
	}
	if pr.Respond == NAK {
		inc(&stats.ChecksumErrors)
		glog.V(2).Info("link rx checksum error")
		return l.write([]byte{NAK})
	}
	if pr.Frame == nil {
		return nil
	}
	inc(&stats.FramesRx)
	glog.V(2).Infof("link rx %s", pr.Frame)
	if !l.push(Event{Kind: transport.FrameAccepted, Frame: pr.Frame}) {
		inc(&stats.Overruns)
		return l.write([]byte{CAN})
	}
	if err := l.write([]byte{ACK}); err != nil {
		return err
	}
	l.notify()
	return nil
}

func (l *Link) push(ev Event) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if max := l.MaxPending; max > 0 && len(l.events) >= max {
		return false
	}
	l.events = append(l.events, ev)
	return true
}

func (l *Link) resolveCurrent(kind transport.ParseKind) {
	l.lock.Lock()
	gen := l.generation
	l.lock.Unlock()
	l.resolve(gen, kind)
}

func (l *Link) ackExpired(gen uint64) {
	l.lock.Lock()
	expired := l.awaiting && l.generation == gen
	l.lock.Unlock()
	if expired {
		inc(&l.stats.AckTimeouts)
		glog.V(2).Info("link ack timeout")
		l.resolve(gen, transport.TxTimedOutOrNacked)
	}
}

// resolve completes the transmission of generation gen. Control bytes
// arriving while nothing is awaited are dropped.
func (l *Link) resolve(gen uint64, kind transport.ParseKind) {
	l.lock.Lock()
	if !l.awaiting || l.generation != gen {
		l.lock.Unlock()
		glog.V(2).Infof("link unexpected %s", kind)
		return
	}
	l.awaiting = false
	if l.ackTimer != nil {
		l.ackTimer.Stop()
		l.ackTimer = nil
	}
	l.events = append(l.events, Event{Kind: kind})
	l.lock.Unlock()
	l.notify()
}

func (l *Link) write(data []byte) error {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()
	n, err := l.ReadWriter.Write(data)
	l.stats.addTx(n)
	return err
}

func (l *Link) notify() {
	if fn := l.Notify; fn != nil {
		fn()
	}
}
