package transport

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/serialapi/pkg/dispatch"
	fx "github.com/robotalks/serialapi/pkg/framework"
)

// DefaultRetryMax is the default number of retransmissions of a frame.
const DefaultRetryMax = 2

// Config configures an Engine.
type Config struct {
	CallbackCapacity     int  `yaml:"callback-capacity"`
	NotificationCapacity int  `yaml:"notification-capacity"`
	MaxPayload           int  `yaml:"max-payload"`
	RetryMax             int  `yaml:"retry-max"`
	WaitForHost          bool `yaml:"wait-for-host"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CallbackCapacity:     DefaultCallbackCapacity,
		NotificationCapacity: DefaultNotificationCapacity,
		MaxPayload:           DefaultMaxPayload,
		RetryMax:             DefaultRetryMax,
	}
}

// Dispatcher handles accepted frames.
type Dispatcher interface {
	Dispatch(commandID byte, payload []byte) dispatch.Result
	Continue(c dispatch.Continuation, delivered bool)
}

// Engine is the transport state machine. Activate must only be called
// from a single goroutine; Enqueue functions are safe from any goroutine.
type Engine struct {
	Codec      LinkCodec
	Dispatcher Dispatcher
	// Poster receives signals posted by the engine. Optional.
	Poster fx.SignalPoster

	callbacks     *Queue
	notifications *Queue
	readiness     Readiness
	retryMax      int

	state       int32
	resumeState State
	retries     int32
	reply       *dispatch.Reply
	then        dispatch.Continuation

	stats Statistics
}

// NewEngine creates an Engine in Startup state.
func NewEngine(conf Config, codec LinkCodec, dispatcher Dispatcher) *Engine {
	e := &Engine{
		Codec:         codec,
		Dispatcher:    dispatcher,
		callbacks:     NewQueue("callbacks", conf.CallbackCapacity, conf.MaxPayload),
		notifications: NewQueue("notifications", conf.NotificationCapacity, conf.MaxPayload),
		retryMax:      conf.RetryMax,
	}
	if e.retryMax < 0 {
		e.retryMax = 0
	}
	e.readiness.WaitForHost = conf.WaitForHost
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	return State(atomic.LoadInt32(&e.state))
}

func (e *Engine) setState(s State) {
	atomic.StoreInt32(&e.state, int32(s))
}

// Retries returns the retry count of the frame in flight.
func (e *Engine) Retries() int {
	return int(atomic.LoadInt32(&e.retries))
}

func (e *Engine) setRetries(n int32) {
	atomic.StoreInt32(&e.retries, n)
}

// RetryMax returns the configured retry bound.
func (e *Engine) RetryMax() int {
	return e.retryMax
}

// Readiness returns the link readiness tracker.
func (e *Engine) Readiness() *Readiness {
	return &e.readiness
}

// Callbacks returns the callback queue.
func (e *Engine) Callbacks() *Queue {
	return e.callbacks
}

// Notifications returns the notification queue.
func (e *Engine) Notifications() *Queue {
	return e.notifications
}

// Stats returns engine statistics.
func (e *Engine) Stats() *Statistics {
	return &e.stats
}

// EnqueueCallback queues the completion of an earlier request.
func (e *Engine) EnqueueCallback(commandID byte, payload []byte) bool {
	if !e.callbacks.Enqueue(commandID, payload) {
		e.stats.CallbacksFull.Add(1)
		return false
	}
	e.post(SignalEnqueue)
	return true
}

// EnqueueNotification queues an unsolicited event.
func (e *Engine) EnqueueNotification(commandID byte, payload []byte) bool {
	if !e.notifications.Enqueue(commandID, payload) {
		e.stats.NotificationsFull.Add(1)
		return false
	}
	e.post(SignalEnqueue)
	return true
}

// PurgeCallbacks discards pending callbacks. It must be called from the
// activation goroutine, typically by a command handler.
func (e *Engine) PurgeCallbacks() {
	if e.State() == StateAwaitAckForCallback {
		glog.Errorf("purging callbacks while one is in flight")
		return
	}
	e.callbacks.Clear()
}

// Reset discards both queues and forgets the host. It must be called
// from the activation goroutine while no queued frame is in flight.
func (e *Engine) Reset() {
	switch e.State() {
	case StateAwaitAckForCallback, StateAwaitAckForNotification:
		glog.Errorf("reset while %s, ignored", e.State())
		return
	}
	e.callbacks.Clear()
	e.notifications.Clear()
	e.readiness.Reset()
}

// Activate implements framework.Activator. Each call performs exactly
// one transition.
func (e *Engine) Activate(ctx context.Context, sig fx.Signal) {
	s, ok := sig.(Signal)
	if !ok {
		s = SignalTimer
	}
	switch s {
	case SignalSuspend:
		e.suspend()
		return
	case SignalResume:
		e.resume()
		return
	}
	if e.State() == StateSuspended {
		return
	}
	if s == SignalWakeup {
		e.readiness.Reset()
		e.post(SignalReevaluate)
		return
	}
	e.step()
}

func (e *Engine) step() {
	switch state := e.State(); state {
	case StateStartup:
		if init, ok := e.Codec.(CodecInitializer); ok {
			init.InitCodec()
		}
		e.setState(StateIdle)
		e.post(SignalReevaluate)
	case StateIdle, StateFrameParse:
		e.idle()
	case StateAwaitAckForResponse, StateAwaitAckForCallback, StateAwaitAckForNotification:
		e.await(state)
	default:
		glog.Errorf("invalid transport state %d, recover to idle", int32(state))
		e.stats.Recoveries.Add(1)
		e.setState(StateIdle)
	}
}

func (e *Engine) idle() {
	if entry, ok := e.callbacks.Peek(); ok {
		e.transmit(StateAwaitAckForCallback, entry.CommandID, entry.Payload, false)
		return
	}
	if !e.readiness.IsGatingNotifications() {
		if entry, ok := e.notifications.Peek(); ok {
			e.transmit(StateAwaitAckForNotification, entry.CommandID, entry.Payload, false)
			return
		}
	}

	e.setState(StateFrameParse)
	res := e.Codec.TryParseInbound()
	switch res.Kind {
	case ParseNone:
		e.setState(StateIdle)
	case FrameAccepted:
		e.stats.FramesAccepted.Add(1)
		e.readiness.MarkConnected()
		result := e.Dispatcher.Dispatch(res.CommandID, res.Payload)
		if reply := result.Reply; reply != nil {
			if reply.CommandID == dispatch.FuncUnsupported {
				e.stats.Unsupported.Add(1)
			}
			e.reply, e.then = reply, result.Then
			e.transmit(StateAwaitAckForResponse, reply.CommandID, reply.Payload, true)
			return
		}
		e.setState(StateIdle)
		e.Dispatcher.Continue(result.Then, true)
		e.post(SignalReevaluate)
	default:
		glog.V(2).Infof("ignore %s while idle", res.Kind)
		e.stats.Ignored.Add(1)
		e.setState(StateIdle)
		e.post(SignalReevaluate)
	}
}

func (e *Engine) transmit(next State, commandID byte, payload []byte, isReply bool) {
	e.setRetries(0)
	e.setState(next)
	e.stats.Transmits.Add(1)
	glog.V(2).Infof("tx 0x%02x (%d bytes) %s", commandID, len(payload), next)
	e.Codec.Transmit(commandID, payload, isReply)
}

// await only consumes transmit outcomes. Frames received meanwhile stay
// queued in the codec until the engine is idle again.
func (e *Engine) await(state State) {
	res := e.Codec.TryTxOutcome()
	switch res.Kind {
	case ParseNone:
	case TxConfirmed:
		e.stats.Confirmed.Add(1)
		e.complete(state, true)
	case TxTimedOutOrNacked:
		if int(e.retries) < e.retryMax {
			e.setRetries(e.retries + 1)
			e.stats.Retransmits.Add(1)
			e.retransmit(state)
			return
		}
		glog.Warningf("%s dropped after %d attempts", state, e.retries+1)
		e.stats.Dropped.Add(1)
		e.complete(state, false)
	default:
		glog.V(2).Infof("ignore %s while %s", res.Kind, state)
		e.stats.Ignored.Add(1)
		e.post(SignalReevaluate)
	}
}

func (e *Engine) retransmit(state State) {
	var (
		entry Entry
		ok    bool
	)
	switch state {
	case StateAwaitAckForCallback:
		entry, ok = e.callbacks.Peek()
	case StateAwaitAckForNotification:
		entry, ok = e.notifications.Peek()
	case StateAwaitAckForResponse:
		if e.reply != nil {
			entry, ok = Entry{CommandID: e.reply.CommandID, Payload: e.reply.Payload}, true
		}
	}
	if !ok {
		glog.Errorf("nothing to retransmit in %s, recover to idle", state)
		e.stats.Recoveries.Add(1)
		e.setRetries(0)
		e.setState(StateIdle)
		e.post(SignalReevaluate)
		return
	}
	glog.V(2).Infof("retx 0x%02x attempt %d", entry.CommandID, e.retries+1)
	e.Codec.Transmit(entry.CommandID, entry.Payload, state == StateAwaitAckForResponse)
}

// complete ends the transaction in flight: the frame is removed whether
// delivered or dropped.
func (e *Engine) complete(state State, delivered bool) {
	e.setRetries(0)
	e.setState(StateIdle)
	switch state {
	case StateAwaitAckForCallback:
		e.callbacks.Dequeue()
	case StateAwaitAckForNotification:
		e.notifications.Dequeue()
	case StateAwaitAckForResponse:
		then := e.then
		e.reply, e.then = nil, dispatch.Continuation{}
		e.Dispatcher.Continue(then, delivered)
	}
	e.post(SignalReevaluate)
}

func (e *Engine) post(sig Signal) {
	if p := e.Poster; p != nil {
		p.Post(sig)
	}
}

// AddToLoop implements framework.LoopAdder.
func (e *Engine) AddToLoop(l *fx.Loop) {
	l.Activator = e
	e.Poster = l
	l.Post(SignalTimer)
}
