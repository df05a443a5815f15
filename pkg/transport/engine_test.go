package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialapi/pkg/dispatch"
	fx "github.com/robotalks/serialapi/pkg/framework"
)

type txFrame struct {
	CommandID byte
	Payload   []byte
	IsReply   bool
}

type fakeCodec struct {
	sent    []txFrame
	results []ParseResult
	inited  int
}

func (c *fakeCodec) Transmit(commandID byte, payload []byte, isReply bool) {
	c.sent = append(c.sent, txFrame{CommandID: commandID, Payload: append([]byte{}, payload...), IsReply: isReply})
}

func (c *fakeCodec) TryParseInbound() ParseResult {
	if len(c.results) == 0 {
		return ParseResult{}
	}
	r := c.results[0]
	c.results = c.results[1:]
	return r
}

func (c *fakeCodec) TryTxOutcome() ParseResult {
	for i, r := range c.results {
		if r.Kind == TxConfirmed || r.Kind == TxTimedOutOrNacked {
			c.results = append(c.results[:i], c.results[i+1:]...)
			return r
		}
	}
	return ParseResult{}
}

func (c *fakeCodec) InitCodec() {
	c.inited++
}

func (c *fakeCodec) ack() {
	c.results = append(c.results, ParseResult{Kind: TxConfirmed})
}

func (c *fakeCodec) nak() {
	c.results = append(c.results, ParseResult{Kind: TxTimedOutOrNacked})
}

func (c *fakeCodec) frame(commandID byte, payload ...byte) {
	c.results = append(c.results, ParseResult{Kind: FrameAccepted, CommandID: commandID, Payload: payload})
}

type recordingPoster struct {
	posted []fx.Signal
}

func (p *recordingPoster) Post(sig fx.Signal) {
	p.posted = append(p.posted, sig)
}

type continued struct {
	dispatch.Continuation
	Delivered bool
}

type engineTester struct {
	*Engine
	codec     *fakeCodec
	table     *dispatch.Table
	continued []continued
}

func newEngineTester(t *testing.T, conf Config) *engineTester {
	et := &engineTester{codec: &fakeCodec{}, table: dispatch.NewTable()}
	et.table.OnContinue = func(c dispatch.Continuation, delivered bool) {
		et.continued = append(et.continued, continued{Continuation: c, Delivered: delivered})
	}
	et.Engine = NewEngine(conf, et.codec, et.table)
	require.Equal(t, StateStartup, et.State())
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.Equal(t, 1, et.codec.inited)
	return et
}

func (et *engineTester) activate() {
	et.Activate(context.Background(), SignalTimer)
}

func (et *engineTester) activateN(n int) {
	for i := 0; i < n; i++ {
		et.activate()
	}
}

func TestEngineRetryBound(t *testing.T) {
	conf := DefaultConfig()
	conf.RetryMax = 2
	et := newEngineTester(t, conf)
	require.True(t, et.EnqueueCallback(0x13, []byte{1, 0}))

	et.activate()
	require.Equal(t, StateAwaitAckForCallback, et.State())
	require.Len(t, et.codec.sent, 1)

	for attempt := 2; attempt <= 3; attempt++ {
		et.codec.nak()
		et.activate()
		require.Equal(t, StateAwaitAckForCallback, et.State())
		require.Len(t, et.codec.sent, attempt)
		require.Equal(t, attempt-1, et.Retries())
	}

	et.codec.nak()
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.Len(t, et.codec.sent, 3)
	require.Equal(t, 0, et.Callbacks().Len())
	require.Equal(t, 0, et.Retries())
	require.EqualValues(t, 1, et.Stats().Dropped.Load())
	require.EqualValues(t, 2, et.Stats().Retransmits.Load())
	for _, f := range et.codec.sent {
		require.Equal(t, txFrame{CommandID: 0x13, Payload: []byte{1, 0}}, f)
	}

	et.activateN(5)
	require.Len(t, et.codec.sent, 3)
}

func TestEngineRetryMaxZero(t *testing.T) {
	conf := DefaultConfig()
	conf.RetryMax = 0
	et := newEngineTester(t, conf)
	et.EnqueueCallback(1, nil)
	et.activate()
	et.codec.nak()
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.Len(t, et.codec.sent, 1)
}

func TestEngineGatesNotificationsUntilHostSeen(t *testing.T) {
	conf := DefaultConfig()
	conf.WaitForHost = true
	et := newEngineTester(t, conf)
	require.True(t, et.EnqueueNotification(0x04, []byte{0, 2, 1, 0x20}))

	et.activateN(100)
	require.Empty(t, et.codec.sent)
	require.Equal(t, StateIdle, et.State())
	require.Equal(t, 1, et.Notifications().Len())

	et.table.HandleFunc(0xEF, func(byte, []byte) dispatch.Result { return dispatch.NoReply() })
	et.codec.frame(0xEF, 0x01)
	et.activate()
	require.Equal(t, LinkConnected, et.Readiness().State())
	require.Empty(t, et.codec.sent)

	et.activate()
	require.Equal(t, StateAwaitAckForNotification, et.State())
	require.Equal(t, []txFrame{{CommandID: 0x04, Payload: []byte{0, 2, 1, 0x20}}}, et.codec.sent)
}

func TestEngineCallbacksNotGated(t *testing.T) {
	conf := DefaultConfig()
	conf.WaitForHost = true
	et := newEngineTester(t, conf)
	et.EnqueueCallback(0x13, []byte{1, 0})
	et.activate()
	require.Equal(t, StateAwaitAckForCallback, et.State())
}

func TestEngineDrainOrder(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.Readiness().MarkConnected()
	require.True(t, et.EnqueueNotification(0x04, []byte{0x4e}))
	require.True(t, et.EnqueueCallback(0x13, []byte{0xc1}))
	require.True(t, et.EnqueueCallback(0x13, []byte{0xc2}))

	for _, expected := range []byte{0xc1, 0xc2, 0x4e} {
		et.activate()
		require.True(t, et.State().InFlight())
		require.Equal(t, expected, et.codec.sent[len(et.codec.sent)-1].Payload[0])
		et.codec.ack()
		et.activate()
		require.Equal(t, StateIdle, et.State())
	}
	require.Len(t, et.codec.sent, 3)
	require.EqualValues(t, 3, et.Stats().Confirmed.Load())
}

func TestEngineAtMostOneInFlight(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.Readiness().MarkConnected()
	et.EnqueueCallback(1, nil)
	et.activate()
	require.Equal(t, StateAwaitAckForCallback, et.State())

	et.EnqueueCallback(2, nil)
	et.EnqueueNotification(3, nil)
	et.activateN(10)
	require.Len(t, et.codec.sent, 1)
	require.Equal(t, StateAwaitAckForCallback, et.State())
}

func TestEngineUnsupportedCommand(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.codec.frame(0xFE)
	et.activate()
	require.Equal(t, StateAwaitAckForResponse, et.State())
	require.Equal(t, []txFrame{{CommandID: dispatch.FuncUnsupported, Payload: []byte{0xFE}, IsReply: true}}, et.codec.sent)
	require.EqualValues(t, 1, et.Stats().Unsupported.Load())

	et.codec.ack()
	et.activate()
	require.Equal(t, StateIdle, et.State())
}

func TestEngineReplyContinuation(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.table.HandleFunc(0x42, func(cmd byte, payload []byte) dispatch.Result {
		return dispatch.Respond(cmd, payload...).WithContinuation(dispatch.ContinueCustom, 7)
	})

	et.codec.frame(0x42, 1)
	et.activate()
	require.Equal(t, StateAwaitAckForResponse, et.State())
	require.Empty(t, et.continued)
	et.codec.ack()
	et.activate()
	require.Equal(t, []continued{{Continuation: dispatch.Continuation{Kind: dispatch.ContinueCustom, Token: 7}, Delivered: true}}, et.continued)

	et.continued = nil
	et.codec.frame(0x42, 2)
	et.activate()
	for n := 0; n <= et.RetryMax(); n++ {
		et.codec.nak()
		et.activate()
	}
	require.Equal(t, StateIdle, et.State())
	require.Len(t, et.continued, 1)
	require.False(t, et.continued[0].Delivered)
	for _, f := range et.codec.sent[1:] {
		require.True(t, f.IsReply)
		require.Equal(t, byte(0x42), f.CommandID)
	}
}

func TestEngineContinuationWithoutReply(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.table.HandleFunc(0x08, func(byte, []byte) dispatch.Result {
		return dispatch.NoReply().WithContinuation(dispatch.ContinueSoftReset, 0)
	})
	et.codec.frame(0x08)
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.Empty(t, et.codec.sent)
	require.Len(t, et.continued, 1)
	require.Equal(t, dispatch.ContinueSoftReset, et.continued[0].Kind)
	require.True(t, et.continued[0].Delivered)
}

func TestEngineKeepsFramesWhileAwaiting(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	dispatched := 0
	et.table.HandleFunc(0x15, func(cmd byte, _ []byte) dispatch.Result {
		dispatched++
		return dispatch.Respond(cmd)
	})
	et.EnqueueCallback(0x13, nil)
	et.activate()
	require.Equal(t, StateAwaitAckForCallback, et.State())

	// the frame arrives ahead of the ACK
	et.codec.frame(0x15)
	et.activate()
	require.Equal(t, StateAwaitAckForCallback, et.State())
	require.Zero(t, dispatched)

	et.codec.ack()
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.Zero(t, dispatched)

	et.activate()
	require.Equal(t, 1, dispatched)
	require.Equal(t, StateAwaitAckForResponse, et.State())
	require.Equal(t, txFrame{CommandID: 0x15, IsReply: true}, et.codec.sent[len(et.codec.sent)-1])
	require.Zero(t, et.Stats().Ignored.Load())
}

func TestEngineFrameReconnectsDetachedHost(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.table.HandleFunc(0x15, func(cmd byte, _ []byte) dispatch.Result {
		return dispatch.Respond(cmd)
	})
	et.Readiness().Detach()
	require.True(t, et.EnqueueNotification(0x04, []byte{0xAA}))
	et.activateN(3)
	require.Empty(t, et.codec.sent)

	et.codec.frame(0x15)
	et.activate()
	require.Equal(t, LinkConnected, et.Readiness().State())
	require.Equal(t, StateAwaitAckForResponse, et.State())
	et.codec.ack()
	et.activate()
	require.Equal(t, StateIdle, et.State())

	et.activate()
	require.Equal(t, StateAwaitAckForNotification, et.State())
	require.Equal(t, txFrame{CommandID: 0x04, Payload: []byte{0xAA}}, et.codec.sent[len(et.codec.sent)-1])
}

func TestEngineSuspendResume(t *testing.T) {
	ctx := context.Background()
	et := newEngineTester(t, DefaultConfig())
	et.EnqueueCallback(0x13, []byte{5})
	et.activate()
	et.codec.nak()
	et.activate()
	require.Equal(t, 1, et.Retries())
	require.Len(t, et.codec.sent, 2)

	et.Activate(ctx, SignalSuspend)
	require.Equal(t, StateSuspended, et.State())
	et.codec.nak()
	et.EnqueueNotification(0x04, nil)
	et.activateN(10)
	et.Activate(ctx, SignalSuspend)
	require.Equal(t, StateSuspended, et.State())
	require.Len(t, et.codec.sent, 2)

	poster := &recordingPoster{}
	et.Poster = poster
	et.Activate(ctx, SignalResume)
	require.Equal(t, StateAwaitAckForCallback, et.State())
	require.Equal(t, 1, et.Retries())
	require.Equal(t, []fx.Signal{SignalReevaluate}, poster.posted)

	et.activate()
	require.Equal(t, 2, et.Retries())
	require.Len(t, et.codec.sent, 3)
}

func TestEngineResumeWithoutSuspend(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.Activate(context.Background(), SignalResume)
	require.Equal(t, StateIdle, et.State())
}

func TestEngineWakeupForgetsHost(t *testing.T) {
	conf := DefaultConfig()
	conf.WaitForHost = true
	et := newEngineTester(t, conf)
	et.Readiness().MarkConnected()
	et.Activate(context.Background(), SignalWakeup)
	require.Equal(t, LinkUnknown, et.Readiness().State())
	et.EnqueueNotification(0x04, nil)
	et.activateN(3)
	require.Empty(t, et.codec.sent)
}

func TestEngineRecoversInvalidState(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.setState(State(99))
	et.activate()
	require.Equal(t, StateIdle, et.State())
	require.EqualValues(t, 1, et.Stats().Recoveries.Load())
}

func TestEngineReset(t *testing.T) {
	et := newEngineTester(t, DefaultConfig())
	et.Readiness().MarkConnected()
	et.EnqueueCallback(1, nil)
	et.EnqueueNotification(2, nil)
	et.Reset()
	require.Equal(t, 0, et.Callbacks().Len())
	require.Equal(t, 0, et.Notifications().Len())
	require.Equal(t, LinkUnknown, et.Readiness().State())
}

func TestEngineQueueFullCounted(t *testing.T) {
	conf := DefaultConfig()
	conf.CallbackCapacity = 1
	et := newEngineTester(t, conf)
	require.True(t, et.EnqueueCallback(1, nil))
	require.False(t, et.EnqueueCallback(2, nil))
	require.EqualValues(t, 1, et.Stats().CallbacksFull.Load())
}
