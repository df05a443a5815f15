package serialapi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialapi/pkg/dispatch"
	fx "github.com/robotalks/serialapi/pkg/framework"
	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/radio"
	"github.com/robotalks/serialapi/pkg/transport"
)

// Bridge connects a host link to a radio through the transport engine.
type Bridge struct {
	Info   NodeInfo
	Link   *link.Link
	Radio  radio.Radio
	Table  *dispatch.Table
	Engine *transport.Engine
	// Interval is the tick interval of the activation loop.
	Interval time.Duration

	poster         fx.SignalPoster
	txStatusReport atomic.Bool
}

// NewBridge creates a Bridge and queues the SERIAL_API_STARTED
// notification announcing power up.
func NewBridge(info NodeInfo, conf transport.Config, lnk *link.Link, r radio.Radio) *Bridge {
	b := &Bridge{Info: info, Link: lnk, Radio: r, Table: dispatch.NewTable()}
	b.registerCommands(b.Table)
	b.Table.OnContinue = b.onContinue
	b.Engine = transport.NewEngine(conf, lnk, b.Table)
	lnk.Notify = func() { b.post(transport.SignalInbound) }
	if r != nil {
		r.SetHandler(b)
	}
	b.announce(WakeupPowerUp)
	return b
}

// TxStatusReport indicates extended transmit status is enabled.
func (b *Bridge) TxStatusReport() bool {
	return b.txStatusReport.Load()
}

// OnReceive implements radio.Handler.
// rxStatus | src | len | data[len] | rssi
func (b *Bridge) OnReceive(f radio.Frame) {
	payload := make([]byte, 0, len(f.Payload)+4)
	payload = append(payload, f.Status(), f.Src, byte(len(f.Payload)))
	payload = append(payload, f.Payload...)
	payload = append(payload, byte(f.RSSI))
	if !b.Engine.EnqueueNotification(FuncApplicationCommandHandler, payload) {
		glog.Warningf("notification queue full, frame from %d dropped", f.Src)
	}
}

// OnTxStatus implements radio.Handler.
// funcID | txStatus [| ticksMSB | ticksLSB]
func (b *Bridge) OnTxStatus(funcID byte, status radio.TxStatus, elapsed time.Duration) {
	if funcID == 0 {
		return
	}
	payload := []byte{funcID, byte(status)}
	if b.TxStatusReport() {
		ticks := uint16(elapsed / (10 * time.Millisecond))
		payload = append(payload, byte(ticks>>8), byte(ticks))
	}
	if !b.Engine.EnqueueCallback(FuncSendData, payload) {
		glog.Warningf("callback queue full, tx status of 0x%02x dropped", funcID)
	}
}

// OnSuspend implements transport.SuspendHook.
func (b *Bridge) OnSuspend() {
	b.post(transport.SignalSuspend)
}

// OnResume implements transport.SuspendHook.
func (b *Bridge) OnResume() {
	b.post(transport.SignalResume)
}

// Wakeup notifies the bridge the platform woke up from deep sleep and the
// host must be seen again before notifications flow.
func (b *Bridge) Wakeup() {
	b.post(transport.SignalWakeup)
}

// AddToLoop implements framework.LoopAdder.
func (b *Bridge) AddToLoop(l *fx.Loop) {
	b.poster = l
	if b.Interval > 0 {
		l.Interval = b.Interval
	}
	l.Add(b.Engine)
	l.AddRunnable(fx.NamedRun("link", b.Link))
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	return fx.NewLoop(nil).Add(b).Run(ctx)
}

func (b *Bridge) onContinue(c dispatch.Continuation, delivered bool) {
	switch c.Kind {
	case dispatch.ContinueSoftReset:
		glog.Info("soft reset")
		b.Engine.Reset()
		b.txStatusReport.Store(false)
		b.announce(c.Token)
	default:
		glog.Warningf("unknown continuation %d", c.Kind)
	}
}

// wakeupReason | watchdog | options | generic | specific | ccLen
func (b *Bridge) announce(reason byte) {
	b.Engine.EnqueueNotification(FuncStarted, []byte{reason, 0, 0x80, b.Info.GenericType, b.Info.SpecificType, 0})
}

func (b *Bridge) post(sig transport.Signal) {
	if p := b.poster; p != nil {
		p.Post(sig)
	}
}
