package transport

import "github.com/golang/glog"

// SuspendHook is notified by the platform around sleep.
type SuspendHook interface {
	OnSuspend()
	OnResume()
}

func (e *Engine) suspend() {
	state := e.State()
	if state == StateSuspended {
		return
	}
	e.resumeState = state
	e.setState(StateSuspended)
	e.stats.Suspends.Add(1)
	glog.V(2).Infof("suspended in %s, retries %d", state, e.retries)
}

func (e *Engine) resume() {
	if e.State() != StateSuspended {
		return
	}
	e.setState(e.resumeState)
	glog.V(2).Infof("resumed to %s, retries %d", e.resumeState, e.retries)
	e.post(SignalReevaluate)
}
