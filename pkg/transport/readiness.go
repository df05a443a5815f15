package transport

import "sync/atomic"

// LinkState is the host link readiness.
type LinkState int32

// Link states.
const (
	// LinkUnknown means the host has not been seen since boot or wakeup.
	LinkUnknown LinkState = iota
	// LinkConnected means a well-formed frame arrived from the host.
	LinkConnected
	// LinkDetached means the host asked not to receive notifications.
	LinkDetached
)

func (s LinkState) String() string {
	switch s {
	case LinkUnknown:
		return "unknown"
	case LinkConnected:
		return "connected"
	case LinkDetached:
		return "detached"
	}
	return "invalid"
}

// Readiness tracks whether the host is able to receive unsolicited
// notifications. Callbacks are never gated.
type Readiness struct {
	// WaitForHost gates notifications until the host is seen.
	WaitForHost bool

	state int32
}

// State returns current link state.
func (r *Readiness) State() LinkState {
	return LinkState(atomic.LoadInt32(&r.state))
}

// MarkConnected records that the host is alive. Any well-formed frame
// from the host reestablishes a detached link.
func (r *Readiness) MarkConnected() {
	atomic.StoreInt32(&r.state, int32(LinkConnected))
}

// Attach marks the link connected regardless of current state.
func (r *Readiness) Attach() {
	atomic.StoreInt32(&r.state, int32(LinkConnected))
}

// Detach stops notifications until the next frame from the host.
func (r *Readiness) Detach() {
	atomic.StoreInt32(&r.state, int32(LinkDetached))
}

// Reset forgets the host, e.g. on wakeup from sleep.
func (r *Readiness) Reset() {
	atomic.StoreInt32(&r.state, int32(LinkUnknown))
}

// IsGatingNotifications indicates notifications must be held back.
func (r *Readiness) IsGatingNotifications() bool {
	switch r.State() {
	case LinkUnknown:
		return r.WaitForHost
	case LinkDetached:
		return true
	}
	return false
}
