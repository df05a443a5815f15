package transport

// State is the state of the transport state machine.
type State int32

// Transport states.
const (
	StateStartup State = iota
	StateIdle
	StateFrameParse
	StateAwaitAckForResponse
	StateAwaitAckForCallback
	StateAwaitAckForNotification
	StateSuspended
)

var stateNames = map[State]string{
	StateStartup:                 "startup",
	StateIdle:                    "idle",
	StateFrameParse:              "frame-parse",
	StateAwaitAckForResponse:     "await-ack-response",
	StateAwaitAckForCallback:     "await-ack-callback",
	StateAwaitAckForNotification: "await-ack-notification",
	StateSuspended:               "suspended",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// InFlight indicates a frame is awaiting the peer's acknowledgement.
func (s State) InFlight() bool {
	switch s {
	case StateAwaitAckForResponse, StateAwaitAckForCallback, StateAwaitAckForNotification:
		return true
	}
	return false
}

// Signal is a trigger activating the engine.
type Signal int

// Signals.
const (
	// SignalInbound is posted when the codec has a parse result.
	SignalInbound Signal = iota
	// SignalTimer is posted when a timer expires.
	SignalTimer
	// SignalEnqueue is posted when a queue becomes non-empty.
	SignalEnqueue
	// SignalSuspend is posted when the platform is going to sleep.
	SignalSuspend
	// SignalResume is posted when the platform is back.
	SignalResume
	// SignalWakeup is posted after a wakeup which forgets the host.
	SignalWakeup
	// SignalReevaluate is posted by the engine itself when more work may
	// be pending after a transition.
	SignalReevaluate
)

var signalNames = [...]string{
	SignalInbound:    "inbound",
	SignalTimer:      "timer",
	SignalEnqueue:    "enqueue",
	SignalSuspend:    "suspend",
	SignalResume:     "resume",
	SignalWakeup:     "wakeup",
	SignalReevaluate: "reevaluate",
}

// SignalName implements framework.Signal.
func (s Signal) SignalName() string {
	if s >= 0 && int(s) < len(signalNames) {
		return signalNames[s]
	}
	return "unknown"
}
