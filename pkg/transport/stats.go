package transport

import "sync/atomic"

// Counter is an atomic counter.
type Counter struct {
	value uint64
}

// Add increments the counter by n.
func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

// Load reads the counter.
func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// Statistics counts engine events.
type Statistics struct {
	Transmits         Counter
	Retransmits       Counter
	Confirmed         Counter
	Dropped           Counter
	FramesAccepted    Counter
	Unsupported       Counter
	Ignored           Counter
	CallbacksFull     Counter
	NotificationsFull Counter
	Suspends          Counter
	Recoveries        Counter
}

// Snapshot is a point in time copy of Statistics.
type Snapshot struct {
	Transmits         uint64 `yaml:"transmits"`
	Retransmits       uint64 `yaml:"retransmits"`
	Confirmed         uint64 `yaml:"confirmed"`
	Dropped           uint64 `yaml:"dropped"`
	FramesAccepted    uint64 `yaml:"frames-accepted"`
	Unsupported       uint64 `yaml:"unsupported"`
	Ignored           uint64 `yaml:"ignored"`
	CallbacksFull     uint64 `yaml:"callbacks-full"`
	NotificationsFull uint64 `yaml:"notifications-full"`
	Suspends          uint64 `yaml:"suspends"`
	Recoveries        uint64 `yaml:"recoveries"`
}

// Snapshot copies the counters.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Transmits:         s.Transmits.Load(),
		Retransmits:       s.Retransmits.Load(),
		Confirmed:         s.Confirmed.Load(),
		Dropped:           s.Dropped.Load(),
		FramesAccepted:    s.FramesAccepted.Load(),
		Unsupported:       s.Unsupported.Load(),
		Ignored:           s.Ignored.Load(),
		CallbacksFull:     s.CallbacksFull.Load(),
		NotificationsFull: s.NotificationsFull.Load(),
		Suspends:          s.Suspends.Load(),
		Recoveries:        s.Recoveries.Load(),
	}
}
