package link

import "sync/atomic"

// Stats counts link level events.
type Stats struct {
	BytesRx        uint64 `yaml:"bytes-rx"`
	BytesTx        uint64 `yaml:"bytes-tx"`
	FramesRx       uint64 `yaml:"frames-rx"`
	FramesTx       uint64 `yaml:"frames-tx"`
	ChecksumErrors uint64 `yaml:"checksum-errors"`
	Discarded      uint64 `yaml:"discarded"`
	AckTimeouts    uint64 `yaml:"ack-timeouts"`
	NaksRx         uint64 `yaml:"naks-rx"`
	CansRx         uint64 `yaml:"cans-rx"`
	Overruns       uint64 `yaml:"overruns"`
}

func (s *Stats) snapshot() Stats {
	return Stats{
		BytesRx:        atomic.LoadUint64(&s.BytesRx),
		BytesTx:        atomic.LoadUint64(&s.BytesTx),
		FramesRx:       atomic.LoadUint64(&s.FramesRx),
		FramesTx:       atomic.LoadUint64(&s.FramesTx),
		ChecksumErrors: atomic.LoadUint64(&s.ChecksumErrors),
		Discarded:      atomic.LoadUint64(&s.Discarded),
		AckTimeouts:    atomic.LoadUint64(&s.AckTimeouts),
		NaksRx:         atomic.LoadUint64(&s.NaksRx),
		CansRx:         atomic.LoadUint64(&s.CansRx),
		Overruns:       atomic.LoadUint64(&s.Overruns),
	}
}

func inc(v *uint64) {
	atomic.AddUint64(v, 1)
}

func (s *Stats) addTx(n int) {
	if n > 0 {
		atomic.AddUint64(&s.BytesTx, uint64(n))
	}
}
