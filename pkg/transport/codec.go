package transport

// ParseKind classifies the outcome of TryParseInbound.
type ParseKind int

// Parse result kinds.
const (
	// ParseNone means nothing is available.
	ParseNone ParseKind = iota
	// FrameAccepted means a well-formed request frame was received.
	FrameAccepted
	// TxConfirmed means the peer acknowledged the last transmitted frame.
	TxConfirmed
	// TxTimedOutOrNacked means the peer rejected the last transmitted
	// frame or did not acknowledge it in time.
	TxTimedOutOrNacked
)

func (k ParseKind) String() string {
	switch k {
	case ParseNone:
		return "none"
	case FrameAccepted:
		return "frame"
	case TxConfirmed:
		return "ack"
	case TxTimedOutOrNacked:
		return "nak"
	}
	return "invalid"
}

// ParseResult is the result of TryParseInbound. CommandID and Payload
// are only valid with FrameAccepted.
type ParseResult struct {
	Kind      ParseKind
	CommandID byte
	Payload   []byte
}

// LinkCodec is the framing layer consumed by the Engine.
type LinkCodec interface {
	// Transmit encodes and writes a frame, arming acknowledgement
	// tracking. The outcome is reported later by TryTxOutcome or
	// TryParseInbound.
	Transmit(commandID byte, payload []byte, isReply bool)
	// TryParseInbound returns the next pending result without blocking.
	TryParseInbound() ParseResult
	// TryTxOutcome returns the next pending TxConfirmed or
	// TxTimedOutOrNacked, leaving received frames queued.
	TryTxOutcome() ParseResult
}

// CodecInitializer is optionally implemented by a LinkCodec which needs
// initialization when the engine starts up.
type CodecInitializer interface {
	InitCodec()
}
