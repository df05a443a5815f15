package link

// TimerAction defines what to do with the byte timer.
type TimerAction int

const (
	// TimerNoChange indicates keep the timer as-is.
	TimerNoChange TimerAction = iota
	// TimerRestart to restart the timer.
	TimerRestart
	// TimerStop to stop/cancel the timer.
	TimerStop
)

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	// Control is an ACK, NAK or CAN received outside of a frame.
	Control byte
	// Respond is the control byte to send back: ACK for a valid frame,
	// NAK for a corrupted one.
	Respond byte
	// Frame is a complete valid frame.
	Frame *Frame
	// Receiving means the parser is in the middle of a frame.
	Receiving bool
	// Discarded is set when the byte was garbage outside of a frame.
	Discarded bool
}

// WhatAboutTimer decides what to do with the byte timer.
func (r ParseResult) WhatAboutTimer() TimerAction {
	if r.Receiving {
		return TimerRestart
	}
	return TimerStop
}

type parseState int

const (
	stateSOF      parseState = iota // waiting for SOF or control byte
	stateLen                        // waiting for LEN
	stateType                       // waiting for TYPE
	stateCmd                        // waiting for CMD
	stateData                       // waiting for payload
	stateChecksum                   // waiting for CHECKSUM
)

// Parser parses bytes received.
type Parser struct {
	state   parseState
	frame   *Frame
	dataLen int
	sum     byte
}

// Receiving indicates the parser is in the middle of a frame.
func (p *Parser) Receiving() bool {
	return p.state != stateSOF
}

// Reset drops any partial frame.
func (p *Parser) Reset() {
	p.state, p.frame = stateSOF, nil
}

// Timeout notifies the parser the byte timer expired. A partial frame
// is dropped.
func (p *Parser) Timeout() (pr ParseResult) {
	if p.state != stateSOF {
		p.Reset()
		pr.Discarded = true
	}
	return
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateSOF:
		switch b {
		case SOF:
			p.state, p.sum = stateLen, 0xff
			p.frame = &Frame{}
		case ACK, NAK, CAN:
			pr.Control = b
		default:
			pr.Discarded = true
		}
	case stateLen:
		if b < 3 {
			p.Reset()
			pr.Discarded = true
			break
		}
		p.dataLen = int(b) - 3
		p.sum ^= b
		p.state = stateType
	case stateType:
		p.frame.Type = FrameType(b)
		p.sum ^= b
		p.state = stateCmd
	case stateCmd:
		p.frame.CommandID = b
		p.sum ^= b
		p.frame.Payload = make([]byte, 0, p.dataLen)
		if p.dataLen == 0 {
			p.state = stateChecksum
		} else {
			p.state = stateData
		}
	case stateData:
		p.frame.Payload = append(p.frame.Payload, b)
		p.sum ^= b
		if len(p.frame.Payload) >= p.dataLen {
			p.state = stateChecksum
		}
	case stateChecksum:
		frame := p.frame
		p.Reset()
		if b != p.sum {
			pr.Respond = NAK
			break
		}
		pr.Respond, pr.Frame = ACK, frame
	}
	pr.Receiving = p.Receiving()
	return
}
