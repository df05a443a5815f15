// Package link implements the serial frame codec between host and bridge.
package link

// Frames are exchanged over a peer-to-peer byte stream (e.g. serial port)
// using the layout:
//
//	SOF LEN TYPE CMD PAYLOAD... CHECKSUM
//
// LEN counts TYPE, CMD, PAYLOAD and CHECKSUM. CHECKSUM is 0xFF XOR every
// byte from LEN through the last payload byte. Every valid frame is
// acknowledged by a single ACK byte, a corrupted one by NAK. CAN tells the
// sender the frame was discarded and must be sent again.
