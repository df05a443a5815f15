package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/serialapi/pkg/serialapi"
)

// Version is the reply of ZW_GET_VERSION.
type Version struct {
	Library     string
	LibraryType byte
}

// Capabilities is the reply of SERIAL_API_GET_CAPABILITIES.
type Capabilities struct {
	AppVersion     byte
	AppRevision    byte
	ManufacturerID uint16
	ProductType    uint16
	ProductID      uint16
	Supported      []byte
}

// InitData is the reply of SERIAL_API_GET_INIT_DATA.
type InitData struct {
	APIVersion   byte
	Capabilities byte
	Nodes        []byte
	ChipType     byte
	ChipVersion  byte
}

func (c *Client) call(ctx context.Context, commandID byte, minLen int, payload ...byte) ([]byte, error) {
	r := c.Do(commandID, payload...).Wait(ctx)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.CommandID != commandID {
		return nil, ErrUnsupported
	}
	if len(r.Payload) < minLen {
		return nil, fmt.Errorf("%s: short reply (%d bytes)", serialapi.FuncName(commandID), len(r.Payload))
	}
	return r.Payload, nil
}

// GetVersion queries the library version.
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	reply, err := c.call(ctx, serialapi.FuncGetVersion, 13)
	if err != nil {
		return nil, err
	}
	return &Version{
		Library:     strings.TrimRight(string(reply[:12]), "\x00"),
		LibraryType: reply[12],
	}, nil
}

// GetCapabilities queries the application identity and supported functions.
func (c *Client) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	reply, err := c.call(ctx, serialapi.FuncGetCapabilities, 8)
	if err != nil {
		return nil, err
	}
	caps := &Capabilities{
		AppVersion:     reply[0],
		AppRevision:    reply[1],
		ManufacturerID: binary.BigEndian.Uint16(reply[2:]),
		ProductType:    binary.BigEndian.Uint16(reply[4:]),
		ProductID:      binary.BigEndian.Uint16(reply[6:]),
	}
	for n, bits := range reply[8:] {
		for i := uint(0); i < 8; i++ {
			if bits&(1<<i) != 0 {
				caps.Supported = append(caps.Supported, byte(n*8+int(i)+1))
			}
		}
	}
	return caps, nil
}

// GetInitData queries the node list.
func (c *Client) GetInitData(ctx context.Context) (*InitData, error) {
	reply, err := c.call(ctx, serialapi.FuncGetInitData, 3)
	if err != nil {
		return nil, err
	}
	data := &InitData{APIVersion: reply[0], Capabilities: reply[1]}
	maskLen := int(reply[2])
	if len(reply) < 3+maskLen {
		return nil, fmt.Errorf("init data: short node mask")
	}
	for n, bits := range reply[3 : 3+maskLen] {
		for i := uint(0); i < 8; i++ {
			if bits&(1<<i) != 0 {
				data.Nodes = append(data.Nodes, byte(n*8+int(i)+1))
			}
		}
	}
	if rest := reply[3+maskLen:]; len(rest) >= 2 {
		data.ChipType, data.ChipVersion = rest[0], rest[1]
	}
	return data, nil
}

// MemoryGetID queries home id and node id.
func (c *Client) MemoryGetID(ctx context.Context) (homeID uint32, nodeID byte, err error) {
	reply, err := c.call(ctx, serialapi.FuncMemoryGetID, 5)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint32(reply), reply[4], nil
}

// GetRandom asks for count random bytes.
func (c *Client) GetRandom(ctx context.Context, count byte) ([]byte, error) {
	reply, err := c.call(ctx, serialapi.FuncGetRandom, 2, count)
	if err != nil {
		return nil, err
	}
	if reply[0] == 0 {
		return nil, &CommandError{CommandID: serialapi.FuncGetRandom, Code: reply[0]}
	}
	n := int(reply[1])
	if len(reply) < 2+n {
		n = len(reply) - 2
	}
	return reply[2 : 2+n], nil
}

// TypeLibrary queries the library type.
func (c *Client) TypeLibrary(ctx context.Context) (byte, error) {
	reply, err := c.call(ctx, serialapi.FuncTypeLibrary, 1)
	if err != nil {
		return 0, err
	}
	return reply[0], nil
}

// SetTimeouts updates link timeouts of the bridge and returns the previous
// values.
func (c *Client) SetTimeouts(ctx context.Context, ack, byteTimeout time.Duration) (oldAck, oldByte time.Duration, err error) {
	reply, err := c.call(ctx, serialapi.FuncSetTimeouts, 2,
		byte(ack/(10*time.Millisecond)), byte(byteTimeout/(10*time.Millisecond)))
	if err != nil {
		return 0, 0, err
	}
	return time.Duration(reply[0]) * 10 * time.Millisecond, time.Duration(reply[1]) * 10 * time.Millisecond, nil
}

// SetTxStatusReport enables extended transmit status in send callbacks.
func (c *Client) SetTxStatusReport(ctx context.Context, enable bool) error {
	var v byte
	if enable {
		v = 1
	}
	reply, err := c.call(ctx, serialapi.FuncSetup, 2, serialapi.SetupTxStatusReport, v)
	if err != nil {
		return err
	}
	if reply[1] == 0 {
		return &CommandError{CommandID: serialapi.FuncSetup, Code: reply[1]}
	}
	return nil
}

// SendData asks the bridge to transmit data to node. The transmit status
// arrives later on EventChan as a ZW_SEND_DATA request when funcID isn't 0.
func (c *Client) SendData(ctx context.Context, node byte, data []byte, txOptions, funcID byte) error {
	payload := make([]byte, 0, len(data)+4)
	payload = append(payload, node, byte(len(data)))
	payload = append(payload, data...)
	payload = append(payload, txOptions, funcID)
	reply, err := c.call(ctx, serialapi.FuncSendData, 1, payload...)
	if err != nil {
		return err
	}
	if reply[0] == 0 {
		return &CommandError{CommandID: serialapi.FuncSendData, Code: reply[0]}
	}
	return nil
}

// Ready tells the bridge whether the host accepts unsolicited frames.
func (c *Client) Ready(ctx context.Context, attach bool) error {
	state := serialapi.LinkDetached
	if attach {
		state = serialapi.LinkConnected
	}
	return c.Send(serialapi.FuncReady, state).Wait(ctx).Err
}

// SoftReset restarts the bridge. SERIAL_API_STARTED arrives on EventChan.
func (c *Client) SoftReset(ctx context.Context) error {
	return c.Send(serialapi.FuncSoftReset).Wait(ctx).Err
}
