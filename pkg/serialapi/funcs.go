// Package serialapi implements the SerialAPI command set on top of the
// transport engine and bridges it to a radio network.
package serialapi

import "fmt"

// Function ids.
const (
	FuncGetInitData               byte = 0x02
	FuncApplicationCommandHandler byte = 0x04
	FuncSetTimeouts               byte = 0x06
	FuncGetCapabilities           byte = 0x07
	FuncSoftReset                 byte = 0x08
	FuncStarted                   byte = 0x0A
	FuncSetup                     byte = 0x0B
	FuncSendData                  byte = 0x13
	FuncGetVersion                byte = 0x15
	FuncGetRandom                 byte = 0x1C
	FuncMemoryGetID               byte = 0x20
	FuncTypeLibrary               byte = 0xBD
	FuncReady                     byte = 0xEF
)

var funcNames = map[byte]string{
	FuncGetInitData:               "SERIAL_API_GET_INIT_DATA",
	FuncApplicationCommandHandler: "APPLICATION_COMMAND_HANDLER",
	FuncSetTimeouts:               "SERIAL_API_SET_TIMEOUTS",
	FuncGetCapabilities:           "SERIAL_API_GET_CAPABILITIES",
	FuncSoftReset:                 "SERIAL_API_SOFT_RESET",
	FuncStarted:                   "SERIAL_API_STARTED",
	FuncSetup:                     "SERIAL_API_SETUP",
	FuncSendData:                  "ZW_SEND_DATA",
	FuncGetVersion:                "ZW_GET_VERSION",
	FuncGetRandom:                 "ZW_GET_RANDOM",
	FuncMemoryGetID:               "MEMORY_GET_ID",
	FuncTypeLibrary:               "ZW_TYPE_LIBRARY",
	FuncReady:                     "SERIAL_API_READY",
}

// FuncName returns the symbolic name of a function id.
func FuncName(id byte) string {
	if name, ok := funcNames[id]; ok {
		return name
	}
	return fmt.Sprintf("FUNC_0x%02X", id)
}

// SERIAL_API_SETUP sub-commands.
const (
	SetupUnsupported    byte = 0x00
	SetupGetSupported   byte = 0x01
	SetupTxStatusReport byte = 0x02
)

// SERIAL_API_READY link states.
const (
	LinkDetached  byte = 0x00
	LinkConnected byte = 0x01
)

// Wakeup reasons carried by SERIAL_API_STARTED.
const (
	WakeupReset         byte = 0x00
	WakeupPowerUp       byte = 0x05
	WakeupSoftwareReset byte = 0x07
)

// CapabilityBitmaskSize is the size of the supported function bitmask.
const CapabilityBitmaskSize = 32

// NodeMaskSize is the size of the node bitmask in GET_INIT_DATA.
const NodeMaskSize = 29

// Random byte bounds of ZW_GET_RANDOM.
const (
	DefaultRandomCount = 2
	MaxRandomCount     = 32
)
