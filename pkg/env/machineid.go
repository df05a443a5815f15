// Package env derives the identity of the bridge from the machine.
package env

import (
	"encoding/hex"
	"fmt"

	"github.com/denisbrodbeck/machineid"
)

// AppID scopes the protected machine id to this application.
const AppID = "serialapi"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		panic(err)
	}
	return id
}

// HomeID derives the network home id from the machine id.
func HomeID() (uint32, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return 0, fmt.Errorf("machine id: %v", err)
	}
	return HomeIDFrom(id)
}

// HomeIDFrom derives a home id from a hex encoded machine id. Home ids
// of controllers carry the two top bits and are never 0xffffffff.
func HomeIDFrom(hexID string) (uint32, error) {
	b, err := hex.DecodeString(hexID)
	if err != nil {
		return 0, fmt.Errorf("invalid machine id: %v", err)
	}
	if len(b) < 4 {
		return 0, fmt.Errorf("machine id too short: %d bytes", len(b))
	}
	var homeID uint32
	for n, v := range b {
		homeID ^= uint32(v) << uint(8*(3-n%4))
	}
	homeID |= 0xc0000000
	if homeID == 0xffffffff {
		homeID = 0xfffffffe
	}
	return homeID, nil
}
