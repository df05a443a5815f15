package serialapi

import "fmt"

// NodeInfo describes the identity reported to the host.
type NodeInfo struct {
	HomeID         uint32 `yaml:"home-id"`
	NodeID         byte   `yaml:"node-id"`
	LibraryType    byte   `yaml:"library-type"`
	APIVersion     byte   `yaml:"api-version"`
	APICapability  byte   `yaml:"api-capabilities"`
	ChipType       byte   `yaml:"chip-type"`
	ChipVersion    byte   `yaml:"chip-version"`
	ProtocolMajor  byte   `yaml:"protocol-major"`
	ProtocolMinor  byte   `yaml:"protocol-minor"`
	AppVersion     byte   `yaml:"app-version"`
	AppRevision    byte   `yaml:"app-revision"`
	ManufacturerID uint16 `yaml:"manufacturer-id"`
	ProductType    uint16 `yaml:"product-type"`
	ProductID      uint16 `yaml:"product-id"`
	GenericType    byte   `yaml:"generic-type"`
	SpecificType   byte   `yaml:"specific-type"`
}

// DefaultNodeInfo returns the identity of a static controller.
func DefaultNodeInfo() NodeInfo {
	return NodeInfo{
		NodeID:        1,
		LibraryType:   0x01,
		APIVersion:    0x09,
		ChipType:      0x07,
		ProtocolMajor: 7,
		ProtocolMinor: 18,
		AppVersion:    1,
		ProductType:   0x0004,
		ProductID:     0x0001,
		GenericType:   0x02,
		SpecificType:  0x07,
	}
}

// Validate checks the node id is usable.
func (n *NodeInfo) Validate() error {
	if n.NodeID == 0 || int(n.NodeID) > NodeMaskSize*8 {
		return fmt.Errorf("invalid node id %d", n.NodeID)
	}
	return nil
}

// VersionString returns the 11 character library version string.
func (n *NodeInfo) VersionString() string {
	return fmt.Sprintf("Z-Wave %1d.%2d", n.ProtocolMajor%10, n.ProtocolMinor%100)
}
