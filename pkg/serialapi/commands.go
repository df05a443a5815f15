package serialapi

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialapi/pkg/dispatch"
)

func (b *Bridge) registerCommands(t *dispatch.Table) {
	t.HandleFunc(FuncGetInitData, b.getInitData).
		HandleFunc(FuncSetTimeouts, b.setTimeouts).
		HandleFunc(FuncGetCapabilities, b.getCapabilities).
		HandleFunc(FuncSoftReset, b.softReset).
		HandleFunc(FuncSetup, b.setup).
		HandleFunc(FuncSendData, b.sendData).
		HandleFunc(FuncGetVersion, b.getVersion).
		HandleFunc(FuncGetRandom, b.getRandom).
		HandleFunc(FuncMemoryGetID, b.memoryGetID).
		HandleFunc(FuncTypeLibrary, b.typeLibrary).
		HandleFunc(FuncReady, b.ready)
}

// ver | capabilities | 29 | nodemask[29] | chipType | chipVersion
func (b *Bridge) getInitData(cmd byte, _ []byte) dispatch.Result {
	reply := make([]byte, 0, NodeMaskSize+5)
	reply = append(reply, b.Info.APIVersion, b.Info.APICapability, NodeMaskSize)
	mask := make([]byte, NodeMaskSize)
	if n := int(b.Info.NodeID) - 1; n >= 0 && n/8 < NodeMaskSize {
		mask[n/8] |= 1 << uint(n%8)
	}
	reply = append(reply, mask...)
	reply = append(reply, b.Info.ChipType, b.Info.ChipVersion)
	return dispatch.Respond(cmd, reply...)
}

// Timeouts are in 10ms ticks; the reply carries the previous values.
func (b *Bridge) setTimeouts(cmd byte, payload []byte) dispatch.Result {
	ack, byteTimeout := b.Link.Timeouts()
	reply := []byte{toTicks(ack), toTicks(byteTimeout)}
	if len(payload) >= 2 {
		b.Link.SetTimeouts(fromTicks(payload[0]), fromTicks(payload[1]))
	}
	return dispatch.Respond(cmd, reply...)
}

func (b *Bridge) getCapabilities(cmd byte, _ []byte) dispatch.Result {
	reply := make([]byte, 8, 8+CapabilityBitmaskSize)
	reply[0], reply[1] = b.Info.AppVersion, b.Info.AppRevision
	binary.BigEndian.PutUint16(reply[2:], b.Info.ManufacturerID)
	binary.BigEndian.PutUint16(reply[4:], b.Info.ProductType)
	binary.BigEndian.PutUint16(reply[6:], b.Info.ProductID)
	reply = append(reply, b.Table.Bitmask(CapabilityBitmaskSize)...)
	return dispatch.Respond(cmd, reply...)
}

func (b *Bridge) softReset(byte, []byte) dispatch.Result {
	return dispatch.NoReply().WithContinuation(dispatch.ContinueSoftReset, WakeupSoftwareReset)
}

func (b *Bridge) setup(cmd byte, payload []byte) dispatch.Result {
	if len(payload) == 0 {
		return dispatch.Respond(cmd, SetupUnsupported)
	}
	switch sub := payload[0]; sub {
	case SetupGetSupported:
		return dispatch.Respond(cmd, sub, 1<<(SetupGetSupported-1)|1<<(SetupTxStatusReport-1))
	case SetupTxStatusReport:
		enable := len(payload) > 1 && payload[1] != 0
		b.txStatusReport.Store(enable)
		return dispatch.Respond(cmd, sub, 1)
	default:
		glog.V(2).Infof("unsupported setup sub-command 0x%02x", sub)
		return dispatch.Respond(cmd, SetupUnsupported)
	}
}

// node | len | data[len] | txOptions | funcID
func (b *Bridge) sendData(cmd byte, payload []byte) dispatch.Result {
	if len(payload) < 2 {
		return dispatch.Respond(cmd, 0)
	}
	dst, size := payload[0], int(payload[1])
	if len(payload) < size+4 {
		glog.V(2).Infof("short send data: %d bytes for %d", len(payload), size)
		return dispatch.Respond(cmd, 0)
	}
	data := payload[2 : 2+size]
	funcID := payload[3+size]
	if b.Radio == nil {
		return dispatch.Respond(cmd, 0)
	}
	if err := b.Radio.SendData(dst, data, funcID); err != nil {
		glog.Warningf("send data to %d: %v", dst, err)
		return dispatch.Respond(cmd, 0)
	}
	return dispatch.Respond(cmd, 1)
}

func (b *Bridge) getVersion(cmd byte, _ []byte) dispatch.Result {
	reply := make([]byte, 0, 13)
	reply = append(reply, b.Info.VersionString()...)
	reply = append(reply, 0, b.Info.LibraryType)
	return dispatch.Respond(cmd, reply...)
}

// success | count | bytes[count]
func (b *Bridge) getRandom(cmd byte, payload []byte) dispatch.Result {
	count := DefaultRandomCount
	if len(payload) > 0 && payload[0] != 0 {
		count = int(payload[0])
	}
	if count > MaxRandomCount {
		count = MaxRandomCount
	}
	buf := make([]byte, count)
	if _, err := rand.Read(buf); err != nil {
		glog.Errorf("random: %v", err)
		return dispatch.Respond(cmd, 0, 0)
	}
	return dispatch.Respond(cmd, append([]byte{1, byte(count)}, buf...)...)
}

func (b *Bridge) memoryGetID(cmd byte, _ []byte) dispatch.Result {
	reply := make([]byte, 5)
	binary.BigEndian.PutUint32(reply, b.Info.HomeID)
	reply[4] = b.Info.NodeID
	return dispatch.Respond(cmd, reply...)
}

func (b *Bridge) typeLibrary(cmd byte, _ []byte) dispatch.Result {
	return dispatch.Respond(cmd, b.Info.LibraryType)
}

// A missing state or any value other than LinkDetached attaches. READY
// gets no reply frame: the host only waits for the ACK.
func (b *Bridge) ready(_ byte, payload []byte) dispatch.Result {
	readiness := b.Engine.Readiness()
	if len(payload) > 0 && payload[0] == LinkDetached {
		glog.Info("host detached")
		b.Engine.PurgeCallbacks()
		readiness.Detach()
		return dispatch.NoReply()
	}
	readiness.Attach()
	return dispatch.NoReply()
}

func toTicks(d time.Duration) byte {
	ticks := d / (10 * time.Millisecond)
	if ticks > 0xff {
		return 0xff
	}
	return byte(ticks)
}

func fromTicks(t byte) time.Duration {
	return time.Duration(t) * 10 * time.Millisecond
}
