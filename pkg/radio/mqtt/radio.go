package mqtt

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serialapi/pkg/radio"
	"github.com/robotalks/serialapi/pkg/radio/pb"
)

// DefaultPublishTimeout bounds how long a publish may take before the
// transmission is reported failed.
const DefaultPublishTimeout = 2 * time.Second

// RxTopic returns the topic a node receives frames on.
func RxTopic(homeID uint32, node byte) string {
	return fmt.Sprintf("%08x/%d/rx", homeID, node)
}

// BroadcastTopic returns the topic of broadcast frames.
func BroadcastTopic(homeID uint32) string {
	return fmt.Sprintf("%08x/broadcast", homeID)
}

// ParseRxTopic extracts home id and node id from an rx topic.
func ParseRxTopic(topic string) (homeID uint32, node byte, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "rx" {
		return 0, 0, false
	}
	h, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return 0, 0, false
	}
	return uint32(h), byte(n), true
}

// Radio is a node on an MQTT simulated network. It implements
// radio.Radio.
type Radio struct {
	Bus            *Bus
	HomeID         uint32
	PublishTimeout time.Duration

	node    byte
	handler radio.Handler
	lock    sync.RWMutex
}

// NewRadio creates a Radio for node within homeID.
func NewRadio(bus *Bus, homeID uint32, node byte) *Radio {
	return &Radio{
		Bus:            bus,
		HomeID:         homeID,
		PublishTimeout: DefaultPublishTimeout,
		node:           node,
	}
}

// OpenRadio connects to the broker and starts a Radio for node.
func OpenRadio(brokerURL string, homeID uint32, node byte) (*Radio, error) {
	bus, err := NewBusFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if err := bus.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %v", brokerURL, err)
	}
	r := NewRadio(bus, homeID, node)
	if err := r.Start(); err != nil {
		bus.Close()
		return nil, err
	}
	return r, nil
}

// Close disconnects the bus.
func (r *Radio) Close() error {
	return r.Bus.Close()
}

// Start subscribes to frames addressed to this node.
func (r *Radio) Start() error {
	for _, topic := range []string{RxTopic(r.HomeID, r.node), BroadcastTopic(r.HomeID)} {
		token := r.Bus.Subscribe(topic, r.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
	}
	return nil
}

// NodeID implements radio.Radio.
func (r *Radio) NodeID() byte {
	return r.node
}

// SetHandler implements radio.Radio.
func (r *Radio) SetHandler(h radio.Handler) {
	r.lock.Lock()
	r.handler = h
	r.lock.Unlock()
}

// SendData implements radio.Radio. The frame counts as delivered once
// the broker accepted it.
func (r *Radio) SendData(dst byte, payload []byte, funcID byte) error {
	if len(payload) > radio.MaxPayload {
		return radio.ErrPayloadTooLarge
	}
	start := time.Now()
	msg := &pb.RadioFrame{
		HomeId:   r.HomeID,
		Src:      uint32(r.node),
		Dst:      uint32(dst),
		Payload:  payload,
		FuncId:   uint32(funcID),
		SentAtNs: start.UnixNano(),
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	topic := RxTopic(r.HomeID, dst)
	if dst == radio.BroadcastNode {
		topic = BroadcastTopic(r.HomeID)
	}
	token := r.Bus.Publish(topic, data)
	go func() {
		status := radio.TxOK
		if !token.WaitTimeout(r.PublishTimeout) {
			status = radio.TxNoAck
		} else if err := token.Error(); err != nil {
			glog.Warningf("publish %s: %v", topic, err)
			status = radio.TxFail
		}
		if h := r.currentHandler(); h != nil {
			h.OnTxStatus(funcID, status, time.Since(start))
		}
	}()
	return nil
}

func (r *Radio) handleMessage(topic string, payload []byte) {
	var msg pb.RadioFrame
	if err := proto.Unmarshal(payload, &msg); err != nil {
		glog.Warningf("%s: bad frame: %v", topic, err)
		return
	}
	if msg.HomeId != r.HomeID || byte(msg.Src) == r.node {
		return
	}
	h := r.currentHandler()
	if h == nil {
		return
	}
	h.OnReceive(radio.Frame{
		Src:     byte(msg.Src),
		Dst:     byte(msg.Dst),
		Payload: msg.GetPayload(),
		RSSI:    int8(msg.Rssi),
	})
}

func (r *Radio) currentHandler() radio.Handler {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.handler
}
