package radio

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Network is an in-memory radio network.
type Network struct {
	nodes map[byte]*Loopback
	lock  sync.RWMutex
}

// NewNetwork creates an empty Network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[byte]*Loopback)}
}

// Node returns the node with id, joining it to the network if absent.
func (n *Network) Node(id byte) *Loopback {
	n.lock.Lock()
	defer n.lock.Unlock()
	node := n.nodes[id]
	if node == nil {
		node = &Loopback{id: id, network: n}
		n.nodes[id] = node
	}
	return node
}

// Leave removes a node from the network.
func (n *Network) Leave(id byte) {
	n.lock.Lock()
	delete(n.nodes, id)
	n.lock.Unlock()
}

// NodeIDs lists ids of nodes in the network.
func (n *Network) NodeIDs() []byte {
	n.lock.RLock()
	ids := make([]byte, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	n.lock.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (n *Network) deliver(f Frame) int {
	var targets []*Loopback
	n.lock.RLock()
	if f.Dst == BroadcastNode {
		for id, node := range n.nodes {
			if id != f.Src {
				targets = append(targets, node)
			}
		}
	} else if node := n.nodes[f.Dst]; node != nil {
		targets = append(targets, node)
	}
	n.lock.RUnlock()
	for _, node := range targets {
		payload := make([]byte, len(f.Payload))
		copy(payload, f.Payload)
		frame := f
		frame.Payload = payload
		node.receive(frame)
	}
	return len(targets)
}

// Loopback is a node of an in-memory Network. It implements Radio.
type Loopback struct {
	id      byte
	network *Network
	handler Handler
	lock    sync.RWMutex
}

// NodeID implements Radio.
func (l *Loopback) NodeID() byte {
	return l.id
}

// SetHandler implements Radio.
func (l *Loopback) SetHandler(h Handler) {
	l.lock.Lock()
	l.handler = h
	l.lock.Unlock()
}

// SendData implements Radio. Delivery and status are reported
// asynchronously.
func (l *Loopback) SendData(dst byte, payload []byte, funcID byte) error {
	if len(payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	frame := Frame{Src: l.id, Dst: dst, Payload: append([]byte{}, payload...)}
	go func() {
		start := time.Now()
		status := TxOK
		if n := l.network.deliver(frame); n == 0 && dst != BroadcastNode {
			status = TxNoAck
		}
		glog.V(2).Infof("loopback %d -> %d: %s", l.id, dst, status)
		if h := l.currentHandler(); h != nil {
			h.OnTxStatus(funcID, status, time.Since(start))
		}
	}()
	return nil
}

func (l *Loopback) receive(f Frame) {
	if h := l.currentHandler(); h != nil {
		h.OnReceive(f)
	}
}

func (l *Loopback) currentHandler() Handler {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.handler
}
