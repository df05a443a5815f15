// Package dispatch maps inbound command ids to handlers producing replies.
package dispatch

import (
	"sort"
	"sync"

	"github.com/golang/glog"
)

// FuncUnsupported is the command id of the reply to an unknown command.
// The payload carries the unrecognized command id.
const FuncUnsupported byte = 0x00

// ContinuationKind identifies the work to resume after a reply completes.
type ContinuationKind int

// Continuation kinds.
const (
	// NoContinuation means nothing follows the reply.
	NoContinuation ContinuationKind = iota
	// ContinueSoftReset resets the transport after the reply.
	ContinueSoftReset
	// ContinueCustom is the base value for application defined kinds.
	ContinueCustom ContinuationKind = 0x100
)

// Continuation is a typed token describing follow-up work of a command.
type Continuation struct {
	Kind  ContinuationKind
	Token byte
}

// IsNone indicates there is no follow-up work.
func (c Continuation) IsNone() bool {
	return c.Kind == NoContinuation
}

// Reply is the immediate reply frame of a command.
type Reply struct {
	CommandID byte
	Payload   []byte
}

// Result is the outcome of handling a command: an optional immediate
// reply and an optional continuation.
type Result struct {
	Reply *Reply
	Then  Continuation
}

// HasReply indicates an immediate reply is to be transmitted.
func (r Result) HasReply() bool {
	return r.Reply != nil
}

// WithContinuation returns a copy of the result with the continuation set.
func (r Result) WithContinuation(kind ContinuationKind, token byte) Result {
	r.Then = Continuation{Kind: kind, Token: token}
	return r
}

// NoReply is the result of commands answered later or not at all.
func NoReply() Result {
	return Result{}
}

// Respond creates a result replying with the same command id.
func Respond(commandID byte, payload ...byte) Result {
	return Result{Reply: &Reply{CommandID: commandID, Payload: payload}}
}

// Unsupported creates the reply for an unrecognized command.
func Unsupported(commandID byte) Result {
	return Respond(FuncUnsupported, commandID)
}

// Handler handles the payload of one command. It must not block.
type Handler interface {
	HandleCommand(commandID byte, payload []byte) Result
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(commandID byte, payload []byte) Result

// HandleCommand implements Handler.
func (f HandlerFunc) HandleCommand(commandID byte, payload []byte) Result {
	return f(commandID, payload)
}

// ContinuationHandler resumes work after the reply of a command completed.
// delivered is false when the reply was dropped after exhausting retries.
type ContinuationHandler func(c Continuation, delivered bool)

// Table is a static mapping from command id to Handler.
type Table struct {
	OnContinue ContinuationHandler

	handlers map[byte]Handler
	lock     sync.RWMutex
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{handlers: make(map[byte]Handler)}
}

// Handle registers a handler for commandID, replacing any existing one.
func (t *Table) Handle(commandID byte, h Handler) *Table {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.handlers == nil {
		t.handlers = make(map[byte]Handler)
	}
	t.handlers[commandID] = h
	return t
}

// HandleFunc registers a func handler.
func (t *Table) HandleFunc(commandID byte, fn func(commandID byte, payload []byte) Result) *Table {
	return t.Handle(commandID, HandlerFunc(fn))
}

// Lookup finds the handler of commandID.
func (t *Table) Lookup(commandID byte) (Handler, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	h, ok := t.handlers[commandID]
	return h, ok
}

// Supported lists registered command ids in ascending order.
func (t *Table) Supported() []byte {
	t.lock.RLock()
	ids := make([]byte, 0, len(t.handlers))
	for id := range t.handlers {
		ids = append(ids, id)
	}
	t.lock.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Bitmask encodes supported command ids as a bitmask where bit n-1
// represents command id n, the way capability replies carry them.
func (t *Table) Bitmask(size int) []byte {
	mask := make([]byte, size)
	for _, id := range t.Supported() {
		if id == 0 {
			continue
		}
		n := int(id) - 1
		if n/8 < size {
			mask[n/8] |= 1 << uint(n%8)
		}
	}
	return mask
}

// Dispatch looks up the handler of commandID and invokes it. Unknown
// commands produce the Unsupported reply.
func (t *Table) Dispatch(commandID byte, payload []byte) Result {
	h, ok := t.Lookup(commandID)
	if !ok {
		glog.V(2).Infof("unsupported command 0x%02x", commandID)
		return Unsupported(commandID)
	}
	return h.HandleCommand(commandID, payload)
}

// Continue runs the continuation through OnContinue.
func (t *Table) Continue(c Continuation, delivered bool) {
	if c.IsNone() {
		return
	}
	if fn := t.OnContinue; fn != nil {
		fn(c, delivered)
	}
}
