// Package host implements the host side of the serial link.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/transport"
)

var (
	// ErrNoReply indicates no response received from the bridge.
	// This happens when a response to a later command arrives first, or
	// the response doesn't arrive within ResponseTimeout.
	ErrNoReply = errors.New("no reply")
	// ErrNoAck indicates the request was not acknowledged after retries.
	ErrNoAck = errors.New("request not acknowledged")
	// ErrUnsupported indicates the bridge doesn't support the command.
	ErrUnsupported = errors.New("unsupported command")
	// ErrClosed indicates the client stopped.
	ErrClosed = errors.New("client closed")
)

// CommandError reports a command failure code returned by the bridge.
type CommandError struct {
	CommandID byte
	Code      byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command 0x%02x error %d", e.CommandID, e.Code)
}

// Defaults of Client.
const (
	DefaultRetries         = 2
	DefaultResponseTimeout = time.Second
)

// Result is the result of a command.
type Result struct {
	Err       error
	CommandID byte
	Payload   []byte
}

// Command represents a pending request.
type Command struct {
	commandID  byte
	payload    []byte
	expectResp bool
	attempts   int
	deadline   time.Time
	resultCh   chan Result
	next       *Command
}

// CommandID returns the requested command id.
func (c *Command) CommandID() byte {
	return c.commandID
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// matches accepts the response of the command, or the unsupported reply
// naming it.
func (c *Command) matches(f *link.Frame) bool {
	if f.CommandID == c.commandID {
		return true
	}
	return f.CommandID == 0 && len(f.Payload) > 0 && f.Payload[0] == c.commandID
}

// Wait waits for the result.
func (c *Command) Wait(ctx context.Context) Result {
	select {
	case r := <-c.resultCh:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err(), CommandID: c.commandID}
	}
}

type commandList struct {
	head *Command
	tail *Command
}

func (l *commandList) push(cmd *Command) {
	if l.head == nil {
		l.head = cmd
	} else {
		l.tail.next = cmd
	}
	l.tail = cmd
}

func (l *commandList) pop() *Command {
	cmd := l.head
	if cmd != nil {
		if l.head = cmd.next; l.head == nil {
			l.tail = nil
		}
		cmd.next = nil
	}
	return cmd
}

// Client sends requests to a bridge and collects responses. Requests are
// transmitted one at a time; unsolicited frames go to EventChan.
type Client struct {
	Retries         int
	ResponseTimeout time.Duration

	link    *link.Link
	eventCh chan *link.Frame
	wakeCh  chan struct{}

	lock     sync.Mutex
	outgoing commandList
	inflight *Command
	waiting  commandList
}

// NewClient creates a Client over the link.
func NewClient(lnk *link.Link) *Client {
	c := &Client{
		Retries:         DefaultRetries,
		ResponseTimeout: DefaultResponseTimeout,
		link:            lnk,
		eventCh:         make(chan *link.Frame, 16),
		wakeCh:          make(chan struct{}, 1),
	}
	lnk.Notify = c.wake
	return c
}

// Link returns the wrapped link.
func (c *Client) Link() *link.Link {
	return c.link
}

// EventChan retrieves unsolicited frames (callbacks and notifications).
func (c *Client) EventChan() <-chan *link.Frame {
	return c.eventCh
}

// Do sends a request which expects a response.
func (c *Client) Do(commandID byte, payload ...byte) *Command {
	return c.submit(commandID, payload, true)
}

// Send sends a request which has no response. The result is delivered
// once the request is acknowledged.
func (c *Client) Send(commandID byte, payload ...byte) *Command {
	return c.submit(commandID, payload, false)
}

func (c *Client) submit(commandID byte, payload []byte, expectResp bool) *Command {
	cmd := &Command{
		commandID:  commandID,
		payload:    append([]byte{}, payload...),
		expectResp: expectResp,
		resultCh:   make(chan Result, 1),
	}
	c.lock.Lock()
	c.outgoing.push(cmd)
	c.lock.Unlock()
	c.wake()
	return cmd
}

// Run runs the link and processes events until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	linkErrCh := make(chan error, 1)
	go func() { linkErrCh <- c.link.Run(ctx) }()
	ticker := time.NewTicker(c.ResponseTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.failAll(ErrClosed)
			return ctx.Err()
		case err := <-linkErrCh:
			c.failAll(ErrClosed)
			return err
		case <-ticker.C:
			c.expire(time.Now())
		case <-c.wakeCh:
		}
		c.process()
	}
}

func (c *Client) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *Client) process() {
	for {
		ev, ok := c.link.NextEvent()
		if !ok {
			break
		}
		switch ev.Kind {
		case transport.FrameAccepted:
			c.handleFrame(ev.Frame)
		case transport.TxConfirmed:
			c.confirmed()
		case transport.TxTimedOutOrNacked:
			c.rejected()
		}
	}
	c.transmitNext()
}

func (c *Client) transmitNext() {
	c.lock.Lock()
	if c.inflight != nil {
		c.lock.Unlock()
		return
	}
	cmd := c.outgoing.pop()
	c.inflight = cmd
	c.lock.Unlock()
	if cmd != nil {
		cmd.attempts = 1
		c.link.Send(&link.Frame{Type: link.Request, CommandID: cmd.commandID, Payload: cmd.payload})
	}
}

func (c *Client) confirmed() {
	c.lock.Lock()
	cmd := c.inflight
	c.inflight = nil
	if cmd != nil && cmd.expectResp {
		cmd.deadline = time.Now().Add(c.ResponseTimeout)
		c.waiting.push(cmd)
		cmd = nil
	}
	c.lock.Unlock()
	if cmd != nil {
		cmd.resultCh <- Result{CommandID: cmd.commandID}
	}
}

func (c *Client) rejected() {
	c.lock.Lock()
	cmd := c.inflight
	if cmd == nil {
		c.lock.Unlock()
		return
	}
	if cmd.attempts <= c.Retries {
		cmd.attempts++
		c.lock.Unlock()
		glog.V(2).Infof("resend 0x%02x attempt %d", cmd.commandID, cmd.attempts)
		c.link.Send(&link.Frame{Type: link.Request, CommandID: cmd.commandID, Payload: cmd.payload})
		return
	}
	c.inflight = nil
	c.lock.Unlock()
	cmd.resultCh <- Result{Err: ErrNoAck, CommandID: cmd.commandID}
}

func (c *Client) handleFrame(f *link.Frame) {
	if f.Type != link.Response {
		select {
		case c.eventCh <- f:
		default:
			glog.Warningf("event chan full, drop %s", f)
		}
		return
	}
	c.lock.Lock()
	var skipped []*Command
	var matched *Command
	for cmd := c.waiting.pop(); cmd != nil; cmd = c.waiting.pop() {
		if cmd.matches(f) {
			matched = cmd
			break
		}
		skipped = append(skipped, cmd)
	}
	if matched == nil {
		// an unknown response supersedes nothing
		for _, cmd := range skipped {
			c.waiting.push(cmd)
		}
		c.lock.Unlock()
		glog.V(2).Infof("unmatched response %s", f)
		return
	}
	c.lock.Unlock()
	for _, cmd := range skipped {
		cmd.resultCh <- Result{Err: ErrNoReply, CommandID: cmd.commandID}
	}
	matched.resultCh <- Result{CommandID: f.CommandID, Payload: f.Payload}
}

func (c *Client) expire(now time.Time) {
	var expired []*Command
	c.lock.Lock()
	for c.waiting.head != nil && now.After(c.waiting.head.deadline) {
		expired = append(expired, c.waiting.pop())
	}
	c.lock.Unlock()
	for _, cmd := range expired {
		cmd.resultCh <- Result{Err: ErrNoReply, CommandID: cmd.commandID}
	}
}

func (c *Client) failAll(err error) {
	var cmds []*Command
	c.lock.Lock()
	if c.inflight != nil {
		cmds = append(cmds, c.inflight)
		c.inflight = nil
	}
	for _, l := range []*commandList{&c.waiting, &c.outgoing} {
		for cmd := l.pop(); cmd != nil; cmd = l.pop() {
			cmds = append(cmds, cmd)
		}
	}
	c.lock.Unlock()
	for _, cmd := range cmds {
		cmd.resultCh <- Result{Err: err, CommandID: cmd.commandID}
	}
}
