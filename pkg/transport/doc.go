// Package transport implements the host-facing transport engine.
//
// The Engine owns two bounded queues (callbacks and notifications), the
// link readiness tracker and the transport state machine. It is driven
// by signals delivered through framework.Loop, performing exactly one
// transition per signal, and talks to the wire through a LinkCodec.
package transport
