// Package transport provides the addressed byte-frame channels the
// diagnostic endpoint and tester talk over: an in-process loopback
// pair standing in for a virtual bus, and a UDP-backed channel for
// running the two sides as separate processes.
package transport

import "errors"

// MaxFrameLen bounds one frame at the addressed protocol's maximum
// telegram size.
const MaxFrameLen = 4095

var (
	ErrFrameTooLarge = errors.New("transport: frame exceeds maximum length")
	ErrChannelClosed = errors.New("transport: channel closed")
)

// Channel is one bidirectional addressed byte-frame link.
type Channel interface {
	// Write enqueues one outbound frame.
	Write(frame []byte) error
	// Recv yields exactly one inbound frame per receive event. The
	// channel is closed when the link goes away.
	Recv() <-chan []byte
	Close() error
}
