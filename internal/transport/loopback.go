package transport

import "sync"

const loopbackDepth = 64

// loopbackEnd is one side of an in-process channel pair.
type loopbackEnd struct {
	sendID    uint32
	receiveID uint32

	mu     sync.RWMutex
	closed bool
	in     chan []byte
	peer   *loopbackEnd
}

// Pair builds a crossed in-process channel pair: frames written on
// the ECU end arrive on the tester end and vice versa. The id roles
// are flipped between the two ends the way a tester flips rx/tx.
func Pair(ecuReceiveID, ecuSendID uint32) (ecu Channel, tester Channel) {
	a := &loopbackEnd{sendID: ecuSendID, receiveID: ecuReceiveID, in: make(chan []byte, loopbackDepth)}
	b := &loopbackEnd{sendID: ecuReceiveID, receiveID: ecuSendID, in: make(chan []byte, loopbackDepth)}
	a.peer = b
	b.peer = a
	return a, b
}

func (e *loopbackEnd) Write(frame []byte) error {
	if len(frame) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	peer := e.peer

	peer.mu.RLock()
	defer peer.mu.RUnlock()
	if peer.closed {
		return ErrChannelClosed
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	peer.in <- cp
	return nil
}

func (e *loopbackEnd) Recv() <-chan []byte {
	return e.in
}

func (e *loopbackEnd) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.in)
	return nil
}
