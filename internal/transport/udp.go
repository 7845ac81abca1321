package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// UDPChannel carries frames as datagrams between two fixed addresses.
// One datagram is one frame; segmentation is out of scope here.
type UDPChannel struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	in     chan []byte
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenUDP binds local and addresses remote. Read errors after close
// are expected teardown; anything else is a disconnect edge, which is
// logged only.
func OpenUDP(local, remote string, logger zerolog.Logger) (*UDPChannel, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve local %q: %w", local, err)
	}
	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve remote %q: %w", remote, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %q: %w", local, err)
	}

	ch := &UDPChannel{
		conn:   conn,
		remote: raddr,
		in:     make(chan []byte, loopbackDepth),
		logger: logger,
	}
	go ch.readLoop()
	return ch, nil
}

func (c *UDPChannel) readLoop() {
	defer close(c.in)
	buf := make([]byte, MaxFrameLen+1)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			c.logger.Debug().Err(err).Msg("udp channel read ended")
			return
		}
		if n > MaxFrameLen {
			c.logger.Warn().Int("len", n).Msg("dropping oversized inbound frame")
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		c.in <- frame
	}
}

func (c *UDPChannel) Write(frame []byte) error {
	if len(frame) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	if _, err := c.conn.WriteToUDP(frame, c.remote); err != nil {
		return fmt.Errorf("transport: udp write: %w", err)
	}
	return nil
}

func (c *UDPChannel) Recv() <-chan []byte {
	return c.in
}

func (c *UDPChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
