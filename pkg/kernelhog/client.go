//go:build linux

package kernelhog

import (
	"fmt"
	"sync"

	"github.com/josharian/native"
	"github.com/mdlayher/netlink"
)

// payloadLen is the packet: int32 type, uint32 cpu, uint32 load in msec.
const payloadLen = 12

var _ Hogger = (*Client)(nil)

// Client is a Hogger over a netlink connection.
type Client struct {
	mu   sync.Mutex
	conn *netlink.Conn
	seq  uint32
}

// Dial opens a netlink socket of the given protocol family.
func Dial(family int) (*Client, error) {
	c, err := netlink.Dial(family, nil)
	if err != nil {
		return nil, fmt.Errorf("kernelhog: dial family %d: %w", family, err)
	}
	return New(c), nil
}

// New wraps an open connection.
func New(c *netlink.Conn) *Client {
	return &Client{conn: c}
}

// Init starts a new session and resets the sequence numbers.
func (c *Client) Init() error { return c.do(OpInit, 0, 0) }

// CPULoad hands the kernel share of cpu to the module.
func (c *Client) CPULoad(cpu, msec int) error {
	if cpu < 0 || msec < 0 {
		return fmt.Errorf("%w: cpu=%d msec=%d", ErrInvalidCPU, cpu, msec)
	}
	return c.do(OpCPULoad, uint32(cpu), uint32(msec))
}

// Run starts the configured kernel threads.
func (c *Client) Run() error { return c.do(OpRun, 0, 0) }

// Stop stops the kernel threads.
func (c *Client) Stop() error { return c.do(OpStop, 0, 0) }

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) do(op Op, cpu, msec uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 0 would let the connection pick its own sequence number
	if op == OpInit {
		c.seq = 0
	}
	c.seq++

	req := netlink.Message{
		Header: netlink.Header{
			Type:     netlink.Noop,
			Flags:    netlink.Acknowledge,
			Sequence: c.seq,
		},
		Data: encode(op, cpu, msec),
	}

	sent, err := c.conn.Send(req)
	if err != nil {
		return fmt.Errorf("kernelhog: %s: send: %w", op, err)
	}
	replies, err := c.conn.Receive()
	if err != nil {
		return fmt.Errorf("kernelhog: %s: receive: %w", op, err)
	}
	return checkAck(op, sent, replies)
}

func encode(op Op, cpu, msec uint32) []byte {
	b := make([]byte, payloadLen)
	native.Endian.PutUint32(b[0:4], uint32(op))
	native.Endian.PutUint32(b[4:8], cpu)
	native.Endian.PutUint32(b[8:12], msec)
	return b
}

func checkAck(op Op, req netlink.Message, replies []netlink.Message) error {
	if len(replies) != 1 {
		return fmt.Errorf("%w: %s got %d replies", ErrAck, op, len(replies))
	}
	ack := replies[0]
	if ack.Header.Sequence != req.Header.Sequence {
		return fmt.Errorf("%w: %s got %d instead of %d", ErrSequence, op, ack.Header.Sequence, req.Header.Sequence)
	}
	if ack.Header.Type != netlink.Error || len(ack.Data) < 4 {
		return fmt.Errorf("%w: %s got type %d", ErrAck, op, ack.Header.Type)
	}
	if code := int32(native.Endian.Uint32(ack.Data[0:4])); code != 0 {
		return &AckError{Op: op, Code: code}
	}
	return nil
}
