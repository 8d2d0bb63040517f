package protocol

import (
	"context"
	"fmt"
	"net"
)

// Network is the socket type the daemon listens on.
const Network = "unixpacket"

// Client sends requests over one connection, one at a time.
type Client struct {
	conn net.Conn
	buf  [FrameSize + 1]byte
}

// Dial connects to the daemon socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, Network, path)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client { return &Client{conn: conn} }

// Do sends m and waits for its response. An ERR response is returned as a
// *RemoteError.
func (c *Client) Do(m Message) error {
	if _, err := c.conn.Write(Marshal(m)); err != nil {
		return fmt.Errorf("send %s: %w", m.Type(), err)
	}

	n, err := c.conn.Read(c.buf[:])
	if err != nil {
		return fmt.Errorf("receive %s response: %w", m.Type(), err)
	}
	resp, err := Unmarshal(c.buf[:n])
	if err != nil {
		return err
	}

	switch r := resp.(type) {
	case OK:
		return nil
	case Error:
		return &RemoteError{Msg: r.Msg}
	default:
		return fmt.Errorf("%w: %s", ErrUnexpected, resp.Type())
	}
}

func (c *Client) Init() error { return c.Do(Init{}) }

func (c *Client) CPUUser(cpu int, percent float32) error {
	return c.Do(CPUUser{Percent: percent, CPU: int32(cpu)})
}

func (c *Client) CPUKernel(cpu int, percent float32) error {
	return c.Do(CPUKernel{Percent: percent, CPU: int32(cpu)})
}

func (c *Client) Mem(percent float32) error { return c.Do(Mem{Percent: percent}) }

func (c *Client) IO(percent float32) error { return c.Do(IO{Percent: percent}) }

func (c *Client) Run() error { return c.Do(Run{}) }

func (c *Client) Stop() error { return c.Do(Stop{}) }

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }
