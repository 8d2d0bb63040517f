package protocol

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve answers each request with reply(req) until the client hangs up.
func serve(t *testing.T, reply func(Message) []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctl.sock")
	ln, err := net.Listen(Network, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, FrameSize)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			m, err := Unmarshal(buf[:n])
			if err != nil {
				return
			}
			if _, err := conn.Write(reply(m)); err != nil {
				return
			}
		}
	}()
	return path
}

func TestClient_Do(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Message
	)
	path := serve(t, func(m Message) []byte {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
		if _, ok := m.(Run); ok {
			return Marshal(Error{Msg: "no system load specified"})
		}
		return Marshal(OK{})
	})

	c, err := Dial(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Init())
	require.NoError(t, c.CPUUser(1, 20))
	require.NoError(t, c.CPUKernel(1, 30))
	require.NoError(t, c.Mem(5))
	require.NoError(t, c.IO(10))

	err = c.Run()
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "no system load specified", re.Msg)

	require.NoError(t, c.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Message{
		Init{}, CPUUser{Percent: 20, CPU: 1}, CPUKernel{Percent: 30, CPU: 1},
		Mem{Percent: 5}, IO{Percent: 10}, Run{}, Stop{},
	}, got)
}

func TestClient_UnexpectedResponse(t *testing.T) {
	path := serve(t, func(Message) []byte { return Marshal(Run{}) })

	c, err := Dial(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.Init(), ErrUnexpected)
}

func TestDial_NoDaemon(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "missing.sock"))
	assert.Error(t, err)
}
