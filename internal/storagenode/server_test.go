package storagenode

import (
	"fmt"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metrics"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
)

func startTestNode(t *testing.T) (addr string, srv *Server) {
	t.Helper()
	storage := newTestStorage(t)
	srv = &Server{
		Storage: storage,
		Metrics: metrics.NewStorageNode(),
		log:     zerolog.Nop(),
		stop:    make(chan struct{}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handleConnection(protocol.NewConn(conn))
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), srv
}

func dialNode(t *testing.T, addr string) *protocol.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := protocol.NewConn(conn)
	require.NoError(t, c.SetTextDeadline())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStoreChunkThenGetChunkRoundTrip(t *testing.T) {
	addr, _ := startTestNode(t)
	payload := []byte("this is a test chunk payload")

	c := dialNode(t, addr)
	require.NoError(t, c.WriteLine(fmt.Sprintf("STORE_CHUNK abc123 %d", len(payload))))
	require.NoError(t, c.SetBinaryDeadline())
	require.NoError(t, c.WriteBinary(payload))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "STORE_RESPONSE OK", resp)

	c2 := dialNode(t, addr)
	require.NoError(t, c2.WriteLine("GET_CHUNK abc123"))
	header, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("GET_RESPONSE OK %d", len(payload)), header)

	require.NoError(t, c2.SetBinaryDeadline())
	data, err := c2.ReadBinary(int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestGetChunkMissingReturnsError(t *testing.T) {
	addr, _ := startTestNode(t)
	c := dialNode(t, addr)
	require.NoError(t, c.WriteLine("GET_CHUNK nonexistent"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, resp, "GET_RESPONSE ERROR")
}

func TestCheckChunkReflectsPresence(t *testing.T) {
	addr, srv := startTestNode(t)

	c := dialNode(t, addr)
	require.NoError(t, c.WriteLine("CHECK_CHUNK missing"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CHECK_RESPONSE MISSING", resp)

	require.NoError(t, srv.Storage.Store("present", []byte("x")))
	c2 := dialNode(t, addr)
	require.NoError(t, c2.WriteLine("CHECK_CHUNK present"))
	resp2, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CHECK_RESPONSE EXISTS", resp2)
}

func TestStoreChunkInvalidSizeRejected(t *testing.T) {
	addr, _ := startTestNode(t)
	c := dialNode(t, addr)
	require.NoError(t, c.WriteLine("STORE_CHUNK abc123 notanumber"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "STORE_RESPONSE ERROR INVALID_PARAMETERS", resp)
}

func TestUnknownCommandReturnsInvalidCommand(t *testing.T) {
	addr, _ := startTestNode(t)
	c := dialNode(t, addr)
	require.NoError(t, c.WriteLine("BOGUS_COMMAND"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, resp, "ERROR INVALID_COMMAND")
}
