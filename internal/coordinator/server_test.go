package coordinator

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func startTestServer(t *testing.T) (addr string, srv *Server) {
	t.Helper()
	srv = New(zerolog.Nop())
	port := freePort(t)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(port) }()
	t.Cleanup(func() { srv.Shutdown() })

	addr = fmt.Sprintf("127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond, "coordinator did not start listening")

	return addr, srv
}

func dial(t *testing.T, addr string) *protocol.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := protocol.NewConn(conn)
	require.NoError(t, c.SetTextDeadline())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRegisterNodeThenListNodes(t *testing.T) {
	addr, _ := startTestServer(t)

	c := dial(t, addr)
	require.NoError(t, c.WriteLine("REGISTER_NODE 10.0.0.5 9001 5000"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, resp, "REGISTER_RESPONSE OK")

	c2 := dial(t, addr)
	require.NoError(t, c2.WriteLine("LIST_NODES"))
	header, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "LIST_NODES_RESPONSE OK 1", header)

	nodeLine, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, nodeLine, "10.0.0.5 9001 5000 1")

	term, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "END_NODES", term)
}

func TestKeepAliveUnknownNodeStillReturnsOK(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	require.NoError(t, c.WriteLine("KEEP_ALIVE nonexistent"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "KEEP_ALIVE_RESPONSE OK", resp)
}

func TestRequestUploadInsufficientNodes(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr)
	require.NoError(t, c.WriteLine("REQUEST_UPLOAD myfile.bin 2000000"))
	resp, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_RESPONSE ERROR INSUFFICIENT_NODES", resp)
}

func TestFullUploadCompleteAndDownloadCycle(t *testing.T) {
	addr, srv := startTestServer(t)

	_, err := srv.Registry.Register("10.0.0.1", 9001, 10_000_000)
	require.NoError(t, err)
	_, err = srv.Registry.Register("10.0.0.2", 9002, 10_000_000)
	require.NoError(t, err)

	c := dial(t, addr)
	require.NoError(t, c.WriteLine("REQUEST_UPLOAD report.pdf 100"))
	header, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_RESPONSE OK 2", header)

	var nodeIDs []string
	for i := 0; i < 2; i++ {
		line, err := c.ReadLine()
		require.NoError(t, err)
		fields := protocol.Fields(line)
		nodeIDs = append(nodeIDs, fields[0])
	}

	c2 := dial(t, addr)
	require.NoError(t, c2.WriteLine("UPLOAD_COMPLETE report.pdf"))
	chunkLine := fmt.Sprintf("%s 0 100 %s %s", sha64(), nodeIDs[0], nodeIDs[1])
	require.NoError(t, c2.WriteLine(chunkLine))
	require.NoError(t, c2.WriteLine("END_CHUNKS"))
	resp, err := c2.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_COMPLETE_RESPONSE OK", resp)

	c3 := dial(t, addr)
	require.NoError(t, c3.WriteLine("REQUEST_DOWNLOAD report.pdf"))
	dlHeader, err := c3.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "DOWNLOAD_RESPONSE OK 100 1", dlHeader)

	chunkResp, err := c3.ReadLine()
	require.NoError(t, err)
	assert.Contains(t, chunkResp, sha64())

	term, err := c3.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "END_CHUNKS", term)
}

func TestListFilesShowsSanitizedName(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.Store.Register("../etc/passwd", 3, []common.ChunkPlacement{
		{ChunkID: sha64(), Index: 0, Size: 3, NodeIDs: []string{"n1"}},
	}))

	c := dial(t, addr)
	require.NoError(t, c.WriteLine("LIST_FILES"))
	header, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "LIST_FILES_RESPONSE OK 1", header)

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "..etcpasswd "))

	term, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "END_FILES", term)
}

func sha64() string {
	return strings.Repeat("a", 64)
}

func TestMaxClientsRejectsExcessConnections(t *testing.T) {
	addr, srv := startTestServer(t)
	srv.active.Store(int32(common.MaxClients))
	t.Cleanup(func() { srv.active.Store(0) })

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err, "excess connection should be closed without a reply")
}
