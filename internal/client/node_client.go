package client

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
)

// NodeClient talks to a single storage node's wire contract.
type NodeClient struct {
	addr string
}

func NewNodeClient(ip string, port int) *NodeClient {
	return &NodeClient{addr: fmt.Sprintf("%s:%d", ip, port)}
}

func (n *NodeClient) dial() (*protocol.Conn, error) {
	conn, err := net.Dial("tcp", n.addr)
	if err != nil {
		return nil, fmt.Errorf("dial node %s: %w", n.addr, err)
	}
	c := protocol.NewConn(conn)
	if err := c.SetTextDeadline(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// StoreChunk sends STORE_CHUNK plus the binary payload, returning true on
// STORE_RESPONSE OK.
func (n *NodeClient) StoreChunk(chunkID string, data []byte) bool {
	c, err := n.dial()
	if err != nil {
		return false
	}
	defer c.Close()

	if err := c.WriteLine(fmt.Sprintf("STORE_CHUNK %s %d", chunkID, len(data))); err != nil {
		return false
	}
	if err := c.SetBinaryDeadline(); err != nil {
		return false
	}
	if err := c.WriteBinary(data); err != nil {
		return false
	}
	if err := c.SetTextDeadline(); err != nil {
		return false
	}
	resp, err := c.ReadLine()
	if err != nil {
		return false
	}
	return strings.Contains(resp, "STORE_RESPONSE OK")
}

// GetChunk sends GET_CHUNK and returns the payload bytes.
func (n *NodeClient) GetChunk(chunkID string) ([]byte, error) {
	c, err := n.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.WriteLine("GET_CHUNK " + chunkID); err != nil {
		return nil, fmt.Errorf("send GET_CHUNK: %w", err)
	}
	line, err := c.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read GET_RESPONSE: %w", err)
	}
	fields := protocol.Fields(line)
	if len(fields) < 3 || fields[0] != "GET_RESPONSE" || fields[1] != "OK" {
		return nil, fmt.Errorf("node declined chunk %s: %s", chunkID, line)
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed size in %q", line)
	}
	if err := c.SetBinaryDeadline(); err != nil {
		return nil, err
	}
	return c.ReadBinary(size)
}

// CheckChunk sends CHECK_CHUNK and returns whether the node reports the
// chunk present.
func (n *NodeClient) CheckChunk(chunkID string) bool {
	c, err := n.dial()
	if err != nil {
		return false
	}
	defer c.Close()

	if err := c.WriteLine("CHECK_CHUNK " + chunkID); err != nil {
		return false
	}
	resp, err := c.ReadLine()
	if err != nil {
		return false
	}
	return strings.Contains(resp, "CHECK_RESPONSE EXISTS")
}
