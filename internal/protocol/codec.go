// Package protocol implements the line-oriented text/binary wire codec
// shared by the coordinator, storage nodes, and the client.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Conn wraps a net.Conn with a buffered reader shared by the text and
// binary phases of the protocol. Using the same bufio.Reader for both
// phases is what makes it safe: nothing downstream of ReadLine can
// over-read past the CRLF terminator into bytes that belong to a binary
// payload, because the binary phase keeps reading from that same buffer
// instead of the raw socket.
type Conn struct {
	net.Conn
	r *bufio.Reader
}

// NewConn wraps raw for protocol framing.
func NewConn(raw net.Conn) *Conn {
	return &Conn{Conn: raw, r: bufio.NewReader(raw)}
}

// SetTextDeadline applies the 30s text-exchange deadline.
func (c *Conn) SetTextDeadline() error {
	return c.Conn.SetDeadline(time.Now().Add(common.TextDeadline))
}

// SetBinaryDeadline applies the 60s binary-transfer deadline.
func (c *Conn) SetBinaryDeadline() error {
	return c.Conn.SetDeadline(time.Now().Add(common.BinaryDeadline))
}

// ReadLine reads one CRLF-terminated line and returns it with the
// terminator stripped.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		if line == "" {
			return "", fmt.Errorf("read line: %w", common.ErrReadError)
		}
		return "", fmt.Errorf("read line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine writes s followed by CRLF.
func (c *Conn) WriteLine(s string) error {
	_, err := c.Conn.Write([]byte(s + "\r\n"))
	return err
}

// ReadBinary reads exactly n bytes via a length-bounded loop.
func (c *Conn) ReadBinary(n int64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, fmt.Errorf("read binary payload: %w", common.ErrReadError)
	}
	return buf, nil
}

// WriteBinary writes data raw, unframed.
func (c *Conn) WriteBinary(data []byte) error {
	_, err := c.Conn.Write(data)
	return err
}

// Fields splits a line on whitespace.
func Fields(line string) []string {
	return strings.Fields(line)
}
