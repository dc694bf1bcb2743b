// Package client implements the client-side orchestrators: talking to the
// coordinator for placement and manifests, talking to storage nodes for
// chunk bytes, and driving the upload/download pipelines end to end.
// Grounded on original_source/client/src/core/{metadata_client,node_client,
// upload_manager,download_manager}.cpp.
package client

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// NodeEndpoint is a storage node's address as returned by the coordinator.
type NodeEndpoint struct {
	NodeID    string
	IP        string
	Port      int
	FreeSpace int64
}

// MetadataClient talks to the coordinator.
type MetadataClient struct {
	addr string
}

func NewMetadataClient(host string, port int) *MetadataClient {
	return &MetadataClient{addr: fmt.Sprintf("%s:%d", host, port)}
}

func (m *MetadataClient) dial() (*protocol.Conn, error) {
	conn, err := net.Dial("tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", m.addr, err)
	}
	c := protocol.NewConn(conn)
	if err := c.SetTextDeadline(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// TestConnection verifies the coordinator is reachable.
func (m *MetadataClient) TestConnection() error {
	c, err := m.dial()
	if err != nil {
		return err
	}
	return c.Close()
}

// RequestUploadNodes issues REQUEST_UPLOAD and returns the candidate node
// list.
func (m *MetadataClient) RequestUploadNodes(filename string, totalSize int64) ([]NodeEndpoint, error) {
	c, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.WriteLine(fmt.Sprintf("REQUEST_UPLOAD %s %d", filename, totalSize)); err != nil {
		return nil, fmt.Errorf("send REQUEST_UPLOAD: %w", err)
	}

	line, err := c.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read UPLOAD_RESPONSE: %w", err)
	}
	fields := protocol.Fields(line)
	if len(fields) < 2 || fields[0] != "UPLOAD_RESPONSE" {
		return nil, fmt.Errorf("unexpected response: %s", line)
	}
	if fields[1] != "OK" {
		code := "UNKNOWN"
		if len(fields) >= 3 {
			code = fields[2]
		}
		return nil, fmt.Errorf("upload rejected: %s", code)
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("malformed node count: %s", line)
	}

	nodes := make([]NodeEndpoint, 0, count)
	for i := 0; i < count; i++ {
		nl, err := c.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("read node line %d: %w", i, err)
		}
		f := protocol.Fields(nl)
		if len(f) != 4 {
			return nil, fmt.Errorf("malformed node line: %s", nl)
		}
		port, _ := strconv.Atoi(f[2])
		free, _ := strconv.ParseInt(f[3], 10, 64)
		nodes = append(nodes, NodeEndpoint{NodeID: f[0], IP: f[1], Port: port, FreeSpace: free})
	}
	return nodes, nil
}

// NotifyUploadComplete sends the multiline UPLOAD_COMPLETE request.
func (m *MetadataClient) NotifyUploadComplete(filename string, chunks []common.Chunk, chunkNodeIDs [][]string) error {
	c, err := m.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.WriteLine("UPLOAD_COMPLETE " + filename); err != nil {
		return fmt.Errorf("send UPLOAD_COMPLETE: %w", err)
	}
	for i, ch := range chunks {
		line := fmt.Sprintf("%s %d %d %s", ch.ChunkID, ch.Index, ch.Size, strings.Join(chunkNodeIDs[i], " "))
		if err := c.WriteLine(line); err != nil {
			return fmt.Errorf("send chunk line %d: %w", i, err)
		}
	}
	if err := c.WriteLine("END_CHUNKS"); err != nil {
		return fmt.Errorf("send END_CHUNKS: %w", err)
	}

	resp, err := c.ReadLine()
	if err != nil {
		return fmt.Errorf("read UPLOAD_COMPLETE_RESPONSE: %w", err)
	}
	if !strings.Contains(resp, "UPLOAD_COMPLETE_RESPONSE OK") {
		return fmt.Errorf("upload completion rejected: %s", resp)
	}
	return nil
}

// DownloadChunkEntry is one row of a parsed REQUEST_DOWNLOAD manifest.
type DownloadChunkEntry struct {
	ChunkID string
	Index   int
	Size    int64
	Nodes   []NodeEndpoint
}

// RequestDownload issues REQUEST_DOWNLOAD and returns the file's total size
// and its parsed manifest; each entry carries its replicas' endpoints.
func (m *MetadataClient) RequestDownload(filename string) (int64, []DownloadChunkEntry, error) {
	c, err := m.dial()
	if err != nil {
		return 0, nil, err
	}
	defer c.Close()

	if err := c.WriteLine("REQUEST_DOWNLOAD " + filename); err != nil {
		return 0, nil, fmt.Errorf("send REQUEST_DOWNLOAD: %w", err)
	}

	line, err := c.ReadLine()
	if err != nil {
		return 0, nil, fmt.Errorf("read DOWNLOAD_RESPONSE: %w", err)
	}
	fields := protocol.Fields(line)
	if len(fields) < 2 || fields[0] != "DOWNLOAD_RESPONSE" {
		return 0, nil, fmt.Errorf("unexpected response: %s", line)
	}
	if fields[1] != "OK" {
		return 0, nil, fmt.Errorf("%w: %s", common.ErrFileNotFound, filename)
	}
	totalSize, _ := strconv.ParseInt(fields[2], 10, 64)
	count, _ := strconv.Atoi(fields[3])

	entries := make([]DownloadChunkEntry, 0, count)
	for i := 0; i < count; i++ {
		cl, err := c.ReadLine()
		if err != nil {
			return 0, nil, fmt.Errorf("read chunk line %d: %w", i, err)
		}
		f := protocol.Fields(cl)
		if len(f) < 3 {
			continue
		}
		index, _ := strconv.Atoi(f[1])
		size, _ := strconv.ParseInt(f[2], 10, 64)

		var nodes []NodeEndpoint
		rest := f[3:]
		for len(rest) >= 3 {
			port, _ := strconv.Atoi(rest[2])
			nodes = append(nodes, NodeEndpoint{NodeID: rest[0], IP: rest[1], Port: port})
			rest = rest[3:]
		}
		entries = append(entries, DownloadChunkEntry{ChunkID: f[0], Index: index, Size: size, Nodes: nodes})
	}

	term, err := c.ReadLine()
	if err != nil || term != "END_CHUNKS" {
		return 0, nil, fmt.Errorf("expected END_CHUNKS, got %q", term)
	}
	return totalSize, entries, nil
}

// DeleteFile issues DELETE_FILE.
func (m *MetadataClient) DeleteFile(filename string) error {
	c, err := m.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.WriteLine("DELETE_FILE " + filename); err != nil {
		return fmt.Errorf("send DELETE_FILE: %w", err)
	}
	resp, err := c.ReadLine()
	if err != nil {
		return fmt.Errorf("read DELETE_RESPONSE: %w", err)
	}
	if !strings.Contains(resp, "DELETE_RESPONSE OK") {
		return fmt.Errorf("%w: %s", common.ErrFileNotFound, filename)
	}
	return nil
}

// ListFiles issues LIST_FILES.
func (m *MetadataClient) ListFiles() ([]common.FileRecord, error) {
	c, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.WriteLine("LIST_FILES"); err != nil {
		return nil, fmt.Errorf("send LIST_FILES: %w", err)
	}
	line, err := c.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read LIST_FILES_RESPONSE: %w", err)
	}
	fields := protocol.Fields(line)
	if len(fields) < 3 || fields[0] != "LIST_FILES_RESPONSE" {
		return nil, fmt.Errorf("unexpected response: %s", line)
	}
	count, _ := strconv.Atoi(fields[2])

	out := make([]common.FileRecord, 0, count)
	for i := 0; i < count; i++ {
		fl, err := c.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("read file line %d: %w", i, err)
		}
		idx := strings.LastIndex(fl, " ")
		if idx < 0 {
			continue
		}
		size, _ := strconv.ParseInt(fl[idx+1:], 10, 64)
		out = append(out, common.FileRecord{Filename: fl[:idx], TotalSize: size})
	}
	if term, err := c.ReadLine(); err != nil || term != "END_FILES" {
		return nil, fmt.Errorf("expected END_FILES, got %q", term)
	}
	return out, nil
}

// ListNodes issues LIST_NODES.
func (m *MetadataClient) ListNodes() ([]common.StorageNode, error) {
	c, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.WriteLine("LIST_NODES"); err != nil {
		return nil, fmt.Errorf("send LIST_NODES: %w", err)
	}
	line, err := c.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read LIST_NODES_RESPONSE: %w", err)
	}
	fields := protocol.Fields(line)
	if len(fields) < 3 || fields[0] != "LIST_NODES_RESPONSE" {
		return nil, fmt.Errorf("unexpected response: %s", line)
	}
	count, _ := strconv.Atoi(fields[2])

	out := make([]common.StorageNode, 0, count)
	for i := 0; i < count; i++ {
		nl, err := c.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("read node line %d: %w", i, err)
		}
		f := protocol.Fields(nl)
		if len(f) != 5 {
			continue
		}
		port, _ := strconv.Atoi(f[2])
		free, _ := strconv.ParseInt(f[3], 10, 64)
		out = append(out, common.StorageNode{
			NodeID:    f[0],
			IPAddress: f[1],
			Port:      port,
			FreeSpace: free,
			IsActive:  f[4] == "1",
		})
	}
	if term, err := c.ReadLine(); err != nil || term != "END_NODES" {
		return nil, fmt.Errorf("expected END_NODES, got %q", term)
	}
	return out, nil
}
