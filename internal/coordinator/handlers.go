package coordinator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func (s *Server) handleRegisterNode(c *protocol.Conn, fields []string) {
	if len(fields) != 4 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: REGISTER_NODE ip port freeSpace")
		return
	}
	ip := fields[1]
	port, err := strconv.Atoi(fields[2])
	if err != nil {
		s.writeError(c, "INVALID_PARAMETERS", "port must be numeric")
		return
	}
	freeSpace, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		s.writeError(c, "INVALID_PARAMETERS", "freeSpace must be numeric")
		return
	}

	id, err := s.Registry.Register(ip, port, freeSpace)
	if err != nil {
		_ = c.WriteLine("REGISTER_RESPONSE ERROR " + common.WireCode(err))
		return
	}
	s.Metrics.RegisteredNodes.Set(float64(s.Registry.Count()))
	_ = c.WriteLine("REGISTER_RESPONSE OK " + id)
}

func (s *Server) handleKeepAlive(c *protocol.Conn, fields []string) {
	if len(fields) != 2 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: KEEP_ALIVE nodeId")
		return
	}
	s.Registry.KeepAlive(fields[1])
	_ = c.WriteLine("KEEP_ALIVE_RESPONSE OK")
}

func (s *Server) handleUpdateSpace(c *protocol.Conn, fields []string) {
	if len(fields) != 3 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: UPDATE_SPACE nodeId freeSpace")
		return
	}
	freeSpace, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		s.writeError(c, "INVALID_PARAMETERS", "freeSpace must be numeric")
		return
	}
	if err := s.Registry.UpdateSpace(fields[1], freeSpace); err != nil {
		_ = c.WriteLine("UPDATE_SPACE_RESPONSE ERROR " + common.WireCode(err))
		return
	}
	_ = c.WriteLine("UPDATE_SPACE_RESPONSE OK")
}

func (s *Server) handleUnregisterNode(c *protocol.Conn, fields []string) {
	if len(fields) != 2 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: UNREGISTER_NODE nodeId")
		return
	}
	s.Registry.Unregister(fields[1])
	_ = c.WriteLine("UNREGISTER_RESPONSE OK")
}

// handleRequestUpload implements HandleRequestUpload: the filename may
// contain spaces, so everything between the command token and the final
// numeric size token is reassembled as the filename.
func (s *Server) handleRequestUpload(c *protocol.Conn, fields []string) {
	if len(fields) < 3 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: REQUEST_UPLOAD filename size")
		return
	}
	_ = strings.Join(fields[1:len(fields)-1], " ")
	size, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		s.writeError(c, "INVALID_PARAMETERS", "size must be numeric")
		return
	}

	chunkCount := (size + common.ChunkSize - 1) / common.ChunkSize
	if size == 0 {
		chunkCount = 0
	}
	requiredNodes := int(chunkCount) * common.ReplicationFactor

	nodes := s.Registry.SelectAvailable(max(requiredNodes, common.ReplicationFactor), common.ChunkSize)
	if len(nodes) < common.ReplicationFactor {
		_ = c.WriteLine("UPLOAD_RESPONSE ERROR INSUFFICIENT_NODES")
		return
	}

	_ = c.WriteLine(fmt.Sprintf("UPLOAD_RESPONSE OK %d", len(nodes)))
	for _, n := range nodes {
		_ = c.WriteLine(fmt.Sprintf("%s %s %d %d", n.NodeID, n.IPAddress, n.Port, n.FreeSpace))
	}
}

// handleUploadComplete implements ProcessMultilineRequest/HandleUploadComplete:
// reads chunk record lines until END_CHUNKS, tolerating malformed lines by
// skipping them, then registers the manifest.
func (s *Server) handleUploadComplete(c *protocol.Conn, fields []string) {
	if len(fields) < 2 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: UPLOAD_COMPLETE filename")
		return
	}
	filename := strings.Join(fields[1:], " ")

	var chunks []common.ChunkPlacement
	var totalSize int64
	for i := 0; i < 10000; i++ {
		line, err := c.ReadLine()
		if err != nil {
			_ = c.WriteLine("UPLOAD_COMPLETE_RESPONSE ERROR " + common.WireCode(err))
			return
		}
		if line == "END_CHUNKS" {
			break
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		size, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		chunks = append(chunks, common.ChunkPlacement{
			ChunkID: parts[0],
			Index:   index,
			Size:    size,
			NodeIDs: parts[3:],
		})
		totalSize += size
	}

	if err := s.Store.Register(filename, totalSize, chunks); err != nil {
		_ = c.WriteLine("UPLOAD_COMPLETE_RESPONSE ERROR " + common.WireCode(err))
		return
	}
	s.Metrics.RegisteredFiles.Set(float64(s.Store.Count()))
	s.Metrics.TotalBytes.Set(float64(s.Store.TotalBytes()))
	_ = c.WriteLine("UPLOAD_COMPLETE_RESPONSE OK")
}

func (s *Server) handleRequestDownload(c *protocol.Conn, fields []string) {
	if len(fields) < 2 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: REQUEST_DOWNLOAD filename")
		return
	}
	filename := strings.Join(fields[1:], " ")

	rec, err := s.Store.Lookup(filename)
	if err != nil {
		_ = c.WriteLine("DOWNLOAD_RESPONSE ERROR " + common.WireCode(err))
		return
	}

	_ = c.WriteLine(fmt.Sprintf("DOWNLOAD_RESPONSE OK %d %d", rec.TotalSize, len(rec.Chunks)))
	for _, ch := range rec.Chunks {
		line := fmt.Sprintf("%s %d %d", ch.ChunkID, ch.Index, ch.Size)
		for _, nodeID := range ch.NodeIDs {
			n, ok := s.Registry.Get(nodeID)
			if !ok {
				continue
			}
			line += fmt.Sprintf(" %s %s %d", n.NodeID, n.IPAddress, n.Port)
		}
		_ = c.WriteLine(line)
	}
	_ = c.WriteLine("END_CHUNKS")
}

func (s *Server) handleDeleteFile(c *protocol.Conn, fields []string) {
	if len(fields) < 2 {
		s.writeError(c, "INVALID_PARAMETERS", "usage: DELETE_FILE filename")
		return
	}
	filename := strings.Join(fields[1:], " ")
	if !s.Store.Delete(filename) {
		_ = c.WriteLine("DELETE_RESPONSE ERROR FILE_NOT_FOUND")
		return
	}
	s.Metrics.RegisteredFiles.Set(float64(s.Store.Count()))
	s.Metrics.TotalBytes.Set(float64(s.Store.TotalBytes()))
	_ = c.WriteLine("DELETE_RESPONSE OK")
}

func (s *Server) handleListFiles(c *protocol.Conn) {
	files := s.Store.List()
	_ = c.WriteLine(fmt.Sprintf("LIST_FILES_RESPONSE OK %d", len(files)))
	for _, f := range files {
		_ = c.WriteLine(fmt.Sprintf("%s %d", f.Filename, f.TotalSize))
	}
	_ = c.WriteLine("END_FILES")
}

func (s *Server) handleListNodes(c *protocol.Conn) {
	nodes := s.Registry.ListAll()
	s.Metrics.ActiveNodes.Set(float64(s.Registry.ActiveCount()))
	_ = c.WriteLine(fmt.Sprintf("LIST_NODES_RESPONSE OK %d", len(nodes)))
	for _, n := range nodes {
		active := 0
		if n.IsActive {
			active = 1
		}
		_ = c.WriteLine(fmt.Sprintf("%s %s %d %d %d", n.NodeID, n.IPAddress, n.Port, n.FreeSpace, active))
	}
	_ = c.WriteLine("END_NODES")
}
