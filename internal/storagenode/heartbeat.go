package storagenode

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
)

// registerWithCoordinator sends REGISTER_NODE once at startup, grounded on
// the teacher's ChunkServer.registerWithMaster() call in
// pkg/chunkserver/server.go::Start.
func (s *Server) registerWithCoordinator() error {
	conn, err := net.Dial("tcp", s.coordinatorAddr)
	if err != nil {
		return fmt.Errorf("dial coordinator %s: %w", s.coordinatorAddr, err)
	}
	c := protocol.NewConn(conn)
	defer c.Close()

	if err := c.SetTextDeadline(); err != nil {
		return err
	}

	freeSpace := s.Storage.FreeSpace()
	req := fmt.Sprintf("REGISTER_NODE %s %d %d", s.listenIP, s.listenPort, freeSpace)
	if err := c.WriteLine(req); err != nil {
		return fmt.Errorf("send REGISTER_NODE: %w", err)
	}

	resp, err := c.ReadLine()
	if err != nil {
		return fmt.Errorf("read REGISTER_RESPONSE: %w", err)
	}

	fields := protocol.Fields(resp)
	if len(fields) < 3 || fields[0] != "REGISTER_RESPONSE" || fields[1] != "OK" {
		return fmt.Errorf("registration rejected: %s", resp)
	}
	s.nodeID = fields[2]
	s.log.Info().Str("nodeId", s.nodeID).Msg("registered with coordinator")
	return nil
}

// heartbeatLoop sends KEEP_ALIVE every s.heartbeat, and UPDATE_SPACE
// whenever free space has drifted since the last report. Grounded on the
// teacher's SendHeartbeats ticker loop in pkg/chunkserver/server.go.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	lastReported := s.Storage.FreeSpace()
	for {
		select {
		case <-ticker.C:
			if s.nodeID == "" {
				if err := s.registerWithCoordinator(); err != nil {
					s.log.Error().Err(err).Msg("retry registration failed")
					continue
				}
			}
			if err := s.sendKeepAlive(); err != nil {
				s.log.Error().Err(err).Msg("keep-alive failed")
				continue
			}
			free := s.Storage.FreeSpace()
			if free != lastReported {
				if err := s.sendUpdateSpace(free); err != nil {
					s.log.Error().Err(err).Msg("update-space failed")
				} else {
					lastReported = free
				}
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Server) sendKeepAlive() error {
	conn, err := net.Dial("tcp", s.coordinatorAddr)
	if err != nil {
		return err
	}
	c := protocol.NewConn(conn)
	defer c.Close()

	if err := c.SetTextDeadline(); err != nil {
		return err
	}
	if err := c.WriteLine("KEEP_ALIVE " + s.nodeID); err != nil {
		return err
	}
	_, err = c.ReadLine()
	return err
}

func (s *Server) sendUpdateSpace(freeSpace int64) error {
	conn, err := net.Dial("tcp", s.coordinatorAddr)
	if err != nil {
		return err
	}
	c := protocol.NewConn(conn)
	defer c.Close()

	if err := c.SetTextDeadline(); err != nil {
		return err
	}
	if err := c.WriteLine("UPDATE_SPACE " + s.nodeID + " " + strconv.FormatInt(freeSpace, 10)); err != nil {
		return err
	}
	_, err = c.ReadLine()
	return err
}

// unregisterFromCoordinator is a best-effort clean-shutdown notification
// that sends UNREGISTER_NODE for this node's id.
func (s *Server) unregisterFromCoordinator() {
	conn, err := net.Dial("tcp", s.coordinatorAddr)
	if err != nil {
		return
	}
	c := protocol.NewConn(conn)
	defer c.Close()

	_ = c.SetTextDeadline()
	_ = c.WriteLine("UNREGISTER_NODE " + s.nodeID)
	_, _ = c.ReadLine()
}
