// Package coordinator implements the coordinator's accept loop and
// per-connection request dispatch. Grounded on
// original_source/metadata-server/src/server.cpp (AcceptLoop, HandleClient)
// and the teacher's pkg/master/server.go struct shape.
package coordinator

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metadata"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metrics"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/registry"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Server is the coordinator process's global state: a single Registry and a
// single Store for its lifetime, initialized at startup and torn down on
// shutdown. There is no nested or per-request scope state.
type Server struct {
	Registry *registry.Registry
	Store    *metadata.Store
	Metrics  *metrics.Coordinator

	log      zerolog.Logger
	listener net.Listener
	active   atomic.Int32
	stop     chan struct{}
}

func New(log zerolog.Logger) *Server {
	return &Server{
		Registry: registry.New(log),
		Store:    metadata.New(log),
		Metrics:  metrics.NewCoordinator(),
		log:      log.With().Str("component", "coordinator").Logger(),
		stop:     make(chan struct{}),
	}
}

// Serve binds port, runs the keep-alive sweeper, and accepts connections
// until Shutdown is called. Excess connections beyond MaxClients are closed
// immediately without a reply.
func (s *Server) Serve(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	s.listener = ln
	s.log.Info().Int("port", port).Msg("coordinator listening")

	go s.Registry.RunSweeper(s.stop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return nil
			default:
				s.log.Error().Err(err).Msg("accept failed")
				continue
			}
		}

		if int(s.active.Load()) >= common.MaxClients {
			s.log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("rejecting connection, at MAX_CLIENTS")
			conn.Close()
			continue
		}

		s.active.Add(1)
		go func() {
			defer s.active.Add(-1)
			s.handleConnection(protocol.NewConn(conn))
		}()
	}
}

// Shutdown closes the listening socket. The accept loop treats this as a
// non-fatal end condition; workers already servicing a request finish it
// under their existing deadline.
func (s *Server) Shutdown() error {
	close(s.stop)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(c *protocol.Conn) {
	defer c.Close()

	if err := c.SetTextDeadline(); err != nil {
		return
	}

	first, err := c.ReadLine()
	if err != nil {
		s.log.Debug().Err(err).Msg("connection closed before a request line")
		return
	}

	fields := protocol.Fields(first)
	if len(fields) == 0 {
		s.writeError(c, "INVALID_COMMAND", "empty request")
		return
	}

	cmd := fields[0]
	s.Metrics.Requests.WithLabelValues(cmd).Inc()
	s.log.Info().Str("remote", c.RemoteAddr().String()).Str("command", cmd).Msg("request accepted")

	switch cmd {
	case "REGISTER_NODE":
		s.handleRegisterNode(c, fields)
	case "KEEP_ALIVE":
		s.handleKeepAlive(c, fields)
	case "UPDATE_SPACE":
		s.handleUpdateSpace(c, fields)
	case "UNREGISTER_NODE":
		s.handleUnregisterNode(c, fields)
	case "REQUEST_UPLOAD":
		s.handleRequestUpload(c, fields)
	case "UPLOAD_COMPLETE":
		s.handleUploadComplete(c, fields)
	case "REQUEST_DOWNLOAD":
		s.handleRequestDownload(c, fields)
	case "DELETE_FILE":
		s.handleDeleteFile(c, fields)
	case "LIST_FILES":
		s.handleListFiles(c)
	case "LIST_NODES":
		s.handleListNodes(c)
	default:
		s.log.Warn().Str("remote", c.RemoteAddr().String()).Str("command", cmd).Msg("rejected: unknown command")
		s.writeError(c, "INVALID_COMMAND", "unrecognized command "+cmd)
	}
}

func (s *Server) writeError(c *protocol.Conn, code, message string) {
	_ = c.WriteLine(fmt.Sprintf("ERROR %s %s", code, message))
}
