package storagenode

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metrics"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/protocol"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Server is a storage node daemon: it serves the §4.8 wire contract on its
// own listener and maintains an outbound registration with a coordinator.
type Server struct {
	Storage *Storage
	Metrics *metrics.StorageNode

	coordinatorAddr string
	listenIP        string
	listenPort      int
	heartbeat       time.Duration

	log      zerolog.Logger
	listener net.Listener
	stop     chan struct{}

	nodeID string
}

func New(log zerolog.Logger, storage *Storage, coordinatorAddr, listenIP string, listenPort int, heartbeat time.Duration) *Server {
	return &Server{
		Storage:         storage,
		Metrics:         metrics.NewStorageNode(),
		coordinatorAddr: coordinatorAddr,
		listenIP:        listenIP,
		listenPort:      listenPort,
		heartbeat:       heartbeat,
		log:             log.With().Str("component", "storagenode").Logger(),
		stop:            make(chan struct{}),
	}
}

// Serve registers with the coordinator, starts the heartbeat loop, and
// accepts chunk-transfer connections until Shutdown is called.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.listenPort))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.listenPort, err)
	}
	s.listener = ln
	s.log.Info().Int("port", s.listenPort).Msg("storage node listening")

	if err := s.registerWithCoordinator(); err != nil {
		s.log.Error().Err(err).Msg("failed to register with coordinator, continuing anyway")
	}
	go s.heartbeatLoop()

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
		go s.handleConnection(protocol.NewConn(conn))
	}
}

// Shutdown unregisters from the coordinator (best effort) and closes the
// listening socket.
func (s *Server) Shutdown() error {
	close(s.stop)
	if s.nodeID != "" {
		s.unregisterFromCoordinator()
	}
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

	line, err := c.ReadLine()
	if err != nil {
		return
	}
	fields := protocol.Fields(line)
	if len(fields) == 0 {
		_ = c.WriteLine("ERROR INVALID_COMMAND empty request")
		return
	}

	switch fields[0] {
	case "STORE_CHUNK":
		s.handleStoreChunk(c, fields)
	case "GET_CHUNK":
		s.handleGetChunk(c, fields)
	case "CHECK_CHUNK":
		s.handleCheckChunk(c, fields)
	default:
		_ = c.WriteLine("ERROR INVALID_COMMAND unrecognized command " + fields[0])
	}
}

func (s *Server) handleStoreChunk(c *protocol.Conn, fields []string) {
	if len(fields) != 3 {
		_ = c.WriteLine("STORE_RESPONSE ERROR INVALID_PARAMETERS")
		return
	}
	chunkID := fields[1]
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || size <= 0 {
		_ = c.WriteLine("STORE_RESPONSE ERROR INVALID_PARAMETERS")
		return
	}

	if err := c.SetBinaryDeadline(); err != nil {
		return
	}
	data, err := c.ReadBinary(size)
	if err != nil {
		_ = c.WriteLine("STORE_RESPONSE ERROR READ_ERROR")
		return
	}

	if err := s.Storage.Store(chunkID, data); err != nil {
		s.log.Error().Err(err).Str("chunkId", chunkID).Msg("failed to store chunk")
		_ = c.WriteLine("STORE_RESPONSE ERROR READ_ERROR")
		return
	}
	s.Metrics.ChunksStored.Inc()
	s.Metrics.BytesStored.Add(float64(size))
	_ = c.WriteLine("STORE_RESPONSE OK")
}

func (s *Server) handleGetChunk(c *protocol.Conn, fields []string) {
	if len(fields) != 2 {
		_ = c.WriteLine("GET_RESPONSE ERROR INVALID_PARAMETERS")
		return
	}
	chunkID := fields[1]

	data, err := s.Storage.Get(chunkID)
	if err != nil {
		_ = c.WriteLine("GET_RESPONSE ERROR " + common.WireCode(common.ErrFileNotFound))
		return
	}

	if err := c.WriteLine(fmt.Sprintf("GET_RESPONSE OK %d", len(data))); err != nil {
		return
	}
	if err := c.SetBinaryDeadline(); err != nil {
		return
	}
	if err := c.WriteBinary(data); err != nil {
		s.log.Error().Err(err).Str("chunkId", chunkID).Msg("failed to send chunk")
		return
	}
	s.Metrics.ChunksServed.Inc()
	s.Metrics.BytesServed.Add(float64(len(data)))
}

func (s *Server) handleCheckChunk(c *protocol.Conn, fields []string) {
	if len(fields) != 2 {
		_ = c.WriteLine("CHECK_RESPONSE MISSING")
		return
	}
	if s.Storage.Exists(fields[1]) {
		_ = c.WriteLine("CHECK_RESPONSE EXISTS")
		return
	}
	_ = c.WriteLine("CHECK_RESPONSE MISSING")
}
