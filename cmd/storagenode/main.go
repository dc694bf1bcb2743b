package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/logging"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metrics"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/storagenode"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func main() {
	coordinatorAddr := flag.String("coordinator", "localhost:8080", "Coordinator address")
	listenIP := flag.String("ip", "127.0.0.1", "Address advertised to the coordinator")
	port := flag.Int("port", 9001, "Port to listen on for chunk transfers")
	dir := flag.String("dir", common.DefaultStorageNodeConfig.StorageRoot, "Directory to store chunk files in")
	metricsPort := flag.Int("metrics-port", 9091, "Prometheus /metrics port")
	heartbeat := flag.Duration("heartbeat", common.DefaultStorageNodeConfig.HeartbeatInterval, "Keep-alive interval")
	flag.Parse()

	log := logging.New("storagenode")

	storage, err := storagenode.NewStorage(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	srv := storagenode.New(log, storage, *coordinatorAddr, *listenIP, *port, *heartbeat)

	go func() {
		if err := metrics.Serve(":"+strconv.Itoa(*metricsPort), srv.Metrics.Registry); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		log.Error().Err(err).Msg("storage node failed to start")
		os.Exit(1)
	case <-sigChan:
		log.Info().Msg("shutting down")
	}

	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("storage node stopped")
}
