package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/coordinator"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/logging"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/metrics"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func main() {
	metricsPort := flag.Int("metrics-port", common.DefaultCoordinatorConfig.MetricsPort, "Prometheus /metrics port")
	flag.Parse()

	port := common.DefaultCoordinatorConfig.Port
	if args := flag.Args(); len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			os.Stderr.WriteString("coordinator: invalid port " + args[0] + "\n")
			os.Exit(1)
		}
		port = p
	}

	log := logging.New("coordinator")

	srv := coordinator.New(log)

	go func() {
		if err := metrics.Serve(":"+strconv.Itoa(*metricsPort), srv.Metrics.Registry); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(port) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		log.Error().Err(err).Msg("coordinator failed to start")
		os.Exit(1)
	case <-sigChan:
		log.Info().Msg("shutting down")
	}

	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("coordinator stopped")
}
