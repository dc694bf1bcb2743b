package common

import "time"

// CoordinatorConfig configures the coordinator process.
type CoordinatorConfig struct {
	Port        int
	MetricsPort int
}

// StorageNodeConfig configures a storage node daemon.
type StorageNodeConfig struct {
	CoordinatorAddress string
	ListenPort         int
	MetricsPort        int
	StorageRoot        string
	TotalSpace         int64
	HeartbeatInterval  time.Duration
}

// ClientConfig configures the client's connection to the coordinator.
type ClientConfig struct {
	ServerHost string
	ServerPort int
}

var (
	DefaultCoordinatorConfig = CoordinatorConfig{
		Port:        8080,
		MetricsPort: 9090,
	}

	DefaultStorageNodeConfig = StorageNodeConfig{
		StorageRoot:       "./chunks",
		TotalSpace:        10 * 1024 * 1024 * 1024,
		HeartbeatInterval: KeepAliveInterval,
	}
)
