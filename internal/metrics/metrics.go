// Package metrics exposes Prometheus counters and gauges for the
// coordinator and storage node processes over a /metrics HTTP endpoint
// independent of the line-protocol listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Coordinator holds the coordinator's exported metrics, registered against
// its own Registry rather than the global DefaultRegisterer so that more
// than one Coordinator can coexist in a single process (tests build several
// per binary run).
type Coordinator struct {
	Registry *prometheus.Registry

	RegisteredNodes prometheus.Gauge
	ActiveNodes     prometheus.Gauge
	RegisteredFiles prometheus.Gauge
	TotalBytes      prometheus.Gauge
	Requests        *prometheus.CounterVec
}

func NewCoordinator() *Coordinator {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Coordinator{
		Registry: reg,
		RegisteredNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_registered_nodes",
			Help: "Number of storage nodes currently registered.",
		}),
		ActiveNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_active_nodes",
			Help: "Number of storage nodes currently marked active.",
		}),
		RegisteredFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_registered_files",
			Help: "Number of files currently registered.",
		}),
		TotalBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_total_bytes",
			Help: "Sum of totalSize across all registered files.",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_requests_total",
			Help: "Requests handled by the coordinator, by command.",
		}, []string{"command"}),
	}
}

// StorageNode holds a storage node daemon's exported metrics, registered
// against its own Registry for the same reason as Coordinator's.
type StorageNode struct {
	Registry *prometheus.Registry

	ChunksStored prometheus.Counter
	ChunksServed prometheus.Counter
	BytesStored  prometheus.Counter
	BytesServed  prometheus.Counter
}

func NewStorageNode() *StorageNode {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &StorageNode{
		Registry: reg,
		ChunksStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_chunks_stored_total",
			Help: "Chunks accepted via STORE_CHUNK.",
		}),
		ChunksServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_chunks_served_total",
			Help: "Chunks returned via GET_CHUNK.",
		}),
		BytesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_bytes_stored_total",
			Help: "Bytes written via STORE_CHUNK.",
		}),
		BytesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_bytes_served_total",
			Help: "Bytes returned via GET_CHUNK.",
		}),
	}
}

// Serve starts a /metrics HTTP listener on addr for reg. Intended to run in
// its own goroutine; returns the http.Server error on shutdown.
func Serve(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
