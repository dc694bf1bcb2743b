// Package registry implements the coordinator's node registry: tracking
// storage nodes, their free space, and liveness, and serving placement
// queries. Grounded on original_source/metadata-server/src/node_manager.cpp,
// with per-node timers replaced by the single background sweep both the
// spec and the original explicitly call for.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Registry is the coordinator's in-memory node table, guarded by a single
// mutex per spec.md §3's ownership rule.
type Registry struct {
	mu    sync.Mutex
	nodes map[string]common.StorageNode
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Registry {
	return &Registry{
		nodes: make(map[string]common.StorageNode),
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// Register validates the endpoint and free space, assigns an opaque nodeId,
// and stores the record active. Fails when the table is already at
// MaxNodes.
func (r *Registry) Register(ip string, port int, freeSpace int64) (string, error) {
	if ip == "" || len(ip) > 15 || port <= 0 || port > 65535 || freeSpace < 0 {
		return "", fmt.Errorf("register node: %w", common.ErrInvalidParameters)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.nodes) >= common.MaxNodes {
		return "", fmt.Errorf("register node: %w", common.ErrRegistrationFailed)
	}

	var id string
	for {
		id = uuid.NewString()
		if _, exists := r.nodes[id]; !exists {
			break
		}
	}

	now := time.Now()
	r.nodes[id] = common.StorageNode{
		NodeID:       id,
		IPAddress:    ip,
		Port:         port,
		FreeSpace:    freeSpace,
		TotalSpace:   freeSpace,
		RegisteredAt: now,
		LastSeen:     now,
		IsActive:     true,
	}
	r.log.Info().Str("nodeId", id).Str("ip", ip).Int("port", port).Msg("node registered")
	return id, nil
}

// KeepAlive refreshes lastSeen and reactivates the node. Silent no-op if
// nodeId is unknown, matching the original's UpdateNodeLastSeen behavior.
func (r *Registry) KeepAlive(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[nodeID]
	if !ok {
		return
	}
	n.LastSeen = time.Now()
	n.IsActive = true
	r.nodes[nodeID] = n
}

// UpdateSpace updates a node's free space. Fails if nodeId is unknown.
func (r *Registry) UpdateSpace(nodeID string, freeSpace int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[nodeID]
	if !ok {
		return fmt.Errorf("update space: %w", common.ErrNodeNotFound)
	}
	n.FreeSpace = freeSpace
	r.nodes[nodeID] = n
	return nil
}

// Unregister removes a node outright. It is reached through the
// UNREGISTER_NODE wire command, which the storage node sends on graceful
// shutdown; the coordinator does not check who sends that command.
func (r *Registry) Unregister(nodeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[nodeID]; !ok {
		return false
	}
	delete(r.nodes, nodeID)
	return true
}

// SelectAvailable filters to active, non-timed-out nodes with enough free
// space, sorts descending by free space, and returns up to count of them.
func (r *Registry) SelectAvailable(count int, requiredSpace int64) []common.StorageNode {
	qualifying := r.filterActive(requiredSpace)
	if count < len(qualifying) {
		qualifying = qualifying[:count]
	}
	return qualifying
}

// ListActive returns every active, non-timed-out node, unsorted by count
// limit (still sorted by free space, which is a harmless side effect of
// sharing the filter with SelectAvailable).
func (r *Registry) ListActive() []common.StorageNode {
	return r.filterActive(0)
}

// ListAll returns every node, including inactive ones, for LIST_NODES.
func (r *Registry) ListAll() []common.StorageNode {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]common.StorageNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

func (r *Registry) filterActive(requiredSpace int64) []common.StorageNode {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	out := make([]common.StorageNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		if !n.IsActive || now.Sub(n.LastSeen) > common.NodeTimeout {
			continue
		}
		if n.FreeSpace < requiredSpace {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FreeSpace > out[j].FreeSpace })
	return out
}

// Sweep flips IsActive false on every node whose lastSeen exceeds
// NodeTimeout. It never evicts entries; eviction is a deliberately manual
// operation left to Unregister.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, n := range r.nodes {
		if n.IsActive && now.Sub(n.LastSeen) > common.NodeTimeout {
			n.IsActive = false
			r.nodes[id] = n
			r.log.Info().Str("nodeId", id).Msg("node marked inactive")
		}
	}
}

// RunSweeper blocks, running Sweep every KeepAliveInterval until stop is
// closed. Intended to be launched as its own goroutine.
func (r *Registry) RunSweeper(stop <-chan struct{}) {
	ticker := time.NewTicker(common.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}

// Count returns the number of registered nodes, active or not.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// ActiveCount returns the number of currently active nodes.
func (r *Registry) ActiveCount() int {
	return len(r.ListActive())
}

// Get returns a single node by id.
func (r *Registry) Get(nodeID string) (common.StorageNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[nodeID]
	return n, ok
}
