// Package placement implements the deterministic round-robin replica
// placement formula used by the client to spread chunk replicas across a
// coordinator-supplied candidate node list.
package placement

import "github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"

// ReplicasFor returns the replicaFactor nodes responsible for chunkIndex,
// computed as nodes[(chunkIndex*replicaFactor + r) % len(nodes)] for
// r in [0, replicaFactor). Returns nil if there are fewer nodes than
// replicaFactor.
func ReplicasFor[T any](nodes []T, chunkIndex int, replicaFactor int) []T {
	if len(nodes) < replicaFactor {
		return nil
	}
	out := make([]T, replicaFactor)
	for r := 0; r < replicaFactor; r++ {
		out[r] = nodes[(chunkIndex*replicaFactor+r)%len(nodes)]
	}
	return out
}

// Default replica factor, exported for call sites that don't want to spell
// out common.ReplicationFactor directly.
const DefaultReplicationFactor = common.ReplicationFactor
