package client

import "fmt"

// ReplicaHealth is one chunk's per-replica CHECK_CHUNK result.
type ReplicaHealth struct {
	ChunkIndex int
	ChunkID    string
	NodeID     string
	Present    bool
}

// CheckOrchestrator exercises the CHECK_CHUNK wire verb as a first-class
// client operation (§11.3) — otherwise it has no caller anywhere in the
// system.
type CheckOrchestrator struct {
	Metadata *MetadataClient
}

func NewCheckOrchestrator(metadata *MetadataClient) *CheckOrchestrator {
	return &CheckOrchestrator{Metadata: metadata}
}

// Check fetches remoteFilename's manifest and probes CHECK_CHUNK against
// every listed replica of every chunk.
func (co *CheckOrchestrator) Check(remoteFilename string) ([]ReplicaHealth, error) {
	_, entries, err := co.Metadata.RequestDownload(remoteFilename)
	if err != nil {
		return nil, fmt.Errorf("request download manifest: %w", err)
	}

	var results []ReplicaHealth
	for _, entry := range entries {
		for _, node := range entry.Nodes {
			nc := NewNodeClient(node.IP, node.Port)
			results = append(results, ReplicaHealth{
				ChunkIndex: entry.Index,
				ChunkID:    entry.ChunkID,
				NodeID:     node.NodeID,
				Present:    nc.CheckChunk(entry.ChunkID),
			})
		}
	}
	return results, nil
}
