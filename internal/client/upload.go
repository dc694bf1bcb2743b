package client

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/chunk"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/internal/placement"
	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// UploadOrchestrator drives the client-side upload pipeline (§4.6).
type UploadOrchestrator struct {
	Metadata *MetadataClient
	log      zerolog.Logger
}

func NewUploadOrchestrator(metadata *MetadataClient, log zerolog.Logger) *UploadOrchestrator {
	return &UploadOrchestrator{Metadata: metadata, log: log}
}

// Upload splits localPath, requests placement, replicates every chunk in
// bounded parallel, and reports the completed manifest. Any intermediate
// chunk failure aborts the upload; already-written replicas are left in
// place (no rollback).
func (u *UploadOrchestrator) Upload(localPath, remoteFilename string) error {
	chunks, err := chunk.Split(localPath)
	if err != nil {
		return fmt.Errorf("split %s: %w", localPath, err)
	}

	var totalSize int64
	for _, c := range chunks {
		totalSize += c.Size
	}

	nodes, err := u.Metadata.RequestUploadNodes(remoteFilename, totalSize)
	if err != nil {
		return fmt.Errorf("request upload placement: %w", err)
	}
	if len(nodes) < common.ReplicationFactor {
		return fmt.Errorf("%w: only %d candidate nodes returned", common.ErrInsufficientNodes, len(nodes))
	}

	chunkNodeIDs := make([][]string, len(chunks))

	group := new(errgroup.Group)
	group.SetLimit(common.MaxParallelChunks)
	for i, c := range chunks {
		i, c := i, c
		group.Go(func() error {
			replicas := placement.ReplicasFor(nodes, c.Index, common.ReplicationFactor)
			var stored []string
			for _, rep := range replicas {
				nc := NewNodeClient(rep.IP, rep.Port)
				if nc.StoreChunk(c.ChunkID, c.Data) {
					stored = append(stored, rep.NodeID)
				}
			}
			if len(stored) < common.ReplicationFactor {
				return fmt.Errorf("chunk %d: only stored on %d/%d replicas", c.Index, len(stored), common.ReplicationFactor)
			}
			chunkNodeIDs[i] = stored
			u.log.Info().Int("chunk", c.Index).Int("replicas", len(stored)).Msg("chunk stored")
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("upload %s: %w", remoteFilename, err)
	}

	if err := u.Metadata.NotifyUploadComplete(remoteFilename, chunks, chunkNodeIDs); err != nil {
		return fmt.Errorf("notify upload complete: %w", err)
	}
	return nil
}
