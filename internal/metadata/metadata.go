// Package metadata implements the coordinator's file metadata store:
// registering files with their chunk-to-node mapping and enforcing the
// manifest's integrity invariants. Grounded on
// original_source/metadata-server/src/metadata_manager.cpp.
package metadata

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Store is the coordinator's file table, guarded by its own mutex,
// independent of the node registry's.
type Store struct {
	mu    sync.Mutex
	files map[string]common.FileRecord
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Store {
	return &Store{
		files: make(map[string]common.FileRecord),
		log:   log.With().Str("component", "metadata").Logger(),
	}
}

// Register sanitizes filename, sorts chunks by index, validates the
// manifest, and writes it. A repeat registration overwrites the previous
// entry (last-write-wins, per the accepted duplicate-filename race).
func (s *Store) Register(filename string, totalSize int64, chunks []common.ChunkPlacement) error {
	name := common.SanitizeFilename(filename)
	if name == "" {
		return fmt.Errorf("register %q: %w", filename, common.ErrRegistrationFailed)
	}

	sorted := make([]common.ChunkPlacement, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	if err := validate(sorted, totalSize); err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.files[name] = common.FileRecord{
		Filename:     name,
		TotalSize:    totalSize,
		Chunks:       sorted,
		UploadTime:   now,
		LastAccessed: now,
	}
	s.mu.Unlock()

	s.log.Info().Str("filename", name).Int64("size", totalSize).Int("chunks", len(sorted)).Msg("file registered")
	return nil
}

func validate(chunks []common.ChunkPlacement, totalSize int64) error {
	if len(chunks) == 0 && totalSize != 0 {
		return common.ErrRegistrationFailed
	}
	var sum int64
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("chunk sequence has gap at %d: %w", i, common.ErrRegistrationFailed)
		}
		if len(c.ChunkID) != 64 {
			return fmt.Errorf("chunk %d has invalid id: %w", i, common.ErrRegistrationFailed)
		}
		if len(c.NodeIDs) == 0 {
			return fmt.Errorf("chunk %d has no replicas: %w", i, common.ErrRegistrationFailed)
		}
		if c.Size <= 0 {
			return fmt.Errorf("chunk %d has non-positive size: %w", i, common.ErrRegistrationFailed)
		}
		sum += c.Size
	}
	if sum != totalSize {
		return fmt.Errorf("chunk sizes sum to %d, want %d: %w", sum, totalSize, common.ErrRegistrationFailed)
	}
	return nil
}

// Lookup sanitizes filename, returns a snapshot of its FileRecord, and bumps
// lastAccessed.
func (s *Store) Lookup(filename string) (common.FileRecord, error) {
	name := common.SanitizeFilename(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.files[name]
	if !ok {
		return common.FileRecord{}, fmt.Errorf("lookup %q: %w", name, common.ErrFileNotFound)
	}
	rec.LastAccessed = time.Now()
	s.files[name] = rec
	return rec, nil
}

// List returns every registered file's name and size, sorted by filename.
func (s *Store) List() []common.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// Delete removes a file's manifest. Metadata-only: it does not reach out to
// storage nodes to reclaim chunk bytes, matching the orphan-tolerant
// no-rollback policy already accepted for uploads.
func (s *Store) Delete(filename string) bool {
	name := common.SanitizeFilename(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[name]; !ok {
		return false
	}
	delete(s.files, name)
	return true
}

// Count returns the number of registered files.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// TotalBytes sums TotalSize across every registered file.
func (s *Store) TotalBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, rec := range s.files {
		sum += rec.TotalSize
	}
	return sum
}
