// Package chunk implements the content-addressed chunking and reassembly
// pipeline used by the client to split a local file before upload and
// verify/reassemble it after download.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Split reads path sequentially in ChunkSize windows and emits one Chunk
// per window. A short final read yields the last chunk if nonzero-length;
// an empty file yields zero chunks. Returns an empty, non-nil-error result
// on any I/O failure, which the caller must treat as fatal for the upload.
func Split(path string) ([]common.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var chunks []common.Chunk
	buf := make([]byte, common.ChunkSize)
	index := 0
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			chunks = append(chunks, common.Chunk{
				ChunkID: Sum(data),
				Index:   index,
				Size:    int64(n),
				Data:    data,
			})
			index++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return chunks, nil
}

// Validate recomputes chunk's digest and compares it case-insensitively to
// ChunkID.
func Validate(c common.Chunk) bool {
	return strings.EqualFold(Sum(c.Data), c.ChunkID)
}

// ValidateSequence reports whether the chunks, sorted by Index, form the
// contiguous range [0, N-1] with no gaps or duplicates.
func ValidateSequence(chunks []common.Chunk) bool {
	if len(chunks) == 0 {
		return false
	}
	sorted := make([]common.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	for i, c := range sorted {
		if c.Index != i {
			return false
		}
	}
	return true
}

// Reassemble sorts chunks by index, rejects a non-contiguous sequence or any
// hash mismatch (checked before any byte is written), then writes the
// payloads in order to a truncated outPath.
func Reassemble(chunks []common.Chunk, outPath string) error {
	if len(chunks) == 0 {
		return os.WriteFile(outPath, nil, 0644)
	}

	sorted := make([]common.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	for i, c := range sorted {
		if c.Index != i {
			return fmt.Errorf("reassemble %s: non-contiguous chunk sequence", outPath)
		}
		if !Validate(c) {
			return fmt.Errorf("reassemble %s: chunk %d failed integrity check", outPath, c.Index)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	for _, c := range sorted {
		if _, err := f.Write(c.Data); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
	}
	return nil
}
