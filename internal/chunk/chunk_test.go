package chunk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyGalaxyOrsik/p2p-server-file-storage/pkg/common"
)

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestSplitEmptyFile(t *testing.T) {
	path := writeTempFile(t, 0)
	chunks, err := Split(path)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitExactMultiple(t *testing.T) {
	path := writeTempFile(t, common.ChunkSize*2)
	chunks, err := Split(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.EqualValues(t, common.ChunkSize, chunks[0].Size)
	assert.EqualValues(t, common.ChunkSize, chunks[1].Size)
}

func TestSplitTrailingShortChunk(t *testing.T) {
	path := writeTempFile(t, common.ChunkSize+1)
	chunks, err := Split(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.EqualValues(t, common.ChunkSize, chunks[0].Size)
	assert.EqualValues(t, 1, chunks[1].Size)
}

func TestSplitChunkIDMatchesSum(t *testing.T) {
	path := writeTempFile(t, common.ChunkSize/4)
	chunks, err := Split(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, Sum(chunks[0].Data), chunks[0].ChunkID)
	assert.Len(t, chunks[0].ChunkID, 64)
}

func TestSplitReassembleRoundTrip(t *testing.T) {
	path := writeTempFile(t, common.ChunkSize*2+12345)
	chunks, err := Split(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "output.bin")
	require.NoError(t, Reassemble(chunks, out))

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	roundTripped, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, original, roundTripped)
}

func TestReassembleAcceptsShuffledOrder(t *testing.T) {
	path := writeTempFile(t, common.ChunkSize*3)
	chunks, err := Split(path)
	require.NoError(t, err)

	shuffled := []common.Chunk{chunks[2], chunks[0], chunks[1]}
	out := filepath.Join(t.TempDir(), "output.bin")
	require.NoError(t, Reassemble(shuffled, out))

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	roundTripped, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, original, roundTripped)
}

func TestReassembleRejectsGap(t *testing.T) {
	chunks := []common.Chunk{
		{ChunkID: Sum([]byte("a")), Index: 0, Size: 1, Data: []byte("a")},
		{ChunkID: Sum([]byte("c")), Index: 2, Size: 1, Data: []byte("c")},
	}
	out := filepath.Join(t.TempDir(), "output.bin")
	err := Reassemble(chunks, out)
	assert.Error(t, err)
}

func TestReassembleRejectsHashMismatch(t *testing.T) {
	chunks := []common.Chunk{
		{ChunkID: Sum([]byte("a")), Index: 0, Size: 1, Data: []byte("b")},
	}
	out := filepath.Join(t.TempDir(), "output.bin")
	err := Reassemble(chunks, out)
	assert.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no file should be written before integrity failure")
}

func TestReassembleEmptyChunkListProducesEmptyFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.bin")
	require.NoError(t, Reassemble(nil, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestValidateSequence(t *testing.T) {
	good := []common.Chunk{{Index: 1}, {Index: 0}, {Index: 2}}
	assert.True(t, ValidateSequence(good))

	gap := []common.Chunk{{Index: 0}, {Index: 2}}
	assert.False(t, ValidateSequence(gap))

	assert.False(t, ValidateSequence(nil))
}
