package storagenode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStorage(dir)
	require.NoError(t, err)
	return s
}

func TestStoreGetRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	data := []byte("hello chunk")

	require.NoError(t, s.Store("chunk1", data))
	got, err := s.Get("chunk1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGetMissingChunkFails(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Get("does-not-exist")
	assert.Error(t, err)
}

func TestExistsReflectsStoreAndDelete(t *testing.T) {
	s := newTestStorage(t)
	assert.False(t, s.Exists("chunk1"))

	require.NoError(t, s.Store("chunk1", []byte("data")))
	assert.True(t, s.Exists("chunk1"))

	require.NoError(t, s.Delete("chunk1"))
	assert.False(t, s.Exists("chunk1"))
}

func TestDeleteMissingChunkIsNoOp(t *testing.T) {
	s := newTestStorage(t)
	assert.NoError(t, s.Delete("never-stored"))
}

func TestBytesUsedTracksStoreOverwriteAndDelete(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Store("a", []byte("12345")))
	assert.EqualValues(t, 5, s.BytesUsed())

	require.NoError(t, s.Store("b", []byte("123")))
	assert.EqualValues(t, 8, s.BytesUsed())

	require.NoError(t, s.Store("a", []byte("1")))
	assert.EqualValues(t, 4, s.BytesUsed())

	require.NoError(t, s.Delete("b"))
	assert.EqualValues(t, 1, s.BytesUsed())
}

func TestNewStorageScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preexisting"), []byte("abcdefgh"), 0644))

	s, err := NewStorage(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 8, s.BytesUsed())
}
