package sqlitevec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, modelVersion string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Path:         filepath.Join(t.TempDir(), "vectors.db"),
		ModelVersion: modelVersion,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutAndGet(t *testing.T) {
	c := newTestClient(t, "test-v1")
	ctx := context.Background()

	phrases := []string{"Jakub Kowalski", "Anna Nowak"}
	embeddings := [][]float32{{1, 2, 3}, {4, 5, 6}}

	require.NoError(t, c.Put(ctx, phrases, embeddings))

	got, err := c.Get(ctx, []string{"jakub kowalski", "ANNA NOWAK", "missing"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, []float32{1, 2, 3}, got["jakub kowalski"])
	assert.Equal(t, []float32{4, 5, 6}, got["anna nowak"])
}

func TestGet_NormalizesLookupKeys(t *testing.T) {
	c := newTestClient(t, "test-v1")
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, []string{"  Jakub   Kowalski  "}, [][]float32{{9, 9}}))

	got, err := c.Get(ctx, []string{"jakub kowalski"})
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9}, got["jakub kowalski"])
}

func TestPut_ReplacesExisting(t *testing.T) {
	c := newTestClient(t, "test-v1")
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, []string{"phrase"}, [][]float32{{1}}))
	require.NoError(t, c.Put(ctx, []string{"phrase"}, [][]float32{{2}}))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := c.Get(ctx, []string{"phrase"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, got["phrase"])
}

func TestPut_CountMismatch(t *testing.T) {
	c := newTestClient(t, "test-v1")

	err := c.Put(context.Background(), []string{"a", "b"}, [][]float32{{1}})
	assert.Error(t, err)
}

func TestModelVersionChange_PurgesStaleVectors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.db")
	ctx := context.Background()

	c1, err := NewClient(Config{Path: path, ModelVersion: "old-model"})
	require.NoError(t, err)
	require.NoError(t, c1.Put(ctx, []string{"phrase"}, [][]float32{{1, 2}}))
	require.NoError(t, c1.Close())

	// Reopen with a different model: old vectors must be gone.
	c2, err := NewClient(Config{Path: path, ModelVersion: "new-model"})
	require.NoError(t, err)
	defer c2.Close()

	count, err := c2.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := c2.Get(ctx, []string{"phrase"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeserializeFloat32_InvalidLength(t *testing.T) {
	_, err := deserializeFloat32([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestGet_EmptyInput(t *testing.T) {
	c := newTestClient(t, "test-v1")

	got, err := c.Get(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
