package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "nested", "snapshots")

	_, err := storage.NewLocalStorage(basePath)
	require.NoError(t, err)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutGetRoundtrip(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	size, err := store.Put(ctx, "financial-summaries/org/2024-05-01.json", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	body, err := store.Get(ctx, "financial-summaries/org/2024-05-01.json")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestLocalStorage_PutOverwrites(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "a/b.json", "application/json", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = store.Put(ctx, "a/b.json", "application/json", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	body, err := store.Get(ctx, "a/b.json")
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorage_GetNotFound(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.json", "a/../../b.json", "a//b.json"} {
		_, err := store.Put(ctx, key, "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}

func TestLocalStorage_DeleteIdempotent(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "x.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "x.json"))
	require.NoError(t, store.Delete(ctx, "x.json"))

	_, err = store.Get(ctx, "x.json")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestJSONHelpers(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	type snapshot struct {
		Total float64 `json:"total"`
	}
	require.NoError(t, storage.PutJSON(ctx, store, "s/one.json", snapshot{Total: 12.5}))

	var got snapshot
	require.NoError(t, storage.GetJSON(ctx, store, "s/one.json", &got))
	assert.Equal(t, 12.5, got.Total)

	_, err = store.Put(ctx, "s/broken.json", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Error(t, storage.GetJSON(ctx, store, "s/broken.json", &got))

	assert.ErrorIs(t, storage.GetJSON(ctx, store, "s/none.json", &got), storage.ErrObjectNotFound)
}

func TestNewStorage_LocalMode(t *testing.T) {
	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)
}

func TestNewStorage_InvalidMode(t *testing.T) {
	_, err := storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err, "azure mode requires a connection string")
}
