package repository_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	store, err := repository.NewFile(dir)
	require.NoError(t, err)

	_, found, err := store.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "user", []byte(`{"id":1}`)))
	require.NoError(t, store.Set(ctx, "user", []byte(`{"id":2}`)))

	got, found, err := store.Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"id":2}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, store.Remove(ctx, "user", "cart"))
	_, err = os.Stat(filepath.Join(dir, "user"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStoreKeys(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError string
	}{
		{name: "plain key: ok", key: "cart"},
		{name: "empty key: error", key: "", wantError: "key is empty"},
		{name: "path traversal: error", key: "../cart", wantError: "key[../cart] is not valid"},
		{name: "dot dot: error", key: "..", wantError: "key[..] is not valid"},
	}

	store, err := repository.NewFile(t.TempDir())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(t.Context(), tt.key, []byte(`[]`))
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewFileEmptyDir(t *testing.T) {
	_, err := repository.NewFile("")
	require.EqualError(t, err, "dir is empty")
}
