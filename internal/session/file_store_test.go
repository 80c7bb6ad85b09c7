package session

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	// Отсутствующий файл - пустое состояние, не ошибка
	st, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	require.NoError(t, fs.Save(ctx, State{AccessToken: "a", RefreshToken: "r", Locale: "ru"}))

	token, err := fs.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", token)
	assert.Equal(t, "ru", fs.Locale(ctx))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(fs.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestFileStoreClearTokensKeepsLocale(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), "p")
	require.NoError(t, err)
	require.NoError(t, fs.Save(ctx, State{AccessToken: "a", RefreshToken: "r", Locale: "fr"}))

	require.NoError(t, fs.ClearTokens(ctx))

	st, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Locale: "fr"}, st)
}

func TestFileStoreCorruptedFile(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), "p")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fs.Path(), []byte("{not json"), 0o600))

	_, err = fs.Load(ctx)
	assert.Error(t, err)

	// ClearTokens восстанавливает файл
	require.NoError(t, fs.ClearTokens(ctx))
	st, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}
