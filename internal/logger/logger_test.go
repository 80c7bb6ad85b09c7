package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesToFileWithLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charchat.log")

	log, err := New(Config{Level: "info", Encoding: "json", OutputPath: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible", zap.String("k", "v"))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.True(t, strings.Contains(out, `"msg":"visible"`), out)
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	// Неверный уровень не должен ломать создание логгера
	log, err := New(Config{Level: "loud", Encoding: "unknown"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))
}
