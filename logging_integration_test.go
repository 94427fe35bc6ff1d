package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingFallbackToStderr(t *testing.T) {
	dir := t.TempDir()
	// 普通文件占住目录位置，日志目录无法创建
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
LogFilePath = "%s"
CacheDir = "%s"
`, filepath.Join(blocker, "logs", "ocdid-hub.log"), filepath.Join(dir, "cache")))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, checkOnly: true})
	assert.Equal(t, exitOK, code, "日志 fallback 不应导致失败")
}

func TestLoggingWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "ocdid-hub.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogFilePath = "%s"
CacheDir = "%s"
`, logPath, filepath.Join(dir, "cache")))

	useBufferWriters(t)
	require.Equal(t, exitOK, run(cliOptions{configPath: configPath, checkOnly: true}))

	body, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"action":"check_config"`)
	assert.Contains(t, string(body), `"auth":`)
}
