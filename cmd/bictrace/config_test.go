package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".bictrace"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".bictrace", "config.json"), []byte(content), 0o644))
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, `{"repo": ".", "oracle": {"large_model": "gpt-4o"}}`)

	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Mode)
	assert.Equal(t, "gpt-4o", cfg.Oracle.LargeModel)
	assert.Equal(t, 30, cfg.Budgets.MaxDepth)
	assert.Equal(t, 3, cfg.Budgets.MaxIterations)
}

func TestLoadConfigRejectsSchemaViolation(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, `{"repo": ".", "mode": "turbo", "oracle": {"large_model": "gpt-4o"}}`)

	_, err := loadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	_, err := loadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestRepoRootResolution(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeConfig(t, dir, `{"repo": "src/project", "oracle": {"large_model": "gpt-4o"}}`)
	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src", "project"), repoRoot(dir, cfg))
}
