package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveStorageRoot_FlagWins(t *testing.T) {
	t.Setenv(StorageRootEnvVar, "/env/root")
	r, err := ResolveStorageRoot("/flag/root")
	require.NoError(t, err)
	require.Equal(t, "/flag/root", r.StorageRoot)
	require.Equal(t, "flag", r.Source)
}

func TestResolveStorageRoot_EnvOverProjectFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	require.NoError(t, os.WriteFile(DefaultProjectConfigPath, []byte(`{"schemaVersion":1,"storageRoot":"/project/root"}`), 0o644))
	t.Setenv(StorageRootEnvVar, "/env/root")

	r, err := ResolveStorageRoot("")
	require.NoError(t, err)
	require.Equal(t, "/env/root", r.StorageRoot)
}

func TestResolveStorageRoot_DefaultWhenNothingSet(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv(StorageRootEnvVar, "")
	r, err := ResolveStorageRoot("")
	require.NoError(t, err)
	require.Equal(t, ".matchlab", r.StorageRoot)
	require.Equal(t, "default", r.Source)
}

func TestInitProject_CreatesConfigOnce(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "matchlab.config.json")
	_, created, err := InitProject(configPath, filepath.Join(dir, "storage"))
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = InitProject(configPath, filepath.Join(dir, "storage"))
	require.NoError(t, err)
	require.False(t, created)

	info, err := os.Stat(filepath.Join(dir, "storage", "tournaments"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
