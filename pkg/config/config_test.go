package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moyu-x/data-librarian/internal"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, internal.DefaultHoldingDir, cfg.Scanner.HoldingDir)
	require.Equal(t, internal.DefaultExcludedFolders, cfg.Scanner.ExcludedFolders)
	require.True(t, cfg.Scanner.MoveDuplicates)
	require.Equal(t, IndexBackendMemory, cfg.Index.Backend)
	require.Equal(t, 25.0, cfg.Splitter.MaxMB)
	require.Equal(t, 10, cfg.Splitter.InitialPages)
	require.Equal(t, ":8000", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "librarian.yaml")
	content := `
scanner:
  move_duplicates: false
  excluded_folders: [node_modules, _DuplicateHoldingBin]
index:
  backend: sqlite
splitter:
  max_mb: 9.5
  initial_pages: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Scanner.MoveDuplicates)
	require.Equal(t, []string{"node_modules", "_DuplicateHoldingBin"}, cfg.Scanner.ExcludedFolders)
	require.Equal(t, IndexBackendSQLite, cfg.Index.Backend)
	require.Equal(t, 9.5, cfg.Splitter.MaxMB)
	require.Equal(t, 4, cfg.Splitter.InitialPages)
	// 未设置的键保持默认值
	require.Equal(t, internal.DefaultLogPrefix, cfg.Scanner.LogPrefix)
}

func TestLoad_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0644))
	t.Setenv("LIBRARIAN_SERVER_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  backend: redis\n"), 0644))

	_, err := Load(path)
	require.True(t, errors.Is(err, ErrUnknownBackend))
}
