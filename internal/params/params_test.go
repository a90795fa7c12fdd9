package params

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/curbz/rtl-navigator/internal/rtl"
)

func writeParams(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		tn, err := Load(writeParams(t, dir, "RTL_LAND_DELAY: 8\n"))
		require.NoError(t, err)
		require.Equal(t, rtl.Tunables{ReturnAlt: 100, DescendAlt: 20, LandDelay: 8}, tn)
	})

	t.Run("all keys", func(t *testing.T) {
		tn, err := Load(writeParams(t, dir, "RTL_RETURN_ALT: 60\nRTL_DESCEND_ALT: 15\nRTL_LAND_DELAY: 0\n"))
		require.NoError(t, err)
		require.Equal(t, rtl.Tunables{ReturnAlt: 60, DescendAlt: 15, LandDelay: 0}, tn)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Load(writeParams(t, dir, "RTL_RETURN_ALT: 500\n"))
		require.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
	})
}

func TestSet(t *testing.T) {
	s := NewStore(Defaults)

	require.NoError(t, s.Set(LandDelay, 12.5))
	require.Equal(t, 12.5, s.Tunables().LandDelay)

	require.ErrorIs(t, s.Set("RTL_BOGUS", 1), ErrUnknownParam)
	require.ErrorIs(t, s.Set(DescendAlt, -3), ErrOutOfRange)
	require.Equal(t, Defaults.DescendAlt, s.Tunables().DescendAlt)
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeParams(t, dir, "RTL_RETURN_ALT: 60\n")
	s := NewStore(Defaults)

	changed, err := s.Reload(path)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 60.0, s.Tunables().ReturnAlt)

	changed, err = s.Reload(path)
	require.NoError(t, err)
	require.False(t, changed, "unchanged file should not reload")

	// a broken edit keeps the last good values
	require.NoError(t, os.WriteFile(path, []byte("RTL_RETURN_ALT: 9000\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	_, err = s.Reload(path)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Equal(t, 60.0, s.Tunables().ReturnAlt)
}

func TestWatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeParams(t, dir, "RTL_DESCEND_ALT: 20\n")
	s := NewStore(Defaults)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, path, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("RTL_DESCEND_ALT: 35\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		return s.Tunables().DescendAlt == 35
	}, time.Second, 10*time.Millisecond)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  file: /etc/rtlnav/params.yaml\n  refresh_interval: 500ms\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/etc/rtlnav/params.yaml", cfg.File)
	require.Equal(t, 500*time.Millisecond, cfg.RefreshInterval)

	require.NoError(t, os.WriteFile(path, []byte("params:\n  refresh_interval: 0s\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
