package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.sqlite3", c.Sqlite.Dsn)
	assert.Equal(t, []string{"console", "file"}, c.Log.Writer)
	assert.True(t, c.Engine.BypassCSP)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "sqlite:\n  dsn: other.db\nlog:\n  level: warn\ndevtools:\n  url: http://localhost:9333\nengine:\n  legacy: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", c.Sqlite.Dsn)
	assert.Equal(t, "cdpmarklet_", c.Sqlite.Prefix)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "http://localhost:9333", c.DevTools.URL)
	assert.True(t, c.Engine.Legacy)
	assert.Equal(t, 10000, c.Engine.EvalTimeoutMS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
