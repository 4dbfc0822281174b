package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sietch-labs/sietch/internal/paths"
)

func TestNewLogger_WritesSessionFile(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, t.TempDir())

	l, err := NewLogger("test")
	require.NoError(t, err)
	defer l.Close()

	require.NotEmpty(t, l.LogPath())
	assert.Contains(t, l.LogPath(), l.SessionID())

	l.Infof("hello %s", "spice")
	l.Errorf("boom")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[test] [INFO] hello spice")
	assert.Contains(t, content, "[test] [ERROR] boom")
}

func TestNewLogger_SharedSession(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, t.TempDir())

	a, err := NewLogger("alpha")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewLogger("beta")
	require.NoError(t, err)
	defer b.Close()

	// Components within one process share a session and a file.
	assert.Equal(t, a.SessionID(), b.SessionID())
	if a.LogPath() != "" && b.LogPath() != "" {
		assert.Equal(t, a.LogPath(), b.LogPath())
	}
	assert.True(t, strings.HasSuffix(a.LogPath(), "-sietch.log"))
}

func TestNewLogger_HonorsConfigDirChange(t *testing.T) {
	first := t.TempDir()
	t.Setenv(paths.EnvConfigDir, first)
	a, err := NewLogger("alpha")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// A later logger must resolve the directory fresh, not reuse the
	// one the first logger saw.
	second := t.TempDir()
	t.Setenv(paths.EnvConfigDir, second)
	b, err := NewLogger("beta")
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, strings.HasPrefix(a.LogPath(), first))
	assert.True(t, strings.HasPrefix(b.LogPath(), second))
}
