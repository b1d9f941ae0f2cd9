package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 100, s.Rooms)
	assert.Equal(t, int32(1024), s.TileSize)
	assert.Equal(t, 100, s.MaxLayers)
}

func TestLoadLayers(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "sketch.toml")
	require.NoError(t, os.WriteFile(path, []byte("rooms = 3\ntile_size = 256\njournal_path = \"a.db\"\n"), 0o644))
	t.Setenv("SKETCH_TILE_SIZE", "512")
	t.Setenv("SKETCH_ADDR", ":9999")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Rooms, "from file")
	assert.Equal(t, "a.db", s.JournalPath, "from file")
	assert.Equal(t, int32(512), s.TileSize, "env wins over file")
	assert.Equal(t, ":9999", s.Addr)
	assert.Equal(t, 100, s.MaxLayers, "default kept")
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SKETCH_ROOMS", "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Settings){
		"rooms":      func(s *Settings) { s.Rooms = 0 },
		"tile size":  func(s *Settings) { s.TileSize = -1 },
		"max layers": func(s *Settings) { s.MaxLayers = 257 },
		"undo depth": func(s *Settings) { s.UndoSearchDepth = 0 },
		"viewport":   func(s *Settings) { s.MaxViewportTiles = 0 },
		"frame":      func(s *Settings) { s.MaxFrameBytes = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := Default()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
