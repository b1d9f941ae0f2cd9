package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Settings is everything the server reads at startup. None of it changes
// while the process runs.
type Settings struct {
	Env           string `toml:"env"`
	Addr          string `toml:"addr"`
	AllowedOrigin string `toml:"allowed_origin"`

	Rooms           int   `toml:"rooms"`
	TileSize        int32 `toml:"tile_size"`
	MaxLayers       int   `toml:"max_layers"`
	UndoSearchDepth int   `toml:"undo_search_depth"`

	// MaxViewportTiles caps how many tiles one viewport may subscribe to.
	MaxViewportTiles int64 `toml:"max_viewport_tiles"`
	MaxFrameBytes    int64 `toml:"max_frame_bytes"`

	// JournalPath is the sqlite file strokes are journaled to. Empty disables
	// the journal.
	JournalPath string `toml:"journal_path"`
}

func Default() Settings {
	return Settings{
		Env:              "dev",
		Addr:             ":8081",
		AllowedOrigin:    "*",
		Rooms:            100,
		TileSize:         1024,
		MaxLayers:        100,
		UndoSearchDepth:  100,
		MaxViewportTiles: 4096,
		MaxFrameBytes:    1 << 20,
	}
}

// Load builds Settings from defaults, then the TOML file at path (if path is
// not empty), then .env, then SKETCH_* environment variables.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return s, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("read .env: %w", err)
	}

	if err := s.fromEnv(); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s *Settings) fromEnv() error {
	str := map[string]*string{
		"SKETCH_ENV":            &s.Env,
		"SKETCH_ADDR":           &s.Addr,
		"SKETCH_ALLOWED_ORIGIN": &s.AllowedOrigin,
		"SKETCH_JOURNAL_PATH":   &s.JournalPath,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SKETCH_ROOMS":             &s.Rooms,
		"SKETCH_MAX_LAYERS":        &s.MaxLayers,
		"SKETCH_UNDO_SEARCH_DEPTH": &s.UndoSearchDepth,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	ints64 := map[string]*int64{
		"SKETCH_MAX_VIEWPORT_TILES": &s.MaxViewportTiles,
		"SKETCH_MAX_FRAME_BYTES":    &s.MaxFrameBytes,
	}
	for key, dst := range ints64 {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("SKETCH_TILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("SKETCH_TILE_SIZE: %w", err)
		}
		s.TileSize = int32(n)
	}
	return nil
}

func (s Settings) Validate() error {
	switch {
	case s.Rooms <= 0:
		return fmt.Errorf("rooms must be positive, got %d", s.Rooms)
	case s.TileSize <= 0:
		return fmt.Errorf("tile_size must be positive, got %d", s.TileSize)
	case s.MaxLayers <= 0 || s.MaxLayers > 256:
		return fmt.Errorf("max_layers must be in 1..256, got %d", s.MaxLayers)
	case s.UndoSearchDepth <= 0:
		return fmt.Errorf("undo_search_depth must be positive, got %d", s.UndoSearchDepth)
	case s.MaxViewportTiles <= 0:
		return fmt.Errorf("max_viewport_tiles must be positive, got %d", s.MaxViewportTiles)
	case s.MaxFrameBytes <= 0:
		return fmt.Errorf("max_frame_bytes must be positive, got %d", s.MaxFrameBytes)
	}
	return nil
}
