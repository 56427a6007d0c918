package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./photos", cfg.PhotosDir)
	assert.Equal(t, 800, cfg.Extraction.CanonicalWidth)
	assert.Equal(t, 600, cfg.Extraction.CanonicalHeight)
	assert.Equal(t, 3, cfg.Extraction.MarkerTopLeft)
	assert.Equal(t, 1, cfg.Extraction.MarkerTopRight)
	assert.Equal(t, 2, cfg.Extraction.MarkerBottomRight)
	assert.Equal(t, 4, cfg.Extraction.MarkerBottomLeft)
	assert.Empty(t, cfg.StatusAddr, "status server is opt-in")
	assert.Len(t, cfg.Scenes, 3)
	assert.False(t, cfg.Simulation.TickAllScenes)
	assert.Zero(t, cfg.Simulation.MaxFishPerScene)
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishtank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
photos_dir: /srv/drop
status_addr: "127.0.0.1:8750"
ingest:
  queue_capacity: 8
simulation:
  tick_all_scenes: true
  max_fish_per_scene: 12
scenes:
  - id: lagoon
    background: art/lagoon.png
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/drop", cfg.PhotosDir)
	assert.Equal(t, "127.0.0.1:8750", cfg.StatusAddr)
	assert.Equal(t, 8, cfg.Ingest.QueueCapacity)
	assert.True(t, cfg.Simulation.TickAllScenes)
	assert.Equal(t, 12, cfg.Simulation.MaxFishPerScene)

	require.Len(t, cfg.Scenes, 1)
	assert.Equal(t, "lagoon", cfg.Scenes[0].ID)

	// Unset fields still pick up defaults.
	assert.Equal(t, "./fishtank.db", cfg.DatabasePath)
	assert.Equal(t, 750, cfg.Ingest.DebounceMs)
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenes: [\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{
			name:   "no scenes",
			mutate: func(c *Config) { c.Scenes = nil },
			msg:    "at least one scene",
		},
		{
			name: "empty scene id",
			mutate: func(c *Config) {
				c.Scenes = []SceneConfig{{ID: "", Background: "a.png"}}
			},
			msg: "empty id",
		},
		{
			name: "duplicate scene id",
			mutate: func(c *Config) {
				c.Scenes = []SceneConfig{{ID: "reef"}, {ID: "reef"}}
			},
			msg: "duplicate scene id",
		},
		{
			name: "duplicate marker id",
			mutate: func(c *Config) {
				c.Extraction.MarkerTopLeft = 1
				c.Extraction.MarkerTopRight = 1
			},
			msg: "marker id 1",
		},
		{
			name:   "area fraction out of range",
			mutate: func(c *Config) { c.Extraction.MinQuadAreaFraction = 1.5 },
			msg:    "min_quad_area_fraction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
