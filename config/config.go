package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete aquarium configuration.
type Config struct {
	PhotosDir    string           `yaml:"photos_dir"`
	DatabasePath string           `yaml:"database_path"`
	StatusAddr   string           `yaml:"status_addr"` // empty disables the HTTP status server
	Extraction   ExtractionConfig `yaml:"extraction"`
	Ingest       IngestConfig     `yaml:"ingest"`
	Simulation   SimulationConfig `yaml:"simulation"`
	Scenes       []SceneConfig    `yaml:"scenes"`
	Window       WindowConfig     `yaml:"window"`
}

// ExtractionConfig holds the scanner tunables. The defaults match the
// printed template: an 800x600 canonical frame with 4x4 ArUco markers
// in the corners.
type ExtractionConfig struct {
	CanonicalWidth  int `yaml:"canonical_width"`
	CanonicalHeight int `yaml:"canonical_height"`

	// Marker ids by corner, from the printed template.
	MarkerTopLeft     int `yaml:"marker_top_left"`
	MarkerTopRight    int `yaml:"marker_top_right"`
	MarkerBottomRight int `yaml:"marker_bottom_right"`
	MarkerBottomLeft  int `yaml:"marker_bottom_left"`

	// MinQuadAreaFraction rejects detections whose quadrilateral covers
	// less than this fraction of the photo (false-positive guard).
	MinQuadAreaFraction float64 `yaml:"min_quad_area_fraction"`

	// Marker suppression zone in canonical pixels.
	SuppressionRadius  int `yaml:"suppression_radius"`
	SuppressionPadding int `yaml:"suppression_padding"`
	GradientWidth      int `yaml:"gradient_width"`

	Workers int `yaml:"workers"` // 0 = derive from CPU count
}

// IngestConfig bounds the watcher-to-renderer handoff.
type IngestConfig struct {
	DebounceMs     int `yaml:"debounce_ms"`
	QueueCapacity  int `yaml:"queue_capacity"`
	PerFrameBudget int `yaml:"per_frame_budget"` // sprites admitted per rendered frame
}

// SimulationConfig selects the swim-update policy.
type SimulationConfig struct {
	// TickAllScenes simulates fish in inactive scenes too. Off by
	// default: only the visible tank advances.
	TickAllScenes bool `yaml:"tick_all_scenes"`

	// MaxFishPerScene evicts the oldest fish (with a leave animation)
	// once exceeded. 0 means fish accumulate without bound.
	MaxFishPerScene int `yaml:"max_fish_per_scene"`
}

// SceneConfig describes one aquarium backdrop.
type SceneConfig struct {
	ID         string `yaml:"id"`
	Background string `yaml:"background"`
}

// WindowConfig sets the desktop window geometry.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Load reads and parses a YAML configuration file and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a ready-to-run configuration without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.PhotosDir == "" {
		c.PhotosDir = "./photos"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "./fishtank.db"
	}

	e := &c.Extraction
	if e.CanonicalWidth == 0 {
		e.CanonicalWidth = 800
	}
	if e.CanonicalHeight == 0 {
		e.CanonicalHeight = 600
	}
	if e.MarkerTopLeft == 0 && e.MarkerTopRight == 0 && e.MarkerBottomRight == 0 && e.MarkerBottomLeft == 0 {
		e.MarkerTopLeft = 3
		e.MarkerTopRight = 1
		e.MarkerBottomRight = 2
		e.MarkerBottomLeft = 4
	}
	if e.MinQuadAreaFraction == 0 {
		e.MinQuadAreaFraction = 0.1
	}
	if e.SuppressionRadius == 0 {
		e.SuppressionRadius = 110
	}
	if e.SuppressionPadding == 0 {
		e.SuppressionPadding = 15
	}
	if e.GradientWidth == 0 {
		e.GradientWidth = 5
	}

	i := &c.Ingest
	if i.DebounceMs == 0 {
		i.DebounceMs = 750
	}
	if i.QueueCapacity == 0 {
		i.QueueCapacity = 64
	}
	if i.PerFrameBudget == 0 {
		i.PerFrameBudget = 2
	}

	if len(c.Scenes) == 0 {
		c.Scenes = []SceneConfig{
			{ID: "ocean", Background: "assets/ocean.png"},
			{ID: "reef", Background: "assets/reef.png"},
			{ID: "deep", Background: "assets/deep.png"},
		}
	}

	w := &c.Window
	if w.Width == 0 {
		w.Width = 1280
	}
	if w.Height == 0 {
		w.Height = 720
	}
	if w.Title == "" {
		w.Title = "FishTank"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Scenes) == 0 {
		return fmt.Errorf("config: at least one scene is required")
	}
	seen := map[string]bool{}
	for _, s := range c.Scenes {
		if s.ID == "" {
			return fmt.Errorf("config: scene with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("config: duplicate scene id %q", s.ID)
		}
		seen[s.ID] = true
	}
	ids := map[int]string{}
	e := c.Extraction
	for _, m := range []struct {
		id   int
		role string
	}{
		{e.MarkerTopLeft, "top-left"},
		{e.MarkerTopRight, "top-right"},
		{e.MarkerBottomRight, "bottom-right"},
		{e.MarkerBottomLeft, "bottom-left"},
	} {
		if prev, dup := ids[m.id]; dup {
			return fmt.Errorf("config: marker id %d assigned to both %s and %s", m.id, prev, m.role)
		}
		ids[m.id] = m.role
	}
	if e.MinQuadAreaFraction < 0 || e.MinQuadAreaFraction >= 1 {
		return fmt.Errorf("config: min_quad_area_fraction must be in [0,1), got %v", e.MinQuadAreaFraction)
	}
	return nil
}
