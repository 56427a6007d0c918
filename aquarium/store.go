package aquarium

import (
	"log/slog"
	"math/rand"
	"sync"

	"fishtank/config"
	"fishtank/types"
)

// Scene is one aquarium backdrop with its own fish population.
type Scene struct {
	ID             string
	BackgroundPath string
	Fish           []*Fish
}

// Store owns all simulation state. The render thread is its sole
// mutator; the mutex exists only so the status server can take
// consistent read snapshots.
type Store struct {
	mu     sync.Mutex
	scenes []*Scene
	active int

	rng    *rand.Rand
	sim    config.SimulationConfig
	sceneW float64
	sceneH float64
}

// NewStore builds the fixed scene set. sceneW/sceneH are the logical
// bounds fish swim in.
func NewStore(scenes []config.SceneConfig, sim config.SimulationConfig, sceneW, sceneH float64, rng *rand.Rand) *Store {
	s := &Store{
		rng:    rng,
		sim:    sim,
		sceneW: sceneW,
		sceneH: sceneH,
	}
	for _, sc := range scenes {
		s.scenes = append(s.scenes, &Scene{ID: sc.ID, BackgroundPath: sc.Background})
	}
	return s
}

// AddSprite creates a fish for the sprite in the active scene and
// returns its entity id. The fish is fully constructed before it is
// appended, so a draw call never observes a partial entity.
func (s *Store) AddSprite(sprite *types.Sprite) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene := s.scenes[s.active]
	fish := NewFish(sprite, s.rng, s.sceneW, s.sceneH)
	scene.Fish = append(scene.Fish, fish)

	slog.Info("aquarium: fish added",
		"scene", scene.ID, "fish", fish.ID, "population", len(scene.Fish))

	if s.sim.MaxFishPerScene > 0 {
		s.evictOldest(scene)
	}
	return fish.ID
}

// evictOldest pushes the longest-resident swimming fish out once the
// population exceeds the configured cap.
func (s *Store) evictOldest(scene *Scene) {
	alive := 0
	var oldest *Fish
	for _, f := range scene.Fish {
		if f.CurrentStage() == StageLeave {
			continue
		}
		alive++
		if oldest == nil {
			oldest = f
		}
	}
	if alive > s.sim.MaxFishPerScene && oldest != nil {
		oldest.StartLeave()
		slog.Debug("aquarium: scene over cap, oldest fish leaving",
			"scene", scene.ID, "fish", oldest.ID)
	}
}

// Tick advances swim behavior by dt seconds. Scope follows the
// configured policy: the active scene only, or every scene.
func (s *Store) Tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sim.TickAllScenes {
		for _, scene := range s.scenes {
			s.tickScene(scene, dt)
		}
		return
	}
	s.tickScene(s.scenes[s.active], dt)
}

func (s *Store) tickScene(scene *Scene, dt float64) {
	for _, f := range scene.Fish {
		f.Update(dt, s.rng, s.sceneW, s.sceneH)
	}

	// Departed fish exist only under a population cap; with the cap
	// unset the population is grow-only.
	if s.sim.MaxFishPerScene > 0 {
		kept := scene.Fish[:0]
		for _, f := range scene.Fish {
			if !f.Done() {
				kept = append(kept, f)
			}
		}
		scene.Fish = kept
	}
}

// SwitchScene moves the active index by +1/-1 with wraparound. Inactive
// scenes keep their entities untouched.
func (s *Store) SwitchScene(direction int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := len(s.scenes)
	s.active = ((s.active+direction)%k + k) % k
	slog.Info("aquarium: scene switched", "scene", s.scenes[s.active].ID, "index", s.active)
	return s.active
}

// ActiveIndex returns the index of the rendered scene.
func (s *Store) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ActiveScene returns the rendered scene.
func (s *Store) ActiveScene() *Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes[s.active]
}

// SceneCount returns the number of scenes.
func (s *Store) SceneCount() int {
	return len(s.scenes)
}

// Scenes returns the scene slice; render-thread use only.
func (s *Store) Scenes() []*Scene {
	return s.scenes
}

// SceneStatus is a read snapshot for the status server.
type SceneStatus struct {
	ID     string `json:"id"`
	Fish   int    `json:"fish"`
	Active bool   `json:"active"`
}

// Snapshot returns per-scene population counts.
func (s *Store) Snapshot() []SceneStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SceneStatus, 0, len(s.scenes))
	for i, scene := range s.scenes {
		out = append(out, SceneStatus{
			ID:     scene.ID,
			Fish:   len(scene.Fish),
			Active: i == s.active,
		})
	}
	return out
}

// FindSprite locates a sprite by id across all scenes.
func (s *Store) FindSprite(id string) *types.Sprite {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, scene := range s.scenes {
		for _, f := range scene.Fish {
			if f.Sprite != nil && f.Sprite.ID == id {
				return f.Sprite
			}
		}
	}
	return nil
}
