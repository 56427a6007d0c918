package aquarium

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishtank/config"
	"fishtank/types"
)

func testScenes() []config.SceneConfig {
	return []config.SceneConfig{
		{ID: "ocean", Background: "a.png"},
		{ID: "reef", Background: "b.png"},
		{ID: "deep", Background: "c.png"},
	}
}

func testSprite() *types.Sprite {
	return &types.Sprite{
		ID:    "sprite-1",
		Image: image.NewRGBA(image.Rect(0, 0, 4, 4)),
		Width: 4, Height: 4,
	}
}

func newTestStore(sim config.SimulationConfig) *Store {
	return NewStore(testScenes(), sim, 1280, 720, rand.New(rand.NewSource(42)))
}

func TestSwitchSceneIsCyclic(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})
	k := s.SceneCount()
	require.Equal(t, 3, k)

	start := s.ActiveIndex()
	for i := 0; i < k; i++ {
		s.SwitchScene(+1)
	}
	assert.Equal(t, start, s.ActiveIndex(), "next K times returns to start")

	s.SwitchScene(-1)
	assert.Equal(t, k-1, s.ActiveIndex(), "previous from 0 wraps to K-1")

	for i := 0; i < k; i++ {
		s.SwitchScene(-1)
	}
	assert.Equal(t, k-1, s.ActiveIndex(), "previous K times returns to start")
}

func TestAddSpriteTargetsActiveScene(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})

	id := s.AddSprite(testSprite())
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, len(s.ActiveScene().Fish))

	s.SwitchScene(+1)
	s.AddSprite(testSprite())
	s.AddSprite(testSprite())

	snap := s.Snapshot()
	assert.Equal(t, 1, snap[0].Fish)
	assert.Equal(t, 2, snap[1].Fish)
	assert.Equal(t, 0, snap[2].Fish)
	assert.True(t, snap[1].Active)
}

func TestSwitchingPreservesInactiveSceneEntities(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})
	s.AddSprite(testSprite())
	s.AddSprite(testSprite())

	s.SwitchScene(+1)
	s.SwitchScene(+1)
	s.SwitchScene(+1)

	assert.Equal(t, 2, len(s.ActiveScene().Fish))
}

func TestPopulationGrowOnlyByDefault(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})
	for i := 0; i < 25; i++ {
		s.AddSprite(testSprite())
	}
	for i := 0; i < 600; i++ {
		s.Tick(1.0 / 60)
	}
	assert.Equal(t, 25, len(s.ActiveScene().Fish), "no eviction without a cap")
}

func TestActiveOnlyTickingLeavesInactiveScenesFrozen(t *testing.T) {
	s := newTestStore(config.SimulationConfig{TickAllScenes: false})
	s.AddSprite(testSprite())
	frozen := s.ActiveScene().Fish[0]
	x0, y0 := frozen.X, frozen.Y

	s.SwitchScene(+1)
	for i := 0; i < 120; i++ {
		s.Tick(1.0 / 60)
	}

	assert.Equal(t, x0, frozen.X)
	assert.Equal(t, y0, frozen.Y)
}

func TestTickAllScenesPolicy(t *testing.T) {
	s := newTestStore(config.SimulationConfig{TickAllScenes: true})
	s.AddSprite(testSprite())
	moving := s.ActiveScene().Fish[0]
	x0, y0 := moving.X, moving.Y

	s.SwitchScene(+1)
	for i := 0; i < 120; i++ {
		s.Tick(1.0 / 60)
	}

	assert.True(t, moving.X != x0 || moving.Y != y0, "fish in inactive scene should still swim")
}

func TestFishStaysInsideBounds(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})
	s.AddSprite(testSprite())
	f := s.ActiveScene().Fish[0]

	// Run long enough to pass the enter stage and bounce repeatedly.
	for i := 0; i < 60*120; i++ {
		s.Tick(1.0 / 60)
	}

	require.Equal(t, StageSwim, f.CurrentStage())
	assert.GreaterOrEqual(t, f.X, 0.0)
	assert.LessOrEqual(t, f.X, 1280.0)
	assert.GreaterOrEqual(t, f.Y, 720.0*swimBandTop)
	assert.LessOrEqual(t, f.Y, 720.0*swimBandBottom)
}

func TestSceneCapEvictsOldest(t *testing.T) {
	s := newTestStore(config.SimulationConfig{MaxFishPerScene: 3})
	for i := 0; i < 4; i++ {
		s.AddSprite(testSprite())
	}

	leaving := 0
	for _, f := range s.ActiveScene().Fish {
		if f.CurrentStage() == StageLeave {
			leaving++
		}
	}
	assert.Equal(t, 1, leaving, "exactly the oldest fish starts leaving")

	// Leaving fish eventually exits and is removed.
	for i := 0; i < 60*60; i++ {
		s.Tick(1.0 / 60)
	}
	assert.Equal(t, 3, len(s.ActiveScene().Fish))
}

func TestFindSprite(t *testing.T) {
	s := newTestStore(config.SimulationConfig{})
	sp := testSprite()
	s.AddSprite(sp)

	assert.Equal(t, sp, s.FindSprite("sprite-1"))
	assert.Nil(t, s.FindSprite("missing"))
}
