// Package aquarium holds the simulation state for every fish across all
// scenes. It knows nothing about rendering; the render loop owns the
// frame clock and calls into it.
package aquarium

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"fishtank/types"
)

// Stage is the phase of a fish's life in the tank.
type Stage int

const (
	// StageEnter is the drift-in after spawning.
	StageEnter Stage = iota
	// StageSwim is the steady wander.
	StageSwim
	// StageLeave is the accelerated exit used only when a scene cap is
	// configured and the oldest fish is pushed out.
	StageLeave
)

// Swim tuning. Speeds are logical pixels per second.
const (
	enterSpeed     = 130.0
	swimSpeedMinX  = 18.0
	swimSpeedMaxX  = 42.0
	swimSpeedMinY  = 8.0
	swimSpeedMaxY  = 20.0
	leaveSpeedGain = 2.0

	// Heading perturbation cadence; each fish jitters around it so the
	// school does not turn in lockstep.
	headingPeriodMin = 2.5
	headingPeriodMax = 6.0

	// Vertical band of the tank fish keep to, as fractions of height.
	swimBandTop    = 0.18
	swimBandBottom = 0.85

	// How far past the edge a leaving fish must get before it is gone.
	leaveMargin = 200.0
)

// Fish is one swimming entity. Created on successful extraction,
// mutated every tick, and destroyed only with its scene (or pushed out
// by a configured population cap).
type Fish struct {
	ID        string
	Sprite    *types.Sprite
	SpawnedAt time.Time

	X, Y   float64
	VX, VY float64
	Scale  float64

	stage           Stage
	enterRemaining  float64
	waterResistance float64
	headingTimer    float64
	done            bool
}

// NewFish spawns a fish entering from a random edge of the scene.
func NewFish(sprite *types.Sprite, rng *rand.Rand, sceneW, sceneH float64) *Fish {
	f := &Fish{
		ID:              uuid.NewString(),
		Sprite:          sprite,
		SpawnedAt:       time.Now(),
		Scale:           0.9 + rng.Float64()*0.3,
		stage:           StageEnter,
		enterRemaining:  1.0 + rng.Float64()*2.0,
		waterResistance: 0.95 + rng.Float64()*0.03,
		headingTimer:    headingPeriodMin + rng.Float64()*(headingPeriodMax-headingPeriodMin),
	}

	top := sceneH * swimBandTop
	bottom := sceneH * swimBandBottom

	switch rng.Intn(4) {
	case 0: // from the left
		f.X = -leaveMargin / 2
		f.Y = top + rng.Float64()*(bottom-top)
		f.VX = enterSpeed
	case 1: // from the right
		f.X = sceneW + leaveMargin/2
		f.Y = top + rng.Float64()*(bottom-top)
		f.VX = -enterSpeed
	case 2: // from above
		f.X = rng.Float64() * sceneW
		f.Y = -leaveMargin / 2
		f.VY = enterSpeed
		if rng.Intn(2) == 0 {
			f.VX = -enterSpeed * 0.2
		} else {
			f.VX = enterSpeed * 0.2
		}
	default: // from below
		f.X = rng.Float64() * sceneW
		f.Y = sceneH + leaveMargin/2
		f.VY = -enterSpeed
		if rng.Intn(2) == 0 {
			f.VX = -enterSpeed * 0.2
		} else {
			f.VX = enterSpeed * 0.2
		}
	}

	return f
}

// Update advances the swim behavior by dt seconds within the scene
// bounds.
func (f *Fish) Update(dt float64, rng *rand.Rand, sceneW, sceneH float64) {
	f.X += f.VX * dt
	f.Y += f.VY * dt

	switch f.stage {
	case StageEnter:
		// Water drag bleeds off the entry speed until cruising starts.
		drag := math.Pow(f.waterResistance, dt*60)
		f.VX *= drag
		f.VY *= drag
		f.enterRemaining -= dt
		if f.enterRemaining <= 0 {
			f.startSwimming(rng)
		}

	case StageSwim:
		f.headingTimer -= dt
		if f.headingTimer <= 0 {
			f.perturbHeading(rng)
			f.headingTimer = headingPeriodMin + rng.Float64()*(headingPeriodMax-headingPeriodMin)
		}
		f.reflectAtEdges(sceneW, sceneH)

	case StageLeave:
		if f.X < -leaveMargin || f.X > sceneW+leaveMargin {
			f.done = true
		}
	}
}

func (f *Fish) startSwimming(rng *rand.Rand) {
	vx := swimSpeedMinX + rng.Float64()*(swimSpeedMaxX-swimSpeedMinX)
	vy := swimSpeedMinY + rng.Float64()*(swimSpeedMaxY-swimSpeedMinY)
	if f.VX < 0 {
		vx = -vx
	}
	if rng.Intn(2) == 0 {
		vy = -vy
	}
	f.VX, f.VY = vx, vy
	f.stage = StageSwim
}

// perturbHeading nudges the vertical component and occasionally turns
// the fish around, so long runs do not look mechanical.
func (f *Fish) perturbHeading(rng *rand.Rand) {
	f.VY = swimSpeedMinY + rng.Float64()*(swimSpeedMaxY-swimSpeedMinY)
	if rng.Intn(2) == 0 {
		f.VY = -f.VY
	}
	if rng.Intn(6) == 0 {
		f.VX = -f.VX
	}
}

// reflectAtEdges bounces the fish off the scene boundary and nudges it
// back inside so it cannot wedge against an edge.
func (f *Fish) reflectAtEdges(sceneW, sceneH float64) {
	top := sceneH * swimBandTop
	bottom := sceneH * swimBandBottom

	if f.X < 0 {
		f.X = 1
		f.VX = math.Abs(f.VX)
	} else if f.X > sceneW {
		f.X = sceneW - 1
		f.VX = -math.Abs(f.VX)
	}

	if f.Y < top {
		f.Y = top + 1
		f.VY = math.Abs(f.VY)
	} else if f.Y > bottom {
		f.Y = bottom - 1
		f.VY = -math.Abs(f.VY)
	}
}

// StartLeave sends the fish swimming off-screen.
func (f *Fish) StartLeave() {
	f.stage = StageLeave
	f.VY = 0
	if f.VX == 0 {
		f.VX = swimSpeedMaxX
	}
	f.VX *= leaveSpeedGain
}

// Stage returns the current behavior stage.
func (f *Fish) CurrentStage() Stage { return f.stage }

// Done reports whether a leaving fish has fully exited.
func (f *Fish) Done() bool { return f.done }

// FacingLeft reports which way the sprite should face.
func (f *Fish) FacingLeft() bool { return f.VX < 0 }
