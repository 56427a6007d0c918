// Package game drives the aquarium: the ebiten run loop owns the frame
// clock, consumes completed sprites, advances the simulation, and draws
// the active scene. All GPU resources are created here, on the render
// thread.
package game

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	_ "image/jpeg"
	_ "image/png"

	"fishtank/aquarium"
	"fishtank/config"
	"fishtank/types"
)

// maxFrameDt clamps the simulation step after a stall (window drag,
// debugger) so fish do not teleport.
const maxFrameDt = 0.1

// tankColors is the fallback backdrop per scene slot when a background
// image is missing on disk.
var tankColors = []color.RGBA{
	{R: 18, G: 62, B: 108, A: 255},
	{R: 12, G: 84, B: 96, A: 255},
	{R: 8, G: 34, B: 66, A: 255},
}

// Game implements ebiten.Game for the aquarium.
type Game struct {
	cfg   *config.Config
	store *aquarium.Store

	sprites        <-chan *types.Sprite
	perFrameBudget int

	backgrounds []*ebiten.Image          // index-aligned with store scenes, nil = flat color
	textures    map[string]*ebiten.Image // sprite id -> uploaded texture

	last     time.Time
	frame    uint64
	stopFlag atomic.Bool
}

// New prepares the loop. Backgrounds decode here (CPU side); a missing
// file downgrades that scene to a flat tank color rather than failing
// startup.
func New(cfg *config.Config, store *aquarium.Store, sprites <-chan *types.Sprite) *Game {
	g := &Game{
		cfg:            cfg,
		store:          store,
		sprites:        sprites,
		perFrameBudget: cfg.Ingest.PerFrameBudget,
		textures:       make(map[string]*ebiten.Image),
	}

	for _, scene := range store.Scenes() {
		img, err := loadImageFile(scene.BackgroundPath)
		if err != nil {
			slog.Warn("game: background unavailable, using flat color",
				"scene", scene.ID, "path", scene.BackgroundPath, "error", err)
			g.backgrounds = append(g.backgrounds, nil)
			continue
		}
		g.backgrounds = append(g.backgrounds, ebiten.NewImageFromImage(img))
	}

	return g
}

// Run blocks in the ebiten main loop until ESC, a stop request, or a
// graphics error.
func (g *Game) Run() error {
	ebiten.SetWindowTitle(g.cfg.Window.Title)
	ebiten.SetWindowSize(g.cfg.Window.Width, g.cfg.Window.Height)
	ebiten.SetTPS(60)
	g.last = time.Now()
	return ebiten.RunGame(g)
}

// RequestStop asks the loop to terminate cleanly on its next frame.
// Safe from any goroutine.
func (g *Game) RequestStop() {
	g.stopFlag.Store(true)
}

// Update runs once per frame on the render thread: bounded sprite
// admission, input, then the simulation tick.
func (g *Game) Update() error {
	if g.stopFlag.Load() {
		return ebiten.Termination
	}

	now := time.Now()
	dt := now.Sub(g.last).Seconds()
	g.last = now
	if dt > maxFrameDt {
		dt = maxFrameDt
	}

	g.admitSprites()

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		g.store.SwitchScene(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		g.store.SwitchScene(+1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		slog.Info("game: ESC pressed, shutting down")
		return ebiten.Termination
	}

	g.store.Tick(dt)

	g.frame++
	if g.frame%300 == 0 {
		g.pruneTextures()
	}
	return nil
}

// pruneTextures releases textures whose fish have left every scene.
func (g *Game) pruneTextures() {
	live := make(map[string]struct{}, len(g.textures))
	for _, scene := range g.store.Scenes() {
		for _, fish := range scene.Fish {
			live[fish.Sprite.ID] = struct{}{}
		}
	}
	for id, tex := range g.textures {
		if _, ok := live[id]; !ok {
			tex.Deallocate()
			delete(g.textures, id)
		}
	}
}

// admitSprites moves completed extractions into the scene store, at
// most perFrameBudget per frame so a burst of photos cannot spike the
// frame time. Texture upload and AddSprite both happen here, so no
// frame ever sees a fish without its texture.
func (g *Game) admitSprites() {
	for i := 0; i < g.perFrameBudget; i++ {
		select {
		case sprite, ok := <-g.sprites:
			if !ok {
				return
			}
			g.textures[sprite.ID] = ebiten.NewImageFromImage(sprite.Image)
			g.store.AddSprite(sprite)
		default:
			return
		}
	}
}

// Draw renders the active scene: backdrop, then every fish positioned
// and oriented by its simulation state.
func (g *Game) Draw(screen *ebiten.Image) {
	idx := g.store.ActiveIndex()
	if bg := g.backgrounds[idx]; bg != nil {
		opts := &ebiten.DrawImageOptions{}
		bw, bh := bg.Bounds().Dx(), bg.Bounds().Dy()
		opts.GeoM.Scale(
			float64(g.cfg.Window.Width)/float64(bw),
			float64(g.cfg.Window.Height)/float64(bh),
		)
		opts.Filter = ebiten.FilterLinear
		screen.DrawImage(bg, opts)
	} else {
		screen.Fill(tankColors[idx%len(tankColors)])
	}

	for _, fish := range g.store.ActiveScene().Fish {
		g.drawFish(screen, fish)
	}
}

func (g *Game) drawFish(screen *ebiten.Image, fish *aquarium.Fish) {
	tex, ok := g.textures[fish.Sprite.ID]
	if !ok {
		return
	}

	w := float64(tex.Bounds().Dx())
	h := float64(tex.Bounds().Dy())

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(-w/2, -h/2)

	// On-screen size is half the sprite's canonical size, jittered per fish.
	sx, sy := fish.Scale*0.5, fish.Scale*0.5
	if fish.FacingLeft() {
		sx = -sx
	}
	opts.GeoM.Scale(sx, sy)

	// Pitch slightly into vertical motion.
	pitch := math.Atan2(fish.VY, math.Abs(fish.VX)+1) * 0.25
	if fish.FacingLeft() {
		pitch = -pitch
	}
	opts.GeoM.Rotate(pitch)

	opts.GeoM.Translate(fish.X, fish.Y)
	opts.Filter = ebiten.FilterLinear
	screen.DrawImage(tex, opts)
}

// Layout fixes the logical resolution; ebiten scales to the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Window.Width, g.cfg.Window.Height
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
