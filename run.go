package rowan

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
)

// Game wires a world, scene graph, and renderer into an ebiten.Game with
// the required ordering: per-tick logic, then position propagation, then
// rendering. For full control, implement ebiten.Game yourself and call
// Propagator.Propagate and Renderer.Draw in the same order.
type Game struct {
	// World is the host ECS world.
	World donburi.World
	// Renderer drives the frame pipeline.
	Renderer *Renderer
	// OnUpdate, when set, runs game logic once per tick before position
	// propagation. Returning an error stops the game loop.
	OnUpdate func() error

	propagator *Propagator
}

// NewGame creates a Game over the given world, scene graph, and renderer.
func NewGame(world donburi.World, graph *SceneGraph, renderer *Renderer) *Game {
	return &Game{
		World:      world,
		Renderer:   renderer,
		propagator: NewPropagator(graph),
	}
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.OnUpdate != nil {
		if err := g.OnUpdate(); err != nil {
			return err
		}
	}
	g.propagator.Propagate(g.World)
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.Renderer.Draw(g.World, screen)
}

// Layout implements ebiten.Game. The window size is passed through
// unchanged; the low-resolution look comes from the offscreen framebuffer,
// not from shrinking the surface.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// RunConfig configures the window Run creates.
type RunConfig struct {
	Title         string
	Width, Height int
	Resizable     bool
}

// Run creates a window and runs the game loop until the window closes or
// OnUpdate returns an error.
func Run(g *Game, cfg RunConfig) error {
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	return ebiten.RunGame(g)
}
