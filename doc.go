// Package rowan is a retro-pixel rendering core for [Ebitengine] games built
// on a [donburi] ECS world.
//
// Rowan renders everything into a single low-resolution offscreen framebuffer
// (the "game pixel" view) and composites that framebuffer to the window each
// frame through a post-process shader pass, so games keep a crisp, integer
// pixel look at any window size.
//
// # Scene graph and positions
//
// Entities carry a local [Position] and a computed [WorldPosition]. Parent
// and child relations between entities live in a [SceneGraph]:
//
//	graph := rowan.NewSceneGraph()
//	if err := graph.AddChild(ship, turret); err != nil {
//		// the edge would have created a cycle; the graph is unchanged
//	}
//
// A [Propagator] synchronizes world positions once per frame, before
// rendering. It only recomputes the subtrees whose positions actually
// changed, prunes graph nodes whose entities were despawned, and gives
// parentless entities a world position equal to their local one.
//
// # Render hooks
//
// Renderable content is produced by render hooks: independent units that
// implement the two-phase [RenderHook] contract. During prepare a hook
// reports lightweight [Renderable] handles (depth, transparency, an optional
// tie-break entity); the [Renderer] sorts all handles from all hooks into a
// single global draw order and then calls each hook's render with contiguous
// runs of its own handles, preserving that order across hooks.
//
//	renderer := rowan.NewRenderer(assets)
//	renderer.AddHook(rowan.NewSpriteHook())
//	renderer.AddHook(myCustomHook)
//
// Exactly one [Camera] entity must exist. A world with no camera skips the
// frame; more than one camera panics, since it indicates a setup bug.
//
// # Running
//
// The simplest way to get started is [Run], which wires the propagation and
// rendering order into an Ebitengine game loop for you:
//
//	rowan.Run(rowan.NewGame(world, graph, renderer), rowan.RunConfig{
//		Title: "My Game", Width: 640, Height: 480,
//	})
//
// [Ebitengine]: https://ebitengine.org
// [donburi]: https://github.com/yohamta/donburi
package rowan
