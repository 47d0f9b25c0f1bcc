package rowan

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
)

// Depth bounds for renderables. Values outside this range still sort
// correctly but may be clipped by hooks that map depth onto a GPU depth
// buffer; MaxDepth doubles as the "always on top" sentinel (UI layers).
const (
	MinDepth float32 = -1024
	MaxDepth float32 = 1024
)

// Surface groups the shared GPU-side resources a renderer owns for its
// window. Hooks receive it once, at instantiation time, and may allocate
// their own resources (shaders, scratch images) then.
type Surface struct {
	// White is a shared 1x1 white texture for untextured quads.
	White *ebiten.Image
	// Textures is the shared texture cache all hooks draw from.
	Textures *TextureCache
}

// FrameContext bundles everything the renderer and its hooks need for one
// frame. It is constructed once per frame and passed down; hooks must not
// retain it past the frame.
//
// Post-process shaders (CameraData.PostShader) receive these uniforms:
//
//	var Time float          // seconds since the renderer was created
//	var TargetSize vec2     // framebuffer size in game pixels
//	var WindowSize vec2     // visible surface size in screen pixels
//	var PixelAspect float   // width/height of one game pixel on screen
//	var SizeMode int        // camera size mode (FixedHeight, FixedWidth, Letterboxed)
//	var LetterboxColor vec4 // camera letterbox color
type FrameContext struct {
	// World is the host ECS world. Hooks read component state from it
	// during prepare; the renderer guarantees position propagation has
	// completed before prepare runs.
	World donburi.World
	// Textures is the shared texture cache.
	Textures *TextureCache
	// Camera is the active camera's configuration.
	Camera *CameraData
	// CameraEntity is the active camera entity.
	CameraEntity donburi.Entity
	// CameraPos is the camera's world position. The camera looks at this
	// point; it maps to the center of the framebuffer.
	CameraPos Vec3
	// TargetWidth and TargetHeight are the framebuffer size in game pixels.
	TargetWidth, TargetHeight int
	// WindowWidth and WindowHeight are the visible surface size.
	WindowWidth, WindowHeight int
	// Elapsed is the time since the renderer was created.
	Elapsed time.Duration
}

// Renderable is a transient handle a hook emits during prepare: a promise
// that the hook can draw something at the given depth. It lives for exactly
// one frame.
type Renderable struct {
	// ID is meaningful only to the emitting hook, which uses it to recover
	// the actual renderable during render. Typically an index into a
	// per-frame slice rebuilt each prepare.
	ID uint32
	// Depth orders renderables back-to-front within their transparency
	// class. NaN sorts below everything.
	Depth float32
	// Transparent renderables draw after all non-transparent ones.
	Transparent bool
	// Entity optionally breaks depth ties deterministically. The zero
	// value means no tie-break token; tokenless renderables sort before
	// tokened ones at equal depth.
	Entity donburi.Entity
}

// RenderHook is a pluggable producer of renderable content. Hooks are
// independent: each owns its GPU resources and shader state, and the
// renderer knows nothing about their internals beyond this contract.
//
// Every frame the renderer calls Prepare exactly once per hook, merges and
// depth-sorts the handles from all hooks, and then calls Render zero or more
// times, once per contiguous run of the hook's handles in the global order.
// Render must not assume any relationship between Prepare and Render call
// counts.
type RenderHook interface {
	// Init is called once, when the renderer activates the hook. GPU
	// resource creation failures reported here are fatal.
	Init(surface *Surface) error

	// Prepare inspects world state and returns handles for everything the
	// hook wants to draw this frame, without issuing draw calls. It may
	// also perform bookkeeping such as uploading newly available textures.
	Prepare(ctx *FrameContext) []Renderable

	// Render draws the given handles onto target, the shared offscreen
	// framebuffer. The batch is always a contiguous, sorted run of the
	// hook's own previously prepared handles.
	Render(ctx *FrameContext, target *ebiten.Image, batch []Renderable)
}
