package rowan

import (
	"fmt"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
)

const defaultQueueCap = 1024

// queued tags a hook's renderable with its originating hook index and a
// sequence number that keeps the global sort stable.
type queued struct {
	Renderable
	hook int
	seq  int
}

// Renderer is the per-window frame orchestrator. It owns the offscreen
// low-resolution framebuffer, the shared texture cache, and the registered
// render hooks, and drives the prepare → sort → batch → composite pipeline
// every frame.
//
// A Renderer is bound to the single Ebitengine window and must only be used
// from the game's draw callback; the underlying graphics context is not
// thread-safe.
type Renderer struct {
	surface  *Surface
	hooks    []RenderHook
	pending  []RenderHook
	attached bool

	framebuffer *ebiten.Image
	fbW, fbH    int

	queue    []queued
	sortBuf  []queued
	batchBuf []Renderable

	compositor compositor
	start      time.Time
}

// NewRenderer creates a renderer whose texture cache is fed from the given
// image source. Hooks can be added before or after the first frame.
func NewRenderer(source ImageSource) *Renderer {
	r := &Renderer{
		queue:   make([]queued, 0, defaultQueueCap),
		sortBuf: make([]queued, 0, defaultQueueCap),
		start:   time.Now(),
	}
	r.surface = &Surface{
		White:    WhitePixel,
		Textures: NewTextureCache(source),
	}
	return r
}

// Textures returns the renderer's shared texture cache.
func (r *Renderer) Textures() *TextureCache {
	return r.surface.Textures
}

// AddHook registers a render hook. The hook is instantiated (Init) at the
// start of the next frame, so hooks can be added at any point during the
// application's lifetime, not just at startup.
func (r *Renderer) AddHook(hook RenderHook) {
	r.pending = append(r.pending, hook)
}

// Draw renders one frame of the world onto the visible surface. It runs the
// full per-frame pipeline:
//
//  1. instantiate newly registered hooks
//  2. process texture events and retry pending uploads
//  3. locate the single camera (zero cameras skips the frame; more than
//     one panics)
//  4. recreate the offscreen framebuffer if the target resolution changed
//  5. clear the framebuffer to the camera background
//  6. prepare every hook, in registration order
//  7. globally sort all renderables (opaque first, then by depth, then by
//     tie-break entity)
//  8. dispatch contiguous same-hook runs to each hook's render
//  9. composite the framebuffer to the screen through the post-process
//     shader pass
//
// Position propagation must have completed before Draw is called, because
// hooks read WorldPosition during prepare.
func (r *Renderer) Draw(w donburi.World, screen *ebiten.Image) {
	r.drainPending(w)
	r.surface.Textures.update(w)

	camEntry, ok := r.activeCamera(w)
	if !ok {
		// A world without a camera is a no-op frame, not an error.
		return
	}
	cam := Camera.Get(camEntry)

	bounds := screen.Bounds()
	windowW, windowH := bounds.Dx(), bounds.Dy()
	targetW, targetH := cam.targetSize(windowW, windowH)
	r.ensureFramebuffer(targetW, targetH)
	r.framebuffer.Fill(cam.Background.toRGBA())

	ctx := &FrameContext{
		World:        w,
		Textures:     r.surface.Textures,
		Camera:       cam,
		CameraEntity: camEntry.Entity(),
		CameraPos:    cameraWorldPos(camEntry),
		TargetWidth:  targetW,
		TargetHeight: targetH,
		WindowWidth:  windowW,
		WindowHeight: windowH,
		Elapsed:      time.Since(r.start),
	}

	r.collect(ctx)
	r.sortQueue()
	r.dispatch(ctx)
	r.compositor.composite(screen, r.framebuffer, cam, ctx)
}

// drainPending instantiates hooks registered since the last frame. Init
// failures are GPU resource failures and therefore fatal: there is no
// degraded rendering mode.
func (r *Renderer) drainPending(w donburi.World) {
	if !r.attached {
		r.surface.Textures.Attach(w)
		r.attached = true
	}
	if len(r.pending) == 0 {
		return
	}
	for _, hook := range r.pending {
		if err := hook.Init(r.surface); err != nil {
			panic(fmt.Sprintf("rowan: render hook init failed: %v", err))
		}
		r.hooks = append(r.hooks, hook)
		logger().Info("render hook instantiated", "hooks", len(r.hooks))
	}
	r.pending = r.pending[:0]
}

// activeCamera returns the world's camera entry. Zero cameras is a normal
// skipped frame; more than one is a fatal configuration error, reported
// loudly rather than silently misrendering.
func (r *Renderer) activeCamera(w donburi.World) (*donburi.Entry, bool) {
	n := cameraQuery.Count(w)
	switch {
	case n == 0:
		return nil, false
	case n > 1:
		panic(fmt.Sprintf("rowan: expected exactly one camera entity, found %d", n))
	}
	entry, _ := cameraQuery.First(w)
	return entry, true
}

func cameraWorldPos(entry *donburi.Entry) Vec3 {
	if entry.HasComponent(WorldPosition) {
		return WorldPosition.Get(entry).Vec3
	}
	return Vec3{}
}

// ensureFramebuffer recreates the offscreen framebuffer when the camera's
// computed target resolution changes (window resize, camera reconfig).
func (r *Renderer) ensureFramebuffer(w, h int) {
	if r.framebuffer != nil && r.fbW == w && r.fbH == h {
		return
	}
	if r.framebuffer != nil {
		r.framebuffer.Deallocate()
	}
	r.framebuffer = ebiten.NewImage(w, h)
	r.fbW, r.fbH = w, h
	logger().Debug("framebuffer recreated", "width", w, "height", h)
}

// collect runs every hook's prepare in registration order and tags the
// returned handles with their hook index.
func (r *Renderer) collect(ctx *FrameContext) {
	r.queue = r.queue[:0]
	for i, hook := range r.hooks {
		for _, renderable := range hook.Prepare(ctx) {
			r.queue = append(r.queue, queued{
				Renderable: renderable,
				hook:       i,
				seq:        len(r.queue),
			})
		}
	}
}

// dispatch walks the sorted queue, accumulating contiguous same-hook runs
// and flushing each run with a single render call. This keeps the number of
// hook invocations minimal while preserving global draw order across hooks.
func (r *Renderer) dispatch(ctx *FrameContext) {
	n := len(r.queue)
	if n == 0 {
		return
	}
	start := 0
	for i := 1; i <= n; i++ {
		if i < n && r.queue[i].hook == r.queue[start].hook {
			continue
		}
		r.batchBuf = r.batchBuf[:0]
		for _, q := range r.queue[start:i] {
			r.batchBuf = append(r.batchBuf, q.Renderable)
		}
		r.hooks[r.queue[start].hook].Render(ctx, r.framebuffer, r.batchBuf)
		start = i
	}
}

// --- Global sort ---

// queuedLessOrEqual defines the global draw order: non-transparent before
// transparent, then ascending depth (NaN below everything), then tie-break
// entity (no token before token, tokens by id), then submission order.
// Using <= on seq keeps the merge sort stable.
func queuedLessOrEqual(a, b *queued) bool {
	if a.Transparent != b.Transparent {
		return !a.Transparent
	}
	if c := compareDepth(a.Depth, b.Depth); c != 0 {
		return c < 0
	}
	ae, be := uint64(a.Entity), uint64(b.Entity)
	if ae != be {
		return ae < be
	}
	return a.seq <= b.seq
}

// compareDepth orders depths with NaN sorting as "less than everything"
// rather than poisoning the sort.
func compareDepth(a, b float32) int {
	aNaN := math.IsNaN(float64(a))
	bNaN := math.IsNaN(float64(b))
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sortQueue sorts r.queue in-place using r.sortBuf as scratch space.
// Bottom-up merge sort: zero allocations after the sort buffer reaches its
// high-water mark.
func (r *Renderer) sortQueue() {
	n := len(r.queue)
	if n <= 1 {
		return
	}
	if cap(r.sortBuf) < n {
		r.sortBuf = make([]queued, n)
	}
	r.sortBuf = r.sortBuf[:n]

	a := r.queue
	b := r.sortBuf
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(r.queue, r.sortBuf)
	}
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []queued, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if queuedLessOrEqual(&src[i], &src[j]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
