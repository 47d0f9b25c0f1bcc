package rowan

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// SpriteData renders a texture at an entity's world position. Depth comes
// from WorldPosition.Z.
type SpriteData struct {
	// Image names the texture to draw. The zero handle draws the shared
	// white pixel, which together with Scale gives solid-color rectangles.
	Image TextureHandle
	// Scale multiplies the texture dimensions. Zero means 1.
	Scale Vec2
	// FlipX and FlipY mirror the sprite around its own center.
	FlipX, FlipY bool
	// Centered draws the sprite centered on the entity's world position
	// instead of anchored at its top-left corner.
	Centered bool
	// Transparent places the sprite in the transparent pass, after all
	// opaque renderables.
	Transparent bool
	// Tint multiplies the texture color. The zero value means white.
	Tint Color
}

// VisibilityData hides an entity from all hooks that honor it. The zero
// value is visible, so the component can be added up-front and toggled.
type VisibilityData struct {
	Hidden bool
}

// Sprite is the sprite component.
var Sprite = donburi.NewComponentType[SpriteData]()

// Visibility is the visibility component.
var Visibility = donburi.NewComponentType[VisibilityData]()

var spriteQuery = donburi.NewQuery(filter.Contains(Sprite, WorldPosition))

// spriteEntry is the per-frame record a Renderable's ID points back into.
type spriteEntry struct {
	sprite SpriteData
	pos    Vec3
}

// SpriteHook renders Sprite entities. It is the reference RenderHook
// implementation: prepare snapshots the drawable sprites and emits handles,
// render recovers them by ID and issues the draw calls.
type SpriteHook struct {
	surface *Surface
	entries []spriteEntry
	out     []Renderable
}

// NewSpriteHook creates a sprite hook. Register it with Renderer.AddHook.
func NewSpriteHook() *SpriteHook {
	return &SpriteHook{}
}

// Init stores the surface handle. The sprite hook allocates no GPU
// resources of its own; it draws atlas-less textures from the shared cache.
func (h *SpriteHook) Init(surface *Surface) error {
	h.surface = surface
	return nil
}

// Prepare emits one renderable per visible sprite whose texture is already
// uploaded. Sprites whose textures are still loading are skipped this frame
// and picked up once the cache has them.
func (h *SpriteHook) Prepare(ctx *FrameContext) []Renderable {
	h.entries = h.entries[:0]
	h.out = h.out[:0]
	spriteQuery.Each(ctx.World, func(entry *donburi.Entry) {
		if entry.HasComponent(Visibility) && Visibility.Get(entry).Hidden {
			return
		}
		spr := Sprite.Get(entry)
		if spr.Image != "" {
			if _, ok := ctx.Textures.Get(spr.Image); !ok {
				return
			}
		}
		pos := WorldPosition.Get(entry).Vec3
		h.entries = append(h.entries, spriteEntry{sprite: *spr, pos: pos})
		h.out = append(h.out, Renderable{
			ID:          uint32(len(h.entries) - 1),
			Depth:       float32(pos.Z),
			Transparent: spr.Transparent,
			Entity:      entry.Entity(),
		})
	})
	return h.out
}

// Render draws the batch onto the framebuffer, positioning each sprite
// relative to the camera: the camera's world position maps to the center of
// the target.
func (h *SpriteHook) Render(ctx *FrameContext, target *ebiten.Image, batch []Renderable) {
	halfW := float64(ctx.TargetWidth) / 2
	halfH := float64(ctx.TargetHeight) / 2

	var op ebiten.DrawImageOptions
	for _, r := range batch {
		e := &h.entries[r.ID]
		spr := &e.sprite

		img := h.surface.White
		if spr.Image != "" {
			tex, ok := ctx.Textures.Get(spr.Image)
			if !ok {
				continue
			}
			img = tex
		}

		b := img.Bounds()
		op.GeoM = spriteGeoM(spr, e.pos, ctx.CameraPos, halfW, halfH,
			float64(b.Dx()), float64(b.Dy()))

		tint := spr.Tint
		if tint == (Color{}) {
			tint = ColorWhite
		}
		a := float32(tint.A)
		op.ColorScale.Reset()
		op.ColorScale.Scale(float32(tint.R)*a, float32(tint.G)*a, float32(tint.B)*a, a)

		target.DrawImage(img, &op)
	}
}

// spriteGeoM builds the framebuffer placement for one sprite: mirror around
// the texture center for flips, scale, optional centering, then translate
// relative to the camera, whose world position maps to the center of the
// target. w and h are the source texture dimensions.
func spriteGeoM(spr *SpriteData, pos, camPos Vec3, halfW, halfH, w, h float64) ebiten.GeoM {
	sx, sy := spr.Scale.X, spr.Scale.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}

	var m ebiten.GeoM
	if spr.FlipX || spr.FlipY {
		fx, fy := 1.0, 1.0
		if spr.FlipX {
			fx = -1
		}
		if spr.FlipY {
			fy = -1
		}
		m.Translate(-w/2, -h/2)
		m.Scale(fx, fy)
		m.Translate(w/2, h/2)
	}
	m.Scale(sx, sy)
	if spr.Centered {
		m.Translate(-w*sx/2, -h*sy/2)
	}
	m.Translate(pos.X-camPos.X+halfW, pos.Y-camPos.Y+halfH)
	return m
}
