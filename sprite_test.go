package rowan

import (
	"image/color"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
)

func newSpriteWorld(t *testing.T) (donburi.World, *fakeSource, *SpriteHook, *FrameContext) {
	t.Helper()
	w := donburi.NewWorld()
	src := newFakeSource()
	cache := NewTextureCache(src)
	cache.Attach(w)

	hook := NewSpriteHook()
	if err := hook.Init(&Surface{White: WhitePixel, Textures: cache}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := &FrameContext{
		World:        w,
		Textures:     cache,
		TargetWidth:  64,
		TargetHeight: 64,
	}
	return w, src, hook, ctx
}

func addSprite(w donburi.World, handle TextureHandle, pos Vec3) *donburi.Entry {
	entry := w.Entry(w.Create(Sprite, Position, WorldPosition))
	Sprite.Get(entry).Image = handle
	WorldPosition.Get(entry).Vec3 = pos
	return entry
}

func TestSpritePrepareEmitsDepthFromZ(t *testing.T) {
	w, _, hook, ctx := newSpriteWorld(t)
	entry := addSprite(w, "", Vec3{X: 4, Y: 8, Z: 12})

	out := hook.Prepare(ctx)
	if len(out) != 1 {
		t.Fatalf("renderables = %d, want 1", len(out))
	}
	if out[0].Depth != 12 {
		t.Errorf("depth = %v, want 12", out[0].Depth)
	}
	if out[0].Entity != entry.Entity() {
		t.Errorf("tie-break entity = %v, want %v", out[0].Entity, entry.Entity())
	}
}

func TestSpritePrepareSkipsHidden(t *testing.T) {
	w, _, hook, ctx := newSpriteWorld(t)
	entry := w.Entry(w.Create(Sprite, Position, WorldPosition, Visibility))
	Visibility.Get(entry).Hidden = true

	if out := hook.Prepare(ctx); len(out) != 0 {
		t.Errorf("renderables = %d, want 0 for hidden sprite", len(out))
	}

	Visibility.Get(entry).Hidden = false
	if out := hook.Prepare(ctx); len(out) != 1 {
		t.Errorf("renderables = %d, want 1 once visible again", len(out))
	}
}

func TestSpritePrepareSkipsUnloadedTextures(t *testing.T) {
	w, src, hook, ctx := newSpriteWorld(t)
	addSprite(w, "hero", Vec3{})

	// Texture not uploaded yet: the sprite waits.
	if out := hook.Prepare(ctx); len(out) != 0 {
		t.Errorf("renderables = %d, want 0 before upload", len(out))
	}

	src.images["hero"] = solidImage(4, 4, color.RGBA{R: 255, A: 255})
	TextureEventType.Publish(w, TextureEvent{Kind: TextureCreated, Handle: "hero"})
	ctx.Textures.update(w)

	if out := hook.Prepare(ctx); len(out) != 1 {
		t.Errorf("renderables = %d, want 1 after upload", len(out))
	}
}

func TestSpritePrepareTransparentFlag(t *testing.T) {
	w, _, hook, ctx := newSpriteWorld(t)
	entry := addSprite(w, "", Vec3{})
	Sprite.Get(entry).Transparent = true

	out := hook.Prepare(ctx)
	if len(out) != 1 || !out[0].Transparent {
		t.Errorf("renderables = %+v, want one transparent entry", out)
	}
}

func TestSpriteRenderSmoke(t *testing.T) {
	w, _, hook, ctx := newSpriteWorld(t)
	entry := addSprite(w, "", Vec3{X: 10, Y: 10})
	spr := Sprite.Get(entry)
	spr.Scale = Vec2{X: 8, Y: 8}
	spr.Centered = true
	spr.FlipX = true
	spr.Tint = Color{R: 1, G: 0.5, B: 0.25, A: 1}

	out := hook.Prepare(ctx)
	target := ebiten.NewImage(64, 64)
	hook.Render(ctx, target, out) // must not panic and must honor IDs
}

func assertApply(t *testing.T, m ebiten.GeoM, x, y, wantX, wantY float64) {
	t.Helper()
	gx, gy := m.Apply(x, y)
	if gx != wantX || gy != wantY {
		t.Errorf("(%v, %v) maps to (%v, %v), want (%v, %v)", x, y, gx, gy, wantX, wantY)
	}
}

func TestSpriteGeoMPlacesAtWorldPosition(t *testing.T) {
	// An 8x8 sprite at world (10, 4) with the camera at the origin of a
	// 64x64 target: the top-left corner lands at (10+32, 4+32).
	m := spriteGeoM(&SpriteData{}, Vec3{X: 10, Y: 4}, Vec3{}, 32, 32, 8, 8)
	assertApply(t, m, 0, 0, 42, 36)
	assertApply(t, m, 8, 8, 50, 44)
}

func TestSpriteGeoMCameraRelative(t *testing.T) {
	// Moving the camera shifts sprites the opposite way.
	m := spriteGeoM(&SpriteData{}, Vec3{X: 10}, Vec3{X: 6, Y: -2}, 32, 32, 1, 1)
	assertApply(t, m, 0, 0, 36, 34)
}

func TestSpriteGeoMCenteredScaled(t *testing.T) {
	// A 4x4 image at 2x, centered: its corners straddle the position.
	spr := &SpriteData{Scale: Vec2{X: 2, Y: 2}, Centered: true}
	m := spriteGeoM(spr, Vec3{X: 10, Y: 10}, Vec3{}, 32, 32, 4, 4)
	assertApply(t, m, 0, 0, 38, 38)
	assertApply(t, m, 4, 4, 46, 46)
}

func TestSpriteGeoMFlipX(t *testing.T) {
	// FlipX mirrors around the sprite's own center: the left edge maps to
	// where the right edge was, and placement is unaffected.
	m := spriteGeoM(&SpriteData{FlipX: true}, Vec3{}, Vec3{}, 32, 32, 8, 8)
	assertApply(t, m, 0, 0, 40, 32)
	assertApply(t, m, 8, 0, 32, 32)
}
