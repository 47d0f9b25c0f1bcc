package rowan

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// SizeMode selects how the camera's game-pixel target resolution relates to
// the window.
type SizeMode uint8

const (
	// FixedHeight keeps Height game pixels vertically; the target width
	// follows the window's aspect ratio.
	FixedHeight SizeMode = iota
	// FixedWidth keeps Width game pixels horizontally; the target height
	// follows the window's aspect ratio.
	FixedWidth
	// Letterboxed keeps both Width and Height fixed; the window is padded
	// with letterbox bars as needed.
	Letterboxed
)

// CameraData configures the retro view. Exactly one entity with a Camera
// component must exist for rendering to happen: a world with zero cameras
// skips the frame, and more than one camera is a fatal configuration error.
type CameraData struct {
	// Mode selects which target axis (or both) is fixed.
	Mode SizeMode
	// Width and Height are the fixed target dimensions in game pixels.
	// Only the axis the Mode fixes is read (both for Letterboxed).
	Width, Height int
	// Background clears the offscreen framebuffer each frame.
	Background Color
	// Letterbox fills the window outside the composited framebuffer.
	Letterbox Color
	// PixelAspect is the width/height ratio of a single game pixel on
	// screen. Zero or negative is treated as 1 (square pixels).
	PixelAspect float64
	// PostShader is optional Kage source for the composite pass. Empty
	// selects the default nearest-neighbor upscale shader. See
	// [FrameContext] for the uniform contract. A shader that fails to
	// compile is a fatal error.
	PostShader string
}

// Camera is the camera component.
var Camera = donburi.NewComponentType[CameraData]()

var cameraQuery = donburi.NewQuery(filter.Contains(Camera))

func (c *CameraData) pixelAspect() float64 {
	if c.PixelAspect <= 0 {
		return 1
	}
	return c.PixelAspect
}

// targetSize computes the offscreen framebuffer dimensions for a window of
// the given size.
func (c *CameraData) targetSize(windowW, windowH int) (int, int) {
	aspect := c.pixelAspect()
	windowAspect := float64(windowW) / float64(windowH)
	var w, h int
	switch c.Mode {
	case FixedHeight:
		h = c.Height
		w = int(math.Round(float64(h) * windowAspect / aspect))
	case FixedWidth:
		w = c.Width
		h = int(math.Round(float64(w) / windowAspect * aspect))
	case Letterboxed:
		w, h = c.Width, c.Height
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// compositeLayout computes the scale and centered offset that place the
// target framebuffer in the window, honoring the pixel aspect ratio. The
// axes the size mode fixes fill the window exactly; any remainder becomes
// letterbox bars.
func compositeLayout(targetW, targetH, windowW, windowH int, pixelAspect float64) (scaleX, scaleY, offsetX, offsetY float64) {
	displayW := float64(targetW) * pixelAspect
	displayH := float64(targetH)
	scale := math.Min(float64(windowW)/displayW, float64(windowH)/displayH)
	scaleX = scale * pixelAspect
	scaleY = scale
	offsetX = (float64(windowW) - displayW*scale) / 2
	offsetY = (float64(windowH) - displayH*scale) / 2
	return
}

// CameraScroll animates a camera entity's position toward a destination
// using a tween. Step it once per update tick and write the result to the
// camera's Position:
//
//	scroll := rowan.NewCameraScroll(pos.X, pos.Y, 320, 64, 1.5, ease.OutQuad)
//	// each tick:
//	if scroll.Apply(cameraEntry, dt) {
//		scroll = nil
//	}
type CameraScroll struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// NewCameraScroll creates a scroll animation from (fromX, fromY) to
// (toX, toY) over duration seconds.
func NewCameraScroll(fromX, fromY, toX, toY float64, duration float32, easeFn ease.TweenFunc) *CameraScroll {
	return &CameraScroll{
		tweenX: gween.New(float32(fromX), float32(toX), duration, easeFn),
		tweenY: gween.New(float32(fromY), float32(toY), duration, easeFn),
	}
}

// Step advances the animation by dt seconds and returns the current
// position and whether the scroll has finished.
func (s *CameraScroll) Step(dt float32) (x, y float64, done bool) {
	vx, dx := s.tweenX.Update(dt)
	vy, dy := s.tweenY.Update(dt)
	s.doneX = s.doneX || dx
	s.doneY = s.doneY || dy
	return float64(vx), float64(vy), s.doneX && s.doneY
}

// Apply steps the animation and writes the result to the entry's Position,
// flagging it dirty for the next propagation pass. Returns true when the
// scroll has finished.
func (s *CameraScroll) Apply(entry *donburi.Entry, dt float32) bool {
	x, y, done := s.Step(dt)
	Position.Get(entry).SetXY(x, y)
	return done
}
