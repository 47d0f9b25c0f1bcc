package rowan

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// defaultCompositeShaderSrc upscales the framebuffer with nearest-neighbor
// sampling. It declares the full post-process uniform contract so a camera
// can switch between the default and a custom shader without changing the
// uniforms the renderer supplies.
const defaultCompositeShaderSrc = `//kage:unit pixels
package main

var Time float
var TargetSize vec2
var WindowSize vec2
var PixelAspect float
var SizeMode int
var LetterboxColor vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return imageSrc0At(src)
}
`

// compositor owns the second shader pass that puts the offscreen
// framebuffer onto the visible surface. It caches the compiled shader and
// recompiles only when the camera's PostShader source changes.
type compositor struct {
	shader *ebiten.Shader
	src    string
}

// composite fills the window with the letterbox color and draws the
// framebuffer through the post-process shader, scaled and centered per the
// camera's size mode and pixel aspect ratio.
func (c *compositor) composite(screen, framebuffer *ebiten.Image, cam *CameraData, ctx *FrameContext) {
	c.ensureShader(cam.PostShader)

	screen.Fill(cam.Letterbox.toRGBA())

	scaleX, scaleY, offsetX, offsetY := compositeLayout(
		ctx.TargetWidth, ctx.TargetHeight,
		ctx.WindowWidth, ctx.WindowHeight,
		cam.pixelAspect(),
	)

	op := &ebiten.DrawRectShaderOptions{}
	op.Images[0] = framebuffer
	op.GeoM.Scale(scaleX, scaleY)
	op.GeoM.Translate(offsetX, offsetY)
	op.Uniforms = map[string]any{
		"Time":           float32(ctx.Elapsed.Seconds()),
		"TargetSize":     []float32{float32(ctx.TargetWidth), float32(ctx.TargetHeight)},
		"WindowSize":     []float32{float32(ctx.WindowWidth), float32(ctx.WindowHeight)},
		"PixelAspect":    float32(cam.pixelAspect()),
		"SizeMode":       int(cam.Mode),
		"LetterboxColor": cam.Letterbox.vec4(),
	}
	screen.DrawRectShader(ctx.TargetWidth, ctx.TargetHeight, c.shader, op)
}

// ensureShader compiles the composite shader on first use and whenever the
// source changes. Shader compilation failure is fatal: there is no safe
// fallback rendering path.
func (c *compositor) ensureShader(src string) {
	if c.shader != nil && c.src == src {
		return
	}
	source := src
	if source == "" {
		source = defaultCompositeShaderSrc
	}
	shader, err := ebiten.NewShader([]byte(source))
	if err != nil {
		panic(fmt.Sprintf("rowan: post-process shader failed to compile: %v", err))
	}
	if c.shader != nil {
		c.shader.Deallocate()
	}
	c.shader = shader
	c.src = src
	logger().Debug("composite shader compiled", "custom", src != "")
}
