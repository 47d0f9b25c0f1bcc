package rowan

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// TextureHandle identifies an image asset. Handles are opaque to rowan;
// asset layers typically use file paths or virtual keys.
type TextureHandle string

// TextureEventKind distinguishes asset lifecycle events.
type TextureEventKind uint8

const (
	TextureCreated  TextureEventKind = iota // asset was created (pixel data may not be ready yet)
	TextureModified                         // asset's pixel data changed
	TextureRemoved                          // asset was dropped
)

// TextureEvent notifies the texture cache about an image asset's lifecycle.
// Asset layers publish these to the world; the renderer processes them at
// the start of every frame.
type TextureEvent struct {
	Kind   TextureEventKind
	Handle TextureHandle
}

// TextureEventType is the donburi event type for texture asset events.
var TextureEventType = events.NewEventType[TextureEvent]()

// ImageSource answers whether an asset's pixel data is currently available.
// Asset loading is asynchronous and external to rowan: the cache polls the
// source on later frames for assets that fired Created before their data
// finished loading.
type ImageSource interface {
	Load(handle TextureHandle) (image.Image, bool)
}

// TextureCache maps image asset handles to uploaded GPU textures. Entries
// are created, replaced, and dropped reactively from TextureEvents; assets
// whose data is not ready yet sit on a pending list and are retried each
// frame. The cache is shared mutably across all render hooks within a frame;
// the renderer serializes access.
type TextureCache struct {
	source   ImageSource
	textures map[TextureHandle]*ebiten.Image
	pending  []TextureHandle
}

// NewTextureCache creates a cache backed by the given image source.
func NewTextureCache(source ImageSource) *TextureCache {
	return &TextureCache{
		source:   source,
		textures: make(map[TextureHandle]*ebiten.Image),
	}
}

// Attach subscribes the cache to texture events published on the world.
func (c *TextureCache) Attach(w donburi.World) {
	TextureEventType.Subscribe(w, c.handleEvent)
}

// Get returns the uploaded texture for a handle, if present.
func (c *TextureCache) Get(handle TextureHandle) (*ebiten.Image, bool) {
	img, ok := c.textures[handle]
	return img, ok
}

// Len returns the number of uploaded textures.
func (c *TextureCache) Len() int {
	return len(c.textures)
}

// update drains queued texture events and retries pending uploads. Called
// by the renderer once per frame, before any hook's prepare.
func (c *TextureCache) update(w donburi.World) {
	TextureEventType.ProcessEvents(w)
	c.flushPending()
}

func (c *TextureCache) handleEvent(w donburi.World, ev TextureEvent) {
	switch ev.Kind {
	case TextureCreated, TextureModified:
		if !c.upload(ev.Handle) {
			logger().Warn("texture data not available yet, queued", "handle", ev.Handle)
			c.enqueue(ev.Handle)
		}
	case TextureRemoved:
		c.evict(ev.Handle)
	}
}

// flushPending retries every queued handle, keeping the ones that still
// have no data.
func (c *TextureCache) flushPending() {
	if len(c.pending) == 0 {
		return
	}
	remaining := c.pending[:0]
	for _, handle := range c.pending {
		if !c.upload(handle) {
			remaining = append(remaining, handle)
		}
	}
	c.pending = remaining
}

// upload fetches pixel data from the source and (re)creates the GPU
// texture. Returns false when the data is not available yet.
func (c *TextureCache) upload(handle TextureHandle) bool {
	src, ok := c.source.Load(handle)
	if !ok {
		return false
	}
	if old, ok := c.textures[handle]; ok {
		old.Deallocate()
	}
	c.textures[handle] = ebiten.NewImageFromImage(src)
	logger().Debug("texture uploaded", "handle", handle)
	return true
}

func (c *TextureCache) evict(handle TextureHandle) {
	if img, ok := c.textures[handle]; ok {
		img.Deallocate()
		delete(c.textures, handle)
	}
	// Drop any pending retry as well.
	for i, h := range c.pending {
		if h == handle {
			copy(c.pending[i:], c.pending[i+1:])
			c.pending = c.pending[:len(c.pending)-1]
			break
		}
	}
}

func (c *TextureCache) enqueue(handle TextureHandle) {
	for _, h := range c.pending {
		if h == handle {
			return
		}
	}
	c.pending = append(c.pending, handle)
}

// HandleCache maps asset paths to texture handles. It replaces the
// process-wide path cache some asset layers keep with an explicitly owned
// object that is passed by reference.
type HandleCache struct {
	byPath map[string]TextureHandle
}

// NewHandleCache creates an empty handle cache.
func NewHandleCache() *HandleCache {
	return &HandleCache{byPath: make(map[string]TextureHandle)}
}

// Lookup returns the handle registered for a path, if any.
func (c *HandleCache) Lookup(path string) (TextureHandle, bool) {
	h, ok := c.byPath[path]
	return h, ok
}

// Insert registers a handle for a path, replacing any previous entry.
func (c *HandleCache) Insert(path string, handle TextureHandle) {
	c.byPath[path] = handle
}

// Evict drops the entry for a path. No-op if absent.
func (c *HandleCache) Evict(path string) {
	delete(c.byPath, path)
}
