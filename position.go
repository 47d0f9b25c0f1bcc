package rowan

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// PositionData is an entity's local offset relative to its parent in the
// scene graph (or its world position outright, when it has no parent).
//
// Mutate positions through the Set and Translate helpers, which flag the
// position dirty. The dirty flag is cleared only by the Propagator; game
// code must never clear it.
type PositionData struct {
	Vec3
	Dirty bool
}

// WorldPositionData is an entity's computed global position: the sum of its
// own Position and every ancestor Position along the path to a graph root.
// It is written exclusively by the Propagator and is read-only to everything
// else.
type WorldPositionData struct {
	Vec3
}

// Position is the local-position component.
var Position = donburi.NewComponentType[PositionData]()

// WorldPosition is the computed global-position component.
var WorldPosition = donburi.NewComponentType[WorldPositionData]()

// positionQuery matches every entity that participates in position
// propagation.
var positionQuery = donburi.NewQuery(filter.Contains(Position, WorldPosition))

// Set replaces the local position and flags it dirty.
func (p *PositionData) Set(x, y, z float64) {
	p.X, p.Y, p.Z = x, y, z
	p.Dirty = true
}

// SetXY replaces the X and Y components and flags the position dirty.
func (p *PositionData) SetXY(x, y float64) {
	p.X, p.Y = x, y
	p.Dirty = true
}

// Translate offsets the local position and flags it dirty.
func (p *PositionData) Translate(dx, dy, dz float64) {
	p.X += dx
	p.Y += dy
	p.Z += dz
	p.Dirty = true
}
