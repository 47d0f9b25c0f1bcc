package rowan

import (
	"fmt"

	"github.com/yohamta/donburi"
)

// PropagateStats reports what a propagation pass actually did. Useful for
// asserting that the dirty short-circuit keeps work proportional to the
// changed subtrees.
type PropagateStats struct {
	// Recomputed counts nodes (graph or orphan) whose WorldPosition was
	// written this pass.
	Recomputed int
	// Pruned counts graph nodes removed because their entity no longer
	// exists in the world.
	Pruned int
}

// Propagator synchronizes WorldPosition with Position across the whole
// entity population, respecting the SceneGraph hierarchy. It holds exclusive
// mutable access to the graph and to position components for the duration of
// a pass; run it before any render hook's prepare phase so hooks observe
// settled world positions.
type Propagator struct {
	graph *SceneGraph
}

// NewPropagator creates a propagator over the given scene graph.
func NewPropagator(graph *SceneGraph) *Propagator {
	return &Propagator{graph: graph}
}

// Propagate recomputes world positions exactly once. Graph roots are walked
// top-down; a subtree is recomputed only when a position in it (or above it)
// is dirty. Entities that were despawned externally are pruned from the
// graph mid-walk; their children revert to parentless roots and are picked
// up again on the next pass. Entities never referenced by the graph get
// WorldPosition = Position directly when dirty.
//
// An entity that is registered in the graph but lacks the Position or
// WorldPosition component is a programming error and panics.
func (p *Propagator) Propagate(w donburi.World) PropagateStats {
	var stats PropagateStats
	g := p.graph

	for _, root := range g.collectRoots() {
		p.walk(w, root, Vec3{}, false, &stats)
	}

	// Entities the graph has never seen are their own world position.
	positionQuery.Each(w, func(entry *donburi.Entry) {
		if g.Contains(entry.Entity()) {
			return
		}
		pos := Position.Get(entry)
		if !pos.Dirty {
			return
		}
		WorldPosition.Get(entry).Vec3 = pos.Vec3
		pos.Dirty = false
		stats.Recomputed++
	})

	return stats
}

// walk recursively propagates world positions below idx. treeDirty is true
// when any ancestor's position changed this pass, which forces recomputation
// of the whole subtree regardless of local dirty flags.
func (p *Propagator) walk(w donburi.World, idx nodeIndex, parentWorld Vec3, treeDirty bool, stats *PropagateStats) {
	g := p.graph
	if !g.liveAt(idx) {
		// Pruned earlier this pass through another parent.
		return
	}

	e := g.nodes[idx].entity
	if !w.Valid(e) {
		// Expected outcome of external despawn, not an error.
		g.removeNode(idx)
		stats.Pruned++
		return
	}

	entry := w.Entry(e)
	if !entry.HasComponent(Position) || !entry.HasComponent(WorldPosition) {
		panic(fmt.Sprintf("rowan: entity %d is in the scene graph without Position/WorldPosition components", e))
	}

	pos := Position.Get(entry)
	dirty := treeDirty || pos.Dirty
	world := WorldPosition.Get(entry)
	if dirty {
		world.Vec3 = parentWorld.Add(pos.Vec3)
		pos.Dirty = false
		stats.Recomputed++
	}
	base := world.Vec3

	// Snapshot the child list into the shared scratch arena before
	// recursing: pruning a descendant may edit this node's edge list.
	lo := len(g.children)
	g.children = append(g.children, g.nodes[idx].out...)
	hi := len(g.children)
	for i := lo; i < hi; i++ {
		p.walk(w, g.children[i], base, dirty, stats)
	}
	g.children = g.children[:lo]
}
