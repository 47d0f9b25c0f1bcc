package rowan

import (
	"errors"

	"github.com/yohamta/donburi"
)

// ErrWouldCycle is returned by SceneGraph.AddChild when inserting the edge
// would make the child an ancestor of its own parent. The graph is left
// unchanged. Cycle requests are a normal outcome of application logic, so
// they are reported as a value rather than a panic; the caller decides
// whether to retry with different parentage.
var ErrWouldCycle = errors.New("rowan: adding child would create a cycle")

// nodeIndex addresses a slot in the SceneGraph arena. Indices are stable:
// removing a node tombstones its slot without moving other nodes.
type nodeIndex int32

type graphNode struct {
	entity donburi.Entity
	in     []nodeIndex // parents
	out    []nodeIndex // children
	alive  bool
}

// SceneGraph is a directed acyclic graph over entity identifiers whose edges
// mean "is parent of". Nodes are created lazily the first time an entity is
// referenced by AddChild or RemoveChild; the Propagator prunes nodes whose
// entities no longer exist in the world.
//
// A SceneGraph is not safe for concurrent use.
type SceneGraph struct {
	nodes []graphNode
	free  []nodeIndex
	index map[donburi.Entity]nodeIndex

	// Cycle-check scratch, reused across calls. seen holds epoch stamps so
	// the visited set never needs clearing; bumping epoch invalidates it.
	seen  []uint32
	stack []nodeIndex
	epoch uint32

	// Traversal scratch owned by the propagator pass.
	roots    []nodeIndex
	children []nodeIndex
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		index: make(map[donburi.Entity]nodeIndex),
	}
}

// AddChild inserts the directed edge parent→child, creating nodes for
// entities the graph has not seen before. Inserting an edge that already
// exists is a no-op. If child already has a path to parent (including
// child == parent), AddChild returns ErrWouldCycle and performs no mutation.
func (g *SceneGraph) AddChild(parent, child donburi.Entity) error {
	if parent == child {
		// Self-parenting, rejected before any node is allocated so a
		// rejected call leaves the graph untouched.
		return ErrWouldCycle
	}
	p := g.ensure(parent)
	c := g.ensure(child)
	if containsIndex(g.nodes[p].out, c) {
		return nil
	}
	if g.reaches(c, p) {
		return ErrWouldCycle
	}
	g.nodes[p].out = append(g.nodes[p].out, c)
	g.nodes[c].in = append(g.nodes[c].in, p)
	return nil
}

// RemoveChild removes the edge parent→child if present. Removing an edge
// that does not exist is silently accepted. Like AddChild, referencing a
// not-yet-seen entity creates its node.
func (g *SceneGraph) RemoveChild(parent, child donburi.Entity) {
	p := g.ensure(parent)
	c := g.ensure(child)
	g.nodes[p].out = removeIndex(g.nodes[p].out, c)
	g.nodes[c].in = removeIndex(g.nodes[c].in, p)
}

// Contains reports whether the graph has a node for the entity.
func (g *SceneGraph) Contains(e donburi.Entity) bool {
	_, ok := g.index[e]
	return ok
}

// Len returns the number of live nodes.
func (g *SceneGraph) Len() int {
	return len(g.index)
}

// Children returns the entities that are direct children of e, in insertion
// order. Returns nil if e has no node or no children.
func (g *SceneGraph) Children(e donburi.Entity) []donburi.Entity {
	idx, ok := g.index[e]
	if !ok || len(g.nodes[idx].out) == 0 {
		return nil
	}
	out := make([]donburi.Entity, 0, len(g.nodes[idx].out))
	for _, c := range g.nodes[idx].out {
		out = append(out, g.nodes[c].entity)
	}
	return out
}

// Parents returns the entities that are direct parents of e, in insertion
// order. Returns nil if e has no node or no parents.
func (g *SceneGraph) Parents(e donburi.Entity) []donburi.Entity {
	idx, ok := g.index[e]
	if !ok || len(g.nodes[idx].in) == 0 {
		return nil
	}
	in := make([]donburi.Entity, 0, len(g.nodes[idx].in))
	for _, p := range g.nodes[idx].in {
		in = append(in, g.nodes[p].entity)
	}
	return in
}

// ensure returns the node index for e, allocating a slot if needed.
func (g *SceneGraph) ensure(e donburi.Entity) nodeIndex {
	if idx, ok := g.index[e]; ok {
		return idx
	}
	var idx nodeIndex
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
		g.nodes[idx] = graphNode{entity: e, alive: true}
	} else {
		idx = nodeIndex(len(g.nodes))
		g.nodes = append(g.nodes, graphNode{entity: e, alive: true})
		g.seen = append(g.seen, 0)
	}
	g.index[e] = idx
	return idx
}

// reaches reports whether to is reachable from from along parent→child
// edges. Reuses the graph's scratch visited set and stack; the epoch stamp
// makes resetting the visited set free.
func (g *SceneGraph) reaches(from, to nodeIndex) bool {
	g.epoch++
	if g.epoch == 0 {
		// Stamp counter wrapped; stale stamps would alias the new epoch.
		clear(g.seen)
		g.epoch = 1
	}
	g.stack = g.stack[:0]
	g.stack = append(g.stack, from)
	g.seen[from] = g.epoch
	for len(g.stack) > 0 {
		n := g.stack[len(g.stack)-1]
		g.stack = g.stack[:len(g.stack)-1]
		if n == to {
			return true
		}
		for _, c := range g.nodes[n].out {
			if g.seen[c] != g.epoch {
				g.seen[c] = g.epoch
				g.stack = append(g.stack, c)
			}
		}
	}
	return false
}

// removeNode tombstones a node and drops all edges touching it. Children
// lose idx as a parent, so a removed interior node's subtree reverts to
// parentless and is reconsidered on the next propagation pass.
func (g *SceneGraph) removeNode(idx nodeIndex) {
	n := &g.nodes[idx]
	for _, c := range n.out {
		g.nodes[c].in = removeIndex(g.nodes[c].in, idx)
	}
	for _, p := range n.in {
		g.nodes[p].out = removeIndex(g.nodes[p].out, idx)
	}
	delete(g.index, n.entity)
	*n = graphNode{}
	g.free = append(g.free, idx)
}

// liveAt reports whether idx still holds a live node. Traversals that copy
// child indices before recursing use this to skip nodes pruned mid-pass.
func (g *SceneGraph) liveAt(idx nodeIndex) bool {
	return g.nodes[idx].alive
}

// collectRoots appends every live node with no parent to the graph's reused
// root scratch buffer and returns it.
func (g *SceneGraph) collectRoots() []nodeIndex {
	g.roots = g.roots[:0]
	for i := range g.nodes {
		if g.nodes[i].alive && len(g.nodes[i].in) == 0 {
			g.roots = append(g.roots, nodeIndex(i))
		}
	}
	return g.roots
}

func containsIndex(s []nodeIndex, idx nodeIndex) bool {
	for _, v := range s {
		if v == idx {
			return true
		}
	}
	return false
}

func removeIndex(s []nodeIndex, idx nodeIndex) []nodeIndex {
	for i, v := range s {
		if v == idx {
			copy(s[i:], s[i+1:])
			return s[:len(s)-1]
		}
	}
	return s
}
