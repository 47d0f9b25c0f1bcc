package rowan

import (
	"strings"
	"testing"

	"github.com/yohamta/donburi"
)

func assertVec3(t *testing.T, name string, got, want Vec3) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// buildChain creates root→mid→leaf with Positions (10,0,0), (5,0,0), (1,0,0).
func buildChain(t *testing.T) (donburi.World, *SceneGraph, []donburi.Entity) {
	t.Helper()
	w, es := newTestEntities(t, 3)
	g := NewSceneGraph()

	Position.Get(w.Entry(es[0])).Set(10, 0, 0)
	Position.Get(w.Entry(es[1])).Set(5, 0, 0)
	Position.Get(w.Entry(es[2])).Set(1, 0, 0)

	if err := g.AddChild(es[0], es[1]); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := g.AddChild(es[1], es[2]); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	return w, g, es
}

func worldPos(w donburi.World, e donburi.Entity) Vec3 {
	return WorldPosition.Get(w.Entry(e)).Vec3
}

func TestPropagateChain(t *testing.T) {
	w, g, es := buildChain(t)
	stats := NewPropagator(g).Propagate(w)

	assertVec3(t, "root", worldPos(w, es[0]), Vec3{10, 0, 0})
	assertVec3(t, "mid", worldPos(w, es[1]), Vec3{15, 0, 0})
	assertVec3(t, "leaf", worldPos(w, es[2]), Vec3{16, 0, 0})
	if stats.Recomputed != 3 {
		t.Errorf("Recomputed = %d, want 3", stats.Recomputed)
	}
}

func TestPropagateClearsDirtyFlags(t *testing.T) {
	w, g, es := buildChain(t)
	NewPropagator(g).Propagate(w)

	for i, e := range es {
		if Position.Get(w.Entry(e)).Dirty {
			t.Errorf("entity %d still dirty after propagation", i)
		}
	}
}

func TestPropagateDirtyShortCircuit(t *testing.T) {
	w, g, es := buildChain(t)
	p := NewPropagator(g)
	p.Propagate(w)

	// Mutating only mid must recompute exactly {mid, leaf}, not root.
	Position.Get(w.Entry(es[1])).SetXY(7, 0)
	stats := p.Propagate(w)

	if stats.Recomputed != 2 {
		t.Errorf("Recomputed = %d, want 2 (mid and leaf only)", stats.Recomputed)
	}
	assertVec3(t, "root", worldPos(w, es[0]), Vec3{10, 0, 0})
	assertVec3(t, "mid", worldPos(w, es[1]), Vec3{17, 0, 0})
	assertVec3(t, "leaf", worldPos(w, es[2]), Vec3{18, 0, 0})
}

func TestPropagateCleanPassRecomputesNothing(t *testing.T) {
	w, g, _ := buildChain(t)
	p := NewPropagator(g)
	p.Propagate(w)

	stats := p.Propagate(w)
	if stats.Recomputed != 0 {
		t.Errorf("clean pass Recomputed = %d, want 0", stats.Recomputed)
	}
}

func TestPropagateUnrelatedBranchUntouched(t *testing.T) {
	w, es := newTestEntities(t, 4)
	g := NewSceneGraph()

	// One root with two branches: a→b, a→c→d.
	for _, edge := range [][2]int{{0, 1}, {0, 2}, {2, 3}} {
		if err := g.AddChild(es[edge[0]], es[edge[1]]); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
	}
	for i, e := range es {
		Position.Get(w.Entry(e)).Set(float64(i+1), 0, 0)
	}
	p := NewPropagator(g)
	p.Propagate(w)

	// Dirty only b; the c→d branch must not be recomputed.
	Position.Get(w.Entry(es[1])).SetXY(50, 0)
	stats := p.Propagate(w)
	if stats.Recomputed != 1 {
		t.Errorf("Recomputed = %d, want 1 (b only)", stats.Recomputed)
	}
}

func TestPropagateOrphan(t *testing.T) {
	w, es := newTestEntities(t, 3)
	g := NewSceneGraph()

	// es[0] and es[1] join the graph; es[2] is never referenced by it.
	if err := g.AddChild(es[0], es[1]); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	Position.Get(w.Entry(es[2])).Set(3, 4, 5)

	NewPropagator(g).Propagate(w)
	assertVec3(t, "orphan", worldPos(w, es[2]), Vec3{3, 4, 5})
	if Position.Get(w.Entry(es[2])).Dirty {
		t.Error("orphan still dirty after propagation")
	}
}

func TestPropagateOrphanSkippedWhenClean(t *testing.T) {
	w, es := newTestEntities(t, 1)
	g := NewSceneGraph()

	Position.Get(w.Entry(es[0])).Set(3, 0, 0)
	p := NewPropagator(g)
	p.Propagate(w)

	// A clean orphan must not be rewritten.
	WorldPosition.Get(w.Entry(es[0])).Vec3 = Vec3{99, 0, 0}
	stats := p.Propagate(w)
	if stats.Recomputed != 0 {
		t.Errorf("Recomputed = %d, want 0", stats.Recomputed)
	}
	assertVec3(t, "orphan", worldPos(w, es[0]), Vec3{99, 0, 0})
}

func TestPropagateStalePruning(t *testing.T) {
	w, g, es := buildChain(t)
	p := NewPropagator(g)
	p.Propagate(w)

	// Despawn mid between passes. Its node disappears without error; leaf
	// reverts to a parentless root and is reconsidered the pass after.
	w.Remove(es[1])
	stats := p.Propagate(w)
	if stats.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", stats.Pruned)
	}
	if g.Contains(es[1]) {
		t.Error("stale node still in graph")
	}
	if g.Parents(es[2]) != nil {
		t.Errorf("leaf parents = %v, want nil after prune", g.Parents(es[2]))
	}

	// Leaf is now a graph root; dirtying it yields a root-style position.
	Position.Get(w.Entry(es[2])).SetXY(2, 0)
	p.Propagate(w)
	assertVec3(t, "ex-leaf", worldPos(w, es[2]), Vec3{2, 0, 0})
}

func TestPropagatePanicsOnMissingComponents(t *testing.T) {
	w := donburi.NewWorld()
	bare := w.Create(Position) // no WorldPosition
	other := w.Create(Position, WorldPosition)
	g := NewSceneGraph()
	if err := g.AddChild(other, bare); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for graph entity without required components")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "rowan:") {
			t.Errorf("panic = %v, want rowan-prefixed message", r)
		}
	}()
	NewPropagator(g).Propagate(w)
}
