package crowd

import (
	"testing"

	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
)

func refsEqual(a, b []detour.PolyRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeCorridor(t *testing.T) {
	tests := []struct {
		name    string
		merge   func([]detour.PolyRef, int, []detour.PolyRef) []detour.PolyRef
		path    []detour.PolyRef
		visited []detour.PolyRef
		want    []detour.PolyRef
	}{
		{"moved forward", mergeCorridorStartMoved, []detour.PolyRef{1, 2, 3}, []detour.PolyRef{1, 2}, []detour.PolyRef{2, 3}},
		{"moved backward", mergeCorridorStartMoved, []detour.PolyRef{2, 3}, []detour.PolyRef{2, 1}, []detour.PolyRef{1, 2, 3}},
		{"moved nowhere", mergeCorridorStartMoved, []detour.PolyRef{1, 2}, []detour.PolyRef{1}, []detour.PolyRef{1, 2}},
		{"moved off corridor", mergeCorridorStartMoved, []detour.PolyRef{1, 2}, []detour.PolyRef{7, 8}, []detour.PolyRef{1, 2}},
		{"shortcut", mergeCorridorStartShortcut, []detour.PolyRef{1, 2, 3, 4, 5}, []detour.PolyRef{1, 9, 4}, []detour.PolyRef{1, 9, 4, 5}},
		{"shortcut same start", mergeCorridorStartShortcut, []detour.PolyRef{1, 2, 3}, []detour.PolyRef{1}, []detour.PolyRef{1, 2, 3}},
		{"end moved", mergeCorridorEndMoved, []detour.PolyRef{1, 2, 3}, []detour.PolyRef{3, 4, 5}, []detour.PolyRef{1, 2, 3, 4, 5}},
		{"end moved back", mergeCorridorEndMoved, []detour.PolyRef{1, 2, 3}, []detour.PolyRef{2}, []detour.PolyRef{1, 2}},
	}
	for _, tt := range tests {
		path := append(make([]detour.PolyRef, 0, 16), tt.path...)
		got := tt.merge(path, 16, tt.visited)
		if !refsEqual(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMergeCorridorMaxPath(t *testing.T) {
	path := []detour.PolyRef{3, 4, 5, 6}
	got := mergeCorridorStartMoved(path, 4, []detour.PolyRef{3, 2, 1})
	if want := []detour.PolyRef{1, 2, 3, 4}; !refsEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPathCorridorFixAndTrim(t *testing.T) {
	c := testCrowd(t, 1)
	q := c.NavMeshQuery()
	filter := detour.NewQueryFilter()
	p0, _, err := q.FindNearestPoly(mgl32.Vec3{5, 0, 5}, mgl32.Vec3{1, 1, 1}, filter)
	checkt(t, err)
	p1, _, err := q.FindNearestPoly(mgl32.Vec3{35, 0, 5}, mgl32.Vec3{1, 1, 1}, filter)
	checkt(t, err)

	pc := NewPathCorridor(8)
	pc.Reset(p0, mgl32.Vec3{5, 0, 5})
	pc.SetCorridor(mgl32.Vec3{35, 0, 5}, []detour.PolyRef{p0, p1})
	if !pc.IsValid(10, q, filter) {
		t.Fatal("corridor should be valid")
	}

	pc.FixPathStart(p0, mgl32.Vec3{6, 0, 6})
	if want := []detour.PolyRef{p0, 0, p1}; !refsEqual(pc.Path(), want) {
		t.Fatalf("fixed path %v, want %v", pc.Path(), want)
	}
	if pc.IsValid(10, q, filter) {
		t.Fatal("placeholder poly passed validation")
	}

	pc.TrimInvalidPath(p0, mgl32.Vec3{6, 0, 6}, q, filter)
	if want := []detour.PolyRef{p0}; !refsEqual(pc.Path(), want) {
		t.Fatalf("trimmed path %v, want %v", pc.Path(), want)
	}
	// The target is clamped into the last valid polygon.
	if tgt := pc.Target(); tgt[0] > 20+1e-3 {
		t.Fatalf("target %v not clamped into P0", tgt)
	}
}

func TestPathCorridorMovePosition(t *testing.T) {
	c := testCrowd(t, 1)
	q := c.NavMeshQuery()
	filter := detour.NewQueryFilter()
	p0, _, _ := q.FindNearestPoly(mgl32.Vec3{5, 0, 5}, mgl32.Vec3{1, 1, 1}, filter)
	p1, _, _ := q.FindNearestPoly(mgl32.Vec3{35, 0, 5}, mgl32.Vec3{1, 1, 1}, filter)

	pc := NewPathCorridor(8)
	pc.Reset(p0, mgl32.Vec3{18, 0, 5})
	pc.SetCorridor(mgl32.Vec3{35, 0, 5}, []detour.PolyRef{p0, p1})

	corners := pc.FindCorners(q, MaxCorners)
	if len(corners) != 1 || corners[0].Flags&detour.StraightPathEnd == 0 {
		t.Fatalf("want a single end corner, got %+v", corners)
	}

	if !pc.MovePosition(mgl32.Vec3{22, 0, 5}, q, filter) {
		t.Fatal("move failed")
	}
	if !pc.Pos().ApproxEqualThreshold(mgl32.Vec3{22, 0, 5}, 1e-4) {
		t.Fatalf("moved to %v", pc.Pos())
	}
	if want := []detour.PolyRef{p1}; !refsEqual(pc.Path(), want) {
		t.Fatalf("corridor %v, want %v", pc.Path(), want)
	}

	// Moves are clamped at the mesh border.
	pc.MovePosition(mgl32.Vec3{22, 0, -5}, q, filter)
	if p := pc.Pos(); absf(p[2]) > 1e-4 {
		t.Fatalf("moved off the mesh to %v", p)
	}
}

func TestProximityGrid(t *testing.T) {
	g := NewProximityGrid(32, 1)
	g.AddItem(1, 0.2, 0.2, 0.8, 0.8)
	g.AddItem(2, 0.5, 0.5, 1.5, 1.5)
	g.AddItem(3, 10, 10, 10.5, 10.5)

	if n := g.ItemCountAt(0, 0); n != 2 {
		t.Fatalf("cell (0,0) holds %d items, want 2", n)
	}
	if n := g.ItemCountAt(1, 1); n != 1 {
		t.Fatalf("cell (1,1) holds %d items, want 1", n)
	}

	ids := g.QueryItems(0, 0, 2, 2, 8)
	if len(ids) != 2 || !containsID(ids, 1) || !containsID(ids, 2) {
		t.Fatalf("query returned %v", ids)
	}
	if ids := g.QueryItems(0, 0, 2, 2, 1); len(ids) != 1 {
		t.Fatalf("bounded query returned %v", ids)
	}
	if b := g.Bounds(); b != [4]int{0, 0, 10, 10} {
		t.Fatalf("bounds %v", b)
	}

	g.Clear()
	if ids := g.QueryItems(0, 0, 20, 20, 8); len(ids) != 0 {
		t.Fatalf("cleared grid returned %v", ids)
	}

	// Items past the pool are dropped.
	small := NewProximityGrid(2, 1)
	small.AddItem(1, 0, 0, 2.5, 0.5)
	if n := small.ItemCountAt(2, 0); n != 0 {
		t.Fatalf("overflow item stored")
	}
}

func TestLocalBoundarySegments(t *testing.T) {
	b := NewLocalBoundary()
	for i := 10; i > 0; i-- {
		d := float32(i)
		b.addSegment(d, mgl32.Vec3{d, 0, 0}, mgl32.Vec3{d, 0, 1})
	}
	if b.SegmentCount() != maxLocalSegs {
		t.Fatalf("want %d segments, got %d", maxLocalSegs, b.SegmentCount())
	}
	for i := 0; i < b.SegmentCount(); i++ {
		s, _ := b.Segment(i)
		if s[0] != float32(i+1) {
			t.Fatalf("segment %d at distance %v", i, s[0])
		}
	}
}

func TestLocalBoundaryUpdate(t *testing.T) {
	c := testCrowd(t, 1)
	q := c.NavMeshQuery()
	filter := detour.NewQueryFilter()
	ref, _, _ := q.FindNearestPoly(mgl32.Vec3{2, 0, 20}, mgl32.Vec3{1, 1, 1}, filter)

	b := NewLocalBoundary()
	if b.IsValid(q, filter) {
		t.Fatal("empty boundary reported valid")
	}
	b.Update(ref, mgl32.Vec3{2, 0, 20}, 5, q, filter)
	if b.SegmentCount() != 1 {
		t.Fatalf("want the x=0 wall only, got %d segments", b.SegmentCount())
	}
	if !b.IsValid(q, filter) {
		t.Fatal("boundary should be valid")
	}
	b.Update(0, mgl32.Vec3{}, 5, q, filter)
	if b.SegmentCount() != 0 {
		t.Fatal("zero ref should clear the boundary")
	}
}

func TestSweepCircleCircle(t *testing.T) {
	tmin, tmax, ok := sweepCircleCircle(mgl32.Vec3{}, 1, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{5, 0, 0}, 1)
	if !ok || absf(tmin-3) > 1e-4 || absf(tmax-7) > 1e-4 {
		t.Fatalf("got %v %v %v", tmin, tmax, ok)
	}
	if _, _, ok := sweepCircleCircle(mgl32.Vec3{}, 1, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{5, 0, 0}, 1); ok {
		t.Fatal("parallel miss reported a hit")
	}
	if _, _, ok := sweepCircleCircle(mgl32.Vec3{}, 1, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 1); ok {
		t.Fatal("static circle reported a hit")
	}
}

func TestIsectRaySeg(t *testing.T) {
	tt, ok := isectRaySeg(mgl32.Vec3{}, mgl32.Vec3{4, 0, 0}, mgl32.Vec3{2, 0, -1}, mgl32.Vec3{2, 0, 1})
	if !ok || absf(tt-0.5) > 1e-5 {
		t.Fatalf("got %v %v", tt, ok)
	}
	if _, ok := isectRaySeg(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{2, 0, -1}, mgl32.Vec3{2, 0, 1}); ok {
		t.Fatal("short ray reported a hit")
	}
}

func TestSampleVelocityAdaptive(t *testing.T) {
	q := NewObstacleAvoidanceQuery(MaxNeighbours, 8)
	params := ObstacleAvoidancePresets()[3]
	dvel := mgl32.Vec3{3, 0, 0}

	// Free space keeps the desired velocity.
	nvel, ns := q.SampleVelocityAdaptive(mgl32.Vec3{}, 0.5, 3, dvel, dvel, &params)
	if ns == 0 {
		t.Fatal("no samples taken")
	}
	if !nvel.ApproxEqualThreshold(dvel, 1e-3) {
		t.Fatalf("free space velocity %v, want %v", nvel, dvel)
	}

	// A standing agent ahead deflects it.
	q.Reset()
	q.AddCircle(mgl32.Vec3{2, 0, 0}, 0.5, mgl32.Vec3{}, mgl32.Vec3{})
	if q.ObstacleCircleCount() != 1 {
		t.Fatal("circle not added")
	}
	nvel, _ = q.SampleVelocityAdaptive(mgl32.Vec3{}, 0.5, 3, dvel, dvel, &params)
	if nvel.Sub(dvel).Len() < 0.1 {
		t.Fatalf("velocity %v not deflected", nvel)
	}
	if nvel.Len() > 3+1e-3 {
		t.Fatalf("velocity %v over max speed", nvel)
	}
}

func TestObstacleAvoidanceQueryCapacity(t *testing.T) {
	q := NewObstacleAvoidanceQuery(1, 1)
	q.AddCircle(mgl32.Vec3{}, 1, mgl32.Vec3{}, mgl32.Vec3{})
	q.AddCircle(mgl32.Vec3{}, 1, mgl32.Vec3{}, mgl32.Vec3{})
	q.AddSegment(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})
	q.AddSegment(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})
	if q.ObstacleCircleCount() != 1 || q.ObstacleSegmentCount() != 1 {
		t.Fatalf("capacity exceeded: %d circles %d segments", q.ObstacleCircleCount(), q.ObstacleSegmentCount())
	}
}
