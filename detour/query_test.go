package detour

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var testExtents = mgl32.Vec3{2, 4, 2}

func testQuery(t testing.TB, bvTree bool) (*NavMeshQuery, PolyRef) {
	t.Helper()
	nav, ref := testNavMesh(t, bvTree)
	q, err := NewNavMeshQuery(nav, 2048)
	checkt(t, err)
	return q, nav.PolyRefBase(nav.TileByRef(ref))
}

func TestFindNearestPoly(t *testing.T) {
	for _, bvTree := range []bool{true, false} {
		q, base := testQuery(t, bvTree)
		filter := NewQueryFilter()

		tests := []struct {
			pos     mgl32.Vec3
			want    PolyRef
			wantPos mgl32.Vec3
		}{
			{mgl32.Vec3{5, 0, 5}, base | 0, mgl32.Vec3{5, 0, 5}},
			{mgl32.Vec3{15, 1, 5}, base | 1, mgl32.Vec3{15, 0, 5}},
			{mgl32.Vec3{15, 0, 21}, base | 2, mgl32.Vec3{15, 0, 20}},
			{mgl32.Vec3{35, 0, 5}, base | 3, mgl32.Vec3{35, 0, 5}},
		}
		for _, tt := range tests {
			ref, pt, err := q.FindNearestPoly(tt.pos, testExtents, filter)
			checkt(t, err)
			if ref != tt.want {
				t.Errorf("bv=%v nearest poly of %v = %d, want %d", bvTree, tt.pos, ref, tt.want)
			}
			if !pt.ApproxEqualThreshold(tt.wantPos, 1e-4) {
				t.Errorf("bv=%v nearest point of %v = %v, want %v", bvTree, tt.pos, pt, tt.wantPos)
			}
		}

		if _, _, err := q.FindNearestPoly(mgl32.Vec3{25, 0, 5}, testExtents, filter); !errors.Is(err, ErrNotFound) {
			t.Errorf("bv=%v: want ErrNotFound in the gap, got %v", bvTree, err)
		}
	}
}

func TestFindPathFindStraightPath(t *testing.T) {
	q, base := testQuery(t, true)
	filter := NewQueryFilter()
	start := mgl32.Vec3{5, 0, 5}
	end := mgl32.Vec3{12, 0, 18}

	path, status, err := q.FindPath(base|0, base|2, start, end, filter, 256)
	checkt(t, err)
	if status != 0 {
		t.Fatalf("unexpected status %b", status)
	}
	wantPath := []PolyRef{base | 0, base | 1, base | 2}
	if len(path) != len(wantPath) {
		t.Fatalf("want path %v, got %v", wantPath, path)
	}
	for i := range path {
		if path[i] != wantPath[i] {
			t.Fatalf("want path %v, got %v", wantPath, path)
		}
	}

	straight, status, err := q.FindStraightPath(start, end, path, 256, 0)
	checkt(t, err)
	if status != 0 {
		t.Fatalf("unexpected status %b", status)
	}
	wantStraight := []StraightPathItem{
		{Pos: start, Flags: StraightPathStart, Ref: base | 0},
		{Pos: mgl32.Vec3{10, 0, 10}, Flags: 0, Ref: base | 2},
		{Pos: end, Flags: StraightPathEnd, Ref: 0},
	}
	if len(straight) != len(wantStraight) {
		t.Fatalf("want %d corners, got %v", len(wantStraight), straight)
	}
	for i, want := range wantStraight {
		got := straight[i]
		if !got.Pos.ApproxEqualThreshold(want.Pos, 1e-4) || got.Flags != want.Flags || got.Ref != want.Ref {
			t.Errorf("corner %d = %+v, want %+v", i, got, want)
		}
	}

	// Truncated corner list.
	straight, status, err = q.FindStraightPath(start, end, path, 2, 0)
	checkt(t, err)
	if len(straight) != 2 || !status.Has(BufferTooSmall) {
		t.Errorf("want 2 corners and BufferTooSmall, got %v %b", straight, status)
	}
}

func TestFindPathSamePoly(t *testing.T) {
	q, base := testQuery(t, false)
	path, status, err := q.FindPath(base|1, base|1, mgl32.Vec3{12, 0, 2}, mgl32.Vec3{18, 0, 8}, NewQueryFilter(), 16)
	checkt(t, err)
	if len(path) != 1 || path[0] != base|1 || status != 0 {
		t.Fatalf("got %v %b", path, status)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	q, base := testQuery(t, true)
	path, status, err := q.FindPath(base|0, base|3, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{35, 0, 5}, NewQueryFilter(), 256)
	checkt(t, err)
	if !status.Partial() {
		t.Fatalf("want partial result, got %b", status)
	}
	if !errors.Is(status.Err(), ErrPartialResult) {
		t.Fatalf("want ErrPartialResult from status")
	}
	if len(path) == 0 || path[0] != base|0 || path[len(path)-1] == base|3 {
		t.Fatalf("unexpected partial path %v", path)
	}
}

func TestFindPathTruncated(t *testing.T) {
	q, base := testQuery(t, true)
	path, status, err := q.FindPath(base|0, base|2, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{15, 0, 15}, NewQueryFilter(), 2)
	checkt(t, err)
	if !status.Has(BufferTooSmall) {
		t.Fatalf("want BufferTooSmall, got %b", status)
	}
	if len(path) != 2 || path[0] != base|0 || path[1] != base|1 {
		t.Fatalf("want the first two polygons, got %v", path)
	}
}

func TestFindPathFiltered(t *testing.T) {
	q, base := testQuery(t, true)
	filter := NewQueryFilter()
	filter.ExcludeFlags = 1
	path, status, err := q.FindPath(base|0, base|2, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{15, 0, 15}, filter, 16)
	checkt(t, err)
	if !status.Partial() || len(path) != 1 {
		t.Fatalf("want partial single poly path, got %v %b", path, status)
	}
}

func TestRaycast(t *testing.T) {
	q, base := testQuery(t, true)
	filter := NewQueryFilter()
	start := mgl32.Vec3{5, 0, 5}

	hit, _, err := q.Raycast(base|0, start, mgl32.Vec3{15, 0, 5}, filter, 16)
	checkt(t, err)
	if !hit.Reached() {
		t.Errorf("ray into P1 should reach its end, t=%v", hit.T)
	}
	if len(hit.Path) != 2 || hit.Path[1] != base|1 {
		t.Errorf("want path through P0 and P1, got %v", hit.Path)
	}

	hit, _, err = q.Raycast(base|0, start, mgl32.Vec3{5, 0, 15}, filter, 16)
	checkt(t, err)
	if hit.Reached() || absf(hit.T-0.5) > 1e-4 {
		t.Errorf("want wall hit at t=0.5, got %v", hit.T)
	}
	if !hit.HitNormal.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Errorf("want normal (0,0,-1), got %v", hit.HitNormal)
	}
}

func TestMoveAlongSurface(t *testing.T) {
	q, base := testQuery(t, true)
	filter := NewQueryFilter()

	pos, visited, err := q.MoveAlongSurface(base|0, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{8, 0, 6}, filter, 16)
	checkt(t, err)
	if !pos.ApproxEqualThreshold(mgl32.Vec3{8, 0, 6}, 1e-4) || len(visited) != 1 {
		t.Errorf("free move: got %v %v", pos, visited)
	}

	pos, visited, err = q.MoveAlongSurface(base|0, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{4, 0, 15}, filter, 16)
	checkt(t, err)
	if !pos.ApproxEqualThreshold(mgl32.Vec3{4, 0, 10}, 1e-4) {
		t.Errorf("want slide to the wall at (4,0,10), got %v", pos)
	}
	if len(visited) != 1 || visited[0] != base|0 {
		t.Errorf("want visited [P0], got %v", visited)
	}

	pos, visited, err = q.MoveAlongSurface(base|0, mgl32.Vec3{8, 0, 5}, mgl32.Vec3{12, 0, 6}, filter, 16)
	checkt(t, err)
	if !pos.ApproxEqualThreshold(mgl32.Vec3{12, 0, 6}, 1e-4) {
		t.Errorf("want move across the portal, got %v", pos)
	}
	if len(visited) != 2 || visited[0] != base|0 || visited[1] != base|1 {
		t.Errorf("want visited [P0 P1], got %v", visited)
	}
}

func TestGetPolyWallSegments(t *testing.T) {
	q, base := testQuery(t, true)
	filter := NewQueryFilter()
	tests := []struct {
		ref  PolyRef
		want int
	}{
		{base | 0, 3},
		{base | 1, 2},
		{base | 2, 3},
		{base | 3, 4},
	}
	for _, tt := range tests {
		segs, err := q.GetPolyWallSegments(tt.ref, filter, 8)
		checkt(t, err)
		if len(segs) != tt.want {
			t.Errorf("poly %d: want %d walls, got %d", tt.ref, tt.want, len(segs))
		}
	}

	// A rejected neighbour turns the portal into a wall.
	filter.ExcludeFlags = 1
	segs, err := q.GetPolyWallSegments(base|1, filter, 8)
	checkt(t, err)
	if len(segs) != 4 {
		t.Errorf("want 4 walls with neighbours filtered, got %d", len(segs))
	}
}

func TestFindLocalNeighbourhood(t *testing.T) {
	q, base := testQuery(t, true)
	refs, parents, err := q.FindLocalNeighbourhood(base|0, mgl32.Vec3{5, 0, 5}, 6, NewQueryFilter(), 8)
	checkt(t, err)
	if len(refs) != 2 || refs[0] != base|0 || refs[1] != base|1 {
		t.Fatalf("want [P0 P1], got %v", refs)
	}
	if parents[0] != 0 || parents[1] != base|0 {
		t.Fatalf("unexpected parents %v", parents)
	}
}

func TestGetPolyHeight(t *testing.T) {
	q, base := testQuery(t, false)
	h, err := q.GetPolyHeight(base|2, mgl32.Vec3{15, 3, 15})
	checkt(t, err)
	if absf(h) > 1e-4 {
		t.Errorf("want height 0, got %v", h)
	}
	if _, err := q.GetPolyHeight(base|9, mgl32.Vec3{}); err == nil {
		t.Error("want error for a poly index past the tile")
	}
}

func TestFindRandomPoint(t *testing.T) {
	q, _ := testQuery(t, true)
	rng := rand.New(rand.NewSource(7))
	filter := NewQueryFilter()
	for i := 0; i < 100; i++ {
		ref, pt, err := q.FindRandomPoint(filter, rng)
		checkt(t, err)
		if !q.nav.IsValidPolyRef(ref) {
			t.Fatalf("invalid ref %d", ref)
		}
		if pt[0] < 0 || pt[0] > 40 || pt[2] < 0 || pt[2] > 20 || absf(pt[1]) > 1e-4 {
			t.Fatalf("point %v off the mesh", pt)
		}
	}

	filter.IncludeFlags = 2
	if _, _, err := q.FindRandomPoint(filter, rng); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func BenchmarkFindPath(b *testing.B) {
	q, base := testQuery(b, true)
	filter := NewQueryFilter()
	start := mgl32.Vec3{5, 0, 5}
	end := mgl32.Vec3{12, 0, 18}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path, _, _ := q.FindPath(base|0, base|2, start, end, filter, 256)
		q.FindStraightPath(start, end, path, 256, 0)
	}
}
