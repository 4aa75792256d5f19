package navigation

import (
	"bytes"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/gamemachine/ainav/crowd"
	"github.com/gamemachine/ainav/detour"
	"github.com/gamemachine/ainav/recast"

	"github.com/go-gl/mathgl/mgl32"
)

var testExtent = mgl32.Vec3{2, 4, 2}

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// floor returns a flat size x size quad at y=0 split into two triangles.
func floor(size float32) ([]float32, []int) {
	verts := []float32{
		0, 0, 0,
		0, 0, size,
		size, 0, size,
		size, 0, 0,
	}
	return verts, []int{0, 1, 2, 0, 2, 3}
}

// floorTile builds the 10 x 10 floor for an agent of radius 0.5 and
// height 1.
func floorTile(t testing.TB) (*recast.GeneratedData, recast.BuildSettings) {
	t.Helper()
	verts, tris := floor(10)
	s := recast.DefaultBuildSettings()
	s.AgentRadius = 0.5
	s.AgentHeight = 1.0
	tw := s.TileWidth()
	s.BoundingBox = recast.BoundingBox{Min: [3]float32{0, -1, 0}, Max: [3]float32{tw, 2, tw}}

	b := NewBuilder(nil)
	b.SetSettings(s)
	return b.BuildNavmesh(verts, tris, []uint8{recast.WalkableArea, recast.WalkableArea}), s
}

func floorMesh(t testing.TB) *Mesh {
	t.Helper()
	res, s := floorTile(t)
	if !res.Success {
		t.Fatalf("build failed with code %d", res.Error)
	}
	m, err := NewMesh(s.TileWidth(), nil)
	checkt(t, err)
	if !m.AddTile(res.NavmeshData) {
		t.Fatal("add tile failed")
	}
	return m
}

func floorQuery(t testing.TB) (*Mesh, *Query) {
	t.Helper()
	m := floorMesh(t)
	q, err := m.NewQuery(2048)
	checkt(t, err)
	return m, q
}

func TestBuildAndSample(t *testing.T) {
	res, _ := floorTile(t)
	if !res.Success || res.Error != 0 {
		t.Fatalf("build failed with code %d", res.Error)
	}
	d, err := detour.DecodeMeshData(res.NavmeshData)
	checkt(t, err)
	if d.Header.PolyCount < 1 {
		t.Fatal("want at least one polygon")
	}

	_, q := floorQuery(t)
	pos, ok := q.SamplePosition(mgl32.Vec3{5, 0, 5}, testExtent)
	if !ok {
		t.Fatal("no position at the floor center")
	}
	if absf(pos[0]-5) > 1e-3 || absf(pos[2]-5) > 1e-3 || pos[1] < -0.01 || pos[1] > 0.5 {
		t.Fatalf("sampled %v, want a point on the floor at (5, 5)", pos)
	}

	if _, ok := q.SamplePosition(mgl32.Vec3{30, 0, 30}, testExtent); ok {
		t.Error("sampled a position far off the floor")
	}
}

func TestBuildFailuresReportCodes(t *testing.T) {
	verts, tris := floor(10)
	b := NewBuilder(nil)
	s := recast.DefaultBuildSettings()
	b.SetSettings(s)
	// Zero volume bounding box.
	res := b.BuildNavmesh(verts, tris, []uint8{1, 1})
	if res.Success || res.Error != recast.ErrCodeBoundingBox || res.NavmeshData != nil {
		t.Fatalf("want bounding box failure, got %+v", res)
	}
}

func TestStraightPathInsideFloor(t *testing.T) {
	_, q := floorQuery(t)
	pq := PathfindQuery{
		Source:                mgl32.Vec3{3, 0, 3},
		Target:                mgl32.Vec3{7, 0, 6},
		FindNearestPolyExtent: testExtent,
		MaxPathPoints:         32,
	}
	if !q.HasPath(pq) {
		t.Fatal("want a path across the floor")
	}

	buf := make([]mgl32.Vec3, 16)
	n, ok := q.FindStraightPath(pq, buf)
	if !ok {
		t.Fatal("straight path failed")
	}
	if n != 2 {
		t.Fatalf("want start and end only, got %v", buf[:n])
	}
	if absf(buf[0][0]-3) > 1e-3 || absf(buf[0][2]-3) > 1e-3 {
		t.Errorf("start %v", buf[0])
	}
	if absf(buf[1][0]-7) > 1e-3 || absf(buf[1][2]-6) > 1e-3 {
		t.Errorf("end %v", buf[1])
	}

	// One slot is not enough for the end point but the start is written.
	n, ok = q.FindStraightPath(pq, buf[:1])
	if !ok || n != 1 {
		t.Errorf("want 1 point in a 1 slot buffer, got %d %v", n, ok)
	}
}

func TestPathOffMeshFails(t *testing.T) {
	_, q := floorQuery(t)
	pq := PathfindQuery{
		Source:                mgl32.Vec3{3, 0, 3},
		Target:                mgl32.Vec3{40, 0, 40},
		FindNearestPolyExtent: testExtent,
	}
	if q.HasPath(pq) {
		t.Error("path to a point off the navmesh")
	}
	if n, ok := q.FindStraightPath(pq, make([]mgl32.Vec3, 8)); ok || n != 0 {
		t.Errorf("want failure, got %d %v", n, ok)
	}
}

func TestRaycast(t *testing.T) {
	_, q := floorQuery(t)
	res, ok := q.Raycast(RaycastQuery{
		Start:                 mgl32.Vec3{5, 0, 5},
		End:                   mgl32.Vec3{6, 0, 5},
		FindNearestPolyExtent: testExtent,
	})
	if !ok || res.Hit {
		t.Fatalf("short ray: %+v %v", res, ok)
	}
	if !res.Position.ApproxEqualThreshold(mgl32.Vec3{6, 0, 5}, 1e-4) {
		t.Errorf("want end position, got %v", res.Position)
	}

	res, ok = q.Raycast(RaycastQuery{
		Start:                 mgl32.Vec3{5, 0, 5},
		End:                   mgl32.Vec3{15, 0, 5},
		FindNearestPolyExtent: testExtent,
	})
	if !ok || !res.Hit {
		t.Fatalf("ray through the wall: %+v %v", res, ok)
	}
	if res.Position[0] < 9 || res.Position[0] > 10 || absf(res.Position[2]-5) > 1e-3 {
		t.Errorf("hit at %v, want the eroded edge near x=9.5", res.Position)
	}
}

func TestGetLocationAndRandom(t *testing.T) {
	_, q := floorQuery(t)
	pos, ok := q.GetLocation(mgl32.Vec3{4, 1.5, 6}, testExtent)
	if !ok || absf(pos[0]-4) > 1e-3 || absf(pos[2]-6) > 1e-3 || pos[1] > 0.5 {
		t.Fatalf("location %v %v", pos, ok)
	}

	if _, ok := q.GetRandomPosition(nil); ok {
		t.Error("random position without a generator")
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		pos, ok := q.GetRandomPosition(rng)
		if !ok {
			t.Fatal("no random position")
		}
		if pos[0] < 0 || pos[0] > 10 || pos[2] < 0 || pos[2] > 10 {
			t.Fatalf("random position %v off the floor", pos)
		}
	}
}

func TestInvalidate(t *testing.T) {
	m, q := floorQuery(t)
	if !q.IsValid() {
		t.Fatal("new query is invalid")
	}
	q.Invalidate()
	q.Invalidate()
	if q.IsValid() {
		t.Fatal("query still valid")
	}
	if _, ok := q.SamplePosition(mgl32.Vec3{5, 0, 5}, testExtent); ok {
		t.Error("invalidated query answered")
	}

	// Closing the mesh invalidates the others.
	q2, err := m.NewQuery(64)
	checkt(t, err)
	m.Close()
	m.Close()
	if q2.IsValid() {
		t.Error("query of a closed mesh is valid")
	}
	if _, err := m.NewQuery(64); err == nil {
		t.Error("query created on a closed mesh")
	}
	if m.TileCount() != 0 {
		t.Errorf("closed mesh holds %d tiles", m.TileCount())
	}
}

func TestRemoveTileInvalidatesRefs(t *testing.T) {
	res, _ := floorTile(t)
	m := floorMesh(t)
	nq, err := detour.NewNavMeshQuery(m.NavMesh(), 64)
	checkt(t, err)
	filter := detour.NewQueryFilter()
	ref, _, err := nq.FindNearestPoly(mgl32.Vec3{5, 0, 5}, testExtent, filter)
	checkt(t, err)

	if m.AddTile(res.NavmeshData) {
		t.Fatal("tile added twice at the same coordinate")
	}
	if !m.RemoveTile(0, 0) {
		t.Fatal("remove failed")
	}
	if m.RemoveTile(0, 0) {
		t.Fatal("removed an empty coordinate")
	}
	if !m.AddTile(res.NavmeshData) {
		t.Fatal("re-add failed")
	}

	if m.NavMesh().IsValidPolyRef(ref) {
		t.Fatalf("stale ref %d still valid", ref)
	}
	ref2, _, err := nq.FindNearestPoly(mgl32.Vec3{5, 0, 5}, testExtent, filter)
	checkt(t, err)
	if ref2 == ref {
		t.Fatalf("new tile reuses ref %d", ref)
	}
	if _, _, err := m.NavMesh().TileAndPolyByRef(ref); !errors.Is(err, detour.ErrInvalidParam) {
		t.Fatalf("want ErrInvalidParam for the stale ref, got %v", err)
	}
}

func TestCrowdOnFloor(t *testing.T) {
	m := floorMesh(t)
	c, err := m.NewCrowd(8, 0.6)
	checkt(t, err)

	params := crowd.DefaultAgentParams()
	idx := c.AddAgent(mgl32.Vec3{2, 0, 2}, &params)
	if idx < 0 {
		t.Fatal("agent not added")
	}
	if c.AgentCount() != 1 {
		t.Fatalf("want 1 agent, got %d", c.AgentCount())
	}
	got, ok := c.GetAgentParams(idx)
	if !ok || got.Radius != params.Radius {
		t.Fatalf("params %+v %v", got, ok)
	}
	params.MaxSpeed = 3.5
	c.SetAgentParams(idx, &params)
	if got, _ := c.GetAgentParams(idx); got.MaxSpeed != 3.5 {
		t.Fatalf("max speed %v after update", got.MaxSpeed)
	}

	if c.RequestMove(idx, mgl32.Vec3{40, 0, 40}) {
		t.Fatal("move to a point off the navmesh accepted")
	}
	target := mgl32.Vec3{8, 0, 7}
	if !c.RequestMove(idx, target) {
		t.Fatal("move rejected")
	}
	for i := 0; i < 100; i++ {
		c.Update(0.1)
	}

	buf := make([]AgentInfo, 4)
	if n := c.GetActiveAgents(buf); n != 1 {
		t.Fatalf("want 1 active agent, got %d", n)
	}
	info := buf[0]
	if !info.Active || info.Index != idx || info.Partial {
		t.Fatalf("agent %+v", info)
	}
	dx, dz := info.Position[0]-target[0], info.Position[2]-target[2]
	if dx*dx+dz*dz > 1 {
		t.Fatalf("agent at %v, want near %v", info.Position, target)
	}

	c.RemoveAgent(idx)
	c.RemoveAgent(idx)
	if c.AgentCount() != 0 || c.GetActiveAgents(buf) != 0 {
		t.Fatal("agent still active")
	}
	if _, ok := c.GetAgent(99); ok {
		t.Error("agent past the pool")
	}
}

func TestGetActiveAgentsReusesBuffer(t *testing.T) {
	m := floorMesh(t)
	c, err := m.NewCrowd(4, 0.6)
	checkt(t, err)
	params := crowd.DefaultAgentParams()
	for _, pos := range []mgl32.Vec3{{2, 0, 2}, {5, 0, 5}, {8, 0, 2}} {
		if c.AddAgent(pos, &params) < 0 {
			t.Fatalf("agent at %v not added", pos)
		}
	}
	buf := make([]AgentInfo, 4)
	if n := c.GetActiveAgents(buf); n != 3 {
		t.Fatalf("want 3 active agents, got %d", n)
	}
	allocs := testing.AllocsPerRun(20, func() { c.GetActiveAgents(buf) })
	if allocs != 0 {
		t.Fatalf("GetActiveAgents allocates %v times per call", allocs)
	}
	if n := c.GetActiveAgents(buf[:2]); n != 2 || buf[1].Index != 1 {
		t.Fatalf("short buffer: n=%d second=%d", n, buf[1].Index)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	b := r.CreateBuilder()
	if _, ok := r.Builder(b); !ok {
		t.Fatal("builder not found")
	}
	if !r.DestroyBuilder(b) || r.DestroyBuilder(b) {
		t.Fatal("builder destroy should succeed once")
	}

	if r.CreateMesh(0) != 0 {
		t.Fatal("mesh with zero tile width created")
	}
	res, s := floorTile(t)
	mh := r.CreateMesh(s.TileWidth())
	if mh == 0 {
		t.Fatal("create mesh failed")
	}
	m, _ := r.Mesh(mh)
	if !m.AddTile(res.NavmeshData) {
		t.Fatal("add tile failed")
	}

	if r.CreateQuery(mh+100, 64) != 0 {
		t.Fatal("query on an unknown mesh")
	}
	qh := r.CreateQuery(mh, 2048)
	ch := r.CreateCrowd(mh, 4, 0.6)
	if qh == 0 || ch == 0 || qh == mh || ch == qh {
		t.Fatalf("handles %d %d %d", mh, qh, ch)
	}
	if _, ok := r.Mesh(qh); ok {
		t.Fatal("query handle resolves to a mesh")
	}
	q, _ := r.Query(qh)
	if _, ok := q.SamplePosition(mgl32.Vec3{5, 0, 5}, testExtent); !ok {
		t.Fatal("registered query failed")
	}

	if !r.DestroyMesh(mh) || r.DestroyMesh(mh) {
		t.Fatal("mesh destroy should succeed once")
	}
	if _, ok := r.Mesh(mh); ok {
		t.Fatal("destroyed mesh still resolves")
	}
	q, ok := r.Query(qh)
	if !ok || q.IsValid() {
		t.Fatal("query should remain registered but invalid")
	}
	if !r.DestroyQuery(qh) || r.DestroyQuery(qh) {
		t.Fatal("query destroy should succeed once")
	}
	if !r.DestroyCrowd(ch) || r.DestroyCrowd(ch) {
		t.Fatal("crowd destroy should succeed once")
	}
}

func TestNavSetRoundTrip(t *testing.T) {
	m := floorMesh(t)
	path := filepath.Join(t.TempDir(), "floor.navset")
	checkt(t, SaveNavSet(path, m))

	r := NewRegistry(nil)
	h, failed, err := r.LoadNavSet(path)
	checkt(t, err)
	if failed != 0 {
		t.Fatalf("%d tiles failed to load", failed)
	}
	loaded, ok := r.Mesh(h)
	if !ok || loaded.TileCount() != 1 || loaded.TileWidth() != m.TileWidth() {
		t.Fatalf("loaded mesh %v", loaded)
	}
	q, err := loaded.NewQuery(256)
	checkt(t, err)
	if _, ok := q.SamplePosition(mgl32.Vec3{5, 0, 5}, testExtent); !ok {
		t.Fatal("loaded mesh has no floor")
	}

	var buf bytes.Buffer
	checkt(t, WriteNavSet(&buf, &NavSet{Version: navSetVersion + 1}))
	if _, err := ReadNavSet(&buf); !errors.Is(err, ErrNavSetVersion) {
		t.Fatalf("want ErrNavSetVersion, got %v", err)
	}
	if _, _, err := LoadNavSet(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("loaded a missing file")
	}
}

func TestBuildTilesIntoMesh(t *testing.T) {
	verts, tris := floor(30)
	geom := recast.NewInputGeom(verts, tris, nil)
	s := recast.DefaultBuildSettings()
	s.TileSize = 32
	b := NewBuilder(nil)
	b.SetSettings(s)

	m, err := NewMesh(s.TileWidth(), nil)
	checkt(t, err)
	built, failed := b.BuildTiles(geom, func(tr recast.TileResult) bool {
		if !m.AddTile(tr.NavmeshData) {
			t.Errorf("tile %d,%d rejected", tr.X, tr.Y)
		}
		return true
	})
	if failed != 0 || built == 0 || m.TileCount() != built {
		t.Fatalf("built %d, failed %d, loaded %d", built, failed, m.TileCount())
	}

	q, err := m.NewQuery(2048)
	checkt(t, err)
	tw := s.TileWidth()
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			center := mgl32.Vec3{(float32(x) + 0.5) * tw, 0, (float32(y) + 0.5) * tw}
			if _, ok := q.SamplePosition(center, testExtent); !ok {
				t.Errorf("no navmesh in tile %d,%d", x, y)
			}
		}
	}
}

func BenchmarkStraightPath(b *testing.B) {
	_, q := floorQuery(b)
	pq := PathfindQuery{
		Source:                mgl32.Vec3{2, 0, 2},
		Target:                mgl32.Vec3{8, 0, 8},
		FindNearestPolyExtent: testExtent,
	}
	buf := make([]mgl32.Vec3, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.FindStraightPath(pq, buf)
	}
}
