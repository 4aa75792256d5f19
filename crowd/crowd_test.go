package crowd

import (
	"testing"

	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
)

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
}

const none = detour.MeshNullIdx

// Two 20x40 quads side by side, seen from above:
//
//	z 40 +----+----+
//	     | P0 | P1 |
//	z  0 +----+----+
//	     x 0  20   40
func testNavMesh(t testing.TB) *detour.NavMesh {
	t.Helper()
	params := &detour.NavMeshCreateParams{
		Verts: []int{
			0, 0, 0,
			0, 0, 40,
			20, 0, 40,
			20, 0, 0,
			40, 0, 40,
			40, 0, 0,
		},
		VertCount: 6,
		Polys: []int{
			0, 1, 2, 3, none, none, none, none, 1, none, none, none,
			3, 2, 4, 5, none, none, 0, none, none, none, none, none,
		},
		PolyFlags:      []int{1, 1},
		PolyAreas:      []int{0, 0},
		PolyCount:      2,
		Nvp:            6,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{40, 1, 40},
		WalkableHeight: 2,
		WalkableRadius: 0.6,
		WalkableClimb:  0.4,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    true,
	}
	data, err := detour.CreateNavMeshData(params)
	checkt(t, err)
	blob, err := data.Encode()
	checkt(t, err)

	nav := &detour.NavMesh{}
	checkt(t, nav.Init(&detour.NavMeshParams{
		TileWidth:  64,
		TileHeight: 64,
		MaxTiles:   1 << 14,
		MaxPolys:   1 << 8,
	}))
	_, err = nav.AddTile(blob)
	checkt(t, err)
	return nav
}

func testCrowd(t testing.TB, maxAgents int) *Crowd {
	t.Helper()
	c, err := NewCrowd(maxAgents, 0.6, testNavMesh(t))
	checkt(t, err)
	return c
}

func TestNewCrowdRejects(t *testing.T) {
	nav := testNavMesh(t)
	tests := []struct {
		name      string
		maxAgents int
		radius    float32
		nav       *detour.NavMesh
	}{
		{"no agents", 0, 0.6, nav},
		{"too many agents", 1 << 16, 0.6, nav},
		{"zero radius", 4, 0, nav},
		{"nil navmesh", 4, 0.6, nil},
	}
	for _, tt := range tests {
		if _, err := NewCrowd(tt.maxAgents, tt.radius, tt.nav); err == nil {
			t.Errorf("%s: want error", tt.name)
		}
	}
}

func TestNewCrowdPresets(t *testing.T) {
	c := testCrowd(t, 1)
	want := [4][3]uint8{{5, 2, 1}, {5, 2, 2}, {7, 2, 3}, {7, 3, 3}}
	for i, w := range want {
		p, ok := c.ObstacleAvoidanceParams(i)
		if !ok {
			t.Fatalf("preset %d missing", i)
		}
		if p.VelBias != 0.5 || p.AdaptiveDivs != w[0] || p.AdaptiveRings != w[1] || p.AdaptiveDepth != w[2] {
			t.Errorf("preset %d = %+v", i, p)
		}
	}
	if ext := c.QueryHalfExtents(); !ext.ApproxEqualThreshold(mgl32.Vec3{1.2, 0.9, 1.2}, 1e-5) {
		t.Errorf("query extents %v", ext)
	}
}

func TestAgentPoolCount(t *testing.T) {
	c := testCrowd(t, 3)
	params := DefaultAgentParams()

	for i := 0; i < 3; i++ {
		idx := c.AddAgent(mgl32.Vec3{float32(5 + i*5), 0, 5}, &params)
		if idx != i {
			t.Fatalf("agent %d got slot %d", i, idx)
		}
	}
	if c.AgentCount() != 3 {
		t.Fatalf("want 3 agents, got %d", c.AgentCount())
	}
	if idx := c.AddAgent(mgl32.Vec3{30, 0, 5}, &params); idx != -1 {
		t.Fatalf("full pool returned slot %d", idx)
	}

	c.RemoveAgent(1)
	c.RemoveAgent(1)
	c.RemoveAgent(-1)
	c.RemoveAgent(3)
	if c.AgentCount() != 2 {
		t.Fatalf("want 2 agents after removals, got %d", c.AgentCount())
	}
	if c.GetAgent(1).Active() {
		t.Fatal("removed agent still active")
	}

	// The freed slot is reused.
	if idx := c.AddAgent(mgl32.Vec3{30, 0, 30}, &params); idx != 1 {
		t.Fatalf("want slot 1 reused, got %d", idx)
	}
	if c.AgentCount() != 3 {
		t.Fatalf("want 3 agents, got %d", c.AgentCount())
	}

	buf := make([]*Agent, 2)
	if n := c.GetActiveAgents(buf); n != 2 {
		t.Fatalf("bounded buffer: want 2, got %d", n)
	}
	buf = make([]*Agent, 8)
	n := c.GetActiveAgents(buf)
	if n != 3 {
		t.Fatalf("want 3 active agents, got %d", n)
	}
	for i := 0; i < n; i++ {
		if buf[i].Index() != i || !buf[i].Active() {
			t.Errorf("snapshot %d = slot %d", i, buf[i].Index())
		}
	}
}

func TestAddAgentOffMesh(t *testing.T) {
	c := testCrowd(t, 2)
	params := DefaultAgentParams()
	off := mgl32.Vec3{100, 0, 100}
	oidx := c.AddAgent(off, &params)
	if oidx != 0 || c.AgentCount() != 1 {
		t.Fatalf("off mesh agent got slot %d, count %d", oidx, c.AgentCount())
	}
	oag := c.GetAgent(oidx)
	if !oag.Active() || oag.State() != AgentStateInvalid || oag.Position() != off {
		t.Fatalf("off mesh agent active=%v state=%v pos=%v", oag.Active(), oag.State(), oag.Position())
	}
	if c.RequestMove(oidx, mgl32.Vec3{5, 0, 5}) {
		c.Update(0.1)
	}
	if c.GetAgent(oidx).Position() != off {
		t.Fatalf("invalid agent moved to %v", c.GetAgent(oidx).Position())
	}

	idx := c.AddAgent(mgl32.Vec3{5, 0.5, 5}, &params)
	if idx != 1 {
		t.Fatalf("agent got slot %d", idx)
	}
	ag := c.GetAgent(idx)
	if ag.State() != AgentStateWalking || ag.TargetState() != TargetNone {
		t.Fatalf("unexpected state %v %v", ag.State(), ag.TargetState())
	}
	if !ag.Position().ApproxEqualThreshold(mgl32.Vec3{5, 0, 5}, 1e-4) {
		t.Fatalf("agent not snapped to the floor: %v", ag.Position())
	}
}

func TestRequestMoveOutOfExtent(t *testing.T) {
	c := testCrowd(t, 2)
	params := DefaultAgentParams()
	idx := c.AddAgent(mgl32.Vec3{5, 0, 5}, &params)

	if c.RequestMove(idx, mgl32.Vec3{200, 0, 200}) {
		t.Fatal("move outside the mesh accepted")
	}
	ag := c.GetAgent(idx)
	if ag.TargetState() != TargetNone || ag.TargetRef() != 0 || ag.TargetPos() != (mgl32.Vec3{}) {
		t.Fatalf("agent state changed: %v %d %v", ag.TargetState(), ag.TargetRef(), ag.TargetPos())
	}

	// Inactive agents refuse requests.
	if c.RequestMove(1, mgl32.Vec3{10, 0, 10}) {
		t.Fatal("inactive agent accepted a move")
	}
	if c.RequestMove(7, mgl32.Vec3{10, 0, 10}) {
		t.Fatal("out of range agent accepted a move")
	}

	if !c.RequestMove(idx, mgl32.Vec3{10, 0, 10}) {
		t.Fatal("move on the mesh refused")
	}
	if ag.TargetState() != TargetRequesting {
		t.Fatalf("want requesting, got %v", ag.TargetState())
	}
	if !c.ResetMoveTarget(idx) || ag.TargetState() != TargetNone {
		t.Fatal("reset failed")
	}
}

func TestAgentReachesTarget(t *testing.T) {
	c := testCrowd(t, 1)
	params := DefaultAgentParams()
	params.ObstacleAvoidance = false
	idx := c.AddAgent(mgl32.Vec3{5, 0, 5}, &params)
	target := mgl32.Vec3{35, 0, 35}
	if !c.RequestMove(idx, target) {
		t.Fatal("move refused")
	}
	ag := c.GetAgent(idx)

	c.Update(0.1)
	if ag.TargetState() != TargetValid {
		t.Fatalf("want valid target after the first update, got %v", ag.TargetState())
	}
	if ag.Partial() {
		t.Fatal("path to a reachable target is partial")
	}
	if path := ag.Corridor().Path(); len(path) != 2 {
		t.Fatalf("want corridor across both polys, got %v", path)
	}

	for i := 0; i < 400 && !ag.Arrived(); i++ {
		c.Update(0.1)
		if v := ag.Velocity().Len(); v > params.MaxSpeed+1e-3 {
			t.Fatalf("speed %v over max", v)
		}
	}
	if !ag.Arrived() {
		t.Fatalf("agent did not arrive, at %v", ag.Position())
	}
	if d := vdist2D(ag.Position(), target); d > params.Radius {
		t.Fatalf("arrived %v away from the target", d)
	}
	if first := ag.Corridor().FirstPoly(); first != ag.TargetRef() {
		t.Fatalf("corridor not trimmed to the target poly: %d", first)
	}
}

func TestRequestMoveVelocity(t *testing.T) {
	c := testCrowd(t, 1)
	params := DefaultAgentParams()
	params.ObstacleAvoidance = false
	idx := c.AddAgent(mgl32.Vec3{10, 0, 20}, &params)
	if !c.RequestMoveVelocity(idx, mgl32.Vec3{2, 0, 0}) {
		t.Fatal("velocity request refused")
	}
	for i := 0; i < 20; i++ {
		c.Update(0.1)
	}
	ag := c.GetAgent(idx)
	if p := ag.Position(); p[0] < 12 || p[0] > 14.1 || absf(p[2]-20) > 1e-3 {
		t.Fatalf("unexpected position %v", p)
	}
	if len(ag.Corridor().Path()) != 1 {
		t.Fatalf("velocity driven corridor holds %d polys", len(ag.Corridor().Path()))
	}
}

func TestNoInterpenetration(t *testing.T) {
	c := testCrowd(t, 2)
	params := DefaultAgentParams()
	a := c.AddAgent(mgl32.Vec3{10, 0, 20}, &params)
	b := c.AddAgent(mgl32.Vec3{30, 0, 20}, &params)
	if !c.RequestMove(a, mgl32.Vec3{30, 0, 20}) || !c.RequestMove(b, mgl32.Vec3{10, 0, 20}) {
		t.Fatal("move refused")
	}
	agA, agB := c.GetAgent(a), c.GetAgent(b)
	minDist := params.Radius * 2

	for i := 0; i < 200; i++ {
		c.Update(0.05)
		if !agA.Active() || !agB.Active() {
			t.Fatalf("step %d: agent deactivated", i)
		}
		if d := vdist2D(agA.Position(), agB.Position()); d < minDist-1e-3 {
			t.Fatalf("step %d: agents %v apart, want at least %v", i, d, minDist)
		}
	}
	if d := vdist2D(agA.Position(), mgl32.Vec3{30, 0, 20}); d > 19 {
		t.Errorf("agent a made no progress, %v from its goal", d)
	}
	if d := vdist2D(agB.Position(), mgl32.Vec3{10, 0, 20}); d > 19 {
		t.Errorf("agent b made no progress, %v from its goal", d)
	}
}

func TestStackedAgentsSeparate(t *testing.T) {
	c := testCrowd(t, 2)
	params := DefaultAgentParams()
	params.ObstacleAvoidance = false
	params.Separation = false
	a := c.AddAgent(mgl32.Vec3{20, 0, 20}, &params)
	b := c.AddAgent(mgl32.Vec3{20.1, 0, 20}, &params)
	c.Update(0.1)
	if d := vdist2D(c.GetAgent(a).Position(), c.GetAgent(b).Position()); d < params.Radius*2-1e-3 {
		t.Fatalf("overlapping agents still %v apart", d)
	}
}

func TestCrowdNeighbours(t *testing.T) {
	c := testCrowd(t, 8)
	params := DefaultAgentParams()
	for i := 0; i < 8; i++ {
		c.AddAgent(mgl32.Vec3{10 + float32(i), 0, 10}, &params)
	}
	c.Update(0.01)
	ag := c.GetAgent(0)
	if n := ag.NeighbourCount(); n != MaxNeighbours {
		t.Fatalf("want %d neighbours, got %d", MaxNeighbours, n)
	}
	for i := 1; i < len(ag.neis); i++ {
		if ag.neis[i-1].dist > ag.neis[i].dist {
			t.Fatalf("neighbours not sorted: %+v", ag.neis)
		}
	}
	if ag.neis[0].idx != 1 {
		t.Fatalf("nearest neighbour is %d", ag.neis[0].idx)
	}
}

func BenchmarkCrowdUpdate(b *testing.B) {
	c := testCrowd(b, 32)
	params := DefaultAgentParams()
	for i := 0; i < 32; i++ {
		x := float32(2 + (i%8)*4)
		z := float32(4 + (i/8)*8)
		idx := c.AddAgent(mgl32.Vec3{x, 0, z}, &params)
		c.RequestMove(idx, mgl32.Vec3{38 - x, 0, 38 - z})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Update(1.0 / 30)
	}
}
