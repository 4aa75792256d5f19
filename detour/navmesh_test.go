package detour

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
}

// Test layout, one unit voxels, seen from above:
//
//	z 20 +----+
//	     | P2 |
//	z 10 +----+----+    +----+
//	     | P0 | P1 |    | P3 |
//	z  0 +----+----+    +----+
//	     x 0  10   20   30   40
//
// P0, P1 and P2 form an L. P3 is an island.
var testVerts = []int{
	0, 0, 0, // 0
	0, 0, 10, // 1
	10, 0, 10, // 2
	10, 0, 0, // 3
	20, 0, 10, // 4
	20, 0, 0, // 5
	10, 0, 20, // 6
	20, 0, 20, // 7
	30, 0, 0, // 8
	30, 0, 10, // 9
	40, 0, 10, // 10
	40, 0, 0, // 11
}

const none = MeshNullIdx

var testPolys = []int{
	0, 1, 2, 3, none, none, none, none, 1, none, none, none,
	3, 2, 4, 5, none, none, 0, 2, none, none, none, none,
	2, 6, 7, 4, none, none, none, none, none, 1, none, none,
	8, 9, 10, 11, none, none, none, none, none, none, none, none,
}

func testCreateParams(bvTree bool) *NavMeshCreateParams {
	return &NavMeshCreateParams{
		Verts:          testVerts,
		VertCount:      len(testVerts) / 3,
		Polys:          testPolys,
		PolyFlags:      []int{1, 1, 1, 1},
		PolyAreas:      []int{0, 0, 0, 0},
		PolyCount:      4,
		Nvp:            6,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{40, 1, 20},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.4,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    bvTree,
	}
}

func testTileBlob(t testing.TB, bvTree bool) []byte {
	t.Helper()
	data, err := CreateNavMeshData(testCreateParams(bvTree))
	checkt(t, err)
	blob, err := data.Encode()
	checkt(t, err)
	return blob
}

func testNavMesh(t testing.TB, bvTree bool) (*NavMesh, TileRef) {
	t.Helper()
	nav := &NavMesh{}
	checkt(t, nav.Init(&NavMeshParams{
		TileWidth:  64,
		TileHeight: 64,
		MaxTiles:   1 << 14,
		MaxPolys:   1 << 8,
	}))
	ref, err := nav.AddTile(testTileBlob(t, bvTree))
	checkt(t, err)
	return nav, ref
}

func TestInitRejectsSmallSalt(t *testing.T) {
	nav := &NavMesh{}
	err := nav.Init(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 1 << 16, MaxPolys: 1 << 10})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("want ErrInvalidParam, got %v", err)
	}
}

func TestPolyRefEncodeDecode(t *testing.T) {
	nav := &NavMesh{}
	checkt(t, nav.Init(&NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 1 << 14, MaxPolys: 1 << 8}))

	tests := []struct {
		salt, it, ip uint32
	}{
		{1, 0, 0},
		{1, 0, 255},
		{1023, 16383, 255},
		{7, 123, 42},
	}
	for _, tt := range tests {
		ref := nav.EncodePolyID(tt.salt, tt.it, tt.ip)
		salt, it, ip := nav.DecodePolyID(ref)
		if salt != tt.salt || it != tt.it || ip != tt.ip {
			t.Errorf("decode(encode(%d,%d,%d)) = %d,%d,%d", tt.salt, tt.it, tt.ip, salt, it, ip)
		}
	}
}

func TestAddTileTwice(t *testing.T) {
	nav, _ := testNavMesh(t, true)
	_, err := nav.AddTile(testTileBlob(t, true))
	if !errors.Is(err, ErrAlreadyOccupied) {
		t.Fatalf("want ErrAlreadyOccupied, got %v", err)
	}
	if !errors.Is(err, ErrFailure) {
		t.Fatalf("want error to wrap ErrFailure")
	}
}

func TestRemoveTileInvalidatesRefs(t *testing.T) {
	nav, ref := testNavMesh(t, true)
	polyRef := nav.PolyRefBase(nav.TileByRef(ref)) | 1
	if !nav.IsValidPolyRef(polyRef) {
		t.Fatalf("poly ref %d should be valid", polyRef)
	}
	blob, err := nav.RemoveTile(ref)
	checkt(t, err)
	if len(blob) == 0 {
		t.Fatal("want tile blob back")
	}
	if nav.IsValidPolyRef(polyRef) {
		t.Fatalf("poly ref %d still valid after removal", polyRef)
	}
	if nav.TileCount() != 0 {
		t.Fatalf("want 0 tiles, got %d", nav.TileCount())
	}
	if _, err := nav.RemoveTile(ref); err == nil {
		t.Fatal("removing a stale tile ref should fail")
	}

	// The same blob can be loaded again.
	ref2, err := nav.AddTile(blob)
	checkt(t, err)
	if ref2 == ref {
		t.Fatalf("re-added tile reuses ref %d", ref)
	}
}

func TestSaltWrapSkipsZero(t *testing.T) {
	nav := &NavMesh{}
	checkt(t, nav.Init(&NavMeshParams{TileWidth: 64, TileHeight: 64, MaxTiles: 1 << 14, MaxPolys: 1 << 8}))
	blob := testTileBlob(t, false)
	seen := map[TileRef]bool{}
	// 10 salt bits, go around once.
	for i := 0; i < 1<<10+2; i++ {
		ref, err := nav.AddTile(blob)
		checkt(t, err)
		salt, _, _ := nav.DecodePolyID(PolyRef(ref))
		if salt == 0 {
			t.Fatalf("iteration %d: salt 0", i)
		}
		seen[ref] = true
		_, err = nav.RemoveTile(ref)
		checkt(t, err)
	}
	if len(seen) != 1<<10-1 {
		t.Fatalf("want %d distinct refs, got %d", 1<<10-1, len(seen))
	}
}

func TestDecodeMeshDataRejectsBadBlobs(t *testing.T) {
	blob := testTileBlob(t, true)

	bad := append([]byte(nil), blob...)
	bad[0] ^= 0xff
	if _, err := DecodeMeshData(bad); !errors.Is(err, ErrWrongMagic) {
		t.Errorf("corrupt magic: want ErrWrongMagic, got %v", err)
	}
	if _, err := DecodeMeshData(blob[:len(blob)-5]); err == nil {
		t.Error("truncated blob decoded without error")
	}

	d, err := DecodeMeshData(blob)
	checkt(t, err)
	if d.Header.PolyCount != 4 || len(d.Polys) != 4 {
		t.Fatalf("want 4 polys, got %d", len(d.Polys))
	}
	if d.Polys[0].Neis[2] != 2 || d.Polys[0].Neis[0] != 0 {
		t.Errorf("poly 0 neighbours = %v", d.Polys[0].Neis)
	}
	// Two triangles per quad in the fan.
	if d.Header.DetailTriCount != 8 {
		t.Errorf("want 8 detail tris, got %d", d.Header.DetailTriCount)
	}
	if len(d.BVTree) != 7 {
		t.Errorf("want 7 bv nodes, got %d", len(d.BVTree))
	}
}

func TestDecodeMeshDataRejectsBadIndices(t *testing.T) {
	firstNode := func(d *MeshData, leaf bool) *BVNode {
		for i := range d.BVTree {
			if (d.BVTree[i].I >= 0) == leaf {
				return &d.BVTree[i]
			}
		}
		t.Fatal("no such bv node")
		return nil
	}
	tests := []struct {
		name string
		edit func(d *MeshData)
	}{
		{"poly vertex", func(d *MeshData) { d.Polys[0].Verts[1] = 12 }},
		{"poly neighbour", func(d *MeshData) { d.Polys[0].Neis[0] = 9 }},
		{"portal side", func(d *MeshData) { d.Polys[0].Neis[0] = ExtLink | 0x10 }},
		{"too many poly vertices", func(d *MeshData) { d.Polys[1].VertCount = VertsPerPolygon + 1 }},
		{"degenerate poly", func(d *MeshData) { d.Polys[1].VertCount = 2 }},
		{"detail tri base", func(d *MeshData) { d.DetailMeshes[3].TriBase = 100 }},
		{"detail vert base", func(d *MeshData) { d.DetailMeshes[0].VertCount = 3 }},
		{"detail tri vertex", func(d *MeshData) { d.DetailTris[0] = 9 }},
		{"detail mesh count", func(d *MeshData) {
			d.DetailMeshes = d.DetailMeshes[:3]
			d.Header.DetailMeshCount = 3
		}},
		{"max link count", func(d *MeshData) { d.Header.MaxLinkCount = -1 }},
		{"bv leaf", func(d *MeshData) { firstNode(d, true).I = 40 }},
		{"bv escape", func(d *MeshData) { firstNode(d, false).I = math.MinInt32 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := CreateNavMeshData(testCreateParams(true))
			checkt(t, err)
			tt.edit(d)
			blob, err := d.Encode()
			checkt(t, err)
			if _, err := DecodeMeshData(blob); !errors.Is(err, ErrInvalidParam) {
				t.Fatalf("want ErrInvalidParam, got %v", err)
			}
		})
	}
}

func TestCorruptBlobNeverCrashesQueries(t *testing.T) {
	blob := testTileBlob(t, true)
	rng := rand.New(rand.NewSource(1))
	filter := NewQueryFilter()
	loaded := 0
	for i := 0; i < 500; i++ {
		bad := append([]byte(nil), blob...)
		for n := 1 + rng.Intn(4); n > 0; n-- {
			bad[rng.Intn(len(bad))] ^= byte(1 + rng.Intn(255))
		}
		nav := &NavMesh{}
		checkt(t, nav.Init(&NavMeshParams{TileWidth: 64, TileHeight: 64, MaxTiles: 64, MaxPolys: 1 << 8}))
		if _, err := nav.AddTile(bad); err != nil {
			continue
		}
		loaded++
		q, err := NewNavMeshQuery(nav, 256)
		checkt(t, err)
		for _, pos := range []mgl32.Vec3{{5, 0, 5}, {15, 0, 5}, {15, 0, 15}, {35, 0, 5}} {
			q.FindNearestPoly(pos, testExtents, filter)
		}
	}
	t.Logf("%d of 500 corrupted blobs loaded", loaded)
}

func TestCreateNavMeshDataValidation(t *testing.T) {
	tests := []struct {
		name string
		edit func(p *NavMeshCreateParams)
	}{
		{"too many verts per poly", func(p *NavMeshCreateParams) { p.Nvp = 7 }},
		{"too many verts", func(p *NavMeshCreateParams) { p.VertCount = 0xffff }},
		{"no verts", func(p *NavMeshCreateParams) { p.VertCount = 0 }},
		{"no polys", func(p *NavMeshCreateParams) { p.PolyCount = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testCreateParams(false)
			tt.edit(p)
			if _, err := CreateNavMeshData(p); !errors.Is(err, ErrInvalidParam) {
				t.Fatalf("want ErrInvalidParam, got %v", err)
			}
		})
	}
}

func TestNodeQueueOrder(t *testing.T) {
	q := &NodeQueue{}
	pool := newNodePool(8)
	costs := []float32{5, 1, 4, 2, 3}
	for i, c := range costs {
		n := pool.getNode(PolyRef(i+1), 0)
		n.total = c
		q.push(n)
	}
	// Lower the cost of an already queued node.
	n := pool.findNode(3, 0)
	n.total = 0.5
	q.modify(n)

	want := []PolyRef{3, 2, 4, 5, 1}
	for _, ref := range want {
		if q.empty() {
			t.Fatal("queue drained early")
		}
		if got := q.pop().id; got != ref {
			t.Fatalf("want %d, got %d", ref, got)
		}
	}
	if !q.empty() {
		t.Fatal("queue should be empty")
	}
}

func TestNodePoolExhausted(t *testing.T) {
	pool := newNodePool(2)
	if pool.getNode(1, 0) == nil || pool.getNode(1, 1) == nil {
		t.Fatal("want two nodes")
	}
	if pool.getNode(2, 0) != nil {
		t.Fatal("pool should be exhausted")
	}
	if pool.getNode(1, 1) == nil {
		t.Fatal("existing node must still be found")
	}
}
