package recast

import (
	"strings"
	"testing"

	"github.com/gamemachine/ainav/detour"
)

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
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

func floorSettings() BuildSettings {
	s := DefaultBuildSettings()
	tw := s.TileWidth()
	s.BoundingBox = BoundingBox{Min: [3]float32{0, -1, 0}, Max: [3]float32{tw, 2, tw}}
	return s
}

func TestBuildNavmeshFloor(t *testing.T) {
	verts, tris := floor(10)
	b := NewBuilder()
	b.SetSettings(floorSettings())
	res := b.BuildNavmesh(verts, tris, []uint8{1, 1})
	if !res.Success {
		t.Fatalf("build failed with code %d", res.Error)
	}
	if res.Error != 0 || len(res.NavmeshData) == 0 || len(res.NavmeshVertices) == 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	d, err := detour.DecodeMeshData(res.NavmeshData)
	checkt(t, err)
	if d.Header.PolyCount == 0 || d.Header.VertCount == 0 {
		t.Fatalf("empty tile: %+v", d.Header)
	}
	if d.Header.X != 0 || d.Header.Y != 0 {
		t.Errorf("tile at %d,%d, want 0,0", d.Header.X, d.Header.Y)
	}
	if len(d.BVTree) == 0 {
		t.Error("want a BV tree")
	}
	// The walkable area shrinks by the agent radius.
	for i := 0; i < len(d.Verts)/3; i++ {
		x, y, z := d.Verts[i*3], d.Verts[i*3+1], d.Verts[i*3+2]
		if x < 0.3 || x > 9.7 || z < 0.3 || z > 9.7 {
			t.Errorf("vertex %d (%v, %v) outside the eroded floor", i, x, z)
		}
		if y < -0.01 || y > 0.5 {
			t.Errorf("vertex %d at height %v", i, y)
		}
	}
	for i := range d.Polys {
		p := &d.Polys[i]
		if p.Flags != 1 {
			t.Errorf("poly %d flags %d, want 1", i, p.Flags)
		}
		want := uint8(0)
		if i < 2 {
			want = 1
		}
		if p.Area() != want {
			t.Errorf("poly %d area %d, want %d", i, p.Area(), want)
		}
	}
}

func TestBuildNavmeshRejects(t *testing.T) {
	verts, tris := floor(10)
	tests := []struct {
		name  string
		edit  func(s *BuildSettings)
		verts []float32
		tris  []int
		want  int
	}{
		{"flat bounding box", func(s *BuildSettings) { s.BoundingBox.Max[1] = s.BoundingBox.Min[1] }, verts, tris, ErrCodeBoundingBox},
		{"inverted bounding box", func(s *BuildSettings) { s.BoundingBox.Max[0] = -1 }, verts, tris, ErrCodeBoundingBox},
		{"detail sample dist", func(s *BuildSettings) { s.DetailSampleDist = 0.5 }, verts, tris, ErrCodeDetailSampleDist},
		{"detail sample error", func(s *BuildSettings) { s.DetailSampleMaxError = 0 }, verts, tris, ErrCodeDetailSampleMaxError},
		{"edge max error", func(s *BuildSettings) { s.EdgeMaxError = 0.05 }, verts, tris, ErrCodeEdgeMaxError},
		{"edge max len", func(s *BuildSettings) { s.EdgeMaxLen = -1 }, verts, tris, ErrCodeEdgeMaxLen},
		{"region min area", func(s *BuildSettings) { s.RegionMinArea = -1 }, verts, tris, ErrCodeRegionMinArea},
		{"region merge area", func(s *BuildSettings) { s.RegionMergeArea = -1 }, verts, tris, ErrCodeRegionMergeArea},
		{"tile size", func(s *BuildSettings) { s.TileSize = 0 }, verts, tris, ErrCodeTileSize},
		{"no triangles", func(s *BuildSettings) {}, verts, nil, ErrCodeNoGeometry},
		{"no vertices", func(s *BuildSettings) {}, nil, tris, ErrCodeNoGeometry},
		{"negative climb", func(s *BuildSettings) { s.AgentMaxClimb = -1 }, verts, tris, ErrCodeWalkableClimb},
		{"bad indices", func(s *BuildSettings) {}, verts, []int{0, 1, 9}, ErrCodeRasterize},
		{"negative index", func(s *BuildSettings) {}, verts, []int{0, -1, 2}, ErrCodeRasterize},
		{"index past vertices", func(s *BuildSettings) {}, verts, []int{0, 1, len(verts) / 3}, ErrCodeRasterize},
		{"partial vertex", func(s *BuildSettings) {}, verts[:len(verts)-1], tris, ErrCodeRasterize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := floorSettings()
			tt.edit(&s)
			b := NewBuilder()
			b.SetSettings(s)
			res := b.BuildNavmesh(tt.verts, tt.tris, []uint8{1, 1})
			if res.Success || res.Error != tt.want {
				t.Fatalf("want code %d, got success=%v code=%d", tt.want, res.Success, res.Error)
			}
			if res.NavmeshData != nil {
				t.Fatal("failed build published a blob")
			}
		})
	}
}

func TestBuildNavmeshNullAreas(t *testing.T) {
	verts, tris := floor(10)
	b := NewBuilder()
	b.SetSettings(floorSettings())
	res := b.BuildNavmesh(verts, tris, []uint8{NullArea, NullArea})
	if res.Success || res.Error != ErrCodePolyMeshNoVerts {
		t.Fatalf("want code %d, got %+v", ErrCodePolyMeshNoVerts, res)
	}
}

func TestBuildNavmeshSteepSlope(t *testing.T) {
	// A wall, 90 degrees.
	verts := []float32{0, 0, 5, 0, 10, 5, 10, 10, 5, 10, 0, 5}
	s := floorSettings()
	s.BoundingBox.Max[1] = 12
	b := NewBuilder()
	b.SetSettings(s)
	res := b.BuildNavmesh(verts, []int{0, 1, 2, 0, 2, 3}, []uint8{1, 1})
	if res.Success {
		t.Fatal("a vertical wall should not be walkable")
	}
}

func TestApplyAreaFlags(t *testing.T) {
	pm := &PolyMesh{
		npolys: 4,
		areas:  []int{WalkableArea, 0, 5, WalkableArea},
		flags:  make([]int, 4),
	}
	applyAreaFlags(pm, []uint8{2, NullArea})

	wantAreas := []int{2, 0, 5, 0}
	wantFlags := []int{1, 1, 0, 1}
	for i := range wantAreas {
		if pm.areas[i] != wantAreas[i] || pm.flags[i] != wantFlags[i] {
			t.Errorf("poly %d: area %d flags %d, want %d %d", i, pm.areas[i], pm.flags[i], wantAreas[i], wantFlags[i])
		}
	}
}

func TestConvexVolumeArea(t *testing.T) {
	verts, tris := floor(10)
	b := NewBuilder()
	b.SetSettings(floorSettings())
	b.SetConvexVolumes([]ConvexVolume{{
		Verts: []float32{-1, 0, -1, -1, 0, 11, 11, 0, 11, 11, 0, -1},
		Hmin:  -1,
		Hmax:  1,
		Area:  7,
	}})
	res := b.BuildNavmesh(verts, tris, []uint8{1, 1})
	if !res.Success {
		t.Fatalf("build failed with code %d", res.Error)
	}
	d, err := detour.DecodeMeshData(res.NavmeshData)
	checkt(t, err)
	for i := range d.Polys {
		if d.Polys[i].Area() != 7 || d.Polys[i].Flags != 0 {
			t.Errorf("poly %d: area %d flags %d, want custom area 7 without flags", i, d.Polys[i].Area(), d.Polys[i].Flags)
		}
	}
}

func TestPipelineStages(t *testing.T) {
	verts, tris := floor(10)
	s := floorSettings()
	cfg := newBuildConfig(&s)
	if cfg.borderSize != 5 || cfg.width != 74 || cfg.walkableHeight != 10 || cfg.walkableClimb != 2 {
		t.Fatalf("derived config %+v", cfg)
	}

	hf := NewHeightfield(cfg.width, cfg.height, cfg.bmin, cfg.bmax, cfg.cs, cfg.ch)
	areas := make([]int, 2)
	MarkWalkableTriangles(45, verts, tris, areas)
	if areas[0] != WalkableArea || areas[1] != WalkableArea {
		t.Fatalf("flat triangles not walkable: %v", areas)
	}
	checkt(t, RasterizeTriangles(hf, verts, tris, areas, cfg.walkableClimb))

	chf, err := BuildCompactHeightfield(cfg.walkableHeight, cfg.walkableClimb, hf)
	checkt(t, err)
	if chf.spanCount == 0 {
		t.Fatal("no compact spans")
	}
	walkable := func() int {
		n := 0
		for _, a := range chf.areas[:chf.spanCount] {
			if a != NullArea {
				n++
			}
		}
		return n
	}
	before := walkable()
	ErodeWalkableArea(cfg.walkableRadius, chf)
	if after := walkable(); after >= before || after == 0 {
		t.Fatalf("erosion: %d walkable spans before, %d after", before, after)
	}

	BuildDistanceField(chf)
	if chf.maxDistance == 0 {
		t.Fatal("empty distance field")
	}
	checkt(t, BuildRegions(chf, cfg.borderSize, cfg.minRegionArea, cfg.mergeRegionArea))
	if chf.maxRegions == 0 {
		t.Fatal("no regions")
	}

	cset, err := BuildContours(chf, cfg.maxSimplifyError, cfg.maxEdgeLen, contourTessWallEdges)
	checkt(t, err)
	if cset.Len() == 0 {
		t.Fatal("no contours")
	}

	pmesh, err := BuildPolyMesh(cset, cfg.maxVertsPerPoly)
	checkt(t, err)
	if pmesh.PolyCount() == 0 || pmesh.VertCount() < 4 {
		t.Fatalf("poly mesh with %d polys, %d verts", pmesh.PolyCount(), pmesh.VertCount())
	}
	// A square floor is a single region, every polygon is convex and
	// holds at most nvp vertices.
	for i := 0; i < pmesh.npolys; i++ {
		if n := countPolyVerts(pmesh.polys, i*pmesh.nvp*2, pmesh.nvp); n < 3 {
			t.Errorf("poly %d has %d verts", i, n)
		}
	}

	dmesh, err := BuildPolyMeshDetail(pmesh, chf, cfg.detailSampleDist, cfg.detailSampleMaxError)
	checkt(t, err)
	if len(dmesh.Meshes()) != pmesh.PolyCount()*4 || dmesh.TriCount() == 0 {
		t.Fatalf("detail mesh with %d meshes and %d tris", len(dmesh.Meshes())/4, dmesh.TriCount())
	}
	for i, y := range dmesh.Verts() {
		if i%3 == 1 && (y < -0.01 || y > 0.5) {
			t.Errorf("detail vertex %d at height %v", i/3, y)
		}
	}
}

func TestBuildTiles(t *testing.T) {
	verts, tris := floor(30)
	geom := NewInputGeom(verts, tris, nil)
	s := DefaultBuildSettings()
	s.TileSize = 32
	b := NewBuilder()
	b.SetSettings(s)

	seen := map[[2]int]bool{}
	built, failed := b.BuildTiles(geom, func(r TileResult) bool {
		d, err := detour.DecodeMeshData(r.NavmeshData)
		checkt(t, err)
		if int(d.Header.X) != r.X || int(d.Header.Y) != r.Y {
			t.Errorf("tile %d,%d carries header %d,%d", r.X, r.Y, d.Header.X, d.Header.Y)
		}
		seen[[2]int{r.X, r.Y}] = true
		return true
	})
	if failed != 0 {
		t.Fatalf("%d tiles failed", failed)
	}
	// 30 / 9.6 covers 4 x 4 tiles, the inner 3 x 3 are fully walkable.
	if built < 9 || built > 16 || len(seen) != built {
		t.Fatalf("built %d tiles, %d distinct", built, len(seen))
	}
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			if !seen[[2]int{x, y}] {
				t.Errorf("tile %d,%d missing", x, y)
			}
		}
	}
	if got := b.Settings(); got.TileSize != 32 || got.TilePosition != [2]int32{} {
		t.Fatalf("settings not restored: %+v", got)
	}
}

func TestBuildTilesRejectsBadIndices(t *testing.T) {
	verts, _ := floor(30)
	geom := NewInputGeom(verts, []int{0, 1, 7}, nil)
	b := NewBuilder()
	built, failed := b.BuildTiles(geom, func(TileResult) bool {
		t.Fatal("tile published from bad geometry")
		return false
	})
	if built != 0 || failed != 1 {
		t.Fatalf("built %d failed %d", built, failed)
	}
}

func TestLoadObj(t *testing.T) {
	const obj = `# quad
v 0 0 0
v 0 0 10
v 10 0 10
v 10 0 0
vn 0 1 0
f 1/1/1 2/2/1 3/3/1 4/4/1
f -4 -2 -1
`
	geom, err := LoadObj(strings.NewReader(obj))
	checkt(t, err)
	if got := len(geom.Verts()) / 3; got != 4 {
		t.Fatalf("want 4 verts, got %d", got)
	}
	want := []int{0, 1, 2, 0, 2, 3, 0, 2, 3}
	if len(geom.Tris()) != len(want) {
		t.Fatalf("want tris %v, got %v", want, geom.Tris())
	}
	for i := range want {
		if geom.Tris()[i] != want[i] {
			t.Fatalf("want tris %v, got %v", want, geom.Tris())
		}
	}
	bmin, bmax := geom.Bounds()
	if bmin != [3]float32{0, 0, 0} || bmax != [3]float32{10, 0, 10} {
		t.Errorf("bounds %v %v", bmin, bmax)
	}
	for _, a := range geom.Areas() {
		if a != WalkableArea {
			t.Fatalf("default area %d", a)
		}
	}

	for _, bad := range []string{"v 1 2\n", "v 0 0 0\nf 1 0 1\n", "v 0 0 0\nf 1 2 3\n", "v a b c\n"} {
		if _, err := LoadObj(strings.NewReader(bad)); err == nil {
			t.Errorf("%q: want error", bad)
		}
	}
}

func TestChunkyTriMesh(t *testing.T) {
	// A row of 1000 unit triangles along x.
	var verts []float32
	var tris []int
	for i := 0; i < 1000; i++ {
		x := float32(i)
		verts = append(verts, x, 0, 0, x, 0, 1, x+1, 0, 0)
		tris = append(tris, i*3, i*3+1, i*3+2)
	}
	cm := NewChunkyTriMesh(verts, tris, 1000, 64)
	if cm.MaxTrisPerChunk() > 64 {
		t.Fatalf("leaf with %d tris", cm.MaxTrisPerChunk())
	}
	ids := cm.TrisOverlappingRect([2]float32{500.5, 0}, [2]float32{510.5, 1})
	found := map[int]bool{}
	for _, id := range ids {
		found[id] = true
	}
	for i := 500; i <= 510; i++ {
		if !found[i] {
			t.Fatalf("triangle %d missing from %d results", i, len(ids))
		}
	}
	if len(ids) >= 1000 {
		t.Fatal("query returned every triangle")
	}
	if got := cm.TrisOverlappingRect([2]float32{2000, 0}, [2]float32{2001, 1}); len(got) != 0 {
		t.Fatalf("want no triangles, got %d", len(got))
	}
}

func BenchmarkBuildNavmesh(b *testing.B) {
	verts, tris := floor(10)
	bl := NewBuilder()
	bl.SetSettings(floorSettings())
	for i := 0; i < b.N; i++ {
		bl.BuildNavmesh(verts, tris, []uint8{1, 1})
	}
}
