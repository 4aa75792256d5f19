package recast

import (
	"github.com/gamemachine/ainav/detour"

	"go.uber.org/zap"
)

// Builder turns triangle soups into detour tile blobs. A Builder is not
// safe for concurrent use.
type Builder struct {
	settings BuildSettings
	volumes  []ConvexVolume
	log      *zap.Logger
}

// NewBuilder returns a builder with DefaultBuildSettings.
func NewBuilder() *Builder {
	return &Builder{settings: DefaultBuildSettings(), log: zap.NewNop()}
}

// SetLogger replaces the no-op logger.
func (b *Builder) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	b.log = log
}

// SetSettings replaces the settings used by the next builds.
func (b *Builder) SetSettings(s BuildSettings) {
	b.settings = s
}

func (b *Builder) Settings() BuildSettings { return b.settings }

// SetConvexVolumes sets the area markers applied to the next builds.
func (b *Builder) SetConvexVolumes(vols []ConvexVolume) {
	b.volumes = vols
}

// BuildNavmesh voxelizes the triangles (3 indices each) and builds one
// tile for the settings' bounding box and tile position. areas holds one
// entry per triangle, NullArea marks a triangle unwalkable.
func (b *Builder) BuildNavmesh(verts []float32, tris []int, areas []uint8) *GeneratedData {
	ret := &GeneratedData{}
	if code := b.build(verts, tris, areas, ret); code != 0 {
		ret.Error = code
		b.log.Warn("navmesh build failed",
			zap.Int("code", code),
			zap.Int32("tx", b.settings.TilePosition[0]), zap.Int32("ty", b.settings.TilePosition[1]))
		return ret
	}
	ret.Success = true
	b.log.Debug("navmesh built",
		zap.Int32("tx", b.settings.TilePosition[0]), zap.Int32("ty", b.settings.TilePosition[1]),
		zap.Int("bytes", len(ret.NavmeshData)))
	return ret
}

func (b *Builder) build(verts []float32, tris []int, areas []uint8, ret *GeneratedData) int {
	s := &b.settings
	bmin, bmax := s.BoundingBox.Min, s.BoundingBox.Max
	if bmax[0]-bmin[0] <= 0 || bmax[1]-bmin[1] <= 0 || bmax[2]-bmin[2] <= 0 {
		return ErrCodeBoundingBox
	}
	switch {
	case s.DetailSampleDist < 1:
		return ErrCodeDetailSampleDist
	case s.DetailSampleMaxError <= 0:
		return ErrCodeDetailSampleMaxError
	case s.EdgeMaxError < 0.1:
		return ErrCodeEdgeMaxError
	case s.EdgeMaxLen < 0:
		return ErrCodeEdgeMaxLen
	case s.RegionMinArea < 0:
		return ErrCodeRegionMinArea
	case s.RegionMergeArea < 0:
		return ErrCodeRegionMergeArea
	case s.TileSize <= 0:
		return ErrCodeTileSize
	}

	// Tiny cells would make the grid explode.
	if s.CellSize < 0.01 {
		s.CellSize = 0.01
	}
	if s.CellHeight < 0.01 {
		s.CellHeight = 0.01
	}
	cfg := newBuildConfig(s)

	if len(tris) == 0 || len(verts) == 0 {
		return ErrCodeNoGeometry
	}
	if !validTriangles(verts, tris) {
		return ErrCodeRasterize
	}
	if cfg.walkableClimb < 0 {
		return ErrCodeWalkableClimb
	}

	// Voxelize.
	solid := NewHeightfield(cfg.width, cfg.height, cfg.bmin, cfg.bmax, cfg.cs, cfg.ch)
	ntris := len(tris) / 3
	triAreas := make([]int, ntris)
	MarkWalkableTriangles(cfg.walkableSlopeAngle, verts, tris[:ntris*3], triAreas)
	for i := 0; i < ntris && i < len(areas); i++ {
		if areas[i] == NullArea {
			triAreas[i] = NullArea
		}
	}
	if err := RasterizeTriangles(solid, verts, tris[:ntris*3], triAreas, cfg.walkableClimb); err != nil {
		b.log.Debug("rasterize", zap.Error(err))
		return ErrCodeRasterize
	}

	// Drop spans the agent cannot stand on.
	FilterLowHangingWalkableObstacles(cfg.walkableClimb, solid)
	FilterLedgeSpans(cfg.walkableHeight, cfg.walkableClimb, solid)
	FilterWalkableLowHeightSpans(cfg.walkableHeight, solid)

	chf, err := BuildCompactHeightfield(cfg.walkableHeight, cfg.walkableClimb, solid)
	if err != nil {
		b.log.Debug("compact heightfield", zap.Error(err))
		return ErrCodeCompact
	}

	ErodeWalkableArea(cfg.walkableRadius, chf)
	for _, vol := range b.volumes {
		MarkConvexPolyArea(vol, chf)
	}

	BuildDistanceField(chf)
	if err := BuildRegions(chf, cfg.borderSize, cfg.minRegionArea, cfg.mergeRegionArea); err != nil {
		b.log.Debug("regions", zap.Error(err))
		return ErrCodeRegions
	}

	cset, err := BuildContours(chf, cfg.maxSimplifyError, cfg.maxEdgeLen, contourTessWallEdges)
	if err != nil {
		b.log.Debug("contours", zap.Error(err))
		return ErrCodeContours
	}

	pmesh, err := BuildPolyMesh(cset, cfg.maxVertsPerPoly)
	if err != nil {
		b.log.Debug("poly mesh", zap.Error(err))
		return ErrCodePolyMesh
	}
	if pmesh.nverts == 0 {
		return ErrCodePolyMeshNoVerts
	}
	if pmesh.verts == nil {
		return ErrCodePolyMeshNilVerts
	}

	dmesh, err := BuildPolyMeshDetail(pmesh, chf, cfg.detailSampleDist, cfg.detailSampleMaxError)
	if err != nil {
		b.log.Debug("detail mesh", zap.Error(err))
		return ErrCodeDetail
	}

	applyAreaFlags(pmesh, areas)

	blob, code := b.createDetourMesh(pmesh, dmesh)
	if code != 0 {
		return ErrCodeBlob + code
	}
	ret.NavmeshData = blob
	ret.NavmeshVertices = pmesh.worldVerts()
	return 0
}

// applyAreaFlags resolves the final polygon areas and flags. Polygons
// keep custom areas with flag 0. Walkable polygons take the caller area at
// the polygon index, when there is one, and flag 1.
func applyAreaFlags(pmesh *PolyMesh, areas []uint8) {
	for i := 0; i < pmesh.npolys; i++ {
		if pmesh.areas[i] == WalkableArea {
			pmesh.areas[i] = 0
		}
		if pmesh.areas[i] == 0 {
			if i < len(areas) && areas[i] != NullArea {
				pmesh.areas[i] = int(areas[i])
			}
			pmesh.flags[i] = 1
		}
	}
}

func (b *Builder) createDetourMesh(pmesh *PolyMesh, dmesh *PolyMeshDetail) ([]byte, int) {
	switch {
	case pmesh.nvp > VertsPerPoly:
		return nil, blobNvp
	case pmesh.nverts >= 0xffff:
		return nil, blobMaxVerts
	case pmesh.nverts == 0:
		return nil, blobNoVerts
	case pmesh.verts == nil:
		return nil, blobNilVerts
	case pmesh.npolys == 0:
		return nil, blobNoPolys
	case pmesh.polys == nil:
		return nil, blobNilPolys
	}

	s := &b.settings
	params := &detour.NavMeshCreateParams{
		Verts:            pmesh.Verts(),
		VertCount:        pmesh.nverts,
		Polys:            pmesh.Polys(),
		PolyAreas:        pmesh.Areas(),
		PolyFlags:        pmesh.Flags(),
		PolyCount:        pmesh.npolys,
		Nvp:              pmesh.nvp,
		DetailMeshes:     dmesh.Meshes(),
		DetailVerts:      dmesh.Verts(),
		DetailVertsCount: dmesh.nverts,
		DetailTris:       dmesh.Tris(),
		DetailTriCount:   dmesh.ntris,
		TileX:            s.TilePosition[0],
		TileY:            s.TilePosition[1],
		Bmin:             pmesh.bmin,
		Bmax:             pmesh.bmax,
		WalkableHeight:   s.AgentHeight,
		WalkableRadius:   s.AgentRadius,
		WalkableClimb:    s.AgentMaxClimb,
		Cs:               s.CellSize,
		Ch:               s.CellHeight,
		BuildBvTree:      true,
	}
	data, err := detour.CreateNavMeshData(params)
	if err != nil {
		b.log.Debug("create navmesh data", zap.Error(err))
		return nil, blobWriteFail
	}
	blob, err := data.Encode()
	if err != nil {
		b.log.Debug("encode navmesh data", zap.Error(err))
		return nil, blobWriteFail
	}
	if len(blob) == 0 {
		return nil, blobEmpty
	}
	return blob, 0
}

// TileResult is one tile produced by BuildTiles.
type TileResult struct {
	X, Y int
	*GeneratedData
}

// BuildTiles builds every tile of the grid covering geom with the current
// settings and calls fn for each tile that has polygons. Empty tiles are
// skipped. fn may stop the iteration by returning false.
func (b *Builder) BuildTiles(geom *InputGeom, fn func(TileResult) bool) (built, failed int) {
	base := b.settings
	defer func() { b.settings = base }()

	if !validTriangles(geom.verts, geom.tris) {
		b.log.Warn("build tiles: triangle indices out of range")
		return 0, 1
	}
	bmin, bmax := geom.Bounds()
	if base.CellSize < 0.01 {
		base.CellSize = 0.01
	}
	tw, th := CalcTileCount(bmin, bmax, base.CellSize, maxi(base.TileSize, 1))
	height := bmax[1] - bmin[1] + base.CellHeight
	chunky := geom.ChunkyMesh()
	vols := b.volumes
	b.volumes = geom.ConvexVolumes()
	defer func() { b.volumes = vols }()

	for ty := 0; ty < th; ty++ {
		for tx := 0; tx < tw; tx++ {
			s := base
			s.BoundingBox = base.TileBounds(bmin, height, tx, ty)
			s.TilePosition = [2]int32{int32(tx), int32(ty)}
			b.settings = s

			// Triangles of the tile and its border.
			cfg := newBuildConfig(&s)
			rmin := [2]float32{cfg.bmin[0], cfg.bmin[2]}
			rmax := [2]float32{cfg.bmax[0], cfg.bmax[2]}
			ids := chunky.TrisOverlappingRect(rmin, rmax)
			if len(ids) == 0 {
				continue
			}
			tris := make([]int, 0, len(ids)*3)
			areas := make([]uint8, 0, len(ids))
			for _, id := range ids {
				tris = append(tris, geom.tris[id*3], geom.tris[id*3+1], geom.tris[id*3+2])
				area := uint8(WalkableArea)
				if id < len(geom.areas) {
					area = geom.areas[id]
				}
				areas = append(areas, area)
			}

			res := b.BuildNavmesh(geom.verts, tris, areas)
			if !res.Success {
				// Tiles without walkable surface are not failures.
				if res.Error == ErrCodePolyMeshNoVerts {
					continue
				}
				failed++
				continue
			}
			built++
			if !fn(TileResult{X: tx, Y: ty, GeneratedData: res}) {
				return built, failed
			}
		}
	}
	return built, failed
}

// validTriangles reports whether verts holds whole (x, y, z) triples and
// every triangle index points at one of them.
func validTriangles(verts []float32, tris []int) bool {
	if len(verts)%3 != 0 {
		return false
	}
	nverts := len(verts) / 3
	for _, idx := range tris[:len(tris)/3*3] {
		if idx < 0 || idx >= nverts {
			return false
		}
	}
	return true
}
