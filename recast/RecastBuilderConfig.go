package recast

import "math"

// buildConfig holds the voxel unit values derived from BuildSettings.
type buildConfig struct {
	cs, ch               float32
	walkableSlopeAngle   float32
	walkableHeight       int
	walkableClimb        int
	walkableRadius       int
	maxEdgeLen           int
	maxSimplifyError     float32
	minRegionArea        int
	mergeRegionArea      int
	maxVertsPerPoly      int
	detailSampleDist     float32
	detailSampleMaxError float32

	// Grid of the tile including its border.
	width, height int
	borderSize    int
	bmin, bmax    [3]float32
}

func newBuildConfig(s *BuildSettings) buildConfig {
	cs, ch := s.CellSize, s.CellHeight
	cfg := buildConfig{
		cs:                   cs,
		ch:                   ch,
		walkableSlopeAngle:   s.AgentMaxSlope,
		walkableHeight:       int(math.Ceil(float64(s.AgentHeight / ch))),
		walkableClimb:        int(math.Floor(float64(s.AgentMaxClimb / ch))),
		walkableRadius:       int(math.Ceil(float64(s.AgentRadius / cs))),
		maxEdgeLen:           int(s.EdgeMaxLen / cs),
		maxSimplifyError:     s.EdgeMaxError,
		minRegionArea:        s.RegionMinArea,
		mergeRegionArea:      s.RegionMergeArea,
		maxVertsPerPoly:      VertsPerPoly,
		detailSampleDist:     cs * s.DetailSampleDist,
		detailSampleMaxError: ch * s.DetailSampleMaxError,
		bmin:                 s.BoundingBox.Min,
		bmax:                 s.BoundingBox.Max,
	}

	// Tiles connect correctly only when geometry around them is voxelized
	// too. The border is cut away again when the contours are built.
	//
	// :''''''''':
	// : +-----+ :
	// : |     | :
	// : |     |<--- tile to build
	// : |     | :
	// : +-----+ :<-- geometry needed
	// :.........:
	cfg.borderSize = cfg.walkableRadius + 3
	pad := float32(cfg.borderSize) * cs
	cfg.bmin[0] -= pad
	cfg.bmin[2] -= pad
	cfg.bmax[0] += pad
	cfg.bmax[2] += pad
	cfg.width = s.TileSize + cfg.borderSize*2
	cfg.height = s.TileSize + cfg.borderSize*2
	return cfg
}
