package recast

// BoundingBox is an axis aligned box in world units.
type BoundingBox struct {
	Min [3]float32 `toml:"min" yaml:"min"`
	Max [3]float32 `toml:"max" yaml:"max"`
}

// BuildSettings describes one tile build. Sizes are in world units unless
// noted.
type BuildSettings struct {
	// Bounds of the tile to build, without border.
	BoundingBox BoundingBox `toml:"bounding_box" yaml:"bounding_box"`
	// The y-axis cell size. [Limit: >= 0.01]
	CellHeight float32 `toml:"cell_height" yaml:"cell_height"`
	// The xz-plane cell size. [Limit: >= 0.01]
	CellSize float32 `toml:"cell_size" yaml:"cell_size"`
	// Tile width and depth in cells. [Limit: > 0]
	TileSize     int      `toml:"tile_size" yaml:"tile_size"`
	TilePosition [2]int32 `toml:"tile_position" yaml:"tile_position"`
	// Minimum span count of an isolated region. [Units: vx]
	RegionMinArea int `toml:"region_min_area" yaml:"region_min_area"`
	// Regions smaller than this are merged into neighbours. [Units: vx]
	RegionMergeArea int `toml:"region_merge_area" yaml:"region_merge_area"`
	// Maximum length of border contour edges.
	EdgeMaxLen float32 `toml:"edge_max_len" yaml:"edge_max_len"`
	// Maximum deviation of simplified contours from the raw ones. [Units: vx]
	EdgeMaxError float32 `toml:"edge_max_error" yaml:"edge_max_error"`
	// Detail sample spacing in cell sizes. [Limit: >= 1]
	DetailSampleDist float32 `toml:"detail_sample_dist" yaml:"detail_sample_dist"`
	// Maximum detail surface deviation in cell heights. [Limit: > 0]
	DetailSampleMaxError float32 `toml:"detail_sample_max_error" yaml:"detail_sample_max_error"`
	AgentHeight          float32 `toml:"agent_height" yaml:"agent_height"`
	AgentRadius          float32 `toml:"agent_radius" yaml:"agent_radius"`
	AgentMaxClimb        float32 `toml:"agent_max_climb" yaml:"agent_max_climb"`
	// Maximum walkable slope in degrees.
	AgentMaxSlope float32 `toml:"agent_max_slope" yaml:"agent_max_slope"`
}

// DefaultBuildSettings returns the stock settings with an empty bounding
// box.
func DefaultBuildSettings() BuildSettings {
	return BuildSettings{
		CellHeight:           0.2,
		CellSize:             0.3,
		TileSize:             64,
		RegionMinArea:        2,
		RegionMergeArea:      20,
		EdgeMaxLen:           12,
		EdgeMaxError:         1.3,
		DetailSampleDist:     6,
		DetailSampleMaxError: 1,
		AgentHeight:          2,
		AgentRadius:          0.5,
		AgentMaxClimb:        0.4,
		AgentMaxSlope:        45,
	}
}

// TileWidth returns the world size of one tile on x and z.
func (s *BuildSettings) TileWidth() float32 {
	return float32(s.TileSize) * s.CellSize
}

// TileBounds returns the bounds of tile (tx, ty) of a grid starting at
// origin, spanning height on y.
func (s *BuildSettings) TileBounds(origin [3]float32, height float32, tx, ty int) BoundingBox {
	tw := s.TileWidth()
	var bb BoundingBox
	bb.Min = [3]float32{origin[0] + float32(tx)*tw, origin[1], origin[2] + float32(ty)*tw}
	bb.Max = [3]float32{bb.Min[0] + tw, origin[1] + height, bb.Min[2] + tw}
	return bb
}
