package detour

// MeshHeader is the fixed size head of a tile blob.
type MeshHeader struct {
	Magic   int32
	Version int32
	// Tile grid location (x, y, layer).
	X     int32
	Y     int32
	Layer int32
	// UserID is copied from the build parameters.
	UserID uint32

	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	// Unique detail vertices, the polygon vertices are not repeated.
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32

	// Agent dimensions the tile was built for, world units.
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32

	Bmin [3]float32
	Bmax [3]float32

	BvQuantFactor float32
}
