package detour

// NavMeshCreateParams is the input of CreateNavMeshData, taken from the
// recast polygon and detail meshes.
type NavMeshCreateParams struct {
	// Polygon mesh vertices in voxel units. [(x, y, z) * VertCount]
	Verts     []int
	VertCount int
	// Polygon data, Nvp vertex indices followed by Nvp neighbour entries per polygon.
	Polys     []int
	PolyFlags []int
	PolyAreas []int
	PolyCount int
	Nvp       int

	// Optional height detail. DetailMeshes holds (vertBase, vertCount, triBase, triCount) per polygon.
	DetailMeshes     []int
	DetailVerts      []float32
	DetailVertsCount int
	DetailTris       []int
	DetailTriCount   int

	UserID    uint32
	TileX     int32
	TileY     int32
	TileLayer int32
	Bmin      [3]float32
	Bmax      [3]float32

	// World unit agent dimensions.
	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	Cs             float32
	Ch             float32

	BuildBvTree bool
}
