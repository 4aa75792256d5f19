package detour

import "github.com/go-gl/mathgl/mgl32"

// NavMeshParams configures the tile grid of a NavMesh.
type NavMeshParams struct {
	// World space origin of tile (0,0).
	Orig mgl32.Vec3
	// Tile size along x and z.
	TileWidth  float32
	TileHeight float32
	MaxTiles   uint32
	// Maximum number of polygons in one tile.
	MaxPolys uint32
}
