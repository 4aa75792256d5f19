package detour

import "math"

const (
	// VertsPerPolygon is the maximum number of vertices per navigation polygon.
	VertsPerPolygon = 6

	// NavMeshMagic identifies tile blobs. ('D'<<24 | 'N'<<16 | 'A'<<8 | 'V')
	NavMeshMagic int32 = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	// NavMeshVersion is the tile blob format version.
	NavMeshVersion int32 = 7

	// ExtLink marks a polygon edge as a portal to a neighbouring tile.
	ExtLink uint16 = 0x8000
	// NullLink terminates a polygon link list.
	NullLink uint32 = 0xffffffff

	// MaxAreas is the number of user defined area ids.
	MaxAreas = 64
	// MeshNullIdx marks an unused polygon vertex slot in build input.
	MeshNullIdx = 0xffff

	PolyTypeGround            uint8 = 0
	PolyTypeOffMeshConnection uint8 = 1

	// HScale scales the A* heuristic.
	HScale float32 = 0.999

	nodeOpen   uint8 = 0x01
	nodeClosed uint8 = 0x02

	maxFloat32 float32 = math.MaxFloat32
)

// Straight path vertex flags.
const (
	StraightPathStart             uint8 = 0x01
	StraightPathEnd               uint8 = 0x02
	StraightPathOffMeshConnection uint8 = 0x04
)

// Straight path options.
const (
	StraightPathAreaCrossings = 0x01 // vertex at every edge crossing where the area changes
	StraightPathAllCrossings  = 0x02 // vertex at every polygon edge crossing
)
