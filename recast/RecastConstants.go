package recast

const (
	// NullArea marks unwalkable spans and triangles.
	NullArea = 0
	// WalkableArea is the default area of walkable spans.
	WalkableArea = 63

	// spanHeightBits is the number of bits of span heights.
	spanHeightBits = 13
	// spanMaxHeight is the largest span height value. [Limit: (1 << spanHeightBits) - 1]
	spanMaxHeight = 1<<spanHeightBits - 1
	maxHeight     = 0xffff

	// notConnected is the connection value of a span side without neighbour.
	notConnected = 0x3f
	maxLayers    = notConnected - 1

	// borderReg flags regions that touch the tile border.
	borderReg = 0x8000

	contourTessWallEdges = 0x01
	contourTessAreaEdges = 0x02
	// borderVertex flags contour vertices on the tile border.
	borderVertex = 0x10000
	// areaBorder flags contour vertices where the area changes.
	areaBorder     = 0x20000
	contourRegMask = 0xffff

	meshNullIdx  = 0xffff
	multipleRegs = 0

	vertexBucketCount = 1 << 12
	unsetHeight       = 0xffff

	// nbStacks is the number of level stacks used by the watershed.
	logNbStacks = 3
	nbStacks    = 1 << logNbStacks

	// Polygon mesh detail limits.
	maxVertsPerEdge = 32
	maxDetailVerts  = 127
	maxDetailTris   = 255

	evUndef = -1
	evHull  = -2

	// VertsPerPoly is the maximum number of vertices per navmesh polygon.
	VertsPerPoly = 6
)
