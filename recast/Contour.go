package recast

// Contour is the outline of one region, in voxel coordinates. Each vertex
// is (x, y, z, r) where r holds the neighbour region and the border flags.
type Contour struct {
	// Simplified vertices. [Size: 4 * nverts]
	verts  []int
	nverts int
	// Raw vertices as traced along the region edge. [Size: 4 * nrverts]
	rverts  []int
	nrverts int
	reg     int
	area    int
}

// contourHole is a backwards wound contour waiting to be merged into the
// outline of its region.
type contourHole struct {
	contour    *Contour
	minx, minz int
	leftmost   int
}

type contourRegion struct {
	outline *Contour
	holes   []contourHole
}

type potentialDiagonal struct {
	vert int
	dist int
}
