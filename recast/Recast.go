package recast

import "math"

// CalcGridSize returns the number of cells covering the bounds on x and z.
func CalcGridSize(bmin, bmax [3]float32, cs float32) (w, h int) {
	return int((bmax[0]-bmin[0])/cs + 0.5), int((bmax[2]-bmin[2])/cs + 0.5)
}

// CalcTileCount returns the number of tiles of tileSize cells covering
// the bounds.
func CalcTileCount(bmin, bmax [3]float32, cs float32, tileSize int) (tw, th int) {
	gw, gh := CalcGridSize(bmin, bmax, cs)
	return (gw + tileSize - 1) / tileSize, (gh + tileSize - 1) / tileSize
}

// MarkWalkableTriangles sets areas[i] to WalkableArea for every triangle
// whose slope is below walkableSlopeAngle degrees. Other entries are left
// unchanged.
func MarkWalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int, areas []int) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		calcTriNormal(verts, tris[i*3], tris[i*3+1], tris[i*3+2], norm[:])
		if norm[1] > walkableThr {
			areas[i] = WalkableArea
		}
	}
}

// ClearUnwalkableTriangles sets areas[i] to NullArea for every triangle
// steeper than walkableSlopeAngle degrees.
func ClearUnwalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int, areas []int) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		calcTriNormal(verts, tris[i*3], tris[i*3+1], tris[i*3+2], norm[:])
		if norm[1] <= walkableThr {
			areas[i] = NullArea
		}
	}
}

func calcTriNormal(verts []float32, v0, v1, v2 int, norm []float32) {
	var e0, e1 [3]float32
	vsub(e0[:], verts, v1*3, v0*3)
	vsub(e1[:], verts, v2*3, v0*3)
	vcross(norm, e0[:], e1[:])
	vnormalize(norm)
}
