package detour

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var equalThreshold = sqr(1.0 / 16384.0)

func sqr(a float32) float32 {
	return a * a
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func nextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func ilog2(v uint32) uint32 {
	var r, shift uint32
	if v > 0xffff {
		r = 1 << 4
	}
	v >>= r
	if v > 0xff {
		shift = 1 << 3
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	if v > 0xf {
		shift = 1 << 2
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	if v > 0x3 {
		shift = 1 << 1
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

func oppositeTile(side int) int {
	return (side + 4) & 0x7
}

func vLerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

func vDist(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}

func vDistSqr(a, b mgl32.Vec3) float32 {
	d := b.Sub(a)
	return d.Dot(d)
}

func vDot2D(u, v mgl32.Vec3) float32 {
	return u[0]*v[0] + u[2]*v[2]
}

func vPerp2D(u, v mgl32.Vec3) float32 {
	return u[2]*v[0] - u[0]*v[2]
}

func vEqual(p0, p1 mgl32.Vec3) bool {
	return vDistSqr(p0, p1) < equalThreshold
}

func vMin(a, b mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		if b[i] < a[i] {
			a[i] = b[i]
		}
	}
	return a
}

func vMax(a, b mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		if b[i] > a[i] {
			a[i] = b[i]
		}
	}
	return a
}

// TriArea2D returns the signed xz-plane area of the triangle abc, doubled.
func TriArea2D(a, b, c mgl32.Vec3) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

func overlapQuantBounds(amin, amax, bmin, bmax [3]uint16) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

func overlapBounds(amin, amax, bmin, bmax mgl32.Vec3) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// DistancePtSegSqr2D returns the squared xz distance from pt to segment pq
// and the parameter of the closest point along pq.
func DistancePtSegSqr2D(pt, p, q mgl32.Vec3) (float32, float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// distancePtPolyEdgesSqr fills ed/et with the squared distance and segment
// parameter for every edge (j, j+1) and reports whether pt is inside.
func distancePtPolyEdgesSqr(pt mgl32.Vec3, verts []mgl32.Vec3, ed, et []float32) bool {
	c := false
	nv := len(verts)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		vi, vj := verts[i], verts[j]
		if (vi[2] > pt[2]) != (vj[2] > pt[2]) &&
			pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			c = !c
		}
		ed[j], et[j] = DistancePtSegSqr2D(pt, vj, vi)
	}
	return c
}

// PointInPolygon tests pt against the xz projection of a convex polygon.
func PointInPolygon(pt mgl32.Vec3, verts []mgl32.Vec3) bool {
	c := false
	nv := len(verts)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		vi, vj := verts[i], verts[j]
		if (vi[2] > pt[2]) != (vj[2] > pt[2]) &&
			pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			c = !c
		}
	}
	return c
}

func closestHeightPointTriangle(p, a, b, c mgl32.Vec3) (float32, bool) {
	const eps = 1e-4
	v0 := c.Sub(a)
	v1 := b.Sub(a)
	v2 := p.Sub(a)

	dot00 := vDot2D(v0, v0)
	dot01 := vDot2D(v0, v1)
	dot02 := vDot2D(v0, v2)
	dot11 := vDot2D(v1, v1)
	dot12 := vDot2D(v1, v2)

	denom := dot00*dot11 - dot01*dot01
	if absf(denom) < 1e-12 {
		return 0, false
	}
	invDenom := 1.0 / denom
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	// The sloppy epsilon lets points on the triangle edges get a height.
	if u >= -eps && v >= -eps && (u+v) <= 1+eps {
		return a[1] + v0[1]*u + v1[1]*v, true
	}
	return 0, false
}

func intersectSegSeg2D(ap, aq, bp, bq mgl32.Vec3) (s, t float32, ok bool) {
	u := aq.Sub(ap)
	v := bq.Sub(bp)
	w := ap.Sub(bp)
	d := vPerp2D(u, v)
	if absf(d) < 1e-6 {
		return 0, 0, false
	}
	s = vPerp2D(v, w) / d
	t = vPerp2D(u, w) / d
	return s, t, true
}

// intersectSegmentPoly2D clips segment p0-p1 against a convex polygon.
// segMin/segMax are the entering/leaving edge indices or -1.
func intersectSegmentPoly2D(p0, p1 mgl32.Vec3, verts []mgl32.Vec3) (tmin, tmax float32, segMin, segMax int, ok bool) {
	const eps = 0.000001
	tmin, tmax = 0, 1
	segMin, segMax = -1, -1
	dir := p1.Sub(p0)
	nv := len(verts)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		edge := verts[i].Sub(verts[j])
		diff := p0.Sub(verts[j])
		n := vPerp2D(edge, diff)
		d := vPerp2D(dir, edge)
		if absf(d) < eps {
			// Nearly parallel to this edge.
			if n < 0 {
				return tmin, tmax, segMin, segMax, false
			}
			continue
		}
		t := n / d
		if d < 0 {
			// Entering across this edge.
			if t > tmin {
				tmin = t
				segMin = j
				if tmin > tmax {
					return tmin, tmax, segMin, segMax, false
				}
			}
		} else {
			// Leaving across this edge.
			if t < tmax {
				tmax = t
				segMax = j
				if tmax < tmin {
					return tmin, tmax, segMin, segMax, false
				}
			}
		}
	}
	return tmin, tmax, segMin, segMax, true
}

func projectPoly(axis mgl32.Vec3, poly []mgl32.Vec3) (rmin, rmax float32) {
	rmin = vDot2D(axis, poly[0])
	rmax = rmin
	for i := 1; i < len(poly); i++ {
		d := vDot2D(axis, poly[i])
		if d < rmin {
			rmin = d
		}
		if d > rmax {
			rmax = d
		}
	}
	return rmin, rmax
}

func overlapRange(amin, amax, bmin, bmax, eps float32) bool {
	return !(amin+eps > bmax || amax-eps < bmin)
}

// overlapPolyPoly2D is a separating axis test of two convex polygons on xz.
func overlapPolyPoly2D(polya, polyb []mgl32.Vec3) bool {
	const eps = 1e-4
	for _, p := range [][]mgl32.Vec3{polya, polyb} {
		for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
			va, vb := p[j], p[i]
			n := mgl32.Vec3{vb[2] - va[2], 0, -(vb[0] - va[0])}
			amin, amax := projectPoly(n, polya)
			bmin, bmax := projectPoly(n, polyb)
			if !overlapRange(amin, amax, bmin, bmax, eps) {
				return false
			}
		}
	}
	return true
}

// randomPointInConvexPoly picks a point using two uniform numbers in [0,1).
func randomPointInConvexPoly(pts []mgl32.Vec3, s, t float32) mgl32.Vec3 {
	npts := len(pts)
	areas := make([]float32, npts)
	var areasum float32
	for i := 2; i < npts; i++ {
		areas[i] = absf(TriArea2D(pts[0], pts[i-1], pts[i]))
		if areas[i] > 0.001 {
			areasum += areas[i]
		} else {
			areasum += 0.001
		}
	}
	thr := s * areasum
	var acc float32
	u := float32(1)
	tri := npts - 1
	for i := 2; i < npts; i++ {
		dacc := areas[i]
		if thr >= acc && thr < acc+dacc {
			u = (thr - acc) / dacc
			tri = i
			break
		}
		acc += dacc
	}
	v := sqrtf(t)
	a := 1 - v
	b := (1 - u) * v
	c := u * v
	pa, pb, pc := pts[0], pts[tri-1], pts[tri]
	return pa.Mul(a).Add(pb.Mul(b)).Add(pc.Mul(c))
}
