package recast

import (
	"fmt"
	"math"
)

// heightPatch caches the span heights under the bounds of one polygon.
type heightPatch struct {
	data                      []int
	xmin, ymin, width, height int
}

// BuildPolyMeshDetail samples chf under every polygon of mesh and builds
// a triangle mesh that follows the surface height within sampleMaxError.
// Samples are taken every sampleDist world units.
func BuildPolyMeshDetail(mesh *PolyMesh, chf *CompactHeightfield, sampleDist, sampleMaxError float32) (*PolyMeshDetail, error) {
	if mesh.nverts == 0 || mesh.npolys == 0 {
		return nil, fmt.Errorf("build detail mesh: empty poly mesh")
	}
	nvp := mesh.nvp
	cs, ch := mesh.cs, mesh.ch
	orig := mesh.bmin
	borderSize := mesh.borderSize
	heightSearchRadius := maxi(1, int(math.Ceil(float64(mesh.maxEdgeError))))

	verts := make([]float32, maxDetailVerts*3)
	poly := make([]float32, nvp*3)
	var tris []int

	// Find the largest polygon bounds.
	nPolyVerts := 0
	maxhw, maxhh := 0, 0
	bounds := make([]int, mesh.npolys*4)
	for i := 0; i < mesh.npolys; i++ {
		p := mesh.polys[i*nvp*2:]
		b := bounds[i*4 : i*4+4]
		b[0], b[1], b[2], b[3] = chf.width, 0, chf.height, 0
		for j := 0; j < nvp && p[j] != meshNullIdx; j++ {
			v := mesh.verts[p[j]*3 : p[j]*3+3]
			b[0] = mini(b[0], v[0])
			b[1] = maxi(b[1], v[0])
			b[2] = mini(b[2], v[2])
			b[3] = maxi(b[3], v[2])
			nPolyVerts++
		}
		b[0] = maxi(0, b[0]-1)
		b[1] = mini(chf.width, b[1]+1)
		b[2] = maxi(0, b[2]-1)
		b[3] = mini(chf.height, b[3]+1)
		if b[0] >= b[1] || b[2] >= b[3] {
			continue
		}
		maxhw = maxi(maxhw, b[1]-b[0])
		maxhh = maxi(maxhh, b[3]-b[2])
	}
	hp := &heightPatch{data: make([]int, maxhw*maxhh)}

	dmesh := &PolyMeshDetail{
		nmeshes: mesh.npolys,
		meshes:  make([]int, mesh.npolys*4),
		verts:   make([]float32, 0, (nPolyVerts+nPolyVerts/2)*3),
		tris:    make([]int, 0, (nPolyVerts+nPolyVerts/2)*2*4),
	}

	var queue []int
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2

		npoly := 0
		for j := 0; j < nvp; j++ {
			if mesh.polys[p+j] == meshNullIdx {
				break
			}
			v := mesh.polys[p+j] * 3
			poly[j*3] = float32(mesh.verts[v]) * cs
			poly[j*3+1] = float32(mesh.verts[v+1]) * ch
			poly[j*3+2] = float32(mesh.verts[v+2]) * cs
			npoly++
		}

		hp.xmin = bounds[i*4]
		hp.ymin = bounds[i*4+2]
		hp.width = bounds[i*4+1] - bounds[i*4]
		hp.height = bounds[i*4+3] - bounds[i*4+2]
		queue = getHeightData(chf, mesh.polys[p:p+npoly], mesh.verts, borderSize, hp, mesh.regs[i], queue[:0])

		nverts, err := buildPolyDetail(poly, npoly, sampleDist, sampleMaxError, heightSearchRadius, chf, hp, verts, &tris)
		if err != nil {
			return nil, fmt.Errorf("build detail mesh: poly %d: %w", i, err)
		}

		// Move detail verts to world space.
		for j := 0; j < nverts; j++ {
			verts[j*3] += orig[0]
			verts[j*3+1] += orig[1] + chf.ch
			verts[j*3+2] += orig[2]
		}
		// The polygon is used for the edge flags.
		for j := 0; j < npoly; j++ {
			poly[j*3] += orig[0]
			poly[j*3+1] += orig[1]
			poly[j*3+2] += orig[2]
		}

		ntris := len(tris) / 4
		dmesh.meshes[i*4] = dmesh.nverts
		dmesh.meshes[i*4+1] = nverts
		dmesh.meshes[i*4+2] = dmesh.ntris
		dmesh.meshes[i*4+3] = ntris

		dmesh.verts = append(dmesh.verts, verts[:nverts*3]...)
		dmesh.nverts += nverts
		for j := 0; j < ntris; j++ {
			t := tris[j*4 : j*4+4]
			flags := getTriFlags(verts, t[0]*3, t[1]*3, t[2]*3, poly, npoly)
			dmesh.tris = append(dmesh.tris, t[0], t[1], t[2], flags)
		}
		dmesh.ntris += ntris
	}
	return dmesh, nil
}

// getTriFlags marks the triangle edges that lie on the polygon outline.
func getTriFlags(verts []float32, va, vb, vc int, poly []float32, npoly int) int {
	flags := getEdgeFlags(verts, va, vb, poly, npoly)
	flags |= getEdgeFlags(verts, vb, vc, poly, npoly) << 2
	flags |= getEdgeFlags(verts, vc, va, poly, npoly) << 4
	return flags
}

func getEdgeFlags(verts []float32, va, vb int, poly []float32, npoly int) int {
	const thrSqr = float32(0.001 * 0.001)
	for i, j := 0, npoly-1; i < npoly; j, i = i, i+1 {
		if distancePtSeg2D(verts[va:], poly, j*3, i*3) < thrSqr && distancePtSeg2D(verts[vb:], poly, j*3, i*3) < thrSqr {
			return 1
		}
	}
	return 0
}

// buildPolyDetail tessellates the polygon in and adds interior samples
// until the surface error is within sampleMaxError. It writes the detail
// vertices into verts, the triangles into tris and returns the vertex count.
func buildPolyDetail(in []float32, nin int, sampleDist, sampleMaxError float32, heightSearchRadius int, chf *CompactHeightfield, hp *heightPatch, verts []float32, tris *[]int) (int, error) {
	var edge [(maxVertsPerEdge + 1) * 3]float32
	var hull [maxDetailVerts]int
	var idx [maxVertsPerEdge]int
	nhull := 0

	nverts := nin
	copy(verts, in[:nin*3])
	*tris = (*tris)[:0]

	cs := chf.cs
	ics := 1 / cs

	minExtent := polyMinExtent(verts, nverts)

	// Tessellate the outlines in a separate pass so heights match across
	// polygon boundaries.
	if sampleDist > 0 {
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj := j * 3
			vi := i * 3
			swapped := false
			// Handle segments in lexicographic order or there will be
			// seams.
			if absf(in[vj]-in[vi]) < 1e-6 {
				if in[vj+2] > in[vi+2] {
					vi, vj = vj, vi
					swapped = true
				}
			} else if in[vj] > in[vi] {
				vi, vj = vj, vi
				swapped = true
			}

			// Create samples along the edge.
			dx := in[vi] - in[vj]
			dy := in[vi+1] - in[vj+1]
			dz := in[vi+2] - in[vj+2]
			d := float32(math.Sqrt(float64(dx*dx + dz*dz)))
			nn := 1 + int(math.Floor(float64(d/sampleDist)))
			if nn >= maxVertsPerEdge {
				nn = maxVertsPerEdge - 1
			}
			if nverts+nn >= maxDetailVerts {
				nn = maxDetailVerts - 1 - nverts
			}
			for k := 0; k <= nn; k++ {
				u := float32(k) / float32(nn)
				pos := edge[k*3 : k*3+3]
				pos[0] = in[vj] + dx*u
				pos[1] = in[vj+1] + dy*u
				pos[2] = in[vj+2] + dz*u
				pos[1] = float32(getHeight(pos[0], pos[1], pos[2], ics, chf.ch, heightSearchRadius, hp)) * chf.ch
			}

			// Simplify samples.
			idx[0] = 0
			idx[1] = nn
			nidx := 2
			for k := 0; k < nidx-1; {
				a := idx[k]
				b := idx[k+1]
				maxd := float32(0)
				maxIdx := -1
				for m := a + 1; m < b; m++ {
					if dev := distancePtSegSqr3D(edge[:], m*3, a*3, b*3); dev > maxd {
						maxd = dev
						maxIdx = m
					}
				}
				if maxIdx != -1 && maxd > sqr(sampleMaxError) {
					copy(idx[k+2:nidx+1], idx[k+1:nidx])
					idx[k+1] = maxIdx
					nidx++
				} else {
					k++
				}
			}

			hull[nhull] = j
			nhull++
			// Add new vertices.
			if swapped {
				for k := nidx - 2; k > 0; k-- {
					vcopy(verts, nverts*3, edge[:], idx[k]*3)
					hull[nhull] = nverts
					nhull++
					nverts++
				}
			} else {
				for k := 1; k < nidx-1; k++ {
					vcopy(verts, nverts*3, edge[:], idx[k]*3)
					hull[nhull] = nverts
					nhull++
					nverts++
				}
			}
		}
	}

	// Slivers and small triangles get no interior samples.
	if minExtent < sampleDist*2 {
		triangulateHull(verts, hull[:nhull], tris)
		return nverts, nil
	}

	// triangulateHull gives better triangles than delaunayHull for long
	// thin polygons without interior points.
	triangulateHull(verts, hull[:nhull], tris)
	if len(*tris) == 0 {
		return 0, fmt.Errorf("could not triangulate polygon (%d verts)", nverts)
	}

	if sampleDist > 0 {
		// Create sample locations in a grid.
		var bmin, bmax [3]float32
		vcopy(bmin[:], 0, in, 0)
		vcopy(bmax[:], 0, in, 0)
		for i := 1; i < nin; i++ {
			vmin(bmin[:], in, i*3)
			vmax(bmax[:], in, i*3)
		}
		x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
		x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
		z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
		z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
		var samples []int
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				pt := [3]float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
				// Keep samples away from the edges.
				if distToPoly(nin, in, pt[:]) > -sampleDist/2 {
					continue
				}
				samples = append(samples, x, getHeight(pt[0], pt[1], pt[2], ics, chf.ch, heightSearchRadius, hp), z, 0)
			}
		}

		// Add the sample with the largest error until all samples are in
		// or the error is within the threshold.
		nsamples := len(samples) / 4
		for iter := 0; iter < nsamples; iter++ {
			if nverts >= maxDetailVerts {
				break
			}
			var bestpt [3]float32
			bestd := float32(0)
			besti := -1
			for i := 0; i < nsamples; i++ {
				s := samples[i*4 : i*4+4]
				if s[3] != 0 {
					continue
				}
				// Jitter the sample location to avoid bad triangulations of
				// the symmetric grid.
				pt := [3]float32{
					float32(s[0])*sampleDist + getJitterX(i)*cs*0.1,
					float32(s[1]) * chf.ch,
					float32(s[2])*sampleDist + getJitterY(i)*cs*0.1,
				}
				d := distToTriMesh(pt[:], verts, *tris)
				if d < 0 {
					continue
				}
				if d > bestd {
					bestd = d
					besti = i
					bestpt = pt
				}
			}
			if bestd <= sampleMaxError || besti == -1 {
				break
			}
			samples[besti*4+3] = 1
			vcopy(verts, nverts*3, bestpt[:], 0)
			nverts++

			// TODO: add the point incrementally instead of rebuilding the
			// whole triangulation.
			delaunayHull(nverts, verts, hull[:nhull], tris)
		}
	}

	if len(*tris)/4 > maxDetailTris {
		*tris = (*tris)[:maxDetailTris*4]
	}
	return nverts, nil
}

// delaunayHull triangulates the first npts points of pts inside the hull.
func delaunayHull(npts int, pts []float32, hull []int, tris *[]int) {
	nfaces := 0
	maxEdges := npts * 10
	edges := make([]int, 0, maxEdges*4)
	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		edges = addEdge(edges, maxEdges, hull[j], hull[i], evHull, evUndef)
	}
	for e := 0; e < len(edges)/4; e++ {
		if edges[e*4+2] == evUndef {
			edges, nfaces = completeFacet(pts, npts, edges, maxEdges, nfaces, e)
		}
		if edges[e*4+3] == evUndef {
			edges, nfaces = completeFacet(pts, npts, edges, maxEdges, nfaces, e)
		}
	}

	// Create triangles.
	t := (*tris)[:0]
	for i := 0; i < nfaces*4; i++ {
		t = append(t, -1)
	}
	for i := 0; i < len(edges)/4; i++ {
		e := edges[i*4 : i*4+4]
		if e[3] >= 0 {
			// Left face.
			f := t[e[3]*4:]
			if f[0] == -1 {
				f[0], f[1] = e[0], e[1]
			} else if f[0] == e[1] {
				f[2] = e[0]
			} else if f[1] == e[0] {
				f[2] = e[1]
			}
		}
		if e[2] >= 0 {
			// Right face.
			f := t[e[2]*4:]
			if f[0] == -1 {
				f[0], f[1] = e[1], e[0]
			} else if f[0] == e[0] {
				f[2] = e[1]
			} else if f[1] == e[1] {
				f[2] = e[0]
			}
		}
	}

	// Remove dangling faces.
	for i := 0; i < len(t)/4; i++ {
		f := t[i*4 : i*4+4]
		if f[0] == -1 || f[1] == -1 || f[2] == -1 {
			copy(f, t[len(t)-4:])
			t = t[:len(t)-4]
			i--
		}
	}
	*tris = t
}

func completeFacet(pts []float32, npts int, edges []int, maxEdges, nfaces, e int) ([]int, int) {
	const eps = 1e-5
	const tol = 0.001

	var s, t int
	switch {
	case edges[e*4+2] == evUndef:
		s, t = edges[e*4], edges[e*4+1]
	case edges[e*4+3] == evUndef:
		s, t = edges[e*4+1], edges[e*4]
	default:
		// Edge already completed.
		return edges, nfaces
	}

	// Find the best point on the left of the edge.
	pt := npts
	var c [3]float32
	r := float32(-1)
	for u := 0; u < npts; u++ {
		if u == s || u == t {
			continue
		}
		if vcross2D(pts, s*3, t*3, u*3) <= eps {
			continue
		}
		if r < 0 {
			// The circle is not updated yet, do it now.
			pt = u
			c, r = circumCircle(pts, s*3, t*3, u*3)
			continue
		}
		dx := c[0] - pts[u*3]
		dz := c[2] - pts[u*3+2]
		d := float32(math.Sqrt(float64(dx*dx + dz*dz)))
		switch {
		case d > r*(1+tol):
			// Outside the current circumcircle.
			continue
		case d < r*(1-tol):
			// Inside the safe circumcircle.
			pt = u
			c, r = circumCircle(pts, s*3, t*3, u*3)
		default:
			// Inside the epsilon circumcircle. s-u and t-u must not
			// overlap existing edges.
			if overlapEdges(pts, edges, s, u) || overlapEdges(pts, edges, t, u) {
				continue
			}
			pt = u
			c, r = circumCircle(pts, s*3, t*3, u*3)
		}
	}

	// Add a new triangle or mark s-t as hull.
	if pt < npts {
		updateLeftFace(edges, e, s, t, nfaces)

		if ei := findEdge(edges, pt, s); ei == evUndef {
			edges = addEdge(edges, maxEdges, pt, s, nfaces, evUndef)
		} else {
			updateLeftFace(edges, ei, pt, s, nfaces)
		}
		if ei := findEdge(edges, t, pt); ei == evUndef {
			edges = addEdge(edges, maxEdges, t, pt, nfaces, evUndef)
		} else {
			updateLeftFace(edges, ei, t, pt, nfaces)
		}
		nfaces++
	} else {
		updateLeftFace(edges, e, s, t, evHull)
	}
	return edges, nfaces
}

func updateLeftFace(edges []int, e, s, t, f int) {
	ed := edges[e*4 : e*4+4]
	if ed[0] == s && ed[1] == t && ed[2] == evUndef {
		ed[2] = f
	} else if ed[1] == s && ed[0] == t && ed[3] == evUndef {
		ed[3] = f
	}
}

func overlapEdges(pts []float32, edges []int, s1, t1 int) bool {
	for i := 0; i < len(edges)/4; i++ {
		s0, t0 := edges[i*4], edges[i*4+1]
		// Same or connected edges do not overlap.
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2D(pts, s0*3, t0*3, s1*3, t1*3) {
			return true
		}
	}
	return false
}

func overlapSegSeg2D(verts []float32, a, b, c, d int) bool {
	a1 := vcross2D(verts, a, b, d)
	a2 := vcross2D(verts, a, b, c)
	if a1*a2 < 0 {
		a3 := vcross2D(verts, c, d, a)
		a4 := a3 + a2 - a1
		if a3*a4 < 0 {
			return true
		}
	}
	return false
}

// circumCircle returns the xz circumcircle of p1, p2, p3, computed
// relative to p1 for precision.
func circumCircle(verts []float32, p1, p2, p3 int) ([3]float32, float32) {
	const eps = 1e-6
	var v1, v2, v3 [3]float32
	vsub(v2[:], verts, p2, p1)
	vsub(v3[:], verts, p3, p1)

	var c [3]float32
	cp := v2[0]*v3[2] - v3[0]*v2[2]
	if absf(cp) > eps {
		v1Sq := vdot2D(v1[:], v1[:])
		v2Sq := vdot2D(v2[:], v2[:])
		v3Sq := vdot2D(v3[:], v3[:])
		c[0] = (v1Sq*(v2[2]-v3[2]) + v2Sq*(v3[2]-v1[2]) + v3Sq*(v1[2]-v2[2])) / (2 * cp)
		c[1] = 0
		c[2] = (v1Sq*(v3[0]-v2[0]) + v2Sq*(v1[0]-v3[0]) + v3Sq*(v2[0]-v1[0])) / (2 * cp)
		r := float32(math.Sqrt(float64(c[0]*c[0] + c[2]*c[2])))
		c[0] += verts[p1]
		c[1] += verts[p1+1]
		c[2] += verts[p1+2]
		return c, r
	}
	vcopy(c[:], 0, verts, p1)
	return c, 0
}

func addEdge(edges []int, maxEdges, s, t, l, r int) []int {
	if len(edges)/4 >= maxEdges {
		return edges
	}
	if findEdge(edges, s, t) == evUndef {
		edges = append(edges, s, t, l, r)
	}
	return edges
}

func findEdge(edges []int, s, t int) int {
	for i := 0; i < len(edges)/4; i++ {
		e := edges[i*4 : i*4+2]
		if (e[0] == s && e[1] == t) || (e[0] == t && e[1] == s) {
			return i
		}
	}
	return evUndef
}

// distToTriMesh returns the height difference of p to the triangle under
// it, or -1 when no triangle is under p.
func distToTriMesh(p []float32, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i < len(tris)/4; i++ {
		d := distPtTri(p, verts, tris[i*4]*3, tris[i*4+1]*3, tris[i*4+2]*3)
		if d < dmin {
			dmin = d
		}
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

func distPtTri(p []float32, verts []float32, a, b, c int) float32 {
	var v0, v1, v2 [3]float32
	vsub(v0[:], verts, c, a)
	vsub(v1[:], verts, b, a)
	v2[0] = p[0] - verts[a]
	v2[1] = p[1] - verts[a+1]
	v2[2] = p[2] - verts[a+2]

	dot00 := vdot2D(v0[:], v0[:])
	dot01 := vdot2D(v0[:], v1[:])
	dot02 := vdot2D(v0[:], v2[:])
	dot11 := vdot2D(v1[:], v1[:])
	dot12 := vdot2D(v1[:], v2[:])

	// Barycentric coordinates.
	invDenom := 1 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	const eps = 1e-4
	if u >= -eps && v >= -eps && u+v <= 1+eps {
		y := verts[a+1] + v0[1]*u + v1[1]*v
		return absf(y - p[1])
	}
	return math.MaxFloat32
}

func getJitterX(i int) float32 {
	return float32(uint32(i)*0x8da6b343&0xffff)/65535*2 - 1
}

func getJitterY(i int) float32 {
	return float32(uint32(i)*0xd8163841&0xffff)/65535*2 - 1
}

// distToPoly returns the xz distance of p to the polygon outline, negative
// inside.
func distToPoly(nvert int, verts []float32, p []float32) float32 {
	dmin := float32(math.MaxFloat32)
	inside := false
	for i, j := 0, nvert-1; i < nvert; j, i = i, i+1 {
		vi := verts[i*3 : i*3+3]
		vj := verts[j*3 : j*3+3]
		if (vi[2] > p[2]) != (vj[2] > p[2]) && p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			inside = !inside
		}
		dmin = minf(dmin, distancePtSeg2D(p, verts, j*3, i*3))
	}
	if inside {
		return -dmin
	}
	return dmin
}

// triangulateHull fans the hull from the ear with the shortest perimeter,
// then advances left or right along whichever side is shorter.
func triangulateHull(verts []float32, hull []int, tris *[]int) {
	nhull := len(hull)
	start, left, right := 0, 1, nhull-1

	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		pi := prev(i, nhull)
		ni := next(i, nhull)
		pv, cv, nv := hull[pi]*3, hull[i]*3, hull[ni]*3
		d := vdist2D(verts, pv, cv) + vdist2D(verts, cv, nv) + vdist2D(verts, nv, pv)
		if d < dmin {
			start, left, right = i, ni, pi
			dmin = d
		}
	}

	*tris = append(*tris, hull[start], hull[left], hull[right], 0)

	for next(left, nhull) != right {
		nleft := next(left, nhull)
		nright := prev(right, nhull)

		cvleft, nvleft := hull[left]*3, hull[nleft]*3
		cvright, nvright := hull[right]*3, hull[nright]*3
		dleft := vdist2D(verts, cvleft, nvleft) + vdist2D(verts, nvleft, cvright)
		dright := vdist2D(verts, cvright, nvright) + vdist2D(verts, cvleft, nvright)

		if dleft < dright {
			*tris = append(*tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			*tris = append(*tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
}

// distancePtSegSqr3D returns the squared distance of point pt to the
// segment p-q, all offsets into verts.
func distancePtSegSqr3D(verts []float32, pt, p, q int) float32 {
	pqx := verts[q] - verts[p]
	pqy := verts[q+1] - verts[p+1]
	pqz := verts[q+2] - verts[p+2]
	dx := verts[pt] - verts[p]
	dy := verts[pt+1] - verts[p+1]
	dz := verts[pt+2] - verts[p+2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = clampf(t, 0, 1)
	dx = verts[p] + t*pqx - verts[pt]
	dy = verts[p+1] + t*pqy - verts[pt+1]
	dz = verts[p+2] + t*pqz - verts[pt+2]
	return dx*dx + dy*dy + dz*dz
}

// distancePtSeg2D returns the squared xz distance of pt to the segment
// p-q of poly.
func distancePtSeg2D(pt []float32, poly []float32, p, q int) float32 {
	pqx := poly[q] - poly[p]
	pqz := poly[q+2] - poly[p+2]
	dx := pt[0] - poly[p]
	dz := pt[2] - poly[p+2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = clampf(t, 0, 1)
	dx = poly[p] + t*pqx - pt[0]
	dz = poly[p+2] + t*pqz - pt[2]
	return dx*dx + dz*dz
}

func polyMinExtent(verts []float32, nverts int) float32 {
	minDist := float32(math.MaxFloat32)
	for i := 0; i < nverts; i++ {
		ni := (i + 1) % nverts
		maxEdgeDist := float32(0)
		for j := 0; j < nverts; j++ {
			if j == i || j == ni {
				continue
			}
			maxEdgeDist = maxf(maxEdgeDist, distancePtSeg2D(verts[j*3:], verts, i*3, ni*3))
		}
		minDist = minf(minDist, maxEdgeDist)
	}
	return float32(math.Sqrt(float64(minDist)))
}

// getHeight returns the patch height at (fx, fz). Unset cells are filled
// from the closest ring of set cells within radius.
func getHeight(fx, fy, fz, ics, ch float32, radius int, hp *heightPatch) int {
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = clampi(ix-hp.xmin, 0, hp.width-1)
	iz = clampi(iz-hp.ymin, 0, hp.height-1)
	h := hp.data[ix+iz*hp.width]
	if h != unsetHeight {
		return h
	}

	// Spiral out up to radius. Once a ring yields a height, stop at the
	// end of that ring:
	//  __________
	// |2 ______ 2|
	// | |1 __ 1| |
	// | | |__| | |
	// | |______| |
	// |__________|
	x, z, dx, dz := 1, 0, 1, 0
	maxSize := radius*2 + 1
	maxIter := maxSize*maxSize - 1
	nextRingIterStart := 8
	nextRingIters := 16
	dmin := float32(math.MaxFloat32)
	for i := 0; i < maxIter; i++ {
		nx := ix + x
		nz := iz + z
		if nx >= 0 && nz >= 0 && nx < hp.width && nz < hp.height {
			if nh := hp.data[nx+nz*hp.width]; nh != unsetHeight {
				if d := absf(float32(nh)*ch - fy); d < dmin {
					h = nh
					dmin = d
				}
			}
		}
		if i+1 == nextRingIterStart {
			if h != unsetHeight {
				break
			}
			nextRingIterStart += nextRingIters
			nextRingIters += 8
		}
		if x == z || (x < 0 && x == -z) || (x > 0 && x == 1-z) {
			dx, dz = -dz, dx
		}
		x += dx
		z += dz
	}
	return h
}

// getHeightData fills hp with the heights of the spans of region under
// the polygon, flood filling from the region border or the polygon center.
// Reads from chf are offset by the border size bs, which the polygon
// vertices no longer include.
func getHeightData(chf *CompactHeightfield, poly []int, verts []int, bs int, hp *heightPatch, region int, queue []int) []int {
	for i := range hp.data[:hp.width*hp.height] {
		hp.data[i] = unsetHeight
	}

	empty := true
	// Polygons merged from several regions may overlap polygons of those
	// regions, their heights cannot be sampled by region.
	if region != multipleRegs {
		for hy := 0; hy < hp.height; hy++ {
			y := hp.ymin + hy + bs
			for hx := 0; hx < hp.width; hx++ {
				x := hp.xmin + hx + bs
				c := chf.cells[x+y*chf.width]
				for i := c.index; i < c.index+c.count; i++ {
					s := &chf.spans[i]
					if s.reg != region {
						continue
					}
					hp.data[hx+hy*hp.width] = s.y
					empty = false

					// Region border spans seed the fill.
					border := false
					for dir := 0; dir < 4; dir++ {
						if s.getCon(dir) == notConnected {
							continue
						}
						if chf.spans[chf.neighbour(x, y, dir, s)].reg != region {
							border = true
							break
						}
					}
					if border {
						queue = append(queue, x, y, i)
					}
					break
				}
			}
		}
	}

	if empty {
		queue = seedArrayWithPolyCenter(chf, poly, verts, bs, hp, queue)
	}

	// Breadth first from the seeds so overlapping polygons are not
	// entered.
	for head := 0; head*3 < len(queue); head++ {
		cx, cy, ci := queue[head*3], queue[head*3+1], queue[head*3+2]
		cs := &chf.spans[ci]
		for dir := 0; dir < 4; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax := cx + dirOffsX(dir)
			ay := cy + dirOffsY(dir)
			hx := ax - hp.xmin - bs
			hy := ay - hp.ymin - bs
			if hx < 0 || hx >= hp.width || hy < 0 || hy >= hp.height {
				continue
			}
			if hp.data[hx+hy*hp.width] != unsetHeight {
				continue
			}
			ai := chf.cells[ax+ay*chf.width].index + cs.getCon(dir)
			hp.data[hx+hy*hp.width] = chf.spans[ai].y
			queue = append(queue, ax, ay, ai)
		}
	}
	return queue
}

// seedArrayWithPolyCenter walks from the span closest to a polygon vertex
// to the polygon center and returns the center span as the only seed.
func seedArrayWithPolyCenter(chf *CompactHeightfield, poly []int, verts []int, bs int, hp *heightPatch, stack []int) []int {
	offset := [18]int{0, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1, -1, 0}

	// Find the cell closest to a polygon vertex.
	startCellX, startCellY, startSpanIndex := 0, 0, -1
	dmin := unsetHeight
	for j := 0; j < len(poly) && dmin > 0; j++ {
		for k := 0; k < 9 && dmin > 0; k++ {
			ax := verts[poly[j]*3] + offset[k*2]
			ay := verts[poly[j]*3+1]
			az := verts[poly[j]*3+2] + offset[k*2+1]
			if ax < hp.xmin || ax >= hp.xmin+hp.width || az < hp.ymin || az >= hp.ymin+hp.height {
				continue
			}
			c := chf.cells[(ax+bs)+(az+bs)*chf.width]
			for i := c.index; i < c.index+c.count && dmin > 0; i++ {
				if d := absi(ay - chf.spans[i].y); d < dmin {
					startCellX, startCellY, startSpanIndex = ax, az, i
					dmin = d
				}
			}
		}
	}
	if startSpanIndex == -1 {
		return stack[:0]
	}

	// Polygon center.
	pcx, pcy := 0, 0
	for _, v := range poly {
		pcx += verts[v*3]
		pcy += verts[v*3+2]
	}
	pcx /= len(poly)
	pcy /= len(poly)

	stack = append(stack[:0], startCellX, startCellY, startSpanIndex)
	dirs := [4]int{0, 1, 2, 3}
	for i := range hp.data[:hp.width*hp.height] {
		hp.data[i] = 0
	}

	// Depth first towards the center. Moving straight can get stuck on
	// simplified contours, so intermediate cells are recorded.
	cx, cy, ci := startCellX, startCellY, startSpanIndex
	for len(stack) >= 3 {
		n := len(stack)
		cx, cy, ci = stack[n-3], stack[n-2], stack[n-1]
		stack = stack[:n-3]

		if cx == pcx && cy == pcy {
			break
		}

		// Prefer the direction straight towards the center.
		var directDir int
		if cx == pcx {
			if pcy > cy {
				directDir = dirForOffset(0, 1)
			} else {
				directDir = dirForOffset(0, -1)
			}
		} else if pcx > cx {
			directDir = dirForOffset(1, 0)
		} else {
			directDir = dirForOffset(-1, 0)
		}

		// Push the direct dir last so it is popped first.
		dirs[3], dirs[directDir] = dirs[directDir], dirs[3]
		cs := &chf.spans[ci]
		for _, dir := range dirs {
			if cs.getCon(dir) == notConnected {
				continue
			}
			newX := cx + dirOffsX(dir)
			newY := cy + dirOffsY(dir)
			hpx := newX - hp.xmin
			hpy := newY - hp.ymin
			if hpx < 0 || hpx >= hp.width || hpy < 0 || hpy >= hp.height {
				continue
			}
			if hp.data[hpx+hpy*hp.width] != 0 {
				continue
			}
			hp.data[hpx+hpy*hp.width] = 1
			stack = append(stack, newX, newY, chf.cells[(newX+bs)+(newY+bs)*chf.width].index+cs.getCon(dir))
		}
		dirs[3], dirs[directDir] = dirs[directDir], dirs[3]
	}

	for i := range hp.data[:hp.width*hp.height] {
		hp.data[i] = unsetHeight
	}
	hp.data[cx-hp.xmin+(cy-hp.ymin)*hp.width] = chf.spans[ci].y
	// Seeds are in coordinates with the border.
	return append(stack[:0], cx+bs, cy+bs, ci)
}
