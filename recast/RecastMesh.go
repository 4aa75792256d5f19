package recast

import "fmt"

type meshEdge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

// BuildPolyMesh triangulates the contours of cset and merges the triangles
// into convex polygons of at most nvp vertices.
func BuildPolyMesh(cset *ContourSet, nvp int) (*PolyMesh, error) {
	if nvp < 3 || nvp > VertsPerPoly {
		return nil, fmt.Errorf("build poly mesh: %d verts per poly, want 3 to %d", nvp, VertsPerPoly)
	}
	mesh := &PolyMesh{
		bmin:         cset.bmin,
		bmax:         cset.bmax,
		cs:           cset.cs,
		ch:           cset.ch,
		borderSize:   cset.borderSize,
		maxEdgeError: cset.maxError,
		nvp:          nvp,
	}

	maxVertices, maxTris, maxVertsPerCont := 0, 0, 0
	for _, cont := range cset.conts {
		if cont.nverts < 3 {
			continue
		}
		maxVertices += cont.nverts
		maxTris += cont.nverts - 2
		maxVertsPerCont = maxi(maxVertsPerCont, cont.nverts)
	}
	if maxVertices >= 0xfffe {
		return nil, fmt.Errorf("build poly mesh: too many vertices %d", maxVertices)
	}

	vflags := make([]bool, maxVertices)
	mesh.verts = make([]int, maxVertices*3)
	mesh.polys = make([]int, maxTris*nvp*2)
	for i := range mesh.polys {
		mesh.polys[i] = meshNullIdx
	}
	mesh.regs = make([]int, maxTris)
	mesh.areas = make([]int, maxTris)
	mesh.maxpolys = maxTris

	vh := newVertexHash(maxVertices)
	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, (maxVertsPerCont+1)*nvp)
	tmpPoly := maxVertsPerCont * nvp

	for _, cont := range cset.conts {
		if cont.nverts < 3 {
			continue
		}
		for j := 0; j < cont.nverts; j++ {
			indices[j] = j
		}
		ntris := triangulate(cont.nverts, cont.verts, indices, tris)
		if ntris <= 0 {
			// Bad triangulation, keep what was produced.
			ntris = -ntris
		}

		// Add and merge vertices.
		for j := 0; j < cont.nverts; j++ {
			v := cont.verts[j*4 : j*4+4]
			indices[j] = vh.add(v[0], v[1], v[2], mesh)
			if v[3]&borderVertex != 0 {
				// Tile border vertex, removed below.
				vflags[indices[j]] = true
			}
		}

		// Build initial polygons.
		npolys := 0
		for i := range polys {
			polys[i] = meshNullIdx
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		if nvp > 3 {
			npolys = mergePolys(polys, npolys, tmpPoly, mesh.verts, nvp, nil, nil)
		}

		for j := 0; j < npolys; j++ {
			if mesh.npolys >= maxTris {
				return nil, fmt.Errorf("build poly mesh: too many polygons %d (max %d)", mesh.npolys+1, maxTris)
			}
			p := mesh.npolys * nvp * 2
			copy(mesh.polys[p:p+nvp], polys[j*nvp:j*nvp+nvp])
			mesh.regs[mesh.npolys] = cont.reg
			mesh.areas[mesh.npolys] = cont.area
			mesh.npolys++
		}
	}

	// Remove edge vertices.
	for i := 0; i < mesh.nverts; i++ {
		if !vflags[i] {
			continue
		}
		if !canRemoveVertex(mesh, i) {
			continue
		}
		if err := removeVertex(mesh, i, maxTris); err != nil {
			return nil, err
		}
		// removeVertex shifted the vertices down by one.
		copy(vflags[i:], vflags[i+1:])
		i--
	}

	buildMeshAdjacency(mesh.polys, mesh.npolys, mesh.nverts, nvp)

	// Mark the open edges on the tile border as portals.
	if mesh.borderSize > 0 {
		w, h := cset.width, cset.height
		for i := 0; i < mesh.npolys; i++ {
			p := mesh.polys[i*2*nvp : (i+1)*2*nvp]
			for j := 0; j < nvp; j++ {
				if p[j] == meshNullIdx {
					break
				}
				if p[nvp+j] != meshNullIdx {
					continue
				}
				nj := j + 1
				if nj >= nvp || p[nj] == meshNullIdx {
					nj = 0
				}
				va := mesh.verts[p[j]*3 : p[j]*3+3]
				vb := mesh.verts[p[nj]*3 : p[nj]*3+3]
				switch {
				case va[0] == 0 && vb[0] == 0:
					p[nvp+j] = 0x8000 | 0
				case va[2] == h && vb[2] == h:
					p[nvp+j] = 0x8000 | 1
				case va[0] == w && vb[0] == w:
					p[nvp+j] = 0x8000 | 2
				case va[2] == 0 && vb[2] == 0:
					p[nvp+j] = 0x8000 | 3
				}
			}
		}
	}

	// The caller fills in the flags.
	mesh.flags = make([]int, mesh.npolys)

	if mesh.nverts > 0xffff {
		return nil, fmt.Errorf("build poly mesh: %d vertices, max %d", mesh.nverts, 0xffff)
	}
	if mesh.npolys > 0xffff {
		return nil, fmt.Errorf("build poly mesh: %d polygons, max %d", mesh.npolys, 0xffff)
	}
	return mesh, nil
}

// mergePolys greedily merges pairs of polygons sharing their longest
// common edge while the result stays convex. regs and areas, when given,
// follow the polygons. It returns the new polygon count.
func mergePolys(polys []int, npolys, tmpPoly int, verts []int, nvp int, regs, areas []int) int {
	for {
		bestMergeVal := 0
		bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0
		for j := 0; j < npolys-1; j++ {
			for k := j + 1; k < npolys; k++ {
				v, ea, eb := getPolyMergeValue(polys, j*nvp, k*nvp, verts, nvp)
				if v > bestMergeVal {
					bestMergeVal = v
					bestPa, bestPb, bestEa, bestEb = j, k, ea, eb
				}
			}
		}
		if bestMergeVal <= 0 {
			return npolys
		}
		pa := bestPa * nvp
		pb := bestPb * nvp
		mergePolyVerts(polys, pa, pb, bestEa, bestEb, tmpPoly, nvp)
		if regs != nil && regs[bestPa] != regs[bestPb] {
			regs[bestPa] = multipleRegs
		}
		last := (npolys - 1) * nvp
		if pb != last {
			copy(polys[pb:pb+nvp], polys[last:last+nvp])
		}
		if regs != nil {
			regs[bestPb] = regs[npolys-1]
			areas[bestPb] = areas[npolys-1]
		}
		npolys--
	}
}

// buildMeshAdjacency fills in the neighbour half of each polygon.
func buildMeshAdjacency(polys []int, npolys, nverts, nvp int) {
	maxEdgeCount := npolys * nvp
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdgeCount)
	edges := make([]meshEdge, 0, maxEdgeCount)
	for i := range firstEdge {
		firstEdge[i] = meshNullIdx
	}

	polyEdge := func(t, j int) (int, int) {
		v0 := polys[t+j]
		if j+1 >= nvp || polys[t+j+1] == meshNullIdx {
			return v0, polys[t]
		}
		return v0, polys[t+j+1]
	}

	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp; j++ {
			if polys[t+j] == meshNullIdx {
				break
			}
			v0, v1 := polyEdge(t, j)
			if v0 < v1 {
				nextEdge[len(edges)] = firstEdge[v0]
				firstEdge[v0] = len(edges)
				edges = append(edges, meshEdge{
					vert:     [2]int{v0, v1},
					poly:     [2]int{i, i},
					polyEdge: [2]int{j, 0},
				})
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp; j++ {
			if polys[t+j] == meshNullIdx {
				break
			}
			v0, v1 := polyEdge(t, j)
			if v0 > v1 {
				for e := firstEdge[v1]; e != meshNullIdx; e = nextEdge[e] {
					edge := &edges[e]
					if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
						edge.poly[1] = i
						edge.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := e.poly[0] * nvp * 2
			p1 := e.poly[1] * nvp * 2
			polys[p0+nvp+e.polyEdge[0]] = e.poly[1]
			polys[p1+nvp+e.polyEdge[1]] = e.poly[0]
		}
	}
}

// canRemoveVertex reports whether removing vertex rem leaves a hole that
// can be re-triangulated.
func canRemoveVertex(mesh *PolyMesh, rem int) bool {
	nvp := mesh.nvp

	numTouchedVerts := 0
	numRemainingEdges := 0
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.polys, p, nvp)
		numRemoved := 0
		for j := 0; j < nv; j++ {
			if mesh.polys[p+j] == rem {
				numTouchedVerts++
				numRemoved++
			}
		}
		if numRemoved != 0 {
			numRemainingEdges += nv - (numRemoved + 1)
		}
	}
	// Too few edges remain to create a polygon, happens when the tip of a
	// lone triangle is marked.
	if numRemainingEdges <= 2 {
		return false
	}

	// Edges which share the removed vertex: (a, b, share count).
	edges := make([]int, 0, numTouchedVerts*2*3)
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.polys, p, nvp)
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if mesh.polys[p+j] != rem && mesh.polys[p+k] != rem {
				continue
			}
			a, b := mesh.polys[p+j], mesh.polys[p+k]
			if b == rem {
				a, b = b, a
			}
			exists := false
			for m := 0; m < len(edges); m += 3 {
				if edges[m+1] == b {
					edges[m+2]++
					exists = true
				}
			}
			if !exists {
				edges = append(edges, a, b, 1)
			}
		}
	}

	// More than 2 open edges means two non-adjacent polygons share the
	// vertex.
	numOpenEdges := 0
	for m := 0; m < len(edges); m += 3 {
		if edges[m+2] < 2 {
			numOpenEdges++
		}
	}
	return numOpenEdges <= 2
}

// removeVertex deletes vertex rem with the polygons using it and fills the
// hole with new polygons.
func removeVertex(mesh *PolyMesh, rem int, maxTris int) error {
	nvp := mesh.nvp

	// Edges not touching rem of the removed polygons: (a, b, reg, area).
	var edges []int
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.polys, p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if mesh.polys[p+j] == rem {
				hasRem = true
			}
		}
		if !hasRem {
			continue
		}
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if mesh.polys[p+j] != rem && mesh.polys[p+k] != rem {
				edges = append(edges, mesh.polys[p+k], mesh.polys[p+j], mesh.regs[i], mesh.areas[i])
			}
		}
		// Remove the polygon.
		p2 := (mesh.npolys - 1) * nvp * 2
		if p != p2 {
			copy(mesh.polys[p:p+nvp], mesh.polys[p2:p2+nvp])
		}
		for j := p + nvp; j < p+nvp*2; j++ {
			mesh.polys[j] = meshNullIdx
		}
		mesh.regs[i] = mesh.regs[mesh.npolys-1]
		mesh.areas[i] = mesh.areas[mesh.npolys-1]
		mesh.npolys--
		i--
	}

	// Remove the vertex.
	copy(mesh.verts[rem*3:], mesh.verts[(rem+1)*3:mesh.nverts*3])
	mesh.nverts--

	// Adjust indices to the new vertex layout.
	for i := 0; i < mesh.npolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.polys, p, nvp)
		for j := 0; j < nv; j++ {
			if mesh.polys[p+j] > rem {
				mesh.polys[p+j]--
			}
		}
	}
	for i := 0; i < len(edges); i += 4 {
		if edges[i] > rem {
			edges[i]--
		}
		if edges[i+1] > rem {
			edges[i+1]--
		}
	}
	if len(edges) == 0 {
		return nil
	}

	// Start with one vertex and keep appending connected segments to
	// both ends of the hole.
	hole := []int{edges[0]}
	hreg := []int{edges[2]}
	harea := []int{edges[3]}
	for len(edges) > 0 {
		match := false
		for i := 0; i < len(edges); i += 4 {
			ea, eb, r, a := edges[i], edges[i+1], edges[i+2], edges[i+3]
			add := false
			if hole[0] == eb {
				hole = append([]int{ea}, hole...)
				hreg = append([]int{r}, hreg...)
				harea = append([]int{a}, harea...)
				add = true
			} else if hole[len(hole)-1] == ea {
				hole = append(hole, eb)
				hreg = append(hreg, r)
				harea = append(harea, a)
				add = true
			}
			if add {
				last := len(edges) - 4
				copy(edges[i:i+4], edges[last:last+4])
				edges = edges[:last]
				match = true
				i -= 4
			}
		}
		if !match {
			break
		}
	}

	nhole := len(hole)
	tris := make([]int, nhole*3)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)
	for i, pi := range hole {
		copy(tverts[i*4:i*4+3], mesh.verts[pi*3:pi*3+3])
		thole[i] = i
	}

	ntris := triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		ntris = -ntris
	}

	polys := make([]int, (ntris+1)*nvp)
	pregs := make([]int, ntris)
	pareas := make([]int, ntris)
	tmpPoly := ntris * nvp
	for i := range polys {
		polys[i] = meshNullIdx
	}

	npolys := 0
	for j := 0; j < ntris; j++ {
		t := tris[j*3 : j*3+3]
		if t[0] == t[1] || t[0] == t[2] || t[1] == t[2] {
			continue
		}
		polys[npolys*nvp] = hole[t[0]]
		polys[npolys*nvp+1] = hole[t[1]]
		polys[npolys*nvp+2] = hole[t[2]]
		// A polygon covering several regions is marked as such.
		if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
			pregs[npolys] = multipleRegs
		} else {
			pregs[npolys] = hreg[t[0]]
		}
		pareas[npolys] = harea[t[0]]
		npolys++
	}
	if npolys == 0 {
		return nil
	}

	if nvp > 3 {
		npolys = mergePolys(polys, npolys, tmpPoly, mesh.verts, nvp, pregs, pareas)
	}

	for i := 0; i < npolys; i++ {
		if mesh.npolys >= maxTris {
			return fmt.Errorf("remove vertex: too many polygons %d (max %d)", mesh.npolys+1, maxTris)
		}
		p := mesh.npolys * nvp * 2
		for j := p; j < p+nvp*2; j++ {
			mesh.polys[j] = meshNullIdx
		}
		copy(mesh.polys[p:p+nvp], polys[i*nvp:i*nvp+nvp])
		mesh.regs[mesh.npolys] = pregs[i]
		mesh.areas[mesh.npolys] = pareas[i]
		mesh.npolys++
	}
	return nil
}

func mergePolyVerts(polys []int, pa, pb, ea, eb, tmp, nvp int) {
	na := countPolyVerts(polys, pa, nvp)
	nb := countPolyVerts(polys, pb, nvp)
	for i := tmp; i < tmp+nvp; i++ {
		polys[i] = meshNullIdx
	}
	n := 0
	for i := 0; i < na-1; i++ {
		polys[tmp+n] = polys[pa+(ea+1+i)%na]
		n++
	}
	for i := 0; i < nb-1; i++ {
		polys[tmp+n] = polys[pb+(eb+1+i)%nb]
		n++
	}
	copy(polys[pa:pa+nvp], polys[tmp:tmp+nvp])
}

// getPolyMergeValue returns the squared length of the edge shared by the
// polygons at pa and pb with the edge indices on both, or -1 when they
// cannot merge into a convex polygon.
func getPolyMergeValue(polys []int, pa, pb int, verts []int, nvp int) (int, int, int) {
	na := countPolyVerts(polys, pa, nvp)
	nb := countPolyVerts(polys, pb, nvp)
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	ea, eb := -1, -1
	for i := 0; i < na && ea == -1; i++ {
		va0 := polys[pa+i]
		va1 := polys[pa+(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := polys[pb+j]
			vb1 := polys[pb+(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea, eb = i, j
				break
			}
		}
	}
	if ea == -1 || eb == -1 {
		return -1, ea, eb
	}

	// The merged polygon must stay convex.
	va, vb, vc := polys[pa+(ea+na-1)%na], polys[pa+ea], polys[pb+(eb+2)%nb]
	if !uleft(verts, va*3, vb*3, vc*3) {
		return -1, ea, eb
	}
	va, vb, vc = polys[pb+(eb+nb-1)%nb], polys[pb+eb], polys[pa+(ea+2)%na]
	if !uleft(verts, va*3, vb*3, vc*3) {
		return -1, ea, eb
	}

	va = polys[pa+ea]
	vb = polys[pa+(ea+1)%na]
	dx := verts[va*3] - verts[vb*3]
	dy := verts[va*3+2] - verts[vb*3+2]
	return dx*dx + dy*dy, ea, eb
}

func uleft(verts []int, a, b, c int) bool {
	return (verts[b]-verts[a])*(verts[c+2]-verts[a+2])-(verts[c]-verts[a])*(verts[b+2]-verts[a+2]) < 0
}

func countPolyVerts(p []int, j, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[j+i] == meshNullIdx {
			return i
		}
	}
	return nvp
}

// vertexHash welds vertices that share x and z and are within two voxels
// on y.
type vertexHash struct {
	first []int
	next  []int
}

func newVertexHash(maxVerts int) *vertexHash {
	vh := &vertexHash{
		first: make([]int, vertexBucketCount),
		next:  make([]int, maxVerts),
	}
	for i := range vh.first {
		vh.first[i] = -1
	}
	return vh
}

func (vh *vertexHash) add(x, y, z int, mesh *PolyMesh) int {
	bucket := computeVertexHash(x, 0, z)
	for i := vh.first[bucket]; i != -1; i = vh.next[i] {
		v := mesh.verts[i*3 : i*3+3]
		if v[0] == x && absi(v[1]-y) <= 2 && v[2] == z {
			return i
		}
	}
	i := mesh.nverts
	mesh.nverts++
	mesh.verts[i*3] = x
	mesh.verts[i*3+1] = y
	mesh.verts[i*3+2] = z
	vh.next[i] = vh.first[bucket]
	vh.first[bucket] = i
	return i
}

func computeVertexHash(x, y, z int) int {
	const (
		h1 = 0x8da6b343 // Large multiplicative constants,
		h2 = 0xd8163841 // arbitrarily chosen primes.
		h3 = 0xcb1ab31f
	)
	n := uint32(h1*uint32(x) + h2*uint32(y) + h3*uint32(z))
	return int(n & (vertexBucketCount - 1))
}

// triangulate ear clips the polygon given by indices into verts (stride
// 4). It returns the triangle count, negated when the polygon could not be
// fully triangulated.
func triangulate(n int, verts []int, indices []int, tris []int) int {
	const (
		removable = 0x80000000
		idxMask   = 0x0fffffff
	)
	ntris := 0

	// The high bit marks vertices that can be removed.
	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= removable
		}
	}

	for n > 3 {
		minLen := -1
		best := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&removable != 0 {
				p0 := (indices[i] & idxMask) * 4
				p2 := (indices[next(i1, n)] & idxMask) * 4
				dx := verts[p2] - verts[p0]
				dy := verts[p2+2] - verts[p0+2]
				l := dx*dx + dy*dy
				if minLen < 0 || l < minLen {
					minLen = l
					best = i
				}
			}
		}

		if best == -1 {
			// Overlapping segments. Loosen the cone test so diagonals
			// along them can be found.
			minLen = -1
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if diagonalLoose(i, i2, n, verts, indices) {
					p0 := (indices[i] & idxMask) * 4
					p2 := (indices[next(i2, n)] & idxMask) * 4
					dx := verts[p2] - verts[p0]
					dy := verts[p2+2] - verts[p0+2]
					l := dx*dx + dy*dy
					if minLen < 0 || l < minLen {
						minLen = l
						best = i
					}
				}
			}
			if best == -1 {
				// The contour is broken, usually from aggressive
				// simplification.
				return -ntris
			}
		}

		i := best
		i1 := next(i, n)
		i2 := next(i1, n)

		tris[ntris*3] = indices[i] & idxMask
		tris[ntris*3+1] = indices[i1] & idxMask
		tris[ntris*3+2] = indices[i2] & idxMask
		ntris++

		// Remove P[i1].
		n--
		copy(indices[i1:n], indices[i1+1:n+1])

		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)
		// Update diagonal flags.
		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= removable
		} else {
			indices[i] &= idxMask
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= removable
		} else {
			indices[i1] &= idxMask
		}
	}

	tris[ntris*3] = indices[0] & idxMask
	tris[ntris*3+1] = indices[1] & idxMask
	tris[ntris*3+2] = indices[2] & idxMask
	ntris++
	return ntris
}

// diagonalie reports whether (v_i, v_j) is a proper internal or external
// diagonal of P, ignoring edges incident to v_i and v_j.
func diagonalie(i, j, n int, verts []int, indices []int, loose bool) bool {
	d0 := (indices[i] & 0x0fffffff) * 4
	d1 := (indices[j] & 0x0fffffff) * 4
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := (indices[k] & 0x0fffffff) * 4
		p1 := (indices[k1] & 0x0fffffff) * 4
		if vequal(verts, d0, p0) || vequal(verts, d1, p0) || vequal(verts, d0, p1) || vequal(verts, d1, p1) {
			continue
		}
		if loose {
			if intersectProp(verts, d0, d1, p0, p1) {
				return false
			}
		} else if intersect(verts, d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func diagonal(i, j, n int, verts []int, indices []int) bool {
	return inCone(i, j, n, verts, indices, false) && diagonalie(i, j, n, verts, indices, false)
}

func diagonalLoose(i, j, n int, verts []int, indices []int) bool {
	return inCone(i, j, n, verts, indices, true) && diagonalie(i, j, n, verts, indices, true)
}

// inCone reports whether the diagonal (i, j) lies in the cone of vertex
// i. The loose variant accepts diagonals along the cone edges.
func inCone(i, j, n int, verts []int, indices []int, loose bool) bool {
	pi := (indices[i] & 0x0fffffff) * 4
	pj := (indices[j] & 0x0fffffff) * 4
	pi1 := (indices[next(i, n)] & 0x0fffffff) * 4
	pin1 := (indices[prev(i, n)] & 0x0fffffff) * 4
	// Convex vertex: i+1 left of or on (i-1, i).
	if leftOn(verts, pin1, pi, pi1) {
		if loose {
			return leftOn(verts, pi, pj, pin1) && leftOn(verts, pj, pi, pi1)
		}
		return left(verts, pi, pj, pin1) && left(verts, pj, pi, pi1)
	}
	// Reflex vertex.
	return !(leftOn(verts, pi, pj, pi1) && leftOn(verts, pj, pi, pin1))
}

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

// Integer xz predicates over vertex arrays, a to d are offsets into verts.

func vequal(verts []int, a, b int) bool {
	return verts[a] == verts[b] && verts[a+2] == verts[b+2]
}

func area2(verts []int, a, b, c int) int {
	return (verts[b]-verts[a])*(verts[c+2]-verts[a+2]) - (verts[c]-verts[a])*(verts[b+2]-verts[a+2])
}

func left(verts []int, a, b, c int) bool { return area2(verts, a, b, c) < 0 }

func leftOn(verts []int, a, b, c int) bool { return area2(verts, a, b, c) <= 0 }

func collinear(verts []int, a, b, c int) bool { return area2(verts, a, b, c) == 0 }

// intersectProp reports whether ab and cd share a point interior to both.
func intersectProp(verts []int, a, b, c, d int) bool {
	// Eliminate improper cases.
	if collinear(verts, a, b, c) || collinear(verts, a, b, d) || collinear(verts, c, d, a) || collinear(verts, c, d, b) {
		return false
	}
	return left(verts, a, b, c) != left(verts, a, b, d) && left(verts, c, d, a) != left(verts, c, d, b)
}

// between reports whether c lies on the closed segment ab.
func between(verts []int, a, b, c int) bool {
	if !collinear(verts, a, b, c) {
		return false
	}
	// If ab not vertical, check betweenness on x, else on z.
	if verts[a] != verts[b] {
		return (verts[a] <= verts[c] && verts[c] <= verts[b]) || (verts[a] >= verts[c] && verts[c] >= verts[b])
	}
	return (verts[a+2] <= verts[c+2] && verts[c+2] <= verts[b+2]) || (verts[a+2] >= verts[c+2] && verts[c+2] >= verts[b+2])
}

func intersect(verts []int, a, b, c, d int) bool {
	if intersectProp(verts, a, b, c, d) {
		return true
	}
	return between(verts, a, b, c) || between(verts, a, b, d) || between(verts, c, d, a) || between(verts, c, d, b)
}
