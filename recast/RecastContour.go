package recast

import (
	"fmt"
	"sort"
)

// BuildContours traces the border of every region of chf and simplifies
// it. Vertices farther than maxError from the simplified outline are kept
// and, depending on buildFlags, edges longer than maxEdgeLen are split.
// Holes are merged into the outline of their region.
func BuildContours(chf *CompactHeightfield, maxError float32, maxEdgeLen int, buildFlags int) (*ContourSet, error) {
	w, h := chf.width, chf.height
	borderSize := chf.borderSize

	cset := &ContourSet{
		bmin:       chf.bmin,
		bmax:       chf.bmax,
		cs:         chf.cs,
		ch:         chf.ch,
		width:      chf.width - borderSize*2,
		height:     chf.height - borderSize*2,
		borderSize: borderSize,
		maxError:   maxError,
	}
	if borderSize > 0 {
		// Remove the border offset from the bounds.
		pad := float32(borderSize) * chf.cs
		cset.bmin[0] += pad
		cset.bmin[2] += pad
		cset.bmax[0] -= pad
		cset.bmax[2] -= pad
	}

	// Mark the span sides that face another region.
	flags := make([]int, chf.spanCount)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				if s.reg == 0 || s.reg&borderReg != 0 {
					flags[i] = 0
					continue
				}
				res := 0
				for dir := 0; dir < 4; dir++ {
					r := 0
					if s.getCon(dir) != notConnected {
						r = chf.spans[chf.neighbour(x, y, dir, s)].reg
					}
					if r == s.reg {
						res |= 1 << uint(dir)
					}
				}
				flags[i] = res ^ 0xf
			}
		}
	}

	var verts, simplified []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.spans[i].reg
				if reg == 0 || reg&borderReg != 0 {
					continue
				}

				verts = walkRegionContour(x, y, i, chf, flags, verts[:0])
				simplified = simplifyContour(verts, simplified[:0], maxError, maxEdgeLen, buildFlags)
				simplified = removeDegenerateSegments(simplified)
				if len(simplified)/4 < 3 {
					continue
				}

				cont := &Contour{
					nverts:  len(simplified) / 4,
					verts:   append([]int(nil), simplified...),
					nrverts: len(verts) / 4,
					rverts:  append([]int(nil), verts...),
					reg:     reg,
					area:    chf.areas[i],
				}
				if borderSize > 0 {
					for j := 0; j < cont.nverts; j++ {
						cont.verts[j*4] -= borderSize
						cont.verts[j*4+2] -= borderSize
					}
					for j := 0; j < cont.nrverts; j++ {
						cont.rverts[j*4] -= borderSize
						cont.rverts[j*4+2] -= borderSize
					}
				}
				cset.conts = append(cset.conts, cont)
			}
		}
	}

	if err := mergeHoles(cset, chf.maxRegions); err != nil {
		return nil, err
	}
	return cset, nil
}

// mergeHoles merges backwards wound contours into the outline of their
// region.
func mergeHoles(cset *ContourSet, maxRegions int) error {
	if len(cset.conts) == 0 {
		return nil
	}
	winding := make([]int, len(cset.conts))
	nholes := 0
	for i, cont := range cset.conts {
		winding[i] = 1
		if calcAreaOfPolygon2D(cont.verts, cont.nverts) < 0 {
			winding[i] = -1
			nholes++
		}
	}
	if nholes == 0 {
		return nil
	}

	// One outline and any number of holes per region.
	regions := make([]contourRegion, maxRegions+1)
	for i, cont := range cset.conts {
		if cont.reg >= len(regions) {
			return fmt.Errorf("build contours: region %d out of range", cont.reg)
		}
		reg := &regions[cont.reg]
		if winding[i] > 0 {
			if reg.outline != nil {
				return fmt.Errorf("build contours: multiple outlines for region %d", cont.reg)
			}
			reg.outline = cont
		} else {
			reg.holes = append(reg.holes, contourHole{contour: cont})
		}
	}

	for i := range regions {
		reg := &regions[i]
		if len(reg.holes) == 0 {
			continue
		}
		if reg.outline == nil {
			// Happens when the outline becomes self overlapping after an
			// aggressive simplification.
			return fmt.Errorf("build contours: bad outline for region %d, simplification is likely too aggressive", i)
		}
		mergeRegionHoles(reg)
	}
	return nil
}

// walkRegionContour follows the flagged edges around the region of span i
// and appends a raw (x, y, z, r) vertex per edge to points.
func walkRegionContour(x, y, i int, chf *CompactHeightfield, flags []int, points []int) []int {
	// Start at the first non-connected edge.
	dir := 0
	for flags[i]&(1<<uint(dir)) == 0 {
		dir++
	}
	startDir, starti := dir, i
	area := chf.areas[i]

	for iter := 1; iter < 40000; iter++ {
		s := &chf.spans[i]
		if flags[i]&(1<<uint(dir)) != 0 {
			py, isBorderVertex := getCornerHeight(x, y, i, dir, chf)
			px, pz := x, y
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			r := 0
			isAreaBorder := false
			if s.getCon(dir) != notConnected {
				ai := chf.neighbour(x, y, dir, s)
				r = chf.spans[ai].reg
				isAreaBorder = area != chf.areas[ai]
			}
			if isBorderVertex {
				r |= borderVertex
			}
			if isAreaBorder {
				r |= areaBorder
			}
			points = append(points, px, py, pz, r)
			flags[i] &^= 1 << uint(dir) // Remove visited edges
			dir = (dir + 1) & 0x3       // Rotate CW
		} else {
			if s.getCon(dir) == notConnected {
				// Should not happen.
				return points
			}
			ni := chf.neighbour(x, y, dir, s)
			x += dirOffsX(dir)
			y += dirOffsY(dir)
			i = ni
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}
	return points
}

// getCornerHeight returns the height of the corner between dir and the
// next direction clockwise, and whether it is a tile border vertex that
// the mesh builder should remove.
func getCornerHeight(x, y, i, dir int, chf *CompactHeightfield) (int, bool) {
	s := &chf.spans[i]
	ch := s.y
	dirp := (dir + 1) & 0x3

	// Combine region and area codes so vertices between two areas are kept.
	var regs [4]int
	regs[0] = s.reg | chf.areas[i]<<16

	if s.getCon(dir) != notConnected {
		ax := x + dirOffsX(dir)
		ay := y + dirOffsY(dir)
		ai := chf.cells[ax+ay*chf.width].index + s.getCon(dir)
		as := &chf.spans[ai]
		ch = maxi(ch, as.y)
		regs[1] = as.reg | chf.areas[ai]<<16
		if as.getCon(dirp) != notConnected {
			ai2 := chf.neighbour(ax, ay, dirp, as)
			ch = maxi(ch, chf.spans[ai2].y)
			regs[2] = chf.spans[ai2].reg | chf.areas[ai2]<<16
		}
	}
	if s.getCon(dirp) != notConnected {
		ax := x + dirOffsX(dirp)
		ay := y + dirOffsY(dirp)
		ai := chf.cells[ax+ay*chf.width].index + s.getCon(dirp)
		as := &chf.spans[ai]
		ch = maxi(ch, as.y)
		regs[3] = as.reg | chf.areas[ai]<<16
		if as.getCon(dir) != notConnected {
			ai2 := chf.neighbour(ax, ay, dir, as)
			ch = maxi(ch, chf.spans[ai2].y)
			regs[2] = chf.spans[ai2].reg | chf.areas[ai2]<<16
		}
	}

	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3

		// Two same exterior cells in a row followed by two interior cells
		// and none of the regions out of bounds.
		twoSameExts := regs[a]&regs[b]&borderReg != 0 && regs[a] == regs[b]
		twoInts := (regs[c]|regs[d])&borderReg == 0
		intsSameArea := regs[c]>>16 == regs[d]>>16
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			return ch, true
		}
	}
	return ch, false
}

// simplifyContour reduces the raw contour points to the vertices needed
// to stay within maxError of it. Every simplified vertex carries the raw
// index in its fourth slot until the end, where it is replaced by the
// neighbour region and border flags.
func simplifyContour(points, simplified []int, maxError float32, maxEdgeLen int, buildFlags int) []int {
	pn := len(points) / 4

	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if points[i+3]&contourRegMask != 0 {
			hasConnections = true
			break
		}
	}
	if hasConnections {
		// Add a point wherever the neighbour region or area changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			differentRegs := points[i*4+3]&contourRegMask != points[ii*4+3]&contourRegMask
			areaBorders := points[i*4+3]&areaBorder != points[ii*4+3]&areaBorder
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4], points[i*4+1], points[i*4+2], i)
			}
		}
	}
	if len(simplified) == 0 {
		// No connections, seed with the lower left and upper right
		// vertices.
		llx, lly, llz, lli := points[0], points[1], points[2], 0
		urx, ury, urz, uri := points[0], points[1], points[2], 0
		for i := 0; i < len(points); i += 4 {
			x, y, z := points[i], points[i+1], points[i+2]
			if x < llx || (x == llx && z < llz) {
				llx, lly, llz, lli = x, y, z, i/4
			}
			if x > urx || (x == urx && z > urz) {
				urx, ury, urz, uri = x, y, z, i/4
			}
		}
		simplified = append(simplified, llx, lly, llz, lli, urx, ury, urz, uri)
	}

	insert := func(s []int, at, pt int) []int {
		s = append(s, 0, 0, 0, 0)
		copy(s[(at+1)*4:], s[at*4:])
		s[at*4] = points[pt*4]
		s[at*4+1] = points[pt*4+1]
		s[at*4+2] = points[pt*4+2]
		s[at*4+3] = pt
		return s
	}

	// Add points until all raw points are within the error tolerance.
	maxErrorSqr := maxError * maxError
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)

		ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
		bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

		maxd := float32(0)
		maxIdx := -1
		var ci, cinc, endi int
		// Traverse in lexicographic order so opposite segments get the
		// same deviation.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		// Tessellate only outer edges or edges between areas.
		if points[ci*4+3]&contourRegMask == 0 || points[ci*4+3]&areaBorder != 0 {
			for ci != endi {
				d := distancePtSegSqr(points[ci*4], points[ci*4+2], ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxIdx = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		if maxIdx != -1 && maxd > maxErrorSqr {
			simplified = insert(simplified, i+1, maxIdx)
		} else {
			i++
		}
	}

	// Split too long edges.
	if maxEdgeLen > 0 && buildFlags&(contourTessWallEdges|contourTessAreaEdges) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)

			ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
			bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

			maxIdx := -1
			ci := (ai + 1) % pn

			tess := false
			if buildFlags&contourTessWallEdges != 0 && points[ci*4+3]&contourRegMask == 0 {
				tess = true
			}
			if buildFlags&contourTessAreaEdges != 0 && points[ci*4+3]&areaBorder != 0 {
				tess = true
			}
			if tess {
				dx := bx - ax
				dz := bz - az
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					// Round the split point consistently regardless of
					// the traversal direction.
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxIdx = (ai + n/2) % pn
						} else {
							maxIdx = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			if maxIdx != -1 {
				simplified = insert(simplified, i+1, maxIdx)
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		// The edge vertex flag comes from the current raw point, the
		// neighbour region from the next one.
		ai := (simplified[i*4+3] + 1) % pn
		bi := simplified[i*4+3]
		simplified[i*4+3] = points[ai*4+3]&(contourRegMask|areaBorder) | points[bi*4+3]&borderVertex
	}
	return simplified
}

// distancePtSegSqr returns the squared xz distance of (x, z) to the
// segment p-q.
func distancePtSegSqr(x, z, px, pz, qx, qz int) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = clampf(t, 0, 1)
	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)
	return dx*dx + dz*dz
}

// removeDegenerateSegments drops vertices equal on xz to their successor,
// the triangulator cannot handle them.
func removeDegenerateSegments(simplified []int) []int {
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		if simplified[i*4] == simplified[ni*4] && simplified[i*4+2] == simplified[ni*4+2] {
			simplified = append(simplified[:i*4], simplified[i*4+4:]...)
			npts--
		}
	}
	return simplified
}

func calcAreaOfPolygon2D(verts []int, nverts int) int {
	area := 0
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := i * 4
		vj := j * 4
		area += verts[vi]*verts[vj+2] - verts[vj]*verts[vi+2]
	}
	return (area + 1) / 2
}

func mergeRegionHoles(reg *contourRegion) {
	// Sort holes from left to right.
	for i := range reg.holes {
		hole := &reg.holes[i]
		hole.minx, hole.minz, hole.leftmost = findLeftMostVertex(hole.contour)
	}
	sort.Slice(reg.holes, func(i, j int) bool {
		a, b := reg.holes[i], reg.holes[j]
		if a.minx == b.minx {
			return a.minz < b.minz
		}
		return a.minx < b.minx
	})

	maxVerts := reg.outline.nverts
	for _, h := range reg.holes {
		maxVerts += h.contour.nverts
	}
	diags := make([]potentialDiagonal, 0, maxVerts)
	outline := reg.outline

	// Merge holes into the outline one by one.
	for i := range reg.holes {
		hole := reg.holes[i].contour
		index := -1
		bestVertex := reg.holes[i].leftmost
		for iter := 0; iter < hole.nverts; iter++ {
			// The best vertex must be in the cone of three consecutive
			// outline vertices.
			diags = diags[:0]
			corner := bestVertex * 4
			for j := 0; j < outline.nverts; j++ {
				if inConeContour(j, outline.nverts, outline.verts, hole.verts[corner:]) {
					dx := outline.verts[j*4] - hole.verts[corner]
					dz := outline.verts[j*4+2] - hole.verts[corner+2]
					diags = append(diags, potentialDiagonal{vert: j, dist: dx*dx + dz*dz})
				}
			}
			// Prefer the shortest connection.
			sort.SliceStable(diags, func(a, b int) bool { return diags[a].dist < diags[b].dist })

			// Find a diagonal that crosses neither the outline nor the
			// remaining holes.
			index = -1
			for _, dg := range diags {
				pt := outline.verts[dg.vert*4:]
				intersect := intersectSegContour(pt, hole.verts[corner:], dg.vert, outline.nverts, outline.verts)
				for k := i; k < len(reg.holes) && !intersect; k++ {
					c := reg.holes[k].contour
					intersect = intersectSegContour(pt, hole.verts[corner:], -1, c.nverts, c.verts)
				}
				if !intersect {
					index = dg.vert
					break
				}
			}
			if index != -1 {
				break
			}
			// All diagonals of this vertex intersect, try the next one.
			bestVertex = (bestVertex + 1) % hole.nverts
		}
		if index == -1 {
			// No merge point, the hole stays open.
			continue
		}
		mergeContours(reg.outline, hole, index, bestVertex)
	}
}

func findLeftMostVertex(contour *Contour) (minx, minz, leftmost int) {
	minx = contour.verts[0]
	minz = contour.verts[2]
	for i := 1; i < contour.nverts; i++ {
		x := contour.verts[i*4]
		z := contour.verts[i*4+2]
		if x < minx || (x == minx && z < minz) {
			minx, minz, leftmost = x, z, i
		}
	}
	return minx, minz, leftmost
}

// intersectSegContour reports whether the segment d0-d1 crosses an edge of
// the contour verts that is not incident to vertex skip.
func intersectSegContour(d0, d1 []int, skip, n int, verts []int) bool {
	var pts [16]int
	copy(pts[0:4], d0[:4])
	copy(pts[4:8], d1[:4])
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if skip == k || skip == k1 {
			continue
		}
		copy(pts[8:12], verts[k*4:k*4+4])
		copy(pts[12:16], verts[k1*4:k1*4+4])
		if vequal(pts[:], 0, 8) || vequal(pts[:], 4, 8) || vequal(pts[:], 0, 12) || vequal(pts[:], 4, 12) {
			continue
		}
		if intersect(pts[:], 0, 4, 8, 12) {
			return true
		}
	}
	return false
}

// inConeContour reports whether pt lies in the cone of contour vertex i.
func inConeContour(i, n int, verts []int, pt []int) bool {
	var pts [16]int
	copy(pts[0:4], verts[i*4:i*4+4])
	copy(pts[4:8], verts[next(i, n)*4:next(i, n)*4+4])
	copy(pts[8:12], verts[prev(i, n)*4:prev(i, n)*4+4])
	copy(pts[12:16], pt[:4])
	const pi, pi1, pin1, pj = 0, 4, 8, 12
	// Convex vertex: i+1 left of or on (i-1, i).
	if leftOn(pts[:], pin1, pi, pi1) {
		return left(pts[:], pi, pj, pin1) && left(pts[:], pj, pi, pi1)
	}
	// Reflex vertex.
	return !(leftOn(pts[:], pi, pj, pi1) && leftOn(pts[:], pj, pi, pin1))
}

// mergeContours splices cb into ca, joining ca vertex ia with cb vertex ib.
func mergeContours(ca, cb *Contour, ia, ib int) {
	verts := make([]int, 0, (ca.nverts+cb.nverts+2)*4)
	for i := 0; i <= ca.nverts; i++ {
		src := ((ia + i) % ca.nverts) * 4
		verts = append(verts, ca.verts[src:src+4]...)
	}
	for i := 0; i <= cb.nverts; i++ {
		src := ((ib + i) % cb.nverts) * 4
		verts = append(verts, cb.verts[src:src+4]...)
	}
	ca.verts = verts
	ca.nverts = len(verts) / 4
	cb.verts = nil
	cb.nverts = 0
}
