package recast

// ErodeWalkableArea clears every span closer than radius voxels to an
// unwalkable border.
func ErodeWalkableArea(radius int, chf *CompactHeightfield) {
	w, h := chf.width, chf.height
	dist := make([]int, chf.spanCount)
	for i := range dist {
		dist[i] = 255
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == NullArea {
					dist[i] = 0
					continue
				}
				s := &chf.spans[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						continue
					}
					if chf.areas[chf.neighbour(x, y, dir, s)] != NullArea {
						nc++
					}
				}
				// At least one missing neighbour.
				if nc != 4 {
					dist[i] = 0
				}
			}
		}
	}

	chamferPasses(chf, dist, 255)

	thr := radius * 2
	for i := range dist {
		if dist[i] < thr {
			chf.areas[i] = NullArea
		}
	}
}

// chamferPasses runs the two pass 2-3 chamfer distance transform over
// dist, capping values at limit.
func chamferPasses(chf *CompactHeightfield, dist []int, limit int) {
	w, h := chf.width, chf.height
	relax := func(i, j, cost int) {
		if nd := mini(dist[j]+cost, limit); nd < dist[i] {
			dist[i] = nd
		}
	}
	// step visits the straight neighbour in dir and the diagonal reached
	// by turning to dir2 from there.
	step := func(x, y, i int, s *CompactSpan, dir, dir2 int) {
		if s.getCon(dir) == notConnected {
			return
		}
		ax := x + dirOffsX(dir)
		ay := y + dirOffsY(dir)
		ai := chf.cells[ax+ay*w].index + s.getCon(dir)
		relax(i, ai, 2)
		as := &chf.spans[ai]
		if as.getCon(dir2) != notConnected {
			relax(i, chf.neighbour(ax, ay, dir2, as), 3)
		}
	}

	// Pass 1: (-1,0), (-1,-1), (0,-1), (1,-1).
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				step(x, y, i, s, 0, 3)
				step(x, y, i, s, 3, 2)
			}
		}
	}
	// Pass 2: (1,0), (1,1), (0,1), (-1,1).
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				step(x, y, i, s, 2, 1)
				step(x, y, i, s, 1, 0)
			}
		}
	}
}

// ConvexVolume is an area marker: every walkable span inside the xz
// polygon and between Hmin and Hmax gets Area.
type ConvexVolume struct {
	Verts      []float32 // (x, y, z) per vertex
	Hmin, Hmax float32
	Area       int
}

// MarkConvexPolyArea applies vol to the compact heightfield.
func MarkConvexPolyArea(vol ConvexVolume, chf *CompactHeightfield) {
	nv := len(vol.Verts) / 3
	if nv < 3 {
		return
	}
	var bmin, bmax [3]float32
	vcopy(bmin[:], 0, vol.Verts, 0)
	vcopy(bmax[:], 0, vol.Verts, 0)
	for i := 1; i < nv; i++ {
		vmin(bmin[:], vol.Verts, i*3)
		vmax(bmax[:], vol.Verts, i*3)
	}
	bmin[1] = vol.Hmin
	bmax[1] = vol.Hmax

	minx := int((bmin[0] - chf.bmin[0]) / chf.cs)
	miny := int((bmin[1] - chf.bmin[1]) / chf.ch)
	minz := int((bmin[2] - chf.bmin[2]) / chf.cs)
	maxx := int((bmax[0] - chf.bmin[0]) / chf.cs)
	maxy := int((bmax[1] - chf.bmin[1]) / chf.ch)
	maxz := int((bmax[2] - chf.bmin[2]) / chf.cs)
	if maxx < 0 || minx >= chf.width || maxz < 0 || minz >= chf.height {
		return
	}
	minx = maxi(minx, 0)
	maxx = mini(maxx, chf.width-1)
	minz = maxi(minz, 0)
	maxz = mini(maxz, chf.height-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			c := chf.cells[x+z*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == NullArea {
					continue
				}
				s := &chf.spans[i]
				if s.y < miny || s.y > maxy {
					continue
				}
				p := [3]float32{
					chf.bmin[0] + (float32(x)+0.5)*chf.cs,
					0,
					chf.bmin[2] + (float32(z)+0.5)*chf.cs,
				}
				if pointInPoly(vol.Verts, p) {
					chf.areas[i] = vol.Area
				}
			}
		}
	}
}

// pointInPoly is an xz crossing test against a flat vertex array.
func pointInPoly(verts []float32, p [3]float32) bool {
	c := false
	nv := len(verts) / 3
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		vi, vj := i*3, j*3
		if (verts[vi+2] > p[2]) != (verts[vj+2] > p[2]) &&
			p[0] < (verts[vj]-verts[vi])*(p[2]-verts[vi+2])/(verts[vj+2]-verts[vi+2])+verts[vi] {
			c = !c
		}
	}
	return c
}
