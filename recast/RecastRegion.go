package recast

import "fmt"

// BuildDistanceField computes the distance of every span to the nearest
// area border and stores a blurred copy in the field.
func BuildDistanceField(chf *CompactHeightfield) {
	src := make([]int, chf.spanCount)
	chf.maxDistance = calculateDistanceField(chf, src)
	chf.dist = boxBlur(chf, 1, src)
}

func calculateDistanceField(chf *CompactHeightfield, src []int) int {
	w, h := chf.width, chf.height
	for i := range src {
		src[i] = 0xffff
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				area := chf.areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						continue
					}
					if chf.areas[chf.neighbour(x, y, dir, s)] == area {
						nc++
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	chamferPasses(chf, src, 0xffff)

	maxDist := 0
	for _, d := range src {
		maxDist = maxi(maxDist, d)
	}
	return maxDist
}

// boxBlur averages each distance with its 8 neighbours. Spans at or below
// 2*thr keep their value.
func boxBlur(chf *CompactHeightfield, thr int, src []int) []int {
	w, h := chf.width, chf.height
	dst := make([]int, chf.spanCount)
	thr *= 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				cd := src[i]
				if cd <= thr {
					dst[i] = cd
					continue
				}
				d := cd
				for dir := 0; dir < 4; dir++ {
					if s.getCon(dir) == notConnected {
						d += cd * 2
						continue
					}
					ax := x + dirOffsX(dir)
					ay := y + dirOffsY(dir)
					ai := chf.cells[ax+ay*w].index + s.getCon(dir)
					d += src[ai]
					as := &chf.spans[ai]
					dir2 := (dir + 1) & 0x3
					if as.getCon(dir2) != notConnected {
						d += src[chf.neighbour(ax, ay, dir2, as)]
					} else {
						d += cd
					}
				}
				dst[i] = (d + 5) / 9
			}
		}
	}
	return dst
}

// watershed holds the double buffered region and distance values of a
// region build.
type watershed struct {
	chf              *CompactHeightfield
	srcReg, dstReg   []int
	srcDist, dstDist []int
}

func (ws *watershed) swap() {
	ws.srcReg, ws.dstReg = ws.dstReg, ws.srcReg
	ws.srcDist, ws.dstDist = ws.dstDist, ws.srcDist
}

// BuildRegions partitions the walkable spans into regions with the
// watershed algorithm. The distance field must be built first. Spans in
// the outer borderSize cells get border regions. Region islands smaller
// than minRegionArea spans are removed and regions smaller than
// mergeRegionArea are merged into a neighbour when possible.
func BuildRegions(chf *CompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error {
	if len(chf.dist) != chf.spanCount {
		return fmt.Errorf("build regions: distance field missing")
	}
	w, h := chf.width, chf.height

	ws := &watershed{
		chf:     chf,
		srcReg:  make([]int, chf.spanCount),
		dstReg:  make([]int, chf.spanCount),
		srcDist: make([]int, chf.spanCount),
		dstDist: make([]int, chf.spanCount),
	}
	var lvlStacks [nbStacks][]int
	var stack []int

	regionID := 1
	level := (chf.maxDistance + 1) &^ 1

	// How far the watershed overflows each level.
	const expandIters = 8

	if borderSize > 0 {
		bw := mini(w, borderSize)
		bh := mini(h, borderSize)
		ws.paintRect(0, bw, 0, h, regionID|borderReg)
		regionID++
		ws.paintRect(w-bw, w, 0, h, regionID|borderReg)
		regionID++
		ws.paintRect(0, w, 0, bh, regionID|borderReg)
		regionID++
		ws.paintRect(0, w, h-bh, h, regionID|borderReg)
		regionID++
	}
	chf.borderSize = borderSize

	sID := -1
	for level > 0 {
		level = maxi(level-2, 0)
		sID = (sID + 1) & (nbStacks - 1)

		if sID == 0 {
			ws.sortCellsByLevel(level, &lvlStacks, 1)
		} else {
			// Carry over what the previous level left unassigned.
			lvlStacks[sID] = ws.appendStack(lvlStacks[sID-1], lvlStacks[sID])
		}

		ws.expand(expandIters, level, &lvlStacks[sID], false)

		// Mark new regions with ids.
		cur := lvlStacks[sID]
		for j := 0; j < len(cur); j += 3 {
			x, y, i := cur[j], cur[j+1], cur[j+2]
			if i >= 0 && ws.srcReg[i] == 0 {
				if ws.flood(x, y, i, level, regionID, &stack) {
					if regionID >= 0xffff {
						return fmt.Errorf("build regions: region id overflow")
					}
					regionID++
				}
			}
		}
	}

	// Expand until no empty connected cells are left.
	ws.expand(expandIters*8, 0, &stack, true)

	chf.maxRegions = ws.mergeAndFilter(minRegionArea, mergeRegionArea, regionID)
	for i := 0; i < chf.spanCount; i++ {
		chf.spans[i].reg = ws.srcReg[i]
	}
	return nil
}

func (ws *watershed) paintRect(minx, maxx, miny, maxy, regID int) {
	chf := ws.chf
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := chf.cells[x+y*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] != NullArea {
					ws.srcReg[i] = regID
				}
			}
		}
	}
}

// sortCellsByLevel buckets the unassigned spans into stacks by distance,
// 1<<logLevelsPerStack levels per stack, starting at startLevel.
func (ws *watershed) sortCellsByLevel(startLevel int, stacks *[nbStacks][]int, logLevelsPerStack uint) {
	chf := ws.chf
	w, h := chf.width, chf.height
	startLevel >>= logLevelsPerStack
	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == NullArea || ws.srcReg[i] != 0 {
					continue
				}
				sID := startLevel - chf.dist[i]>>logLevelsPerStack
				if sID >= nbStacks {
					continue
				}
				if sID < 0 {
					sID = 0
				}
				stacks[sID] = append(stacks[sID], x, y, i)
			}
		}
	}
}

func (ws *watershed) appendStack(src, dst []int) []int {
	for j := 0; j < len(src); j += 3 {
		i := src[j+2]
		if i < 0 || ws.srcReg[i] != 0 {
			continue
		}
		dst = append(dst, src[j], src[j+1], i)
	}
	return dst
}

// expand grows existing regions into the spans of stack. With fillStack
// the stack is first filled with every unassigned span at or above level.
// Assigned entries get their span index set to -1.
func (ws *watershed) expand(maxIter, level int, stack *[]int, fillStack bool) {
	chf := ws.chf
	w, h := chf.width, chf.height

	if fillStack {
		*stack = (*stack)[:0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := chf.cells[x+y*w]
				for i := c.index; i < c.index+c.count; i++ {
					if chf.dist[i] >= level && ws.srcReg[i] == 0 && chf.areas[i] != NullArea {
						*stack = append(*stack, x, y, i)
					}
				}
			}
		}
	} else {
		// Skip cells which already have a region.
		for j := 0; j < len(*stack); j += 3 {
			if i := (*stack)[j+2]; i >= 0 && ws.srcReg[i] != 0 {
				(*stack)[j+2] = -1
			}
		}
	}

	st := *stack
	iter := 0
	for len(st) > 0 {
		failed := 0
		copy(ws.dstReg, ws.srcReg)
		copy(ws.dstDist, ws.srcDist)

		for j := 0; j < len(st); j += 3 {
			x, y, i := st[j], st[j+1], st[j+2]
			if i < 0 {
				failed++
				continue
			}
			r := ws.srcReg[i]
			d2 := 0xffff
			area := chf.areas[i]
			s := &chf.spans[i]
			for dir := 0; dir < 4; dir++ {
				if s.getCon(dir) == notConnected {
					continue
				}
				ai := chf.neighbour(x, y, dir, s)
				if chf.areas[ai] != area {
					continue
				}
				if nr := ws.srcReg[ai]; nr > 0 && nr&borderReg == 0 {
					if ws.srcDist[ai]+2 < d2 {
						r = nr
						d2 = ws.srcDist[ai] + 2
					}
				}
			}
			if r != 0 {
				st[j+2] = -1
				ws.dstReg[i] = r
				ws.dstDist[i] = d2
			} else {
				failed++
			}
		}

		ws.swap()

		if failed*3 == len(st) {
			break
		}
		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
}

// flood fills region r from span i over connected spans of the same area
// with distance at least level-2. It backs off where another region is
// already adjacent and reports whether any span was taken.
func (ws *watershed) flood(x, y, i, level, r int, stack *[]int) bool {
	chf := ws.chf
	area := chf.areas[i]

	st := append((*stack)[:0], x, y, i)
	ws.srcReg[i] = r
	ws.srcDist[i] = 0

	lev := 0
	if level >= 2 {
		lev = level - 2
	}
	count := 0

	for len(st) > 0 {
		n := len(st)
		cx, cy, ci := st[n-3], st[n-2], st[n-1]
		st = st[:n-3]

		cs := &chf.spans[ci]

		// Check if any of the neighbours already have a valid region set.
		ar := 0
		for dir := 0; dir < 4 && ar == 0; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax := cx + dirOffsX(dir)
			ay := cy + dirOffsY(dir)
			ai := chf.cells[ax+ay*chf.width].index + cs.getCon(dir)
			if chf.areas[ai] != area {
				continue
			}
			nr := ws.srcReg[ai]
			if nr&borderReg != 0 {
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}
			as := &chf.spans[ai]
			dir2 := (dir + 1) & 0x3
			if as.getCon(dir2) != notConnected {
				ai2 := chf.neighbour(ax, ay, dir2, as)
				if chf.areas[ai2] != area {
					continue
				}
				if nr2 := ws.srcReg[ai2]; nr2 != 0 && nr2 != r {
					ar = nr2
				}
			}
		}
		if ar != 0 {
			ws.srcReg[ci] = 0
			continue
		}
		count++

		for dir := 0; dir < 4; dir++ {
			if cs.getCon(dir) == notConnected {
				continue
			}
			ax := cx + dirOffsX(dir)
			ay := cy + dirOffsY(dir)
			ai := chf.cells[ax+ay*chf.width].index + cs.getCon(dir)
			if chf.areas[ai] != area {
				continue
			}
			if chf.dist[ai] >= lev && ws.srcReg[ai] == 0 {
				ws.srcReg[ai] = r
				ws.srcDist[ai] = 0
				st = append(st, ax, ay, ai)
			}
		}
	}
	*stack = st
	return count > 0
}

// mergeAndFilter removes small region islands, merges small regions into
// neighbours and compacts the ids. It returns the largest id in use.
func (ws *watershed) mergeAndFilter(minRegionArea, mergeRegionSize, maxRegionID int) int {
	chf := ws.chf
	srcReg := ws.srcReg
	w, h := chf.width, chf.height
	nreg := maxRegionID + 1
	regions := make([]*region, nreg)
	for i := range regions {
		regions[i] = &region{id: i}
	}

	// Find the edge of each region and its connections around the contour.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				r := srcReg[i]
				if r == 0 || r >= nreg {
					continue
				}
				reg := regions[r]
				reg.spanCount++

				for j := c.index; j < c.index+c.count; j++ {
					if i == j {
						continue
					}
					floorID := srcReg[j]
					if floorID == 0 || floorID >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					reg.addUniqueFloor(floorID)
				}

				// Contour already found.
				if len(reg.connections) > 0 {
					continue
				}
				reg.areaType = chf.areas[i]

				ndir := -1
				for dir := 0; dir < 4; dir++ {
					if ws.isSolidEdge(x, y, i, dir) {
						ndir = dir
						break
					}
				}
				if ndir != -1 {
					reg.connections = ws.walkContour(x, y, i, ndir)
				}
			}
		}
	}

	// Remove too small regions.
	var stack, trace []int
	for i := 0; i < nreg; i++ {
		reg := regions[i]
		if reg.id == 0 || reg.id&borderReg != 0 || reg.spanCount == 0 || reg.visited {
			continue
		}
		// Count the size of all connected regions and note whether they
		// touch the tile border.
		connectsToBorder := false
		spanCount := 0
		stack = append(stack[:0], i)
		trace = trace[:0]
		reg.visited = true
		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			creg := regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)
			for _, c := range creg.connections {
				if c&borderReg != 0 {
					connectsToBorder = true
					continue
				}
				nei := regions[c]
				if nei.visited || nei.id == 0 || nei.id&borderReg != 0 {
					continue
				}
				stack = append(stack, nei.id)
				nei.visited = true
			}
		}
		// Regions on the tile border cannot be sized correctly, keep them.
		if spanCount < minRegionArea && !connectsToBorder {
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge too small regions into neighbour regions.
	for mergeCount := 1; mergeCount > 0; {
		mergeCount = 0
		for _, reg := range regions {
			if reg.id == 0 || reg.id&borderReg != 0 || reg.overlap || reg.spanCount == 0 {
				continue
			}
			if reg.spanCount > mergeRegionSize && reg.connectedToBorder() {
				continue
			}
			// Find the smallest neighbour that can take this region.
			smallest := 0xfffffff
			mergeID := reg.id
			for _, c := range reg.connections {
				if c&borderReg != 0 {
					continue
				}
				mreg := regions[c]
				if mreg.id == 0 || mreg.id&borderReg != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest && reg.canMergeWith(mreg) && mreg.canMergeWith(reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}
			if mergeID == reg.id {
				continue
			}
			oldID := reg.id
			if !regions[mergeID].merge(reg) {
				continue
			}
			for _, other := range regions {
				if other.id == 0 || other.id&borderReg != 0 {
					continue
				}
				// Regions merged into this one earlier follow it.
				if other.id == oldID {
					other.id = mergeID
				}
				other.replaceNeighbour(oldID, mergeID)
			}
			mergeCount++
		}
	}

	// Compress region ids.
	for _, reg := range regions {
		reg.remap = reg.id != 0 && reg.id&borderReg == 0
	}
	regIDGen := 0
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = regIDGen
				regions[j].remap = false
			}
		}
	}

	for i := 0; i < chf.spanCount; i++ {
		if srcReg[i]&borderReg == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}
	return regIDGen
}

func (ws *watershed) isSolidEdge(x, y, i, dir int) bool {
	chf := ws.chf
	s := &chf.spans[i]
	r := 0
	if s.getCon(dir) != notConnected {
		r = ws.srcReg[chf.neighbour(x, y, dir, s)]
	}
	return r != ws.srcReg[i]
}

// walkContour follows the region border clockwise from span i and returns
// the ring of neighbour region ids met along the way.
func (ws *watershed) walkContour(x, y, i, dir int) []int {
	chf := ws.chf
	startDir, starti := dir, i

	neighbourReg := func(x, y, i, dir int) int {
		s := &chf.spans[i]
		if s.getCon(dir) == notConnected {
			return 0
		}
		return ws.srcReg[chf.neighbour(x, y, dir, s)]
	}

	curReg := neighbourReg(x, y, i, dir)
	cont := []int{curReg}

	for iter := 1; iter < 40000; iter++ {
		s := &chf.spans[i]
		if ws.isSolidEdge(x, y, i, dir) {
			if r := neighbourReg(x, y, i, dir); r != curReg {
				curReg = r
				cont = append(cont, curReg)
			}
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if s.getCon(dir) == notConnected {
				// Should not happen.
				return cont
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

	if len(cont) > 1 {
		cont = removeAdjacentDuplicates(cont)
	}
	return cont
}
