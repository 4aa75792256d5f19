package recast

// region is the bookkeeping for one watershed region while regions are
// filtered and merged.
type region struct {
	spanCount int
	id        int
	areaType  int
	remap     bool
	visited   bool
	// Set when the region has spans stacked on top of each other.
	overlap bool
	// Neighbour region ids in contour order, 0 for solid edges.
	connections []int
	// Regions found above or below this one in the same columns.
	floors []int
}

func (reg *region) addUniqueFloor(n int) {
	for _, f := range reg.floors {
		if f == n {
			return
		}
	}
	reg.floors = append(reg.floors, n)
}

// connectedToBorder reports whether one of the neighbours is solid.
func (reg *region) connectedToBorder() bool {
	for _, c := range reg.connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func (reg *region) canMergeWith(other *region) bool {
	if reg.areaType != other.areaType {
		return false
	}
	n := 0
	for _, c := range reg.connections {
		if c == other.id {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range reg.floors {
		if f == other.id {
			return false
		}
	}
	return true
}

// merge absorbs other into reg, splicing both connection rings at their
// shared edge.
func (reg *region) merge(other *region) bool {
	aid, bid := reg.id, other.id
	acon := append([]int(nil), reg.connections...)
	bcon := other.connections

	insa := indexOf(acon, bid)
	if insa == -1 {
		return false
	}
	insb := indexOf(bcon, aid)
	if insb == -1 {
		return false
	}

	reg.connections = reg.connections[:0]
	for i, ni := 0, len(acon); i < ni-1; i++ {
		reg.connections = append(reg.connections, acon[(insa+1+i)%ni])
	}
	for i, ni := 0, len(bcon); i < ni-1; i++ {
		reg.connections = append(reg.connections, bcon[(insb+1+i)%ni])
	}
	reg.removeAdjacentNeighbours()

	for _, f := range other.floors {
		reg.addUniqueFloor(f)
	}
	reg.spanCount += other.spanCount
	other.spanCount = 0
	other.connections = nil
	return true
}

func (reg *region) removeAdjacentNeighbours() {
	reg.connections = removeAdjacentDuplicates(reg.connections)
}

func (reg *region) replaceNeighbour(oldID, newID int) {
	changed := false
	for i, c := range reg.connections {
		if c == oldID {
			reg.connections[i] = newID
			changed = true
		}
	}
	for i, f := range reg.floors {
		if f == oldID {
			reg.floors[i] = newID
		}
	}
	if changed {
		reg.removeAdjacentNeighbours()
	}
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// removeAdjacentDuplicates collapses runs of equal values in the ring s.
func removeAdjacentDuplicates(s []int) []int {
	for i := 0; i < len(s) && len(s) > 1; {
		ni := (i + 1) % len(s)
		if s[i] == s[ni] {
			s = append(s[:i], s[i+1:]...)
		} else {
			i++
		}
	}
	return s
}
