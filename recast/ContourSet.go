package recast

// ContourSet is the set of region outlines of a compact heightfield.
type ContourSet struct {
	conts      []*Contour
	bmin, bmax [3]float32
	cs, ch     float32
	// Size in cells, without the border.
	width, height int
	borderSize    int
	maxError      float32
}

// Len returns the number of contours.
func (cset *ContourSet) Len() int { return len(cset.conts) }
