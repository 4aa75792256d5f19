package recast

// CompactCell indexes the spans of one heightfield column.
type CompactCell struct {
	index int
	count int
}

// CompactSpan is the open space above a solid span.
type CompactSpan struct {
	// The lower extent of the span, measured from the heightfield base.
	y int
	// The id of the region the span belongs to, 0 if none.
	reg int
	// Packed neighbour connection data, 6 bits per direction.
	con int
	// The height of the span, measured from y.
	h int
}

// setCon sets the layer index of the neighbour in direction dir.
func (s *CompactSpan) setCon(dir, i int) {
	shift := uint(dir * 6)
	s.con = (s.con &^ (0x3f << shift)) | ((i & 0x3f) << shift)
}

// getCon returns the layer index of the neighbour in direction dir, or
// notConnected.
func (s *CompactSpan) getCon(dir int) int {
	return (s.con >> uint(dir*6)) & 0x3f
}
