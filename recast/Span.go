package recast

// Span is a solid voxel run in a heightfield column.
type Span struct {
	// The lower limit of the span. [Limit: < smax]
	smin int
	// The upper limit of the span. [Limit: <= spanMaxHeight]
	smax int
	// The area id assigned to the span.
	area int
	// The next span higher up in column.
	next *Span
}
