package recast

// Heightfield is a dynamic voxel field: a grid of columns, each holding a
// linked list of solid spans sorted bottom up.
type Heightfield struct {
	// Width along x in cells.
	width int
	// Height along z in cells.
	height int
	bmin   [3]float32
	bmax   [3]float32
	// Cell size on xz.
	cs float32
	// Cell height on y.
	ch    float32
	spans []*Span
	// Spans are allocated in pools and recycled through freelist.
	pools    [][]Span
	freelist *Span
}

const spansPerPool = 2048

// NewHeightfield allocates an empty width x height field.
func NewHeightfield(width, height int, bmin, bmax [3]float32, cs, ch float32) *Heightfield {
	return &Heightfield{
		width:  width,
		height: height,
		bmin:   bmin,
		bmax:   bmax,
		cs:     cs,
		ch:     ch,
		spans:  make([]*Span, width*height),
	}
}

func (hf *Heightfield) allocSpan() *Span {
	if hf.freelist == nil {
		pool := make([]Span, spansPerPool)
		hf.pools = append(hf.pools, pool)
		for i := len(pool) - 1; i >= 0; i-- {
			pool[i].next = hf.freelist
			hf.freelist = &pool[i]
		}
	}
	s := hf.freelist
	hf.freelist = s.next
	*s = Span{}
	return s
}

func (hf *Heightfield) freeSpan(s *Span) {
	if s == nil {
		return
	}
	s.next = hf.freelist
	hf.freelist = s
}

// spanCount counts the walkable spans.
func (hf *Heightfield) spanCount() int {
	n := 0
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			if s.area != NullArea {
				n++
			}
		}
	}
	return n
}
