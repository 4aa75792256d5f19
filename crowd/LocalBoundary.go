package crowd

import (
	"math"

	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxLocalSegs  = 8
	maxLocalPolys = 16
)

type boundarySegment struct {
	s [2]mgl32.Vec3
	d float32 // distance for pruning
}

// LocalBoundary caches the wall segments around an agent. It is refreshed
// when the agent has moved far enough from the last query center.
type LocalBoundary struct {
	center mgl32.Vec3
	segs   []boundarySegment
	polys  []detour.PolyRef
}

func NewLocalBoundary() *LocalBoundary {
	b := &LocalBoundary{
		segs:  make([]boundarySegment, 0, maxLocalSegs),
		polys: make([]detour.PolyRef, 0, maxLocalPolys),
	}
	b.Reset()
	return b
}

// Reset drops the cached segments and moves the center to infinity so
// the next update refreshes.
func (b *LocalBoundary) Reset() {
	b.center = mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	b.segs = b.segs[:0]
	b.polys = b.polys[:0]
}

func (b *LocalBoundary) Center() mgl32.Vec3 { return b.center }

func (b *LocalBoundary) SegmentCount() int { return len(b.segs) }

// Segment returns the end points of segment i.
func (b *LocalBoundary) Segment(i int) (mgl32.Vec3, mgl32.Vec3) {
	return b.segs[i].s[0], b.segs[i].s[1]
}

// addSegment keeps the segments sorted by distance, at most maxLocalSegs.
func (b *LocalBoundary) addSegment(dist float32, start, end mgl32.Vec3) {
	seg := boundarySegment{s: [2]mgl32.Vec3{start, end}, d: dist}
	n := len(b.segs)
	if n > 0 && dist >= b.segs[n-1].d {
		if n >= maxLocalSegs {
			return
		}
		b.segs = append(b.segs, seg)
		return
	}
	i := 0
	for i < n && dist > b.segs[i].d {
		i++
	}
	if n < maxLocalSegs {
		b.segs = append(b.segs, boundarySegment{})
	}
	copy(b.segs[i+1:], b.segs[i:])
	b.segs[i] = seg
}

// Update collects the walls of the polygons within collisionQueryRange of
// pos. A zero ref clears the boundary.
func (b *LocalBoundary) Update(ref detour.PolyRef, pos mgl32.Vec3, collisionQueryRange float32, q *detour.NavMeshQuery, filter *detour.QueryFilter) {
	const maxSegsPerPoly = detour.VertsPerPolygon * 3
	if ref == 0 {
		b.Reset()
		return
	}
	b.center = pos
	b.segs = b.segs[:0]
	b.polys = b.polys[:0]

	// First query non-overlapping polygons.
	refs, _, err := q.FindLocalNeighbourhood(ref, pos, collisionQueryRange, filter, maxLocalPolys)
	if err != nil {
		return
	}
	b.polys = append(b.polys, refs...)

	// Secondly, store all polygon edges.
	for _, poly := range b.polys {
		walls, err := q.GetPolyWallSegments(poly, filter, maxSegsPerPoly)
		if err != nil {
			continue
		}
		for _, w := range walls {
			// Skip too distant segments.
			distSqr, _ := detour.DistancePtSegSqr2D(pos, w.Start, w.End)
			if distSqr > sqr(collisionQueryRange) {
				continue
			}
			b.addSegment(distSqr, w.Start, w.End)
		}
	}
}

// IsValid reports whether every polygon the boundary was built from still
// passes the filter.
func (b *LocalBoundary) IsValid(q *detour.NavMeshQuery, filter *detour.QueryFilter) bool {
	if len(b.polys) == 0 {
		return false
	}
	for _, ref := range b.polys {
		if !isValidPolyRef(q, ref, filter) {
			return false
		}
	}
	return true
}
