package detour

import "github.com/go-gl/mathgl/mgl32"

// Node is a search node. A polygon can own several nodes that differ by
// state, used to track which tile side a path entered from.
type Node struct {
	index int // 1 based index in the pool
	pos   mgl32.Vec3
	// Cost from the start.
	cost float32
	// Cost plus heuristic.
	total float32
	// Parent index in the pool, 0 for none.
	pidx  int
	state uint8
	flags uint8
	id    PolyRef
	// Position in the open list heap, -1 when not queued.
	heapIndex int
}
