package crowd

import (
	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
)

// PathCorridor is the polygon corridor an agent follows, from the polygon
// containing pos to the polygon containing target. The corridor is
// adjusted as the agent moves instead of being replanned.
type PathCorridor struct {
	pos     mgl32.Vec3
	target  mgl32.Vec3
	path    []detour.PolyRef
	maxPath int
}

// NewPathCorridor returns an empty corridor holding up to maxPath polygons.
func NewPathCorridor(maxPath int) *PathCorridor {
	return &PathCorridor{path: make([]detour.PolyRef, 0, maxPath), maxPath: maxPath}
}

// Reset sets the corridor to the single polygon ref at pos.
func (pc *PathCorridor) Reset(ref detour.PolyRef, pos mgl32.Vec3) {
	pc.pos = pos
	pc.target = pos
	pc.path = append(pc.path[:0], ref)
}

// SetCorridor replaces the path. path[0] must contain the current
// position and target must lie in the last polygon.
func (pc *PathCorridor) SetCorridor(target mgl32.Vec3, path []detour.PolyRef) {
	pc.target = target
	if len(path) > pc.maxPath {
		path = path[:pc.maxPath]
	}
	pc.path = append(pc.path[:0], path...)
}

func (pc *PathCorridor) Pos() mgl32.Vec3 { return pc.pos }

func (pc *PathCorridor) Target() mgl32.Vec3 { return pc.target }

// Path returns the corridor polygons. The slice is owned by the corridor.
func (pc *PathCorridor) Path() []detour.PolyRef { return pc.path }

// FirstPoly returns the polygon containing the position, 0 if empty.
func (pc *PathCorridor) FirstPoly() detour.PolyRef {
	if len(pc.path) == 0 {
		return 0
	}
	return pc.path[0]
}

// LastPoly returns the polygon containing the target, 0 if empty.
func (pc *PathCorridor) LastPoly() detour.PolyRef {
	if len(pc.path) == 0 {
		return 0
	}
	return pc.path[len(pc.path)-1]
}

const minTargetDist = 0.01

// FindCorners returns up to maxCorners straight path corners ahead of the
// position. Corners too close to the position are dropped.
func (pc *PathCorridor) FindCorners(q *detour.NavMeshQuery, maxCorners int) []detour.StraightPathItem {
	if len(pc.path) == 0 {
		return nil
	}
	corners, _, err := q.FindStraightPath(pc.pos, pc.target, pc.path, maxCorners, 0)
	if err != nil {
		return nil
	}
	for len(corners) > 0 {
		if corners[0].Flags&detour.StraightPathOffMeshConnection != 0 || vdist2DSqr(corners[0].Pos, pc.pos) > sqr(minTargetDist) {
			break
		}
		corners = corners[1:]
	}
	return corners
}

// OptimizePathVisibility shortcuts the corridor when next is directly
// visible from the position. The look ahead is limited to
// pathOptimizationRange.
func (pc *PathCorridor) OptimizePathVisibility(next mgl32.Vec3, pathOptimizationRange float32, q *detour.NavMeshQuery, filter *detour.QueryFilter) {
	if len(pc.path) == 0 {
		return
	}
	// Clamp the ray to max distance.
	goal := next
	dist := vdist2D(pc.pos, goal)
	if dist < 0.01 {
		return
	}
	dist = minf(dist+0.01, pathOptimizationRange)
	delta := goal.Sub(pc.pos)
	goal = pc.pos.Add(delta.Mul(pathOptimizationRange / dist))

	const maxRes = 32
	hit, _, err := q.Raycast(pc.path[0], pc.pos, goal, filter, maxRes)
	if err != nil {
		return
	}
	if len(hit.Path) > 1 && hit.T > 0.99 {
		pc.path = mergeCorridorStartShortcut(pc.path, pc.maxPath, hit.Path)
	}
}

// OptimizePathTopology replans the start of the corridor with a short
// search and keeps the result when it is cheaper.
func (pc *PathCorridor) OptimizePathTopology(q *detour.NavMeshQuery, filter *detour.QueryFilter) bool {
	if len(pc.path) < 3 {
		return false
	}
	const maxRes = 32
	res, _, err := q.FindPath(pc.path[0], pc.path[len(pc.path)-1], pc.pos, pc.target, filter, maxRes)
	if err != nil || len(res) == 0 {
		return false
	}
	pc.path = mergeCorridorStartShortcut(pc.path, pc.maxPath, res)
	return true
}

// MovePosition moves the position towards npos along the surface and
// trims the corridor behind it. The height is snapped to the polygon.
func (pc *PathCorridor) MovePosition(npos mgl32.Vec3, q *detour.NavMeshQuery, filter *detour.QueryFilter) bool {
	if len(pc.path) == 0 {
		return false
	}
	const maxVisited = 16
	result, visited, err := q.MoveAlongSurface(pc.path[0], pc.pos, npos, filter, maxVisited)
	if err != nil {
		return false
	}
	pc.path = mergeCorridorStartMoved(pc.path, pc.maxPath, visited)
	if h, err := q.GetPolyHeight(pc.path[0], result); err == nil {
		result[1] = h
	}
	pc.pos = result
	return true
}

// MoveTargetPosition moves the target along the surface and trims the
// end of the corridor.
func (pc *PathCorridor) MoveTargetPosition(npos mgl32.Vec3, q *detour.NavMeshQuery, filter *detour.QueryFilter) bool {
	if len(pc.path) == 0 {
		return false
	}
	const maxVisited = 16
	result, visited, err := q.MoveAlongSurface(pc.path[len(pc.path)-1], pc.target, npos, filter, maxVisited)
	if err != nil {
		return false
	}
	pc.path = mergeCorridorEndMoved(pc.path, pc.maxPath, visited)
	pc.target = result
	return true
}

// IsValid checks the first maxLookAhead polygons against the mesh and
// the filter.
func (pc *PathCorridor) IsValid(maxLookAhead int, q *detour.NavMeshQuery, filter *detour.QueryFilter) bool {
	n := len(pc.path)
	if maxLookAhead < n {
		n = maxLookAhead
	}
	for _, ref := range pc.path[:n] {
		if !isValidPolyRef(q, ref, filter) {
			return false
		}
	}
	return true
}

// FixPathStart replaces the first polygon with safeRef at safePos. A
// placeholder polygon keeps the rest of the path for the replanner.
func (pc *PathCorridor) FixPathStart(safeRef detour.PolyRef, safePos mgl32.Vec3) {
	pc.pos = safePos
	if n := len(pc.path); n < 3 && n > 0 {
		last := pc.path[n-1]
		pc.path = append(pc.path[:0], safeRef, 0, last)
	} else if n >= 3 {
		pc.path[0] = safeRef
		pc.path[1] = 0
	}
}

// TrimInvalidPath cuts the corridor at the first invalid polygon and
// clamps the target into the last valid one.
func (pc *PathCorridor) TrimInvalidPath(safeRef detour.PolyRef, safePos mgl32.Vec3, q *detour.NavMeshQuery, filter *detour.QueryFilter) {
	n := 0
	for n < len(pc.path) && isValidPolyRef(q, pc.path[n], filter) {
		n++
	}
	switch {
	case n == len(pc.path):
		return
	case n == 0:
		pc.pos = safePos
		pc.path = append(pc.path[:0], safeRef)
	default:
		pc.path = pc.path[:n]
	}
	if t, err := q.ClosestPointOnPolyBoundary(pc.path[len(pc.path)-1], pc.target); err == nil {
		pc.target = t
	}
}

func isValidPolyRef(q *detour.NavMeshQuery, ref detour.PolyRef, filter *detour.QueryFilter) bool {
	tile, poly, err := q.NavMesh().TileAndPolyByRef(ref)
	if err != nil {
		return false
	}
	return filter.PassFilter(ref, tile, poly)
}

// mergeCorridorStartMoved replaces the start of path up to the furthest
// polygon shared with visited by the visited polygons, most recent first.
func mergeCorridorStartMoved(path []detour.PolyRef, maxPath int, visited []detour.PolyRef) []detour.PolyRef {
	furthestPath, furthestVisited := -1, -1
	// Find furthest common polygon.
	for i := len(path) - 1; i >= 0; i-- {
		found := false
		for j := len(visited) - 1; j >= 0; j-- {
			if path[i] == visited[j] {
				furthestPath, furthestVisited = i, j
				found = true
			}
		}
		if found {
			break
		}
	}
	// No intersection, return the current path.
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	// Visited polygons from the common one on, reversed, then the rest
	// of the path.
	req := len(visited) - furthestVisited
	orig := furthestPath + 1
	size := len(path) - orig
	if size+req > maxPath {
		size = maxPath - req
	}
	if size < 0 {
		size = 0
	}
	out := make([]detour.PolyRef, 0, req+size)
	for i := 0; i < req; i++ {
		out = append(out, visited[len(visited)-1-i])
	}
	out = append(out, path[orig:orig+size]...)
	return append(path[:0], out...)
}

// mergeCorridorEndMoved appends the visited polygons after the furthest
// polygon shared with path.
func mergeCorridorEndMoved(path []detour.PolyRef, maxPath int, visited []detour.PolyRef) []detour.PolyRef {
	furthestPath, furthestVisited := -1, -1
	for i := 0; i < len(path); i++ {
		found := false
		for j := len(visited) - 1; j >= 0; j-- {
			if path[i] == visited[j] {
				furthestPath, furthestVisited = i, j
				found = true
			}
		}
		if found {
			break
		}
	}
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	ppos := furthestPath + 1
	vpos := furthestVisited + 1
	count := len(visited) - vpos
	if ppos+count > maxPath {
		count = maxPath - ppos
	}
	if count < 0 {
		count = 0
	}
	return append(path[:ppos], visited[vpos:vpos+count]...)
}

// mergeCorridorStartShortcut replaces the start of path up to the
// furthest polygon shared with visited by visited.
func mergeCorridorStartShortcut(path []detour.PolyRef, maxPath int, visited []detour.PolyRef) []detour.PolyRef {
	furthestPath, furthestVisited := -1, -1
	for i := len(path) - 1; i >= 0; i-- {
		found := false
		for j := len(visited) - 1; j >= 0; j-- {
			if path[i] == visited[j] {
				furthestPath, furthestVisited = i, j
				found = true
			}
		}
		if found {
			break
		}
	}
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	// Concatenate paths.
	req := furthestVisited
	if req <= 0 {
		return path
	}
	orig := furthestPath
	size := len(path) - orig
	if size+req > maxPath {
		size = maxPath - req
	}
	if size < 0 {
		size = 0
	}
	out := make([]detour.PolyRef, 0, req+size)
	out = append(out, visited[:req]...)
	out = append(out, path[orig:orig+size]...)
	return append(path[:0], out...)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
