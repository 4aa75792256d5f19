package detour

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// RaycastHit is the result of a Raycast.
type RaycastHit struct {
	// Hit parameter along the ray. maxFloat32 when the ray reached its end
	// without hitting a wall.
	T float32
	// Normal of the wall that was hit.
	HitNormal mgl32.Vec3
	// Polygons visited by the ray.
	Path []PolyRef
}

// Reached reports whether the ray reached its end point.
func (h *RaycastHit) Reached() bool { return h.T == maxFloat32 }

// Segment is a wall segment returned by GetPolyWallSegments.
type Segment struct {
	Start, End mgl32.Vec3
}

// Raycast casts a walkability ray along the surface from startPos towards
// endPos. The ray is 2D, heights are ignored. maxPath bounds the number of
// visited polygons collected.
func (q *NavMeshQuery) Raycast(startRef PolyRef, startPos, endPos mgl32.Vec3, filter *QueryFilter, maxPath int) (RaycastHit, Status, error) {
	hit := RaycastHit{}
	if !q.nav.IsValidPolyRef(startRef) {
		return hit, 0, fmt.Errorf("raycast from %d: %w", startRef, ErrInvalidParam)
	}
	var status Status
	var buf [VertsPerPolygon + 1]mgl32.Vec3
	curRef := startRef
	for curRef != 0 {
		tile, poly := q.nav.tileAndPolyByRefUnsafe(curRef)
		verts := tile.polyVerts(poly, buf[:])

		_, tmax, _, segMax, ok := intersectSegmentPoly2D(startPos, endPos, verts)
		if !ok {
			// Could not hit the polygon, keep the old t and report hit.
			return hit, status, nil
		}
		// Keep track of furthest t so far.
		if tmax > hit.T {
			hit.T = tmax
		}

		if len(hit.Path) < maxPath {
			hit.Path = append(hit.Path, curRef)
		} else {
			status |= BufferTooSmall
		}

		// Ray end is completely inside the polygon.
		if segMax == -1 {
			hit.T = maxFloat32
			return hit, status, nil
		}

		// Follow neighbours.
		var nextRef PolyRef
		for i := poly.FirstLink; i != NullLink; i = tile.links[i].Next {
			link := &tile.links[i]
			// Find link which contains this edge.
			if int(link.Edge) != segMax {
				continue
			}
			nextTile, nextPoly := q.nav.tileAndPolyByRefUnsafe(link.Ref)
			if nextPoly.Type() == PolyTypeOffMeshConnection {
				continue
			}
			if !filter.PassFilter(link.Ref, nextTile, nextPoly) {
				continue
			}
			// Internal edge, accept it.
			if link.Side == 0xff {
				nextRef = link.Ref
				break
			}
			// Whole edge.
			if link.Bmin == 0 && link.Bmax == 255 {
				nextRef = link.Ref
				break
			}

			// Partial edge: check that the hit lies inside the portal limits.
			left := verts[link.Edge]
			right := verts[(int(link.Edge)+1)%len(verts)]
			const s = 1.0 / 255.0
			if link.Side == 0 || link.Side == 4 {
				lmin := left[2] + (right[2]-left[2])*(float32(link.Bmin)*s)
				lmax := left[2] + (right[2]-left[2])*(float32(link.Bmax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}
				// Find Z intersection.
				z := startPos[2] + (endPos[2]-startPos[2])*tmax
				if z >= lmin && z <= lmax {
					nextRef = link.Ref
					break
				}
			} else if link.Side == 2 || link.Side == 6 {
				lmin := left[0] + (right[0]-left[0])*(float32(link.Bmin)*s)
				lmax := left[0] + (right[0]-left[0])*(float32(link.Bmax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}
				// Find X intersection.
				x := startPos[0] + (endPos[0]-startPos[0])*tmax
				if x >= lmin && x <= lmax {
					nextRef = link.Ref
					break
				}
			}
		}

		if nextRef == 0 {
			// No neighbour, we hit a wall. Calculate hit normal.
			a := segMax
			b := 0
			if segMax+1 < len(verts) {
				b = segMax + 1
			}
			va, vb := verts[a], verts[b]
			dx := vb[0] - va[0]
			dz := vb[2] - va[2]
			hit.HitNormal = mgl32.Vec3{dz, 0, -dx}
			if l := hit.HitNormal.Len(); l > 0 {
				hit.HitNormal = hit.HitNormal.Mul(1 / l)
			}
			return hit, status, nil
		}
		curRef = nextRef
	}
	return hit, status, nil
}

// MoveAlongSurface moves from startPos towards endPos constrained to the
// mesh surface. It returns the reached position, without height, and the
// polygons visited, first to last. The search is limited to a small
// neighbourhood, so the move distance should be short.
func (q *NavMeshQuery) MoveAlongSurface(startRef PolyRef, startPos, endPos mgl32.Vec3, filter *QueryFilter, maxVisited int) (mgl32.Vec3, []PolyRef, error) {
	if !q.nav.IsValidPolyRef(startRef) {
		return startPos, nil, fmt.Errorf("move from %d: %w", startRef, ErrInvalidParam)
	}
	if maxVisited <= 0 {
		return startPos, nil, fmt.Errorf("max visited %d: %w", maxVisited, ErrInvalidParam)
	}
	const maxStack = 48

	q.tinyNodePool.clear()
	startNode := q.tinyNodePool.getNode(startRef, 0)
	startNode.pidx = 0
	startNode.flags = nodeClosed
	stack := make([]*Node, 0, maxStack)
	stack = append(stack, startNode)

	bestPos := startPos
	bestDist := maxFloat32
	var bestNode *Node

	// Search constraints.
	searchPos := vLerp(startPos, endPos, 0.5)
	searchRadSqr := sqr(vDist(startPos, endPos)/2.0 + 0.001)

	var buf [VertsPerPolygon]mgl32.Vec3
	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = stack[1:]

		curRef := curNode.id
		curTile, curPoly := q.nav.tileAndPolyByRefUnsafe(curRef)
		verts := curTile.polyVerts(curPoly, buf[:])

		// If target is inside the poly, stop search.
		if PointInPolygon(endPos, verts) {
			bestNode = curNode
			bestPos = endPos
			break
		}

		// Find wall edges and find nearest point inside the walls.
		for i, j := 0, len(verts)-1; i < len(verts); j, i = i, i+1 {
			// Find links to neighbours.
			var neis []PolyRef
			if curPoly.Neis[j]&ExtLink != 0 {
				// Tile border.
				for k := curPoly.FirstLink; k != NullLink; k = curTile.links[k].Next {
					link := &curTile.links[k]
					if int(link.Edge) != j || link.Ref == 0 {
						continue
					}
					neiTile, neiPoly := q.nav.tileAndPolyByRefUnsafe(link.Ref)
					if filter.PassFilter(link.Ref, neiTile, neiPoly) && len(neis) < 8 {
						neis = append(neis, link.Ref)
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := uint32(curPoly.Neis[j] - 1)
				ref := q.nav.PolyRefBase(curTile) | PolyRef(idx)
				if filter.PassFilter(ref, curTile, &curTile.data.Polys[idx]) {
					// Internal edge, encode id.
					neis = append(neis, ref)
				}
			}

			if len(neis) == 0 {
				// Wall edge, calc distance.
				vj, vi := verts[j], verts[i]
				distSqr, tseg := DistancePtSegSqr2D(endPos, vj, vi)
				if distSqr < bestDist {
					// Update nearest distance.
					bestPos = vLerp(vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
				continue
			}
			for _, nei := range neis {
				// Skip if no node can be allocated.
				neighbourNode := q.tinyNodePool.getNode(nei, 0)
				if neighbourNode == nil {
					continue
				}
				// Skip if already visited.
				if neighbourNode.flags&nodeClosed != 0 {
					continue
				}
				// Skip the link if it is too far from search constraint.
				vj, vi := verts[j], verts[i]
				distSqr, _ := DistancePtSegSqr2D(searchPos, vj, vi)
				if distSqr > searchRadSqr {
					continue
				}
				// Mark as the node as visited and push to queue.
				if len(stack) < maxStack {
					neighbourNode.pidx = q.tinyNodePool.nodeIdx(curNode)
					neighbourNode.flags |= nodeClosed
					stack = append(stack, neighbourNode)
				}
			}
		}
	}

	var visited []PolyRef
	if bestNode != nil {
		for n := bestNode; n != nil; n = q.tinyNodePool.nodeAtIdx(n.pidx) {
			visited = append(visited, n.id)
		}
		// Reverse into start to end order.
		for i, j := 0, len(visited)-1; i < j; i, j = i+1, j-1 {
			visited[i], visited[j] = visited[j], visited[i]
		}
		if len(visited) > maxVisited {
			visited = visited[:maxVisited]
		}
	}
	return bestPos, visited, nil
}

// FindLocalNeighbourhood collects the non overlapping polygons around
// startRef within radius of center. It returns the polygon refs and, for
// each, the ref of the polygon it was reached from (0 for the start).
func (q *NavMeshQuery) FindLocalNeighbourhood(startRef PolyRef, center mgl32.Vec3, radius float32, filter *QueryFilter, maxResult int) ([]PolyRef, []PolyRef, error) {
	if !q.nav.IsValidPolyRef(startRef) {
		return nil, nil, fmt.Errorf("neighbourhood of %d: %w", startRef, ErrInvalidParam)
	}
	const maxStack = 48

	q.tinyNodePool.clear()
	startNode := q.tinyNodePool.getNode(startRef, 0)
	startNode.pidx = 0
	startNode.flags = nodeClosed
	stack := make([]*Node, 0, maxStack)
	stack = append(stack, startNode)

	radiusSqr := sqr(radius)

	var bufA, bufB [VertsPerPolygon]mgl32.Vec3
	refs := []PolyRef{startNode.id}
	parents := []PolyRef{0}

	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = stack[1:]

		curRef := curNode.id
		curTile, curPoly := q.nav.tileAndPolyByRefUnsafe(curRef)

		for i := curPoly.FirstLink; i != NullLink; i = curTile.links[i].Next {
			link := &curTile.links[i]
			neighbourRef := link.Ref
			// Skip invalid neighbours.
			if neighbourRef == 0 {
				continue
			}
			// Skip if cannot allocate more nodes.
			neighbourNode := q.tinyNodePool.getNode(neighbourRef, 0)
			if neighbourNode == nil {
				continue
			}
			// Skip visited.
			if neighbourNode.flags&nodeClosed != 0 {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)
			// Skip off-mesh connections.
			if neighbourPoly.Type() == PolyTypeOffMeshConnection {
				continue
			}
			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			va, vb, err := q.portalPoints(curRef, curPoly, curTile, neighbourRef, neighbourPoly, neighbourTile)
			if err != nil {
				continue
			}
			// If the circle is not touching the next polygon, skip it.
			distSqr, _ := DistancePtSegSqr2D(center, va, vb)
			if distSqr > radiusSqr {
				continue
			}

			// Mark node visited, this is done before the overlap test so
			// that we will not visit the poly again if the test fails.
			neighbourNode.flags |= nodeClosed
			neighbourNode.pidx = q.tinyNodePool.nodeIdx(curNode)

			// Check that the polygon does not collide with existing polygons.
			pa := neighbourTile.polyVerts(neighbourPoly, bufA[:])
			overlap := false
			for _, pastRef := range refs {
				// Connected polys do not overlap.
				connected := false
				for k := curPoly.FirstLink; k != NullLink; k = curTile.links[k].Next {
					if curTile.links[k].Ref == pastRef {
						connected = true
						break
					}
				}
				if connected {
					continue
				}
				pastTile, pastPoly := q.nav.tileAndPolyByRefUnsafe(pastRef)
				pb := pastTile.polyVerts(pastPoly, bufB[:])
				if overlapPolyPoly2D(pa, pb) {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}

			// This poly is fine, store and advance to the poly.
			if len(refs) < maxResult {
				refs = append(refs, neighbourRef)
				parents = append(parents, curRef)
			}
			if len(stack) < maxStack {
				stack = append(stack, neighbourNode)
			}
		}
	}
	return refs, parents, nil
}

type segInterval struct {
	ref        PolyRef
	tmin, tmax int16
}

func insertInterval(ints []segInterval, tmin, tmax int16, ref PolyRef) []segInterval {
	// Find insertion point.
	idx := 0
	for idx < len(ints) && tmax > ints[idx].tmin {
		idx++
	}
	ints = append(ints, segInterval{})
	copy(ints[idx+1:], ints[idx:])
	ints[idx] = segInterval{ref: ref, tmin: tmin, tmax: tmax}
	return ints
}

// GetPolyWallSegments returns the edges of the polygon that block
// movement, that is borders and portals to polygons rejected by the
// filter. At most maxSegments are returned.
func (q *NavMeshQuery) GetPolyWallSegments(ref PolyRef, filter *QueryFilter, maxSegments int) ([]Segment, error) {
	tile, poly, err := q.nav.TileAndPolyByRef(ref)
	if err != nil {
		return nil, err
	}
	var segs []Segment
	ints := make([]segInterval, 0, 16)
	nv := int(poly.VertCount)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		// Skip non-solid edges.
		ints = ints[:0]
		if poly.Neis[j]&ExtLink != 0 {
			// Tile border.
			for k := poly.FirstLink; k != NullLink; k = tile.links[k].Next {
				link := &tile.links[k]
				if int(link.Edge) != j || link.Ref == 0 {
					continue
				}
				neiTile, neiPoly := q.nav.tileAndPolyByRefUnsafe(link.Ref)
				if filter.PassFilter(link.Ref, neiTile, neiPoly) {
					ints = insertInterval(ints, int16(link.Bmin), int16(link.Bmax), link.Ref)
				}
			}
		} else if poly.Neis[j] != 0 {
			// Internal edge.
			idx := uint32(poly.Neis[j] - 1)
			neiRef := q.nav.PolyRefBase(tile) | PolyRef(idx)
			if filter.PassFilter(neiRef, tile, &tile.data.Polys[idx]) {
				continue
			}
		}

		// Add sentinels.
		ints = insertInterval(ints, -1, 0, 0)
		ints = insertInterval(ints, 255, 256, 0)

		// Store segments.
		vj := tile.vert(poly.Verts[j])
		vi := tile.vert(poly.Verts[i])
		for k := 1; k < len(ints); k++ {
			// Gap between two portals is a wall.
			imin := ints[k-1].tmax
			imax := ints[k].tmin
			if imin == imax || len(segs) >= maxSegments {
				continue
			}
			tmin := float32(imin) / 255.0
			tmax := float32(imax) / 255.0
			segs = append(segs, Segment{Start: vLerp(vj, vi, tmin), End: vLerp(vj, vi, tmax)})
		}
	}
	return segs, nil
}
