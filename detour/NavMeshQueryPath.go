package detour

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// FindPath searches a polygon corridor from startRef to endRef with A*.
// The returned path runs from start to end and holds at most maxPath
// polygons. When the end is unreachable the path leads to the polygon
// closest to endPos and the status has PartialResult set.
func (q *NavMeshQuery) FindPath(startRef, endRef PolyRef, startPos, endPos mgl32.Vec3, filter *QueryFilter, maxPath int) ([]PolyRef, Status, error) {
	if maxPath <= 0 {
		return nil, 0, fmt.Errorf("max path %d: %w", maxPath, ErrInvalidParam)
	}
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) {
		return nil, 0, fmt.Errorf("find path %d -> %d: %w", startRef, endRef, ErrInvalidParam)
	}
	if startRef == endRef {
		return []PolyRef{startRef}, 0, nil
	}

	q.nodePool.clear()
	q.openList.clear()

	startNode := q.nodePool.getNode(startRef, 0)
	startNode.pos = startPos
	startNode.pidx = 0
	startNode.cost = 0
	startNode.total = vDist(startPos, endPos) * HScale
	startNode.flags = nodeOpen
	q.openList.push(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.total
	var status Status

	for !q.openList.empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.openList.pop()
		bestNode.flags &^= nodeOpen
		bestNode.flags |= nodeClosed

		// Reached the goal, stop searching.
		if bestNode.id == endRef {
			lastBestNode = bestNode
			break
		}

		bestRef := bestNode.id
		bestTile, bestPoly := q.nav.tileAndPolyByRefUnsafe(bestRef)

		var parentRef PolyRef
		if bestNode.pidx != 0 {
			parentRef = q.nodePool.nodeAtIdx(bestNode.pidx).id
		}

		for i := bestPoly.FirstLink; i != NullLink; i = bestTile.links[i].Next {
			link := &bestTile.links[i]
			neighbourRef := link.Ref
			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}
			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// Keep separate nodes per tile side crossed.
			var crossSide uint8
			if link.Side != 0xff {
				crossSide = link.Side >> 1
			}
			neighbourNode := q.nodePool.getNode(neighbourRef, crossSide)
			if neighbourNode == nil {
				status |= OutOfNodes
				continue
			}

			// First visit: place the node on the shared edge.
			if neighbourNode.flags == 0 {
				mid, err := q.edgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile)
				if err != nil {
					continue
				}
				neighbourNode.pos = mid
			}

			var cost, heuristic float32
			if neighbourRef == endRef {
				curCost := filter.Cost(bestNode.pos, neighbourNode.pos, bestPoly)
				endCost := filter.Cost(neighbourNode.pos, endPos, neighbourPoly)
				cost = bestNode.cost + curCost + endCost
				heuristic = 0
			} else {
				curCost := filter.Cost(bestNode.pos, neighbourNode.pos, bestPoly)
				cost = bestNode.cost + curCost
				heuristic = vDist(neighbourNode.pos, endPos) * HScale
			}
			total := cost + heuristic

			// Already queued or processed with a better result.
			if neighbourNode.flags&nodeOpen != 0 && total >= neighbourNode.total {
				continue
			}
			if neighbourNode.flags&nodeClosed != 0 && total >= neighbourNode.total {
				continue
			}

			neighbourNode.pidx = q.nodePool.nodeIdx(bestNode)
			neighbourNode.flags &^= nodeClosed
			neighbourNode.cost = cost
			neighbourNode.total = total

			if neighbourNode.flags&nodeOpen != 0 {
				q.openList.modify(neighbourNode)
			} else {
				neighbourNode.flags |= nodeOpen
				q.openList.push(neighbourNode)
			}

			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, truncated := q.pathToNode(lastBestNode, maxPath)
	if truncated {
		status |= BufferTooSmall
	}
	if lastBestNode.id != endRef {
		status |= PartialResult
	}
	return path, status, nil
}

// pathToNode walks the parent chain back to the start. When the chain is
// longer than maxPath only its first maxPath polygons are kept.
func (q *NavMeshQuery) pathToNode(endNode *Node, maxPath int) ([]PolyRef, bool) {
	length := 0
	for cur := endNode; cur != nil; cur = q.nodePool.nodeAtIdx(cur.pidx) {
		length++
	}
	cur := endNode
	writeCount := length
	for ; writeCount > maxPath; writeCount-- {
		cur = q.nodePool.nodeAtIdx(cur.pidx)
	}
	path := make([]PolyRef, writeCount)
	for i := writeCount - 1; i >= 0; i-- {
		path[i] = cur.id
		cur = q.nodePool.nodeAtIdx(cur.pidx)
	}
	return path, length > maxPath
}

// FindStraightPath string pulls a polygon corridor into the corner points
// an agent has to visit, using the funnel algorithm. options takes
// StraightPathAreaCrossings or StraightPathAllCrossings.
func (q *NavMeshQuery) FindStraightPath(startPos, endPos mgl32.Vec3, path []PolyRef, maxStraightPath int, options int) ([]StraightPathItem, Status, error) {
	if len(path) == 0 || maxStraightPath <= 0 {
		return nil, 0, ErrInvalidParam
	}
	closestStartPos, err := q.ClosestPointOnPolyBoundary(path[0], startPos)
	if err != nil {
		return nil, 0, err
	}
	closestEndPos, err := q.ClosestPointOnPolyBoundary(path[len(path)-1], endPos)
	if err != nil {
		return nil, 0, err
	}

	sp := &straightPath{max: maxStraightPath}
	if !sp.append(closestStartPos, StraightPathStart, path[0]) {
		return sp.items, sp.status, nil
	}
	crossings := options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0

	if len(path) > 1 {
		portalApex := closestStartPos
		portalLeft := portalApex
		portalRight := portalApex
		apexIndex, leftIndex, rightIndex := 0, 0, 0
		var leftPolyType, rightPolyType uint8
		leftPolyRef, rightPolyRef := path[0], path[0]

		for i := 0; i < len(path); i++ {
			var left, right mgl32.Vec3
			var toType uint8
			if i+1 < len(path) {
				left, right, toType, err = q.portalPointsByRef(path[i], path[i+1])
				if err != nil {
					// path[i+1] is not reachable, end the path at path[i].
					closestEndPos, err = q.ClosestPointOnPolyBoundary(path[i], endPos)
					if err != nil {
						return nil, 0, err
					}
					if crossings && !q.appendPortals(sp, apexIndex, i, closestEndPos, path, options) {
						return sp.items, sp.status, nil
					}
					sp.append(closestEndPos, 0, path[i])
					return sp.items, sp.status | PartialResult, nil
				}
				// If starting really close the portal, advance.
				if i == 0 {
					if d, _ := DistancePtSegSqr2D(portalApex, left, right); d < sqr(0.001) {
						continue
					}
				}
			} else {
				// End of the path.
				left, right = closestEndPos, closestEndPos
				toType = PolyTypeGround
			}

			// Right vertex.
			if TriArea2D(portalApex, portalRight, right) <= 0.0 {
				if vEqual(portalApex, portalRight) || TriArea2D(portalApex, portalLeft, right) > 0.0 {
					portalRight = right
					rightPolyRef = 0
					if i+1 < len(path) {
						rightPolyRef = path[i+1]
					}
					rightPolyType = toType
					rightIndex = i
				} else {
					if crossings && !q.appendPortals(sp, apexIndex, leftIndex, portalLeft, path, options) {
						return sp.items, sp.status, nil
					}
					portalApex = portalLeft
					apexIndex = leftIndex

					var flags uint8
					if leftPolyRef == 0 {
						flags = StraightPathEnd
					} else if leftPolyType == PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}
					if !sp.append(portalApex, flags, leftPolyRef) {
						return sp.items, sp.status, nil
					}
					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex
					// Restart
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if TriArea2D(portalApex, portalLeft, left) >= 0.0 {
				if vEqual(portalApex, portalLeft) || TriArea2D(portalApex, portalRight, left) < 0.0 {
					portalLeft = left
					leftPolyRef = 0
					if i+1 < len(path) {
						leftPolyRef = path[i+1]
					}
					leftPolyType = toType
					leftIndex = i
				} else {
					if crossings && !q.appendPortals(sp, apexIndex, rightIndex, portalRight, path, options) {
						return sp.items, sp.status, nil
					}
					portalApex = portalRight
					apexIndex = rightIndex

					var flags uint8
					if rightPolyRef == 0 {
						flags = StraightPathEnd
					} else if rightPolyType == PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}
					if !sp.append(portalApex, flags, rightPolyRef) {
						return sp.items, sp.status, nil
					}
					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex
					// Restart
					i = apexIndex
					continue
				}
			}
		}

		if crossings && !q.appendPortals(sp, apexIndex, len(path)-1, closestEndPos, path, options) {
			return sp.items, sp.status, nil
		}
	}

	sp.append(closestEndPos, StraightPathEnd, 0)
	return sp.items, sp.status, nil
}

type straightPath struct {
	items  []StraightPathItem
	max    int
	status Status
}

// append adds a corner, merging it with the previous one when both are
// equal. It returns false once the path is complete or full.
func (sp *straightPath) append(pos mgl32.Vec3, flags uint8, ref PolyRef) bool {
	if n := len(sp.items); n > 0 && vEqual(sp.items[n-1].Pos, pos) {
		sp.items[n-1].Flags = flags
		sp.items[n-1].Ref = ref
		return true
	}
	sp.items = append(sp.items, StraightPathItem{Pos: pos, Flags: flags, Ref: ref})
	if len(sp.items) >= sp.max {
		if flags != StraightPathEnd {
			sp.status |= BufferTooSmall
		}
		return false
	}
	return flags != StraightPathEnd
}

// appendPortals adds the crossings of the segment from the last corner to
// endPos with the portals path[startIdx..endIdx].
func (q *NavMeshQuery) appendPortals(sp *straightPath, startIdx, endIdx int, endPos mgl32.Vec3, path []PolyRef, options int) bool {
	startPos := sp.items[len(sp.items)-1].Pos
	for i := startIdx; i < endIdx; i++ {
		from := path[i]
		fromTile, fromPoly, err := q.nav.TileAndPolyByRef(from)
		if err != nil {
			return false
		}
		to := path[i+1]
		toTile, toPoly, err := q.nav.TileAndPolyByRef(to)
		if err != nil {
			return false
		}
		left, right, err := q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
		if err != nil {
			break
		}
		if options&StraightPathAreaCrossings != 0 && fromPoly.Area() == toPoly.Area() {
			continue
		}
		if _, t, ok := intersectSegSeg2D(startPos, endPos, left, right); ok {
			if !sp.append(vLerp(left, right, t), 0, path[i+1]) {
				return false
			}
		}
	}
	return true
}
