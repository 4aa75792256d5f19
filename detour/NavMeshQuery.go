package detour

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

const tinyNodePoolSize = 64

// NavMeshQuery runs spatial and path queries against a NavMesh. A query
// object owns its node pools and must not be shared between goroutines.
type NavMeshQuery struct {
	nav          *NavMesh
	nodePool     *NodePool
	tinyNodePool *NodePool
	openList     *NodeQueue
}

// NewNavMeshQuery returns a query over nav with maxNodes search nodes.
func NewNavMeshQuery(nav *NavMesh, maxNodes int) (*NavMeshQuery, error) {
	q := &NavMeshQuery{}
	if err := q.Init(nav, maxNodes); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *NavMeshQuery) Init(nav *NavMesh, maxNodes int) error {
	if nav == nil || maxNodes <= 0 || maxNodes > 1<<16 {
		return fmt.Errorf("query with %d nodes: %w", maxNodes, ErrInvalidParam)
	}
	q.nav = nav
	q.nodePool = newNodePool(maxNodes)
	q.tinyNodePool = newNodePool(tinyNodePoolSize)
	q.openList = &NodeQueue{}
	return nil
}

func (q *NavMeshQuery) NavMesh() *NavMesh { return q.nav }

// FindNearestPoly returns the polygon nearest to center inside the query box
// center +/- halfExtents, and the closest point on it. A polygon the point
// lies directly over, within climb height, wins over a closer one.
func (q *NavMeshQuery) FindNearestPoly(center, halfExtents mgl32.Vec3, filter *QueryFilter) (PolyRef, mgl32.Vec3, error) {
	var (
		nearest   PolyRef
		nearestPt = center
		bestDist  = maxFloat32
	)
	for _, ref := range q.QueryPolygons(center, halfExtents, filter) {
		closest, posOverPoly, err := q.ClosestPointOnPoly(ref, center)
		if err != nil {
			continue
		}
		diff := center.Sub(closest)
		var d float32
		if posOverPoly {
			tile, _ := q.nav.tileAndPolyByRefUnsafe(ref)
			d = absf(diff[1]) - tile.data.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = diff.Dot(diff)
		}
		if d < bestDist {
			nearestPt = closest
			bestDist = d
			nearest = ref
		}
	}
	if nearest == 0 {
		return 0, center, ErrNotFound
	}
	return nearest, nearestPt, nil
}

// QueryPolygons returns the polygons overlapping the query box that pass
// the filter.
func (q *NavMeshQuery) QueryPolygons(center, halfExtents mgl32.Vec3, filter *QueryFilter) []PolyRef {
	bmin := center.Sub(halfExtents)
	bmax := center.Add(halfExtents)
	minx, miny := q.nav.CalcTileLoc(bmin)
	maxx, maxy := q.nav.CalcTileLoc(bmax)
	var polys []PolyRef
	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.nav.TilesAt(x, y) {
				polys = q.queryPolygonsInTile(tile, bmin, bmax, filter, polys)
			}
		}
	}
	return polys
}

func (q *NavMeshQuery) queryPolygonsInTile(tile *MeshTile, qmin, qmax mgl32.Vec3, filter *QueryFilter, polys []PolyRef) []PolyRef {
	base := q.nav.PolyRefBase(tile)
	hdr := &tile.data.Header
	if len(tile.data.BVTree) > 0 {
		tbmin := mgl32.Vec3(hdr.Bmin)
		tbmax := mgl32.Vec3(hdr.Bmax)
		qfac := hdr.BvQuantFactor
		// Clamp query box to world box, then quantize.
		var bmin, bmax [3]uint16
		for k := 0; k < 3; k++ {
			lo := clampf(qmin[k], tbmin[k], tbmax[k]) - tbmin[k]
			hi := clampf(qmax[k], tbmin[k], tbmax[k]) - tbmin[k]
			bmin[k] = uint16(int(qfac*lo) & 0xfffe)
			bmax[k] = uint16(int(qfac*hi+1) | 1)
		}
		// Traverse tree
		for i := 0; i < len(tile.data.BVTree); {
			node := &tile.data.BVTree[i]
			overlap := overlapQuantBounds(bmin, bmax, node.Bmin, node.Bmax)
			isLeaf := node.I >= 0
			if isLeaf && overlap {
				ref := base | PolyRef(node.I)
				if filter.PassFilter(ref, tile, &tile.data.Polys[node.I]) {
					polys = append(polys, ref)
				}
			}
			if overlap || isLeaf {
				i++
			} else {
				i += int(-node.I)
			}
		}
		return polys
	}

	for i := range tile.data.Polys {
		p := &tile.data.Polys[i]
		if p.Type() == PolyTypeOffMeshConnection {
			continue
		}
		ref := base | PolyRef(i)
		if !filter.PassFilter(ref, tile, p) {
			continue
		}
		bmin := tile.vert(p.Verts[0])
		bmax := bmin
		for j := 1; j < int(p.VertCount); j++ {
			v := tile.vert(p.Verts[j])
			bmin = vMin(bmin, v)
			bmax = vMax(bmax, v)
		}
		if overlapBounds(qmin, qmax, bmin, bmax) {
			polys = append(polys, ref)
		}
	}
	return polys
}

// ClosestPointOnPoly returns the point on the polygon closest to pos, with
// its height taken from the detail mesh, and whether pos lies over the
// polygon.
func (q *NavMeshQuery) ClosestPointOnPoly(ref PolyRef, pos mgl32.Vec3) (mgl32.Vec3, bool, error) {
	tile, poly, err := q.nav.TileAndPolyByRef(ref)
	if err != nil {
		return pos, false, err
	}
	var buf [VertsPerPolygon]mgl32.Vec3
	var edged, edget [VertsPerPolygon]float32
	verts := tile.polyVerts(poly, buf[:])
	closest := pos
	posOverPoly := distancePtPolyEdgesSqr(pos, verts, edged[:], edget[:])
	if !posOverPoly {
		// Clamp to the nearest edge.
		imin := 0
		for i := 1; i < len(verts); i++ {
			if edged[i] < edged[imin] {
				imin = i
			}
		}
		closest = vLerp(verts[imin], verts[(imin+1)%len(verts)], edget[imin])
	}
	_, _, ip := q.nav.DecodePolyID(ref)
	if h, ok := detailHeight(tile, poly, int(ip), closest); ok {
		closest[1] = h
	}
	return closest, posOverPoly, nil
}

// ClosestPointOnPolyBoundary clamps pos to the polygon outline on xz. A
// point inside is returned unchanged.
func (q *NavMeshQuery) ClosestPointOnPolyBoundary(ref PolyRef, pos mgl32.Vec3) (mgl32.Vec3, error) {
	tile, poly, err := q.nav.TileAndPolyByRef(ref)
	if err != nil {
		return pos, err
	}
	var buf [VertsPerPolygon]mgl32.Vec3
	var edged, edget [VertsPerPolygon]float32
	verts := tile.polyVerts(poly, buf[:])
	if distancePtPolyEdgesSqr(pos, verts, edged[:], edget[:]) {
		return pos, nil
	}
	imin := 0
	for i := 1; i < len(verts); i++ {
		if edged[i] < edged[imin] {
			imin = i
		}
	}
	return vLerp(verts[imin], verts[(imin+1)%len(verts)], edget[imin]), nil
}

// GetPolyHeight returns the detail mesh height of the polygon at pos.
func (q *NavMeshQuery) GetPolyHeight(ref PolyRef, pos mgl32.Vec3) (float32, error) {
	tile, poly, err := q.nav.TileAndPolyByRef(ref)
	if err != nil {
		return 0, err
	}
	_, _, ip := q.nav.DecodePolyID(ref)
	if h, ok := detailHeight(tile, poly, int(ip), pos); ok {
		return h, nil
	}
	// Outside every detail triangle, use the nearest point on the polygon.
	closest, _, err := q.ClosestPointOnPoly(ref, pos)
	if err != nil {
		return 0, err
	}
	return closest[1], nil
}

func detailHeight(tile *MeshTile, poly *Poly, ip int, pos mgl32.Vec3) (float32, bool) {
	if ip >= len(tile.data.DetailMeshes) {
		return 0, false
	}
	pd := &tile.data.DetailMeshes[ip]
	for j := 0; j < int(pd.TriCount); j++ {
		t := tile.data.DetailTris[(int(pd.TriBase)+j)*4:]
		a := tile.detailVert(poly, pd, t[0])
		b := tile.detailVert(poly, pd, t[1])
		c := tile.detailVert(poly, pd, t[2])
		if h, ok := closestHeightPointTriangle(pos, a, b, c); ok {
			return h, true
		}
	}
	return 0, false
}

// FindRandomPoint picks a random point on the mesh. Polygons are chosen
// with probability proportional to their area.
func (q *NavMeshQuery) FindRandomPoint(filter *QueryFilter, rng *rand.Rand) (PolyRef, mgl32.Vec3, error) {
	var (
		tile    *MeshTile
		poly    *Poly
		polyRef PolyRef
		areaSum float32
		buf     [VertsPerPolygon]mgl32.Vec3
	)
	for i := 0; i < q.nav.MaxTiles(); i++ {
		t := q.nav.Tile(i)
		if t.data == nil {
			continue
		}
		base := q.nav.PolyRefBase(t)
		for j := range t.data.Polys {
			p := &t.data.Polys[j]
			if p.Type() != PolyTypeGround {
				continue
			}
			ref := base | PolyRef(j)
			if !filter.PassFilter(ref, t, p) {
				continue
			}
			verts := t.polyVerts(p, buf[:])
			var polyArea float32
			for k := 2; k < len(verts); k++ {
				polyArea += absf(TriArea2D(verts[0], verts[k-1], verts[k]))
			}
			// Reservoir sampling weighted by area.
			areaSum += polyArea
			if rng.Float32()*areaSum <= polyArea {
				tile, poly, polyRef = t, p, ref
			}
		}
	}
	if poly == nil {
		return 0, mgl32.Vec3{}, ErrNotFound
	}
	verts := tile.polyVerts(poly, buf[:])
	pt := randomPointInConvexPoly(verts, rng.Float32(), rng.Float32())
	h, err := q.GetPolyHeight(polyRef, pt)
	if err != nil {
		return 0, mgl32.Vec3{}, err
	}
	pt[1] = h
	return polyRef, pt, nil
}

// portalPoints returns the shared edge between two adjacent polygons,
// clamped to the link limits for tile border links.
func (q *NavMeshQuery) portalPoints(from PolyRef, fromPoly *Poly, fromTile *MeshTile, to PolyRef, toPoly *Poly, toTile *MeshTile) (left, right mgl32.Vec3, err error) {
	var link *Link
	for i := fromPoly.FirstLink; i != NullLink; i = fromTile.links[i].Next {
		if fromTile.links[i].Ref == to {
			link = &fromTile.links[i]
			break
		}
	}
	if link == nil {
		return left, right, fmt.Errorf("no link %d -> %d: %w", from, to, ErrInvalidParam)
	}
	v0 := fromTile.vert(fromPoly.Verts[link.Edge])
	v1 := fromTile.vert(fromPoly.Verts[(int(link.Edge)+1)%int(fromPoly.VertCount)])
	left, right = v0, v1
	// Clamp tile border links to the shared part of the edge.
	if link.Side != 0xff && (link.Bmin != 0 || link.Bmax != 255) {
		const s = 1.0 / 255.0
		left = vLerp(v0, v1, float32(link.Bmin)*s)
		right = vLerp(v0, v1, float32(link.Bmax)*s)
	}
	return left, right, nil
}

func (q *NavMeshQuery) portalPointsByRef(from, to PolyRef) (left, right mgl32.Vec3, toType uint8, err error) {
	fromTile, fromPoly, err := q.nav.TileAndPolyByRef(from)
	if err != nil {
		return left, right, 0, err
	}
	toTile, toPoly, err := q.nav.TileAndPolyByRef(to)
	if err != nil {
		return left, right, 0, err
	}
	left, right, err = q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
	return left, right, toPoly.Type(), err
}

func (q *NavMeshQuery) edgeMidPoint(from PolyRef, fromPoly *Poly, fromTile *MeshTile, to PolyRef, toPoly *Poly, toTile *MeshTile) (mgl32.Vec3, error) {
	left, right, err := q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return left.Add(right).Mul(0.5), nil
}
