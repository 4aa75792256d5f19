package navigation

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gamemachine/ainav/detour"
	"github.com/gamemachine/ainav/internal/metrics"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Polygon corridor limit when a query does not set MaxPathPoints.
const defaultMaxPath = 256

// PathfindQuery asks for a path between two points. Both points are
// snapped to the navmesh within FindNearestPolyExtent.
type PathfindQuery struct {
	Source                mgl32.Vec3
	Target                mgl32.Vec3
	FindNearestPolyExtent mgl32.Vec3
	MaxPathPoints         int
}

// RaycastQuery casts a walkability ray from Start towards End.
type RaycastQuery struct {
	Start                 mgl32.Vec3
	End                   mgl32.Vec3
	FindNearestPolyExtent mgl32.Vec3
	MaxPathPoints         int
}

// RaycastResult reports the first wall crossed by a ray. Position is the
// end point when nothing was hit.
type RaycastResult struct {
	Hit      bool
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Query answers point, path and ray queries over a Mesh with the default
// filter. Once invalidated every operation fails without touching the
// navmesh.
type Query struct {
	q           *detour.NavMeshQuery
	filter      *detour.QueryFilter
	invalidated atomic.Bool
	log         *zap.Logger
}

// NewQuery creates a query object over m with a search pool of maxNodes.
func (m *Mesh) NewQuery(maxNodes int) (*Query, error) {
	nq, err := detour.NewNavMeshQuery(m.nav, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("init query: %w", err)
	}
	q := &Query{q: nq, filter: detour.NewQueryFilter(), log: m.log}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return nil, fmt.Errorf("query on closed mesh: %w", detour.ErrInvalidParam)
	}
	m.queries = append(m.queries, q)
	return q, nil
}

// Invalidate marks the query unusable. It may be called more than once and
// from any goroutine.
func (q *Query) Invalidate() { q.invalidated.Store(true) }

func (q *Query) IsValid() bool { return !q.invalidated.Load() }

func (q *Query) observe(op string, start time.Time, ok *bool) {
	metrics.ObserveQuery(op, *ok, time.Since(start))
}

// SamplePosition returns the nearest navmesh point to point within extent.
func (q *Query) SamplePosition(point, extent mgl32.Vec3) (pos mgl32.Vec3, ok bool) {
	if !q.IsValid() {
		return pos, false
	}
	defer q.observe("sample_position", time.Now(), &ok)
	ref, nearest, err := q.q.FindNearestPoly(point, extent, q.filter)
	if err != nil || ref == 0 {
		return pos, false
	}
	return nearest, true
}

// GetLocation snaps point to the nearest polygon and returns the closest
// point on that polygon's detail surface.
func (q *Query) GetLocation(point, extent mgl32.Vec3) (pos mgl32.Vec3, ok bool) {
	if !q.IsValid() {
		return pos, false
	}
	defer q.observe("get_location", time.Now(), &ok)
	ref, nearest, err := q.q.FindNearestPoly(point, extent, q.filter)
	if err != nil || ref == 0 {
		return pos, false
	}
	closest, _, err := q.q.ClosestPointOnPoly(ref, nearest)
	if err != nil {
		return pos, false
	}
	return closest, true
}

// GetRandomPosition returns a point picked uniformly by area over the
// navmesh, drawing from rng.
func (q *Query) GetRandomPosition(rng *rand.Rand) (pos mgl32.Vec3, ok bool) {
	if !q.IsValid() || rng == nil {
		return pos, false
	}
	defer q.observe("random_position", time.Now(), &ok)
	_, pt, err := q.q.FindRandomPoint(q.filter, rng)
	if err != nil {
		return pos, false
	}
	return pt, true
}

// findPath snaps both ends and searches the polygon corridor. Partial
// corridors are failures.
func (q *Query) findPath(pq *PathfindQuery) (path []detour.PolyRef, start, end mgl32.Vec3, ok bool) {
	startRef, start, err := q.q.FindNearestPoly(pq.Source, pq.FindNearestPolyExtent, q.filter)
	if err != nil {
		return nil, start, end, false
	}
	endRef, end, err := q.q.FindNearestPoly(pq.Target, pq.FindNearestPolyExtent, q.filter)
	if err != nil {
		return nil, start, end, false
	}
	maxPath := pq.MaxPathPoints
	if maxPath <= 0 {
		maxPath = defaultMaxPath
	}
	path, status, err := q.q.FindPath(startRef, endRef, start, end, q.filter, maxPath)
	if err != nil {
		return nil, start, end, false
	}
	if status.Partial() {
		q.log.Debug("partial path", zap.Int("polys", len(path)),
			zap.Any("source", pq.Source), zap.Any("target", pq.Target))
		return nil, start, end, false
	}
	return path, start, end, true
}

// HasPath reports whether Target is fully reachable from Source.
func (q *Query) HasPath(pq PathfindQuery) (ok bool) {
	if !q.IsValid() {
		return false
	}
	defer q.observe("has_path", time.Now(), &ok)
	_, _, _, ok = q.findPath(&pq)
	return ok
}

// FindStraightPath writes the waypoints of the path from Source to Target
// into buf, start and end included, and returns how many were written.
// At most MaxPathPoints waypoints are produced when it is set.
func (q *Query) FindStraightPath(pq PathfindQuery, buf []mgl32.Vec3) (n int, ok bool) {
	if !q.IsValid() || len(buf) == 0 {
		return 0, false
	}
	defer q.observe("straight_path", time.Now(), &ok)
	path, start, end, found := q.findPath(&pq)
	if !found {
		return 0, false
	}
	maxPoints := len(buf)
	if pq.MaxPathPoints > 0 && pq.MaxPathPoints < maxPoints {
		maxPoints = pq.MaxPathPoints
	}
	items, _, err := q.q.FindStraightPath(start, end, path, maxPoints, 0)
	if err != nil {
		return 0, false
	}
	for i := range items {
		buf[i] = items[i].Pos
	}
	return len(items), true
}

// Raycast walks the surface from Start towards End and reports the first
// wall crossed within the segment.
func (q *Query) Raycast(rq RaycastQuery) (res RaycastResult, ok bool) {
	if !q.IsValid() {
		return res, false
	}
	defer q.observe("raycast", time.Now(), &ok)
	startRef, _, err := q.q.FindNearestPoly(rq.Start, rq.FindNearestPolyExtent, q.filter)
	if err != nil {
		return res, false
	}
	maxPath := rq.MaxPathPoints
	if maxPath <= 0 {
		maxPath = defaultMaxPath
	}
	hit, _, err := q.q.Raycast(startRef, rq.Start, rq.End, q.filter, maxPath)
	if err != nil {
		return res, false
	}
	t := hit.T
	if t > 1 {
		t = 1
	}
	res.Hit = hit.T <= 1
	res.Normal = hit.HitNormal
	res.Position = rq.Start.Add(rq.End.Sub(rq.Start).Mul(t))
	return res, true
}
