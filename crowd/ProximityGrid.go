package crowd

import "math"

const gridNull = 0xffff

type gridItem struct {
	id   uint16
	x, y int16
	next uint16
}

// ProximityGrid is a spatial hash of agent ids by their xz bounds. It is
// rebuilt from scratch every update.
type ProximityGrid struct {
	cellSize    float32
	invCellSize float32
	pool        []gridItem
	poolHead    int
	buckets     []uint16
	bounds      [4]int
}

// NewProximityGrid returns a grid with room for poolSize cell entries.
func NewProximityGrid(poolSize int, cellSize float32) *ProximityGrid {
	g := &ProximityGrid{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		pool:        make([]gridItem, poolSize),
		buckets:     make([]uint16, nextPow2(poolSize)),
	}
	g.Clear()
	return g
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

func hashPos2(x, y, n int) int {
	return ((x * 73856093) ^ (y * 19349663)) & (n - 1)
}

func (g *ProximityGrid) CellSize() float32 { return g.cellSize }

// Clear empties the grid.
func (g *ProximityGrid) Clear() {
	for i := range g.buckets {
		g.buckets[i] = gridNull
	}
	g.poolHead = 0
	g.bounds = [4]int{math.MaxInt32, math.MaxInt32, math.MinInt32, math.MinInt32}
}

// AddItem inserts id in every cell overlapping the rectangle. Items past
// the pool capacity are dropped.
func (g *ProximityGrid) AddItem(id uint16, minx, miny, maxx, maxy float32) {
	iminx := int(math.Floor(float64(minx * g.invCellSize)))
	iminy := int(math.Floor(float64(miny * g.invCellSize)))
	imaxx := int(math.Floor(float64(maxx * g.invCellSize)))
	imaxy := int(math.Floor(float64(maxy * g.invCellSize)))

	g.bounds[0] = mini(g.bounds[0], iminx)
	g.bounds[1] = mini(g.bounds[1], iminy)
	g.bounds[2] = maxi(g.bounds[2], imaxx)
	g.bounds[3] = maxi(g.bounds[3], imaxy)

	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			if g.poolHead >= len(g.pool) {
				return
			}
			h := hashPos2(x, y, len(g.buckets))
			idx := uint16(g.poolHead)
			g.poolHead++
			g.pool[idx] = gridItem{id: id, x: int16(x), y: int16(y), next: g.buckets[h]}
			g.buckets[h] = idx
		}
	}
}

// QueryItems returns the unique ids in the cells overlapping the
// rectangle, at most maxIDs of them.
func (g *ProximityGrid) QueryItems(minx, miny, maxx, maxy float32, maxIDs int) []uint16 {
	iminx := int(math.Floor(float64(minx * g.invCellSize)))
	iminy := int(math.Floor(float64(miny * g.invCellSize)))
	imaxx := int(math.Floor(float64(maxx * g.invCellSize)))
	imaxy := int(math.Floor(float64(maxy * g.invCellSize)))

	var ids []uint16
	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			h := hashPos2(x, y, len(g.buckets))
			for idx := g.buckets[h]; idx != gridNull; idx = g.pool[idx].next {
				item := &g.pool[idx]
				if int(item.x) != x || int(item.y) != y {
					continue
				}
				if containsID(ids, item.id) {
					continue
				}
				if len(ids) >= maxIDs {
					return ids
				}
				ids = append(ids, item.id)
			}
		}
	}
	return ids
}

// ItemCountAt returns the number of items in the cell (x, y).
func (g *ProximityGrid) ItemCountAt(x, y int) int {
	n := 0
	h := hashPos2(x, y, len(g.buckets))
	for idx := g.buckets[h]; idx != gridNull; idx = g.pool[idx].next {
		if int(g.pool[idx].x) == x && int(g.pool[idx].y) == y {
			n++
		}
	}
	return n
}

// Bounds returns the cell range touched since the last Clear.
func (g *ProximityGrid) Bounds() [4]int { return g.bounds }

func containsID(ids []uint16, id uint16) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func mini(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}
