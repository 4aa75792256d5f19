package recast

import "sort"

// ChunkyTriMesh is an xz AABB tree over a triangle soup. Leaves hold at
// most trisPerChunk triangles.
type ChunkyTriMesh struct {
	nodes           []chunkyNode
	ids             []int
	maxTrisPerChunk int
}

type chunkyNode struct {
	bmin, bmax [2]float32
	// Leaves: offset of the first triangle id in ids. Inner nodes:
	// negative escape index.
	i int
	n int
}

type boundsItem struct {
	bmin, bmax [2]float32
	i          int
}

// NewChunkyTriMesh partitions the ntris triangles of tris.
func NewChunkyTriMesh(verts []float32, tris []int, ntris, trisPerChunk int) *ChunkyTriMesh {
	items := make([]boundsItem, ntris)
	for i := range items {
		it := &items[i]
		it.i = i
		v := tris[i*3] * 3
		it.bmin = [2]float32{verts[v], verts[v+2]}
		it.bmax = it.bmin
		for j := 1; j < 3; j++ {
			v := tris[i*3+j] * 3
			it.bmin[0] = minf(it.bmin[0], verts[v])
			it.bmin[1] = minf(it.bmin[1], verts[v+2])
			it.bmax[0] = maxf(it.bmax[0], verts[v])
			it.bmax[1] = maxf(it.bmax[1], verts[v+2])
		}
	}

	cm := &ChunkyTriMesh{ids: make([]int, 0, ntris)}
	if ntris > 0 {
		cm.subdivide(items, trisPerChunk)
	}
	for _, n := range cm.nodes {
		if n.i >= 0 && n.n > cm.maxTrisPerChunk {
			cm.maxTrisPerChunk = n.n
		}
	}
	return cm
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, trisPerChunk int) {
	idx := len(cm.nodes)
	cm.nodes = append(cm.nodes, chunkyNode{})
	bmin, bmax := calcExtends(items)
	cm.nodes[idx].bmin = bmin
	cm.nodes[idx].bmax = bmax

	if len(items) <= trisPerChunk {
		cm.nodes[idx].i = len(cm.ids)
		cm.nodes[idx].n = len(items)
		for _, it := range items {
			cm.ids = append(cm.ids, it.i)
		}
		return
	}

	axis := 0
	if bmax[1]-bmin[1] > bmax[0]-bmin[0] {
		axis = 1
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].bmin[axis] < items[b].bmin[axis] })

	split := len(items) / 2
	cm.subdivide(items[:split], trisPerChunk)
	cm.subdivide(items[split:], trisPerChunk)
	cm.nodes[idx].i = -len(cm.nodes)
}

func calcExtends(items []boundsItem) (bmin, bmax [2]float32) {
	bmin, bmax = items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = minf(bmin[0], it.bmin[0])
		bmin[1] = minf(bmin[1], it.bmin[1])
		bmax[0] = maxf(bmax[0], it.bmax[0])
		bmax[1] = maxf(bmax[1], it.bmax[1])
	}
	return bmin, bmax
}

// TrisOverlappingRect returns the ids of the triangles in every leaf
// whose bounds overlap the xz rectangle.
func (cm *ChunkyTriMesh) TrisOverlappingRect(bmin, bmax [2]float32) []int {
	var out []int
	for i := 0; i < len(cm.nodes); {
		n := &cm.nodes[i]
		overlap := bmin[0] <= n.bmax[0] && bmax[0] >= n.bmin[0] && bmin[1] <= n.bmax[1] && bmax[1] >= n.bmin[1]
		leaf := n.i >= 0
		if leaf && overlap {
			out = append(out, cm.ids[n.i:n.i+n.n]...)
		}
		if overlap || leaf {
			i++
		} else {
			i = -n.i
		}
	}
	return out
}

// MaxTrisPerChunk returns the size of the largest leaf.
func (cm *ChunkyTriMesh) MaxTrisPerChunk() int { return cm.maxTrisPerChunk }
