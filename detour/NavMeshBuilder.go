package detour

import (
	"fmt"
	"math"
	"sort"
)

// CreateNavMeshData converts a polygon mesh and its optional detail mesh into
// tile data ready to be encoded and added to a NavMesh.
func CreateNavMeshData(params *NavMeshCreateParams) (*MeshData, error) {
	if params.Nvp > VertsPerPolygon || params.Nvp < 3 {
		return nil, fmt.Errorf("%d vertices per polygon: %w", params.Nvp, ErrInvalidParam)
	}
	if params.VertCount >= 0xffff {
		return nil, fmt.Errorf("%d vertices: %w", params.VertCount, ErrInvalidParam)
	}
	if params.VertCount == 0 || params.Verts == nil {
		return nil, fmt.Errorf("no vertices: %w", ErrInvalidParam)
	}
	if params.PolyCount == 0 || params.Polys == nil {
		return nil, fmt.Errorf("no polygons: %w", ErrInvalidParam)
	}
	nvp := params.Nvp

	// Find portal edges which are at tile borders.
	edgeCount := 0
	portalCount := 0
	for i := 0; i < params.PolyCount; i++ {
		p := i * 2 * nvp
		for j := 0; j < nvp; j++ {
			if params.Polys[p+j] == MeshNullIdx {
				break
			}
			edgeCount++
			if params.Polys[p+nvp+j]&0x8000 != 0 {
				if params.Polys[p+nvp+j]&0xf != 0xf {
					portalCount++
				}
			}
		}
	}
	maxLinkCount := edgeCount + portalCount*2

	// Find unique detail vertices.
	uniqueDetailVertCount := 0
	detailTriCount := 0
	if params.DetailMeshes != nil {
		detailTriCount = params.DetailTriCount
		for i := 0; i < params.PolyCount; i++ {
			ndv := params.DetailMeshes[i*4+1]
			uniqueDetailVertCount += ndv - polyVertCount(params.Polys[i*nvp*2:], nvp)
		}
	} else {
		// Without a detail mesh every polygon becomes a triangle fan.
		for i := 0; i < params.PolyCount; i++ {
			detailTriCount += polyVertCount(params.Polys[i*nvp*2:], nvp) - 2
		}
	}

	d := &MeshData{
		Verts:        make([]float32, 3*params.VertCount),
		Polys:        make([]Poly, params.PolyCount),
		DetailMeshes: make([]PolyDetail, params.PolyCount),
		DetailVerts:  make([]float32, 3*uniqueDetailVertCount),
		DetailTris:   make([]uint8, 4*detailTriCount),
	}
	h := &d.Header
	h.Magic = NavMeshMagic
	h.Version = NavMeshVersion
	h.X = params.TileX
	h.Y = params.TileY
	h.Layer = params.TileLayer
	h.UserID = params.UserID
	h.PolyCount = int32(params.PolyCount)
	h.VertCount = int32(params.VertCount)
	h.MaxLinkCount = int32(maxLinkCount)
	h.Bmin = params.Bmin
	h.Bmax = params.Bmax
	h.DetailMeshCount = int32(params.PolyCount)
	h.DetailVertCount = int32(uniqueDetailVertCount)
	h.DetailTriCount = int32(detailTriCount)
	h.BvQuantFactor = 1.0 / params.Cs
	h.WalkableHeight = params.WalkableHeight
	h.WalkableRadius = params.WalkableRadius
	h.WalkableClimb = params.WalkableClimb

	for i := 0; i < params.VertCount; i++ {
		iv := i * 3
		d.Verts[iv] = params.Bmin[0] + float32(params.Verts[iv])*params.Cs
		d.Verts[iv+1] = params.Bmin[1] + float32(params.Verts[iv+1])*params.Ch
		d.Verts[iv+2] = params.Bmin[2] + float32(params.Verts[iv+2])*params.Cs
	}

	src := 0
	for i := 0; i < params.PolyCount; i++ {
		p := &d.Polys[i]
		p.FirstLink = NullLink
		p.Flags = uint16(params.PolyFlags[i])
		p.SetArea(uint8(params.PolyAreas[i]))
		p.SetType(PolyTypeGround)
		for j := 0; j < nvp; j++ {
			if params.Polys[src+j] == MeshNullIdx {
				break
			}
			p.Verts[j] = uint16(params.Polys[src+j])
			nei := params.Polys[src+nvp+j]
			if nei&0x8000 != 0 {
				// Border or portal edge.
				switch nei & 0xf {
				case 0xf:
					p.Neis[j] = 0
				case 0: // x-
					p.Neis[j] = ExtLink | 4
				case 1: // z+
					p.Neis[j] = ExtLink | 2
				case 2: // x+
					p.Neis[j] = ExtLink | 0
				case 3: // z-
					p.Neis[j] = ExtLink | 6
				}
			} else {
				p.Neis[j] = uint16(nei + 1)
			}
			p.VertCount++
		}
		src += nvp * 2
	}

	if params.DetailMeshes != nil {
		// The polygon vertices come first in every detail sub-mesh; they are
		// not stored again.
		vbase := 0
		for i := 0; i < params.PolyCount; i++ {
			dtl := &d.DetailMeshes[i]
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			nv := int(d.Polys[i].VertCount)
			dtl.VertBase = uint32(vbase)
			dtl.VertCount = uint8(ndv - nv)
			dtl.TriBase = uint32(params.DetailMeshes[i*4+2])
			dtl.TriCount = uint8(params.DetailMeshes[i*4+3])
			if ndv-nv > 0 {
				copy(d.DetailVerts[vbase*3:], params.DetailVerts[(vb+nv)*3:(vb+ndv)*3])
				vbase += ndv - nv
			}
		}
		for i := 0; i < 4*params.DetailTriCount; i++ {
			d.DetailTris[i] = uint8(params.DetailTris[i])
		}
	} else {
		tbase := 0
		for i := 0; i < params.PolyCount; i++ {
			dtl := &d.DetailMeshes[i]
			nv := int(d.Polys[i].VertCount)
			dtl.TriBase = uint32(tbase)
			dtl.TriCount = uint8(nv - 2)
			for j := 2; j < nv; j++ {
				t := tbase * 4
				d.DetailTris[t+0] = 0
				d.DetailTris[t+1] = uint8(j - 1)
				d.DetailTris[t+2] = uint8(j)
				// Bit for each edge that belongs to poly boundary.
				d.DetailTris[t+3] = 1 << 2
				if j == 2 {
					d.DetailTris[t+3] |= 1 << 0
				}
				if j == nv-1 {
					d.DetailTris[t+3] |= 1 << 4
				}
				tbase++
			}
		}
	}

	if params.BuildBvTree {
		d.BVTree = createBVTree(params)
		h.BvNodeCount = int32(len(d.BVTree))
	}
	return d, nil
}

func polyVertCount(poly []int, nvp int) int {
	for j := 0; j < nvp; j++ {
		if poly[j] == MeshNullIdx {
			return j
		}
	}
	return nvp
}

func quantize(v, qfac float32) uint16 {
	return uint16(clampi(int(v*qfac), 0, 0xffff))
}

func createBVTree(params *NavMeshCreateParams) []BVNode {
	quantFactor := 1.0 / params.Cs
	items := make([]bvItem, params.PolyCount)
	for i := range items {
		it := &items[i]
		it.i = i
		if params.DetailMeshes != nil {
			// Detail meshes give tighter height bounds.
			vb := params.DetailMeshes[i*4+0]
			ndv := params.DetailMeshes[i*4+1]
			bmin := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
			bmax := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
			for j := 0; j < ndv; j++ {
				v := params.DetailVerts[(vb+j)*3:]
				for k := 0; k < 3; k++ {
					if v[k] < bmin[k] {
						bmin[k] = v[k]
					}
					if v[k] > bmax[k] {
						bmax[k] = v[k]
					}
				}
			}
			// The tree uses cs for all dimensions.
			for k := 0; k < 3; k++ {
				it.bmin[k] = quantize(bmin[k]-params.Bmin[k], quantFactor)
				it.bmax[k] = quantize(bmax[k]-params.Bmin[k], quantFactor)
			}
		} else {
			p := params.Polys[i*params.Nvp*2:]
			for k := 0; k < 3; k++ {
				it.bmin[k] = uint16(params.Verts[p[0]*3+k])
				it.bmax[k] = it.bmin[k]
			}
			for j := 1; j < params.Nvp && p[j] != MeshNullIdx; j++ {
				for k := 0; k < 3; k++ {
					c := uint16(params.Verts[p[j]*3+k])
					if c < it.bmin[k] {
						it.bmin[k] = c
					}
					if c > it.bmax[k] {
						it.bmax[k] = c
					}
				}
			}
			// Remap y.
			it.bmin[1] = uint16(math.Floor(float64(float32(it.bmin[1]) * params.Ch / params.Cs)))
			it.bmax[1] = uint16(math.Ceil(float64(float32(it.bmax[1]) * params.Ch / params.Cs)))
		}
	}
	nodes := make([]BVNode, 0, params.PolyCount*2)
	return subdivide(items, 0, len(items), nodes)
}

func subdivide(items []bvItem, imin, imax int, nodes []BVNode) []BVNode {
	inum := imax - imin
	icur := len(nodes)
	nodes = append(nodes, BVNode{})

	if inum == 1 {
		// Leaf
		nodes[icur].Bmin = items[imin].bmin
		nodes[icur].Bmax = items[imin].bmax
		nodes[icur].I = int32(items[imin].i)
		return nodes
	}

	bmin, bmax := calcExtends(items[imin:imax])
	nodes[icur].Bmin = bmin
	nodes[icur].Bmax = bmax
	axis := longestAxis(int(bmax[0])-int(bmin[0]), int(bmax[1])-int(bmin[1]), int(bmax[2])-int(bmin[2]))
	span := items[imin:imax]
	sort.SliceStable(span, func(a, b int) bool {
		return span[a].bmin[axis] < span[b].bmin[axis]
	})

	isplit := imin + inum/2
	nodes = subdivide(items, imin, isplit, nodes)
	nodes = subdivide(items, isplit, imax, nodes)
	// Negative index means escape.
	nodes[icur].I = -int32(len(nodes) - icur)
	return nodes
}

func calcExtends(items []bvItem) (bmin, bmax [3]uint16) {
	bmin = items[0].bmin
	bmax = items[0].bmax
	for _, it := range items[1:] {
		for k := 0; k < 3; k++ {
			if it.bmin[k] < bmin[k] {
				bmin[k] = it.bmin[k]
			}
			if it.bmax[k] > bmax[k] {
				bmax[k] = it.bmax[k]
			}
		}
	}
	return bmin, bmax
}

func longestAxis(x, y, z int) int {
	axis := 0
	maxVal := x
	if y > maxVal {
		axis = 1
		maxVal = y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}
