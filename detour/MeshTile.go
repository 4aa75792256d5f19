package detour

import "github.com/go-gl/mathgl/mgl32"

// MeshTile is a tile slot of a NavMesh. A slot without data is free.
type MeshTile struct {
	index int
	// Bumped every time the slot is freed so stale references fail.
	salt uint32
	data *MeshData
	// Private copy of the blob the tile was loaded from.
	blob          []byte
	links         []Link
	linksFreeList uint32
	// Next free slot, or next tile in the same lookup bucket.
	next *MeshTile
}

// Header returns the tile header, nil for a free slot.
func (t *MeshTile) Header() *MeshHeader {
	if t == nil || t.data == nil {
		return nil
	}
	return &t.data.Header
}

// Data returns the decoded tile data.
func (t *MeshTile) Data() *MeshData {
	return t.data
}

func (t *MeshTile) vert(i uint16) mgl32.Vec3 {
	v := t.data.Verts[int(i)*3:]
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// polyVerts copies the polygon corners into buf.
func (t *MeshTile) polyVerts(p *Poly, buf []mgl32.Vec3) []mgl32.Vec3 {
	buf = buf[:0]
	for i := 0; i < int(p.VertCount); i++ {
		buf = append(buf, t.vert(p.Verts[i]))
	}
	return buf
}

// detailVert resolves a detail triangle vertex index.
func (t *MeshTile) detailVert(p *Poly, pd *PolyDetail, idx uint8) mgl32.Vec3 {
	if idx < p.VertCount {
		return t.vert(p.Verts[idx])
	}
	v := t.data.DetailVerts[(int(pd.VertBase)+int(idx-p.VertCount))*3:]
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func (t *MeshTile) allocLink() uint32 {
	if t.linksFreeList == NullLink {
		t.links = append(t.links, Link{Next: NullLink})
		return uint32(len(t.links) - 1)
	}
	idx := t.linksFreeList
	t.linksFreeList = t.links[idx].Next
	return idx
}

func (t *MeshTile) freeLink(idx uint32) {
	t.links[idx].Next = t.linksFreeList
	t.linksFreeList = idx
}
