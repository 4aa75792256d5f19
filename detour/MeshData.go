package detour

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MeshData is the decoded content of one tile blob.
type MeshData struct {
	Header MeshHeader
	// Tile vertices, (x, y, z) * Header.VertCount.
	Verts []float32
	Polys []Poly
	// One sub-mesh per polygon.
	DetailMeshes []PolyDetail
	// Unique detail vertices, (x, y, z) * Header.DetailVertCount.
	DetailVerts []float32
	// (vertA, vertB, vertC, edgeFlags) * Header.DetailTriCount.
	DetailTris []uint8
	// Empty when the tile was built without a BV tree.
	BVTree []BVNode
}

// Encode writes the tile as a little endian blob: header followed by the
// vertex, polygon, detail and BV tree arrays.
func (d *MeshData) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the blob to w.
func (d *MeshData) Write(w io.Writer) error {
	h := &d.Header
	if len(d.Verts) != int(h.VertCount)*3 || len(d.Polys) != int(h.PolyCount) ||
		len(d.DetailMeshes) != int(h.DetailMeshCount) || len(d.DetailVerts) != int(h.DetailVertCount)*3 ||
		len(d.DetailTris) != int(h.DetailTriCount)*4 || len(d.BVTree) != int(h.BvNodeCount) {
		return fmt.Errorf("encode tile (%d,%d): array sizes do not match header: %w", h.X, h.Y, ErrInvalidParam)
	}
	for _, v := range []interface{}{h, d.Verts, d.Polys, d.DetailMeshes, d.DetailVerts, d.DetailTris, d.BVTree} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encode tile (%d,%d): %w", h.X, h.Y, err)
		}
	}
	return nil
}

// DecodeMeshData parses a tile blob. The returned data does not alias blob.
func DecodeMeshData(blob []byte) (*MeshData, error) {
	r := bytes.NewReader(blob)
	d := &MeshData{}
	h := &d.Header
	if err := binary.Read(r, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("decode tile header: %w", err)
	}
	if h.Magic != NavMeshMagic {
		return nil, ErrWrongMagic
	}
	if h.Version != NavMeshVersion {
		return nil, ErrWrongVersion
	}
	if h.VertCount < 0 || h.PolyCount < 0 || h.DetailMeshCount < 0 || h.DetailVertCount < 0 ||
		h.DetailTriCount < 0 || h.BvNodeCount < 0 {
		return nil, fmt.Errorf("decode tile (%d,%d): negative count: %w", h.X, h.Y, ErrInvalidParam)
	}
	// Guard allocations against a truncated or corrupt blob.
	need := int64(h.VertCount)*12 + int64(h.PolyCount)*int64(binary.Size(Poly{})) +
		int64(h.DetailMeshCount)*int64(binary.Size(PolyDetail{})) + int64(h.DetailVertCount)*12 +
		int64(h.DetailTriCount)*4 + int64(h.BvNodeCount)*int64(binary.Size(BVNode{}))
	if need > int64(r.Len()) {
		return nil, fmt.Errorf("decode tile (%d,%d): blob truncated: %w", h.X, h.Y, ErrInvalidParam)
	}

	d.Verts = make([]float32, h.VertCount*3)
	d.Polys = make([]Poly, h.PolyCount)
	d.DetailMeshes = make([]PolyDetail, h.DetailMeshCount)
	d.DetailVerts = make([]float32, h.DetailVertCount*3)
	d.DetailTris = make([]uint8, h.DetailTriCount*4)
	d.BVTree = make([]BVNode, h.BvNodeCount)
	for _, v := range []interface{}{d.Verts, d.Polys, d.DetailMeshes, d.DetailVerts, d.DetailTris, d.BVTree} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("decode tile (%d,%d): %w", h.X, h.Y, err)
		}
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("decode tile (%d,%d): %w", h.X, h.Y, err)
	}
	return d, nil
}

// validate checks every index stored in the tile against the array it
// points into.
func (d *MeshData) validate() error {
	h := &d.Header
	if h.DetailMeshCount != h.PolyCount {
		return fmt.Errorf("%d detail meshes for %d polygons: %w", h.DetailMeshCount, h.PolyCount, ErrInvalidParam)
	}
	if h.MaxLinkCount < 0 || int64(h.MaxLinkCount) > int64(h.PolyCount)*VertsPerPolygon*3 {
		return fmt.Errorf("max link count %d: %w", h.MaxLinkCount, ErrInvalidParam)
	}
	for i := range d.Polys {
		p := &d.Polys[i]
		nv := int(p.VertCount)
		if nv < 3 || nv > VertsPerPolygon {
			return fmt.Errorf("poly %d has %d vertices: %w", i, nv, ErrInvalidParam)
		}
		for j := 0; j < nv; j++ {
			if int32(p.Verts[j]) >= h.VertCount {
				return fmt.Errorf("poly %d vertex %d out of range: %w", i, p.Verts[j], ErrInvalidParam)
			}
			nei := p.Neis[j]
			if nei&ExtLink != 0 {
				if nei&^ExtLink > 7 {
					return fmt.Errorf("poly %d portal %#x: %w", i, nei, ErrInvalidParam)
				}
			} else if int32(nei) > h.PolyCount {
				return fmt.Errorf("poly %d neighbour %d out of range: %w", i, nei, ErrInvalidParam)
			}
		}

		pd := &d.DetailMeshes[i]
		if int64(pd.VertBase)+int64(pd.VertCount) > int64(h.DetailVertCount) ||
			int64(pd.TriBase)+int64(pd.TriCount) > int64(h.DetailTriCount) {
			return fmt.Errorf("poly %d detail mesh out of range: %w", i, ErrInvalidParam)
		}
		maxIdx := nv + int(pd.VertCount)
		for k := 0; k < int(pd.TriCount); k++ {
			t := d.DetailTris[(int(pd.TriBase)+k)*4:]
			if int(t[0]) >= maxIdx || int(t[1]) >= maxIdx || int(t[2]) >= maxIdx {
				return fmt.Errorf("poly %d detail triangle %d out of range: %w", i, k, ErrInvalidParam)
			}
		}
	}
	n := int64(len(d.BVTree))
	for i := range d.BVTree {
		node := &d.BVTree[i]
		if node.I >= 0 {
			if node.I >= h.PolyCount {
				return fmt.Errorf("bv node %d leaf %d out of range: %w", i, node.I, ErrInvalidParam)
			}
			continue
		}
		// Escape offsets skip forward, at most to the end of the tree.
		if esc := -int64(node.I); int64(i)+esc > n {
			return fmt.Errorf("bv node %d escape %d out of range: %w", i, esc, ErrInvalidParam)
		}
	}
	return nil
}
