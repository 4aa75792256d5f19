package detour

// PolyDetail locates the height detail sub-mesh of a polygon.
type PolyDetail struct {
	VertBase  uint32 // offset into MeshData.DetailVerts, in vertices
	TriBase   uint32 // offset into MeshData.DetailTris, in triangles
	VertCount uint8
	TriCount  uint8
}
