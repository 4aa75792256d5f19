package recast

// PolyMeshDetail holds a height detail triangle mesh for each polygon of
// a PolyMesh.
type PolyMeshDetail struct {
	// (vertBase, vertCount, triBase, triCount) per polygon.
	meshes []int
	// World space vertices. [(x, y, z) * nverts]
	verts []float32
	// (v0, v1, v2, flags) per triangle, indices relative to vertBase.
	tris    []int
	nmeshes int
	nverts  int
	ntris   int
}

// Meshes returns the per polygon sub mesh table.
func (d *PolyMeshDetail) Meshes() []int { return d.meshes[:d.nmeshes*4] }

// Verts returns the vertex coordinates.
func (d *PolyMeshDetail) Verts() []float32 { return d.verts[:d.nverts*3] }

// Tris returns the triangles, four entries each.
func (d *PolyMeshDetail) Tris() []int { return d.tris[:d.ntris*4] }

// VertCount returns the number of detail vertices.
func (d *PolyMeshDetail) VertCount() int { return d.nverts }

// TriCount returns the number of detail triangles.
func (d *PolyMeshDetail) TriCount() int { return d.ntris }
