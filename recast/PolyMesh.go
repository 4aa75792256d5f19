package recast

// PolyMesh is a mesh of convex polygons in voxel coordinates, ready to be
// turned into a navmesh tile.
type PolyMesh struct {
	// Vertices. [(x, y, z) * nverts]
	verts []int
	// nvp vertex indices followed by nvp neighbour indices per polygon.
	// Unused slots hold meshNullIdx. [maxpolys * 2 * nvp]
	polys    []int
	regs     []int
	areas    []int
	flags    []int
	nverts   int
	npolys   int
	maxpolys int
	nvp      int
	bmin     [3]float32
	bmax     [3]float32
	cs, ch   float32
	// Border size of the source heightfield.
	borderSize   int
	maxEdgeError float32
}

// Verts returns the vertex coordinates, three per vertex.
func (m *PolyMesh) Verts() []int { return m.verts[:m.nverts*3] }

// Polys returns the polygon and neighbour data, 2*Nvp entries per polygon.
func (m *PolyMesh) Polys() []int { return m.polys[:m.npolys*m.nvp*2] }

// VertCount returns the number of vertices.
func (m *PolyMesh) VertCount() int { return m.nverts }

// PolyCount returns the number of polygons.
func (m *PolyMesh) PolyCount() int { return m.npolys }

// Nvp returns the maximum number of vertices per polygon.
func (m *PolyMesh) Nvp() int { return m.nvp }

// Areas returns the area id of each polygon.
func (m *PolyMesh) Areas() []int { return m.areas[:m.npolys] }

// Flags returns the user flags of each polygon. The slice is writable.
func (m *PolyMesh) Flags() []int { return m.flags[:m.npolys] }

// Bounds returns the world space bounds of the mesh.
func (m *PolyMesh) Bounds() (bmin, bmax [3]float32) { return m.bmin, m.bmax }

// worldVerts converts the vertices to world space.
func (m *PolyMesh) worldVerts() []float32 {
	out := make([]float32, m.nverts*3)
	for i := 0; i < m.nverts; i++ {
		v := m.verts[i*3 : i*3+3]
		out[i*3] = m.bmin[0] + float32(v[0])*m.cs
		out[i*3+1] = m.bmin[1] + float32(v[1])*m.ch
		out[i*3+2] = m.bmin[2] + float32(v[2])*m.cs
	}
	return out
}
