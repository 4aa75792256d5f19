package recast

// InputGeom is a triangle soup with per triangle areas, ready to be cut
// into tiles.
type InputGeom struct {
	verts   []float32
	tris    []int
	areas   []uint8
	bmin    [3]float32
	bmax    [3]float32
	volumes []ConvexVolume
	chunky  *ChunkyTriMesh
}

// NewInputGeom copies verts and tris. areas holds one entry per triangle,
// nil marks every triangle WalkableArea.
func NewInputGeom(verts []float32, tris []int, areas []uint8) *InputGeom {
	g := &InputGeom{
		verts: append([]float32(nil), verts...),
		tris:  append([]int(nil), tris...),
	}
	if areas == nil {
		g.areas = make([]uint8, len(tris)/3)
		for i := range g.areas {
			g.areas[i] = WalkableArea
		}
	} else {
		g.areas = append([]uint8(nil), areas...)
	}
	if len(g.verts) >= 3 {
		vcopy(g.bmin[:], 0, g.verts, 0)
		vcopy(g.bmax[:], 0, g.verts, 0)
		for i := 1; i < len(g.verts)/3; i++ {
			vmin(g.bmin[:], g.verts, i*3)
			vmax(g.bmax[:], g.verts, i*3)
		}
	}
	return g
}

// ChunkyMesh returns the triangle tree, built on first use.
func (g *InputGeom) ChunkyMesh() *ChunkyTriMesh {
	if g.chunky == nil {
		g.chunky = NewChunkyTriMesh(g.verts, g.tris, len(g.tris)/3, 256)
	}
	return g.chunky
}

func (g *InputGeom) Bounds() (bmin, bmax [3]float32) { return g.bmin, g.bmax }

func (g *InputGeom) Verts() []float32 { return g.verts }

func (g *InputGeom) Tris() []int { return g.tris }

func (g *InputGeom) Areas() []uint8 { return g.areas }

// AddConvexVolume registers an area marker applied after erosion.
func (g *InputGeom) AddConvexVolume(vol ConvexVolume) {
	g.volumes = append(g.volumes, vol)
}

func (g *InputGeom) ConvexVolumes() []ConvexVolume { return g.volumes }
