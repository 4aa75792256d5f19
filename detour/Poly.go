package detour

// Poly is a convex navigation polygon inside a tile. The layout is fixed
// size so tiles can be read and written with encoding/binary.
type Poly struct {
	// Index to first link in the tile's link list, NullLink if none.
	FirstLink uint32
	// Indices into the tile vertices.
	Verts [VertsPerPolygon]uint16
	// Per edge: 0 = wall, ExtLink|side = tile portal, n+1 = internal neighbour n.
	Neis        [VertsPerPolygon]uint16
	Flags       uint16
	VertCount   uint8
	AreaAndType uint8
}

func (p *Poly) SetArea(a uint8) {
	p.AreaAndType = (p.AreaAndType & 0xc0) | (a & 0x3f)
}

func (p *Poly) SetType(t uint8) {
	p.AreaAndType = (p.AreaAndType & 0x3f) | (t << 6)
}

func (p *Poly) Area() uint8 {
	return p.AreaAndType & 0x3f
}

func (p *Poly) Type() uint8 {
	return p.AreaAndType >> 6
}
