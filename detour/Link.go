package detour

// Link connects a polygon edge to a neighbour polygon. Links are rebuilt
// every time a tile is added and are never serialized.
type Link struct {
	Ref  PolyRef
	Next uint32
	Edge uint8
	// Side is the tile side for portal links, 0xff for internal links.
	Side uint8
	// Bmin/Bmax limit the shared sub-edge on portal links, quantized to 0..255.
	Bmin uint8
	Bmax uint8
}
