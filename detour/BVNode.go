package detour

// BVNode is a node of the tile bounding volume tree. Bounds are quantized
// relative to the tile minimum.
type BVNode struct {
	Bmin [3]uint16
	Bmax [3]uint16
	// I is the polygon index of a leaf, or the negated escape offset.
	I int32
}

type bvItem struct {
	bmin, bmax [3]uint16
	i          int
}
