package detour

import "github.com/go-gl/mathgl/mgl32"

// StraightPathItem is one corner of a string pulled path.
type StraightPathItem struct {
	Pos   mgl32.Vec3
	Flags uint8   // StraightPathStart, StraightPathEnd, ...
	Ref   PolyRef // polygon entered at this corner, 0 at the end
}
