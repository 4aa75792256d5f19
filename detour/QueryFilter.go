package detour

import "github.com/go-gl/mathgl/mgl32"

// QueryFilter selects traversable polygons by flags and prices them by area.
// A polygon passes when it shares a flag with IncludeFlags and none with
// ExcludeFlags.
type QueryFilter struct {
	areaCost     [MaxAreas]float32
	IncludeFlags uint16
	ExcludeFlags uint16
}

// NewQueryFilter returns a filter accepting every flagged polygon at unit cost.
func NewQueryFilter() *QueryFilter {
	f := &QueryFilter{IncludeFlags: 0xffff}
	for i := range f.areaCost {
		f.areaCost[i] = 1.0
	}
	return f
}

func (f *QueryFilter) AreaCost(area int) float32 { return f.areaCost[area] }

func (f *QueryFilter) SetAreaCost(area int, cost float32) { f.areaCost[area] = cost }

func (f *QueryFilter) PassFilter(ref PolyRef, tile *MeshTile, poly *Poly) bool {
	return poly.Flags&f.IncludeFlags != 0 && poly.Flags&f.ExcludeFlags == 0
}

// Cost returns the cost of moving from pa to pb across curPoly.
func (f *QueryFilter) Cost(pa, pb mgl32.Vec3, curPoly *Poly) float32 {
	return vDist(pa, pb) * f.areaCost[curPoly.Area()]
}
