package recast

import "fmt"

// CompactHeightfield stores the open space above the walkable spans of a
// Heightfield, with neighbour connections between the spans.
type CompactHeightfield struct {
	width, height int
	spanCount     int
	// Agent values the field was built with, in voxels.
	walkableHeight int
	walkableClimb  int
	borderSize     int
	// Largest distance value of any span, set by BuildDistanceField.
	maxDistance int
	// Largest region id of any span, set by BuildRegions.
	maxRegions int
	bmin, bmax [3]float32
	cs, ch     float32
	cells      []CompactCell // [Size: width*height]
	spans      []CompactSpan // [Size: spanCount]
	dist       []int         // border distance per span
	areas      []int         // area id per span
}

// BuildCompactHeightfield converts the walkable spans of hf into a compact
// field and connects neighbouring spans an agent can move between.
func BuildCompactHeightfield(walkableHeight, walkableClimb int, hf *Heightfield) (*CompactHeightfield, error) {
	w, h := hf.width, hf.height
	spanCount := hf.spanCount()

	chf := &CompactHeightfield{
		width:          w,
		height:         h,
		spanCount:      spanCount,
		walkableHeight: walkableHeight,
		walkableClimb:  walkableClimb,
		bmin:           hf.bmin,
		bmax:           hf.bmax,
		cs:             hf.cs,
		ch:             hf.ch,
		cells:          make([]CompactCell, w*h),
		spans:          make([]CompactSpan, spanCount),
		areas:          make([]int, spanCount),
	}
	chf.bmax[1] += float32(walkableHeight) * hf.ch

	// Fill in cells and spans.
	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := hf.spans[x+y*w]
			if s == nil {
				continue
			}
			c := &chf.cells[x+y*w]
			c.index = idx
			for ; s != nil; s = s.next {
				if s.area == NullArea {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}
				chf.spans[idx].y = clampi(bot, 0, 0xffff)
				chf.spans[idx].h = clampi(top-bot, 0, 0xff)
				chf.areas[idx] = s.area
				idx++
				c.count++
			}
		}
	}

	// Find neighbour connections.
	tooHighNeighbour := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				for dir := 0; dir < 4; dir++ {
					s.setCon(dir, notConnected)
					nx := x + dirOffsX(dir)
					ny := y + dirOffsY(dir)
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					// Connect to the first neighbour span with enough
					// clearance and a small enough step.
					nc := chf.cells[nx+ny*w]
					for k := nc.index; k < nc.index+nc.count; k++ {
						ns := &chf.spans[k]
						bot := maxi(s.y, ns.y)
						top := mini(s.y+s.h, ns.y+ns.h)
						if top-bot >= walkableHeight && absi(ns.y-s.y) <= walkableClimb {
							lidx := k - nc.index
							if lidx < 0 || lidx > maxLayers {
								tooHighNeighbour = maxi(tooHighNeighbour, lidx)
								continue
							}
							s.setCon(dir, lidx)
							break
						}
					}
				}
			}
		}
	}
	if tooHighNeighbour > maxLayers {
		return nil, fmt.Errorf("compact heightfield: %d layers per cell, limit %d", tooHighNeighbour, maxLayers)
	}
	return chf, nil
}

// neighbour returns the span index of the neighbour of span i at cell
// (x, y) in direction dir. The connection must exist.
func (chf *CompactHeightfield) neighbour(x, y, dir int, s *CompactSpan) int {
	ax := x + dirOffsX(dir)
	ay := y + dirOffsY(dir)
	return chf.cells[ax+ay*chf.width].index + s.getCon(dir)
}
