package recast

import (
	"fmt"
	"math"
)

// RasterizeTriangles voxelizes the indexed triangles into hf. areas holds
// one area id per triangle. Spans closer than flagMergeThr merge their
// area ids.
func RasterizeTriangles(hf *Heightfield, verts []float32, tris []int, areas []int, flagMergeThr int) error {
	nt := len(tris) / 3
	if len(areas) < nt {
		return fmt.Errorf("rasterize: %d areas for %d triangles", len(areas), nt)
	}
	ics := 1.0 / hf.cs
	ich := 1.0 / hf.ch
	for i := 0; i < nt; i++ {
		v0, v1, v2 := tris[i*3], tris[i*3+1], tris[i*3+2]
		if v0*3+2 >= len(verts) || v1*3+2 >= len(verts) || v2*3+2 >= len(verts) || v0 < 0 || v1 < 0 || v2 < 0 {
			return fmt.Errorf("rasterize: triangle %d indexes past %d vertices", i, len(verts)/3)
		}
		hf.rasterizeTri(verts, v0, v1, v2, areas[i], ics, ich, flagMergeThr)
	}
	return nil
}

// polyBuf holds a clipped polygon of up to 7 vertices.
type polyBuf struct {
	v [7 * 3]float32
	n int
}

func (hf *Heightfield) rasterizeTri(verts []float32, v0, v1, v2, area int, ics, ich float32, flagMergeThr int) {
	var tmin, tmax [3]float32
	vcopy(tmin[:], 0, verts, v0*3)
	vcopy(tmax[:], 0, verts, v0*3)
	vmin(tmin[:], verts, v1*3)
	vmin(tmin[:], verts, v2*3)
	vmax(tmax[:], verts, v1*3)
	vmax(tmax[:], verts, v2*3)
	// Skip triangles outside the field.
	if !overlapBounds(hf.bmin, hf.bmax, tmin, tmax) {
		return
	}
	by := hf.bmax[1] - hf.bmin[1]

	// Footprint of the triangle on the grid z axis.
	z0 := clampi(int((tmin[2]-hf.bmin[2])*ics), 0, hf.height-1)
	z1 := clampi(int((tmax[2]-hf.bmin[2])*ics), 0, hf.height-1)

	var in, rest, row, cell, rowRest polyBuf
	vcopy(in.v[:], 0, verts, v0*3)
	vcopy(in.v[:], 3, verts, v1*3)
	vcopy(in.v[:], 6, verts, v2*3)
	in.n = 3

	for z := z0; z <= z1; z++ {
		// Split off the part of the polygon inside this row.
		cz := hf.bmin[2] + float32(z)*hf.cs
		dividePoly(&in, &row, &rest, cz+hf.cs, 2)
		in, rest = rest, in
		if row.n < 3 {
			continue
		}
		minX, maxX := row.v[0], row.v[0]
		for i := 1; i < row.n; i++ {
			minX = minf(minX, row.v[i*3])
			maxX = maxf(maxX, row.v[i*3])
		}
		x0 := clampi(int((minX-hf.bmin[0])*ics), 0, hf.width-1)
		x1 := clampi(int((maxX-hf.bmin[0])*ics), 0, hf.width-1)

		for x := x0; x <= x1; x++ {
			// Split off the part of the row inside this cell.
			cx := hf.bmin[0] + float32(x)*hf.cs
			dividePoly(&row, &cell, &rowRest, cx+hf.cs, 0)
			row, rowRest = rowRest, row
			if cell.n < 3 {
				continue
			}
			smin, smax := cell.v[1], cell.v[1]
			for i := 1; i < cell.n; i++ {
				smin = minf(smin, cell.v[i*3+1])
				smax = maxf(smax, cell.v[i*3+1])
			}
			smin -= hf.bmin[1]
			smax -= hf.bmin[1]
			// Skip spans outside the field.
			if smax < 0 || smin > by {
				continue
			}
			smin = maxf(smin, 0)
			smax = minf(smax, by)
			// Snap to the height grid.
			ismin := clampi(int(math.Floor(float64(smin*ich))), 0, spanMaxHeight)
			ismax := clampi(int(math.Ceil(float64(smax*ich))), ismin+1, spanMaxHeight)
			hf.addSpan(x, z, ismin, ismax, area, flagMergeThr)
		}
	}
}

func overlapBounds(amin, amax, bmin, bmax [3]float32) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] ||
		amin[1] > bmax[1] || amax[1] < bmin[1] ||
		amin[2] > bmax[2] || amax[2] < bmin[2])
}

// dividePoly splits in along the axis aligned line at x. The part below
// goes to below, the rest to above.
func dividePoly(in, below, above *polyBuf, x float32, axis int) {
	var d [7]float32
	for i := 0; i < in.n; i++ {
		d[i] = x - in.v[i*3+axis]
	}
	m, n := 0, 0
	for i, j := 0, in.n-1; i < in.n; j, i = i, i+1 {
		ina := d[j] >= 0
		inb := d[i] >= 0
		if ina != inb {
			s := d[j] / (d[j] - d[i])
			for k := 0; k < 3; k++ {
				below.v[m*3+k] = in.v[j*3+k] + (in.v[i*3+k]-in.v[j*3+k])*s
			}
			vcopy(above.v[:], n*3, below.v[:], m*3)
			m++
			n++
			// Points on the dividing line were added above.
			if d[i] > 0 {
				vcopy(below.v[:], m*3, in.v[:], i*3)
				m++
			} else if d[i] < 0 {
				vcopy(above.v[:], n*3, in.v[:], i*3)
				n++
			}
			continue
		}
		// Same side. Points on the line go to both.
		if d[i] >= 0 {
			vcopy(below.v[:], m*3, in.v[:], i*3)
			m++
			if d[i] != 0 {
				continue
			}
		}
		vcopy(above.v[:], n*3, in.v[:], i*3)
		n++
	}
	below.n = m
	above.n = n
}

// addSpan inserts a span into column (x, z), merging it with every span
// it overlaps.
func (hf *Heightfield) addSpan(x, z, smin, smax, area, flagMergeThr int) {
	idx := x + z*hf.width
	s := hf.allocSpan()
	s.smin = smin
	s.smax = smax
	s.area = area

	var prev *Span
	cur := hf.spans[idx]
	for cur != nil {
		if cur.smin > s.smax {
			// Current span is above the new one.
			break
		}
		if cur.smax < s.smin {
			prev = cur
			cur = cur.next
			continue
		}
		// Overlap, merge.
		if cur.smin < s.smin {
			s.smin = cur.smin
		}
		if cur.smax > s.smax {
			s.smax = cur.smax
		}
		if absi(s.smax-cur.smax) <= flagMergeThr {
			s.area = maxi(s.area, cur.area)
		}
		next := cur.next
		hf.freeSpan(cur)
		if prev != nil {
			prev.next = next
		} else {
			hf.spans[idx] = next
		}
		cur = next
	}

	if prev != nil {
		s.next = prev.next
		prev.next = s
	} else {
		s.next = hf.spans[idx]
		hf.spans[idx] = s
	}
}
