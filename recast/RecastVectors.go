package recast

import "math"

// Helpers over flat (x, y, z) float arrays. Offsets are float indices.

func vcopy(dst []float32, d int, src []float32, s int) {
	dst[d] = src[s]
	dst[d+1] = src[s+1]
	dst[d+2] = src[s+2]
}

func vmin(mn []float32, v []float32, i int) {
	mn[0] = minf(mn[0], v[i])
	mn[1] = minf(mn[1], v[i+1])
	mn[2] = minf(mn[2], v[i+2])
}

func vmax(mx []float32, v []float32, i int) {
	mx[0] = maxf(mx[0], v[i])
	mx[1] = maxf(mx[1], v[i+1])
	mx[2] = maxf(mx[2], v[i+2])
}

func vsub(dst []float32, v []float32, i, j int) {
	dst[0] = v[i] - v[j]
	dst[1] = v[i+1] - v[j+1]
	dst[2] = v[i+2] - v[j+2]
}

func vcross(dst, a, b []float32) {
	dst[0] = a[1]*b[2] - a[2]*b[1]
	dst[1] = a[2]*b[0] - a[0]*b[2]
	dst[2] = a[0]*b[1] - a[1]*b[0]
}

func vnormalize(v []float32) {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return
	}
	d := 1 / l
	v[0] *= d
	v[1] *= d
	v[2] *= d
}

// xz plane variants.

func vdot2D(a, b []float32) float32 { return a[0]*b[0] + a[2]*b[2] }

func vdistSqr2D(v []float32, i, j int) float32 {
	dx := v[j] - v[i]
	dz := v[j+2] - v[i+2]
	return dx*dx + dz*dz
}

func vdist2D(v []float32, i, j int) float32 {
	return float32(math.Sqrt(float64(vdistSqr2D(v, i, j))))
}

// vcross2D returns the signed xz area of the triangle p1, p2, p3 in v.
func vcross2D(v []float32, p1, p2, p3 int) float32 {
	u1 := v[p2] - v[p1]
	v1 := v[p2+2] - v[p1+2]
	u2 := v[p3] - v[p1]
	v2 := v[p3+2] - v[p1+2]
	return u1*v2 - v1*u2
}
