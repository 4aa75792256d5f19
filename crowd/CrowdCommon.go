package crowd

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func sqr(a float32) float32 { return a * a }

func sqrtf(a float32) float32 { return float32(math.Sqrt(float64(a))) }

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func vdist2DSqr(a, b mgl32.Vec3) float32 {
	dx := b[0] - a[0]
	dz := b[2] - a[2]
	return dx*dx + dz*dz
}

func vdist2D(a, b mgl32.Vec3) float32 { return sqrtf(vdist2DSqr(a, b)) }

func vdot2D(a, b mgl32.Vec3) float32 { return a[0]*b[0] + a[2]*b[2] }

func vperp2D(a, b mgl32.Vec3) float32 { return a[2]*b[0] - a[0]*b[2] }

// vnormalize returns v scaled to unit length, or v when it is zero.
func vnormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

func normalize2D(v mgl32.Vec3) mgl32.Vec3 {
	d := sqrtf(v[0]*v[0] + v[2]*v[2])
	if d == 0 {
		return v
	}
	v[0] /= d
	v[2] /= d
	return v
}

// rotate2D rotates v by ang radians around the y axis.
func rotate2D(v mgl32.Vec3, ang float32) mgl32.Vec3 {
	c := float32(math.Cos(float64(ang)))
	s := float32(math.Sin(float64(ang)))
	return mgl32.Vec3{v[0]*c - v[2]*s, v[1], v[0]*s + v[2]*c}
}
