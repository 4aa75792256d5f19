package crowd

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxPatternDivs  = 32
	maxPatternRings = 4

	float32Epsilon = 1.1920929e-07
)

// ObstacleAvoidanceParams tunes the velocity sampler.
type ObstacleAvoidanceParams struct {
	VelBias       float32 `toml:"vel_bias" yaml:"vel_bias"`
	WeightDesVel  float32 `toml:"weight_des_vel" yaml:"weight_des_vel"`
	WeightCurVel  float32 `toml:"weight_cur_vel" yaml:"weight_cur_vel"`
	WeightSide    float32 `toml:"weight_side" yaml:"weight_side"`
	WeightToi     float32 `toml:"weight_toi" yaml:"weight_toi"`
	HorizTime     float32 `toml:"horiz_time" yaml:"horiz_time"`
	GridSize      uint8   `toml:"grid_size" yaml:"grid_size"`
	AdaptiveDivs  uint8   `toml:"adaptive_divs" yaml:"adaptive_divs"`
	AdaptiveRings uint8   `toml:"adaptive_rings" yaml:"adaptive_rings"`
	AdaptiveDepth uint8   `toml:"adaptive_depth" yaml:"adaptive_depth"`
}

// DefaultObstacleAvoidanceParams returns the medium quality preset.
func DefaultObstacleAvoidanceParams() ObstacleAvoidanceParams {
	return ObstacleAvoidanceParams{
		VelBias:       0.4,
		WeightDesVel:  2.0,
		WeightCurVel:  0.75,
		WeightSide:    0.75,
		WeightToi:     2.5,
		HorizTime:     2.5,
		GridSize:      33,
		AdaptiveDivs:  7,
		AdaptiveRings: 2,
		AdaptiveDepth: 5,
	}
}

// ObstacleAvoidancePresets returns the four quality levels, low to high.
func ObstacleAvoidancePresets() [4]ObstacleAvoidanceParams {
	var presets [4]ObstacleAvoidanceParams
	levels := [4][3]uint8{
		{5, 2, 1}, // low
		{5, 2, 2}, // medium
		{7, 2, 3}, // good
		{7, 3, 3}, // high
	}
	for i, l := range levels {
		p := DefaultObstacleAvoidanceParams()
		p.VelBias = 0.5
		p.AdaptiveDivs = l[0]
		p.AdaptiveRings = l[1]
		p.AdaptiveDepth = l[2]
		presets[i] = p
	}
	return presets
}

type obstacleCircle struct {
	p    mgl32.Vec3 // position
	vel  mgl32.Vec3 // velocity
	dvel mgl32.Vec3 // desired velocity
	rad  float32
	dp   mgl32.Vec3 // direction to obstacle
	np   mgl32.Vec3 // side of obstacle
}

type obstacleSegment struct {
	p, q  mgl32.Vec3
	touch bool
}

// ObstacleAvoidanceQuery samples candidate velocities around the desired
// one and scores them against nearby agents and walls.
type ObstacleAvoidanceQuery struct {
	params       ObstacleAvoidanceParams
	invHorizTime float32
	vmax         float32
	invVmax      float32

	maxCircles  int
	circles     []obstacleCircle
	maxSegments int
	segments    []obstacleSegment
}

func NewObstacleAvoidanceQuery(maxCircles, maxSegments int) *ObstacleAvoidanceQuery {
	return &ObstacleAvoidanceQuery{
		maxCircles:  maxCircles,
		circles:     make([]obstacleCircle, 0, maxCircles),
		maxSegments: maxSegments,
		segments:    make([]obstacleSegment, 0, maxSegments),
	}
}

func (q *ObstacleAvoidanceQuery) Reset() {
	q.circles = q.circles[:0]
	q.segments = q.segments[:0]
}

func (q *ObstacleAvoidanceQuery) AddCircle(pos mgl32.Vec3, rad float32, vel, dvel mgl32.Vec3) {
	if len(q.circles) >= q.maxCircles {
		return
	}
	q.circles = append(q.circles, obstacleCircle{p: pos, vel: vel, dvel: dvel, rad: rad})
}

func (q *ObstacleAvoidanceQuery) AddSegment(p, s mgl32.Vec3) {
	if len(q.segments) >= q.maxSegments {
		return
	}
	q.segments = append(q.segments, obstacleSegment{p: p, q: s})
}

func (q *ObstacleAvoidanceQuery) ObstacleCircleCount() int  { return len(q.circles) }
func (q *ObstacleAvoidanceQuery) ObstacleSegmentCount() int { return len(q.segments) }

func (q *ObstacleAvoidanceQuery) prepare(pos, dvel mgl32.Vec3) {
	var orig mgl32.Vec3
	for i := range q.circles {
		cir := &q.circles[i]
		cir.dp = vnormalize(cir.p.Sub(pos))
		dv := cir.dvel.Sub(dvel)
		a := triArea2D(orig, cir.dp, dv)
		if a < 0.01 {
			cir.np = mgl32.Vec3{-cir.dp[2], 0, cir.dp[0]}
		} else {
			cir.np = mgl32.Vec3{cir.dp[2], 0, -cir.dp[0]}
		}
	}
	for i := range q.segments {
		seg := &q.segments[i]
		// Precalc if the agent is really close to the segment.
		const r = 0.01
		d, _ := distancePtSegSqr2D(pos, seg.p, seg.q)
		seg.touch = d < sqr(r)
	}
}

func triArea2D(a, b, c mgl32.Vec3) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

func distancePtSegSqr2D(pt, p, q mgl32.Vec3) (float32, float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = clampf(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// sweepCircleCircle returns the times the moving circle c0 enters and
// leaves c1.
func sweepCircleCircle(c0 mgl32.Vec3, r0 float32, v mgl32.Vec3, c1 mgl32.Vec3, r1 float32) (tmin, tmax float32, ok bool) {
	const eps = 0.0001
	s := c1.Sub(c0)
	r := r0 + r1
	c := vdot2D(s, s) - r*r
	a := vdot2D(v, v)
	if a < eps {
		return 0, 0, false // not moving
	}
	// Overlap, calc time to exit.
	b := vdot2D(v, s)
	d := b*b - a*c
	if d < 0 {
		return 0, 0, false // no intersection
	}
	a = 1 / a
	rd := sqrtf(d)
	return (b - rd) * a, (b + rd) * a, true
}

func isectRaySeg(ap, u, bp, bq mgl32.Vec3) (float32, bool) {
	v := bq.Sub(bp)
	w := ap.Sub(bp)
	d := vperp2D(u, v)
	if absf(d) < 1e-6 {
		return 0, false
	}
	d = 1 / d
	t := vperp2D(v, w) * d
	if t < 0 || t > 1 {
		return 0, false
	}
	s := vperp2D(u, w) * d
	if s < 0 || s > 1 {
		return 0, false
	}
	return t, true
}

func absf(v float32) float32 { return float32(math.Abs(float64(v))) }

// processSample scores a candidate velocity. Lower is better. The search
// bails out with minPenalty as soon as the candidate cannot beat it.
func (q *ObstacleAvoidanceQuery) processSample(vcand mgl32.Vec3, pos mgl32.Vec3, rad float32, vel, dvel mgl32.Vec3, minPenalty float32) float32 {
	// Penalty for straying away from the desired and current velocities.
	vpen := q.params.WeightDesVel * (vdist2D(vcand, dvel) * q.invVmax)
	vcpen := q.params.WeightCurVel * (vdist2D(vcand, vel) * q.invVmax)

	// Threshold hit time to bail out early.
	minPen := minPenalty - vpen - vcpen
	tThreshold := (q.params.WeightToi/minPen - 0.1) * q.params.HorizTime
	if tThreshold-q.params.HorizTime > -float32Epsilon {
		return minPenalty // already too much
	}

	// Find min time of impact and exit amongst all obstacles.
	tmin := q.params.HorizTime
	var side float32
	nside := 0

	for i := range q.circles {
		cir := &q.circles[i]

		// RVO
		vab := vcand.Mul(2).Sub(vel).Sub(cir.vel)

		side += clampf(minf(vdot2D(cir.dp, vab)*0.5+0.5, vdot2D(cir.np, vab)*2), 0, 1)
		nside++

		htmin, htmax, ok := sweepCircleCircle(pos, rad, vab, cir.p, cir.rad)
		if !ok {
			continue
		}
		// Avoid more when overlapped.
		if htmin < 0 && htmax > 0 {
			htmin = -htmin * 0.5
		}
		if htmin >= 0 && htmin < tmin {
			tmin = htmin
			if tmin < tThreshold {
				return minPenalty
			}
		}
	}

	for i := range q.segments {
		seg := &q.segments[i]
		var htmin float32
		if seg.touch {
			// Special case when the agent is very close to the segment.
			sdir := seg.q.Sub(seg.p)
			snorm := mgl32.Vec3{-sdir[2], 0, sdir[0]}
			// If the velocity is pointing towards the segment, no collision.
			if vdot2D(snorm, vcand) < 0 {
				continue
			}
			// Else immediate collision.
			htmin = 0
		} else {
			t, ok := isectRaySeg(pos, vcand, seg.p, seg.q)
			if !ok {
				continue
			}
			htmin = t
		}
		// Avoid less when facing walls.
		htmin *= 2
		if htmin < tmin {
			tmin = htmin
			if tmin < tThreshold {
				return minPenalty
			}
		}
	}

	// Normalize side bias, to prevent it dominating too much.
	if nside > 0 {
		side /= float32(nside)
	}
	spen := q.params.WeightSide * side
	tpen := q.params.WeightToi * (1 / (0.1 + tmin*q.invHorizTime))
	return vpen + vcpen + spen + tpen
}

// SampleVelocityAdaptive searches a velocity close to dvel that avoids the
// registered obstacles. Rings of samples aligned with dvel are refined
// around the best candidate AdaptiveDepth times. It returns the chosen
// velocity and the number of samples taken.
func (q *ObstacleAvoidanceQuery) SampleVelocityAdaptive(pos mgl32.Vec3, rad, vmax float32, vel, dvel mgl32.Vec3, params *ObstacleAvoidanceParams) (mgl32.Vec3, int) {
	q.prepare(pos, dvel)
	q.params = *params
	q.invHorizTime = 1 / q.params.HorizTime
	q.vmax = vmax
	q.invVmax = math.MaxFloat32
	if vmax > 0 {
		q.invVmax = 1 / vmax
	}

	// Build sampling pattern aligned to desired velocity.
	var pat [(maxPatternDivs*maxPatternRings + 1) * 2]float32
	npat := 0

	nd := clampInt(int(q.params.AdaptiveDivs), 1, maxPatternDivs)
	nr := clampInt(int(q.params.AdaptiveRings), 1, maxPatternRings)
	depth := int(q.params.AdaptiveDepth)
	da := (1 / float32(nd)) * math.Pi * 2
	ca := float32(math.Cos(float64(da)))
	sa := float32(math.Sin(float64(da)))

	// Desired direction, and the same rotated by half a division.
	ddir0 := normalize2D(mgl32.Vec3{dvel[0], 0, dvel[2]})
	ddir1 := rotate2D(ddir0, da*0.5)
	ddir := [2]mgl32.Vec3{ddir0, ddir1}

	// Always add sample at zero.
	pat[0], pat[1] = 0, 0
	npat++

	for j := 0; j < nr; j++ {
		r := float32(nr-j) / float32(nr)
		pat[npat*2+0] = ddir[j%2][0] * r
		pat[npat*2+1] = ddir[j%2][2] * r
		last1 := npat * 2
		last2 := last1
		npat++

		for i := 1; i < nd-1; i += 2 {
			// Next point on the right, rotate CW.
			pat[npat*2+0] = pat[last1]*ca + pat[last1+1]*sa
			pat[npat*2+1] = -pat[last1]*sa + pat[last1+1]*ca
			// Next point on the left, rotate CCW.
			pat[npat*2+2] = pat[last2]*ca - pat[last2+1]*sa
			pat[npat*2+3] = pat[last2]*sa + pat[last2+1]*ca

			last1 = npat * 2
			last2 = last1 + 2
			npat += 2
		}

		if nd&1 == 0 {
			pat[npat*2+0] = pat[last2]*ca - pat[last2+1]*sa
			pat[npat*2+1] = pat[last2]*sa + pat[last2+1]*ca
			npat++
		}
	}

	// Start sampling.
	cr := vmax * (1 - q.params.VelBias)
	res := mgl32.Vec3{dvel[0] * q.params.VelBias, 0, dvel[2] * q.params.VelBias}
	ns := 0

	for k := 0; k < depth; k++ {
		minPenalty := float32(math.MaxFloat32)
		var bvel mgl32.Vec3

		for i := 0; i < npat; i++ {
			vcand := mgl32.Vec3{res[0] + pat[i*2+0]*cr, 0, res[2] + pat[i*2+1]*cr}
			if sqr(vcand[0])+sqr(vcand[2]) > sqr(vmax+0.001) {
				continue
			}
			penalty := q.processSample(vcand, pos, rad, vel, dvel, minPenalty)
			ns++
			if penalty < minPenalty {
				minPenalty = penalty
				bvel = vcand
			}
		}

		res = bvel
		cr *= 0.5
	}
	return res, ns
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
