package crowd

import (
	"sort"

	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	checkLookAhead         = 10
	targetReplanDelay      = 1.0 // seconds
	optTimeThreshold       = 0.5 // seconds
	optMaxAgents           = 1
	collisionIterations    = 4
	collisionResolveFactor = 0.7
)

// Update advances every active agent by dt seconds.
func (c *Crowd) Update(dt float32) {
	c.velocitySampleCount = 0

	c.active = c.active[:0]
	for i := range c.agents {
		if c.agents[i].active {
			c.active = append(c.active, &c.agents[i])
		}
	}
	agents := c.active

	// Check that all agents still have valid paths.
	c.checkPathValidity(agents, dt)

	// Update async move request and path finder.
	c.updateMoveRequest(agents)

	// Optimize path topology.
	c.updateTopologyOptimization(agents, dt)

	// Register agents to proximity grid.
	c.grid.Clear()
	for _, ag := range agents {
		p := ag.npos
		r := ag.params.Radius
		c.grid.AddItem(uint16(ag.idx), p[0]-r, p[2]-r, p[0]+r, p[2]+r)
	}

	// Get nearby navmesh segments and agents to collide with.
	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		// Update the collision boundary after certain distance has been
		// passed or if it has become invalid.
		updateThr := ag.params.CollisionQueryRange * 0.25
		if vdist2DSqr(ag.npos, ag.boundary.Center()) > sqr(updateThr) || !ag.boundary.IsValid(c.navquery, c.filter(ag)) {
			ag.boundary.Update(ag.corridor.FirstPoly(), ag.npos, ag.params.CollisionQueryRange, c.navquery, c.filter(ag))
		}
		// Query neighbour agents.
		ag.neis = c.getNeighbours(ag.npos, ag.params.Height, ag.params.CollisionQueryRange, ag, ag.neis[:0])
	}

	// Find next corner to steer to.
	for _, ag := range agents {
		ag.corners = ag.corners[:0]
		if ag.state != AgentStateWalking {
			continue
		}
		if ag.targetState == TargetNone || ag.targetState == TargetVelocity {
			continue
		}
		ag.corners = ag.corridor.FindCorners(c.navquery, MaxCorners)

		// Check to see if the corner after the next corner is directly
		// visible, and short cut to there.
		if ag.params.OptimizeVis && len(ag.corners) > 0 {
			target := ag.corners[mini(1, len(ag.corners)-1)].Pos
			ag.corridor.OptimizePathVisibility(target, ag.params.PathOptimizationRange, c.navquery, c.filter(ag))
		}

		if ag.targetState == TargetValid && !ag.arrived && c.overEnd(ag) {
			ag.arrived = true
			c.log.Debug("agent arrived", zap.Int("agent", ag.idx), zap.Bool("partial", ag.partial))
		}
	}

	// Calculate steering.
	for _, ag := range agents {
		if ag.state != AgentStateWalking || ag.targetState == TargetNone {
			continue
		}
		var dvel mgl32.Vec3
		if ag.targetState == TargetVelocity {
			dvel = ag.targetPos
			ag.desiredSpeed = ag.targetPos.Len()
		} else {
			// Calculate steering direction.
			var dir mgl32.Vec3
			if ag.params.AnticipateTurns {
				dir = calcSmoothSteerDirection(ag)
			} else {
				dir = calcStraightSteerDirection(ag)
			}
			// Slow down at the end of the path.
			slowDownRadius := ag.params.Radius * 2
			speedScale := getDistanceToGoal(ag, slowDownRadius) / slowDownRadius

			ag.desiredSpeed = ag.params.MaxSpeed
			dvel = dir.Mul(ag.desiredSpeed * speedScale)
		}

		// Separation
		if ag.params.Separation {
			separationDist := ag.params.CollisionQueryRange
			invSeparationDist := 1 / separationDist
			separationWeight := ag.params.SeparationWeight

			var w float32
			var disp mgl32.Vec3
			for _, nei := range ag.neis {
				other := &c.agents[nei.idx]
				diff := ag.npos.Sub(other.npos)
				diff[1] = 0
				distSqr := diff.Dot(diff)
				if distSqr < 0.00001 || distSqr > sqr(separationDist) {
					continue
				}
				dist := sqrtf(distSqr)
				weight := separationWeight * (1 - sqr(dist*invSeparationDist))
				disp = disp.Add(diff.Mul(weight / dist))
				w++
			}
			if w > 0.0001 {
				// Adjust desired velocity.
				dvel = dvel.Add(disp.Mul(1 / w))
				// Clamp desired velocity to desired speed.
				speedSqr := dvel.Dot(dvel)
				if speedSqr > sqr(ag.desiredSpeed) {
					dvel = dvel.Mul(ag.desiredSpeed / sqrtf(speedSqr))
				}
			}
		}
		ag.dvel = dvel
	}

	// Velocity planning.
	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		if !ag.params.ObstacleAvoidance {
			// If not using velocity planning, new velocity is directly
			// the desired velocity.
			ag.nvel = ag.dvel
			continue
		}
		c.obstacleQuery.Reset()
		// Add neighbours as obstacles.
		for _, nei := range ag.neis {
			nag := &c.agents[nei.idx]
			c.obstacleQuery.AddCircle(nag.npos, nag.params.Radius, nag.vel, nag.dvel)
		}
		// Append neighbour segments as obstacles.
		for j := 0; j < ag.boundary.SegmentCount(); j++ {
			s0, s1 := ag.boundary.Segment(j)
			if triArea2D(ag.npos, s0, s1) < 0 {
				continue
			}
			c.obstacleQuery.AddSegment(s0, s1)
		}
		params := &c.obstacleParams[ag.params.ObstacleAvoidanceType]
		nvel, ns := c.obstacleQuery.SampleVelocityAdaptive(ag.npos, ag.params.Radius, ag.desiredSpeed, ag.vel, ag.dvel, params)
		ag.nvel = nvel
		c.velocitySampleCount += ns
	}

	// Integrate.
	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		integrate(ag, dt)
	}

	// Handle collisions.
	for iter := 0; iter < collisionIterations; iter++ {
		// The last pass pushes overlapping pairs fully apart.
		factor := float32(collisionResolveFactor)
		if iter == collisionIterations-1 {
			factor = 1
		}
		for _, ag := range agents {
			ag.disp = mgl32.Vec3{}
			if ag.state != AgentStateWalking {
				continue
			}
			var w float32
			for _, nei := range ag.neis {
				nag := &c.agents[nei.idx]
				diff := ag.npos.Sub(nag.npos)
				diff[1] = 0

				minDist := ag.params.Radius + nag.params.Radius
				dist := diff.Dot(diff)
				if dist > sqr(minDist) {
					continue
				}
				dist = sqrtf(dist)
				pen := minDist - dist
				if dist < 0.0001 {
					// Agents on top of each other, try to choose diverging
					// separation directions.
					if ag.idx > nei.idx {
						diff = mgl32.Vec3{-ag.dvel[2], 0, ag.dvel[0]}
					} else {
						diff = mgl32.Vec3{ag.dvel[2], 0, -ag.dvel[0]}
					}
					pen = 0.01
				} else {
					pen = (1 / dist) * (pen * 0.5) * factor
				}
				ag.disp = ag.disp.Add(diff.Mul(pen))
				w++
			}
			if w > 0.0001 {
				ag.disp = ag.disp.Mul(1 / w)
			}
		}
		for _, ag := range agents {
			if ag.state != AgentStateWalking {
				continue
			}
			ag.npos = ag.npos.Add(ag.disp)
		}
	}

	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		// Move along navmesh.
		ag.corridor.MovePosition(ag.npos, c.navquery, c.filter(ag))
		// Get valid constrained position back.
		ag.npos = ag.corridor.Pos()

		// If not using path, truncate the corridor to just one poly.
		if ag.targetState == TargetNone || ag.targetState == TargetVelocity {
			ag.corridor.Reset(ag.corridor.FirstPoly(), ag.npos)
			ag.partial = false
		}
	}
}

func (c *Crowd) checkPathValidity(agents []*Agent, dt float32) {
	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		ag.targetReplanTime += dt
		filter := c.filter(ag)
		replan := false

		// First check that the current location is valid.
		agentPos := ag.npos
		agentRef := ag.corridor.FirstPoly()
		if !isValidPolyRef(c.navquery, agentRef, filter) {
			// Current location is not valid, try to reposition.
			ref, nearest, err := c.navquery.FindNearestPoly(ag.npos, c.agentPlacementHalfExtents, filter)
			if err != nil {
				// Could not find location in navmesh, set state to invalid.
				ag.corridor.Reset(0, agentPos)
				ag.partial = false
				ag.boundary.Reset()
				ag.state = AgentStateInvalid
				c.log.Debug("agent lost the navmesh", zap.Int("agent", ag.idx))
				continue
			}
			agentRef, agentPos = ref, nearest
			// Make sure the first polygon is valid, but leave other valid
			// polygons in the path so that replanner can adjust the path
			// better.
			ag.corridor.FixPathStart(agentRef, agentPos)
			ag.boundary.Reset()
			ag.npos = agentPos
			replan = true
		}

		// No target to recover or replan.
		if ag.targetState == TargetNone || ag.targetState == TargetVelocity {
			continue
		}

		// Try to recover move request position.
		if ag.targetState != TargetFailed {
			if !isValidPolyRef(c.navquery, ag.targetRef, filter) {
				// Current target is not valid, try to reposition.
				ref, nearest, err := c.navquery.FindNearestPoly(ag.targetPos, c.agentPlacementHalfExtents, filter)
				if err == nil {
					ag.targetRef, ag.targetPos = ref, nearest
				} else {
					ag.targetRef = 0
				}
				replan = true
			}
			if ag.targetRef == 0 {
				// Failed to reposition target, fail moverequest.
				ag.corridor.Reset(agentRef, agentPos)
				ag.partial = false
				ag.targetState = TargetNone
			}
		}

		// If nearby corridor is not valid, replan.
		if !ag.corridor.IsValid(checkLookAhead, c.navquery, filter) {
			// Fix current path.
			ag.corridor.TrimInvalidPath(agentRef, agentPos, c.navquery, filter)
			ag.boundary.Reset()
			replan = true
		}

		// If the end of the path is near and it is not the requested
		// location, replan.
		if ag.targetState == TargetValid {
			if ag.targetReplanTime > targetReplanDelay &&
				len(ag.corridor.Path()) < checkLookAhead &&
				ag.corridor.LastPoly() != ag.targetRef {
				replan = true
			}
		}

		// Try to replan path to goal.
		if replan && ag.targetState != TargetNone {
			c.requestMoveTargetReplan(ag, ag.targetRef, ag.targetPos)
		}
	}
}

// updateMoveRequest plans the corridors of the agents with a pending
// request.
func (c *Crowd) updateMoveRequest(agents []*Agent) {
	for _, ag := range agents {
		if ag.state == AgentStateInvalid || ag.targetState != TargetRequesting {
			continue
		}
		filter := c.filter(ag)
		start := ag.corridor.FirstPoly()

		path, status, err := c.navquery.FindPath(start, ag.targetRef, ag.npos, ag.targetPos, filter, maxPathResult)
		if err != nil || len(path) == 0 {
			ag.targetState = TargetFailed
			ag.targetReplanTime = 0
			c.log.Debug("agent path request failed", zap.Int("agent", ag.idx), zap.Error(err))
			continue
		}

		targetPos := ag.targetPos
		partial := status.Partial()
		if last := path[len(path)-1]; last != ag.targetRef {
			// Partial path, constrain target position inside the last
			// polygon.
			nearest, _, err := c.navquery.ClosestPointOnPoly(last, targetPos)
			if err != nil {
				ag.targetState = TargetFailed
				ag.targetReplanTime = 0
				continue
			}
			targetPos = nearest
			partial = true
		}

		ag.corridor.SetCorridor(targetPos, path)
		ag.boundary.Reset()
		ag.partial = partial
		ag.arrived = false
		ag.targetReplan = false
		ag.targetState = TargetValid
		ag.targetReplanTime = 0
	}
}

func (c *Crowd) updateTopologyOptimization(agents []*Agent, dt float32) {
	var queue []*Agent
	for _, ag := range agents {
		if ag.state != AgentStateWalking {
			continue
		}
		if ag.targetState == TargetNone || ag.targetState == TargetVelocity {
			continue
		}
		if !ag.params.OptimizeTopo {
			continue
		}
		ag.topologyOptTime += dt
		if ag.topologyOptTime >= optTimeThreshold {
			queue = append(queue, ag)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].topologyOptTime > queue[j].topologyOptTime
	})
	for i := 0; i < len(queue) && i < optMaxAgents; i++ {
		ag := queue[i]
		ag.corridor.OptimizePathTopology(c.navquery, c.filter(ag))
		ag.topologyOptTime = 0
	}
}

// getNeighbours appends to result the agents closest to pos, at most
// MaxNeighbours, sorted by distance.
func (c *Crowd) getNeighbours(pos mgl32.Vec3, height, queryRange float32, skip *Agent, result []neighbour) []neighbour {
	ids := c.grid.QueryItems(pos[0]-queryRange, pos[2]-queryRange, pos[0]+queryRange, pos[2]+queryRange, maxNeighbourIDs)
	for _, id := range ids {
		ag := &c.agents[id]
		if ag == skip || !ag.active {
			continue
		}
		// Check for overlap.
		diff := pos.Sub(ag.npos)
		if absf(diff[1]) >= (height+ag.params.Height)/2 {
			continue
		}
		diff[1] = 0
		distSqr := diff.Dot(diff)
		if distSqr > sqr(queryRange) {
			continue
		}
		result = addNeighbour(int(id), distSqr, result)
	}
	return result
}

func addNeighbour(idx int, dist float32, neis []neighbour) []neighbour {
	n := len(neis)
	if n > 0 && dist >= neis[n-1].dist {
		if n >= MaxNeighbours {
			return neis
		}
		return append(neis, neighbour{idx: idx, dist: dist})
	}
	i := 0
	for i < n && dist > neis[i].dist {
		i++
	}
	if n < MaxNeighbours {
		neis = append(neis, neighbour{})
	}
	copy(neis[i+1:], neis[i:])
	neis[i] = neighbour{idx: idx, dist: dist}
	return neis
}

// overEnd reports whether the agent is within its radius of the last
// corner of its corridor.
func (c *Crowd) overEnd(ag *Agent) bool {
	n := len(ag.corners)
	if n == 0 {
		return vdist2D(ag.npos, ag.corridor.Target()) <= ag.params.Radius
	}
	last := ag.corners[n-1]
	if last.Flags&detour.StraightPathEnd == 0 {
		return false
	}
	return vdist2D(ag.npos, last.Pos) <= ag.params.Radius
}

func calcSmoothSteerDirection(ag *Agent) mgl32.Vec3 {
	if len(ag.corners) == 0 {
		return mgl32.Vec3{}
	}
	ip0 := 0
	ip1 := mini(1, len(ag.corners)-1)
	dir0 := ag.corners[ip0].Pos.Sub(ag.npos)
	dir1 := ag.corners[ip1].Pos.Sub(ag.npos)
	dir0[1] = 0
	dir1[1] = 0

	len0 := dir0.Len()
	len1 := dir1.Len()
	if len1 > 0.001 {
		dir1 = dir1.Mul(1 / len1)
	}
	dir := mgl32.Vec3{
		dir0[0] - dir1[0]*len0*0.5,
		0,
		dir0[2] - dir1[2]*len0*0.5,
	}
	return vnormalize(dir)
}

func calcStraightSteerDirection(ag *Agent) mgl32.Vec3 {
	if len(ag.corners) == 0 {
		return mgl32.Vec3{}
	}
	dir := ag.corners[0].Pos.Sub(ag.npos)
	dir[1] = 0
	return vnormalize(dir)
}

func getDistanceToGoal(ag *Agent, queryRange float32) float32 {
	n := len(ag.corners)
	if n == 0 {
		return queryRange
	}
	if ag.corners[n-1].Flags&detour.StraightPathEnd != 0 {
		return minf(vdist2D(ag.npos, ag.corners[n-1].Pos), queryRange)
	}
	return queryRange
}

func integrate(ag *Agent, dt float32) {
	// Fake dynamic constraint.
	maxDelta := ag.params.MaxAcceleration * dt
	dv := ag.nvel.Sub(ag.vel)
	if ds := dv.Len(); ds > maxDelta {
		dv = dv.Mul(maxDelta / ds)
	}
	ag.vel = ag.vel.Add(dv)
	if speed := ag.vel.Len(); speed > ag.params.MaxSpeed && speed > 0 {
		ag.vel = ag.vel.Mul(ag.params.MaxSpeed / speed)
	}

	// Integrate
	if ag.vel.Len() > 0.0001 {
		ag.npos = ag.npos.Add(ag.vel.Mul(dt))
	} else {
		ag.vel = mgl32.Vec3{}
	}
}
