package crowd

import (
	"fmt"

	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// MaxNeighbours is the number of agents each agent steers around.
	MaxNeighbours = 6
	// MaxCorners is the number of path corners looked ahead.
	MaxCorners = 4
	// MaxObstacleAvoidanceParams is the number of avoidance presets slots.
	MaxObstacleAvoidanceParams = 8
	// MaxQueryFilterType is the number of query filters.
	MaxQueryFilterType = 16

	maxPathResult   = 256
	maxQueryNodes   = 4096
	maxGridAgents   = 0xffff / 4
	maxNeighbourIDs = 32
)

// Crowd moves a fixed pool of agents over a navmesh. Agents follow path
// corridors and steer around each other and the walls.
type Crowd struct {
	agents      []Agent
	activeCount int

	maxAgentRadius            float32
	agentPlacementHalfExtents mgl32.Vec3

	grid           *ProximityGrid
	navquery       *detour.NavMeshQuery
	obstacleQuery  *ObstacleAvoidanceQuery
	obstacleParams [MaxObstacleAvoidanceParams]ObstacleAvoidanceParams
	filters        [MaxQueryFilterType]*detour.QueryFilter

	velocitySampleCount int
	active              []*Agent

	log *zap.Logger
}

// NewCrowd returns a crowd for up to maxAgents agents no wider than
// maxAgentRadius.
func NewCrowd(maxAgents int, maxAgentRadius float32, nav *detour.NavMesh) (*Crowd, error) {
	if nav == nil {
		return nil, fmt.Errorf("crowd: nil navmesh: %w", detour.ErrInvalidParam)
	}
	if maxAgents <= 0 || maxAgents > maxGridAgents {
		return nil, fmt.Errorf("crowd: max agents %d: %w", maxAgents, detour.ErrInvalidParam)
	}
	if maxAgentRadius <= 0 {
		return nil, fmt.Errorf("crowd: max agent radius %v: %w", maxAgentRadius, detour.ErrInvalidParam)
	}
	q, err := detour.NewNavMeshQuery(nav, maxQueryNodes)
	if err != nil {
		return nil, fmt.Errorf("crowd: %w", err)
	}

	c := &Crowd{
		agents:         make([]Agent, maxAgents),
		maxAgentRadius: maxAgentRadius,
		grid:           NewProximityGrid(maxAgents*4, maxAgentRadius*3),
		navquery:       q,
		obstacleQuery:  NewObstacleAvoidanceQuery(MaxNeighbours, 8),
		active:         make([]*Agent, 0, maxAgents),
		log:            zap.NewNop(),
	}
	// Larger than agent radius because it is also used for agent recovery.
	c.agentPlacementHalfExtents = mgl32.Vec3{maxAgentRadius * 2, maxAgentRadius * 1.5, maxAgentRadius * 2}
	for i := range c.filters {
		c.filters[i] = detour.NewQueryFilter()
	}
	for i := range c.obstacleParams {
		c.obstacleParams[i] = DefaultObstacleAvoidanceParams()
	}
	for i, p := range ObstacleAvoidancePresets() {
		c.obstacleParams[i] = p
	}
	for i := range c.agents {
		c.agents[i].idx = i
		c.agents[i].corridor = NewPathCorridor(maxPathResult)
		c.agents[i].boundary = NewLocalBoundary()
		c.agents[i].neis = make([]neighbour, 0, MaxNeighbours)
	}
	return c, nil
}

// SetLogger sets the logger used for agent and request events.
func (c *Crowd) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	c.log = log
}

// MaxAgents returns the pool capacity.
func (c *Crowd) MaxAgents() int { return len(c.agents) }

// AgentCount returns the number of active agents.
func (c *Crowd) AgentCount() int { return c.activeCount }

func (c *Crowd) NavMeshQuery() *detour.NavMeshQuery { return c.navquery }

// QueryHalfExtents returns the search box used to place agents and
// targets on the navmesh.
func (c *Crowd) QueryHalfExtents() mgl32.Vec3 { return c.agentPlacementHalfExtents }

// Filter returns query filter i. The filter may be edited in place.
func (c *Crowd) Filter(i int) *detour.QueryFilter {
	if i < 0 || i >= MaxQueryFilterType {
		return nil
	}
	return c.filters[i]
}

func (c *Crowd) ObstacleAvoidanceParams(idx int) (ObstacleAvoidanceParams, bool) {
	if idx < 0 || idx >= MaxObstacleAvoidanceParams {
		return ObstacleAvoidanceParams{}, false
	}
	return c.obstacleParams[idx], true
}

func (c *Crowd) SetObstacleAvoidanceParams(idx int, params ObstacleAvoidanceParams) {
	if idx >= 0 && idx < MaxObstacleAvoidanceParams {
		c.obstacleParams[idx] = params
	}
}

// VelocitySampleCount returns the avoidance samples taken in the last
// update.
func (c *Crowd) VelocitySampleCount() int { return c.velocitySampleCount }

// Grid returns the proximity grid of the last update.
func (c *Crowd) Grid() *ProximityGrid { return c.grid }

// GetAgent returns the agent in slot idx, nil when idx is out of range.
// Inactive slots are returned too.
func (c *Crowd) GetAgent(idx int) *Agent {
	if idx < 0 || idx >= len(c.agents) {
		return nil
	}
	return &c.agents[idx]
}

// Index returns the slot of the agent in its crowd.
func (a *Agent) Index() int { return a.idx }

// GetActiveAgents writes the active agents into buf and returns how many
// were written.
func (c *Crowd) GetActiveAgents(buf []*Agent) int {
	n := 0
	for i := range c.agents {
		if n >= len(buf) {
			break
		}
		if c.agents[i].active {
			buf[n] = &c.agents[i]
			n++
		}
	}
	return n
}

func (c *Crowd) filter(ag *Agent) *detour.QueryFilter {
	return c.filters[int(ag.params.QueryFilterType)%MaxQueryFilterType]
}

// UpdateAgentParameters replaces the parameters of agent idx.
func (c *Crowd) UpdateAgentParameters(idx int, params *AgentParams) {
	if idx < 0 || idx >= len(c.agents) || params == nil {
		return
	}
	p := *params
	if int(p.ObstacleAvoidanceType) >= MaxObstacleAvoidanceParams {
		p.ObstacleAvoidanceType = MaxObstacleAvoidanceParams - 1
	}
	if int(p.QueryFilterType) >= MaxQueryFilterType {
		p.QueryFilterType = 0
	}
	c.agents[idx].params = p
}

// AddAgent places a new agent on the navmesh polygon nearest to pos and
// returns its slot index, or -1 when the pool is full. An agent with no
// polygon within the placement extents still takes the slot but stays
// AgentStateInvalid at pos and never moves.
func (c *Crowd) AddAgent(pos mgl32.Vec3, params *AgentParams) int {
	if params == nil {
		return -1
	}
	// Find empty slot.
	idx := -1
	for i := range c.agents {
		if !c.agents[i].active {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.log.Debug("crowd full", zap.Int("max_agents", len(c.agents)))
		return -1
	}

	ag := &c.agents[idx]
	c.UpdateAgentParameters(idx, params)

	// Find nearest position on navmesh and place the agent there.
	state := AgentStateWalking
	ref, nearest, err := c.navquery.FindNearestPoly(pos, c.agentPlacementHalfExtents, c.filter(ag))
	if err != nil {
		c.log.Debug("agent placed off the navmesh", zap.Float32s("pos", pos[:]), zap.Error(err))
		ref, nearest = 0, pos
		state = AgentStateInvalid
	}

	ag.corridor.Reset(ref, nearest)
	ag.boundary.Reset()
	ag.partial = false
	ag.arrived = false
	ag.topologyOptTime = 0
	ag.targetReplanTime = 0
	ag.neis = ag.neis[:0]
	ag.corners = nil
	ag.dvel = mgl32.Vec3{}
	ag.nvel = mgl32.Vec3{}
	ag.vel = mgl32.Vec3{}
	ag.disp = mgl32.Vec3{}
	ag.npos = nearest
	ag.desiredSpeed = 0
	ag.state = state
	ag.targetState = TargetNone
	ag.targetRef = 0
	ag.targetPos = mgl32.Vec3{}
	ag.targetReplan = false
	ag.active = true
	c.activeCount++
	return idx
}

// RemoveAgent frees slot idx. Removing an inactive slot does nothing.
func (c *Crowd) RemoveAgent(idx int) {
	if idx < 0 || idx >= len(c.agents) {
		return
	}
	ag := &c.agents[idx]
	if !ag.active {
		return
	}
	ag.active = false
	ag.state = AgentStateInvalid
	ag.targetState = TargetNone
	c.activeCount--
}

// RequestMoveTarget asks agent idx to move to pos inside polygon ref. The
// path is planned on the next update.
func (c *Crowd) RequestMoveTarget(idx int, ref detour.PolyRef, pos mgl32.Vec3) bool {
	if idx < 0 || idx >= len(c.agents) || ref == 0 {
		return false
	}
	ag := &c.agents[idx]
	if !ag.active {
		return false
	}
	ag.targetRef = ref
	ag.targetPos = pos
	ag.targetReplan = false
	ag.arrived = false
	ag.targetState = TargetRequesting
	return true
}

// RequestMove resolves pos to the nearest polygon with filter 0 and
// requests a move there. It fails without touching the agent when no
// polygon is found or the agent is inactive.
func (c *Crowd) RequestMove(idx int, pos mgl32.Vec3) bool {
	ref, nearest, err := c.navquery.FindNearestPoly(pos, c.agentPlacementHalfExtents, c.filters[0])
	if err != nil {
		return false
	}
	ag := c.GetAgent(idx)
	if ag == nil || !ag.active {
		return false
	}
	return c.RequestMoveTarget(idx, ref, nearest)
}

func (c *Crowd) requestMoveTargetReplan(ag *Agent, ref detour.PolyRef, pos mgl32.Vec3) {
	ag.targetRef = ref
	ag.targetPos = pos
	ag.targetReplan = true
	ag.targetState = TargetRequesting
}

// RequestMoveVelocity drives agent idx by velocity instead of a path.
func (c *Crowd) RequestMoveVelocity(idx int, vel mgl32.Vec3) bool {
	if idx < 0 || idx >= len(c.agents) || !c.agents[idx].active {
		return false
	}
	ag := &c.agents[idx]
	ag.targetRef = 0
	ag.targetPos = vel
	ag.targetReplan = false
	ag.arrived = false
	ag.targetState = TargetVelocity
	return true
}

// ResetMoveTarget cancels the move request of agent idx.
func (c *Crowd) ResetMoveTarget(idx int) bool {
	if idx < 0 || idx >= len(c.agents) || !c.agents[idx].active {
		return false
	}
	ag := &c.agents[idx]
	ag.targetRef = 0
	ag.targetPos = mgl32.Vec3{}
	ag.dvel = mgl32.Vec3{}
	ag.targetReplan = false
	ag.arrived = false
	ag.targetState = TargetNone
	return true
}
