package navigation

import (
	"fmt"
	"time"

	"github.com/gamemachine/ainav/crowd"
	"github.com/gamemachine/ainav/detour"
	"github.com/gamemachine/ainav/internal/metrics"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// AgentInfo is a snapshot of one agent.
type AgentInfo struct {
	Index        int
	Active       bool
	Partial      bool
	DesiredSpeed float32
	Position     mgl32.Vec3
	Velocity     mgl32.Vec3
}

// Crowd drives a crowd.Crowd on a Mesh and records update metrics.
type Crowd struct {
	c    *crowd.Crowd
	mesh *Mesh
	log  *zap.Logger

	scratch []*crowd.Agent
}

// NewCrowd creates a crowd of at most maxAgents agents no wider than
// maxAgentRadius.
func (m *Mesh) NewCrowd(maxAgents int, maxAgentRadius float32) (*Crowd, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("crowd on closed mesh: %w", detour.ErrInvalidParam)
	}
	c, err := crowd.NewCrowd(maxAgents, maxAgentRadius, m.nav)
	if err != nil {
		return nil, err
	}
	c.SetLogger(m.log)
	return &Crowd{c: c, mesh: m, log: m.log}, nil
}

// Crowd exposes the simulator.
func (c *Crowd) Crowd() *crowd.Crowd { return c.c }

// AddAgent places an agent at the navmesh point nearest pos and returns
// its index, or -1 when the crowd is full.
func (c *Crowd) AddAgent(pos mgl32.Vec3, params *crowd.AgentParams) int {
	return c.c.AddAgent(pos, params)
}

func (c *Crowd) RemoveAgent(idx int) { c.c.RemoveAgent(idx) }

func (c *Crowd) SetAgentParams(idx int, params *crowd.AgentParams) {
	c.c.UpdateAgentParameters(idx, params)
}

// GetAgentParams returns the parameters of agent idx.
func (c *Crowd) GetAgentParams(idx int) (crowd.AgentParams, bool) {
	ag := c.c.GetAgent(idx)
	if ag == nil {
		return crowd.AgentParams{}, false
	}
	return ag.Params(), true
}

// RequestMove sends agent idx towards the navmesh point nearest pos.
func (c *Crowd) RequestMove(idx int, pos mgl32.Vec3) bool {
	return c.c.RequestMove(idx, pos)
}

// AgentCount returns the number of active agents.
func (c *Crowd) AgentCount() int { return c.c.AgentCount() }

func agentInfo(ag *crowd.Agent) AgentInfo {
	return AgentInfo{
		Index:        ag.Index(),
		Active:       ag.Active(),
		Partial:      ag.Partial(),
		DesiredSpeed: ag.DesiredSpeed(),
		Position:     ag.Position(),
		Velocity:     ag.Velocity(),
	}
}

// GetAgent returns a snapshot of agent idx, active or not.
func (c *Crowd) GetAgent(idx int) (AgentInfo, bool) {
	ag := c.c.GetAgent(idx)
	if ag == nil {
		return AgentInfo{}, false
	}
	return agentInfo(ag), true
}

// GetActiveAgents fills buf with snapshots of the active agents and returns
// how many were written.
func (c *Crowd) GetActiveAgents(buf []AgentInfo) int {
	if cap(c.scratch) < len(buf) {
		c.scratch = make([]*crowd.Agent, len(buf))
	}
	agents := c.scratch[:len(buf)]
	n := c.c.GetActiveAgents(agents)
	for i := 0; i < n; i++ {
		buf[i] = agentInfo(agents[i])
		agents[i] = nil
	}
	return n
}

// Update advances the simulation by dt seconds. Crowds of a closed mesh
// no longer move.
func (c *Crowd) Update(dt float32) {
	if c.mesh.closed.Load() {
		c.log.Debug("crowd update on closed mesh")
		return
	}
	start := time.Now()
	c.c.Update(dt)
	metrics.ObserveCrowdUpdate(time.Since(start), c.c.AgentCount())
}
