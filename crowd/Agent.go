package crowd

import (
	"github.com/gamemachine/ainav/detour"

	"github.com/go-gl/mathgl/mgl32"
)

// AgentState is the placement state of an agent.
type AgentState uint8

const (
	// AgentStateInvalid means the agent is not on the navmesh.
	AgentStateInvalid AgentState = iota
	// AgentStateWalking means the agent moves along its corridor.
	AgentStateWalking
)

// TargetState is the state of an agent's move request.
type TargetState uint8

const (
	TargetNone TargetState = iota
	TargetFailed
	TargetValid
	TargetRequesting
	TargetVelocity
)

func (s TargetState) String() string {
	switch s {
	case TargetNone:
		return "none"
	case TargetFailed:
		return "failed"
	case TargetValid:
		return "valid"
	case TargetRequesting:
		return "requesting"
	case TargetVelocity:
		return "velocity"
	}
	return "unknown"
}

type neighbour struct {
	idx  int
	dist float32
}

// Agent is one slot of the crowd pool.
type Agent struct {
	idx     int
	active  bool
	state   AgentState
	partial bool
	arrived bool

	corridor        *PathCorridor
	boundary        *LocalBoundary
	topologyOptTime float32

	neis    []neighbour
	corners []detour.StraightPathItem

	desiredSpeed float32
	npos         mgl32.Vec3 // current position
	disp         mgl32.Vec3 // collision displacement of this tick
	dvel         mgl32.Vec3 // desired velocity
	nvel         mgl32.Vec3 // velocity after avoidance
	vel          mgl32.Vec3 // actual velocity

	params AgentParams

	targetState      TargetState
	targetRef        detour.PolyRef
	targetPos        mgl32.Vec3 // target, or the velocity in TargetVelocity
	targetReplan     bool
	targetReplanTime float32
}

func (a *Agent) Active() bool { return a.active }

func (a *Agent) State() AgentState { return a.state }

// Partial reports whether the current corridor does not reach the target.
func (a *Agent) Partial() bool { return a.partial }

// Arrived reports whether the agent is within its radius of the end of
// its corridor.
func (a *Agent) Arrived() bool { return a.arrived }

func (a *Agent) Position() mgl32.Vec3 { return a.npos }

func (a *Agent) Velocity() mgl32.Vec3 { return a.vel }

func (a *Agent) DesiredVelocity() mgl32.Vec3 { return a.dvel }

func (a *Agent) DesiredSpeed() float32 { return a.desiredSpeed }

func (a *Agent) Params() AgentParams { return a.params }

func (a *Agent) TargetState() TargetState { return a.targetState }

func (a *Agent) TargetRef() detour.PolyRef { return a.targetRef }

func (a *Agent) TargetPos() mgl32.Vec3 { return a.targetPos }

func (a *Agent) Corridor() *PathCorridor { return a.corridor }

func (a *Agent) Boundary() *LocalBoundary { return a.boundary }

// Corners returns the steering corners found in the last update.
func (a *Agent) Corners() []detour.StraightPathItem { return a.corners }

// NeighbourCount returns the number of agents considered for steering.
func (a *Agent) NeighbourCount() int { return len(a.neis) }
