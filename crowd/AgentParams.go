package crowd

// AgentParams configures one crowd agent.
type AgentParams struct {
	Radius          float32 `toml:"radius" yaml:"radius"`
	Height          float32 `toml:"height" yaml:"height"`
	MaxAcceleration float32 `toml:"max_acceleration" yaml:"max_acceleration"`
	MaxSpeed        float32 `toml:"max_speed" yaml:"max_speed"`

	// Neighbours and walls closer than this take part in steering.
	CollisionQueryRange float32 `toml:"collision_query_range" yaml:"collision_query_range"`
	// Look ahead of the visibility optimization.
	PathOptimizationRange float32 `toml:"path_optimization_range" yaml:"path_optimization_range"`
	SeparationWeight      float32 `toml:"separation_weight" yaml:"separation_weight"`

	AnticipateTurns   bool `toml:"anticipate_turns" yaml:"anticipate_turns"`
	OptimizeVis       bool `toml:"optimize_vis" yaml:"optimize_vis"`
	OptimizeTopo      bool `toml:"optimize_topo" yaml:"optimize_topo"`
	ObstacleAvoidance bool `toml:"obstacle_avoidance" yaml:"obstacle_avoidance"`
	Separation        bool `toml:"separation" yaml:"separation"`

	// Index of the avoidance preset, 0 low to 3 high.
	ObstacleAvoidanceType uint8 `toml:"obstacle_avoidance_type" yaml:"obstacle_avoidance_type"`
	QueryFilterType       uint8 `toml:"query_filter_type" yaml:"query_filter_type"`
}

// DefaultAgentParams returns a human sized agent with every behaviour
// enabled.
func DefaultAgentParams() AgentParams {
	const radius = 0.5
	return AgentParams{
		Radius:                radius,
		Height:                2.0,
		MaxAcceleration:       6.0,
		MaxSpeed:              3.0,
		CollisionQueryRange:   radius * 12,
		PathOptimizationRange: radius * 30,
		SeparationWeight:      2.0,
		AnticipateTurns:       true,
		OptimizeVis:           true,
		OptimizeTopo:          true,
		ObstacleAvoidance:     true,
		Separation:            true,
		ObstacleAvoidanceType: 3,
	}
}
