package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gamemachine/ainav/crowd"
	"github.com/gamemachine/ainav/recast"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Build   recast.BuildSettings `toml:"build" yaml:"build"`
	Agent   crowd.AgentParams    `toml:"agent" yaml:"agent"`
	Query   QueryConfig          `toml:"query" yaml:"query"`
	Crowd   CrowdConfig          `toml:"crowd" yaml:"crowd"`
	Logging LoggingConfig        `toml:"logging" yaml:"logging"`
	Metrics MetricsConfig        `toml:"metrics" yaml:"metrics"`
	Cache   CacheConfig          `toml:"cache" yaml:"cache"`
}

type QueryConfig struct {
	MaxNodes int        `toml:"max_nodes" yaml:"max_nodes"`
	Extents  [3]float32 `toml:"extents" yaml:"extents"` // half extents of nearest poly searches
}

type CrowdConfig struct {
	MaxAgents      int     `toml:"max_agents" yaml:"max_agents"`
	MaxAgentRadius float32 `toml:"max_agent_radius" yaml:"max_agent_radius"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	ListenAddress string `toml:"listen_address" yaml:"listen_address"` // empty disables /metrics
}

type CacheConfig struct {
	Dir string `toml:"dir" yaml:"dir"` // badger directory, empty disables the tile cache
}

// Load reads a toml or yaml file, picked by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the navmesh and crowd cannot start with.
// Build settings are checked by the builder itself.
func (c *Config) Validate() error {
	if c.Query.MaxNodes <= 0 || c.Query.MaxNodes > 65535 {
		return fmt.Errorf("query.max_nodes %d out of range", c.Query.MaxNodes)
	}
	if c.Crowd.MaxAgents <= 0 {
		return fmt.Errorf("crowd.max_agents must be positive")
	}
	if c.Crowd.MaxAgentRadius <= 0 {
		return fmt.Errorf("crowd.max_agent_radius must be positive")
	}
	if c.Agent.Radius > c.Crowd.MaxAgentRadius {
		return fmt.Errorf("agent.radius %v larger than crowd.max_agent_radius %v", c.Agent.Radius, c.Crowd.MaxAgentRadius)
	}
	if c.Agent.ObstacleAvoidanceType > 3 {
		return fmt.Errorf("agent.obstacle_avoidance_type %d out of range", c.Agent.ObstacleAvoidanceType)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Build: recast.DefaultBuildSettings(),
		Agent: crowd.DefaultAgentParams(),
		Query: QueryConfig{
			MaxNodes: 2048,
			Extents:  [3]float32{2, 4, 2},
		},
		Crowd: CrowdConfig{
			MaxAgents:      128,
			MaxAgentRadius: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
