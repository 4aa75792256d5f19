package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadToml(t *testing.T) {
	path := writeFile(t, "ainav.toml", `
[build]
cell_size = 0.25
tile_size = 32

[agent]
radius = 0.4
max_speed = 5.0
separation = false

[crowd]
max_agents = 16

[logging]
level = "debug"
format = "json"

[cache]
dir = "/tmp/tiles"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Build.CellSize != 0.25 || cfg.Build.TileSize != 32 {
		t.Errorf("build settings not read: %+v", cfg.Build)
	}
	// Untouched keys keep their defaults.
	if cfg.Build.CellHeight != 0.2 || cfg.Build.AgentMaxSlope != 45 {
		t.Errorf("build defaults lost: %+v", cfg.Build)
	}
	if cfg.Agent.Radius != 0.4 || cfg.Agent.MaxSpeed != 5 || cfg.Agent.Separation {
		t.Errorf("agent params not read: %+v", cfg.Agent)
	}
	if !cfg.Agent.ObstacleAvoidance || cfg.Agent.Height != 2 {
		t.Errorf("agent defaults lost: %+v", cfg.Agent)
	}
	if cfg.Crowd.MaxAgents != 16 || cfg.Crowd.MaxAgentRadius != 2 {
		t.Errorf("crowd config %+v", cfg.Crowd)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging config %+v", cfg.Logging)
	}
	if cfg.Cache.Dir != "/tmp/tiles" {
		t.Errorf("cache dir %q", cfg.Cache.Dir)
	}
}

func TestLoadYaml(t *testing.T) {
	path := writeFile(t, "ainav.yaml", `
build:
  agent_radius: 0.6
  bounding_box:
    min: [0, -1, 0]
    max: [10, 5, 10]
query:
  max_nodes: 512
metrics:
  listen_address: ":9100"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Build.AgentRadius != 0.6 {
		t.Errorf("agent radius %v", cfg.Build.AgentRadius)
	}
	if cfg.Build.BoundingBox.Max != [3]float32{10, 5, 10} {
		t.Errorf("bounding box %+v", cfg.Build.BoundingBox)
	}
	if cfg.Query.MaxNodes != 512 || cfg.Query.Extents != [3]float32{2, 4, 2} {
		t.Errorf("query config %+v", cfg.Query)
	}
	if cfg.Metrics.ListenAddress != ":9100" {
		t.Errorf("metrics address %q", cfg.Metrics.ListenAddress)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad toml", "a.toml", "[build\n", "parse config"},
		{"bad yaml", "a.yml", "build: [", "parse config"},
		{"zero nodes", "a.toml", "[query]\nmax_nodes = 0\n", "max_nodes"},
		{"no agents", "a.toml", "[crowd]\nmax_agents = 0\n", "max_agents"},
		{"agent too wide", "a.toml", "[agent]\nradius = 3.0\n", "max_agent_radius"},
		{"avoidance type", "a.toml", "[agent]\nobstacle_avoidance_type = 5\n", "obstacle_avoidance_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file loaded")
	}
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}
