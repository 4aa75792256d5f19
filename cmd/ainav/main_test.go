package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
}

func TestParseVec3(t *testing.T) {
	tests := []struct {
		in   string
		want mgl32.Vec3
		ok   bool
	}{
		{"1,2,3", mgl32.Vec3{1, 2, 3}, true},
		{" 1.5, -2 ,0", mgl32.Vec3{1.5, -2, 0}, true},
		{"1,2", mgl32.Vec3{}, false},
		{"1,b,3", mgl32.Vec3{}, false},
	}
	for _, tt := range tests {
		got, err := parseVec3(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseVec3(%q) error %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseVec3(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

const floorObj = `# 30 x 30 floor
v 0 0 0
v 0 0 30
v 30 0 30
v 30 0 0
f 1 2 3
f 1 3 4
`

func TestBuildPathCrowd(t *testing.T) {
	dir := t.TempDir()
	objFile := filepath.Join(dir, "floor.obj")
	checkt(t, os.WriteFile(objFile, []byte(floorObj), 0o644))
	navset := filepath.Join(dir, "floor.navset")
	cacheDir := filepath.Join(dir, "cache")

	build := BuildCmd()
	build.SetArgs([]string{"--obj", objFile, "--out", navset, "--cache", cacheDir})
	checkt(t, build.Execute())
	if _, err := os.Stat(navset); err != nil {
		t.Fatalf("navset not written: %v", err)
	}

	for _, src := range [][]string{{"--navset", navset}, {"--cache", cacheDir}} {
		var out bytes.Buffer
		path := PathCmd()
		path.SetOut(&out)
		path.SetArgs(append(src, "--from", "2,0,2", "--to", "5,0,6"))
		checkt(t, path.Execute())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("%v: want 2 waypoints, got %q", src, out.String())
		}
	}

	var out bytes.Buffer
	crowd := CrowdCmd()
	crowd.SetOut(&out)
	crowd.SetArgs([]string{"--navset", navset, "--agents", "4", "--ticks", "5"})
	checkt(t, crowd.Execute())
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 4 {
		t.Fatalf("want 4 agents, got %q", out.String())
	}
}

func TestPathNeedsMesh(t *testing.T) {
	path := PathCmd()
	path.SetOut(&bytes.Buffer{})
	path.SetErr(&bytes.Buffer{})
	path.SetArgs([]string{"--from", "0,0,0", "--to", "1,0,1"})
	if err := path.Execute(); err == nil {
		t.Fatal("want an error without --navset or --cache")
	}
}
