package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gamemachine/ainav/internal/config"
	"github.com/gamemachine/ainav/internal/tilecache"
	"github.com/gamemachine/ainav/navigation"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func PathCmd() *cobra.Command {
	var configFile, navsetFile, cacheDir, from, to string
	var maxPoints int
	c := &cobra.Command{
		Use:   "path",
		Short: "print the straight path between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			src, err := parseVec3(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			dst, err := parseVec3(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			mesh, err := loadMesh(cfg, log, navsetFile, cacheDir)
			if err != nil {
				return err
			}
			defer mesh.Close()
			q, err := mesh.NewQuery(cfg.Query.MaxNodes)
			if err != nil {
				return err
			}

			buf := make([]mgl32.Vec3, maxPoints)
			n, ok := q.FindStraightPath(navigation.PathfindQuery{
				Source:                src,
				Target:                dst,
				FindNearestPolyExtent: mgl32.Vec3(cfg.Query.Extents),
			}, buf)
			if !ok {
				return fmt.Errorf("no path from %v to %v", src, dst)
			}
			out := cmd.OutOrStdout()
			for i, p := range buf[:n] {
				fmt.Fprintf(out, "%d\t%.3f\t%.3f\t%.3f\n", i, p[0], p[1], p[2])
			}
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (toml or yaml)")
	c.Flags().StringVar(&navsetFile, "navset", "", "navset file")
	c.Flags().StringVar(&cacheDir, "cache", "", "badger tile cache to load instead of a navset")
	c.Flags().StringVar(&from, "from", "", "start point x,y,z")
	c.Flags().StringVar(&to, "to", "", "end point x,y,z")
	c.Flags().IntVar(&maxPoints, "max-points", 256, "maximum waypoints")
	c.MarkFlagRequired("from")
	c.MarkFlagRequired("to")
	return c
}

func parseVec3(s string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("want x,y,z, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

// loadMesh reads a navset file, or every tile of a tile cache when no
// navset is given.
func loadMesh(cfg *config.Config, log *zap.Logger, navsetFile, cacheDir string) (*navigation.Mesh, error) {
	if navsetFile != "" {
		mesh, failed, err := navigation.LoadNavSet(navsetFile, log)
		if err != nil {
			return nil, err
		}
		if failed > 0 {
			log.Warn("tiles failed to load", zap.String("navset", navsetFile), zap.Int("failed", failed))
		}
		return mesh, nil
	}
	if cacheDir == "" {
		cacheDir = cfg.Cache.Dir
	}
	if cacheDir == "" {
		return nil, fmt.Errorf("need --navset or --cache")
	}
	cache, err := tilecache.Open(cacheDir, log)
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	coords, err := cache.Tiles()
	if err != nil {
		return nil, err
	}
	mesh, err := navigation.NewMesh(cfg.Build.TileWidth(), log)
	if err != nil {
		return nil, err
	}
	for _, tc := range coords {
		blob, err := cache.Get(tc.X, tc.Y)
		if err != nil {
			mesh.Close()
			return nil, err
		}
		if !mesh.AddTile(blob) {
			log.Warn("cached tile rejected", zap.Int32("x", tc.X), zap.Int32("y", tc.Y))
		}
	}
	return mesh, nil
}
