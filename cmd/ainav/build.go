package main

import (
	"fmt"

	"github.com/gamemachine/ainav/internal/tilecache"
	"github.com/gamemachine/ainav/navigation"
	"github.com/gamemachine/ainav/recast"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func BuildCmd() *cobra.Command {
	var configFile, objFile, outFile, cacheDir string
	c := &cobra.Command{
		Use:   "build",
		Short: "build a navmesh set from an obj file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			geom, err := recast.LoadObjFile(objFile)
			if err != nil {
				return err
			}
			mesh, err := navigation.NewMesh(cfg.Build.TileWidth(), log)
			if err != nil {
				return err
			}
			defer mesh.Close()

			if cacheDir == "" {
				cacheDir = cfg.Cache.Dir
			}
			var cache *tilecache.Cache
			if cacheDir != "" {
				if cache, err = tilecache.Open(cacheDir, log); err != nil {
					return err
				}
				defer cache.Close()
			}

			b := navigation.NewBuilder(log)
			b.SetSettings(cfg.Build)
			var cacheErr error
			built, failed := b.BuildTiles(geom, func(tr recast.TileResult) bool {
				if !mesh.AddTile(tr.NavmeshData) {
					log.Warn("tile rejected", zap.Int("x", tr.X), zap.Int("y", tr.Y))
				}
				if cache != nil {
					if cacheErr = cache.Put(int32(tr.X), int32(tr.Y), tr.NavmeshData); cacheErr != nil {
						return false
					}
				}
				return true
			})
			if cacheErr != nil {
				return cacheErr
			}
			if built == 0 {
				return fmt.Errorf("%s: no tiles built, %d failed", objFile, failed)
			}
			if err := navigation.SaveNavSet(outFile, mesh); err != nil {
				return err
			}
			log.Info("navset written",
				zap.String("path", outFile), zap.Int("tiles", mesh.TileCount()), zap.Int("failed", failed))
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (toml or yaml)")
	c.Flags().StringVar(&objFile, "obj", "", "input obj file")
	c.Flags().StringVar(&outFile, "out", "navmesh.navset", "output navset file")
	c.Flags().StringVar(&cacheDir, "cache", "", "badger directory to store tile blobs in")
	c.MarkFlagRequired("obj")
	return c
}
