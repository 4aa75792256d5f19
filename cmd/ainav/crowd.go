package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/gamemachine/ainav/internal/metrics"
	"github.com/gamemachine/ainav/navigation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func CrowdCmd() *cobra.Command {
	var configFile, navsetFile, cacheDir, metricsAddr string
	var agents, ticks int
	var dt float32
	var seed int64
	c := &cobra.Command{
		Use:   "crowd",
		Short: "simulate agents walking to random targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.ListenAddress
			}
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("metrics server", zap.Error(err))
					}
				}()
				defer srv.Close()
				log.Info("serving metrics", zap.String("addr", metricsAddr))
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
			cr, err := mesh.NewCrowd(cfg.Crowd.MaxAgents, cfg.Crowd.MaxAgentRadius)
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(seed))
			params := cfg.Agent
			for i := 0; i < agents; i++ {
				pos, ok := q.GetRandomPosition(rng)
				if !ok {
					return fmt.Errorf("navmesh has no walkable polygons")
				}
				idx := cr.AddAgent(pos, &params)
				if idx < 0 {
					log.Warn("agent not added", zap.Int("agent", i))
					continue
				}
				if target, ok := q.GetRandomPosition(rng); ok && !cr.RequestMove(idx, target) {
					log.Warn("move request rejected", zap.Int("agent", idx))
				}
			}

			for t := 0; t < ticks; t++ {
				cr.Update(dt)
			}

			buf := make([]navigation.AgentInfo, cr.AgentCount())
			n := cr.GetActiveAgents(buf)
			out := cmd.OutOrStdout()
			for _, a := range buf[:n] {
				fmt.Fprintf(out, "%d\t%.3f\t%.3f\t%.3f\tpartial=%v\n",
					a.Index, a.Position[0], a.Position[1], a.Position[2], a.Partial)
			}
			return nil
		},
	}
	c.Flags().StringVar(&configFile, "config", "", "config file (toml or yaml)")
	c.Flags().StringVar(&navsetFile, "navset", "", "navset file")
	c.Flags().StringVar(&cacheDir, "cache", "", "badger tile cache to load instead of a navset")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address")
	c.Flags().IntVar(&agents, "agents", 16, "number of agents")
	c.Flags().IntVar(&ticks, "ticks", 100, "number of updates")
	c.Flags().Float32Var(&dt, "dt", 0.1, "seconds per update")
	c.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return c
}
