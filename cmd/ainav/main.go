package main

import (
	"fmt"
	"os"

	"github.com/gamemachine/ainav/internal/config"
	"github.com/gamemachine/ainav/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var VERSION = "UNKNOWN"

func main() {
	root := &cobra.Command{
		Use:          "ainav",
		Short:        "navmesh builder, path queries and crowd simulation",
		Version:      VERSION,
		SilenceUsage: true,
	}
	root.AddCommand(BuildCmd(), PathCmd(), CrowdCmd())
	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup loads the config file, or the defaults when configFile is empty,
// and builds the logger it describes.
func setup(configFile string) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, nil, err
		}
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
