package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gatealloc/app"
	"github.com/kilianp07/gatealloc/config"
	"github.com/kilianp07/gatealloc/infra/logger"
)

var (
	cfgPath   string
	serveAddr string
	seedName  string
)

var rootCmd = &cobra.Command{
	Use:          "gatealloc",
	Short:        "Airport gate allocation and disruption service",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON); GA_ environment variables override it")
	rootCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address, overrides http.addr")
	rootCmd.Flags().StringVar(&seedName, "seed", "", "scenario seeded when no snapshot exists, overrides seed.scenario")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	if seedName != "" {
		cfg.Seed.Scenario = seedName
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
