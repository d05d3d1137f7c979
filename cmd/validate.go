package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gatealloc/config"
	coremetrics "github.com/kilianp07/gatealloc/core/metrics"
	"github.com/kilianp07/gatealloc/qa/scenarios"
)

var validateScenario string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file and an optional scenario without starting anything",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateScenario, "scenario", "", "scenario file to validate (\"lhr\" for the built-in one)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	known := make(map[string]struct{})
	for _, t := range coremetrics.SinkTypes() {
		known[t] = struct{}{}
	}
	for _, s := range cfg.Metrics.Sinks {
		if _, ok := known[s.Type]; !ok {
			return fmt.Errorf("config: unknown metrics sink %q (known: %v)", s.Type, coremetrics.SinkTypes())
		}
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, "config OK"); err != nil {
		return err
	}

	name := validateScenario
	if name == "" {
		name = cfg.Seed.Scenario
	}
	if name == "" {
		return nil
	}
	sc, err := scenarios.Load(name)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	_, err = fmt.Fprintf(out, "scenario %s OK: %d gates, %d flights, %d disruptions\n",
		sc.Name, len(sc.Gates), len(sc.Flights), len(sc.Disruptions))
	return err
}
