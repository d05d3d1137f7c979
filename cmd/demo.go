package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gatealloc/core/engine"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/store"
	"github.com/kilianp07/gatealloc/pkg/export"
	"github.com/kilianp07/gatealloc/qa/scenarios"
)

var (
	demoCheck  bool
	demoExport string
)

var demoCmd = &cobra.Command{
	Use:   "demo [scenario.yaml]",
	Short: "Replay a scenario (default: built-in LHR morning) and print the outcome",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoCheck, "check", false, "fail when the outcome differs from the scenario expectations")
	demoCmd.Flags().StringVar(&demoExport, "export", "", "write the final assignments to a .csv or .json file")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	name := scenarios.BuiltinLHR
	if len(args) == 1 {
		name = args[0]
	}
	sc, err := scenarios.Load(name)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	eng := engine.New(store.New(0))
	defer eng.Close()

	out := cmd.OutOrStdout()
	rep, err := scenarios.Run(eng, sc, out)
	if err != nil {
		return err
	}
	if demoExport != "" {
		if err := exportAssignments(demoExport, rep.Final); err != nil {
			return err
		}
	}
	if !demoCheck || sc.Expected == nil {
		return nil
	}
	if err := rep.Check(*sc.Expected); err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	_, err = fmt.Fprintf(out, "scenario %s matches expectations\n", sc.Name)
	return err
}

func exportAssignments(path string, assignments []model.GateAssignment) error {
	write := export.WriteJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".csv":
		write = export.WriteCSV
	default:
		return fmt.Errorf("export %s: extension must be .csv or .json", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := write(f, assignments); err != nil {
		_ = f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}
