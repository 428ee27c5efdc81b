// Package cmd provides the CLI commands for the commission engine.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/config"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/logging"
	"go.uber.org/zap"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string
	planFile     string
	repsFile     string

	appConfig = config.Default()
	logger    = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "commission",
	Short: "Calculate and compare sales commission payouts",
	Long: `commission runs the commission engine against plan and representative
files without a server.

Plans use the same JSON as the dashboard API. Representatives are a JSON
array of calculation contexts. Without --plan or --reps the built-in
FY25 field sales sample is used.

Examples:
  commission calculate --plan plan.json --reps reps.json
  commission validate plan.json
  commission compare --scenarios scenarios.json --format json`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "output format (table, json)")

	// Add subcommands
	rootCmd.AddCommand(calculateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appConfig = cfg

	// Logs go to stderr so table and JSON output stay clean
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	if verbose {
		logCfg.Level = "debug"
	} else if cfgFile == "" {
		logCfg.Level = "warn"
	}
	l, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l

	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", outputFormat)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "commission version 0.1.0")
	},
}

// =============================================================================
// INPUT HELPERS
// =============================================================================

func addInputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&planFile, "plan", "p", "", "plan JSON file (default: built-in sample plan)")
	c.Flags().StringVarP(&repsFile, "reps", "r", "", "representatives JSON file (default: built-in sample reps)")
}

func newCalculator() *compensation.Calculator {
	calc := compensation.NewCalculator(logger.Named("engine"))
	calc.Workers = appConfig.Engine.Workers
	return calc
}

// loadPlan reads a plan file, or the sample plan when path is empty.
func loadPlan(path string) (factory.PlanJSON, compensation.Configuration, error) {
	raw := []byte(factory.SamplePlanJSON())
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return factory.PlanJSON{}, compensation.Configuration{}, fmt.Errorf("read plan: %w", err)
		}
		raw = b
	}

	f := factory.NewPlanFactory()
	pj, err := f.Decode(raw)
	if err != nil {
		return factory.PlanJSON{}, compensation.Configuration{}, err
	}
	if pj.Settings == nil {
		spif, gap := appConfig.Engine.SPIFRate, appConfig.Engine.MinTierGap
		pj.Settings = &factory.SettingsJSON{SPIFRate: &spif, FiscalYearStartMonth: appConfig.Engine.FiscalYearStartMonth, MinTierGap: &gap}
	}
	cfg, err := f.FromJSON(pj)
	return pj, cfg, err
}

// loadReps reads a representatives file, or the sample reps when path is empty.
func loadReps(path string) ([]compensation.Context, error) {
	if path == "" {
		return factory.SampleRepresentatives(), nil
	}
	var reps []compensation.Context
	if err := readJSONFile(path, &reps); err != nil {
		return nil, fmt.Errorf("read representatives: %w", err)
	}
	return reps, nil
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
