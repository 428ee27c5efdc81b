// Package cmd - calculate command
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/display"
	"go.uber.org/zap"
)

var scenarioID string

// calculateCmd represents the calculate command
var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate payouts for every representative",
	Long: `Calculate the payout breakdown of each representative against a plan.

Representatives without an applicable tier are listed as failures; the
others are still calculated. With --scenario the named what-if scenario
is applied on top of the plan.

Examples:
  commission calculate
  commission calculate --plan plan.json --reps reps.json
  commission calculate --scenario q4-push --format json`,
	Args: cobra.NoArgs,
	RunE: runCalculate,
}

func init() {
	addInputFlags(calculateCmd)
	calculateCmd.Flags().StringVarP(&scenarioID, "scenario", "s", "", "apply a scenario by ID")
	calculateCmd.Flags().StringVar(&scenariosFile, "scenarios", "", "scenarios JSON file (default: built-in samples)")
}

// calculationOutput is the JSON output of calculate.
type calculationOutput struct {
	PlanID     string                         `json:"plan_id"`
	ScenarioID string                         `json:"scenario_id,omitempty"`
	Total      string                         `json:"total"`
	Breakdowns []compensation.PayoutBreakdown `json:"breakdowns"`
	Failures   []failureOutput                `json:"failures,omitempty"`
}

type failureOutput struct {
	RepID string `json:"rep_id"`
	Error string `json:"error"`
}

func runCalculate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pj, cfg, err := loadPlan(planFile)
	if err != nil {
		return err
	}
	reps, err := loadReps(repsFile)
	if err != nil {
		return err
	}

	calc := newCalculator()
	var results []compensation.BatchResult
	if scenarioID != "" {
		sc, err := findScenario(scenarioID)
		if err != nil {
			return err
		}
		res, err := calc.Simulate(ctx, cfg, reps, sc)
		if err != nil {
			return err
		}
		results = res.Rows
	} else {
		results, err = calc.CalculateAll(ctx, cfg, reps)
		if err != nil {
			return err
		}
	}

	run := compensation.NewPayoutRun("cli", compensation.PlanRecord{ID: pj.ID}, scenarioID, results, timeNow())
	logger.Debug("calculated batch",
		zap.Int("reps", run.RepCount),
		zap.Int("failed", run.FailedCount),
		zap.String("total", run.Total.String()),
	)

	out := calculationOutput{
		PlanID:     pj.ID,
		ScenarioID: scenarioID,
		Total:      run.Total.String(),
		Breakdowns: run.Breakdowns,
	}
	for _, r := range compensation.Failed(results) {
		out.Failures = append(out.Failures, failureOutput{RepID: r.RepID, Error: r.Err.Error()})
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printBreakdowns(cmd.OutOrStdout(), run, out.Failures)
}

func printBreakdowns(w io.Writer, run compensation.PayoutRun, failures []failureOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "REP\tTIER\tATTAINMENT\tBASE\tACCELERATORS\tRULES\tSPIF\tTOTAL\tEFF. RATE\t")
	for _, b := range run.Breakdowns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			b.RepID,
			b.AppliedTierName,
			display.Ratio(b.QuotaAttainment, 1),
			display.Currency(b.BaseCommission),
			display.Currency(b.Accelerators),
			display.Currency(b.RulesBonus),
			display.Currency(b.SPIFBonus),
			display.Currency(b.TotalCommission),
			display.Ratio(b.EffectiveRate, 2),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal payout: %s across %d representatives\n", display.Currency(run.Total), len(run.Breakdowns))
	for _, f := range failures {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.RepID, f.Error)
	}
	return nil
}
