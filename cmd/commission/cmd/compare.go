// Package cmd - compare command
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/display"
	"github.com/warp/commission-engine/factory"
)

var (
	scenariosFile string
	compareIDs    []string
)

// timeNow is swappable in tests.
var timeNow = func() time.Time { return time.Now().UTC() }

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare what-if scenarios against a baseline",
	Long: `Simulate each scenario against the plan and compare the totals.

The first scenario is the baseline. Without --ids every scenario in the
file is compared, in file order.

Examples:
  commission compare
  commission compare --scenarios scenarios.json --ids current,q4-push`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	addInputFlags(compareCmd)
	compareCmd.Flags().StringVar(&scenariosFile, "scenarios", "", "scenarios JSON file (default: built-in samples)")
	compareCmd.Flags().StringSliceVar(&compareIDs, "ids", nil, "scenario IDs to compare; the first is the baseline")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, cfg, err := loadPlan(planFile)
	if err != nil {
		return err
	}
	reps, err := loadReps(repsFile)
	if err != nil {
		return err
	}
	scenarios, err := selectScenarios(compareIDs)
	if err != nil {
		return err
	}
	if len(scenarios) < 2 {
		return fmt.Errorf("need at least two scenarios to compare, got %d", len(scenarios))
	}

	calc := newCalculator()
	snapshots := make([]compensation.Snapshot, 0, len(scenarios))
	for _, sc := range scenarios {
		res, err := calc.Simulate(ctx, cfg, reps, sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
		snapshots = append(snapshots, res.Snapshot)
	}

	cmp, err := compensation.CompareAll(snapshots)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), cmp)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Baseline: %s (%s, effective rate %s)\n\n",
		cmp.Baseline.Name, display.Currency(cmp.Baseline.Total), display.Ratio(cmp.Baseline.EffectiveRate, 2))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tTOTAL\tDELTA\tDELTA %\tRATE DELTA")
	for i, v := range cmp.Variances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.CandidateName,
			display.Currency(cmp.Candidates[i].Total),
			display.SignedCurrency(v.PayoutDelta),
			display.Percent(v.PayoutDeltaPercent, 2),
			display.Ratio(v.RateDelta, 2),
		)
	}
	return tw.Flush()
}

// loadScenarios reads the scenarios file, or the samples when none is set.
func loadScenarios() ([]compensation.Scenario, error) {
	if scenariosFile == "" {
		return factory.SampleScenarios(), nil
	}
	var scenarios []compensation.Scenario
	if err := readJSONFile(scenariosFile, &scenarios); err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	return scenarios, nil
}

// selectScenarios returns the scenarios named by ids in that order, or all.
func selectScenarios(ids []string) ([]compensation.Scenario, error) {
	all, err := loadScenarios()
	if err != nil || len(ids) == 0 {
		return all, err
	}
	out := make([]compensation.Scenario, 0, len(ids))
	for _, id := range ids {
		sc, err := lookupScenario(all, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func findScenario(id string) (compensation.Scenario, error) {
	all, err := loadScenarios()
	if err != nil {
		return compensation.Scenario{}, err
	}
	return lookupScenario(all, id)
}

func lookupScenario(all []compensation.Scenario, id string) (compensation.Scenario, error) {
	for _, sc := range all {
		if sc.ID == id {
			return sc, nil
		}
	}
	return compensation.Scenario{}, fmt.Errorf("scenario %s: %w", id, compensation.ErrNotFound)
}
