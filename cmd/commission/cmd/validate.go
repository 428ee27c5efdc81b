// Package cmd - validate command
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

// errInvalidPlan is returned so the process exits non-zero; details are printed.
var errInvalidPlan = errors.New("plan is invalid")

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [plan.json]",
	Short: "Validate a plan file",
	Long: `Compile every rule and apply every tier and rate of a plan the way the
dashboard does, then report data quality warnings.

Exits non-zero when the plan cannot be loaded. Warnings alone do not fail.

Examples:
  commission validate plan.json
  commission validate --format json plan.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

type validationOutput struct {
	Valid    bool                   `json:"valid"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []compensation.Warning `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	out := validationOutput{Valid: true}
	_, cfg, err := loadPlan(path)
	if err != nil {
		out.Valid = false
		out.Errors = errorLines(err)
	} else {
		out.Warnings = cfg.Validate()
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		if out.Valid {
			fmt.Fprintln(w, "Plan is valid")
		} else {
			fmt.Fprintln(w, "Plan is invalid:")
		}
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warn := range out.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}

	if !out.Valid {
		return errInvalidPlan
	}
	return nil
}

// errorLines lists one line per failing rule field, or the error itself.
func errorLines(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, errorLines(e)...)
		}
		return lines
	}
	var ve *rules.ValidationError
	if errors.As(err, &ve) {
		lines := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			lines = append(lines, fmt.Sprintf("rule %s: %s", ve.RuleID, f))
		}
		return lines
	}
	return []string{err.Error()}
}
