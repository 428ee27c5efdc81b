/*
rule.go - Rule definitions and authoring-time validation

LIFECYCLE:
  1. Admin edits condition/action text in the rule builder
  2. Compile() parses both; any *SyntaxError is shown next to its field
     and the save is rejected
  3. Only CompiledRules ever reach the Engine

  By evaluation time every rule is well-formed, so the Engine has no
  error path for syntax.

EFFECTIVE WINDOW:
  EffectiveDate and ExpiryDate are inclusive calendar days. A rule with
  either bound needs an evaluation date; without one it is skipped.
*/
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field names used in SyntaxError.
const (
	FieldCondition = "condition"
	FieldAction    = "action"
)

// Rule is a conditional bonus rule as authored.
type Rule struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Condition     string     `json:"condition"`
	Action        string     `json:"action"`
	Active        bool       `json:"active"`
	Priority      int        `json:"priority"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Description   string     `json:"description,omitempty"`
}

// CompiledRule is a Rule whose condition and action have been parsed.
type CompiledRule struct {
	Rule
	When Expr
	Then Action
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidRule is the sentinel every rule authoring error unwraps to.
var ErrInvalidRule = errors.New("invalid rule")

// SyntaxError is a field-level authoring error.
type SyntaxError struct {
	Field   string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalidRule }

// ValidationError collects every field error for one rule.
type ValidationError struct {
	RuleID string
	Fields []*SyntaxError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("rule %q: %s", e.RuleID, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRule }

// =============================================================================
// COMPILE
// =============================================================================

// Compile validates and parses a rule. The returned error is a
// *ValidationError listing every failing field.
func Compile(r Rule) (CompiledRule, error) {
	var fields []*SyntaxError

	when, err := ParseCondition(r.Condition)
	if err != nil {
		fields = append(fields, asSyntaxError(FieldCondition, err))
	}
	then, err := ParseAction(r.Action)
	if err != nil {
		fields = append(fields, asSyntaxError(FieldAction, err))
	}
	if r.EffectiveDate != nil && r.ExpiryDate != nil && r.ExpiryDate.Before(*r.EffectiveDate) {
		fields = append(fields, &SyntaxError{Field: "expiry_date", Message: "expiry date is before effective date"})
	}

	if len(fields) > 0 {
		return CompiledRule{}, &ValidationError{RuleID: r.ID, Fields: fields}
	}
	return CompiledRule{Rule: r, When: when, Then: then}, nil
}

// MustCompile is Compile for fixtures; it panics on invalid rules.
func MustCompile(r Rule) CompiledRule {
	c, err := Compile(r)
	if err != nil {
		panic(err)
	}
	return c
}

// CompileAll compiles a rule set, reporting every invalid rule.
func CompileAll(rs []Rule) ([]CompiledRule, error) {
	out := make([]CompiledRule, 0, len(rs))
	var errs []error
	for _, r := range rs {
		c, err := Compile(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func asSyntaxError(field string, err error) *SyntaxError {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se
	}
	return &SyntaxError{Field: field, Message: err.Error()}
}

// =============================================================================
// EFFECTIVE WINDOW
// =============================================================================

// SkipReason explains why a rule was not evaluated.
type SkipReason string

const (
	SkipInactive     SkipReason = "inactive"
	SkipNotYetActive SkipReason = "not_yet_effective"
	SkipExpired      SkipReason = "expired"
	SkipNoDate       SkipReason = "no_evaluation_date"
)

// Bounded reports whether the rule has an effective or expiry date.
func (r Rule) Bounded() bool {
	return r.EffectiveDate != nil || r.ExpiryDate != nil
}

// eligibility returns "" when the rule should be evaluated at the given date.
func (r Rule) eligibility(at time.Time) SkipReason {
	if !r.Active {
		return SkipInactive
	}
	if !r.Bounded() {
		return ""
	}
	if at.IsZero() {
		return SkipNoDate
	}
	day := truncateDay(at)
	if r.EffectiveDate != nil && day.Before(truncateDay(*r.EffectiveDate)) {
		return SkipNotYetActive
	}
	if r.ExpiryDate != nil && day.After(truncateDay(*r.ExpiryDate)) {
		return SkipExpired
	}
	return ""
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
