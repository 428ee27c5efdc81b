/*
Package rules provides the conditional bonus rule language.

PURPOSE:
  Compensation admins write rules as short text: a condition over the
  representative's numbers and an action that adjusts the payout.

    condition: quarter = Q4 AND quota_attainment >= 100%
    action:    multiply_commission(1.25)

  The text is parsed ONCE, when the rule is saved, into a typed tree.
  Evaluation walks the tree; it never re-parses strings.

KEY CONCEPTS IN THIS FILE (ast.go):
  - Variable:   The closed vocabulary a condition can reference
  - Expr:       Condition tree (Comparison leaves, Logical AND/OR nodes)
  - Action:     The effect a matching rule contributes

PRECEDENCE:
  AND binds tighter than OR, both are left-associative, parentheses group.
  "a OR b AND c" reads as "a OR (b AND c)".

RATIOS vs PERCENTAGES:
  Attainment is a ratio internally (1.0 = 100%). Rule text may use either
  form; the parser normalizes to a ratio (see normalizeRatio).

SEE ALSO:
  - parser.go: Text to tree
  - rule.go:   Rule definition and authoring-time compile
  - engine.go: Ordered evaluation and accumulation
*/
package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VARIABLES - Closed vocabulary
// =============================================================================

type Variable string

const (
	VarQuotaAttainment           Variable = "quota_attainment"
	VarIndividualQuotaAttainment Variable = "individual_quota_attainment"
	VarTeamQuotaAttainment       Variable = "team_quota_attainment"
	VarQuarter                   Variable = "quarter"
	VarTerritory                 Variable = "territory"
	VarProductCategory           Variable = "product_category"
	VarSalesTier                 Variable = "sales_tier"
)

var knownVariables = map[string]Variable{
	string(VarQuotaAttainment):           VarQuotaAttainment,
	string(VarIndividualQuotaAttainment): VarIndividualQuotaAttainment,
	string(VarTeamQuotaAttainment):       VarTeamQuotaAttainment,
	string(VarQuarter):                   VarQuarter,
	string(VarTerritory):                 VarTerritory,
	string(VarProductCategory):           VarProductCategory,
	string(VarSalesTier):                 VarSalesTier,
}

// LookupVariable resolves a variable name (case-insensitive).
func LookupVariable(name string) (Variable, bool) {
	v, ok := knownVariables[strings.ToLower(name)]
	return v, ok
}

// IsNumeric reports whether the variable holds an attainment ratio.
func (v Variable) IsNumeric() bool {
	switch v {
	case VarQuotaAttainment, VarIndividualQuotaAttainment, VarTeamQuotaAttainment:
		return true
	default:
		return false
	}
}

// =============================================================================
// OPERATORS
// =============================================================================

type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpGt Operator = ">"
	OpGe Operator = ">="
	OpLt Operator = "<"
	OpLe Operator = "<="
)

// IsOrdering reports whether the operator needs an ordered (numeric) operand.
func (o Operator) IsOrdering() bool {
	return o == OpGt || o == OpGe || o == OpLt || o == OpLe
}

type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// =============================================================================
// CONDITION TREE
// =============================================================================

// Expr is a node in a condition tree.
type Expr interface {
	// Match evaluates the node. Variables missing from facts never match.
	Match(f Facts) bool
	String() string
}

// Comparison compares one variable to a literal.
// Exactly one of Number (numeric variables) or Text (text variables) is used.
type Comparison struct {
	Var    Variable
	Op     Operator
	Number decimal.Decimal
	Text   string
}

func (c *Comparison) String() string {
	if c.Var.IsNumeric() {
		return fmt.Sprintf("%s %s %s", c.Var, c.Op, c.Number.String())
	}
	return fmt.Sprintf("%s %s %q", c.Var, c.Op, c.Text)
}

// Logical joins two sub-expressions.
type Logical struct {
	Op          Connective
	Left, Right Expr
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + string(l.Op) + " " + l.Right.String() + ")"
}

// =============================================================================
// ACTIONS
// =============================================================================

type ActionKind string

const (
	// ActionMultiplyCommission contributes (factor - 1) to the accelerator delta.
	ActionMultiplyCommission ActionKind = "multiply_commission"

	// ActionAddBonus contributes a flat amount.
	ActionAddBonus ActionKind = "add_bonus"

	// ActionAddPercentageBonus contributes a share of YTD revenue.
	// Arg is stored as a ratio (5% -> 0.05).
	ActionAddPercentageBonus ActionKind = "add_percentage_bonus"
)

// Action is a compiled function-call effect.
type Action struct {
	Kind ActionKind
	Arg  decimal.Decimal
}

func (a Action) String() string {
	if a.Kind == ActionAddPercentageBonus {
		return fmt.Sprintf("%s(%s%%)", a.Kind, a.Arg.Mul(hundred).String())
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Arg.String())
}

var hundred = decimal.NewFromInt(100)
