package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Facts is the evaluation input for conditions. Unset fields are absent
// variables: any comparison against them is false, including "!=".
type Facts struct {
	QuotaAttainment     decimal.NullDecimal
	TeamQuotaAttainment decimal.NullDecimal
	Quarter             string
	Territory           string

	// SalesTier holds every label the representative's tier answers to
	// (usually the assigned label and the resolved tier name).
	SalesTier []string

	// ProductCategories lists the products with revenue in the mix.
	ProductCategories []string

	// YTDRevenue is the base for add_percentage_bonus.
	YTDRevenue decimal.Decimal

	// AsOf is the evaluation date for effective/expiry windows.
	AsOf time.Time
}

func (f Facts) number(v Variable) (decimal.Decimal, bool) {
	switch v {
	case VarQuotaAttainment, VarIndividualQuotaAttainment:
		return f.QuotaAttainment.Decimal, f.QuotaAttainment.Valid
	case VarTeamQuotaAttainment:
		return f.TeamQuotaAttainment.Decimal, f.TeamQuotaAttainment.Valid
	}
	return decimal.Zero, false
}

func (f Facts) text(v Variable) []string {
	switch v {
	case VarQuarter:
		return nonEmpty(f.Quarter)
	case VarTerritory:
		return nonEmpty(f.Territory)
	case VarSalesTier:
		return f.SalesTier
	case VarProductCategory:
		return f.ProductCategories
	}
	return nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// Match evaluates the comparison against facts.
func (c *Comparison) Match(f Facts) bool {
	if c.Var.IsNumeric() {
		got, ok := f.number(c.Var)
		if !ok {
			return false
		}
		cmp := got.Cmp(c.Number)
		switch c.Op {
		case OpEq:
			return cmp == 0
		case OpNe:
			return cmp != 0
		case OpGt:
			return cmp > 0
		case OpGe:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		case OpLe:
			return cmp <= 0
		}
		return false
	}

	values := f.text(c.Var)
	if len(values) == 0 {
		return false
	}
	found := false
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), c.Text) {
			found = true
			break
		}
	}
	if c.Op == OpNe {
		return !found
	}
	return found
}

// Match evaluates both sides with short-circuiting.
func (l *Logical) Match(f Facts) bool {
	if l.Op == And {
		return l.Left.Match(f) && l.Right.Match(f)
	}
	return l.Left.Match(f) || l.Right.Match(f)
}
