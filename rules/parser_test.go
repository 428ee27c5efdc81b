package rules_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/rules"
)

func ratio(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

// =============================================================================
// CONDITION PARSING
// =============================================================================

func TestParseCondition_PercentAndRatioFormsAreEquivalent(t *testing.T) {
	// GIVEN: The same threshold written three ways
	// WHEN: Parsing each
	// THEN: All normalize to the ratio 1.0

	for _, src := range []string{
		"quota_attainment >= 100%",
		"quota_attainment >= 100",
		"quota_attainment >= 1.0",
	} {
		expr, err := rules.ParseCondition(src)
		require.NoError(t, err, src)

		cmp, ok := expr.(*rules.Comparison)
		require.True(t, ok, src)
		assert.True(t, cmp.Number.Equal(decimal.NewFromInt(1)), "%s parsed as %s", src, cmp.Number)
	}
}

func TestParseCondition_AndBindsTighterThanOr(t *testing.T) {
	// GIVEN: a OR b AND c
	// THEN: Tree is OR(a, AND(b, c))

	expr, err := rules.ParseCondition("quarter = Q1 OR quarter = Q4 AND territory = West")
	require.NoError(t, err)

	root, ok := expr.(*rules.Logical)
	require.True(t, ok)
	assert.Equal(t, rules.Or, root.Op)

	right, ok := root.Right.(*rules.Logical)
	require.True(t, ok)
	assert.Equal(t, rules.And, right.Op)

	// Q1 alone satisfies the OR regardless of territory
	assert.True(t, expr.Match(rules.Facts{Quarter: "Q1", Territory: "East"}))
	// Q4 needs West
	assert.False(t, expr.Match(rules.Facts{Quarter: "Q4", Territory: "East"}))
	assert.True(t, expr.Match(rules.Facts{Quarter: "Q4", Territory: "West"}))
}

func TestParseCondition_ParenthesesOverridePrecedence(t *testing.T) {
	expr, err := rules.ParseCondition("(quarter = Q1 OR quarter = Q4) AND territory = West")
	require.NoError(t, err)

	assert.False(t, expr.Match(rules.Facts{Quarter: "Q1", Territory: "East"}))
	assert.True(t, expr.Match(rules.Facts{Quarter: "Q1", Territory: "West"}))
}

func TestParseCondition_MultiWordValues(t *testing.T) {
	expr, err := rules.ParseCondition("territory = West Coast AND sales_tier = Tier 1")
	require.NoError(t, err)

	facts := rules.Facts{Territory: "west coast", SalesTier: []string{"Tier 1"}}
	assert.True(t, expr.Match(facts))

	facts.Territory = "West"
	assert.False(t, expr.Match(facts))
}

func TestParseCondition_BareValuesKeepTheirSpelling(t *testing.T) {
	// GIVEN: Bare labels mixing digits and letters, extra spacing and apostrophes
	// WHEN: Parsing each condition
	// THEN: The value is stored exactly as written and matches that label

	cases := []struct {
		src   string
		want  string
		facts rules.Facts
	}{
		{"sales_tier = Tier 1A", "Tier 1A", rules.Facts{SalesTier: []string{"Tier 1A"}}},
		{"territory = 5th Avenue", "5th Avenue", rules.Facts{Territory: "5th Avenue"}},
		{"territory = West  Coast", "West  Coast", rules.Facts{Territory: "West  Coast"}},
		{"territory = O'Brien Region", "O'Brien Region", rules.Facts{Territory: "O'Brien Region"}},
		{"product_category = 3-Year License", "3-Year License", rules.Facts{ProductCategories: []string{"3-Year License"}}},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			expr, err := rules.ParseCondition(tc.src)
			require.NoError(t, err)

			cmp, ok := expr.(*rules.Comparison)
			require.True(t, ok)
			assert.Equal(t, tc.want, cmp.Text)
			assert.True(t, expr.Match(tc.facts))
		})
	}
}

func TestParseCondition_DigitLedWordsBeforeConnectives(t *testing.T) {
	// GIVEN: Digit-led values followed by both connective spellings
	expr, err := rules.ParseCondition("sales_tier = Tier 1A&&quota_attainment >= 1.0||territory = 5th Avenue")
	require.NoError(t, err)

	// THEN: Each value ends at the connective
	assert.True(t, expr.Match(rules.Facts{SalesTier: []string{"Tier 1A"}, QuotaAttainment: ratio("1.2")}))
	assert.True(t, expr.Match(rules.Facts{Territory: "5th Avenue"}))
	assert.False(t, expr.Match(rules.Facts{SalesTier: []string{"Tier 1"}, QuotaAttainment: ratio("1.2")}))
}

func TestParseCondition_AttainmentLiteralBoundaries(t *testing.T) {
	// GIVEN: Bare attainment literals around the ratio and percent cut-offs
	// THEN: Up to 2 is a ratio, above 10 is a percent, anything between is rejected

	accepted := map[string]string{
		"quota_attainment >= 2":    "2",
		"quota_attainment >= 1.5":  "1.5",
		"quota_attainment >= 11":   "0.11",
		"quota_attainment >= 10%":  "0.1",
		"quota_attainment >= 250%": "2.5",
	}
	for src, want := range accepted {
		expr, err := rules.ParseCondition(src)
		require.NoError(t, err, src)
		cmp := expr.(*rules.Comparison)
		assert.True(t, cmp.Number.Equal(decimal.RequireFromString(want)), "%s parsed as %s", src, cmp.Number)
	}

	for _, src := range []string{
		"quota_attainment >= 2.5",
		"quota_attainment >= 5",
		"quota_attainment >= 10",
	} {
		_, err := rules.ParseCondition(src)
		var se *rules.SyntaxError
		require.ErrorAs(t, err, &se, src)
		assert.Contains(t, se.Message, "ambiguous")
		assert.ErrorIs(t, err, rules.ErrInvalidRule)
	}
}

func TestParseCondition_QuotedValuesAndSymbolConnectives(t *testing.T) {
	expr, err := rules.ParseCondition(`territory == "North East" && quarter != Q2`)
	require.NoError(t, err)

	assert.True(t, expr.Match(rules.Facts{Territory: "North East", Quarter: "Q3"}))
	assert.False(t, expr.Match(rules.Facts{Territory: "North East", Quarter: "Q2"}))
}

func TestParseCondition_Errors(t *testing.T) {
	cases := map[string]string{
		"missing operator":    "quota_attainment 100%",
		"unknown variable":    "region = West",
		"missing value":       "quarter =",
		"text ordering":       "territory > West",
		"number for text":     `quota_attainment >= "high"`,
		"unbalanced paren":    "(quarter = Q4",
		"trailing connective": "quarter = Q4 AND",
		"empty":               "   ",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rules.ParseCondition(src)
			require.Error(t, err)

			var se *rules.SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, rules.FieldCondition, se.Field)
			assert.ErrorIs(t, err, rules.ErrInvalidRule)
		})
	}
}

// =============================================================================
// ACTION PARSING
// =============================================================================

func TestParseAction(t *testing.T) {
	cases := []struct {
		src  string
		kind rules.ActionKind
		arg  string
	}{
		{"multiply_commission(1.25)", rules.ActionMultiplyCommission, "1.25"},
		{"add_bonus(5000)", rules.ActionAddBonus, "5000"},
		{"add_bonus($5,000)", rules.ActionAddBonus, "5000"},
		{"add_percentage_bonus(5)", rules.ActionAddPercentageBonus, "0.05"},
		{"add_percentage_bonus(2.5%)", rules.ActionAddPercentageBonus, "0.025"},
		{"  MULTIPLY_COMMISSION( 2 ) ", rules.ActionMultiplyCommission, "2"},
	}
	for _, tc := range cases {
		a, err := rules.ParseAction(tc.src)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.kind, a.Kind, tc.src)
		assert.True(t, a.Arg.Equal(decimal.RequireFromString(tc.arg)), "%s: got %s", tc.src, a.Arg)
	}
}

func TestParseAction_Errors(t *testing.T) {
	for _, src := range []string{
		"multiply_commission 1.25",
		"multiply_commission(",
		"add_bonus()",
		"add_bonus(lots)",
		"double_it(2)",
		"multiply_commission(0)",
		"add_bonus(-5)",
	} {
		_, err := rules.ParseAction(src)
		var se *rules.SyntaxError
		require.ErrorAs(t, err, &se, src)
		assert.Equal(t, rules.FieldAction, se.Field, src)
	}
}

// =============================================================================
// COMPILE
// =============================================================================

func TestCompile_ReportsEveryFailingField(t *testing.T) {
	// GIVEN: A rule with a bad condition AND a bad action
	// WHEN: Compiling at save time
	// THEN: Both fields are reported, nothing is returned to run

	_, err := rules.Compile(rules.Rule{
		ID:        "r-bad",
		Condition: "quota_attainment 100%",
		Action:    "multiply_commission 1.25",
		Active:    true,
	})

	var ve *rules.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 2)
	assert.Equal(t, rules.FieldCondition, ve.Fields[0].Field)
	assert.Equal(t, rules.FieldAction, ve.Fields[1].Field)
	assert.Equal(t, "r-bad", ve.RuleID)
}

func TestCompileAll_JoinsErrors(t *testing.T) {
	_, err := rules.CompileAll([]rules.Rule{
		{ID: "ok", Condition: "quarter = Q4", Action: "add_bonus(1)"},
		{ID: "bad-1", Condition: "quarter Q4", Action: "add_bonus(1)"},
		{ID: "bad-2", Condition: "quarter = Q4", Action: "add_bonus"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-1")
	assert.Contains(t, err.Error(), "bad-2")
	assert.NotContains(t, err.Error(), `"ok"`)
}
