// Package display renders engine values for people: whole-dollar currency
// with grouping ("$154,375") and percentages with one or two decimals.
//
// The engine returns exact decimals. Rounding happens only here, never on
// the values the engine returns. The HTTP API and the CLI share these so the
// dashboard and terminal output agree.
package display

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NA is shown for undefined ratios (zero revenue, zero quota).
const NA = "n/a"

var printer = message.NewPrinter(language.English)

// Currency renders whole dollars: "$154,375", "-$7,500".
func Currency(d decimal.Decimal) string {
	whole := d.Round(0).IntPart()
	if whole < 0 {
		return printer.Sprintf("-$%d", -whole)
	}
	return printer.Sprintf("$%d", whole)
}

// SignedCurrency prefixes positive amounts with "+".
func SignedCurrency(d decimal.Decimal) string {
	if d.Round(0).IsPositive() {
		return "+" + Currency(d)
	}
	return Currency(d)
}

// Ratio renders a ratio as a percentage: 0.0943 -> "9.43%".
func Ratio(r decimal.NullDecimal, places int32) string {
	if !r.Valid {
		return NA
	}
	return Percent(decimal.NullDecimal{Decimal: r.Decimal.Shift(2), Valid: true}, places)
}

// Percent renders a value already in percent: 8.8235 -> "8.82%".
// places is 1 or 2.
func Percent(p decimal.NullDecimal, places int32) string {
	if !p.Valid {
		return NA
	}
	f, _ := p.Decimal.Round(places).Float64()
	if places == 1 {
		return printer.Sprintf("%.1f%%", f)
	}
	return printer.Sprintf("%.2f%%", f)
}
