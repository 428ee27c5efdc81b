package compensation

import (
	"fmt"
	"time"
)

// =============================================================================
// FISCAL CALENDAR - Quarter labels for rule evaluation
// =============================================================================

// FiscalCalendar derives fiscal quarters from dates.
//
// Examples:
//   - Calendar year:  StartMonth = January, Q1 = Jan-Mar
//   - Fiscal year:    StartMonth = February, Q1 = Feb-Apr, Q4 = Nov-Jan
type FiscalCalendar struct {
	// StartMonth is the first month of the fiscal year. Zero means January.
	StartMonth time.Month
}

// Quarter returns "Q1".."Q4" for the fiscal quarter containing date.
func (fc FiscalCalendar) Quarter(date time.Time) string {
	offset := (int(date.Month()) - int(fc.startMonth()) + 12) % 12
	return fmt.Sprintf("Q%d", offset/3+1)
}

func (fc FiscalCalendar) startMonth() time.Month {
	if fc.StartMonth < time.January || fc.StartMonth > time.December {
		return time.January
	}
	return fc.StartMonth
}
