/*
errors.go - Error and warning types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Adapters (HTTP, CLI) map these to status codes and messages.

ERROR CATEGORIES:
  1. Configuration errors - Fatal to a single calculation (no tier matches)
  2. Edit errors          - Rejected configuration edits (rate out of range,
                            overlapping tiers, unknown tier)
  3. Store errors         - Workspace persistence lookups
  4. Warnings             - Data quality issues that never stop a calculation

FALLBACK IS NOT AN ERROR:
  A missing rate-matrix entry falls back to the tier base rate and is
  reported as ProductCommission.Fallback, never as an error or warning.

USAGE:
  _, err := calc.Calculate(ctx, cfg)
  if errors.Is(err, compensation.ErrNoApplicableTier) {
      var ce *compensation.ConfigurationError
      errors.As(err, &ce) // ce.Label is the unmatched tier label
  }
*/
package compensation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoApplicableTier is returned when no tier name contains the
	// representative's tier label.
	ErrNoApplicableTier = errors.New("no applicable tier")

	// ErrRateOutOfRange is returned when a rate edit is outside [0, 1].
	ErrRateOutOfRange = errors.New("rate out of range [0, 1]")

	// ErrTierOverlap is returned when a tier threshold is too close to another.
	ErrTierOverlap = errors.New("tier quota thresholds overlap")

	// ErrTierNotFound is returned when an edit references an unknown tier ID.
	ErrTierNotFound = errors.New("tier not found")

	// ErrDuplicateTier is returned when adding a tier whose ID already exists.
	ErrDuplicateTier = errors.New("duplicate tier id")

	// ErrUnknownDimension is returned when a matrix edit names a territory
	// or product the matrix does not know.
	ErrUnknownDimension = errors.New("unknown territory or product")

	// ErrDuplicateDimension is returned when adding an existing territory or product.
	ErrDuplicateDimension = errors.New("territory or product already exists")

	// ErrNoSnapshots is returned by CompareAll when given nothing to compare.
	ErrNoSnapshots = errors.New("no snapshots to compare")

	// ErrNotFound is returned by workspace stores for missing records.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRecord is returned when an append-only record already exists.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationErrorCode classifies a ConfigurationError.
type ConfigurationErrorCode string

const (
	CodeNoApplicableTier ConfigurationErrorCode = "NoApplicableTier"
)

// ConfigurationError is fatal to one calculation.
type ConfigurationError struct {
	Code  ConfigurationErrorCode
	RepID string
	Label string
}

func (e *ConfigurationError) Error() string {
	if e.RepID != "" {
		return fmt.Sprintf("configuration error: %s: no tier matches %q (rep %s)", e.Code, e.Label, e.RepID)
	}
	return fmt.Sprintf("configuration error: %s: no tier matches %q", e.Code, e.Label)
}

func (e *ConfigurationError) Unwrap() error {
	switch e.Code {
	case CodeNoApplicableTier:
		return ErrNoApplicableTier
	}
	return nil
}

// RateError is returned when a matrix or tier rate edit is out of range.
type RateError struct {
	Field string
	Rate  decimal.Decimal
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%s: rate %s is outside [0, 1]", e.Field, e.Rate)
}

func (e *RateError) Unwrap() error { return ErrRateOutOfRange }

// TierOverlapError names the two tiers whose thresholds collide.
type TierOverlapError struct {
	TierID     string
	ConflictID string
	Gap        decimal.Decimal
	MinGap     decimal.Decimal
}

func (e *TierOverlapError) Error() string {
	return fmt.Sprintf("tier %s threshold is %s from tier %s (minimum gap %s)",
		e.TierID, e.Gap, e.ConflictID, e.MinGap)
}

func (e *TierOverlapError) Unwrap() error { return ErrTierOverlap }

// =============================================================================
// WARNINGS - Non-fatal data quality findings
// =============================================================================

// WarningCode classifies a data quality warning.
type WarningCode string

const (
	WarnNonPositiveRevenue WarningCode = "non_positive_revenue"
	WarnNonPositiveQuota   WarningCode = "non_positive_quota"
	WarnTierOverlap        WarningCode = "tier_overlap"
	WarnRateOutOfRange     WarningCode = "rate_out_of_range"
	WarnNoTiers            WarningCode = "no_tiers"
	WarnDuplicateTierName  WarningCode = "ambiguous_tier_name"
	WarnNegativeRevenue    WarningCode = "negative_product_revenue"
)

// Warning is a data quality finding. The calculator still runs.
type Warning struct {
	Code    WarningCode `json:"code"`
	Subject string      `json:"subject,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Subject, w.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to an invalid edit.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRateOutOfRange) ||
		errors.Is(err, ErrTierOverlap) ||
		errors.Is(err, ErrDuplicateTier) ||
		errors.Is(err, ErrDuplicateDimension) ||
		errors.Is(err, ErrUnknownDimension) ||
		errors.Is(err, ErrNoSnapshots)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTierNotFound)
}
