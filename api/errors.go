package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInvalidRule    = "invalid_rule"
	CodeInvalidEdit    = "invalid_configuration"
	CodeNoTier         = "no_applicable_tier"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeInternal       = "internal"
)

// statusFor maps engine and store errors to HTTP status codes:
//
//	400  malformed body, invalid rule, rejected configuration edit
//	404  unknown plan, representative, scenario or tier
//	409  duplicate append-only record
//	422  well-formed request the plan cannot calculate (no applicable tier)
//	500  everything else
func statusFor(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case compensation.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, compensation.ErrNoApplicableTier):
		return http.StatusUnprocessableEntity
	case errors.Is(err, compensation.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, rules.ErrInvalidRule),
		compensation.IsClientError(err),
		errors.Is(err, errBadRequest),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case compensation.IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, compensation.ErrNoApplicableTier):
		return CodeNoTier
	case errors.Is(err, compensation.ErrDuplicateRecord):
		return CodeConflict
	case errors.Is(err, rules.ErrInvalidRule):
		return CodeInvalidRule
	case compensation.IsClientError(err):
		return CodeInvalidEdit
	case statusFor(err) == http.StatusBadRequest:
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// errBadRequest marks request validation failures raised by handlers.
var errBadRequest = errors.New("bad request")

// fieldErrors flattens rule authoring errors for the rule builder.
func fieldErrors(err error) []FieldErrorDTO {
	out := []FieldErrorDTO{}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, fieldErrors(e)...)
		}
		return out
	}
	var ve *rules.ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			out = append(out, FieldErrorDTO{RuleID: ve.RuleID, Field: f.Field, Position: f.Pos, Message: f.Message})
		}
		return out
	}
	var se *rules.SyntaxError
	if errors.As(err, &se) {
		return append(out, FieldErrorDTO{Field: se.Field, Position: se.Pos, Message: se.Message})
	}
	return append(out, FieldErrorDTO{Message: err.Error()})
}
