package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("plan x: %w", compensation.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"no tier", &compensation.ConfigurationError{Code: compensation.CodeNoApplicableTier, Label: "Tier 9"}, http.StatusUnprocessableEntity, CodeNoTier},
		{"duplicate run", compensation.ErrDuplicateRecord, http.StatusConflict, CodeConflict},
		{"invalid rule", errors.Join(&rules.ValidationError{RuleID: "r1"}), http.StatusBadRequest, CodeInvalidRule},
		{"rejected edit", compensation.ErrRateOutOfRange, http.StatusBadRequest, CodeInvalidEdit},
		{"bad request", fmt.Errorf("%w: missing", errBadRequest), http.StatusBadRequest, CodeInvalidRequest},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}

func TestFieldErrors_FlattensJoinedRules(t *testing.T) {
	_, err := rules.CompileAll([]rules.Rule{
		{ID: "a", Condition: "", Action: "add_bonus(1)"},
		{ID: "b", Condition: "quarter = Q4", Action: ""},
	})

	got := fieldErrors(err)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RuleID)
	assert.Equal(t, rules.FieldCondition, got[0].Field)
	assert.Equal(t, "b", got[1].RuleID)
	assert.Equal(t, rules.FieldAction, got[1].Field)
}
