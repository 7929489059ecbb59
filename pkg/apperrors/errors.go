package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Age policy
	ErrNoActivePolicy      = errors.New("no active age policy")
	ErrInvalidPolicyShape  = errors.New("invalid age policy shape")
	ErrUnknownRiskCategory = errors.New("unknown risk category")
	ErrInvalidAgeBand      = errors.New("invalid age band")
	ErrNotEligible         = errors.New("not eligible for this job's risk category")

	// Structured messaging
	ErrInvalidCatalog          = errors.New("invalid intent catalog")
	ErrUnknownIntent           = errors.New("unknown message intent")
	ErrMissingRequiredVariable = errors.New("missing required variable")
	ErrInvalidType             = errors.New("invalid variable type")
	ErrInvalidChoice           = errors.New("invalid choice")
	ErrValueTooLong            = errors.New("value too long")
	ErrExtraneousVariables     = errors.New("undeclared variables submitted")
	ErrContactInfoDetected     = errors.New("contact information detected")
	ErrUnsafeMarkup            = errors.New("unsafe markup detected")
	ErrLegacyReadOnly          = errors.New("legacy message is read-only")
)

// VariableError reports a validation failure on a single intent variable.
// It unwraps to one of the variable sentinel errors above.
type VariableError struct {
	Kind     error
	Variable string
	Detail   string
}

func (e *VariableError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Variable)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Variable, e.Detail)
}

func (e *VariableError) Unwrap() error { return e.Kind }

// ExtraneousVariablesError lists submitted keys the intent does not declare.
type ExtraneousVariablesError struct {
	Names []string
}

func (e *ExtraneousVariablesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrExtraneousVariables, strings.Join(e.Names, ", "))
}

func (e *ExtraneousVariablesError) Unwrap() error { return ErrExtraneousVariables }

// ContactFinding mirrors leakcheck.Finding without importing it, so the error
// can cross package boundaries freely.
type ContactFinding struct {
	Kind        string `json:"kind"`
	MatchedText string `json:"matched_text"`
}

// ContactInfoError is returned when a free-text variable contains something
// that looks like off-platform contact details.
type ContactInfoError struct {
	Variable string
	Findings []ContactFinding
}

func (e *ContactInfoError) Error() string {
	return fmt.Sprintf("%s in %s: %s", ErrContactInfoDetected, e.Variable, strings.Join(e.Kinds(), ", "))
}

func (e *ContactInfoError) Unwrap() error { return ErrContactInfoDetected }

// Kinds returns the distinct finding kinds in order of first appearance.
// This is all that is safe to show users, logs and the audit trail.
func (e *ContactInfoError) Kinds() []string {
	seen := make(map[string]bool, len(e.Findings))
	kinds := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		if !seen[f.Kind] {
			seen[f.Kind] = true
			kinds = append(kinds, f.Kind)
		}
	}
	return kinds
}

// PolicyShapeError explains why an age policy document was rejected.
type PolicyShapeError struct {
	Reason string
}

func (e *PolicyShapeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPolicyShape, e.Reason)
}

func (e *PolicyShapeError) Unwrap() error { return ErrInvalidPolicyShape }
