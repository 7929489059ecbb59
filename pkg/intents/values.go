package intents

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/models"
)

// Value is a validated variable value. The concrete type follows the
// variable's declared type.
type Value interface {
	Type() models.VariableType
	// String is the canonical form inserted into the template.
	String() string
	sealed()
}

// TextValue is free text with internal whitespace collapsed to single spaces.
type TextValue string

func (v TextValue) Type() models.VariableType { return models.VariableText }
func (v TextValue) String() string { return string(v) }
func (TextValue) sealed() {}

// NumberValue is a finite decimal number.
type NumberValue float64

func (v NumberValue) Type() models.VariableType { return models.VariableNumber }
func (v NumberValue) String() string { return formatNumber(float64(v)) }
func (NumberValue) sealed() {}

// ChoiceValue is one of the variable's declared options.
type ChoiceValue string

func (v ChoiceValue) Type() models.VariableType { return models.VariableChoice }
func (v ChoiceValue) String() string { return string(v) }
func (ChoiceValue) sealed() {}

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Plain decimal only; rejects exponents, hex and digit separators that ParseFloat would accept.
var numberRegex = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// parseValue checks raw against the declared variable and returns its typed form.
// raw has already been trimmed and is non-empty.
func parseValue(decl models.IntentVariable, raw string) (Value, error) {
	var val Value

	switch decl.Type {
	case models.VariableNumber:
		if !numberRegex.MatchString(raw) {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidType, Variable: decl.Name, Detail: "expected a number"}
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidType, Variable: decl.Name, Detail: "expected a number"}
		}
		if decl.Min != nil && f < *decl.Min {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidType, Variable: decl.Name, Detail: fmt.Sprintf("must be at least %s", formatNumber(*decl.Min))}
		}
		if decl.Max != nil && f > *decl.Max {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidType, Variable: decl.Name, Detail: fmt.Sprintf("must be at most %s", formatNumber(*decl.Max))}
		}
		val = NumberValue(f)

	case models.VariableChoice:
		if !decl.HasOption(raw) {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidChoice, Variable: decl.Name, Detail: fmt.Sprintf("%q is not an option", raw)}
		}
		val = ChoiceValue(raw)

	default:
		val = TextValue(strings.Join(strings.Fields(raw), " "))
	}

	if decl.MaxLength > 0 {
		if n := len([]rune(raw)); n > decl.MaxLength {
			return nil, &apperrors.VariableError{
				Kind:     apperrors.ErrValueTooLong,
				Variable: decl.Name,
				Detail:   fmt.Sprintf("%d characters, max %d", n, decl.MaxLength),
			}
		}
	}

	return val, nil
}

// SubmissionFromJSON converts a decoded JSON object into raw string values.
// Strings pass through; numbers must have been decoded with UseNumber; null
// becomes an empty value so the key still takes part in validation.
// Anything else is an InvalidType error for that key.
func SubmissionFromJSON(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for name, raw := range in {
		switch v := raw.(type) {
		case string:
			out[name] = v
		case json.Number:
			out[name] = v.String()
		case nil:
			out[name] = ""
		default:
			return nil, &apperrors.VariableError{Kind: apperrors.ErrInvalidType, Variable: name, Detail: "expected a string or number"}
		}
	}
	return out, nil
}
