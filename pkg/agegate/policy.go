// Package agegate decides whether a youth worker may see or act on a job,
// based on the job's risk category and the active age policy.
//
// Everything in this package is a pure function of its inputs. Callers load
// the active policy once per request and pass the snapshot in.
package agegate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/models"
)

// ParsePolicyDocument decodes a raw policy_json payload and validates its shape.
//
// Expected shape:
//
//	{
//	  "LOW_RISK":    {"minAge": 15},
//	  "MEDIUM_RISK": {"minAge": 16},
//	  "HIGH_RISK":   {"minAge": 18}
//	}
//
// Fractional or non-numeric minAge values are rejected rather than truncated.
func ParsePolicyDocument(raw []byte) (models.PolicyDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rawDoc map[string]map[string]any
	if err := dec.Decode(&rawDoc); err != nil {
		return nil, &apperrors.PolicyShapeError{Reason: "policy must be an object mapping risk category to {\"minAge\": n}"}
	}

	doc := make(models.PolicyDocument, len(rawDoc))
	for key, rule := range rawDoc {
		value, ok := rule["minAge"]
		if !ok {
			return nil, &apperrors.PolicyShapeError{Reason: fmt.Sprintf("%s: minAge is required", key)}
		}
		num, ok := value.(json.Number)
		if !ok {
			return nil, &apperrors.PolicyShapeError{Reason: fmt.Sprintf("%s: minAge must be a number", key)}
		}
		minAge, err := num.Int64()
		if err != nil {
			return nil, &apperrors.PolicyShapeError{Reason: fmt.Sprintf("%s: minAge must be an integer, got %s", key, num)}
		}
		doc[models.RiskCategory(key)] = models.RiskRule{MinAge: int(minAge)}
	}

	if err := ValidatePolicyShape(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidatePolicyShape checks that a policy document:
//   - defines every risk category and nothing else
//   - has a non-negative minAge for each
//   - never lowers the minimum age as severity increases (LOW <= MEDIUM <= HIGH)
func ValidatePolicyShape(doc models.PolicyDocument) error {
	for cat := range doc {
		if !models.IsValidRiskCategory(cat) {
			return &apperrors.PolicyShapeError{Reason: fmt.Sprintf("unknown risk category %q", cat)}
		}
	}

	prev := -1
	var prevCat models.RiskCategory
	for _, cat := range models.RiskCategories {
		rule, ok := doc[cat]
		if !ok {
			return &apperrors.PolicyShapeError{Reason: fmt.Sprintf("missing risk category %s", cat)}
		}
		if rule.MinAge < 0 {
			return &apperrors.PolicyShapeError{Reason: fmt.Sprintf("%s: minAge must be non-negative, got %d", cat, rule.MinAge)}
		}
		if rule.MinAge < prev {
			return &apperrors.PolicyShapeError{
				Reason: fmt.Sprintf("%s minAge %d is lower than %s minAge %d", cat, rule.MinAge, prevCat, prev),
			}
		}
		prev, prevCat = rule.MinAge, cat
	}
	return nil
}
