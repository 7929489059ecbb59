package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskCategory classifies a job by how much supervision and physical risk it involves.
type RiskCategory string

const (
	RiskLow    RiskCategory = "LOW_RISK"
	RiskMedium RiskCategory = "MEDIUM_RISK"
	RiskHigh   RiskCategory = "HIGH_RISK"
)

// RiskCategories lists every category in increasing severity.
var RiskCategories = []RiskCategory{RiskLow, RiskMedium, RiskHigh}

// Severity returns the position of the category in RiskCategories, or -1.
func (c RiskCategory) Severity() int {
	for i, rc := range RiskCategories {
		if rc == c {
			return i
		}
	}
	return -1
}

// IsValidRiskCategory checks if the given category is known.
func IsValidRiskCategory(c RiskCategory) bool {
	return c.Severity() >= 0
}

// PolicyStatus is the lifecycle state of an age policy version.
type PolicyStatus string

const (
	PolicyStatusActive   PolicyStatus = "ACTIVE"
	PolicyStatusArchived PolicyStatus = "ARCHIVED"
	PolicyStatusDraft    PolicyStatus = "DRAFT"
)

// RiskRule is the per-category requirement inside a policy document.
type RiskRule struct {
	MinAge int `json:"minAge"`
}

// PolicyDocument maps every risk category to its minimum age.
// Stored as JSONB in age_policies.policy_json.
type PolicyDocument map[RiskCategory]RiskRule

// AgePolicy is an immutable snapshot of the minimum-age rules.
// Exactly one version is ACTIVE at any time.
type AgePolicy struct {
	ID          uuid.UUID      `json:"id"`
	Version     int            `json:"version"`
	Status      PolicyStatus   `json:"status"`
	PolicyJSON  PolicyDocument `json:"policy_json"`
	Description string         `json:"description"`
	CreatedBy   *string        `json:"created_by,omitempty"` // nil = created by the system at bootstrap
	CreatedAt   time.Time      `json:"created_at"`
}

// IsActive reports whether this is the version currently in force.
func (p *AgePolicy) IsActive() bool {
	return p != nil && p.Status == PolicyStatusActive
}

// MinAge returns the minimum age for a category and whether the policy defines it.
func (p *AgePolicy) MinAge(category RiskCategory) (int, bool) {
	if p == nil {
		return 0, false
	}
	rule, ok := p.PolicyJSON[category]
	return rule.MinAge, ok
}

// DefaultPolicyDocument is the version 1 seed used when no ACTIVE policy exists.
func DefaultPolicyDocument() PolicyDocument {
	return PolicyDocument{
		RiskLow:    {MinAge: 15},
		RiskMedium: {MinAge: 16},
		RiskHigh:   {MinAge: 18},
	}
}
