package services

import (
	"context"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/models"
)

// EligibilityService evaluates the age gate against the ACTIVE policy.
type EligibilityService interface {
	Check(ctx context.Context, subject agegate.Subject, category models.RiskCategory) (agegate.Decision, error)
}

type eligibilityService struct {
	policies *PolicyCache
}

// NewEligibilityService creates a new EligibilityService.
func NewEligibilityService(policies *PolicyCache) EligibilityService {
	return &eligibilityService{policies: policies}
}

var _ EligibilityService = (*eligibilityService)(nil)

func (s *eligibilityService) Check(ctx context.Context, subject agegate.Subject, category models.RiskCategory) (agegate.Decision, error) {
	policy, err := s.policies.Get(ctx)
	if err != nil {
		return agegate.Decision{}, err
	}
	return agegate.Evaluate(subject, category, policy)
}
