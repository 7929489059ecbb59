package agegate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/models"
)

// AgeBand is a coarse age bucket exposed instead of a date of birth.
// Accepted forms: "15" (single year), "16-17" (closed range), "18+" (open).
type AgeBand string

// Published bands, aligned with the seeded policy thresholds so that the band
// floor equals the exact age at every seeded boundary.
const (
	BandUnder13 AgeBand = "0-12"
	Band13To14  AgeBand = "13-14"
	Band15      AgeBand = "15"
	Band16To17  AgeBand = "16-17"
	Band18AndUp AgeBand = "18+"
)

// Floor returns the lowest age contained in the band.
// Eligibility always uses the floor: a band never grants more than its youngest member would get.
func (b AgeBand) Floor() (int, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%w: empty band", apperrors.ErrInvalidAgeBand)
	}

	if lo, ok := strings.CutSuffix(s, "+"); ok {
		return parseBandAge(lo, b)
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok {
		low, err := parseBandAge(lo, b)
		if err != nil {
			return 0, err
		}
		high, err := parseBandAge(hi, b)
		if err != nil {
			return 0, err
		}
		if high < low {
			return 0, fmt.Errorf("%w: %q has upper bound below lower bound", apperrors.ErrInvalidAgeBand, b)
		}
		return low, nil
	}

	return parseBandAge(s, b)
}

func parseBandAge(s string, band AgeBand) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidAgeBand, band)
	}
	return n, nil
}

// BandForAge maps an exact age onto the published bands.
func BandForAge(age int) AgeBand {
	switch {
	case age >= 18:
		return Band18AndUp
	case age >= 16:
		return Band16To17
	case age == 15:
		return Band15
	case age >= 13:
		return Band13To14
	default:
		return BandUnder13
	}
}

// AgeOn returns the age in whole years of someone born on dob, as of at.
func AgeOn(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Subject describes the youth being evaluated. An exact Age takes precedence
// over Band when both are present.
type Subject struct {
	Age  *int    `json:"age,omitempty"`
	Band AgeBand `json:"age_band,omitempty"`
}

// ExactAge builds a Subject from a known age.
func ExactAge(age int) Subject {
	return Subject{Age: &age}
}

// InBand builds a Subject from an age band.
func InBand(band AgeBand) Subject {
	return Subject{Band: band}
}

// ResolveAge returns the age used for comparison: the exact age if known,
// otherwise the floor of the band.
func ResolveAge(s Subject) (int, error) {
	if s.Age != nil {
		if *s.Age < 0 {
			return 0, fmt.Errorf("%w: negative age", apperrors.ErrInvalidAgeBand)
		}
		return *s.Age, nil
	}
	if s.Band == "" {
		return 0, fmt.Errorf("%w: neither age nor band provided", apperrors.ErrInvalidAgeBand)
	}
	return s.Band.Floor()
}

// IsEligible reports whether subject meets the minimum age for category under policy.
//
// A category missing from the policy is an error, never a silent allow.
//
// Example:
//
//	ok, err := agegate.IsEligible(agegate.InBand("16-17"), models.RiskHigh, active)
//	// ok == false with the seeded policy (HIGH_RISK requires 18)
func IsEligible(subject Subject, category models.RiskCategory, policy *models.AgePolicy) (bool, error) {
	if policy == nil {
		return false, apperrors.ErrNoActivePolicy
	}

	minAge, ok := policy.MinAge(category)
	if !ok {
		return false, fmt.Errorf("%w: %q not defined in policy version %d", apperrors.ErrUnknownRiskCategory, category, policy.Version)
	}

	age, err := ResolveAge(subject)
	if err != nil {
		return false, err
	}

	return age >= minAge, nil
}

// Decision is the explained form of an eligibility check, returned to API callers.
type Decision struct {
	Eligible      bool                `json:"eligible"`
	RiskCategory  models.RiskCategory `json:"risk_category"`
	ResolvedAge   int                 `json:"resolved_age"`
	MinAge        int                 `json:"min_age"`
	PolicyVersion int                 `json:"policy_version"`
}

// Evaluate is IsEligible with the inputs to the comparison echoed back.
func Evaluate(subject Subject, category models.RiskCategory, policy *models.AgePolicy) (Decision, error) {
	eligible, err := IsEligible(subject, category, policy)
	if err != nil {
		return Decision{}, err
	}
	// Both lookups succeeded inside IsEligible.
	age, _ := ResolveAge(subject)
	minAge, _ := policy.MinAge(category)
	return Decision{
		Eligible:      eligible,
		RiskCategory:  category,
		ResolvedAge:   age,
		MinAge:        minAge,
		PolicyVersion: policy.Version,
	}, nil
}
