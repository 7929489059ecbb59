package intents

import (
	"sort"
	"strings"

	"github.com/corazawaf/libinjection-go"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/leakcheck"
	"github.com/youthhire/safety-engine/pkg/models"
)

// Renderer validates submitted variables against an intent's schema and
// produces the final message text. It has no side effects; callers persist
// the result.
type Renderer struct {
	catalog  *Catalog
	detector leakcheck.Detector
}

// NewRenderer creates a renderer. A nil detector uses leakcheck.NewDefaultDetector.
func NewRenderer(catalog *Catalog, detector leakcheck.Detector) *Renderer {
	if detector == nil {
		detector = leakcheck.NewDefaultDetector()
	}
	return &Renderer{catalog: catalog, detector: detector}
}

// Catalog returns the catalog the renderer validates against.
func (r *Renderer) Catalog() *Catalog {
	return r.catalog
}

// Detector returns the contact-info detector text values are screened with.
// Callers reuse it to redact rejected values before logging them.
func (r *Renderer) Detector() leakcheck.Detector {
	return r.detector
}

// Render validates submitted against intentID and substitutes the values into
// its template. Checks run in this order, stopping at the first failure:
//
//  1. the intent exists
//  2. no undeclared keys were submitted
//  3. each declared variable: required, type, choice option, max length
//  4. text values contain no HTML/script markup
//  5. text values contain no contact information
//
// Identical inputs always produce identical output.
func (r *Renderer) Render(intentID string, submitted map[string]string) (*models.RenderedMessage, error) {
	intent, err := r.catalog.Get(intentID)
	if err != nil {
		return nil, err
	}

	if extra := extraneousKeys(intent, submitted); len(extra) > 0 {
		return nil, &apperrors.ExtraneousVariablesError{Names: extra}
	}

	values := make(map[string]Value, len(intent.Variables))
	for _, decl := range intent.Variables {
		raw := strings.TrimSpace(submitted[decl.Name])
		if raw == "" {
			if decl.Required {
				return nil, &apperrors.VariableError{Kind: apperrors.ErrMissingRequiredVariable, Variable: decl.Name}
			}
			continue
		}

		val, err := parseValue(decl, raw)
		if err != nil {
			return nil, err
		}
		values[decl.Name] = val
	}

	for _, decl := range intent.Variables {
		text, ok := values[decl.Name].(TextValue)
		if !ok {
			continue
		}
		if libinjection.IsXSS(string(text)) {
			return nil, &apperrors.VariableError{Kind: apperrors.ErrUnsafeMarkup, Variable: decl.Name}
		}
		if findings := r.detector.Scan(string(text)); len(findings) > 0 {
			return nil, contactInfoError(decl.Name, findings)
		}
	}

	canonical := make(map[string]string, len(values))
	for name, val := range values {
		canonical[name] = val.String()
	}

	return &models.RenderedMessage{
		Intent:       intent.Intent,
		RenderedText: strings.TrimSpace(substitute(intent.Template, canonical)),
		Variables:    canonical,
		IsLegacy:     false,
	}, nil
}

func extraneousKeys(intent models.MessageIntent, submitted map[string]string) []string {
	var extra []string
	for name := range submitted {
		if _, ok := intent.Variable(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

func contactInfoError(variable string, findings []leakcheck.Finding) *apperrors.ContactInfoError {
	out := make([]apperrors.ContactFinding, len(findings))
	for i, f := range findings {
		out[i] = apperrors.ContactFinding{Kind: string(f.Kind), MatchedText: f.MatchedText}
	}
	return &apperrors.ContactInfoError{Variable: variable, Findings: out}
}
