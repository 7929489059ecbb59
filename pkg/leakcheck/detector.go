// Package leakcheck scans free text for contact information that would let two
// parties move a conversation off the platform.
//
// Detection is tuned for precision over recall: a missed obfuscated phone
// number is preferable to blocking an ordinary message about shift times.
package leakcheck

import (
	"regexp"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Kind categorizes a finding.
type Kind string

const (
	KindURL          Kind = "URL"
	KindPhone        Kind = "PHONE"
	KindEmail        Kind = "EMAIL"
	KindSocialHandle Kind = "SOCIAL_HANDLE"
)

// Finding is one piece of contact information found in a text.
type Finding struct {
	Kind        Kind   `json:"kind"`
	MatchedText string `json:"matched_text"`
}

// Detector is the strategy the message renderer uses to screen free text.
// Implementations must be safe for concurrent use and return an empty result
// for clean text.
type Detector interface {
	Scan(text string) []Finding
}

// Rule is a single pattern-based detection rule.
type Rule struct {
	Kind    Kind
	Pattern *regexp.Regexp
	// Group selects the submatch holding the finding; 0 means the whole match.
	Group int
	// Reject, when set, drops matches that are known false positives.
	Reject func(matched string) bool
}

// PatternDetector applies an ordered list of rules. When matches overlap,
// the one starting first wins, then the longer one, then the earlier rule.
type PatternDetector struct {
	rules []Rule
}

var _ Detector = (*PatternDetector)(nil)

// NewPatternDetector creates a detector from explicit rules.
func NewPatternDetector(rules ...Rule) *PatternDetector {
	return &PatternDetector{rules: rules}
}

// NewDefaultDetector creates a detector with DefaultRules.
func NewDefaultDetector() *PatternDetector {
	return NewPatternDetector(DefaultRules()...)
}

type span struct {
	finding    Finding
	start, end int
	rule       int
}

// Scan returns the non-overlapping findings in text, in order of appearance.
// Text is NFKC-normalized first so full-width digits and other compatibility
// forms are matched like their ASCII equivalents.
func (d *PatternDetector) Scan(text string) []Finding {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var spans []span
	for i, rule := range d.rules {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(normalized, -1) {
			start, end := loc[2*rule.Group], loc[2*rule.Group+1]
			if start < 0 {
				continue
			}
			matched := normalized[start:end]
			if rule.Reject != nil && rule.Reject(matched) {
				continue
			}
			spans = append(spans, span{
				finding: Finding{Kind: rule.Kind, MatchedText: matched},
				start:   start,
				end:     end,
				rule:    i,
			})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		if li, lj := spans[i].end-spans[i].start, spans[j].end-spans[j].start; li != lj {
			return li > lj
		}
		return spans[i].rule < spans[j].rule
	})

	var findings []Finding
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		findings = append(findings, s.finding)
		lastEnd = s.end
	}
	return findings
}

// Normalize folds text to NFKC.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Multi combines detectors; findings are concatenated in detector order.
func Multi(detectors ...Detector) Detector {
	return multiDetector(detectors)
}

type multiDetector []Detector

func (m multiDetector) Scan(text string) []Finding {
	var all []Finding
	for _, d := range m {
		all = append(all, d.Scan(text)...)
	}
	return all
}
