package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/youthhire/safety-engine/pkg/leakcheck"
)

const (
	// MaxValueLogLength is the maximum number of characters of a user-supplied value to log
	MaxValueLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, password='x y', pwd=xxx, pass=xxx
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=('(?:[^'\\]|\\.)*'|[^;&\s]+)`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from connection strings.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging any error from database or redis operations.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionString(err.Error())
}

// RedactContactInfo replaces every contact-information finding in text with
// RedactedText. Blocked submissions are logged through this so operators can
// see what was attempted without the log itself leaking a phone number.
func RedactContactInfo(text string, detector leakcheck.Detector) string {
	if text == "" {
		return ""
	}

	normalized := leakcheck.Normalize(text)
	findings := detector.Scan(normalized)
	if len(findings) == 0 {
		return normalized
	}

	literals := make([]string, 0, len(findings))
	for _, f := range findings {
		literals = append(literals, regexp.QuoteMeta(f.MatchedText))
	}
	pattern := regexp.MustCompile(strings.Join(literals, "|"))
	return pattern.ReplaceAllLiteralString(normalized, RedactedText)
}

// SanitizeValue redacts contact information and truncates a user-supplied value for logging.
func SanitizeValue(value string, detector leakcheck.Detector) string {
	return TruncateString(RedactContactInfo(value, detector), MaxValueLogLength)
}

// TruncateString truncates s to maxLen characters and adds an ellipsis if needed.
// Multi-byte characters are never split.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
