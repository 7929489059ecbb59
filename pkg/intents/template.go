package intents

import (
	"fmt"
	"regexp"

	"github.com/youthhire/safety-engine/pkg/models"
)

// placeholderRegex matches {name} tokens in intent templates.
// Names start with a letter or underscore, followed by word characters.
var placeholderRegex = regexp.MustCompile(`\{([a-zA-Z_]\w*)\}`)

// ExtractPlaceholders returns the placeholder names in template, deduplicated,
// in order of first appearance.
//
// Example:
//
//	ExtractPlaceholders("Would {day} at {time} work? {day} is best for me.")
//	// []string{"day", "time"}
func ExtractPlaceholders(template string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var names []string

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// ValidatePlaceholders checks that the template's placeholders and the
// declared variables match exactly.
//
// Returns an error if:
//   - a {name} placeholder appears in the template but is not declared
//   - a variable is declared but never used in the template
func ValidatePlaceholders(template string, vars []models.IntentVariable) error {
	used := make(map[string]bool)
	for _, name := range ExtractPlaceholders(template) {
		used[name] = true
	}

	declared := make(map[string]bool)
	for _, v := range vars {
		declared[v.Name] = true
	}

	for _, name := range ExtractPlaceholders(template) {
		if !declared[name] {
			return fmt.Errorf("placeholder {%s} used in template but not declared", name)
		}
	}

	for _, v := range vars {
		if !used[v.Name] {
			return fmt.Errorf("variable %q declared but not used in template", v.Name)
		}
	}

	return nil
}

// substitute replaces every placeholder with its value in a single pass over
// the template. Values are inserted literally; a value that itself looks like
// a placeholder is never expanded.
func substitute(template string, values map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		return values[name]
	})
}
