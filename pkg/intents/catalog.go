// Package intents holds the closed catalog of structured message intents and
// the renderer that turns an intent plus typed variables into message text.
package intents

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	intentIDRegex     = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	variableNameRegex = regexp.MustCompile(`^[a-zA-Z_]\w*$`)
)

type catalogFile struct {
	Intents []models.MessageIntent `yaml:"intents"`
}

// Catalog is the immutable set of allowed message intents.
// It is built once at startup and safe for concurrent reads.
type Catalog struct {
	intents []models.MessageIntent
	byID    map[string]int
}

// LoadCatalog parses and validates a YAML catalog definition.
// Unknown fields are rejected so typos in the definition fail loudly.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", apperrors.ErrInvalidCatalog, err)
	}

	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("%w: no intents defined", apperrors.ErrInvalidCatalog)
	}

	c := &Catalog{
		intents: make([]models.MessageIntent, 0, len(file.Intents)),
		byID:    make(map[string]int, len(file.Intents)),
	}
	for _, intent := range file.Intents {
		if err := validateIntent(intent); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidCatalog, intent.Intent, err)
		}
		if _, dup := c.byID[intent.Intent]; dup {
			return nil, fmt.Errorf("%w: duplicate intent %s", apperrors.ErrInvalidCatalog, intent.Intent)
		}
		if intent.Variables == nil {
			intent.Variables = []models.IntentVariable{}
		}
		c.byID[intent.Intent] = len(c.intents)
		c.intents = append(c.intents, intent)
	}

	return c, nil
}

// LoadCatalogFile reads a catalog definition from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent catalog %s: %w", path, err)
	}
	return LoadCatalog(data)
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

// All returns every intent in definition order. The result is a copy.
func (c *Catalog) All() []models.MessageIntent {
	out := make([]models.MessageIntent, len(c.intents))
	for i, intent := range c.intents {
		out[i] = cloneIntent(intent)
	}
	return out
}

// Get returns the intent with the given identifier, or ErrUnknownIntent.
func (c *Catalog) Get(id string) (models.MessageIntent, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.MessageIntent{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownIntent, id)
	}
	return cloneIntent(c.intents[i]), nil
}

// Len returns the number of intents.
func (c *Catalog) Len() int {
	return len(c.intents)
}

func cloneIntent(in models.MessageIntent) models.MessageIntent {
	out := in
	out.Variables = make([]models.IntentVariable, len(in.Variables))
	for i, v := range in.Variables {
		if v.Options != nil {
			v.Options = append([]string(nil), v.Options...)
		}
		v.Min = cloneFloat(v.Min)
		v.Max = cloneFloat(v.Max)
		out.Variables[i] = v
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	copied := *f
	return &copied
}

func validateIntent(intent models.MessageIntent) error {
	if !intentIDRegex.MatchString(intent.Intent) {
		return fmt.Errorf("intent id %q must be UPPER_SNAKE_CASE", intent.Intent)
	}
	if intent.Label == "" {
		return fmt.Errorf("label is required")
	}
	if intent.Template == "" {
		return fmt.Errorf("template is required")
	}

	names := make(map[string]bool)
	for _, v := range intent.Variables {
		if !variableNameRegex.MatchString(v.Name) {
			return fmt.Errorf("invalid variable name %q", v.Name)
		}
		if names[v.Name] {
			return fmt.Errorf("duplicate variable %q", v.Name)
		}
		names[v.Name] = true

		if !v.Type.IsValid() {
			return fmt.Errorf("variable %q has unsupported type %q", v.Name, v.Type)
		}
		if v.MaxLength < 0 {
			return fmt.Errorf("variable %q has negative max_length", v.Name)
		}

		switch v.Type {
		case models.VariableChoice:
			if len(v.Options) == 0 {
				return fmt.Errorf("choice variable %q has no options", v.Name)
			}
			seen := make(map[string]bool)
			for _, o := range v.Options {
				if o == "" || seen[o] {
					return fmt.Errorf("choice variable %q has empty or duplicate option %q", v.Name, o)
				}
				seen[o] = true
			}
		default:
			if len(v.Options) > 0 {
				return fmt.Errorf("variable %q declares options but is not a choice", v.Name)
			}
		}

		if v.Type != models.VariableNumber && (v.Min != nil || v.Max != nil) {
			return fmt.Errorf("variable %q declares min/max but is not a number", v.Name)
		}
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return fmt.Errorf("variable %q has min above max", v.Name)
		}
	}

	return ValidatePlaceholders(intent.Template, intent.Variables)
}
