package intents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youthhire/safety-engine/pkg/apperrors"
	"github.com/youthhire/safety-engine/pkg/models"
)

func mustDefaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func TestDefaultCatalog_Loads(t *testing.T) {
	c := mustDefaultCatalog(t)

	want := []string{
		models.IntentConfirmAvailability,
		models.IntentRunningLate,
		models.IntentArrived,
		models.IntentAskJobQuestion,
		models.IntentProposeTime,
		models.IntentRequestReschedule,
		models.IntentAcceptOffer,
		models.IntentDeclineJob,
		models.IntentJobCompleted,
		models.IntentThankYou,
	}

	var got []string
	for _, intent := range c.All() {
		got = append(got, intent.Intent)
		assert.NoError(t, ValidatePlaceholders(intent.Template, intent.Variables), intent.Intent)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, len(want), c.Len())
}

func TestCatalog_Get(t *testing.T) {
	c := mustDefaultCatalog(t)

	intent, err := c.Get(models.IntentRunningLate)
	require.NoError(t, err)
	assert.Equal(t, "I'm running about {minutes} minutes late.", intent.Template)

	_, err = c.Get("SEND_PHONE_NUMBER")
	assert.ErrorIs(t, err, apperrors.ErrUnknownIntent)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := mustDefaultCatalog(t)

	intent, err := c.Get(models.IntentProposeTime)
	require.NoError(t, err)
	intent.Variables[0].Options[0] = "Whenever"
	intent.Template = "changed"

	again, err := c.Get(models.IntentProposeTime)
	require.NoError(t, err)
	assert.Equal(t, "Monday", again.Variables[0].Options[0])
	assert.Equal(t, "Would {day} at {time} work for you?", again.Template)

	late, err := c.Get(models.IntentRunningLate)
	require.NoError(t, err)
	require.NotNil(t, late.Variables[0].Min)
	*late.Variables[0].Min = -100

	late, err = c.Get(models.IntentRunningLate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *late.Variables[0].Min)
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty",
			yaml:    "intents: []",
			wantErr: "no intents defined",
		},
		{
			name: "undeclared placeholder",
			yaml: `
intents:
  - intent: HELLO
    label: Hello
    template: "Hi {name}"
    variables: []`,
			wantErr: "placeholder {name} used in template but not declared",
		},
		{
			name: "unused variable",
			yaml: `
intents:
  - intent: HELLO
    label: Hello
    template: "Hi"
    variables:
      - {name: name, label: Name, type: text}`,
			wantErr: `variable "name" declared but not used`,
		},
		{
			name: "duplicate intent",
			yaml: `
intents:
  - {intent: HELLO, label: Hello, template: "Hi"}
  - {intent: HELLO, label: Hello again, template: "Hi again"}`,
			wantErr: "duplicate intent HELLO",
		},
		{
			name: "choice without options",
			yaml: `
intents:
  - intent: PICK
    label: Pick
    template: "{x}"
    variables:
      - {name: x, label: X, type: choice}`,
			wantErr: "has no options",
		},
		{
			name: "options on text",
			yaml: `
intents:
  - intent: PICK
    label: Pick
    template: "{x}"
    variables:
      - {name: x, label: X, type: text, options: [a]}`,
			wantErr: "declares options but is not a choice",
		},
		{
			name: "min on text",
			yaml: `
intents:
  - intent: PICK
    label: Pick
    template: "{x}"
    variables:
      - {name: x, label: X, type: text, min: 1}`,
			wantErr: "declares min/max but is not a number",
		},
		{
			name: "min above max",
			yaml: `
intents:
  - intent: COUNT
    label: Count
    template: "{n}"
    variables:
      - {name: n, label: N, type: number, min: 5, max: 2}`,
			wantErr: "has min above max",
		},
		{
			name: "unsupported type",
			yaml: `
intents:
  - intent: PICK
    label: Pick
    template: "{x}"
    variables:
      - {name: x, label: X, type: date}`,
			wantErr: `unsupported type "date"`,
		},
		{
			name: "lowercase id",
			yaml: `
intents:
  - {intent: hello, label: Hello, template: "Hi"}`,
			wantErr: "UPPER_SNAKE_CASE",
		},
		{
			name: "unknown field",
			yaml: `
intents:
  - {intent: HELLO, label: Hello, template: "Hi", free_text: true}`,
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
intents:
  - {intent: WAVE, label: Wave, template: "Hello!"}
`), 0o600))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExtractPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"day", "time"}, ExtractPlaceholders("Would {day} at {time} work? {day} is best."))
	assert.Empty(t, ExtractPlaceholders("No placeholders, not even {1bad} or { spaced }."))
}
