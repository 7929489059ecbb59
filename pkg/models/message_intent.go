package models

// VariableType is the declared type of an intent variable.
type VariableType string

const (
	VariableText   VariableType = "text"
	VariableNumber VariableType = "number"
	VariableChoice VariableType = "choice"
)

// IsValid reports whether t is one of the supported variable types.
func (t VariableType) IsValid() bool {
	switch t {
	case VariableText, VariableNumber, VariableChoice:
		return true
	default:
		return false
	}
}

// Well-known intent identifiers. The loaded catalog is the authoritative closed set;
// these constants exist so code can refer to intents without string literals.
const (
	IntentConfirmAvailability = "CONFIRM_AVAILABILITY"
	IntentRunningLate         = "RUNNING_LATE"
	IntentArrived             = "ARRIVED"
	IntentAskJobQuestion      = "ASK_JOB_QUESTION"
	IntentProposeTime         = "PROPOSE_TIME"
	IntentRequestReschedule   = "REQUEST_RESCHEDULE"
	IntentAcceptOffer         = "ACCEPT_OFFER"
	IntentDeclineJob          = "DECLINE_JOB"
	IntentJobCompleted        = "JOB_COMPLETED"
	IntentThankYou            = "THANK_YOU"
)

// IntentVariable declares one fillable slot of a message template.
type IntentVariable struct {
	Name        string       `json:"name" yaml:"name"`
	Label       string       `json:"label" yaml:"label"`
	Type        VariableType `json:"type" yaml:"type"`
	Required    bool         `json:"required" yaml:"required"`
	MaxLength   int          `json:"max_length,omitempty" yaml:"max_length,omitempty"` // 0 = unlimited
	Placeholder string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"` // choice only
	Min         *float64     `json:"min,omitempty" yaml:"min,omitempty"`         // number only
	Max         *float64     `json:"max,omitempty" yaml:"max,omitempty"`         // number only
}

// HasOption reports whether value is one of the declared choice options.
func (v IntentVariable) HasOption(value string) bool {
	for _, o := range v.Options {
		if o == value {
			return true
		}
	}
	return false
}

// MessageIntent is a static catalog entry: a fixed purpose with a template.
type MessageIntent struct {
	Intent      string           `json:"intent" yaml:"intent"`
	Label       string           `json:"label" yaml:"label"`
	Description string           `json:"description" yaml:"description"`
	Template    string           `json:"-" yaml:"template"` // never sent to the presentation layer
	Variables   []IntentVariable `json:"variables" yaml:"variables"`
}

// Variable looks up a declared variable by name.
func (m *MessageIntent) Variable(name string) (IntentVariable, bool) {
	for _, v := range m.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return IntentVariable{}, false
}
