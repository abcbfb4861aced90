package schema

// Question type tags. The type drives both rendering and how min/max
// validation is interpreted (numeric for number, length for everything else).
const (
	TypeShortText    = "short_text"
	TypeLongText     = "long_text"
	TypeNumber       = "number"
	TypeDate         = "date"
	TypeSingleSelect = "single_select"
	TypeMultiSelect  = "multi_select"
	TypeCheckbox     = "checkbox"
	TypeEmail        = "email"
	TypePhone        = "phone"
	TypeAddress      = "address"
	TypeYesNo        = "yes_no"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "notEquals"
	OpContains    = "contains"
	OpGreaterThan = "greaterThan"
	OpLessThan    = "lessThan"
	OpIsEmpty     = "isEmpty"
	OpIsNotEmpty  = "isNotEmpty"
)

// Conditional logic actions.
const (
	ActionShow     = "show"
	ActionHide     = "hide"
	ActionEnable   = "enable"
	ActionDisable  = "disable"
	ActionSetValue = "setValue"
)

// Validation rule kinds.
const (
	KindRequired = "required"
	KindMin      = "min"
	KindMax      = "max"
	KindPattern  = "pattern"
	KindEmail    = "email"
	KindDate     = "date"
	KindCustom   = "custom"
)

// Structure is the declarative schema for one questionnaire workflow
// (e.g. "petition", "marital_settlement"). Stored as a JSON document in
// _structures; immutable during an evaluation pass.
type Structure struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Version  int       `json:"version,omitempty"`
	Sections []Section `json:"sections"`
	Meta     *Meta     `json:"meta,omitempty"`
}

// Meta carries optional guidance shown alongside the questionnaire.
type Meta struct {
	EstimatedMinutes  int      `json:"estimatedMinutes,omitempty"`
	RequiredDocuments []string `json:"requiredDocuments,omitempty"`
	HelpLinks         []string `json:"helpLinks,omitempty"`
}

// Section is an ordered group of questions. Question order is both display
// order and the tie-break order for conditional rule evaluation.
type Section struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Questions   []Question        `json:"questions"`
	Logic       []ConditionalRule `json:"logic,omitempty"`
}

type Question struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	HelpText    string            `json:"helpText,omitempty"`
	Required    bool              `json:"required,omitempty"`
	Default     any               `json:"default,omitempty"`
	Options     []Option          `json:"options,omitempty"`
	Validation  []ValidationRule  `json:"validation,omitempty"`
	Logic       []ConditionalRule `json:"logic,omitempty"`
	// FieldName keys this question's answer in the flat response map.
	// Unique across the whole structure, not just the owning section.
	FieldName string `json:"fieldName"`
}

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ValidationRule constrains a question's answer. For kind "custom" the rule
// names an injected predicate or carries an expression; the persisted
// document stays data-only either way.
type ValidationRule struct {
	Kind      string `json:"kind"`
	Value     any    `json:"value,omitempty"`
	Message   string `json:"message,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Expr      string `json:"expr,omitempty"`
	Compiled  any    `json:"-"` // expr program, compiled by CheckStructure
}

// ConditionalRule pairs a condition over some field (possibly in another
// section) with an action on the owning question or section.
type ConditionalRule struct {
	Field       string `json:"field"`
	Operator    string `json:"operator"`
	Value       any    `json:"value,omitempty"`
	Action      string `json:"action"`
	TargetValue any    `json:"targetValue,omitempty"`
}

// QuestionByField returns a pointer to the question keyed by fieldName, or nil.
func (s *Structure) QuestionByField(fieldName string) *Question {
	for i := range s.Sections {
		for j := range s.Sections[i].Questions {
			if s.Sections[i].Questions[j].FieldName == fieldName {
				return &s.Sections[i].Questions[j]
			}
		}
	}
	return nil
}

// HasField returns true if any question uses the given fieldName.
func (s *Structure) HasField(fieldName string) bool {
	return s.QuestionByField(fieldName) != nil
}

// FieldNames returns all fieldNames in declaration order.
func (s *Structure) FieldNames() []string {
	var names []string
	for i := range s.Sections {
		for j := range s.Sections[i].Questions {
			names = append(names, s.Sections[i].Questions[j].FieldName)
		}
	}
	return names
}

// QuestionCount returns the total number of questions across all sections.
func (s *Structure) QuestionCount() int {
	n := 0
	for i := range s.Sections {
		n += len(s.Sections[i].Questions)
	}
	return n
}

// IsSelectType returns true for question types that carry an options list.
func IsSelectType(questionType string) bool {
	return questionType == TypeSingleSelect || questionType == TypeMultiSelect
}
