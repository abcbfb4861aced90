package engine

import "formflow-backend/internal/schema"

// Flags is the derived display state of one section or question.
type Flags struct {
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}

// Visibility maps section IDs and question fieldNames to their derived flags.
type Visibility struct {
	Sections  map[string]Flags `json:"sections"`
	Questions map[string]Flags `json:"questions"`
}

// SectionFlags returns the flags for a section ID, defaulting to fully shown.
func (v *Visibility) SectionFlags(sectionID string) Flags {
	if f, ok := v.Sections[sectionID]; ok {
		return f
	}
	return Flags{Visible: true, Enabled: true}
}

// QuestionFlags returns the flags for a question fieldName, defaulting to
// fully shown.
func (v *Visibility) QuestionFlags(fieldName string) Flags {
	if f, ok := v.Questions[fieldName]; ok {
		return f
	}
	return Flags{Visible: true, Enabled: true}
}

// ResolveVisibility derives show/hide/enable/disable state for every section
// and question. It is a pure read-only query over the structure and the
// response snapshot, safe to call on every keystroke: setValue actions are
// applied separately by ApplySetValue.
//
// Flags start visible and enabled, except that an item carrying show rules
// starts hidden (it exists to be revealed) and an item carrying enable rules
// starts disabled. Rules run in declaration order, sections first, then each
// section's questions; a rule whose condition holds overwrites its flag
// unconditionally, so when several rules target the same flag the last one
// whose condition is true wins. A show/enable rule whose condition is false
// leaves the flag untouched, so later hide/disable rules still apply.
func ResolveVisibility(s *schema.Structure, responses map[string]any) *Visibility {
	vis := &Visibility{
		Sections:  make(map[string]Flags, len(s.Sections)),
		Questions: make(map[string]Flags, s.QuestionCount()),
	}

	for si := range s.Sections {
		sec := &s.Sections[si]
		secFlags := initialFlags(sec.Logic)
		for _, rule := range sec.Logic {
			secFlags = applyFlagRule(secFlags, rule, responses)
		}
		vis.Sections[sec.ID] = secFlags

		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			qFlags := initialFlags(q.Logic)
			for _, rule := range q.Logic {
				qFlags = applyFlagRule(qFlags, rule, responses)
			}
			// Section visibility dominates: a question inside a hidden
			// section is hidden no matter what its own rules decided.
			if !secFlags.Visible {
				qFlags.Visible = false
			}
			vis.Questions[q.FieldName] = qFlags
		}
	}
	return vis
}

func initialFlags(rules []schema.ConditionalRule) Flags {
	f := Flags{Visible: true, Enabled: true}
	for _, rule := range rules {
		switch rule.Action {
		case schema.ActionShow:
			f.Visible = false
		case schema.ActionEnable:
			f.Enabled = false
		}
	}
	return f
}

func applyFlagRule(f Flags, rule schema.ConditionalRule, responses map[string]any) Flags {
	if rule.Action == schema.ActionSetValue {
		return f
	}
	if !Evaluate(rule, responses) {
		return f
	}
	switch rule.Action {
	case schema.ActionShow:
		f.Visible = true
	case schema.ActionHide:
		f.Visible = false
	case schema.ActionEnable:
		f.Enabled = true
	case schema.ActionDisable:
		f.Enabled = false
	}
	return f
}
