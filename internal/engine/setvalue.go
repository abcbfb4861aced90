package engine

import "formflow-backend/internal/schema"

// ApplySetValue runs every setValue rule in the structure against the
// response map and returns a new map; the input is never mutated.
//
// Rules run in one forward sweep in section-then-question declaration order.
// Each rule whose condition holds against the current state of the sweep
// writes its target value to the owning question's fieldName, so a later
// rule observes earlier writes from the same pass, while an earlier rule
// never observes a later rule's write. There is no fixed-point iteration:
// a chain that depends on its own output settles over subsequent passes,
// not within one, which keeps a pass terminating for any rule set.
func ApplySetValue(s *schema.Structure, responses map[string]any) map[string]any {
	out := make(map[string]any, len(responses))
	for k, v := range responses {
		out[k] = v
	}

	for si := range s.Sections {
		sec := &s.Sections[si]
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			for _, rule := range q.Logic {
				if rule.Action != schema.ActionSetValue {
					continue
				}
				if Evaluate(rule, out) {
					out[q.FieldName] = rule.TargetValue
				}
			}
		}
	}
	return out
}
