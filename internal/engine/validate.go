package engine

import (
	"fmt"
	"regexp"

	"formflow-backend/internal/schema"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate runs every validation rule of every visible and enabled question
// against the current answers, in declaration order. All failing rules are
// reported, not just the first, so one question can contribute several
// entries. Hidden or disabled questions are never validated, even when
// flagged required.
func Validate(s *schema.Structure, responses map[string]any, vis *Visibility, preds *PredicateRegistry) []ErrorDetail {
	var errs []ErrorDetail
	for si := range s.Sections {
		sec := &s.Sections[si]
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			flags := vis.QuestionFlags(q.FieldName)
			if !flags.Visible || !flags.Enabled {
				continue
			}
			val := responses[q.FieldName]
			for vi := range q.Validation {
				if detail := runValidationRule(&q.Validation[vi], q, val, responses, preds); detail != nil {
					errs = append(errs, *detail)
				}
			}
		}
	}
	return errs
}

func runValidationRule(rule *schema.ValidationRule, q *schema.Question, val any, responses map[string]any, preds *PredicateRegistry) *ErrorDetail {
	fail := func() *ErrorDetail {
		msg := rule.Message
		if msg == "" {
			msg = fmt.Sprintf("field %s failed %s validation", q.FieldName, rule.Kind)
		}
		return &ErrorDetail{Field: q.FieldName, Rule: rule.Kind, Message: msg}
	}

	switch rule.Kind {
	case schema.KindRequired:
		if isEmpty(val) {
			return fail()
		}

	case schema.KindMin, schema.KindMax:
		// Dual meaning dispatched on the question's declared type, not the
		// runtime shape of the answer: numeric bound for number questions,
		// length bound for everything else.
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if q.Type == schema.TypeNumber {
			num, ok := toFloat64(val)
			if !ok {
				return nil
			}
			if rule.Kind == schema.KindMin && num < threshold {
				return fail()
			}
			if rule.Kind == schema.KindMax && num > threshold {
				return fail()
			}
			return nil
		}
		length, ok := answerLength(val)
		if !ok {
			return nil
		}
		if rule.Kind == schema.KindMin && length < int(threshold) {
			return fail()
		}
		if rule.Kind == schema.KindMax && length > int(threshold) {
			return fail()
		}

	case schema.KindPattern:
		if isEmpty(val) {
			return nil
		}
		pattern, ok := rule.Value.(string)
		if !ok {
			return nil
		}
		s, ok := stringify(val)
		if !ok {
			// An answer that cannot be stringified fails the rule rather
			// than raising.
			return fail()
		}
		matched, err := regexp.MatchString(pattern, s)
		if err != nil || !matched {
			return fail()
		}

	case schema.KindEmail:
		if isEmpty(val) {
			return nil
		}
		s, ok := val.(string)
		if !ok || !emailPattern.MatchString(s) {
			return fail()
		}

	case schema.KindDate:
		if isEmpty(val) {
			return nil
		}
		if _, ok := parseDate(val); !ok {
			return fail()
		}

	case schema.KindCustom:
		if !runCustomRule(rule, val, responses, preds) {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("field %s failed custom validation", q.FieldName)
			}
			return &ErrorDetail{Field: q.FieldName, Rule: rule.Kind, Message: msg}
		}
	}

	return nil
}

// answerLength measures string answers in characters and list answers in
// elements. A missing answer measures zero; other shapes are not measurable.
func answerLength(val any) (int, bool) {
	switch v := val.(type) {
	case nil:
		return 0, true
	case string:
		return len(v), true
	case []any:
		return len(v), true
	case []string:
		return len(v), true
	}
	return 0, false
}
