package schema

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a load-time structural diagnostic, addressed to the maintainer of
// the questionnaire definition. Evaluation itself never raises these; a
// structure with error-level issues is rejected at load/save time.
type Issue struct {
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

var validOperators = map[string]bool{
	OpEquals: true, OpNotEquals: true, OpContains: true,
	OpGreaterThan: true, OpLessThan: true, OpIsEmpty: true, OpIsNotEmpty: true,
}

var validActions = map[string]bool{
	ActionShow: true, ActionHide: true, ActionEnable: true,
	ActionDisable: true, ActionSetValue: true,
}

var validKinds = map[string]bool{
	KindRequired: true, KindMin: true, KindMax: true, KindPattern: true,
	KindEmail: true, KindDate: true, KindCustom: true,
}

var validQuestionTypes = map[string]bool{
	TypeShortText: true, TypeLongText: true, TypeNumber: true, TypeDate: true,
	TypeSingleSelect: true, TypeMultiSelect: true, TypeCheckbox: true,
	TypeEmail: true, TypePhone: true, TypeAddress: true, TypeYesNo: true,
}

// CheckStructure validates the structural invariants of a questionnaire
// definition: unique IDs and fieldNames, known tags, and conditional rules
// that reference fields which actually exist.
func CheckStructure(s *Structure) []Issue {
	var issues []Issue
	add := func(severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: severity, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if s.ID == "" {
		add(SeverityError, "id", "structure id is empty")
	}
	if s.Type == "" {
		add(SeverityError, "type", "structure type tag is empty")
	}
	if len(s.Sections) == 0 {
		add(SeverityError, "sections", "structure has no sections")
	}

	sectionIDs := make(map[string]bool)
	questionIDs := make(map[string]map[string]bool)
	fieldNames := make(map[string]string) // fieldName -> path of first use

	for si := range s.Sections {
		sec := &s.Sections[si]
		secPath := fmt.Sprintf("sections[%d]", si)
		if sec.ID == "" {
			add(SeverityError, secPath+".id", "section id is empty")
		} else if sectionIDs[sec.ID] {
			add(SeverityError, secPath+".id", "duplicate section id %q", sec.ID)
		}
		sectionIDs[sec.ID] = true
		questionIDs[sec.ID] = make(map[string]bool)

		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			qPath := fmt.Sprintf("%s.questions[%d]", secPath, qi)
			if q.ID == "" {
				add(SeverityError, qPath+".id", "question id is empty")
			} else if questionIDs[sec.ID][q.ID] {
				add(SeverityError, qPath+".id", "duplicate question id %q in section %q", q.ID, sec.ID)
			}
			questionIDs[sec.ID][q.ID] = true

			if !validQuestionTypes[q.Type] {
				add(SeverityError, qPath+".type", "unknown question type %q", q.Type)
			}
			if q.FieldName == "" {
				add(SeverityError, qPath+".fieldName", "question fieldName is empty")
			} else if prev, dup := fieldNames[q.FieldName]; dup {
				add(SeverityError, qPath+".fieldName", "fieldName %q already used at %s", q.FieldName, prev)
			} else {
				fieldNames[q.FieldName] = qPath
			}
			if IsSelectType(q.Type) && len(q.Options) == 0 {
				add(SeverityWarning, qPath+".options", "select question %q has no options", q.FieldName)
			}
		}
	}

	// Rules are checked in a second sweep so cross-section field references
	// resolve against the complete fieldName set.
	for si := range s.Sections {
		sec := &s.Sections[si]
		secPath := fmt.Sprintf("sections[%d]", si)
		for ri := range sec.Logic {
			checkConditionalRule(&sec.Logic[ri], fmt.Sprintf("%s.logic[%d]", secPath, ri), "", s, add)
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			qPath := fmt.Sprintf("%s.questions[%d]", secPath, qi)
			for ri := range q.Logic {
				checkConditionalRule(&q.Logic[ri], fmt.Sprintf("%s.logic[%d]", qPath, ri), q.FieldName, s, add)
			}
			for vi := range q.Validation {
				checkValidationRule(&q.Validation[vi], fmt.Sprintf("%s.validation[%d]", qPath, vi), add)
			}
		}
	}

	issues = append(issues, checkSetValueCycles(s)...)
	return issues
}

// HasErrors returns true if any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func checkConditionalRule(rule *ConditionalRule, path, owningField string, s *Structure, add func(string, string, string, ...any)) {
	if !validOperators[rule.Operator] {
		add(SeverityError, path+".operator", "unknown operator %q", rule.Operator)
	}
	if !validActions[rule.Action] {
		add(SeverityError, path+".action", "unknown action %q", rule.Action)
	}
	if rule.Field == "" {
		add(SeverityError, path+".field", "rule field is empty")
	} else if !s.HasField(rule.Field) {
		add(SeverityError, path+".field", "rule references nonexistent field %q", rule.Field)
	}
	if rule.Action == ActionSetValue {
		if owningField == "" {
			add(SeverityError, path+".action", "setValue is only valid on question rules")
		}
		if rule.TargetValue == nil {
			add(SeverityError, path+".targetValue", "setValue rule has no target value")
		}
	}
	if rule.Value == nil && rule.Operator != OpIsEmpty && rule.Operator != OpIsNotEmpty {
		add(SeverityWarning, path+".value", "operator %q with no comparison value", rule.Operator)
	}
}

func checkValidationRule(rule *ValidationRule, path string, add func(string, string, string, ...any)) {
	if !validKinds[rule.Kind] {
		add(SeverityError, path+".kind", "unknown validation kind %q", rule.Kind)
		return
	}
	switch rule.Kind {
	case KindMin, KindMax:
		if rule.Value == nil {
			add(SeverityError, path+".value", "%s rule has no comparison value", rule.Kind)
		}
	case KindPattern:
		pattern, ok := rule.Value.(string)
		if !ok {
			add(SeverityError, path+".value", "pattern rule value must be a string")
		} else if _, err := regexp.Compile(pattern); err != nil {
			add(SeverityError, path+".value", "invalid pattern: %v", err)
		}
	case KindCustom:
		if rule.Predicate == "" && rule.Expr == "" {
			add(SeverityError, path, "custom rule names no predicate and carries no expression")
		}
		if rule.Expr != "" {
			prog, err := CompilePredicate(rule.Expr)
			if err != nil {
				add(SeverityError, path+".expr", "invalid expression: %v", err)
			} else {
				rule.Compiled = prog
			}
		}
	}
}

// CompilePredicate compiles a custom validation expression. The program sees
// value (the answer under validation) and answers (the full response map) and
// must yield a boolean; true means the answer is valid. CheckStructure calls
// this for every expression-bearing rule, so loaded structures carry their
// programs and evaluation never compiles.
func CompilePredicate(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile predicate expression: %w", err)
	}
	return prog, nil
}

// checkSetValueCycles reports setValue rules whose written fields form a
// dependency cycle. Evaluation is a single forward sweep and terminates
// regardless, so a cycle is a warning: the chain will not converge within
// one pass.
func checkSetValueCycles(s *Structure) []Issue {
	// edge: written field -> field its condition reads
	deps := make(map[string][]string)
	for si := range s.Sections {
		for qi := range s.Sections[si].Questions {
			q := &s.Sections[si].Questions[qi]
			for _, rule := range q.Logic {
				if rule.Action == ActionSetValue && rule.Field != "" {
					deps[q.FieldName] = append(deps[q.FieldName], rule.Field)
				}
			}
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var issues []Issue
	var visit func(field string) bool
	visit = func(field string) bool {
		switch state[field] {
		case inStack:
			return true
		case done:
			return false
		}
		state[field] = inStack
		for _, dep := range deps[field] {
			if visit(dep) {
				state[field] = done
				return true
			}
		}
		state[field] = done
		return false
	}

	for field := range deps {
		if state[field] == unvisited && visit(field) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "logic",
				Message:  fmt.Sprintf("setValue rules around field %q form a dependency cycle; a single evaluation pass will not converge", field),
			})
		}
	}
	return issues
}
