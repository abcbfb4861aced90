package engine

import (
	"errors"
	"testing"

	"formflow-backend/internal/schema"
)

func oneQuestion(q schema.Question) *schema.Structure {
	return &schema.Structure{
		ID: "s", Name: "s", Type: "t",
		Sections: []schema.Section{{ID: "sec", Title: "Sec", Questions: []schema.Question{q}}},
	}
}

func validateOne(t *testing.T, q schema.Question, responses map[string]any) []ErrorDetail {
	t.Helper()
	s := oneQuestion(q)
	return Validate(s, responses, ResolveVisibility(s, responses), nil)
}

func TestValidate_AllFailuresReported(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{
			{Kind: schema.KindRequired, Message: "name is required"},
			{Kind: schema.KindMin, Value: 2, Message: "name too short"},
		},
	}

	errs := validateOne(t, q, map[string]any{"name": ""})
	if len(errs) != 2 {
		t.Fatalf("expected both rules to fail, got %v", errs)
	}
	if errs[0].Rule != schema.KindRequired || errs[1].Rule != schema.KindMin {
		t.Fatalf("expected declaration order, got %v", errs)
	}
	if errs[0].Message != "name is required" || errs[1].Message != "name too short" {
		t.Fatalf("unexpected messages %v", errs)
	}
}

func TestValidate_HiddenAndDisabledSkipped(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Prenup date", Required: true, FieldName: "prenupDate",
		Logic: []schema.ConditionalRule{
			{Field: "hasPrenup", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionShow},
		},
		Validation: []schema.ValidationRule{{Kind: schema.KindRequired}},
	}
	if errs := validateOne(t, q, map[string]any{"hasPrenup": "no"}); len(errs) != 0 {
		t.Fatalf("expected hidden question skipped, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"hasPrenup": "yes"}); len(errs) != 1 {
		t.Fatalf("expected visible question validated, got %v", errs)
	}

	q = schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Spouse address", FieldName: "spouseAddress",
		Logic: []schema.ConditionalRule{
			{Field: "addressKnown", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionEnable},
		},
		Validation: []schema.ValidationRule{{Kind: schema.KindRequired}},
	}
	if errs := validateOne(t, q, map[string]any{}); len(errs) != 0 {
		t.Fatalf("expected disabled question skipped, got %v", errs)
	}
}

func TestValidate_MinMaxOnNumberQuestion(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeNumber, Label: "Children", FieldName: "childCount",
		Validation: []schema.ValidationRule{
			{Kind: schema.KindMin, Value: 0},
			{Kind: schema.KindMax, Value: 20},
		},
	}

	if errs := validateOne(t, q, map[string]any{"childCount": 3}); len(errs) != 0 {
		t.Fatalf("expected in-range value to pass, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"childCount": -1}); len(errs) != 1 || errs[0].Rule != schema.KindMin {
		t.Fatalf("expected min failure, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"childCount": float64(21)}); len(errs) != 1 || errs[0].Rule != schema.KindMax {
		t.Fatalf("expected max failure, got %v", errs)
	}
	// Non-numeric answer on a number question is not comparable
	if errs := validateOne(t, q, map[string]any{"childCount": "three"}); len(errs) != 0 {
		t.Fatalf("expected non-numeric answer skipped, got %v", errs)
	}
}

func TestValidate_MinMaxAsLength(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{
			{Kind: schema.KindMin, Value: 2},
			{Kind: schema.KindMax, Value: 5},
		},
	}
	if errs := validateOne(t, q, map[string]any{"name": "Jo"}); len(errs) != 0 {
		t.Fatalf("expected length 2 to pass, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"name": "J"}); len(errs) != 1 || errs[0].Rule != schema.KindMin {
		t.Fatalf("expected min length failure, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"name": "Josephine"}); len(errs) != 1 || errs[0].Rule != schema.KindMax {
		t.Fatalf("expected max length failure, got %v", errs)
	}

	q = schema.Question{
		ID: "q1", Type: schema.TypeMultiSelect, Label: "Grounds", FieldName: "grounds",
		Validation: []schema.ValidationRule{{Kind: schema.KindMin, Value: 1}},
	}
	if errs := validateOne(t, q, map[string]any{"grounds": []any{}}); len(errs) != 1 {
		t.Fatalf("expected empty selection below min, got %v", errs)
	}
	if errs := validateOne(t, q, map[string]any{"grounds": []any{"irreconcilable"}}); len(errs) != 0 {
		t.Fatalf("expected one selection to pass, got %v", errs)
	}
	// Missing answer measures zero
	if errs := validateOne(t, q, map[string]any{}); len(errs) != 1 {
		t.Fatalf("expected missing answer below min, got %v", errs)
	}
}

func TestValidate_PatternEmailDate(t *testing.T) {
	pattern := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Case number", FieldName: "caseNumber",
		Validation: []schema.ValidationRule{{Kind: schema.KindPattern, Value: `^\d{4}-D-\d+$`}},
	}
	if errs := validateOne(t, pattern, map[string]any{"caseNumber": "2024-D-001234"}); len(errs) != 0 {
		t.Fatalf("expected matching value to pass, got %v", errs)
	}
	if errs := validateOne(t, pattern, map[string]any{"caseNumber": "nope"}); len(errs) != 1 {
		t.Fatalf("expected non-matching value to fail, got %v", errs)
	}
	if errs := validateOne(t, pattern, map[string]any{}); len(errs) != 0 {
		t.Fatalf("expected empty value skipped by pattern, got %v", errs)
	}

	email := schema.Question{
		ID: "q2", Type: schema.TypeShortText, Label: "Email", FieldName: "email",
		Validation: []schema.ValidationRule{{Kind: schema.KindEmail}},
	}
	if errs := validateOne(t, email, map[string]any{"email": "maria@example.com"}); len(errs) != 0 {
		t.Fatalf("expected well-formed email to pass, got %v", errs)
	}
	if errs := validateOne(t, email, map[string]any{"email": "not-an-email"}); len(errs) != 1 {
		t.Fatalf("expected malformed email to fail, got %v", errs)
	}

	date := schema.Question{
		ID: "q3", Type: schema.TypeDate, Label: "Marriage date", FieldName: "marriageDate",
		Validation: []schema.ValidationRule{{Kind: schema.KindDate}},
	}
	if errs := validateOne(t, date, map[string]any{"marriageDate": "2019-06-15"}); len(errs) != 0 {
		t.Fatalf("expected ISO date to pass, got %v", errs)
	}
	if errs := validateOne(t, date, map[string]any{"marriageDate": "mid June"}); len(errs) != 1 {
		t.Fatalf("expected unparseable date to fail, got %v", errs)
	}
}

func TestValidate_DefaultMessage(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{{Kind: schema.KindRequired}},
	}
	errs := validateOne(t, q, map[string]any{})
	if len(errs) != 1 {
		t.Fatalf("expected one failure, got %v", errs)
	}
	if errs[0].Message != "field name failed required validation" {
		t.Fatalf("unexpected default message %q", errs[0].Message)
	}
}

func TestValidate_CustomPredicate(t *testing.T) {
	preds := NewPredicateRegistry()
	preds.Register("past_date", func(value any, responses map[string]any) (bool, error) {
		s, _ := value.(string)
		return s < "2026-01-01", nil
	})

	q := schema.Question{
		ID: "q1", Type: schema.TypeDate, Label: "Separation date", FieldName: "separationDate",
		Validation: []schema.ValidationRule{
			{Kind: schema.KindCustom, Predicate: "past_date", Message: "must be in the past"},
		},
	}
	s := oneQuestion(q)

	responses := map[string]any{"separationDate": "2020-03-01"}
	if errs := Validate(s, responses, ResolveVisibility(s, responses), preds); len(errs) != 0 {
		t.Fatalf("expected past date to pass, got %v", errs)
	}

	responses = map[string]any{"separationDate": "2030-01-01"}
	errs := Validate(s, responses, ResolveVisibility(s, responses), preds)
	if len(errs) != 1 || errs[0].Message != "must be in the past" {
		t.Fatalf("expected custom failure, got %v", errs)
	}
}

func TestValidate_CustomPredicateFaults(t *testing.T) {
	preds := NewPredicateRegistry()
	preds.Register("panics", func(value any, responses map[string]any) (bool, error) {
		panic("boom")
	})
	preds.Register("errors", func(value any, responses map[string]any) (bool, error) {
		return true, errors.New("lookup failed")
	})

	for _, name := range []string{"panics", "errors", "unregistered"} {
		q := schema.Question{
			ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
			Validation: []schema.ValidationRule{{Kind: schema.KindCustom, Predicate: name}},
		}
		s := oneQuestion(q)
		responses := map[string]any{"name": "Maria"}
		errs := Validate(s, responses, ResolveVisibility(s, responses), preds)
		if len(errs) != 1 {
			t.Fatalf("predicate %s: expected faulting rule to report invalid, got %v", name, errs)
		}
	}
}

func TestValidate_CustomExpression(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeNumber, Label: "Income", FieldName: "income",
		Validation: []schema.ValidationRule{
			{Kind: schema.KindCustom, Expr: `value != nil && value >= answers["expenses"]`, Message: "income below expenses"},
		},
	}
	s := oneQuestion(q)

	responses := map[string]any{"income": 5000, "expenses": 3000}
	if errs := Validate(s, responses, ResolveVisibility(s, responses), nil); len(errs) != 0 {
		t.Fatalf("expected expression to pass, got %v", errs)
	}

	responses = map[string]any{"income": 1000, "expenses": 3000}
	errs := Validate(s, responses, ResolveVisibility(s, responses), nil)
	if len(errs) != 1 || errs[0].Message != "income below expenses" {
		t.Fatalf("expected expression failure, got %v", errs)
	}
}

func TestValidate_ExpressionRuleNotMutated(t *testing.T) {
	// Uncompiled rules are evaluated with a locally compiled program; the
	// shared rule itself is never written during a pass.
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{{Kind: schema.KindCustom, Expr: `value == "Maria"`}},
	}
	s := oneQuestion(q)
	responses := map[string]any{"name": "Maria"}

	if errs := Validate(s, responses, ResolveVisibility(s, responses), nil); len(errs) != 0 {
		t.Fatalf("expected pass, got %v", errs)
	}
	if s.Sections[0].Questions[0].Validation[0].Compiled != nil {
		t.Fatal("expected evaluation to leave the rule untouched")
	}
}

func TestValidate_UsesCompiledProgram(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{{Kind: schema.KindCustom, Expr: `value == "Maria"`, Message: "wrong name"}},
	}
	s := oneQuestion(q)
	if issues := schema.CheckStructure(s); len(issues) != 0 {
		t.Fatalf("expected clean structure, got %v", issues)
	}
	if s.Sections[0].Questions[0].Validation[0].Compiled == nil {
		t.Fatal("expected load-time compilation")
	}

	responses := map[string]any{"name": "Ana"}
	errs := Validate(s, responses, ResolveVisibility(s, responses), nil)
	if len(errs) != 1 || errs[0].Message != "wrong name" {
		t.Fatalf("expected compiled program evaluated, got %v", errs)
	}
}

func TestValidate_BadExpressionIsFailure(t *testing.T) {
	q := schema.Question{
		ID: "q1", Type: schema.TypeShortText, Label: "Name", FieldName: "name",
		Validation: []schema.ValidationRule{{Kind: schema.KindCustom, Expr: "value +"}},
	}
	s := oneQuestion(q)
	responses := map[string]any{"name": "Maria"}
	if errs := Validate(s, responses, ResolveVisibility(s, responses), nil); len(errs) != 1 {
		t.Fatalf("expected uncompilable expression to fail the rule, got %v", errs)
	}
}
