package engine

import (
	"testing"

	"formflow-backend/internal/schema"
)

func setValueStructure() *schema.Structure {
	return &schema.Structure{
		ID: "s", Name: "s", Type: "t",
		Sections: []schema.Section{{
			ID: "sec", Title: "Sec",
			Questions: []schema.Question{
				{ID: "q1", Type: schema.TypeYesNo, Label: "Joint filing?", FieldName: "jointFiling"},
				{
					ID: "q2", Type: schema.TypeShortText, Label: "Filing type", FieldName: "filingType",
					Logic: []schema.ConditionalRule{
						{Field: "jointFiling", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionSetValue, TargetValue: "joint"},
					},
				},
				{
					ID: "q3", Type: schema.TypeShortText, Label: "Fee schedule", FieldName: "feeSchedule",
					Logic: []schema.ConditionalRule{
						{Field: "filingType", Operator: schema.OpEquals, Value: "joint", Action: schema.ActionSetValue, TargetValue: "reduced"},
					},
				},
			},
		}},
	}
}

func TestApplySetValue_WritesOwningField(t *testing.T) {
	s := setValueStructure()

	out := ApplySetValue(s, map[string]any{"jointFiling": "yes"})
	if out["filingType"] != "joint" {
		t.Fatalf("expected filingType=joint, got %v", out["filingType"])
	}

	out = ApplySetValue(s, map[string]any{"jointFiling": "no"})
	if _, ok := out["filingType"]; ok {
		t.Fatal("expected no write when condition is false")
	}
}

func TestApplySetValue_ReturnsNewMap(t *testing.T) {
	s := setValueStructure()
	responses := map[string]any{"jointFiling": "yes"}

	out := ApplySetValue(s, responses)
	if _, ok := responses["filingType"]; ok {
		t.Fatal("expected input map untouched")
	}
	if out["filingType"] != "joint" {
		t.Fatalf("expected write in returned map, got %v", out["filingType"])
	}
}

func TestApplySetValue_ForwardChaining(t *testing.T) {
	s := setValueStructure()

	// q3's rule reads filingType, written by q2's rule earlier in the same
	// sweep, so both land in one pass.
	out := ApplySetValue(s, map[string]any{"jointFiling": "yes"})
	if out["feeSchedule"] != "reduced" {
		t.Fatalf("expected feeSchedule=reduced via chained write, got %v", out["feeSchedule"])
	}
}

func TestApplySetValue_NoBackwardPropagation(t *testing.T) {
	// Reverse the chain: the rule that depends on the later write comes
	// first and must not see it within the same pass.
	s := &schema.Structure{
		ID: "s", Name: "s", Type: "t",
		Sections: []schema.Section{{
			ID: "sec", Title: "Sec",
			Questions: []schema.Question{
				{
					ID: "q1", Type: schema.TypeShortText, Label: "Fee schedule", FieldName: "feeSchedule",
					Logic: []schema.ConditionalRule{
						{Field: "filingType", Operator: schema.OpEquals, Value: "joint", Action: schema.ActionSetValue, TargetValue: "reduced"},
					},
				},
				{
					ID: "q2", Type: schema.TypeShortText, Label: "Filing type", FieldName: "filingType",
					Logic: []schema.ConditionalRule{
						{Field: "jointFiling", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionSetValue, TargetValue: "joint"},
					},
				},
				{ID: "q3", Type: schema.TypeYesNo, Label: "Joint filing?", FieldName: "jointFiling"},
			},
		}},
	}

	first := ApplySetValue(s, map[string]any{"jointFiling": "yes"})
	if first["filingType"] != "joint" {
		t.Fatalf("expected filingType=joint, got %v", first["filingType"])
	}
	if _, ok := first["feeSchedule"]; ok {
		t.Fatal("expected feeSchedule unset after one pass: earlier rules never see later writes")
	}

	// The chain settles on the next pass over the updated snapshot
	second := ApplySetValue(s, first)
	if second["feeSchedule"] != "reduced" {
		t.Fatalf("expected feeSchedule=reduced on the second pass, got %v", second["feeSchedule"])
	}
}

func TestApplySetValue_IgnoresFlagRules(t *testing.T) {
	s := prenupStructure()

	out := ApplySetValue(s, map[string]any{"hasPrenup": "yes"})
	if len(out) != 1 {
		t.Fatalf("expected show rules to write nothing, got %v", out)
	}
}
