package engine

import (
	"testing"

	"formflow-backend/internal/schema"
)

func TestPass_DerivedWritesFeedProgressAndValidation(t *testing.T) {
	s := &schema.Structure{
		ID: "divorce", Name: "Divorce", Type: "divorce",
		Sections: []schema.Section{{
			ID: "petition", Title: "Petition",
			Questions: []schema.Question{
				{ID: "q1", Type: schema.TypeYesNo, Label: "Joint filing?", Required: true, FieldName: "jointFiling"},
				{
					ID: "q2", Type: schema.TypeShortText, Label: "Filing type", Required: true, FieldName: "filingType",
					Logic: []schema.ConditionalRule{
						{Field: "jointFiling", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionSetValue, TargetValue: "joint"},
					},
					Validation: []schema.ValidationRule{{Kind: schema.KindRequired}},
				},
			},
		}},
	}

	snap := Pass(s, map[string]any{"jointFiling": "yes"}, nil)
	if snap.Responses["filingType"] != "joint" {
		t.Fatalf("expected derived write in snapshot, got %v", snap.Responses)
	}
	if len(snap.Errors) != 0 {
		t.Fatalf("expected derived answer to satisfy required, got %v", snap.Errors)
	}
	if len(snap.Progress.CompletedSections) != 1 {
		t.Fatalf("expected section complete after derived write, got %+v", snap.Progress)
	}
}

func TestPass_VisibilityPrecedesSetValue(t *testing.T) {
	// The setValue sweep reveals nothing within the same pass: visibility is
	// resolved against the incoming snapshot, before derived writes.
	s := &schema.Structure{
		ID: "s", Name: "s", Type: "t",
		Sections: []schema.Section{{
			ID: "sec", Title: "Sec",
			Questions: []schema.Question{
				{
					ID: "q1", Type: schema.TypeShortText, Label: "Filing type", FieldName: "filingType",
					Logic: []schema.ConditionalRule{
						{Field: "jointFiling", Operator: schema.OpEquals, Value: "yes", Action: schema.ActionSetValue, TargetValue: "joint"},
					},
				},
				{
					ID: "q2", Type: schema.TypeShortText, Label: "Joint details", FieldName: "jointDetails",
					Logic: []schema.ConditionalRule{
						{Field: "filingType", Operator: schema.OpEquals, Value: "joint", Action: schema.ActionShow},
					},
				},
			},
		}},
	}

	snap := Pass(s, map[string]any{"jointFiling": "yes"}, nil)
	if snap.Responses["filingType"] != "joint" {
		t.Fatalf("expected derived write, got %v", snap.Responses)
	}
	if snap.Visibility.QuestionFlags("jointDetails").Visible {
		t.Fatal("expected visibility resolved before the setValue sweep")
	}

	snap = Pass(s, snap.Responses, nil)
	if !snap.Visibility.QuestionFlags("jointDetails").Visible {
		t.Fatal("expected next pass to reveal the dependent question")
	}
}

func TestPass_NilResponses(t *testing.T) {
	snap := Pass(prenupStructure(), nil, nil)
	if snap.Responses == nil || snap.Errors == nil {
		t.Fatalf("expected non-nil snapshot fields, got %+v", snap)
	}
	if snap.Visibility.QuestionFlags("prenupDate").Visible {
		t.Fatal("expected question with unmet show rule hidden")
	}
}
