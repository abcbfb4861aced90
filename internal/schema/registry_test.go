package schema

import "testing"

func TestRegistry_LoadReplacesWholesale(t *testing.T) {
	reg := NewRegistry()
	reg.Load([]*Structure{
		{ID: "divorce-v1", Name: "Divorce", Type: "divorce"},
		{ID: "parenting-v1", Name: "Parenting plan", Type: "parenting"},
	})

	if s := reg.Get("divorce"); s == nil || s.ID != "divorce-v1" {
		t.Fatalf("unexpected lookup result %+v", s)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 structures, got %d", len(reg.All()))
	}

	reg.Load([]*Structure{{ID: "divorce-v2", Name: "Divorce", Type: "divorce"}})
	if s := reg.Get("divorce"); s == nil || s.ID != "divorce-v2" {
		t.Fatalf("expected reload to swap the active version, got %+v", s)
	}
	if reg.Get("parenting") != nil {
		t.Fatal("expected reload to drop structures absent from the new set")
	}
}

func TestRegistry_GetUnknownType(t *testing.T) {
	reg := NewRegistry()
	if reg.Get("divorce") != nil {
		t.Fatal("expected nil for unknown type")
	}
}
