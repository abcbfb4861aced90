package engine

import "formflow-backend/internal/schema"

// Snapshot is the full output of one evaluation pass. Derived whole from a
// single response snapshot; a superseded snapshot is simply discarded by the
// caller.
type Snapshot struct {
	Visibility *Visibility    `json:"visibility"`
	Responses  map[string]any `json:"responses"`
	Progress   *Progress      `json:"progress"`
	Errors     []ErrorDetail  `json:"errors"`
}

// Pass runs one evaluation pass: visibility resolution over the incoming
// snapshot, then the setValue sweep, then progress and validation over the
// updated answers. It performs no I/O and leaves the input map untouched;
// derived writes land only in the returned snapshot's Responses.
func Pass(s *schema.Structure, responses map[string]any, preds *PredicateRegistry) *Snapshot {
	if responses == nil {
		responses = map[string]any{}
	}
	vis := ResolveVisibility(s, responses)
	updated := ApplySetValue(s, responses)
	prog := ComputeProgress(s, updated, vis)
	errs := Validate(s, updated, vis, preds)
	if errs == nil {
		errs = []ErrorDetail{}
	}
	return &Snapshot{
		Visibility: vis,
		Responses:  updated,
		Progress:   prog,
		Errors:     errs,
	}
}
