package engine

import "formflow-backend/internal/schema"

// Progress is a derived completion snapshot. It is recomputed whole on every
// evaluation pass and never stored; section indices are positions within the
// visible-section ordering, not raw declaration indices.
type Progress struct {
	CurrentSection    int      `json:"currentSection"`
	TotalSections     int      `json:"totalSections"`
	CompletedSections []int    `json:"completedSections"`
	AnsweredQuestions []string `json:"answeredQuestions"`
	Percent           int      `json:"percent"`
}

// ComputeProgress derives completion state from the structure, the response
// snapshot and an already-resolved visibility. Hidden sections and questions
// contribute nothing: a hidden required question never blocks completion.
//
// A visible section is complete when every visible and enabled required
// question in it has a non-empty answer. The current section is the first
// visible section that is not complete, or the last visible section when all
// are complete.
func ComputeProgress(s *schema.Structure, responses map[string]any, vis *Visibility) *Progress {
	prog := &Progress{
		CompletedSections: []int{},
		AnsweredQuestions: []string{},
	}

	firstIncomplete := -1
	visIdx := -1
	for si := range s.Sections {
		sec := &s.Sections[si]
		if !vis.SectionFlags(sec.ID).Visible {
			continue
		}
		visIdx++

		complete := true
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			qFlags := vis.QuestionFlags(q.FieldName)
			if !qFlags.Visible {
				continue
			}
			answered := !isEmpty(responses[q.FieldName])
			if answered {
				prog.AnsweredQuestions = append(prog.AnsweredQuestions, q.FieldName)
			}
			if q.Required && qFlags.Enabled && !answered {
				complete = false
			}
		}

		if complete {
			prog.CompletedSections = append(prog.CompletedSections, visIdx)
		} else if firstIncomplete < 0 {
			firstIncomplete = visIdx
		}
	}

	prog.TotalSections = visIdx + 1
	switch {
	case prog.TotalSections == 0:
		prog.CurrentSection = 0
	case firstIncomplete >= 0:
		prog.CurrentSection = firstIncomplete
	default:
		prog.CurrentSection = prog.TotalSections - 1
	}
	if prog.TotalSections > 0 {
		prog.Percent = 100 * len(prog.CompletedSections) / prog.TotalSections
	}
	return prog
}
